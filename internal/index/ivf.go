package index

import (
	"fmt"
	"math"
	"sort"

	"vectra/internal/store"
)

// member is one (id, vector) entry inside an IVF cluster list.
type member struct {
	id     string
	vector []float32
}

// IVF is an inverted-file index: vectors are partitioned into nlist
// k-means clusters and queries probe only the nprobe most promising
// partitions. Raw vectors are kept per partition (IVFFLAT), so retrieval
// within a probed cluster is full fidelity.
//
// The index moves through three states: empty, pending (vectors added but
// not clustered) and built. Searching a pending index builds it first.
type IVF struct {
	metric      Metric
	nlistConfig int // 0 means choose at build time
	nprobe      int

	dim     int
	order   []string
	vectors map[string][]float32

	centroids [][]float32
	clusters  [][]member
	built     bool
}

// NewIVF creates an empty IVF index. nlist of 0 defers the cluster count to
// build time (floor(sqrt(n)), or 1 when n < 10, clamped to [1, n]).
func NewIVF(metric Metric, nlist, nprobe int) *IVF {
	if nprobe <= 0 {
		nprobe = 1
	}
	return &IVF{
		metric:      metric,
		nlistConfig: nlist,
		nprobe:      nprobe,
		vectors:     make(map[string][]float32),
	}
}

// Kind implements Index.
func (ix *IVF) Kind() store.IndexKind { return store.KindIVF }

// Metric reports the configured similarity metric.
func (ix *IVF) Metric() Metric { return ix.metric }

// Add implements Index. While built, the vector is appended to its nearest
// cluster without recomputing centroids.
func (ix *IVF) Add(id string, vector []float32) error {
	if err := ix.checkDimension(len(vector)); err != nil {
		return store.WrapError("ivf.Add", err)
	}
	if ix.dim == 0 {
		ix.dim = len(vector)
	}
	if _, exists := ix.vectors[id]; exists {
		return ix.replace(id, vector)
	}

	v := copyVector(vector)
	ix.vectors[id] = v
	ix.order = append(ix.order, id)

	if ix.built {
		if len(ix.centroids) == 0 {
			// Built over zero vectors is a degenerate state; fall back
			// to pending so the next search clusters for real.
			ix.built = false
			return nil
		}
		c := nearestCentroid(ix.metric, v, ix.centroids)
		ix.clusters[c] = append(ix.clusters[c], member{id: id, vector: v})
	}
	return nil
}

// BulkAdd implements Index. Clustering work is deferred: vectors land in
// the flat mapping and the index drops back to pending until the next
// build (explicit or triggered by search).
func (ix *IVF) BulkAdd(items []Item) error {
	for _, item := range items {
		if err := ix.checkDimension(len(item.Vector)); err != nil {
			return store.WrapError("ivf.BulkAdd", err)
		}
		if ix.dim == 0 {
			ix.dim = len(item.Vector)
		}
	}
	for _, item := range items {
		if _, exists := ix.vectors[item.ID]; !exists {
			ix.order = append(ix.order, item.ID)
		}
		ix.vectors[item.ID] = copyVector(item.Vector)
	}
	ix.dropClusters()
	return nil
}

// Update implements Index: delete then add, possibly changing cluster.
func (ix *IVF) Update(id string, vector []float32) error {
	if _, ok := ix.vectors[id]; !ok {
		return store.WrapError("ivf.Update", fmt.Errorf("id %s: %w", id, store.ErrNotFound))
	}
	if err := ix.checkDimension(len(vector)); err != nil {
		return store.WrapError("ivf.Update", err)
	}
	return ix.replace(id, vector)
}

// replace re-inserts an existing id with a new vector.
func (ix *IVF) replace(id string, vector []float32) error {
	ix.removeFromClusters(id)
	v := copyVector(vector)
	ix.vectors[id] = v
	if ix.built && len(ix.centroids) > 0 {
		c := nearestCentroid(ix.metric, v, ix.centroids)
		ix.clusters[c] = append(ix.clusters[c], member{id: id, vector: v})
	}
	return nil
}

// Delete implements Index. Emptied clusters are retained in the structure
// and skipped at search time.
func (ix *IVF) Delete(id string) error {
	if _, ok := ix.vectors[id]; !ok {
		return store.WrapError("ivf.Delete", fmt.Errorf("id %s: %w", id, store.ErrNotFound))
	}
	delete(ix.vectors, id)
	for i, v := range ix.order {
		if v == id {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
	ix.removeFromClusters(id)
	return nil
}

// Clear implements Index.
func (ix *IVF) Clear() {
	ix.dim = 0
	ix.order = nil
	ix.vectors = make(map[string][]float32)
	ix.centroids = nil
	ix.clusters = nil
	ix.built = false
}

// Build implements Index. Building an already-built index re-clusters from
// scratch; the fixed k-means seed keeps repeated builds reproducible.
func (ix *IVF) Build() error {
	n := len(ix.vectors)
	if n == 0 {
		ix.centroids = nil
		ix.clusters = nil
		ix.built = true
		return nil
	}

	nlist := ix.effectiveNlist(n)
	data := make([][]float32, n)
	for i, id := range ix.order {
		data[i] = ix.vectors[id]
	}

	ix.centroids = runKMeans(data, nlist, ix.metric)
	ix.clusters = make([][]member, len(ix.centroids))
	for _, id := range ix.order {
		v := ix.vectors[id]
		c := nearestCentroid(ix.metric, v, ix.centroids)
		ix.clusters[c] = append(ix.clusters[c], member{id: id, vector: v})
	}
	ix.built = true
	return nil
}

// effectiveNlist resolves the cluster count for n vectors: the configured
// value clamped to [1, n], or floor(sqrt(n)) by default (1 for small n).
func (ix *IVF) effectiveNlist(n int) int {
	nlist := ix.nlistConfig
	if nlist <= 0 {
		if n < 10 {
			nlist = 1
		} else {
			nlist = int(math.Floor(math.Sqrt(float64(n))))
		}
	}
	if nlist > n {
		nlist = n
	}
	if nlist < 1 {
		nlist = 1
	}
	return nlist
}

// Search implements Index. A pending index is built on first search.
func (ix *IVF) Search(query []float32, k int) ([]Result, error) {
	if len(ix.vectors) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, store.WrapError("ivf.Search",
			fmt.Errorf("query has %d dimensions, index has %d: %w", len(query), ix.dim, store.ErrDimensionMismatch))
	}
	if !ix.built {
		if err := ix.Build(); err != nil {
			return nil, err
		}
	}

	nprobe := ix.nprobe
	if nprobe > len(ix.clusters) {
		nprobe = len(ix.clusters)
	}

	// Rank non-empty clusters by centroid similarity.
	type probe struct {
		cluster int
		score   float32
	}
	probes := make([]probe, 0, len(ix.clusters))
	for c := range ix.clusters {
		if len(ix.clusters[c]) == 0 {
			continue
		}
		probes = append(probes, probe{cluster: c, score: ix.metric.score(query, ix.centroids[c])})
	}
	sort.Slice(probes, func(i, j int) bool {
		if probes[i].score != probes[j].score {
			return probes[i].score > probes[j].score
		}
		return probes[i].cluster < probes[j].cluster
	})
	if len(probes) > nprobe {
		probes = probes[:nprobe]
	}

	heap := newTopK(k)
	for _, p := range probes {
		for _, m := range ix.clusters[p.cluster] {
			heap.push(Result{ID: m.id, Score: ix.metric.score(query, m.vector)})
		}
	}
	return heap.results(), nil
}

// Built implements Index.
func (ix *IVF) Built() bool { return ix.built }

// Len implements Index.
func (ix *IVF) Len() int { return len(ix.vectors) }

// Dimension implements Index.
func (ix *IVF) Dimension() int { return ix.dim }

func (ix *IVF) checkDimension(n int) error {
	if ix.dim != 0 && n != ix.dim {
		return fmt.Errorf("vector has %d dimensions, index has %d: %w", n, ix.dim, store.ErrDimensionMismatch)
	}
	return nil
}

// dropClusters invalidates any clustering so the next search rebuilds.
func (ix *IVF) dropClusters() {
	ix.centroids = nil
	ix.clusters = nil
	ix.built = false
}

// removeFromClusters deletes an id from whichever cluster holds it.
func (ix *IVF) removeFromClusters(id string) {
	for c := range ix.clusters {
		for i, m := range ix.clusters[c] {
			if m.id == id {
				ix.clusters[c] = append(ix.clusters[c][:i], ix.clusters[c][i+1:]...)
				return
			}
		}
	}
}
