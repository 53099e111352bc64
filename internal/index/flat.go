package index

import (
	"fmt"

	"vectra/internal/store"
)

// Flat is an exhaustive exact-search index: an ordered id → vector mapping
// scanned in full on every query. It has no separate build step.
type Flat struct {
	metric  Metric
	dim     int
	order   []string
	vectors map[string][]float32
}

// NewFlat creates an empty flat index using the given metric.
func NewFlat(metric Metric) *Flat {
	return &Flat{
		metric:  metric,
		vectors: make(map[string][]float32),
	}
}

// Kind implements Index.
func (f *Flat) Kind() store.IndexKind { return store.KindFlat }

// Metric reports the configured similarity metric.
func (f *Flat) Metric() Metric { return f.metric }

// Add implements Index.
func (f *Flat) Add(id string, vector []float32) error {
	if err := f.checkDimension(len(vector)); err != nil {
		return store.WrapError("flat.Add", err)
	}
	if f.dim == 0 {
		f.dim = len(vector)
	}
	if _, exists := f.vectors[id]; !exists {
		f.order = append(f.order, id)
	}
	f.vectors[id] = copyVector(vector)
	return nil
}

// BulkAdd implements Index.
func (f *Flat) BulkAdd(items []Item) error {
	for _, item := range items {
		if err := f.Add(item.ID, item.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Update implements Index.
func (f *Flat) Update(id string, vector []float32) error {
	if _, ok := f.vectors[id]; !ok {
		return store.WrapError("flat.Update", fmt.Errorf("id %s: %w", id, store.ErrNotFound))
	}
	if err := f.checkDimension(len(vector)); err != nil {
		return store.WrapError("flat.Update", err)
	}
	f.vectors[id] = copyVector(vector)
	return nil
}

// Delete implements Index.
func (f *Flat) Delete(id string) error {
	if _, ok := f.vectors[id]; !ok {
		return store.WrapError("flat.Delete", fmt.Errorf("id %s: %w", id, store.ErrNotFound))
	}
	delete(f.vectors, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear implements Index.
func (f *Flat) Clear() {
	f.dim = 0
	f.order = nil
	f.vectors = make(map[string][]float32)
}

// Search implements Index. The scan is exhaustive, so recall is exact.
func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if len(f.vectors) == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, store.WrapError("flat.Search",
			fmt.Errorf("query has %d dimensions, index has %d: %w", len(query), f.dim, store.ErrDimensionMismatch))
	}
	heap := newTopK(k)
	for _, id := range f.order {
		heap.push(Result{ID: id, Score: f.metric.score(query, f.vectors[id])})
	}
	return heap.results(), nil
}

// Build implements Index. A flat index is always effectively built.
func (f *Flat) Build() error { return nil }

// Built implements Index.
func (f *Flat) Built() bool { return true }

// Len implements Index.
func (f *Flat) Len() int { return len(f.vectors) }

// Dimension implements Index.
func (f *Flat) Dimension() int { return f.dim }

func (f *Flat) checkDimension(n int) error {
	if f.dim != 0 && n != f.dim {
		return fmt.Errorf("vector has %d dimensions, index has %d: %w", n, f.dim, store.ErrDimensionMismatch)
	}
	return nil
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
