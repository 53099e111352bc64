package index

import (
	"fmt"

	"vectra/internal/store"
)

// Result is a single nearest-neighbor match. Scores are normalized so that
// larger means more similar regardless of metric.
type Result struct {
	ID    string
	Score float32
}

// Item pairs an id with its embedding for bulk insertion.
type Item struct {
	ID     string
	Vector []float32
}

// Index answers top-k queries over a set of embeddings.
//
// Implementations are not safe for concurrent use; the engine serializes
// all access behind its lock.
type Index interface {
	// Kind reports the index implementation name.
	Kind() store.IndexKind

	// Add inserts a vector. The first add pins the index dimension;
	// later adds with a different length fail with ErrDimensionMismatch.
	// Adding an existing id replaces its vector.
	Add(id string, vector []float32) error

	// BulkAdd inserts many vectors, deferring any clustering work.
	BulkAdd(items []Item) error

	// Update replaces the vector for an existing id (delete then add).
	// Fails with ErrNotFound if the id is absent.
	Update(id string, vector []float32) error

	// Delete removes an id. Fails with ErrNotFound if absent.
	Delete(id string) error

	// Clear empties all state, including the pinned dimension.
	Clear()

	// Search returns up to k matches sorted by score descending, ties
	// broken by ascending id. An empty index returns an empty result.
	Search(query []float32, k int) ([]Result, error)

	// Build transitions the index to its built state, clustering if the
	// implementation requires it. Building an already-built index
	// re-clusters from scratch.
	Build() error

	// Built reports whether the index is in the built state.
	Built() bool

	// Len returns the number of stored vectors.
	Len() int

	// Dimension returns the pinned vector length, or 0 before any add.
	Dimension() int
}

// New constructs an index of the requested kind from its configuration map.
// Unknown kinds and malformed configuration fail with ErrInvalidArgument.
func New(kind store.IndexKind, config map[string]any) (Index, error) {
	metric, err := metricFromConfig(config)
	if err != nil {
		return nil, err
	}
	switch kind {
	case store.KindFlat:
		return NewFlat(metric), nil
	case store.KindIVF:
		nlist, nprobe, err := ivfOptions(config)
		if err != nil {
			return nil, err
		}
		return NewIVF(metric, nlist, nprobe), nil
	case store.KindHNSW:
		return nil, fmt.Errorf("index kind %q is reserved, supported kinds are %q and %q: %w",
			kind, store.KindFlat, store.KindIVF, store.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("unknown index kind %q: %w", kind, store.ErrInvalidArgument)
	}
}

// ivfOptions extracts nlist and nprobe from an index configuration map.
// Zero nlist means "choose at build time".
func ivfOptions(config map[string]any) (nlist, nprobe int, err error) {
	nlist, err = positiveIntOption(config, "nlist", 0)
	if err != nil {
		return 0, 0, err
	}
	nprobe, err = positiveIntOption(config, "nprobe", 1)
	if err != nil {
		return 0, 0, err
	}
	return nlist, nprobe, nil
}

func positiveIntOption(config map[string]any, key string, def int) (int, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return def, nil
	}
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be an integer, got %v: %w", key, v, store.ErrInvalidArgument)
		}
		n = int(v)
	default:
		return 0, fmt.Errorf("%s must be an integer, got %T: %w", key, raw, store.ErrInvalidArgument)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d: %w", key, n, store.ErrInvalidArgument)
	}
	return n, nil
}
