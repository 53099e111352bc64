package engine

import (
	"fmt"
	"time"

	"vectra/internal/filter"
	"vectra/internal/store"
)

// Query limits.
const (
	MinK = 1
	MaxK = 1000
)

// Over-fetch factors: when a filter discards candidates the index must be
// asked for more than k so that post-filtering still yields k matches.
const (
	overFetchNone     = 1
	overFetchFiltered = 3
	overFetchCombined = 9
)

// Predicate is a programmatic chunk filter, the embedding-library
// counterpart of the declarative DSL. It must not retain the chunk.
type Predicate func(*store.Chunk) bool

// QueryResult is a single ranked match.
type QueryResult struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Score      float32        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

// QueryResponse is the ranked result list with timing.
type QueryResponse struct {
	Results     []QueryResult `json:"results"`
	Total       int           `json:"total"`
	QueryTimeMS float64       `json:"query_time_ms"`
}

// Query runs the k-nearest-neighbor pipeline: index search with
// over-fetch, store lookup, post-filter, rank. Supplying both a
// declarative filter and a programmatic predicate is a usage error.
func (e *Engine) Query(libraryID string, embedding []float32, k int, filters *filter.SearchFilters, pred Predicate) (*QueryResponse, error) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if k < MinK || k > MaxK {
		return nil, store.WrapError("Query",
			fmt.Errorf("k must be in [%d, %d], got %d: %w", MinK, MaxK, k, store.ErrInvalidArgument))
	}
	hasFilters := !filters.IsZero()
	if hasFilters && pred != nil {
		return nil, store.WrapError("Query",
			fmt.Errorf("declarative filters and a predicate are mutually exclusive: %w", store.ErrInvalidArgument))
	}
	if err := filters.Validate(); err != nil {
		return nil, store.WrapError("Query", err)
	}
	if _, err := e.store.GetLibrary(libraryID); err != nil {
		return nil, store.WrapError("Query", err)
	}
	idx, err := e.libraryIndex(libraryID)
	if err != nil {
		return nil, store.WrapError("Query", err)
	}

	// A library that never saw an insert has no established dimension;
	// searching it yields an empty result rather than an error.
	if idx.Len() == 0 {
		return &QueryResponse{Results: []QueryResult{}, Total: 0, QueryTimeMS: msSince(start)}, nil
	}
	if dim := e.libraryDimension(libraryID, idx); dim > 0 && len(embedding) != dim {
		return nil, store.WrapError("Query",
			fmt.Errorf("query has %d dimensions, library has %d: %w", len(embedding), dim, store.ErrDimensionMismatch))
	}

	fetchK := k * fetchFactor(hasFilters, pred != nil)
	candidates, err := idx.Search(embedding, fetchK)
	if err != nil {
		return nil, store.WrapError("Query", err)
	}

	results := make([]QueryResult, 0, k)
	for _, cand := range candidates {
		if len(results) >= k {
			break
		}
		chunk, err := e.store.GetChunk(cand.ID)
		if err != nil {
			// Candidate deleted between index search and store lookup;
			// skip it rather than surface a stale row.
			continue
		}
		if hasFilters && !filters.Matches(chunk) {
			continue
		}
		if pred != nil && !pred(chunk) {
			continue
		}
		results = append(results, QueryResult{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Text:       chunk.Text,
			Score:      cand.Score,
			Metadata:   chunk.Clone().Metadata,
		})
	}

	return &QueryResponse{
		Results:     results,
		Total:       len(results),
		QueryTimeMS: msSince(start),
	}, nil
}

func fetchFactor(declarative, programmatic bool) int {
	switch {
	case declarative && programmatic:
		return overFetchCombined
	case declarative || programmatic:
		return overFetchFiltered
	default:
		return overFetchNone
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
