package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectra/internal/store"
)

// Run with -race: every public operation serializes behind the engine
// mutex, so concurrent writers and readers must never trip the detector
// or corrupt the hierarchy.
func TestConcurrentWritesAndQueries(t *testing.T) {
	eng := newTestEngine(t)
	libID, docID := seedLibrary(t, eng, store.KindFlat, nil)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := eng.CreateChunk(libID, docID, fmt.Sprintf("w%d-%d", w, i),
					[]float32{float32(w), float32(i), 1}, nil)
				if err != nil {
					t.Errorf("CreateChunk failed: %v", err)
					return
				}
			}
		}(w)
	}

	// Readers run concurrently with the writers.
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := eng.Query(libID, []float32{1, 1, 1}, 5, nil, nil); err != nil {
					t.Errorf("Query failed: %v", err)
					return
				}
				eng.Status()
			}
		}()
	}
	wg.Wait()

	status := eng.Status()
	require.Equal(t, writers*perWriter, status.Chunks)

	// Every chunk the store reports must be queryable through the index.
	resp, err := eng.Query(libID, []float32{3, 3, 1}, 200, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, len(resp.Results))
}

func TestConcurrentDeleteDuringQueries(t *testing.T) {
	eng := newTestEngine(t)
	libID, docID := seedLibrary(t, eng, store.KindFlat, nil)

	var ids []string
	for i := 0; i < 100; i++ {
		chunk, err := eng.CreateChunk(libID, docID, "c", []float32{float32(i), 1}, nil)
		require.NoError(t, err)
		ids = append(ids, chunk.ID)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, id := range ids[:50] {
			if err := eng.DeleteChunk(libID, docID, id); err != nil {
				t.Errorf("DeleteChunk failed: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			resp, err := eng.Query(libID, []float32{50, 1}, 10, nil, nil)
			if err != nil {
				t.Errorf("Query failed: %v", err)
				return
			}
			if len(resp.Results) > 10 {
				t.Errorf("query returned more than k results: %d", len(resp.Results))
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, 50, eng.Status().Chunks)
}
