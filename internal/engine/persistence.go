package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vectra/internal/index"
	"vectra/internal/snapshot"
	"vectra/internal/store"
)

// SaveStats summarizes a completed snapshot write.
type SaveStats struct {
	Libraries int       `json:"libraries"`
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	SavedAt   time.Time `json:"saved_at"`
}

// SaveSnapshot synchronously writes a snapshot of all entity state.
// Returns ErrUnavailable when persistence is disabled.
func (e *Engine) SaveSnapshot() (*SaveStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked()
}

// saveLocked performs the snapshot write; lock held.
func (e *Engine) saveLocked() (*SaveStats, error) {
	if e.backend == nil {
		return nil, store.WrapError("SaveSnapshot", store.ErrUnavailable)
	}
	state := snapshot.Capture(e.store)
	if err := e.backend.Save(context.Background(), state); err != nil {
		return nil, store.WrapError("SaveSnapshot", err)
	}
	e.writesSinceSave = 0
	e.emit("snapshot", "saved", "")
	return &SaveStats{
		Libraries: len(state.Libraries),
		Documents: len(state.Documents),
		Chunks:    len(state.Chunks),
		SavedAt:   state.SavedAt,
	}, nil
}

// RestoreStats summarizes a completed restore.
type RestoreStats struct {
	Libraries int       `json:"libraries"`
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	SavedAt   time.Time `json:"saved_at"`
}

// RestoreSnapshot clears all in-memory state and loads the latest
// snapshot. The operation is irreversible. Indexes are recreated unbuilt
// and reloaded with their library's vectors; clustering happens lazily on
// the first search. Returns ErrUnavailable when persistence is disabled
// and ErrNotFound when no snapshot exists.
func (e *Engine) RestoreSnapshot() (*RestoreStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restoreLocked()
}

// RestoreOnStart loads the latest snapshot if one exists. A missing
// snapshot is not an error at startup; it reports restored=false.
func (e *Engine) RestoreOnStart() (*RestoreStats, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return nil, false, nil
	}
	stats, err := e.restoreLocked()
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return stats, true, nil
}

func (e *Engine) restoreLocked() (*RestoreStats, error) {
	if e.backend == nil {
		return nil, store.WrapError("RestoreSnapshot", store.ErrUnavailable)
	}
	state, err := e.backend.Load(context.Background())
	if err != nil {
		return nil, store.WrapError("RestoreSnapshot", err)
	}
	if err := snapshot.Apply(state, e.store); err != nil {
		return nil, store.WrapError("RestoreSnapshot", err)
	}

	indexes := make(map[string]index.Index, len(state.Libraries))
	for _, lib := range state.Libraries {
		idx, err := index.New(lib.IndexKind, lib.IndexConfig)
		if err != nil {
			return nil, store.WrapError("RestoreSnapshot",
				fmt.Errorf("library %s: %v: %w", lib.ID, err, store.ErrInternal))
		}
		chunks, err := e.store.ChunksByLibrary(lib.ID)
		if err != nil {
			return nil, store.WrapError("RestoreSnapshot", err)
		}
		items := make([]index.Item, len(chunks))
		for i, chunk := range chunks {
			items[i] = index.Item{ID: chunk.ID, Vector: chunk.Embedding}
		}
		if err := idx.BulkAdd(items); err != nil {
			return nil, store.WrapError("RestoreSnapshot", err)
		}
		indexes[lib.ID] = idx
	}
	e.indexes = indexes
	e.writesSinceSave = 0
	e.emit("snapshot", "restored", "")
	return &RestoreStats{
		Libraries: len(state.Libraries),
		Documents: len(state.Documents),
		Chunks:    len(state.Chunks),
		SavedAt:   state.SavedAt,
	}, nil
}
