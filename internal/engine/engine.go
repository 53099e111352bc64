// Package engine is the service layer of the vector database: it owns the
// entity store, the per-library index registry and the snapshot backend,
// and serializes every public operation behind a single mutex.
package engine

import (
	"fmt"
	"log"
	"sync"

	"vectra/internal/index"
	"vectra/internal/snapshot"
	"vectra/internal/store"
)

// AutosaveDisabled is the sentinel threshold that turns autosave off.
const AutosaveDisabled = -1

// Options configures an Engine.
type Options struct {
	// Backend persists snapshots. Nil disables the persistence layer:
	// save and restore report ErrUnavailable, and autosave never fires.
	Backend snapshot.Backend

	// AutosaveThreshold is the number of mutating operations between
	// automatic snapshots. AutosaveDisabled (or any value < 1) disables.
	AutosaveThreshold int
}

// Event describes a committed mutation, delivered to an optional sink for
// observers such as the WebSocket event stream.
type Event struct {
	Entity string `json:"entity"`
	Op     string `json:"op"`
	ID     string `json:"id"`
}

// EventFunc receives events. It is called with the engine lock held and
// must not block or call back into the engine.
type EventFunc func(Event)

// Engine coordinates the store, the index registry and persistence.
//
// Concurrency model: one mutex guards everything. Every public method
// acquires it for its full duration, queries included; store, registry and
// index internals all assume the lock is held. Indexes are not thread-safe
// on their own, so the coarse lock is both sufficient and simple to reason
// about at the target scale.
type Engine struct {
	mu      sync.Mutex
	store   *store.Store
	indexes map[string]index.Index

	backend           snapshot.Backend
	autosaveThreshold int
	writesSinceSave   int

	onEvent EventFunc
}

// New creates an engine with empty state.
func New(opts Options) *Engine {
	threshold := opts.AutosaveThreshold
	if threshold < 1 {
		threshold = AutosaveDisabled
	}
	return &Engine{
		store:             store.New(),
		indexes:           make(map[string]index.Index),
		backend:           opts.Backend,
		autosaveThreshold: threshold,
	}
}

// SetEventSink installs the observer callback for committed mutations.
func (e *Engine) SetEventSink(fn EventFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEvent = fn
}

// Close releases the snapshot backend, if any.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}

// Status is a point-in-time view of engine state.
type Status struct {
	Libraries          int  `json:"libraries"`
	Documents          int  `json:"documents"`
	Chunks             int  `json:"chunks"`
	PersistenceEnabled bool `json:"persistence_enabled"`
	AutosaveThreshold  int  `json:"autosave_threshold"`
	WritesSinceSave    int  `json:"writes_since_save"`
}

// Status reports entity counts and autosave state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	libs, docs, chunks := e.store.Counts()
	return Status{
		Libraries:          libs,
		Documents:          docs,
		Chunks:             chunks,
		PersistenceEnabled: e.backend != nil,
		AutosaveThreshold:  e.autosaveThreshold,
		WritesSinceSave:    e.writesSinceSave,
	}
}

// emit delivers an event to the sink, if one is installed. Lock held.
func (e *Engine) emit(entity, op, id string) {
	if e.onEvent != nil {
		e.onEvent(Event{Entity: entity, Op: op, ID: id})
	}
}

// noteWrite records a mutating operation and fires autosave at the
// configured threshold. It runs under the engine lock so the snapshot
// observes a consistent state.
func (e *Engine) noteWrite() {
	e.writesSinceSave++
	if e.backend == nil || e.autosaveThreshold == AutosaveDisabled {
		return
	}
	if e.writesSinceSave < e.autosaveThreshold {
		return
	}
	if _, err := e.saveLocked(); err != nil {
		log.Printf("autosave failed: %v", err)
		return
	}
	log.Printf("autosave: snapshot written after %d writes", e.autosaveThreshold)
}

// libraryIndex resolves the index bound to a library. A missing entry for
// an extant library is an invariant violation.
func (e *Engine) libraryIndex(libraryID string) (index.Index, error) {
	idx, ok := e.indexes[libraryID]
	if !ok {
		return nil, fmt.Errorf("library %s has no index: %w", libraryID, store.ErrInternal)
	}
	return idx, nil
}

// libraryDimension reports a library's established embedding dimension, or
// 0 when no chunk has ever been inserted. When the index reports no
// dimension, the first of the library's stored chunks is consulted instead.
func (e *Engine) libraryDimension(libraryID string, idx index.Index) int {
	if d := idx.Dimension(); d > 0 {
		return d
	}
	chunks, err := e.store.ChunksByLibrary(libraryID)
	if err != nil || len(chunks) == 0 {
		return 0
	}
	return len(chunks[0].Embedding)
}
