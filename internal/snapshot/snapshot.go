// Package snapshot persists the full entity state as a single versioned
// document. Index internals are never written; indexes are recreated
// unbuilt on restore and rebuilt lazily on first search.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"vectra/internal/store"
)

// FormatVersion is the current snapshot document version. Loaders reject
// documents from a newer format.
const FormatVersion = 1

// State is the self-describing snapshot payload: the three entity tables,
// with each library carrying its index kind and configuration.
type State struct {
	Version   int               `json:"version"`
	SavedAt   time.Time         `json:"saved_at"`
	Libraries []*store.Library  `json:"libraries"`
	Documents []*store.Document `json:"documents"`
	Chunks    []*store.Chunk    `json:"chunks"`
}

// Backend persists and retrieves snapshot state.
type Backend interface {
	// Save writes the state atomically; no reader ever observes a
	// partial snapshot.
	Save(ctx context.Context, state *State) error

	// Load returns the latest snapshot, or ErrNotFound when none exists.
	Load(ctx context.Context) (*State, error)

	// Lifecycle
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates a backend of the named kind rooted at dir.
func Open(backend, dir string) (Backend, error) {
	switch backend {
	case BackendFile, "":
		return NewFile(dir), nil
	case BackendSQLite:
		return NewSQLite(dir)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q: %w", backend, store.ErrInvalidArgument)
	}
}

// Capture builds a snapshot state from the store. Entities are emitted in
// deterministic order: libraries by creation, children in insertion order.
func Capture(s *store.Store) *State {
	state := &State{
		Version: FormatVersion,
		SavedAt: time.Now().UTC(),
	}
	for _, lib := range s.ListLibraries() {
		state.Libraries = append(state.Libraries, lib)
		docs, _ := s.ListDocumentsByLibrary(lib.ID)
		for _, doc := range docs {
			state.Documents = append(state.Documents, doc)
			chunks, _ := s.ListChunksByDocument(doc.ID)
			state.Chunks = append(state.Chunks, chunks...)
		}
	}
	return state
}

// Apply replaces the store contents with the snapshot state.
func Apply(state *State, s *store.Store) error {
	if state.Version > FormatVersion {
		return fmt.Errorf("snapshot format version %d is newer than supported %d: %w",
			state.Version, FormatVersion, store.ErrInvalidArgument)
	}
	return s.Replace(state.Libraries, state.Documents, state.Chunks)
}
