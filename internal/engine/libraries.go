package engine

import (
	"fmt"
	"time"

	"vectra/internal/index"
	"vectra/internal/store"
)

const maxNameLength = 255

// CreateLibrary creates a library together with its unbuilt index. Unknown
// index kinds and malformed index configuration fail with InvalidArgument.
func (e *Engine) CreateLibrary(name string, metadata map[string]any, kind store.IndexKind, config map[string]any) (*store.Library, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateName(name); err != nil {
		return nil, store.WrapError("CreateLibrary", err)
	}
	if kind == "" {
		kind = store.KindFlat
	}
	if config == nil {
		config = map[string]any{}
	}
	idx, err := index.New(kind, config)
	if err != nil {
		return nil, store.WrapError("CreateLibrary", err)
	}

	now := time.Now().UTC()
	lib := &store.Library{
		ID:          store.NewID(),
		Name:        name,
		DocumentIDs: []string{},
		Metadata:    orEmpty(metadata),
		IndexKind:   kind,
		IndexConfig: config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateLibrary(lib); err != nil {
		return nil, store.WrapError("CreateLibrary", err)
	}
	e.indexes[lib.ID] = idx
	e.noteWrite()
	e.emit("library", "created", lib.ID)
	return lib.Clone(), nil
}

// GetLibrary returns a library by id.
func (e *Engine) GetLibrary(id string) (*store.Library, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lib, err := e.store.GetLibrary(id)
	if err != nil {
		return nil, store.WrapError("GetLibrary", err)
	}
	return lib.Clone(), nil
}

// ListLibraries returns all libraries.
func (e *Engine) ListLibraries() []*store.Library {
	e.mu.Lock()
	defer e.mu.Unlock()
	libs := e.store.ListLibraries()
	out := make([]*store.Library, len(libs))
	for i, lib := range libs {
		out[i] = lib.Clone()
	}
	return out
}

// LibraryUpdate carries the fields of a partial library update. Nil fields
// are left unchanged. Providing an index kind or config swaps the
// library's index: a fresh unbuilt index is created and reloaded with the
// library's chunks.
type LibraryUpdate struct {
	Name        *string
	Metadata    map[string]any
	IndexKind   *store.IndexKind
	IndexConfig map[string]any
}

// UpdateLibrary applies a partial update.
func (e *Engine) UpdateLibrary(id string, upd LibraryUpdate) (*store.Library, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.store.GetLibrary(id)
	if err != nil {
		return nil, store.WrapError("UpdateLibrary", err)
	}
	if upd.Name != nil {
		if err := validateName(*upd.Name); err != nil {
			return nil, store.WrapError("UpdateLibrary", err)
		}
	}

	if upd.IndexKind != nil || upd.IndexConfig != nil {
		kind := lib.IndexKind
		if upd.IndexKind != nil {
			kind = *upd.IndexKind
		}
		config := lib.IndexConfig
		if upd.IndexConfig != nil {
			config = upd.IndexConfig
		}
		idx, err := index.New(kind, config)
		if err != nil {
			return nil, store.WrapError("UpdateLibrary", err)
		}
		chunks, err := e.store.ChunksByLibrary(id)
		if err != nil {
			return nil, store.WrapError("UpdateLibrary", err)
		}
		items := make([]index.Item, len(chunks))
		for i, chunk := range chunks {
			items[i] = index.Item{ID: chunk.ID, Vector: chunk.Embedding}
		}
		if err := idx.BulkAdd(items); err != nil {
			return nil, store.WrapError("UpdateLibrary", err)
		}
		e.indexes[id] = idx
		lib.IndexKind = kind
		lib.IndexConfig = config
	}

	if upd.Name != nil {
		lib.Name = *upd.Name
	}
	if upd.Metadata != nil {
		lib.Metadata = upd.Metadata
	}
	lib.UpdatedAt = time.Now().UTC()
	e.noteWrite()
	e.emit("library", "updated", lib.ID)
	return lib.Clone(), nil
}

// DeleteLibrary removes a library, cascading to all its documents and
// chunks, and drops the library's index.
func (e *Engine) DeleteLibrary(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.DeleteLibrary(id); err != nil {
		return store.WrapError("DeleteLibrary", err)
	}
	delete(e.indexes, id)
	e.noteWrite()
	e.emit("library", "deleted", id)
	return nil
}

// BuildStats summarizes an explicit index build.
type BuildStats struct {
	LibraryID    string         `json:"library_id"`
	TotalVectors int            `json:"total_vectors"`
	Dimension    int            `json:"dimension"`
	Kind         store.IndexKind `json:"index_type"`
	Config       map[string]any `json:"index_config"`
}

// RebuildIndex explicitly builds a library's index. Building over zero
// vectors is a no-op at this level; callers may surface it if they care.
func (e *Engine) RebuildIndex(libraryID string) (*BuildStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lib, err := e.store.GetLibrary(libraryID)
	if err != nil {
		return nil, store.WrapError("RebuildIndex", err)
	}
	idx, err := e.libraryIndex(libraryID)
	if err != nil {
		return nil, store.WrapError("RebuildIndex", err)
	}
	if err := idx.Build(); err != nil {
		return nil, store.WrapError("RebuildIndex", err)
	}
	e.emit("library", "index_built", libraryID)
	return &BuildStats{
		LibraryID:    libraryID,
		TotalVectors: idx.Len(),
		Dimension:    idx.Dimension(),
		Kind:         lib.IndexKind,
		Config:       lib.Clone().IndexConfig,
	}, nil
}

func validateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("name must not be empty: %w", store.ErrInvalidArgument)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name exceeds %d characters: %w", maxNameLength, store.ErrInvalidArgument)
	}
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
