package engine

import (
	"fmt"
	"time"

	"vectra/internal/index"
	"vectra/internal/store"
)

// CreateChunk inserts a chunk, validates its embedding against the
// library's established dimension and forwards the add to the index.
func (e *Engine) CreateChunk(libraryID, documentID, text string, embedding []float32, metadata map[string]any) (*store.Chunk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.scopedDocument(libraryID, documentID); err != nil {
		return nil, store.WrapError("CreateChunk", err)
	}
	idx, err := e.libraryIndex(libraryID)
	if err != nil {
		return nil, store.WrapError("CreateChunk", err)
	}
	if len(embedding) == 0 {
		return nil, store.WrapError("CreateChunk",
			fmt.Errorf("embedding must not be empty: %w", store.ErrInvalidArgument))
	}
	if dim := e.libraryDimension(libraryID, idx); dim > 0 && len(embedding) != dim {
		return nil, store.WrapError("CreateChunk",
			fmt.Errorf("embedding has %d dimensions, library has %d: %w", len(embedding), dim, store.ErrDimensionMismatch))
	}

	now := time.Now().UTC()
	chunk := &store.Chunk{
		ID:         store.NewID(),
		DocumentID: documentID,
		Text:       text,
		Embedding:  append([]float32(nil), embedding...),
		Metadata:   orEmpty(metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.store.CreateChunk(chunk); err != nil {
		return nil, store.WrapError("CreateChunk", err)
	}
	if err := idx.Add(chunk.ID, chunk.Embedding); err != nil {
		// Undo the store insert so store and index stay consistent.
		_ = e.store.DeleteChunk(chunk.ID)
		return nil, store.WrapError("CreateChunk", err)
	}
	e.noteWrite()
	e.emit("chunk", "created", chunk.ID)
	return chunk.Clone(), nil
}

// ChunkSpec describes one chunk in a batch create.
type ChunkSpec struct {
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// CreateChunksBatch inserts chunks all-or-nothing: every embedding is
// validated against the library dimension (established by the first
// element when the library is empty) before any state changes, and the
// index registry is updated only after all store insertions succeed.
func (e *Engine) CreateChunksBatch(libraryID, documentID string, specs []ChunkSpec) ([]*store.Chunk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.scopedDocument(libraryID, documentID); err != nil {
		return nil, store.WrapError("CreateChunksBatch", err)
	}
	idx, err := e.libraryIndex(libraryID)
	if err != nil {
		return nil, store.WrapError("CreateChunksBatch", err)
	}

	dim := e.libraryDimension(libraryID, idx)
	for i, spec := range specs {
		if len(spec.Embedding) == 0 {
			return nil, store.WrapError("CreateChunksBatch",
				fmt.Errorf("chunk %d: embedding must not be empty: %w", i, store.ErrInvalidArgument))
		}
		if dim == 0 {
			dim = len(spec.Embedding)
			continue
		}
		if len(spec.Embedding) != dim {
			return nil, store.WrapError("CreateChunksBatch",
				fmt.Errorf("chunk %d has %d dimensions, library has %d: %w", i, len(spec.Embedding), dim, store.ErrDimensionMismatch))
		}
	}

	now := time.Now().UTC()
	chunks := make([]*store.Chunk, len(specs))
	items := make([]index.Item, len(specs))
	for i, spec := range specs {
		chunk := &store.Chunk{
			ID:         store.NewID(),
			DocumentID: documentID,
			Text:       spec.Text,
			Embedding:  append([]float32(nil), spec.Embedding...),
			Metadata:   orEmpty(spec.Metadata),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		chunks[i] = chunk
		items[i] = index.Item{ID: chunk.ID, Vector: chunk.Embedding}
	}
	if err := e.store.CreateChunksBatch(chunks); err != nil {
		return nil, store.WrapError("CreateChunksBatch", err)
	}
	if err := idx.BulkAdd(items); err != nil {
		// Roll back every store insert from this call.
		for _, chunk := range chunks {
			_ = e.store.DeleteChunk(chunk.ID)
		}
		return nil, store.WrapError("CreateChunksBatch", err)
	}

	out := make([]*store.Chunk, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk.Clone()
		e.emit("chunk", "created", chunk.ID)
	}
	e.noteWrite()
	return out, nil
}

// GetChunk returns a chunk scoped to its document and library.
func (e *Engine) GetChunk(libraryID, documentID, chunkID string) (*store.Chunk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	chunk, err := e.scopedChunk(libraryID, documentID, chunkID)
	if err != nil {
		return nil, store.WrapError("GetChunk", err)
	}
	return chunk.Clone(), nil
}

// ListChunks returns a document's chunks in insertion order.
func (e *Engine) ListChunks(libraryID, documentID string) ([]*store.Chunk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.scopedDocument(libraryID, documentID); err != nil {
		return nil, store.WrapError("ListChunks", err)
	}
	chunks, err := e.store.ListChunksByDocument(documentID)
	if err != nil {
		return nil, store.WrapError("ListChunks", err)
	}
	out := make([]*store.Chunk, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk.Clone()
	}
	return out, nil
}

// ChunkUpdate carries the fields of a partial chunk update. An embedding
// update flows through the index as delete-then-add, reassigning cluster
// membership where that applies.
type ChunkUpdate struct {
	Text      *string
	Embedding []float32
	Metadata  map[string]any
}

// UpdateChunk applies a partial update.
func (e *Engine) UpdateChunk(libraryID, documentID, chunkID string, upd ChunkUpdate) (*store.Chunk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	chunk, err := e.scopedChunk(libraryID, documentID, chunkID)
	if err != nil {
		return nil, store.WrapError("UpdateChunk", err)
	}
	if upd.Embedding != nil {
		idx, err := e.libraryIndex(libraryID)
		if err != nil {
			return nil, store.WrapError("UpdateChunk", err)
		}
		if dim := e.libraryDimension(libraryID, idx); dim > 0 && len(upd.Embedding) != dim {
			return nil, store.WrapError("UpdateChunk",
				fmt.Errorf("embedding has %d dimensions, library has %d: %w", len(upd.Embedding), dim, store.ErrDimensionMismatch))
		}
		if err := idx.Update(chunkID, upd.Embedding); err != nil {
			return nil, store.WrapError("UpdateChunk", err)
		}
		chunk.Embedding = append([]float32(nil), upd.Embedding...)
	}
	if upd.Text != nil {
		chunk.Text = *upd.Text
	}
	if upd.Metadata != nil {
		chunk.Metadata = upd.Metadata
	}
	chunk.UpdatedAt = time.Now().UTC()
	e.noteWrite()
	e.emit("chunk", "updated", chunk.ID)
	return chunk.Clone(), nil
}

// DeleteChunk removes a chunk from the store, detaches it from its
// document and forwards the delete to the index.
func (e *Engine) DeleteChunk(libraryID, documentID, chunkID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.scopedChunk(libraryID, documentID, chunkID); err != nil {
		return store.WrapError("DeleteChunk", err)
	}
	idx, err := e.libraryIndex(libraryID)
	if err != nil {
		return store.WrapError("DeleteChunk", err)
	}
	if err := e.store.DeleteChunk(chunkID); err != nil {
		return store.WrapError("DeleteChunk", err)
	}
	_ = idx.Delete(chunkID)
	e.noteWrite()
	e.emit("chunk", "deleted", chunkID)
	return nil
}

// scopedChunk resolves a chunk and checks the full ownership chain.
func (e *Engine) scopedChunk(libraryID, documentID, chunkID string) (*store.Chunk, error) {
	if _, err := e.scopedDocument(libraryID, documentID); err != nil {
		return nil, err
	}
	chunk, err := e.store.GetChunk(chunkID)
	if err != nil {
		return nil, err
	}
	if chunk.DocumentID != documentID {
		return nil, fmt.Errorf("chunk %s not in document %s: %w", chunkID, documentID, store.ErrNotFound)
	}
	return chunk, nil
}
