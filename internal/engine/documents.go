package engine

import (
	"fmt"
	"time"

	"vectra/internal/store"
)

// CreateDocument creates a document under a library.
func (e *Engine) CreateDocument(libraryID, name string, metadata map[string]any) (*store.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateName(name); err != nil {
		return nil, store.WrapError("CreateDocument", err)
	}
	if _, err := e.store.GetLibrary(libraryID); err != nil {
		return nil, store.WrapError("CreateDocument", err)
	}

	now := time.Now().UTC()
	doc := &store.Document{
		ID:        store.NewID(),
		LibraryID: libraryID,
		Name:      name,
		ChunkIDs:  []string{},
		Metadata:  orEmpty(metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateDocument(doc); err != nil {
		return nil, store.WrapError("CreateDocument", err)
	}
	e.noteWrite()
	e.emit("document", "created", doc.ID)
	return doc.Clone(), nil
}

// DocumentSpec describes one document in a batch create.
type DocumentSpec struct {
	Name     string
	Metadata map[string]any
}

// CreateDocumentsBatch creates documents all-or-nothing: if any spec fails
// validation, no document is created.
func (e *Engine) CreateDocumentsBatch(libraryID string, specs []DocumentSpec) ([]*store.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.GetLibrary(libraryID); err != nil {
		return nil, store.WrapError("CreateDocumentsBatch", err)
	}
	for _, spec := range specs {
		if err := validateName(spec.Name); err != nil {
			return nil, store.WrapError("CreateDocumentsBatch", err)
		}
	}

	now := time.Now().UTC()
	docs := make([]*store.Document, len(specs))
	for i, spec := range specs {
		docs[i] = &store.Document{
			ID:        store.NewID(),
			LibraryID: libraryID,
			Name:      spec.Name,
			ChunkIDs:  []string{},
			Metadata:  orEmpty(spec.Metadata),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if err := e.store.CreateDocumentsBatch(docs); err != nil {
		return nil, store.WrapError("CreateDocumentsBatch", err)
	}
	out := make([]*store.Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
		e.emit("document", "created", doc.ID)
	}
	e.noteWrite()
	return out, nil
}

// GetDocument returns a document scoped to its library.
func (e *Engine) GetDocument(libraryID, documentID string) (*store.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, err := e.scopedDocument(libraryID, documentID)
	if err != nil {
		return nil, store.WrapError("GetDocument", err)
	}
	return doc.Clone(), nil
}

// ListDocuments returns a library's documents in insertion order.
func (e *Engine) ListDocuments(libraryID string) ([]*store.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	docs, err := e.store.ListDocumentsByLibrary(libraryID)
	if err != nil {
		return nil, store.WrapError("ListDocuments", err)
	}
	out := make([]*store.Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
	}
	return out, nil
}

// DocumentUpdate carries the fields of a partial document update.
type DocumentUpdate struct {
	Name     *string
	Metadata map[string]any
}

// UpdateDocument applies a partial update.
func (e *Engine) UpdateDocument(libraryID, documentID string, upd DocumentUpdate) (*store.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.scopedDocument(libraryID, documentID)
	if err != nil {
		return nil, store.WrapError("UpdateDocument", err)
	}
	if upd.Name != nil {
		if err := validateName(*upd.Name); err != nil {
			return nil, store.WrapError("UpdateDocument", err)
		}
		doc.Name = *upd.Name
	}
	if upd.Metadata != nil {
		doc.Metadata = upd.Metadata
	}
	doc.UpdatedAt = time.Now().UTC()
	e.noteWrite()
	e.emit("document", "updated", doc.ID)
	return doc.Clone(), nil
}

// DeleteDocument removes a document and its chunks, forwarding the chunk
// deletions to the library's index.
func (e *Engine) DeleteDocument(libraryID, documentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.scopedDocument(libraryID, documentID); err != nil {
		return store.WrapError("DeleteDocument", err)
	}
	idx, err := e.libraryIndex(libraryID)
	if err != nil {
		return store.WrapError("DeleteDocument", err)
	}
	removed, err := e.store.DeleteDocument(documentID)
	if err != nil {
		return store.WrapError("DeleteDocument", err)
	}
	for _, chunkID := range removed {
		// An index delete error is ignored; the store removal stands.
		_ = idx.Delete(chunkID)
	}
	e.noteWrite()
	e.emit("document", "deleted", documentID)
	return nil
}

// scopedDocument resolves a document and checks it belongs to the library.
func (e *Engine) scopedDocument(libraryID, documentID string) (*store.Document, error) {
	if _, err := e.store.GetLibrary(libraryID); err != nil {
		return nil, err
	}
	doc, err := e.store.GetDocument(documentID)
	if err != nil {
		return nil, err
	}
	if doc.LibraryID != libraryID {
		return nil, fmt.Errorf("document %s not in library %s: %w", documentID, libraryID, store.ErrNotFound)
	}
	return doc, nil
}
