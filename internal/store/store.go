package store

import (
	"fmt"
	"sort"
)

// Store holds the three entity tables and enforces the containment
// hierarchy: every chunk belongs to a document, every document to a
// library, and parents carry insertion-ordered child id lists.
//
// Store is not safe for concurrent use. The engine owns a single mutex and
// acquires it for the full duration of every public operation; all Store
// methods assume that lock is held.
type Store struct {
	libraries map[string]*Library
	documents map[string]*Document
	chunks    map[string]*Chunk
}

// New creates an empty store.
func New() *Store {
	return &Store{
		libraries: make(map[string]*Library),
		documents: make(map[string]*Document),
		chunks:    make(map[string]*Chunk),
	}
}

// Replace rebuilds the tables verbatim from restored entities, validating
// id uniqueness and referential integrity first. On error the store is
// left untouched.
func (s *Store) Replace(libraries []*Library, documents []*Document, chunks []*Chunk) error {
	libs := make(map[string]*Library, len(libraries))
	docs := make(map[string]*Document, len(documents))
	chks := make(map[string]*Chunk, len(chunks))
	for _, lib := range libraries {
		if _, ok := libs[lib.ID]; ok {
			return fmt.Errorf("duplicate library %s: %w", lib.ID, ErrConflict)
		}
		libs[lib.ID] = lib
	}
	for _, doc := range documents {
		if _, ok := docs[doc.ID]; ok {
			return fmt.Errorf("duplicate document %s: %w", doc.ID, ErrConflict)
		}
		if _, ok := libs[doc.LibraryID]; !ok {
			return fmt.Errorf("document %s references missing library %s: %w", doc.ID, doc.LibraryID, ErrInternal)
		}
		docs[doc.ID] = doc
	}
	for _, chunk := range chunks {
		if _, ok := chks[chunk.ID]; ok {
			return fmt.Errorf("duplicate chunk %s: %w", chunk.ID, ErrConflict)
		}
		if _, ok := docs[chunk.DocumentID]; !ok {
			return fmt.Errorf("chunk %s references missing document %s: %w", chunk.ID, chunk.DocumentID, ErrInternal)
		}
		chks[chunk.ID] = chunk
	}
	s.libraries = libs
	s.documents = docs
	s.chunks = chks
	return nil
}

// Counts reports the number of entities per table.
func (s *Store) Counts() (libraries, documents, chunks int) {
	return len(s.libraries), len(s.documents), len(s.chunks)
}

// Clear drops all entities.
func (s *Store) Clear() {
	s.libraries = make(map[string]*Library)
	s.documents = make(map[string]*Document)
	s.chunks = make(map[string]*Chunk)
}

// CreateLibrary inserts a new library.
func (s *Store) CreateLibrary(lib *Library) error {
	if _, ok := s.libraries[lib.ID]; ok {
		return fmt.Errorf("library %s: %w", lib.ID, ErrConflict)
	}
	s.libraries[lib.ID] = lib
	return nil
}

// GetLibrary returns a library by id.
func (s *Store) GetLibrary(id string) (*Library, error) {
	lib, ok := s.libraries[id]
	if !ok {
		return nil, fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	return lib, nil
}

// ListLibraries returns all libraries ordered by creation time, then id.
func (s *Store) ListLibraries() []*Library {
	out := make([]*Library, 0, len(s.libraries))
	for _, lib := range s.libraries {
		out = append(out, lib)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DeleteLibrary removes a library and cascades to its documents and chunks.
func (s *Store) DeleteLibrary(id string) error {
	lib, ok := s.libraries[id]
	if !ok {
		return fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	for _, docID := range append([]string(nil), lib.DocumentIDs...) {
		// Ignore the removed chunk ids; the caller drops the whole index.
		_, _ = s.DeleteDocument(docID)
	}
	delete(s.libraries, id)
	return nil
}

// CreateDocument inserts a new document and records it on its library.
func (s *Store) CreateDocument(doc *Document) error {
	if _, ok := s.documents[doc.ID]; ok {
		return fmt.Errorf("document %s: %w", doc.ID, ErrConflict)
	}
	lib, ok := s.libraries[doc.LibraryID]
	if !ok {
		return fmt.Errorf("library %s: %w", doc.LibraryID, ErrNotFound)
	}
	s.documents[doc.ID] = doc
	lib.DocumentIDs = append(lib.DocumentIDs, doc.ID)
	return nil
}

// CreateDocumentsBatch inserts documents all-or-nothing: every document is
// validated before any table is touched.
func (s *Store) CreateDocumentsBatch(docs []*Document) error {
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if _, ok := s.documents[doc.ID]; ok || seen[doc.ID] {
			return fmt.Errorf("document %s: %w", doc.ID, ErrConflict)
		}
		seen[doc.ID] = true
		if _, ok := s.libraries[doc.LibraryID]; !ok {
			return fmt.Errorf("library %s: %w", doc.LibraryID, ErrNotFound)
		}
	}
	for _, doc := range docs {
		s.documents[doc.ID] = doc
		lib := s.libraries[doc.LibraryID]
		lib.DocumentIDs = append(lib.DocumentIDs, doc.ID)
	}
	return nil
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(id string) (*Document, error) {
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, nil
}

// ListDocumentsByLibrary returns a library's documents in insertion order.
func (s *Store) ListDocumentsByLibrary(libraryID string) ([]*Document, error) {
	lib, ok := s.libraries[libraryID]
	if !ok {
		return nil, fmt.Errorf("library %s: %w", libraryID, ErrNotFound)
	}
	out := make([]*Document, 0, len(lib.DocumentIDs))
	for _, docID := range lib.DocumentIDs {
		if doc, ok := s.documents[docID]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// DeleteDocument removes a document and its chunks, detaching it from the
// owning library. It returns the ids of the removed chunks so the caller
// can forward deletions to the library's index.
func (s *Store) DeleteDocument(id string) ([]string, error) {
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	removed := append([]string(nil), doc.ChunkIDs...)
	for _, chunkID := range removed {
		delete(s.chunks, chunkID)
	}
	if lib, ok := s.libraries[doc.LibraryID]; ok {
		lib.DocumentIDs = removeID(lib.DocumentIDs, id)
	}
	delete(s.documents, id)
	return removed, nil
}

// CreateChunk inserts a new chunk and records it on its document.
func (s *Store) CreateChunk(chunk *Chunk) error {
	if _, ok := s.chunks[chunk.ID]; ok {
		return fmt.Errorf("chunk %s: %w", chunk.ID, ErrConflict)
	}
	doc, ok := s.documents[chunk.DocumentID]
	if !ok {
		return fmt.Errorf("document %s: %w", chunk.DocumentID, ErrNotFound)
	}
	s.chunks[chunk.ID] = chunk
	doc.ChunkIDs = append(doc.ChunkIDs, chunk.ID)
	return nil
}

// CreateChunksBatch inserts chunks all-or-nothing: every chunk is validated
// before any table is touched.
func (s *Store) CreateChunksBatch(chunks []*Chunk) error {
	seen := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		if _, ok := s.chunks[chunk.ID]; ok || seen[chunk.ID] {
			return fmt.Errorf("chunk %s: %w", chunk.ID, ErrConflict)
		}
		seen[chunk.ID] = true
		if _, ok := s.documents[chunk.DocumentID]; !ok {
			return fmt.Errorf("document %s: %w", chunk.DocumentID, ErrNotFound)
		}
	}
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
		doc := s.documents[chunk.DocumentID]
		doc.ChunkIDs = append(doc.ChunkIDs, chunk.ID)
	}
	return nil
}

// GetChunk returns a chunk by id.
func (s *Store) GetChunk(id string) (*Chunk, error) {
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return chunk, nil
}

// ListChunksByDocument returns a document's chunks in insertion order.
func (s *Store) ListChunksByDocument(documentID string) ([]*Chunk, error) {
	doc, ok := s.documents[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	out := make([]*Chunk, 0, len(doc.ChunkIDs))
	for _, chunkID := range doc.ChunkIDs {
		if chunk, ok := s.chunks[chunkID]; ok {
			out = append(out, chunk)
		}
	}
	return out, nil
}

// DeleteChunk removes a chunk and detaches it from its document.
func (s *Store) DeleteChunk(id string) error {
	chunk, ok := s.chunks[id]
	if !ok {
		return fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	if doc, ok := s.documents[chunk.DocumentID]; ok {
		doc.ChunkIDs = removeID(doc.ChunkIDs, id)
	}
	delete(s.chunks, id)
	return nil
}

// ChunksByLibrary returns every chunk owned transitively by a library, in
// document order then chunk insertion order.
func (s *Store) ChunksByLibrary(libraryID string) ([]*Chunk, error) {
	lib, ok := s.libraries[libraryID]
	if !ok {
		return nil, fmt.Errorf("library %s: %w", libraryID, ErrNotFound)
	}
	var out []*Chunk
	for _, docID := range lib.DocumentIDs {
		doc, ok := s.documents[docID]
		if !ok {
			continue
		}
		for _, chunkID := range doc.ChunkIDs {
			if chunk, ok := s.chunks[chunkID]; ok {
				out = append(out, chunk)
			}
		}
	}
	return out, nil
}

// LibraryOf resolves the library owning a document.
func (s *Store) LibraryOf(documentID string) (*Library, error) {
	doc, ok := s.documents[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	return s.GetLibrary(doc.LibraryID)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
