package store

import (
	"errors"
	"testing"
	"time"
)

func newLibrary(name string) *Library {
	now := time.Now().UTC()
	return &Library{
		ID:          NewID(),
		Name:        name,
		DocumentIDs: []string{},
		Metadata:    map[string]any{},
		IndexKind:   KindFlat,
		IndexConfig: map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newDocument(libraryID, name string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        NewID(),
		LibraryID: libraryID,
		Name:      name,
		ChunkIDs:  []string{},
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newChunk(documentID string) *Chunk {
	now := time.Now().UTC()
	return &Chunk{
		ID:         NewID(),
		DocumentID: documentID,
		Text:       "text",
		Embedding:  []float32{1, 2, 3},
		Metadata:   map[string]any{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestHierarchyCreation(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	if err := s.CreateLibrary(lib); err != nil {
		t.Fatalf("CreateLibrary failed: %v", err)
	}

	doc := newDocument(lib.ID, "doc")
	if err := s.CreateDocument(doc); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if len(lib.DocumentIDs) != 1 || lib.DocumentIDs[0] != doc.ID {
		t.Errorf("library should list the document, got %v", lib.DocumentIDs)
	}

	chunk := newChunk(doc.ID)
	if err := s.CreateChunk(chunk); err != nil {
		t.Fatalf("CreateChunk failed: %v", err)
	}
	if len(doc.ChunkIDs) != 1 || doc.ChunkIDs[0] != chunk.ID {
		t.Errorf("document should list the chunk, got %v", doc.ChunkIDs)
	}

	libs, docs, chunks := s.Counts()
	if libs != 1 || docs != 1 || chunks != 1 {
		t.Errorf("unexpected counts: %d %d %d", libs, docs, chunks)
	}
}

func TestCreateRequiresParent(t *testing.T) {
	s := New()
	if err := s.CreateDocument(newDocument("missing", "doc")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for orphan document, got %v", err)
	}
	if err := s.CreateChunk(newChunk("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for orphan chunk, got %v", err)
	}
}

func TestDuplicateIDsConflict(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	s.CreateLibrary(lib)
	if err := s.CreateLibrary(lib); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestCascadeDeleteLibrary(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	s.CreateLibrary(lib)

	var chunkIDs, docIDs []string
	for i := 0; i < 2; i++ {
		doc := newDocument(lib.ID, "doc")
		s.CreateDocument(doc)
		docIDs = append(docIDs, doc.ID)
		for j := 0; j < 3; j++ {
			chunk := newChunk(doc.ID)
			s.CreateChunk(chunk)
			chunkIDs = append(chunkIDs, chunk.ID)
		}
	}

	if err := s.DeleteLibrary(lib.ID); err != nil {
		t.Fatalf("DeleteLibrary failed: %v", err)
	}
	if _, err := s.GetLibrary(lib.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("library should be gone, got %v", err)
	}
	for _, id := range docIDs {
		if _, err := s.GetDocument(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("document %s should be gone, got %v", id, err)
		}
	}
	for _, id := range chunkIDs {
		if _, err := s.GetChunk(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("chunk %s should be gone, got %v", id, err)
		}
	}

	libs, docs, chunks := s.Counts()
	if libs != 0 || docs != 0 || chunks != 0 {
		t.Errorf("expected empty store, got %d %d %d", libs, docs, chunks)
	}
}

func TestDeleteDocumentReturnsChunkIDs(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	s.CreateLibrary(lib)
	doc := newDocument(lib.ID, "doc")
	s.CreateDocument(doc)
	c1 := newChunk(doc.ID)
	c2 := newChunk(doc.ID)
	s.CreateChunk(c1)
	s.CreateChunk(c2)

	removed, err := s.DeleteDocument(doc.ID)
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed chunk ids, got %d", len(removed))
	}
	if removed[0] != c1.ID || removed[1] != c2.ID {
		t.Errorf("removed ids out of insertion order: %v", removed)
	}
	if len(lib.DocumentIDs) != 0 {
		t.Errorf("library should no longer list the document")
	}
}

func TestDeleteChunkDetachesFromDocument(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	s.CreateLibrary(lib)
	doc := newDocument(lib.ID, "doc")
	s.CreateDocument(doc)
	c1 := newChunk(doc.ID)
	c2 := newChunk(doc.ID)
	s.CreateChunk(c1)
	s.CreateChunk(c2)

	if err := s.DeleteChunk(c1.ID); err != nil {
		t.Fatalf("DeleteChunk failed: %v", err)
	}
	if len(doc.ChunkIDs) != 1 || doc.ChunkIDs[0] != c2.ID {
		t.Errorf("document chunk list not updated: %v", doc.ChunkIDs)
	}
}

func TestListOrderPreserved(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	s.CreateLibrary(lib)

	var want []string
	for i := 0; i < 5; i++ {
		doc := newDocument(lib.ID, "doc")
		s.CreateDocument(doc)
		want = append(want, doc.ID)
	}
	docs, err := s.ListDocumentsByLibrary(lib.ID)
	if err != nil {
		t.Fatalf("ListDocumentsByLibrary failed: %v", err)
	}
	for i, doc := range docs {
		if doc.ID != want[i] {
			t.Errorf("document %d out of order", i)
		}
	}
}

func TestChunksBatchFailFast(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	s.CreateLibrary(lib)
	doc := newDocument(lib.ID, "doc")
	s.CreateDocument(doc)

	good := newChunk(doc.ID)
	orphan := newChunk("missing-document")
	err := s.CreateChunksBatch([]*Chunk{good, orphan})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Nothing from the failed batch may be visible.
	if _, _, chunks := s.Counts(); chunks != 0 {
		t.Errorf("expected 0 chunks after failed batch, got %d", chunks)
	}
	if len(doc.ChunkIDs) != 0 {
		t.Errorf("document chunk list should be empty, got %v", doc.ChunkIDs)
	}
}

func TestChunksByLibraryWalksHierarchy(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	s.CreateLibrary(lib)
	var want []string
	for i := 0; i < 2; i++ {
		doc := newDocument(lib.ID, "doc")
		s.CreateDocument(doc)
		for j := 0; j < 2; j++ {
			chunk := newChunk(doc.ID)
			s.CreateChunk(chunk)
			want = append(want, chunk.ID)
		}
	}
	chunks, err := s.ChunksByLibrary(lib.ID)
	if err != nil {
		t.Fatalf("ChunksByLibrary failed: %v", err)
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.ID != want[i] {
			t.Errorf("chunk %d out of order", i)
		}
	}
}

func TestReplaceValidatesIntegrity(t *testing.T) {
	s := New()
	lib := newLibrary("lib")
	doc := newDocument(lib.ID, "doc")
	chunk := newChunk(doc.ID)
	lib.DocumentIDs = []string{doc.ID}
	doc.ChunkIDs = []string{chunk.ID}

	if err := s.Replace([]*Library{lib}, []*Document{doc}, []*Chunk{chunk}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if _, err := s.GetChunk(chunk.ID); err != nil {
		t.Errorf("chunk should be present after Replace: %v", err)
	}

	// Duplicate ids are a conflict; the store must stay untouched.
	err := s.Replace([]*Library{lib, lib}, nil, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := s.GetChunk(chunk.ID); err != nil {
		t.Errorf("failed Replace should not clear the store: %v", err)
	}

	// Dangling parent references are an internal inconsistency.
	orphan := newChunk("nope")
	if err := s.Replace([]*Library{lib}, []*Document{doc}, []*Chunk{orphan}); !errors.Is(err, ErrInternal) {
		t.Errorf("expected ErrInternal, got %v", err)
	}
}
