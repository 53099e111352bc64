package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectra/internal/store"
)

func testState(t *testing.T) (*State, *store.Store) {
	t.Helper()
	s := store.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	lib := &store.Library{
		ID:          store.NewID(),
		Name:        "lib",
		DocumentIDs: []string{},
		Metadata:    map[string]any{"env": "test"},
		IndexKind:   store.KindIVF,
		IndexConfig: map[string]any{"metric": "cosine", "nlist": float64(4)},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateLibrary(lib))

	doc := &store.Document{
		ID: store.NewID(), LibraryID: lib.ID, Name: "doc",
		ChunkIDs: []string{}, Metadata: map[string]any{}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateDocument(doc))

	for i := 0; i < 3; i++ {
		chunk := &store.Chunk{
			ID: store.NewID(), DocumentID: doc.ID, Text: "text",
			Embedding: []float32{float32(i), 1}, Metadata: map[string]any{"i": float64(i)},
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, s.CreateChunk(chunk))
	}
	return Capture(s), s
}

func TestCaptureApplyRoundTrip(t *testing.T) {
	state, _ := testState(t)
	assert.Equal(t, FormatVersion, state.Version)
	assert.Len(t, state.Libraries, 1)
	assert.Len(t, state.Documents, 1)
	assert.Len(t, state.Chunks, 3)

	restored := store.New()
	require.NoError(t, Apply(state, restored))
	libs, docs, chunks := restored.Counts()
	assert.Equal(t, 1, libs)
	assert.Equal(t, 1, docs)
	assert.Equal(t, 3, chunks)

	got, err := restored.ChunksByLibrary(state.Libraries[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, chunk := range got {
		assert.Equal(t, state.Chunks[i].ID, chunk.ID)
	}
}

func TestApplyRejectsNewerFormat(t *testing.T) {
	state, _ := testState(t)
	state.Version = FormatVersion + 1
	err := Apply(state, store.New())
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend := NewFile(dir)
	defer backend.Close()
	ctx := context.Background()

	_, err := backend.Load(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	state, _ := testState(t)
	require.NoError(t, backend.Save(ctx, state))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Version, loaded.Version)
	assert.Len(t, loaded.Chunks, 3)
	assert.Equal(t, state.Libraries[0].IndexKind, loaded.Libraries[0].IndexKind)

	// No temp files may linger after a save.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SnapshotFileName, entries[0].Name())
}

func TestFileBackendOverwrites(t *testing.T) {
	dir := t.TempDir()
	backend := NewFile(dir)
	defer backend.Close()
	ctx := context.Background()

	first, _ := testState(t)
	require.NoError(t, backend.Save(ctx, first))

	second, _ := testState(t)
	second.Chunks = second.Chunks[:1]
	require.NoError(t, backend.Save(ctx, second))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Chunks, 1)
}

func TestFileBackendRejectsCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	backend := NewFile(dir)
	defer backend.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFileName), []byte("{not json"), 0o644))
	_, err := backend.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewSQLite(dir)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	_, err = backend.Load(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	state, _ := testState(t)
	require.NoError(t, backend.Save(ctx, state))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Libraries, 1)
	assert.Len(t, loaded.Chunks, 3)

	// Saves replace the single snapshot row.
	state.Chunks = state.Chunks[:2]
	require.NoError(t, backend.Save(ctx, state))
	loaded, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Chunks, 2)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(BackendFile, dir)
	require.NoError(t, err)
	_, ok := b.(*File)
	assert.True(t, ok)
	b.Close()

	b, err = Open(BackendSQLite, dir)
	require.NoError(t, err)
	_, ok = b.(*SQLite)
	assert.True(t, ok)
	b.Close()

	_, err = Open("tape", dir)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}
