package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"vectra/internal/store"
)

// SnapshotFileName is the predictable snapshot name inside the directory.
const SnapshotFileName = "snapshot.json"

// File is a snapshot backend writing a single human-readable JSON document.
// Writes are atomic: serialize to a temp file in the target directory,
// fsync, then rename over the final path.
type File struct {
	dir string
}

// NewFile creates a file backend rooted at dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// Path returns the snapshot file location.
func (f *File) Path() string {
	return filepath.Join(f.dir, SnapshotFileName)
}

// Save implements Backend.
func (f *File) Save(ctx context.Context, state *State) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, SnapshotFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.Path()); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Load implements Backend.
func (f *File) Load(ctx context.Context) (*State, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", f.Path(), store.ErrNotFound)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &state, nil
}

// Close implements Backend; a no-op for the file backend.
func (f *File) Close() error { return nil }
