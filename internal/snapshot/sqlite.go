package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"vectra/internal/store"
)

// SnapshotDBName is the sqlite database name inside the directory.
const SnapshotDBName = "snapshot.db"

// SQLite is a snapshot backend storing the versioned payload in a
// single-row table. SQLite's WAL journal gives the same no-partial-read
// guarantee the file backend gets from atomic rename.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the snapshot database under dir.
func NewSQLite(dir string) (*SQLite, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, SnapshotDBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			data BLOB NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	return nil
}

// Save implements Backend.
func (s *SQLite) Save(ctx context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshot (id, version, saved_at, data) VALUES (1, ?, ?, ?)",
		state.Version, state.SavedAt.Format("2006-01-02T15:04:05.999999999Z07:00"), data)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load implements Backend.
func (s *SQLite) Load(ctx context.Context) (*State, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshot WHERE id = 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot: %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &state, nil
}

// Close implements Backend.
func (s *SQLite) Close() error {
	return s.db.Close()
}
