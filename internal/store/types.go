package store

import (
	"time"

	"github.com/google/uuid"
)

// IndexKind identifies the vector index implementation backing a library.
type IndexKind string

const (
	// KindFlat is an exhaustive exact-search index.
	KindFlat IndexKind = "flat"
	// KindIVF is an inverted-file index with k-means clustered partitions.
	KindIVF IndexKind = "ivf"
	// KindHNSW is reserved; creating a library with it is rejected.
	KindHNSW IndexKind = "hnsw"
)

// Library is a logical collection of documents with an associated index.
type Library struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DocumentIDs []string       `json:"document_ids"`
	Metadata    map[string]any `json:"metadata"`
	IndexKind   IndexKind      `json:"index_type"`
	IndexConfig map[string]any `json:"index_config"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Document groups chunks under a library.
type Document struct {
	ID        string         `json:"id"`
	LibraryID string         `json:"library_id"`
	Name      string         `json:"name"`
	ChunkIDs  []string       `json:"chunk_ids"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Chunk is the searchable unit: a piece of text with its embedding.
type Chunk struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Embedding  []float32      `json:"embedding"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewID returns a fresh globally unique entity identifier.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a copy safe to hand outside the engine lock. Child id
// lists are copied; metadata maps are shallow-copied (values are treated
// as immutable once stored).
func (l *Library) Clone() *Library {
	out := *l
	out.DocumentIDs = append([]string(nil), l.DocumentIDs...)
	out.Metadata = cloneMeta(l.Metadata)
	out.IndexConfig = cloneMeta(l.IndexConfig)
	return &out
}

// Clone returns a copy safe to hand outside the engine lock.
func (d *Document) Clone() *Document {
	out := *d
	out.ChunkIDs = append([]string(nil), d.ChunkIDs...)
	out.Metadata = cloneMeta(d.Metadata)
	return &out
}

// Clone returns a copy safe to hand outside the engine lock.
func (c *Chunk) Clone() *Chunk {
	out := *c
	out.Embedding = append([]float32(nil), c.Embedding...)
	out.Metadata = cloneMeta(c.Metadata)
	return &out
}

func cloneMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
