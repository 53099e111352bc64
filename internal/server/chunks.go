package server

import (
	"net/http"

	"vectra/internal/engine"
)

// CreateChunkRequest is the wire form for creating a chunk.
type CreateChunkRequest struct {
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CreateChunksBatchRequest wraps an atomic multi-chunk create.
type CreateChunksBatchRequest struct {
	Chunks []CreateChunkRequest `json:"chunks"`
}

// UpdateChunkRequest is the wire form for a partial chunk update.
type UpdateChunkRequest struct {
	Text      *string        `json:"text,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleCreateChunk(w http.ResponseWriter, r *http.Request) {
	var req CreateChunkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	chunk, err := s.engine.CreateChunk(
		r.PathValue("libraryID"), r.PathValue("documentID"),
		req.Text, req.Embedding, req.Metadata)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chunk)
}

func (s *Server) handleCreateChunksBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateChunksBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	specs := make([]engine.ChunkSpec, len(req.Chunks))
	for i, c := range req.Chunks {
		specs[i] = engine.ChunkSpec{Text: c.Text, Embedding: c.Embedding, Metadata: c.Metadata}
	}
	chunks, err := s.engine.CreateChunksBatch(r.PathValue("libraryID"), r.PathValue("documentID"), specs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"chunks": chunks,
		"total":  len(chunks),
	})
}

func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.engine.ListChunks(r.PathValue("libraryID"), r.PathValue("documentID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chunks)
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.engine.GetChunk(
		r.PathValue("libraryID"), r.PathValue("documentID"), r.PathValue("chunkID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleUpdateChunk(w http.ResponseWriter, r *http.Request) {
	var req UpdateChunkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	chunk, err := s.engine.UpdateChunk(
		r.PathValue("libraryID"), r.PathValue("documentID"), r.PathValue("chunkID"),
		engine.ChunkUpdate{Text: req.Text, Embedding: req.Embedding, Metadata: req.Metadata})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleDeleteChunk(w http.ResponseWriter, r *http.Request) {
	err := s.engine.DeleteChunk(
		r.PathValue("libraryID"), r.PathValue("documentID"), r.PathValue("chunkID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
