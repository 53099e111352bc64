package server

import (
	"net/http"

	"vectra/internal/engine"
	"vectra/internal/store"
)

// CreateLibraryRequest is the wire form for creating a library.
type CreateLibraryRequest struct {
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IndexType   string         `json:"index_type,omitempty"`
	IndexConfig map[string]any `json:"index_config,omitempty"`
}

// UpdateLibraryRequest is the wire form for a partial library update.
type UpdateLibraryRequest struct {
	Name        *string        `json:"name,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IndexType   *string        `json:"index_type,omitempty"`
	IndexConfig map[string]any `json:"index_config,omitempty"`
}

func (s *Server) handleCreateLibrary(w http.ResponseWriter, r *http.Request) {
	var req CreateLibraryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lib, err := s.engine.CreateLibrary(req.Name, req.Metadata, store.IndexKind(req.IndexType), req.IndexConfig)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lib)
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ListLibraries())
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := s.engine.GetLibrary(r.PathValue("libraryID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

func (s *Server) handleUpdateLibrary(w http.ResponseWriter, r *http.Request) {
	var req UpdateLibraryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	upd := engine.LibraryUpdate{
		Name:        req.Name,
		Metadata:    req.Metadata,
		IndexConfig: req.IndexConfig,
	}
	if req.IndexType != nil {
		kind := store.IndexKind(*req.IndexType)
		upd.IndexKind = &kind
	}
	lib, err := s.engine.UpdateLibrary(r.PathValue("libraryID"), upd)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteLibrary(r.PathValue("libraryID")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleBuildIndex(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.RebuildIndex(r.PathValue("libraryID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if stats.TotalVectors == 0 {
		writeJSONError(w, http.StatusBadRequest, "library has no vectors to index")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
