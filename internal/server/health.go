package server

import (
	"net/http"

	"vectra/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.engine.Status()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "vectra",
		"version": version.Version,
		"storage": map[string]int{
			"libraries": status.Libraries,
			"documents": status.Documents,
			"chunks":    status.Chunks,
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.SaveSnapshot()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.RestoreSnapshot()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
