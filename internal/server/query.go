package server

import (
	"net/http"

	"vectra/internal/filter"
)

// QueryRequest is the wire form of a k-nearest-neighbor search.
type QueryRequest struct {
	Embedding []float32             `json:"embedding"`
	K         int                   `json:"k,omitempty"`
	Filters   *filter.SearchFilters `json:"filters,omitempty"`
}

const defaultK = 10

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Embedding) == 0 {
		writeJSONError(w, http.StatusBadRequest, "embedding is required")
		return
	}
	if req.K == 0 {
		req.K = defaultK
	}
	resp, err := s.engine.Query(r.PathValue("libraryID"), req.Embedding, req.K, req.Filters, nil)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
