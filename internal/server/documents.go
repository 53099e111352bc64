package server

import (
	"net/http"

	"vectra/internal/engine"
)

// CreateDocumentRequest is the wire form for creating a document.
type CreateDocumentRequest struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateDocumentsBatchRequest wraps an atomic multi-document create.
type CreateDocumentsBatchRequest struct {
	Documents []CreateDocumentRequest `json:"documents"`
}

// UpdateDocumentRequest is the wire form for a partial document update.
type UpdateDocumentRequest struct {
	Name     *string        `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := s.engine.CreateDocument(r.PathValue("libraryID"), req.Name, req.Metadata)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleCreateDocumentsBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentsBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	specs := make([]engine.DocumentSpec, len(req.Documents))
	for i, d := range req.Documents {
		specs[i] = engine.DocumentSpec{Name: d.Name, Metadata: d.Metadata}
	}
	docs, err := s.engine.CreateDocumentsBatch(r.PathValue("libraryID"), specs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.engine.ListDocuments(r.PathValue("libraryID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.engine.GetDocument(r.PathValue("libraryID"), r.PathValue("documentID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := s.engine.UpdateDocument(r.PathValue("libraryID"), r.PathValue("documentID"), engine.DocumentUpdate{
		Name:     req.Name,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteDocument(r.PathValue("libraryID"), r.PathValue("documentID")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
