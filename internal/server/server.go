// Package server is the HTTP adapter over the engine: resource-oriented
// REST endpoints, a WebSocket event stream and health/status reporting.
// It maps engine errors to status codes; the engine itself never speaks
// HTTP.
package server

import (
	"net/http"

	"vectra/internal/engine"
)

// Server wires the engine to HTTP handlers.
type Server struct {
	engine *engine.Engine
	events *Hub
}

// New creates an http.Server bound to addr, with the event hub attached to
// the engine's event sink.
func New(addr string, eng *engine.Engine) *http.Server {
	s := &Server{
		engine: eng,
		events: NewHub(eng),
	}
	eng.SetEventSink(s.events.Publish)
	go s.events.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /ws/events", s.handleEvents)

	mux.HandleFunc("POST /libraries", s.handleCreateLibrary)
	mux.HandleFunc("GET /libraries", s.handleListLibraries)
	mux.HandleFunc("GET /libraries/{libraryID}", s.handleGetLibrary)
	mux.HandleFunc("PATCH /libraries/{libraryID}", s.handleUpdateLibrary)
	mux.HandleFunc("DELETE /libraries/{libraryID}", s.handleDeleteLibrary)
	mux.HandleFunc("POST /libraries/{libraryID}/build-index", s.handleBuildIndex)
	mux.HandleFunc("POST /libraries/{libraryID}/query", s.handleQuery)

	mux.HandleFunc("POST /libraries/{libraryID}/documents", s.handleCreateDocument)
	mux.HandleFunc("POST /libraries/{libraryID}/documents/batch", s.handleCreateDocumentsBatch)
	mux.HandleFunc("GET /libraries/{libraryID}/documents", s.handleListDocuments)
	mux.HandleFunc("GET /libraries/{libraryID}/documents/{documentID}", s.handleGetDocument)
	mux.HandleFunc("PATCH /libraries/{libraryID}/documents/{documentID}", s.handleUpdateDocument)
	mux.HandleFunc("DELETE /libraries/{libraryID}/documents/{documentID}", s.handleDeleteDocument)

	mux.HandleFunc("POST /libraries/{libraryID}/documents/{documentID}/chunks", s.handleCreateChunk)
	mux.HandleFunc("POST /libraries/{libraryID}/documents/{documentID}/chunks/batch", s.handleCreateChunksBatch)
	mux.HandleFunc("GET /libraries/{libraryID}/documents/{documentID}/chunks", s.handleListChunks)
	mux.HandleFunc("GET /libraries/{libraryID}/documents/{documentID}/chunks/{chunkID}", s.handleGetChunk)
	mux.HandleFunc("PATCH /libraries/{libraryID}/documents/{documentID}/chunks/{chunkID}", s.handleUpdateChunk)
	mux.HandleFunc("DELETE /libraries/{libraryID}/documents/{documentID}/chunks/{chunkID}", s.handleDeleteChunk)

	mux.HandleFunc("POST /snapshot/save", s.handleSaveSnapshot)
	mux.HandleFunc("POST /snapshot/restore", s.handleRestoreSnapshot)

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
