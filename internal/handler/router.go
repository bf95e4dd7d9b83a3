package handler

import (
	"net/http"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// System endpoints
	mux.HandleFunc("/health", h.HandleHealthCheck)

	// API endpoints
	mux.HandleFunc("/api/getattr", h.HandleGetAttr)
	mux.HandleFunc("/api/readdir", h.HandleReadDir)
	mux.HandleFunc("/api/open", h.HandleOpen)
	mux.HandleFunc("/api/read", h.HandleRead)
	mux.HandleFunc("/api/write", h.HandleWrite)
	mux.HandleFunc("/api/create", h.HandleCreate)
	mux.HandleFunc("/api/unlink", h.HandleUnlink)
	mux.HandleFunc("/api/truncate", h.HandleTruncate)
}
