package api

import (
	"net/http"
)

// NewRouter creates a new HTTP router
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /process-audio", h.HandleProcessAudio)
	mux.HandleFunc("POST /process-audio-markdown", h.HandleProcessAudioMarkdown)
	mux.HandleFunc("POST /sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("POST /sessions/{id}/reset", h.HandleResetSession)
	mux.HandleFunc("GET /notes", h.HandleListNotes)
	mux.HandleFunc("GET /health", h.HandleHealth)

	return mux
}
