package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gophertribe/voxnote/pkg/db"
	"github.com/gophertribe/voxnote/pkg/notes"
	"github.com/gophertribe/voxnote/pkg/session"
)

// Handler holds dependencies for API handlers
type Handler struct {
	Sessions  *session.Manager
	Processor *session.Processor
	Repo      *db.Repository
	Caps      Capabilities
}

// Capabilities reports which optional integrations the server was started
// with. Surfaced on /health so clients can tell a misconfigured deployment
// from a broken one.
type Capabilities struct {
	Transcription bool `json:"transcription"`
	Extraction    bool `json:"extraction"`
	S3            bool `json:"s3"`
	Calendar      bool `json:"calendar"`
	Git           bool `json:"git"`
}

// ProcessRequest is the payload for both processing endpoints. AudioData
// carries either base64-encoded bytes or an http(s) URL to fetch from.
type ProcessRequest struct {
	AudioData       string            `json:"audioData"`
	MimeType        string            `json:"mimeType"`
	SessionID       string            `json:"sessionId,omitempty"`
	PreviousState   *notes.Extraction `json:"previousState,omitempty"`
	CurrentMarkdown string            `json:"currentMarkdown,omitempty"`
}

type storageInfo struct {
	NoteID      string `json:"note_id"`
	StorageURL  string `json:"storage_url"`
	StorageType string `json:"storage_type"`
	CreatedAt   string `json:"created_at"`
	Format      string `json:"format,omitempty"`
}

type debugInfo struct {
	RequestID    string  `json:"requestId"`
	UsedFallback bool    `json:"usedFallback"`
	Confidence   float64 `json:"confidence"`
	Duration     float64 `json:"duration"`
}

type processResponse struct {
	Success       bool          `json:"success"`
	Transcript    string        `json:"transcript"`
	Tasks         []notes.Task  `json:"tasks,omitempty"`
	Events        []notes.Event `json:"events,omitempty"`
	Notes         []notes.Note  `json:"notes,omitempty"`
	Markdown      string        `json:"markdown,omitempty"`
	StorageInfo   storageInfo   `json:"storageInfo"`
	CalendarLinks []string      `json:"calendarLinks,omitempty"`
	Debug         debugInfo     `json:"_debug"`
}

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// HandleProcessAudio handles POST /process-audio (structured mode).
func (h *Handler) HandleProcessAudio(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	audio, err := decodeAudio(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	sess, ok := h.resolveSession(w, req.SessionID, session.ModeStructured)
	if !ok {
		return
	}

	out, err := h.Processor.ProcessStructured(r.Context(), sess, audio, req.PreviousState)
	if err != nil {
		writeProcessError(w, out, err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Success:       true,
		Transcript:    out.Transcript,
		Tasks:         out.Extraction.Tasks,
		Events:        out.Extraction.Events,
		Notes:         out.Extraction.Notes,
		StorageInfo:   storageInfoFrom(out, "json"),
		CalendarLinks: out.CalendarLinks,
		Debug:         debugFrom(out),
	})
}

// HandleProcessAudioMarkdown handles POST /process-audio-markdown (document mode).
func (h *Handler) HandleProcessAudioMarkdown(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	audio, err := decodeAudio(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	sess, ok := h.resolveSession(w, req.SessionID, session.ModeDocument)
	if !ok {
		return
	}

	out, err := h.Processor.ProcessDocument(r.Context(), sess, audio, req.CurrentMarkdown)
	if err != nil {
		writeProcessError(w, out, err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Success:     true,
		Transcript:  out.Transcript,
		Markdown:    out.Markdown,
		StorageInfo: storageInfoFrom(out, "markdown"),
		Debug:       debugFrom(out),
	})
}

// CreateSessionRequest is the payload for creating a session.
type CreateSessionRequest struct {
	Mode string `json:"mode"`
}

// HandleCreateSession handles POST /sessions
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	mode := session.ModeStructured
	switch req.Mode {
	case "", string(session.ModeStructured):
	case string(session.ModeDocument):
		mode = session.ModeDocument
	default:
		writeError(w, http.StatusBadRequest, "unknown mode: "+req.Mode, "")
		return
	}

	sess := h.Sessions.Create(mode)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// HandleGetSession handles GET /sessions/{id}
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Sessions.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// HandleResetSession handles POST /sessions/{id}/reset
func (h *Handler) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Sessions.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// HandleListNotes handles GET /notes
func (h *Handler) HandleListNotes(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notes": []db.NoteLog{}})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit", "")
			return
		}
		limit = n
	}

	list, err := h.Repo.ListRecentNotes(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list})
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"capabilities": h.Caps,
	})
}

// resolveSession looks up the request's session, if any. Stateless requests
// (no sessionId) run the pipeline without one.
func (h *Handler) resolveSession(w http.ResponseWriter, id string, mode session.Mode) (*session.Session, bool) {
	if id == "" {
		return nil, true
	}
	sess, ok := h.Sessions.Get(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	if sess.Mode() != mode {
		writeError(w, http.StatusConflict, "session mode does not match endpoint", "")
		return nil, false
	}
	return sess, true
}

func decodeAudio(req ProcessRequest) (session.Audio, error) {
	audio := session.Audio{MimeType: req.MimeType}
	if req.AudioData == "" {
		return audio, nil
	}
	if strings.HasPrefix(req.AudioData, "http://") || strings.HasPrefix(req.AudioData, "https://") {
		audio.URL = req.AudioData
		return audio, nil
	}
	data, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		return session.Audio{}, errors.New("audioData is neither a URL nor valid base64")
	}
	audio.Data = data
	return audio, nil
}

func storageInfoFrom(out *session.Outcome, format string) storageInfo {
	return storageInfo{
		NoteID:      out.Storage.NoteID,
		StorageURL:  out.Storage.StorageURL,
		StorageType: out.Storage.StorageType,
		CreatedAt:   out.Storage.CreatedAt,
		Format:      format,
	}
}

func debugFrom(out *session.Outcome) debugInfo {
	return debugInfo{
		RequestID:    out.RequestID,
		UsedFallback: out.UsedFallback,
		Confidence:   out.Confidence,
		Duration:     out.AudioDuration,
	}
}

func writeProcessError(w http.ResponseWriter, out *session.Outcome, err error) {
	reqID := ""
	if out != nil {
		reqID = out.RequestID
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoAudio):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrBusy):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error(), reqID)
}

func writeError(w http.ResponseWriter, status int, msg, reqID string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
