package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carelane/clinic-concierge/internal/conversation"
	"github.com/carelane/clinic-concierge/internal/transcript"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

// AdminHandler serves the ops console: live session overview and durable
// transcripts. Routes are mounted behind the admin JWT middleware.
type AdminHandler struct {
	sessions    *conversation.SessionStore
	transcripts *transcript.Store
	logger      *logging.Logger
}

func NewAdminHandler(sessions *conversation.SessionStore, transcripts *transcript.Store, logger *logging.Logger) *AdminHandler {
	if sessions == nil {
		panic("handlers: session store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{sessions: sessions, transcripts: transcripts, logger: logger}
}

type sessionListResponse struct {
	Sessions []conversation.SessionSummary `json:"sessions"`
	Total    int                           `json:"total"`
}

// ListSessions returns a summary of every live session.
func (h *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.sessions.ActiveSessions(r.Context())
	if err != nil {
		h.logger.Error("session scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	if summaries == nil {
		summaries = []conversation.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessionListResponse{Sessions: summaries, Total: len(summaries)})
}

type transcriptResponse struct {
	SessionID string            `json:"session_id"`
	Turns     []transcript.Turn `json:"turns"`
}

// GetTranscript returns the durable transcript for one session, whether or
// not the Redis session is still alive.
func (h *AdminHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	if h.transcripts == nil {
		writeError(w, http.StatusNotFound, "transcripts not enabled")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	turns, err := h.transcripts.Turns(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("transcript query failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "transcript store unavailable")
		return
	}
	if turns == nil {
		turns = []transcript.Turn{}
	}
	writeJSON(w, http.StatusOK, transcriptResponse{SessionID: sessionID, Turns: turns})
}
