package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carelane/clinic-concierge/internal/conversation"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

// SessionHandler lets a client peek at or abandon its own session.
type SessionHandler struct {
	store  *conversation.SessionStore
	logger *logging.Logger
}

func NewSessionHandler(store *conversation.SessionStore, logger *logging.Logger) *SessionHandler {
	if store == nil {
		panic("handlers: session store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionHandler{store: store, logger: logger}
}

// GetSession returns the live state for a session id, 404 when expired or
// unknown.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	state, err := h.store.Load(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("session load failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// DeleteSession drops a session outright.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.store.Delete(r.Context(), sessionID); err != nil {
		h.logger.Error("session delete failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
