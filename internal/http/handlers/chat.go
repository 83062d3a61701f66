package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelane/clinic-concierge/internal/conversation"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

const turnTimeout = 30 * time.Second

// Engine is the conversation engine surface the chat handler drives.
type Engine interface {
	ProcessMessage(ctx context.Context, req conversation.Request) (*conversation.Response, error)
}

// ChatHandler serves the conversational booking endpoint.
type ChatHandler struct {
	engine Engine
	logger *logging.Logger
}

func NewChatHandler(engine Engine, logger *logging.Logger) *ChatHandler {
	if engine == nil {
		panic("handlers: engine is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{engine: engine, logger: logger}
}

type chatRequest struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	PatientPhone string `json:"patient_phone"`
	UserID       string `json:"user_id"`
}

// HandleMessage processes one user turn. A missing session id starts a new
// session; the generated id comes back in the response.
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
	defer cancel()

	resp, err := h.engine.ProcessMessage(ctx, conversation.Request{
		SessionID:    req.SessionID,
		Message:      req.Message,
		PatientPhone: req.PatientPhone,
		UserID:       req.UserID,
	})
	if errors.Is(err, conversation.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("conversation turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "conversation unavailable")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
