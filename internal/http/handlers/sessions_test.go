package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelane/clinic-concierge/internal/conversation"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

func newSessionStore(t *testing.T) *conversation.SessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return conversation.NewSessionStore(rdb, 30*time.Minute, logging.Default(), nil)
}

func sessionRouter(h *SessionHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/conversation/sessions/{sessionID}", h.GetSession)
	r.Delete("/v1/conversation/sessions/{sessionID}", h.DeleteSession)
	return r
}

func TestGetSession(t *testing.T) {
	store := newSessionStore(t)
	state := conversation.NewConversationState("sess-1", time.Now().UTC())
	state.Phase = conversation.PhaseShowingSlots
	require.NoError(t, store.Save(context.Background(), state))

	r := sessionRouter(NewSessionHandler(store, logging.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/conversation/sessions/sess-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"showing_slots"`)
}

func TestGetSessionNotFound(t *testing.T) {
	r := sessionRouter(NewSessionHandler(newSessionStore(t), logging.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/conversation/sessions/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	store := newSessionStore(t)
	state := conversation.NewConversationState("sess-2", time.Now().UTC())
	require.NoError(t, store.Save(context.Background(), state))

	r := sessionRouter(NewSessionHandler(store, logging.Default()))

	req := httptest.NewRequest(http.MethodDelete, "/v1/conversation/sessions/sess-2", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	loaded, err := store.Load(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
