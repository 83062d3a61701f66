package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelane/clinic-concierge/internal/conversation"
	"github.com/carelane/clinic-concierge/internal/http/handlers"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

const testAdminSecret = "router-test-secret"

type echoEngine struct{}

func (echoEngine) ProcessMessage(_ context.Context, req conversation.Request) (*conversation.Response, error) {
	return &conversation.Response{
		SessionID: req.SessionID,
		Message:   "Hello! What day would you like to come in?",
		Phase:     conversation.PhaseGreeting,
	}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *conversation.SessionStore) {
	t.Helper()

	logger := logging.Default()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := conversation.NewSessionStore(rdb, 30*time.Minute, logger, nil)

	cfg := &Config{
		Logger:          logger,
		Chat:            handlers.NewChatHandler(echoEngine{}, logger),
		Sessions:        handlers.NewSessionHandler(store, logger),
		Admin:           handlers.NewAdminHandler(store, nil, logger),
		Health:          handlers.NewHealthHandler(nil),
		AdminAuthSecret: testAdminSecret,
	}
	return New(cfg), store
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops-admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testAdminSecret))
	require.NoError(t, err)
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterChatEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	body := `{"session_id":"sess-1","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/conversation/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp conversation.Response
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, conversation.PhaseGreeting, resp.Phase)
}

func TestRouterSessionLookup(t *testing.T) {
	r, store := newTestRouter(t)

	state := conversation.NewConversationState("sess-9", time.Now().UTC())
	require.NoError(t, store.Save(context.Background(), state))

	req := httptest.NewRequest(http.MethodGet, "/v1/conversation/sessions/sess-9", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/conversation/sessions/nope", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterAdminRequiresJWT(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/conversation/sessions", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/conversation/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterChatRateLimit(t *testing.T) {
	logger := logging.Default()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := conversation.NewSessionStore(rdb, 30*time.Minute, logger, nil)

	r := New(&Config{
		Logger:            logger,
		Chat:              handlers.NewChatHandler(echoEngine{}, logger),
		Sessions:          handlers.NewSessionHandler(store, logger),
		Health:            handlers.NewHealthHandler(nil),
		ChatRatePerSecond: 1,
		ChatBurst:         2,
	})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/conversation/messages", strings.NewReader(`{"message":"hi"}`))
		req.RemoteAddr = "203.0.113.7:1234"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}
