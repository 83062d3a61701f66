package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be within burst", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth immediate request should be rejected")
	}
	// A different client has its own bucket.
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients must not share the bucket")
	}
}

func TestRateLimiterPurgesIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	base := time.Now()
	rl.now = func() time.Time { return base }
	rl.Allow("1.2.3.4")

	rl.now = func() time.Time { return base.Add(staleAfter + purgeEvery + time.Minute) }
	rl.Allow("5.6.7.8")

	rl.mu.Lock()
	_, stale := rl.clients["1.2.3.4"]
	_, fresh := rl.clients["5.6.7.8"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("idle client should have been purged")
	}
	if !fresh {
		t.Fatal("active client should remain")
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	mw := RateLimit(0.001, 1)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/conversation/messages", nil)
	req.Header.Set("X-Real-Ip", "9.9.9.9")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", rec.Code)
	}
}
