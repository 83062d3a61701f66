package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedAdminToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "ops-admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAdminJWTRejections(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
	}{
		{"no secret configured", "", "Bearer " + "anything"},
		{"missing header", "secret", ""},
		{"not a bearer token", "secret", "Basic abc"},
		{"wrong signing secret", "secret", "Bearer "},
		{"expired token", "secret", "Bearer "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			header := tc.header
			switch tc.name {
			case "wrong signing secret":
				header += signedAdminToken(t, "other-secret", 5*time.Minute)
			case "expired token":
				header += signedAdminToken(t, "secret", -5*time.Minute)
			}

			req := httptest.NewRequest(http.MethodGet, "/admin/conversation/sessions", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()

			AdminJWT(tc.secret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			})).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAdminJWTValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/conversation/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signedAdminToken(t, "secret", 5*time.Minute))
	rec := httptest.NewRecorder()

	called := false
	AdminJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := AdminClaimsFromContext(r.Context())
		if !ok || claims.Subject != "ops-admin" {
			t.Fatalf("expected admin claims in context, got %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected handler to run with 200, called=%v code=%d", called, rec.Code)
	}
}
