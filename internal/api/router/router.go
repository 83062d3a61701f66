// Package router assembles the HTTP surface: public chat and session
// endpoints, the JWT-guarded admin console, health, and metrics.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carelane/clinic-concierge/internal/http/handlers"
	httpmiddleware "github.com/carelane/clinic-concierge/internal/http/middleware"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

// Config holds the wired handlers and surface-level settings.
type Config struct {
	Logger   *logging.Logger
	Chat     *handlers.ChatHandler
	Sessions *handlers.SessionHandler
	Admin    *handlers.AdminHandler
	Health   *handlers.HealthHandler

	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// Chat endpoint rate limit, per client IP. Zero disables limiting.
	ChatRatePerSecond float64
	ChatBurst         int
}

// New builds the chi router.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Handle)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1/conversation", func(v1 chi.Router) {
		if cfg.Chat != nil {
			chat := v1.With()
			if cfg.ChatRatePerSecond > 0 {
				chat = v1.With(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatBurst))
			}
			chat.Post("/messages", cfg.Chat.HandleMessage)
		}
		if cfg.Sessions != nil {
			v1.Get("/sessions/{sessionID}", cfg.Sessions.GetSession)
			v1.Delete("/sessions/{sessionID}", cfg.Sessions.DeleteSession)
		}
	})

	if cfg.Admin != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/conversation/sessions", cfg.Admin.ListSessions)
			admin.Get("/conversation/sessions/{sessionID}/transcript", cfg.Admin.GetTranscript)
		})
	}

	return r
}
