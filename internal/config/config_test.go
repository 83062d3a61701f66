package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BEDROCK_MODEL_ID", "")
	t.Setenv("SESSION_TTL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected default session TTL, got %s", cfg.SessionTTL)
	}
	if cfg.SessionSweepInterval != 5*time.Minute {
		t.Fatalf("expected default sweep interval, got %s", cfg.SessionSweepInterval)
	}
	if cfg.LLMMaxAttempts != 2 {
		t.Fatalf("expected default llm attempts, got %d", cfg.LLMMaxAttempts)
	}
	if cfg.EmailProvider != "none" {
		t.Fatalf("expected email provider none, got %s", cfg.EmailProvider)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no default CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("LLM_PROVIDER", "Bedrock ")
	t.Setenv("LLM_RETRY_MULTIPLIER", "1.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.Port)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("expected session TTL override, got %s", cfg.SessionTTL)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMRetryMultiplier != 1.5 {
		t.Fatalf("expected multiplier override, got %v", cfg.LLMRetryMultiplier)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected parsed CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidNumericFallsBack(t *testing.T) {
	t.Setenv("LLM_MAX_ATTEMPTS", "lots")
	t.Setenv("LLM_RETRY_BASE_DELAY", "soon")
	cfg := Load()
	if cfg.LLMMaxAttempts != 2 {
		t.Fatalf("expected fallback attempts, got %d", cfg.LLMMaxAttempts)
	}
	if cfg.LLMRetryBaseDelay != 250*time.Millisecond {
		t.Fatalf("expected fallback delay, got %s", cfg.LLMRetryBaseDelay)
	}
}
