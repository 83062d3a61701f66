package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carelane/clinic-concierge/cmd/mainconfig"
	"github.com/carelane/clinic-concierge/internal/api/router"
	"github.com/carelane/clinic-concierge/internal/booking"
	"github.com/carelane/clinic-concierge/internal/clinic"
	appconfig "github.com/carelane/clinic-concierge/internal/config"
	"github.com/carelane/clinic-concierge/internal/conversation"
	"github.com/carelane/clinic-concierge/internal/http/handlers"
	"github.com/carelane/clinic-concierge/internal/llm"
	"github.com/carelane/clinic-concierge/internal/nlu"
	"github.com/carelane/clinic-concierge/internal/notify"
	"github.com/carelane/clinic-concierge/internal/observability/metrics"
	"github.com/carelane/clinic-concierge/internal/transcript"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Separate database/sql handle for the transcript store.
	transcriptDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open transcript db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = transcriptDB.Close() }()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	registry := prometheus.NewRegistry()
	m := metrics.NewConversationMetrics(registry)

	llmClient, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}

	parser := nlu.NewParser(llmClient, logger)
	settings := clinic.NewSettingsStore(pool)
	repo := booking.NewRepository(pool)

	notifier := notify.NewService(buildEmailSender(ctx, cfg, logger), logger)
	gateway := booking.NewGateway(repo, notifier, logger, m)

	sessionStore := conversation.NewSessionStore(rdb, cfg.SessionTTL, logger, m)
	sessionStore.StartSweeper(ctx, cfg.SessionSweepInterval)

	transcripts := transcript.NewStore(transcriptDB, logger)

	engine := conversation.NewEngine(parser, gateway, settings, sessionStore, transcripts, logger, m)

	r := router.New(&router.Config{
		Logger:   logger,
		Chat:     handlers.NewChatHandler(engine, logger),
		Sessions: handlers.NewSessionHandler(sessionStore, logger),
		Admin:    handlers.NewAdminHandler(sessionStore, transcripts, logger),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  cfg.ChatRatePerSecond,
		ChatBurst:          cfg.ChatBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Let in-flight confirmation emails finish before the process exits.
	notifier.Flush()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildLLMClient assembles the provider chain. "auto" uses Gemini with a
// Bedrock fallback when both are configured; either provider alone works too.
// The result is always wrapped with the retry policy from config.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (llm.Client, error) {
	var gemini llm.Client
	if cfg.GeminiAPIKey != "" && cfg.LLMProvider != "bedrock" {
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		gemini = c
	}

	var bedrock llm.Client
	if cfg.BedrockModelID != "" && cfg.LLMProvider != "gemini" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		bedrock = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}

	var base llm.Client
	switch {
	case gemini != nil && bedrock != nil:
		base = llm.NewFallbackClient(gemini, bedrock, logger)
	case gemini != nil:
		base = gemini
	case bedrock != nil:
		base = bedrock
	default:
		return nil, fmt.Errorf("no LLM provider configured: set GEMINI_API_KEY or BEDROCK_MODEL_ID")
	}

	policy := llm.RetryPolicy{
		MaxAttempts:    cfg.LLMMaxAttempts,
		BaseDelay:      cfg.LLMRetryBaseDelay,
		Multiplier:     cfg.LLMRetryMultiplier,
		AttemptTimeout: cfg.LLMTimeout,
	}
	return llm.NewRetryingClient(base, policy, logger), nil
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("EMAIL_PROVIDER=sendgrid but SENDGRID_API_KEY is empty; emails disabled")
			return nil
		}
		return sender
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("aws config for SES failed; emails disabled", "error", err)
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "none", "":
		return nil
	default:
		logger.Warn("unknown EMAIL_PROVIDER; using stub sender", "provider", cfg.EmailProvider)
		return notify.NewStubEmailSender(logger)
	}
}
