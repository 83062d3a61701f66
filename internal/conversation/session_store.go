package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/carelane/clinic-concierge/internal/observability/metrics"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

const sessionKeyPrefix = "concierge:session:"

// SessionStore persists ConversationState in Redis with a sliding TTL.
// Every save refreshes the TTL; Load additionally enforces inactivity expiry
// itself so a stale session is discarded even if the Redis TTL lagged.
type SessionStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.ConversationMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration, logger *logging.Logger, m *metrics.ConversationMetrics) *SessionStore {
	if rdb == nil {
		panic("conversation: redis client is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionStore{
		rdb:     rdb,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("concierge.internal.conversation"),
		now:     time.Now,
	}
}

// TTL returns the configured inactivity window.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Load returns the session state, or nil when the session is absent, expired,
// or persisted under an incompatible schema version. Expired and incompatible
// sessions are deleted on read; the caller starts the dialog over.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*ConversationState, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session_load")
	defer span.End()

	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	var state ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("discarding undecodable session", "session_id", sessionID, "error", err)
		_ = s.rdb.Del(ctx, sessionKeyPrefix+sessionID).Err()
		return nil, nil
	}
	if state.SchemaVersion != StateSchemaVersion {
		s.logger.Info("discarding session with stale schema",
			"session_id", sessionID, "found_version", state.SchemaVersion)
		_ = s.rdb.Del(ctx, sessionKeyPrefix+sessionID).Err()
		return nil, nil
	}
	if s.now().Sub(state.LastActivity) > s.ttl {
		s.metrics.ObserveSessionExpired()
		_ = s.rdb.Del(ctx, sessionKeyPrefix+sessionID).Err()
		return nil, nil
	}
	return &state, nil
}

// Save persists the state and refreshes the TTL. Bumps the save counter.
func (s *SessionStore) Save(ctx context.Context, state *ConversationState) error {
	ctx, span := s.tracer.Start(ctx, "conversation.session_save")
	defer span.End()

	state.Version++
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("conversation: encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+state.SessionID, raw, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: save session: %w", err)
	}
	return nil
}

// Delete removes a session outright.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}

// SessionSummary is the admin view of one live session.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Phase        Phase     `json:"phase"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Turns        int       `json:"turns"`
	HasDraftDate bool      `json:"has_draft_date"`
}

// ActiveSessions scans live sessions for the admin console.
func (s *SessionStore) ActiveSessions(ctx context.Context) ([]SessionSummary, error) {
	var summaries []SessionSummary
	iter := s.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("conversation: scan sessions: %w", err)
		}
		var state ConversationState
		if err := json.Unmarshal(raw, &state); err != nil {
			continue
		}
		summaries = append(summaries, SessionSummary{
			SessionID:    state.SessionID,
			Phase:        state.Phase,
			CreatedAt:    state.CreatedAt,
			LastActivity: state.LastActivity,
			Turns:        len(state.RecentMessages),
			HasDraftDate: state.Draft.SelectedDate != "",
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("conversation: scan sessions: %w", err)
	}
	return summaries, nil
}

// Sweep deletes sessions whose inactivity exceeds the TTL. Redis TTLs handle
// the common case; the sweep covers keys written before a TTL change.
func (s *SessionStore) Sweep(ctx context.Context) (int, error) {
	removed := 0
	iter := s.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("conversation: sweep: %w", err)
		}
		var state ConversationState
		if err := json.Unmarshal(raw, &state); err != nil || s.now().Sub(state.LastActivity) > s.ttl {
			if delErr := s.rdb.Del(ctx, key).Err(); delErr == nil {
				removed++
				s.metrics.ObserveSessionExpired()
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("conversation: sweep: %w", err)
	}
	return removed, nil
}

// StartSweeper runs Sweep on an interval until ctx is cancelled.
func (s *SessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Sweep(ctx)
				if err != nil {
					s.logger.Warn("session sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					s.logger.Info("session sweep removed stale sessions", "count", removed)
				}
			}
		}
	}()
}
