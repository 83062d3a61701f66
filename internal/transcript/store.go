// Package transcript keeps a durable, best-effort record of every dialog turn
// in Postgres. Redis session state expires; the transcript does not.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/carelane/clinic-concierge/pkg/logging"
)

// Turn is one persisted message of a session transcript.
type Turn struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store writes transcripts through database/sql. A nil store is a valid no-op,
// so callers never branch on whether transcripts are enabled.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewStore(db *sql.DB, logger *logging.Logger) *Store {
	if db == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("concierge.internal.transcript"),
		now:    time.Now,
	}
}

// RecordTurn appends one turn. Failures are logged and swallowed: transcript
// persistence must never fail a user-facing turn.
func (s *Store) RecordTurn(ctx context.Context, sessionID, role, content string) {
	if s == nil || s.db == nil || sessionID == "" {
		return
	}
	ctx, span := s.tracer.Start(ctx, "transcript.record_turn")
	defer span.End()

	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript_sessions (id, session_id, started_at, last_turn_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (session_id) DO UPDATE SET last_turn_at = EXCLUDED.last_turn_at`,
		uuid.New(), sessionID, now,
	)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("transcript session upsert failed", "session_id", sessionID, "error", err)
		return
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcript_turns (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), sessionID, role, content, now,
	)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("transcript turn insert failed", "session_id", sessionID, "error", err)
	}
}

// Turns returns a session's transcript in chronological order.
func (s *Store) Turns(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM transcript_turns
		WHERE session_id = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("transcript: query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: iterate turns: %w", err)
	}
	return turns, nil
}
