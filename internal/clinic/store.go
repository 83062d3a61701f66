package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DBTX is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in tests.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SettingsStore loads the clinic's appointment settings from Postgres.
type SettingsStore struct {
	db     DBTX
	tracer trace.Tracer
}

func NewSettingsStore(db DBTX) *SettingsStore {
	if db == nil {
		panic("clinic: db is required")
	}
	return &SettingsStore{
		db:     db,
		tracer: otel.Tracer("concierge.internal.clinic"),
	}
}

// Settings returns the validated settings row. A missing row is
// ErrNotConfigured, never a silent default.
func (s *SettingsStore) Settings(ctx context.Context) (*Settings, error) {
	ctx, span := s.tracer.Start(ctx, "clinic.load_settings")
	defer span.End()

	var (
		settings      Settings
		candidateJSON []byte
		typesJSON     []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT working_start, working_end, break_start, break_end,
		       slot_duration_minutes, candidate_slots, appointment_types,
		       max_per_day, advance_days
		FROM clinic_settings
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(
		&settings.WorkingStart, &settings.WorkingEnd,
		&settings.BreakStart, &settings.BreakEnd,
		&settings.SlotDurationMin, &candidateJSON, &typesJSON,
		&settings.MaxPerDay, &settings.AdvanceDays,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("clinic: failed to load settings: %w", err)
	}

	if err := json.Unmarshal(candidateJSON, &settings.CandidateSlots); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("clinic: malformed candidate_slots: %w", err)
	}
	if err := json.Unmarshal(typesJSON, &settings.AppointmentTypes); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("clinic: malformed appointment_types: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}
