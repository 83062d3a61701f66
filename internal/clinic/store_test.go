package clinic

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func settingsRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"working_start", "working_end", "break_start", "break_end",
		"slot_duration_minutes", "candidate_slots", "appointment_types",
		"max_per_day", "advance_days",
	})
}

func TestSettingsStoreLoads(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	candidates := []byte(`[{"time":"9:00 AM","active":true},{"time":"9:30 AM","active":false}]`)
	types := []byte(`["General Consultation","Routine Checkup"]`)

	mock.ExpectQuery(`SELECT working_start, working_end`).
		WillReturnRows(settingsRows().AddRow(
			"09:00", "20:00", "13:00", "14:00", 30, candidates, types, 40, 60,
		))

	store := NewSettingsStore(mock)
	settings, err := store.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}

	if settings.WorkingStart != "09:00" {
		t.Errorf("WorkingStart = %q, want 09:00", settings.WorkingStart)
	}
	if len(settings.CandidateSlots) != 2 || settings.CandidateSlots[1].Active {
		t.Errorf("unexpected candidate slots: %+v", settings.CandidateSlots)
	}
	if len(settings.AppointmentTypes) != 2 {
		t.Errorf("unexpected appointment types: %v", settings.AppointmentTypes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSettingsStoreMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT working_start, working_end`).
		WillReturnError(pgx.ErrNoRows)

	store := NewSettingsStore(mock)
	_, err = store.Settings(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSettingsStoreRejectsEmptyTypes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	candidates := []byte(`[{"time":"9:00 AM","active":true}]`)
	mock.ExpectQuery(`SELECT working_start, working_end`).
		WillReturnRows(settingsRows().AddRow(
			"09:00", "20:00", "", "", 30, candidates, []byte(`[]`), 40, 60,
		))

	store := NewSettingsStore(mock)
	_, err = store.Settings(context.Background())
	if err == nil {
		t.Fatal("expected validation error for empty appointment types")
	}
}

func TestSettingsValidate(t *testing.T) {
	valid := &Settings{
		WorkingStart:     "09:00",
		WorkingEnd:       "20:00",
		BreakStart:       "13:00",
		BreakEnd:         "14:00",
		SlotDurationMin:  30,
		CandidateSlots:   []CandidateSlot{{Time: "9:00 AM", Active: true}},
		AppointmentTypes: []string{"General Consultation"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"bad working start", func(s *Settings) { s.WorkingStart = "9am" }},
		{"bad break end", func(s *Settings) { s.BreakEnd = "25:00" }},
		{"zero duration", func(s *Settings) { s.SlotDurationMin = 0 }},
		{"no candidates", func(s *Settings) { s.CandidateSlots = nil }},
		{"no types", func(s *Settings) { s.AppointmentTypes = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *valid
			s.CandidateSlots = append([]CandidateSlot(nil), valid.CandidateSlots...)
			s.AppointmentTypes = append([]string(nil), valid.AppointmentTypes...)
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("13:30")
	if err != nil {
		t.Fatalf("ParseClock failed: %v", err)
	}
	if minutes != 13*60+30 {
		t.Fatalf("ParseClock = %d, want %d", minutes, 13*60+30)
	}
	if _, err := ParseClock("1:30 PM"); err == nil {
		t.Fatal("expected error for 12-hour input")
	}
}
