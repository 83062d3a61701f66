// Package clinic holds the appointment configuration the booking engine runs
// against: working hours, candidate slot labels, and the appointment-type list.
package clinic

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the clinic has no settings row. The
// conversation engine surfaces this verbatim as a configuration error rather
// than substituting defaults.
var ErrNotConfigured = errors.New("clinic: appointment settings not configured")

// CandidateSlot is one entry of the ordered candidate time list.
type CandidateSlot struct {
	Time   string `json:"time"` // display label, e.g. "9:00 AM"
	Active bool   `json:"active"`
}

// Settings is the read-only appointment configuration record.
type Settings struct {
	WorkingStart     string          `json:"working_start"` // "09:00", 24-hour
	WorkingEnd       string          `json:"working_end"`
	BreakStart       string          `json:"break_start"`
	BreakEnd         string          `json:"break_end"`
	SlotDurationMin  int             `json:"slot_duration_minutes"`
	CandidateSlots   []CandidateSlot `json:"candidate_slots"`
	AppointmentTypes []string        `json:"appointment_types"`
	MaxPerDay        int             `json:"max_per_day"`
	AdvanceDays      int             `json:"advance_days"` // how far ahead bookings are accepted
}

// Validate checks the invariants the slot generator depends on.
func (s *Settings) Validate() error {
	if s == nil {
		return ErrNotConfigured
	}
	for _, field := range []struct {
		name, value string
	}{
		{"working_start", s.WorkingStart},
		{"working_end", s.WorkingEnd},
	} {
		if _, err := ParseClock(field.value); err != nil {
			return fmt.Errorf("clinic: invalid %s %q: %w", field.name, field.value, err)
		}
	}
	if s.BreakStart != "" || s.BreakEnd != "" {
		if _, err := ParseClock(s.BreakStart); err != nil {
			return fmt.Errorf("clinic: invalid break_start %q: %w", s.BreakStart, err)
		}
		if _, err := ParseClock(s.BreakEnd); err != nil {
			return fmt.Errorf("clinic: invalid break_end %q: %w", s.BreakEnd, err)
		}
	}
	if s.SlotDurationMin <= 0 {
		return fmt.Errorf("clinic: slot duration must be positive, got %d", s.SlotDurationMin)
	}
	if len(s.CandidateSlots) == 0 {
		return errors.New("clinic: no candidate slots configured")
	}
	if len(s.AppointmentTypes) == 0 {
		return errors.New("clinic: no appointment types configured")
	}
	return nil
}

// ParseClock parses a 24-hour "HH:MM" string into minutes since midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
