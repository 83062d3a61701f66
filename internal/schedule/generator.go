package schedule

import (
	"time"

	"github.com/carelane/clinic-concierge/internal/clinic"
)

// DateLayout is the wire format for appointment dates.
const DateLayout = "2006-01-02"

// TimeSlot is a bookable (date, time) pair. Derived, never stored.
type TimeSlot struct {
	Date         string `json:"date"` // YYYY-MM-DD
	Time         string `json:"time"` // canonical "H:MM AM/PM" label
	DisplayDate  string `json:"display_date"`
	TimeCategory string `json:"time_category"`
}

// BookedSlot is an existing appointment's time label and status for one date.
type BookedSlot struct {
	Time   string
	Status string
}

// Generate produces the bookable slots for date, in the configured candidate
// order. Excluded: inactive candidates, times outside working hours, times in
// the break window, times already booked with a non-cancelled status, and (for
// today) slots whose end time is not strictly in the future.
// Pref optionally narrows to a morning/afternoon/evening window.
func Generate(date string, existing []BookedSlot, settings *clinic.Settings, now time.Time, pref string) []TimeSlot {
	if settings == nil {
		return nil
	}

	workStart, err := clinic.ParseClock(settings.WorkingStart)
	if err != nil {
		return nil
	}
	workEnd, err := clinic.ParseClock(settings.WorkingEnd)
	if err != nil {
		return nil
	}

	breakStart, breakEnd := -1, -1
	if settings.BreakStart != "" && settings.BreakEnd != "" {
		if bs, err := clinic.ParseClock(settings.BreakStart); err == nil {
			if be, err := clinic.ParseClock(settings.BreakEnd); err == nil {
				breakStart, breakEnd = bs, be
			}
		}
	}

	booked := make(map[string]struct{}, len(existing))
	active := 0
	for _, b := range existing {
		if b.Status == "cancelled" {
			continue
		}
		active++
		if label, ok := NormalizeTime(b.Time); ok {
			booked[label] = struct{}{}
		}
	}
	// A day at its appointment cap offers nothing, even with free times left.
	if settings.MaxPerDay > 0 && active >= settings.MaxPerDay {
		return nil
	}

	day, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return nil
	}
	isToday := day.Year() == now.Year() && day.YearDay() == now.YearDay()
	nowMinutes := now.Hour()*60 + now.Minute()
	displayDate := day.Format("Monday, Jan 2")

	var slots []TimeSlot
	for _, candidate := range settings.CandidateSlots {
		if !candidate.Active {
			continue
		}
		label, ok := NormalizeTime(candidate.Time)
		if !ok {
			continue
		}
		minutes, _ := MinutesFromLabel(label)

		if minutes < workStart || minutes >= workEnd {
			continue
		}
		if breakStart >= 0 && minutes >= breakStart && minutes < breakEnd {
			continue
		}
		if _, taken := booked[label]; taken {
			continue
		}
		if isToday && minutes+settings.SlotDurationMin <= nowMinutes {
			continue
		}
		if pref != "" && !inPreferenceWindow(minutes, pref) {
			continue
		}

		slots = append(slots, TimeSlot{
			Date:         date,
			Time:         label,
			DisplayDate:  displayDate,
			TimeCategory: Category(minutes),
		})
	}
	return slots
}

// inPreferenceWindow applies the morning/afternoon/evening filter windows:
// morning 09:00-12:00, afternoon 12:00-17:00, evening 17:00-20:00.
func inPreferenceWindow(minutes int, pref string) bool {
	switch pref {
	case CategoryMorning:
		return minutes >= 9*60 && minutes < 12*60
	case CategoryAfternoon:
		return minutes >= 12*60 && minutes < 17*60
	case CategoryEvening:
		return minutes >= 17*60 && minutes < 20*60
	default:
		return true
	}
}
