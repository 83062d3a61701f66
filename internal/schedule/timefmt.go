// Package schedule generates bookable time slots from clinic configuration.
// Everything here is a pure function of its inputs; "now" is always passed in.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Time-of-day categories used for slot filtering.
const (
	CategoryMorning   = "morning"   // 09:00-12:00
	CategoryAfternoon = "afternoon" // 12:00-17:00
	CategoryEvening   = "evening"   // 17:00-20:00
)

var timeRE = regexp.MustCompile(`^\s*(\d{1,2})(?:[:.](\d{2}))?\s*(?:([ap])\.?m?\.?)?\s*$`)

// NormalizeTime canonicalizes a textual time ("7:30PM", "7.30 pm", "7 PM",
// "19:30") to the single "H:MM AM/PM" form slot labels use. Equivalent inputs
// always produce byte-identical output. The second return is false when the
// input is not a recognizable or unambiguous time.
func NormalizeTime(value string) (string, bool) {
	m := timeRE.FindStringSubmatch(strings.ToLower(strings.TrimSpace(value)))
	if m == nil {
		return "", false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return "", false
		}
	}

	meridiem := m[3]
	switch {
	case meridiem != "":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if meridiem == "p" && hour != 12 {
			hour += 12
		}
		if meridiem == "a" && hour == 12 {
			hour = 0
		}
	case hour >= 13 && hour <= 23:
		// 24-hour form is unambiguous.
	case hour == 0:
		// midnight in 24-hour form
	default:
		// "7:30" with no meridiem cannot be resolved safely.
		return "", false
	}
	if hour > 23 {
		return "", false
	}

	return FormatMinutes(hour*60 + minute), true
}

// FormatMinutes renders minutes-since-midnight as "H:MM AM/PM".
func FormatMinutes(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	hour := minutes / 60
	min := minutes % 60
	meridiem := "AM"
	displayHour := hour
	switch {
	case hour == 0:
		displayHour = 12
	case hour == 12:
		meridiem = "PM"
	case hour > 12:
		displayHour = hour - 12
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", displayHour, min, meridiem)
}

// MinutesFromLabel parses a canonical "H:MM AM/PM" label back into
// minutes since midnight.
func MinutesFromLabel(label string) (int, bool) {
	normalized, ok := NormalizeTime(label)
	if !ok {
		return 0, false
	}
	parts := strings.SplitN(normalized, " ", 2)
	hm := strings.SplitN(parts[0], ":", 2)
	hour, _ := strconv.Atoi(hm[0])
	minute, _ := strconv.Atoi(hm[1])
	if parts[1] == "PM" && hour != 12 {
		hour += 12
	}
	if parts[1] == "AM" && hour == 12 {
		hour = 0
	}
	return hour*60 + minute, true
}

// Category buckets a time into morning/afternoon/evening.
func Category(minutes int) string {
	switch {
	case minutes < 12*60:
		return CategoryMorning
	case minutes < 17*60:
		return CategoryAfternoon
	default:
		return CategoryEvening
	}
}
