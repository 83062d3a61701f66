package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carelane/clinic-concierge/internal/nlu"
	"github.com/carelane/clinic-concierge/internal/schedule"
)

var affirmativeWords = []string{
	"yes", "yeah", "yep", "yup", "confirm", "confirmed", "correct",
	"sure", "ok", "okay", "book it", "sounds good", "perfect", "right", "go ahead",
}

var negativeWords = []string{
	"no", "nope", "wrong", "incorrect", "change", "not right", "start over", "restart",
}

var emergencyWords = []string{
	"emergency", "urgent", "severe pain", "chest pain", "bleeding",
	"unconscious", "accident", "can't breathe", "cannot breathe",
}

// typeAliases resolves colloquial keywords to a fragment of the configured
// appointment type name. Order matters: the first keyword present in the
// message wins, so concrete service nouns come before loose qualifiers like
// "general" ("general checkup" is a checkup, not a consultation).
var typeAliases = []struct{ keyword, fragment string }{
	{"checkup", "checkup"},
	{"check up", "checkup"},
	{"check-up", "checkup"},
	{"physical", "checkup"},
	{"follow", "follow"},
	{"cleaning", "cleaning"},
	{"vaccination", "vaccination"},
	{"vaccine", "vaccination"},
	{"shot", "vaccination"},
	{"urgent", "emergency"},
	{"emergency", "emergency"},
	{"specialist", "specialist"},
	{"consult", "consultation"},
	{"general", "consultation"},
}

// nameStopWords are filler tokens that disqualify a letters-only message from
// being read as the patient's name.
var nameStopWords = []string{
	"what", "when", "where", "why", "how", "who",
	"please", "thanks", "thank", "hello", "hi", "hey",
	"maybe", "help", "hmm", "um", "uh",
}

// looksLikeBareName reports whether a whole message can be trusted as the
// patient's name. Acknowledgements, refusals, and questions never qualify,
// even when they are letters-only.
func looksLikeBareName(message string) bool {
	if !nlu.LooksLikeName(message) {
		return false
	}
	if containsAny(message, affirmativeWords) || containsAny(message, negativeWords) {
		return false
	}
	return !containsAny(message, nameStopWords)
}

func isAffirmative(message string) bool {
	return containsAny(message, affirmativeWords) && !isNegative(message)
}

func isNegative(message string) bool {
	return containsAny(message, negativeWords)
}

func mentionsEmergency(message string) bool {
	return containsAny(message, emergencyWords)
}

func containsAny(message string, words []string) bool {
	lower := " " + strings.ToLower(strings.TrimSpace(message)) + " "
	lower = strings.NewReplacer(".", " ", ",", " ", "!", " ", "?", " ").Replace(lower)
	for _, w := range words {
		if strings.Contains(lower, " "+w+" ") {
			return true
		}
	}
	return false
}

// matchSlot resolves a user utterance to one of the offered slots. Layers, in
// order: the parser's normalized time, the literal slot label in the message,
// any time-shaped token in the raw message, then a bare-number fallback that
// accepts "730" or an hour that is unambiguous within the offered set.
func matchSlot(message string, parsed nlu.ParsedInput, slots []schedule.TimeSlot) *schedule.TimeSlot {
	if len(slots) == 0 {
		return nil
	}

	if parsed.ExtractedTime != "" {
		if normalized, ok := schedule.NormalizeTime(parsed.ExtractedTime); ok {
			if slot := slotByLabel(slots, normalized); slot != nil {
				return slot
			}
		}
	}

	lower := strings.ToLower(message)
	for i := range slots {
		if strings.Contains(lower, strings.ToLower(slots[i].Time)) {
			return &slots[i]
		}
	}

	if token := timeTokenRE.FindString(message); token != "" {
		if normalized, ok := schedule.NormalizeTime(token); ok {
			if slot := slotByLabel(slots, normalized); slot != nil {
				return slot
			}
		}
	}

	return matchSlotFuzzy(message, slots)
}

var timeTokenRE = regexp.MustCompile(`(?i)\b\d{1,2}(?:[:.]\d{2})?\s*(?:a\.?m\.?|p\.?m\.?)\b`)

var bareNumberRE = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\b`)

// matchSlotFuzzy accepts a bare clock number like "7" or "7:30" when exactly
// one offered slot shares that 12-hour reading, and the category words
// "morning", "afternoon", "evening" when they single out one slot.
func matchSlotFuzzy(message string, slots []schedule.TimeSlot) *schedule.TimeSlot {
	if m := bareNumberRE.FindStringSubmatch(message); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		want := hour % 12
		if want == 0 {
			want = 12
		}
		var hit *schedule.TimeSlot
		for i := range slots {
			mins, ok := schedule.MinutesFromLabel(slots[i].Time)
			if !ok {
				continue
			}
			h12 := (mins / 60) % 12
			if h12 == 0 {
				h12 = 12
			}
			if h12 == want && mins%60 == minute {
				if hit != nil {
					return nil // ambiguous across AM/PM
				}
				hit = &slots[i]
			}
		}
		if hit != nil {
			return hit
		}
	}

	lower := strings.ToLower(message)
	for _, cat := range []string{schedule.CategoryMorning, schedule.CategoryAfternoon, schedule.CategoryEvening} {
		if !strings.Contains(lower, cat) {
			continue
		}
		var hit *schedule.TimeSlot
		for i := range slots {
			if slots[i].TimeCategory == cat {
				if hit != nil {
					return nil
				}
				hit = &slots[i]
			}
		}
		return hit
	}
	return nil
}

func slotByLabel(slots []schedule.TimeSlot, label string) *schedule.TimeSlot {
	for i := range slots {
		if slots[i].Time == label {
			return &slots[i]
		}
	}
	return nil
}

// filterSlotsByCategory keeps slots in the named period, or all when the
// period selects nothing.
func filterSlotsByCategory(slots []schedule.TimeSlot, category string) []schedule.TimeSlot {
	if category == "" {
		return slots
	}
	var kept []schedule.TimeSlot
	for _, s := range slots {
		if s.TimeCategory == category {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return slots
	}
	return kept
}

// resolvedDate is the outcome of interpreting a date utterance.
type resolvedDate struct {
	date    string // concrete YYYY-MM-DD, or "" when windowed
	from    string // inclusive window bounds when date == ""
	to      string
	past    bool // an explicit date before today was asked for
	present bool // anything date-like was found at all
}

// resolveDate interprets the parser's date output against the current clock.
// Explicit dates win over the coarse preference. "next_week" yields a window
// the caller probes for the first day with availability.
func resolveDate(parsed nlu.ParsedInput, now time.Time) resolvedDate {
	today := now.Format(schedule.DateLayout)

	if parsed.ExtractedDate != "" {
		if parsed.ExtractedDate < today {
			return resolvedDate{past: true, present: true}
		}
		return resolvedDate{date: parsed.ExtractedDate, present: true}
	}

	switch parsed.DatePreference {
	case nlu.DatePrefToday:
		return resolvedDate{date: today, present: true}
	case nlu.DatePrefTomorrow:
		return resolvedDate{date: now.AddDate(0, 0, 1).Format(schedule.DateLayout), present: true}
	case nlu.DatePrefNextWeek:
		return resolvedDate{
			from:    now.AddDate(0, 0, 7).Format(schedule.DateLayout),
			to:      now.AddDate(0, 0, 13).Format(schedule.DateLayout),
			present: true,
		}
	}
	return resolvedDate{}
}

// wantsDifferentDate reports whether, while slots for the current date are on
// offer, the user pivoted to another date instead of picking a time.
func wantsDifferentDate(parsed nlu.ParsedInput, currentDate string, now time.Time) bool {
	resolved := resolveDate(parsed, now)
	if !resolved.present {
		return false
	}
	if resolved.past {
		return true
	}
	if resolved.date != "" {
		return resolved.date != currentDate
	}
	return true // windowed preference always pivots
}

// matchAppointmentType resolves an utterance to one of the configured types.
// Exact match first, then substring either direction, then the alias table.
func matchAppointmentType(message string, parsedType string, configured []string) string {
	candidates := []string{parsedType, message}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		lower := strings.ToLower(candidate)
		for _, t := range configured {
			if strings.EqualFold(candidate, t) {
				return t
			}
		}
		for _, t := range configured {
			tl := strings.ToLower(t)
			if strings.Contains(lower, tl) || (len(lower) >= 4 && strings.Contains(tl, lower)) {
				return t
			}
		}
	}

	lower := strings.ToLower(message)
	for _, alias := range typeAliases {
		if !strings.Contains(lower, alias.keyword) {
			continue
		}
		for _, t := range configured {
			if strings.Contains(strings.ToLower(t), alias.fragment) {
				return t
			}
		}
	}
	return ""
}

// parseDelimitedInfo handles the one-shot "Name, phone, email, age" form.
// Parts classify by shape, so order beyond the leading name does not matter.
func parseDelimitedInfo(message string) nlu.Extraction {
	parts := strings.Split(message, ",")
	if len(parts) < 3 {
		return nlu.Extraction{}
	}
	var out nlu.Extraction
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch {
		case out.Email == "" && strings.Contains(part, "@"):
			if e := nlu.ExtractEmail(part); e != "" {
				out.Email = e
			}
		case out.Phone == "" && len(digitsOnly(part)) == 10:
			out.Phone = digitsOnly(part)
		case out.Age == 0 && isBareAge(part):
			out.Age, _ = strconv.Atoi(part)
		case i == 0 && out.Name == "" && nlu.LooksLikeName(part):
			out.Name = part
		}
	}
	return out
}

var notDigitRE = regexp.MustCompile(`\D`)

func digitsOnly(s string) string {
	return notDigitRE.ReplaceAllString(s, "")
}

func isBareAge(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1 && n <= 120
}
