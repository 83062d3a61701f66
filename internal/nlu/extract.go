package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// Extraction holds fields recovered from raw text without the model. Empty
// fields mean "not found"; the extractor prefers leaving a field unset over
// accepting a low-confidence match.
type Extraction struct {
	Name  string
	Phone string
	Email string
	Age   int
}

var (
	digitRunRE = regexp.MustCompile(`\d[\d\s\-().]*\d`)
	nonDigitRE = regexp.MustCompile(`\D`)
	emailRE    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Age patterns tried in order; first match wins.
	ageREs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bage\s*(?:is\s*)?[:\-]?\s*(\d{1,3})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:years?\s*old|yrs?\s*old|y/o)\b`),
		regexp.MustCompile(`(?i)\bi\s*(?:'?m|\s+am)\s+(\d{1,3})\b`),
		regexp.MustCompile(`\A\s*(\d{1,3})\s*\z`),
	}

	nameIntroRE = regexp.MustCompile(`(?i)\b(?:my name is|i am|i'?m|this is|call me)\s+([A-Za-z][A-Za-z ]{1,48})`)
	lettersRE   = regexp.MustCompile(`\A[A-Za-z ]+\z`)
)

// Extract applies deterministic pattern matching to recover patient fields the
// model missed. Each field follows the same rule: only a clean, unambiguous
// match is accepted.
func Extract(raw string) Extraction {
	return Extraction{
		Name:  ExtractName(raw),
		Phone: ExtractPhone(raw),
		Email: ExtractEmail(raw),
		Age:   ExtractAge(raw),
	}
}

// ExtractPhone returns the first digit run that is exactly 10 digits after
// stripping separators. Longer or shorter runs are rejected outright.
func ExtractPhone(raw string) string {
	for _, run := range digitRunRE.FindAllString(raw, -1) {
		digits := nonDigitRE.ReplaceAllString(run, "")
		if len(digits) == 10 {
			return digits
		}
	}
	return ""
}

// ExtractEmail returns the first local@domain.tld match.
func ExtractEmail(raw string) string {
	return emailRE.FindString(raw)
}

// ExtractAge tries the patterns in order ("age N", "N years old", "I'm N",
// bare N) and accepts the first hit in [1,120].
func ExtractAge(raw string) int {
	for _, re := range ageREs {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		age, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if age >= 1 && age <= 120 {
			return age
		}
		// An explicit pattern with an out-of-range number is a miss, not a
		// reason to fall through to weaker patterns.
		return 0
	}
	return 0
}

// ExtractName captures an explicitly introduced name ("my name is ...").
// The captured span must be letters and spaces only; anything that smells
// like a number or date fragment is rejected.
func ExtractName(raw string) string {
	m := nameIntroRE.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	// The capture may have swallowed trailing words ("I'm John Smith and my
	// phone is"); cut at the first connective.
	if idx := strings.Index(strings.ToLower(name), " and "); idx > 0 {
		name = strings.TrimSpace(name[:idx])
	}
	if name == "" || !lettersRE.MatchString(name) {
		return ""
	}
	if len(strings.Fields(name)) > 4 {
		return ""
	}
	return name
}

// LooksLikeName reports whether an entire message is plausibly just a name:
// letters and spaces only, one to four words, no digits. Used by the state
// machine when it has directly asked for the patient's name.
func LooksLikeName(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !lettersRE.MatchString(trimmed) {
		return false
	}
	words := len(strings.Fields(trimmed))
	return words >= 1 && words <= 4
}
