// Package nlu turns free-text user messages into structured booking input,
// using an external language model with deterministic regex recovery.
package nlu

// Intent classifies what the user is trying to do this turn.
type Intent string

const (
	IntentBooking         Intent = "booking"
	IntentDateSelection   Intent = "date_selection"
	IntentTimeSelection   Intent = "time_selection"
	IntentPatientInfo     Intent = "patient_info"
	IntentAppointmentType Intent = "appointment_type"
	IntentConfirmation    Intent = "confirmation"
	IntentDenial          Intent = "denial"
	IntentCancel          Intent = "cancel"
	IntentEmergency       Intent = "emergency"
	IntentGeneral         Intent = "general"
)

var knownIntents = map[Intent]struct{}{
	IntentBooking:         {},
	IntentDateSelection:   {},
	IntentTimeSelection:   {},
	IntentPatientInfo:     {},
	IntentAppointmentType: {},
	IntentConfirmation:    {},
	IntentDenial:          {},
	IntentCancel:          {},
	IntentEmergency:       {},
	IntentGeneral:         {},
}

// Date preferences resolved relative to "now" by the state machine.
const (
	DatePrefToday    = "today"
	DatePrefTomorrow = "tomorrow"
	DatePrefNextWeek = "next_week"
)

// ParsedInput is the structured record extracted from one message. It is
// ephemeral: consumed once by the state machine and discarded.
type ParsedInput struct {
	Intent            Intent `json:"intent"`
	ExtractedDate     string `json:"extracted_date"` // YYYY-MM-DD
	ExtractedTime     string `json:"extracted_time"` // canonical "H:MM AM/PM"
	DatePreference    string `json:"date_preference"`
	TimePreference    string `json:"time_preference"` // morning/afternoon/evening
	PatientName       string `json:"patient_name"`
	PatientPhone      string `json:"patient_phone"`
	PatientEmail      string `json:"patient_email"`
	PatientAge        int    `json:"patient_age"`
	AppointmentType   string `json:"appointment_type"`
	DoctorPreference  string `json:"doctor_preference"`
	IsEmergency       bool   `json:"is_emergency"`
	IsCompleteRequest bool   `json:"is_complete_request"`
}

// DefaultParsedInput is the safe "could not understand" record used whenever
// the model is unreachable or returns something unusable.
func DefaultParsedInput() ParsedInput {
	return ParsedInput{Intent: IntentGeneral}
}
