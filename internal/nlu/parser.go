package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carelane/clinic-concierge/internal/llm"
	"github.com/carelane/clinic-concierge/internal/schedule"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

const parserSystemPrompt = `You are the intent and entity extraction layer of a clinic appointment-booking assistant.
Read the user's message and respond with a single JSON object, nothing else. Schema:

{
  "intent": one of "booking", "date_selection", "time_selection", "patient_info", "appointment_type", "confirmation", "denial", "cancel", "emergency", "general",
  "extracted_date": "YYYY-MM-DD" or "",
  "extracted_time": "H:MM AM/PM" or "",
  "date_preference": one of "today", "tomorrow", "next_week" or "",
  "time_preference": one of "morning", "afternoon", "evening" or "",
  "patient_name": string or "",
  "patient_phone": string or "",
  "patient_email": string or "",
  "patient_age": number or 0,
  "appointment_type": string or "",
  "doctor_preference": string or "",
  "is_emergency": boolean,
  "is_complete_request": boolean
}

Rules:
- Resolve relative dates ("tomorrow", "next Monday") to concrete YYYY-MM-DD dates using the dates given in the request.
- "is_complete_request" is true only when one message contains a date or date preference AND a time AND enough identity to book.
- Emergencies ("severe chest pain", "bleeding badly") set intent "emergency" and "is_emergency" true.
- Leave any field you are not sure about empty. Never invent values.`

// Parser adapts the external language model into ParsedInput records.
// It carries no retry logic; the llm.Client it is given owns that.
type Parser struct {
	client llm.Client
	logger *logging.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewParser(client llm.Client, logger *logging.Logger) *Parser {
	if client == nil {
		panic("nlu: llm client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Parser{
		client: client,
		logger: logger,
		tracer: otel.Tracer("concierge.internal.nlu"),
		now:    time.Now,
	}
}

// Parse sends the message to the model and returns the structured record.
// Transport failures and malformed responses both degrade to the safe default
// ("could not understand"); they are never surfaced as errors.
func (p *Parser) Parse(ctx context.Context, message, phase string) ParsedInput {
	ctx, span := p.tracer.Start(ctx, "nlu.parse")
	defer span.End()
	span.SetAttributes(attribute.String("concierge.phase", phase))

	now := p.now()
	userPrompt := fmt.Sprintf(
		"Today is %s (%s). Tomorrow is %s. The booking conversation is currently in phase %q.\n\nUser message: %s",
		now.Format(schedule.DateLayout),
		now.Weekday(),
		now.AddDate(0, 0, 1).Format(schedule.DateLayout),
		phase,
		message,
	)

	resp, err := p.client.Complete(ctx, llm.Request{
		System:      []string{parserSystemPrompt},
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: userPrompt}},
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		span.RecordError(err)
		p.logger.Warn("language model unavailable, using default parse", "error", err.Error())
		return DefaultParsedInput()
	}

	parsed, ok := decodeParsedInput(resp.Text)
	if !ok {
		p.logger.Warn("language model returned unusable output", "output_len", len(resp.Text))
		return DefaultParsedInput()
	}
	return parsed
}

// wireParsed tolerates the model's loose typing (string ages, literal "null").
type wireParsed struct {
	Intent            string `json:"intent"`
	ExtractedDate     string `json:"extracted_date"`
	ExtractedTime     string `json:"extracted_time"`
	DatePreference    string `json:"date_preference"`
	TimePreference    string `json:"time_preference"`
	PatientName       string `json:"patient_name"`
	PatientPhone      string `json:"patient_phone"`
	PatientEmail      string `json:"patient_email"`
	PatientAge        any    `json:"patient_age"`
	AppointmentType   string `json:"appointment_type"`
	DoctorPreference  string `json:"doctor_preference"`
	IsEmergency       bool   `json:"is_emergency"`
	IsCompleteRequest bool   `json:"is_complete_request"`
}

func decodeParsedInput(text string) (ParsedInput, bool) {
	payload, ok := extractJSONObject(text)
	if !ok {
		return ParsedInput{}, false
	}

	var wire wireParsed
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return ParsedInput{}, false
	}

	parsed := ParsedInput{
		Intent:            Intent(strings.ToLower(strings.TrimSpace(wire.Intent))),
		ExtractedDate:     sanitizeDate(wire.ExtractedDate),
		DatePreference:    sanitizeEnum(wire.DatePreference, DatePrefToday, DatePrefTomorrow, DatePrefNextWeek),
		TimePreference:    sanitizeEnum(wire.TimePreference, schedule.CategoryMorning, schedule.CategoryAfternoon, schedule.CategoryEvening),
		PatientName:       sanitizeText(wire.PatientName),
		PatientPhone:      sanitizePhone(wire.PatientPhone),
		PatientEmail:      sanitizeText(wire.PatientEmail),
		PatientAge:        coerceAge(wire.PatientAge),
		AppointmentType:   sanitizeText(wire.AppointmentType),
		DoctorPreference:  sanitizeText(wire.DoctorPreference),
		IsEmergency:       wire.IsEmergency,
		IsCompleteRequest: wire.IsCompleteRequest,
	}

	if _, known := knownIntents[parsed.Intent]; !known {
		parsed.Intent = IntentGeneral
	}
	if normalized, ok := schedule.NormalizeTime(sanitizeText(wire.ExtractedTime)); ok {
		parsed.ExtractedTime = normalized
	}
	return parsed, true
}

// extractJSONObject pulls the first {...} object out of the response, which
// may be wrapped in markdown fences or prose.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// sanitizeText collapses the model's null-ish sentinels to the one unset
// representation: the empty string.
func sanitizeText(value string) string {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(trimmed) {
	case "null", "none", "n/a", "unknown":
		return ""
	}
	return trimmed
}

func sanitizeDate(value string) string {
	trimmed := sanitizeText(value)
	if trimmed == "" {
		return ""
	}
	if _, err := time.Parse(schedule.DateLayout, trimmed); err != nil {
		return ""
	}
	return trimmed
}

func sanitizeEnum(value string, allowed ...string) string {
	trimmed := strings.ToLower(sanitizeText(value))
	for _, a := range allowed {
		if trimmed == a {
			return a
		}
	}
	return ""
}

func sanitizePhone(value string) string {
	digits := nonDigitRE.ReplaceAllString(sanitizeText(value), "")
	if len(digits) == 10 {
		return digits
	}
	return ""
}

func coerceAge(value any) int {
	switch v := value.(type) {
	case float64:
		return boundAge(int(v))
	case string:
		if age, err := strconv.Atoi(sanitizeText(v)); err == nil {
			return boundAge(age)
		}
	case json.Number:
		if age, err := v.Int64(); err == nil {
			return boundAge(int(age))
		}
	}
	return 0
}

func boundAge(age int) int {
	if age < 1 || age > 120 {
		return 0
	}
	return age
}
