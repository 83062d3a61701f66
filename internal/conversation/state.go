// Package conversation implements the multi-turn booking dialog: a per-session
// state machine that turns parsed user input into a validated, conflict-free
// appointment commit.
package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelane/clinic-concierge/internal/schedule"
)

// Phase is the single source of truth for routing a turn.
type Phase string

const (
	PhaseGreeting       Phase = "greeting"
	PhaseAskingDate     Phase = "asking_date"
	PhaseShowingSlots   Phase = "showing_slots"
	PhaseAskingType     Phase = "asking_appointment_type"
	PhaseCollectingInfo Phase = "collecting_patient_info"
	PhaseConfirming     Phase = "confirming_booking"
	PhaseCompleted      Phase = "completed"
)

// StateSchemaVersion is bumped when ConversationState changes shape. Sessions
// persisted under an older version are discarded on read instead of crashing.
const StateSchemaVersion = 1

// recentMessageLimit bounds the per-session message ring.
const recentMessageLimit = 10

// Message is one entry of the bounded recent-message ring. Kept for context
// and debugging only; NLU sees just the current turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingDraft is the partially-filled appointment request. Unset fields hold
// their zero value; fields fill monotonically and are only cleared on explicit
// restart or detected staleness.
type BookingDraft struct {
	SelectedDate       string     `json:"selected_date"` // YYYY-MM-DD
	SelectedTime       string     `json:"selected_time"` // canonical "H:MM AM/PM"
	AppointmentType    string     `json:"appointment_type"`
	PatientName        string     `json:"patient_name"`
	PatientPhone       string     `json:"patient_phone"`
	PatientEmail       string     `json:"patient_email"`
	PatientAge         int        `json:"patient_age"`
	DoctorPreference   string     `json:"doctor_preference"`
	IsEmergency        bool       `json:"is_emergency"`
	ExistingPatientRef *uuid.UUID `json:"existing_patient_ref,omitempty"`
}

// ConversationState is the per-session booking state held across turns.
type ConversationState struct {
	SchemaVersion  int                 `json:"schema_version"`
	SessionID      string              `json:"session_id"`
	Phase          Phase               `json:"phase"`
	Draft          BookingDraft        `json:"booking_draft"`
	AvailableSlots []schedule.TimeSlot `json:"available_slots,omitempty"`
	RecentMessages []Message           `json:"recent_messages,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	LastActivity   time.Time           `json:"last_activity"`
	// Version counts saves. Recorded so an optimistic write check can be
	// added without a schema migration; not enforced today.
	Version int64 `json:"version"`
}

// NewConversationState initializes a fresh session in GREETING.
func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SchemaVersion: StateSchemaVersion,
		SessionID:     sessionID,
		Phase:         PhaseGreeting,
		CreatedAt:     now,
		LastActivity:  now,
	}
}

// AppendMessage records a turn in the bounded ring.
func (s *ConversationState) AppendMessage(role, content string, now time.Time) {
	s.RecentMessages = append(s.RecentMessages, Message{Role: role, Content: content, Timestamp: now})
	if len(s.RecentMessages) > recentMessageLimit {
		s.RecentMessages = s.RecentMessages[len(s.RecentMessages)-recentMessageLimit:]
	}
}

// ResetDraft clears the draft. With keepIdentity, known patient fields carry
// over so a follow-on booking does not re-ask who the patient is.
func (s *ConversationState) ResetDraft(keepIdentity bool) {
	identity := BookingDraft{
		PatientName:        s.Draft.PatientName,
		PatientPhone:       s.Draft.PatientPhone,
		PatientEmail:       s.Draft.PatientEmail,
		PatientAge:         s.Draft.PatientAge,
		ExistingPatientRef: s.Draft.ExistingPatientRef,
	}
	s.Draft = BookingDraft{}
	if keepIdentity {
		s.Draft = identity
	}
	s.AvailableSlots = nil
}
