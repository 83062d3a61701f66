// Package booking is the boundary to persistence: patient lookup and the
// atomic appointment commit guarded by the (date, time) uniqueness constraint.
package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSlotTaken is returned when the appointment insert loses the race for a
// (date, time) pair. Callers recover by offering fresh alternatives.
var ErrSlotTaken = errors.New("booking: slot already taken")

// Patient is a patient row.
type Patient struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Email     string
	Age       int
	CreatedAt time.Time
}

// Appointment is an appointment row.
type Appointment struct {
	ID               uuid.UUID
	PatientID        uuid.UUID
	Date             string // YYYY-MM-DD
	Time             string // canonical "H:MM AM/PM" label
	AppointmentType  string
	DoctorPreference string
	IsEmergency      bool
	Status           string
	CreatedAt        time.Time
}

// Draft carries everything needed for one atomic commit. All fields are
// validated by the conversation engine before a draft reaches the gateway.
type Draft struct {
	Date              string
	Time              string
	AppointmentType   string
	PatientName       string
	PatientPhone      string
	PatientEmail      string
	PatientAge        int
	DoctorPreference  string
	IsEmergency       bool
	ExistingPatientID *uuid.UUID
}
