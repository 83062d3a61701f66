package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carelane/clinic-concierge/internal/booking"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

const sendTimeout = 10 * time.Second

// Service turns booking events into confirmation emails. It implements
// booking.Notifier; sends run on their own goroutine and never block or fail
// the commit path.
type Service struct {
	sender EmailSender
	logger *logging.Logger
	wg     sync.WaitGroup
}

func NewService(sender EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sender: sender, logger: logger}
}

// BookingConfirmed dispatches the confirmation email for a committed
// appointment. A draft without an email address is skipped silently.
func (s *Service) BookingConfirmed(appt booking.Appointment, draft booking.Draft) {
	if s == nil || s.sender == nil || draft.PatientEmail == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		msg := buildConfirmationEmail(appt, draft)
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.Error("booking confirmation email failed",
				"appointment_id", appt.ID, "to", draft.PatientEmail, "error", err)
		}
	}()
}

// Flush waits for in-flight sends; used on shutdown and in tests.
func (s *Service) Flush() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

func buildConfirmationEmail(appt booking.Appointment, draft booking.Draft) EmailMessage {
	date := appt.Date
	if day, err := time.Parse("2006-01-02", appt.Date); err == nil {
		date = day.Format("Monday, January 2, 2006")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", draft.PatientName)
	fmt.Fprintf(&b, "Your %s is confirmed:\n\n", strings.ToLower(appt.AppointmentType))
	fmt.Fprintf(&b, "  Date: %s\n", date)
	fmt.Fprintf(&b, "  Time: %s\n", appt.Time)
	fmt.Fprintf(&b, "  Type: %s\n", appt.AppointmentType)
	if appt.DoctorPreference != "" {
		fmt.Fprintf(&b, "  Doctor: %s\n", appt.DoctorPreference)
	}
	if appt.IsEmergency {
		b.WriteString("\nYour visit is flagged as urgent; please arrive as early as you can.\n")
	}
	b.WriteString("\nIf you need to change or cancel, just reply to this email or call the clinic.\n")

	return EmailMessage{
		To:      draft.PatientEmail,
		ToName:  draft.PatientName,
		Subject: fmt.Sprintf("Appointment confirmed for %s at %s", date, appt.Time),
		Body:    b.String(),
	}
}

var _ booking.Notifier = (*Service)(nil)
