package booking

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carelane/clinic-concierge/internal/observability/metrics"
	"github.com/carelane/clinic-concierge/pkg/logging"
)

// Notifier receives fire-and-forget booking events. Implementations must not
// block; failures never roll back a commit.
type Notifier interface {
	BookingConfirmed(appt Appointment, draft Draft)
}

// Gateway is the commit boundary the conversation engine talks to.
type Gateway struct {
	repo     *Repository
	notifier Notifier
	logger   *logging.Logger
	metrics  *metrics.ConversationMetrics
	tracer   trace.Tracer
}

func NewGateway(repo *Repository, notifier Notifier, logger *logging.Logger, m *metrics.ConversationMetrics) *Gateway {
	if repo == nil {
		panic("booking: repository is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("concierge.internal.booking"),
	}
}

// AppointmentsForDate lists the day's appointments for slot generation.
func (g *Gateway) AppointmentsForDate(ctx context.Context, date string) ([]Appointment, error) {
	ctx, span := g.tracer.Start(ctx, "booking.appointments_for_date")
	defer span.End()
	span.SetAttributes(attribute.String("concierge.date", date))

	appts, err := g.repo.AppointmentsForDate(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return appts, nil
}

// IsSlotBooked re-checks live booking state for one (date, time) pair.
func (g *Gateway) IsSlotBooked(ctx context.Context, date, timeLabel string) (bool, error) {
	ctx, span := g.tracer.Start(ctx, "booking.is_slot_booked")
	defer span.End()

	taken, err := g.repo.IsSlotBooked(ctx, date, timeLabel)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return taken, nil
}

// FindPatientByPhoneOrName resolves an existing patient record, or nil.
func (g *Gateway) FindPatientByPhoneOrName(ctx context.Context, phone, name string) (*Patient, error) {
	ctx, span := g.tracer.Start(ctx, "booking.find_patient")
	defer span.End()

	patient, err := g.repo.FindPatientByPhoneOrName(ctx, phone, name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return patient, nil
}

// CreateAppointment performs the atomic commit and dispatches the
// confirmation notification. ErrSlotTaken passes through untouched so the
// engine can run its conflict recovery.
func (g *Gateway) CreateAppointment(ctx context.Context, draft Draft) (*Appointment, error) {
	ctx, span := g.tracer.Start(ctx, "booking.create_appointment")
	defer span.End()
	span.SetAttributes(
		attribute.String("concierge.date", draft.Date),
		attribute.String("concierge.time", draft.Time),
		attribute.Bool("concierge.emergency", draft.IsEmergency),
	)

	appt, err := g.repo.CreateAppointmentAtomic(ctx, draft)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotTaken) {
			g.metrics.ObserveBooking("conflict")
			g.metrics.ObserveSlotConflict()
			return nil, err
		}
		g.metrics.ObserveBooking("error")
		return nil, err
	}

	g.metrics.ObserveBooking("committed")
	g.logger.Info("appointment committed",
		"appointment_id", appt.ID,
		"date", appt.Date,
		"time", appt.Time,
		"type", appt.AppointmentType,
		"emergency", appt.IsEmergency,
	)
	if g.notifier != nil {
		g.notifier.BookingConfirmed(*appt, draft)
	}
	return appt, nil
}
