package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the Postgres error code raised by the partial unique
// index on (appointment_date, appointment_time).
const pgUniqueViolation = "23505"

// DBTX is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository provides persistence helpers for patients and appointments.
type Repository struct {
	db DBTX
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(db DBTX) *Repository {
	if db == nil {
		panic("booking: db is required")
	}
	return &Repository{db: db}
}

// AppointmentsForDate returns all appointments on a date, any status.
// The slot generator decides which statuses block a slot.
func (r *Repository) AppointmentsForDate(ctx context.Context, date string) ([]Appointment, error) {
	return r.appointmentsWhere(ctx,
		`SELECT id, patient_id, appointment_date, appointment_time, appointment_type,
		        doctor_preference, is_emergency, status, created_at
		 FROM appointments
		 WHERE appointment_date = $1
		 ORDER BY created_at ASC`, date)
}

// AppointmentsInRange returns appointments with dates in [from, to], inclusive.
func (r *Repository) AppointmentsInRange(ctx context.Context, from, to string) ([]Appointment, error) {
	return r.appointmentsWhere(ctx,
		`SELECT id, patient_id, appointment_date, appointment_time, appointment_type,
		        doctor_preference, is_emergency, status, created_at
		 FROM appointments
		 WHERE appointment_date >= $1 AND appointment_date <= $2
		 ORDER BY appointment_date ASC, created_at ASC`, from, to)
}

func (r *Repository) appointmentsWhere(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking: query appointments: %w", err)
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.PatientID, &a.Date, &a.Time, &a.AppointmentType,
			&a.DoctorPreference, &a.IsEmergency, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: iterate appointments: %w", err)
	}
	return appts, nil
}

// IsSlotBooked reports whether a non-cancelled appointment holds (date, time).
func (r *Repository) IsSlotBooked(ctx context.Context, date, timeLabel string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE appointment_date = $1 AND appointment_time = $2 AND status <> 'cancelled'
		)`, date, timeLabel).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("booking: check slot: %w", err)
	}
	return exists, nil
}

// FindPatientByPhoneOrName looks a patient up by phone first, then by exact
// case-insensitive name. Returns nil when neither matches.
func (r *Repository) FindPatientByPhoneOrName(ctx context.Context, phone, name string) (*Patient, error) {
	if strings.TrimSpace(phone) != "" {
		patient, err := r.findPatient(ctx, `SELECT id, name, phone, email, age, created_at FROM patients WHERE phone = $1`, phone)
		if err != nil || patient != nil {
			return patient, err
		}
	}
	if strings.TrimSpace(name) != "" {
		return r.findPatient(ctx, `SELECT id, name, phone, email, age, created_at FROM patients WHERE LOWER(name) = LOWER($1)`, name)
	}
	return nil, nil
}

func (r *Repository) findPatient(ctx context.Context, query string, arg any) (*Patient, error) {
	var p Patient
	err := r.db.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Name, &p.Phone, &p.Email, &p.Age, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking: find patient: %w", err)
	}
	return &p, nil
}

// CreateAppointmentAtomic creates (or reuses) the patient record and inserts
// the appointment in one transaction. A unique violation on (date, time) maps
// to ErrSlotTaken; the database constraint is the authoritative guard against
// two sessions racing for the same slot.
func (r *Repository) CreateAppointmentAtomic(ctx context.Context, draft Draft) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()

	patientID := uuid.New()
	if draft.ExistingPatientID != nil {
		patientID = *draft.ExistingPatientID
		_, err = tx.Exec(ctx,
			`UPDATE patients SET email = $1, age = $2 WHERE id = $3`,
			draft.PatientEmail, draft.PatientAge, patientID,
		)
		if err != nil {
			return nil, fmt.Errorf("booking: update patient: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx,
			`INSERT INTO patients (id, name, phone, email, age, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			patientID, draft.PatientName, draft.PatientPhone, draft.PatientEmail, draft.PatientAge, now,
		)
		if err != nil {
			return nil, fmt.Errorf("booking: insert patient: %w", err)
		}
	}

	appt := Appointment{
		ID:               uuid.New(),
		PatientID:        patientID,
		Date:             draft.Date,
		Time:             draft.Time,
		AppointmentType:  draft.AppointmentType,
		DoctorPreference: draft.DoctorPreference,
		IsEmergency:      draft.IsEmergency,
		Status:           "scheduled",
		CreatedAt:        now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO appointments (id, patient_id, appointment_date, appointment_time,
		                           appointment_type, doctor_preference, is_emergency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		appt.ID, appt.PatientID, appt.Date, appt.Time,
		appt.AppointmentType, appt.DoctorPreference, appt.IsEmergency, appt.Status, appt.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("booking: insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("booking: commit: %w", err)
	}
	return &appt, nil
}
