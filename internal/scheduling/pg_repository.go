package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Specialty,
		&p.Timezone,
		&p.GranularityMin,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanService(row pgx.Row) (*CareService, error) {
	var s CareService
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.DurationMin,
		&s.PriceCents,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var startMin int
	err := row.Scan(
		&a.ID,
		&a.ProfessionalID,
		&a.PatientID,
		&a.ServiceID,
		&a.Date,
		&startMin,
		&a.DurationMin,
		&a.Status,
		&a.Notes,
		&a.CancelledAt,
		&a.CancellationReason,
		&a.ReminderSentAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Start = ClockTime(startMin)
	return &a, nil
}

const appointmentColumns = `id, professional_id, patient_id, service_id, date, start_min, duration_min,
		status, notes, cancelled_at, cancellation_reason, reminder_sent_at, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, timezone, granularity_min, created_at, updated_at
		FROM professionals
		WHERE id = $1
	`, id)
	return scanProfessional(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*CareService, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, duration_min, price_cents, created_at, updated_at
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgRepository) ListServices(ctx context.Context) ([]CareService, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, duration_min, price_cents, created_at, updated_at
		FROM services
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CareService
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetWorkingHours(ctx context.Context, professionalID uuid.UUID, weekday int) (*WorkingHours, error) {
	var wh WorkingHours
	var start, end int
	err := r.pool.QueryRow(ctx, `
		SELECT id, professional_id, weekday, start_min, end_min, active
		FROM working_hours
		WHERE professional_id = $1 AND weekday = $2
	`, professionalID, weekday).Scan(
		&wh.ID,
		&wh.ProfessionalID,
		&wh.Weekday,
		&start,
		&end,
		&wh.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkingHoursNotFound
		}
		return nil, err
	}
	wh.Start = ClockTime(start)
	wh.End = ClockTime(end)
	return &wh, nil
}

func (r *PgRepository) ListActiveAppointmentsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND date = $2
		  AND status IN ('scheduled', 'confirmed', 'in_progress')
		ORDER BY start_min
	`, professionalID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsForPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	return r.listAppointments(ctx, "patient_id", patientID, filter)
}

func (r *PgRepository) ListAppointmentsForProfessional(ctx context.Context, professionalID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	return r.listAppointments(ctx, "professional_id", professionalID, filter)
}

func (r *PgRepository) listAppointments(ctx context.Context, ownerColumn string, ownerID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	// ownerColumn is one of two fixed identifiers, never caller input.
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE ` + ownerColumn + ` = $1`
	args := []any{ownerID}

	if filter.Date != nil {
		args = append(args, *filter.Date)
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY date DESC, start_min"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, ap *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, professional_id, patient_id, service_id, date, start_min,
			duration_min, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at
	`, ap.ID, ap.ProfessionalID, ap.PatientID, ap.ServiceID, ap.Date, int(ap.Start),
		ap.DurationMin, ap.Status, ap.Notes)

	return row.Scan(&ap.CreatedAt, &ap.UpdatedAt)
}

// UpdateAppointment is a compare-and-swap on the status column: the row is
// written only while it still holds the status the caller read. A lost race
// comes back as a *StateError built from the winner's status.
func (r *PgRepository) UpdateAppointment(ctx context.Context, ap *Appointment, from Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = $3,
		    cancelled_at = $4,
		    cancellation_reason = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status = $6
	`, ap.ID, ap.Status, ap.Notes, ap.CancelledAt, ap.CancellationReason, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetAppointmentByID(ctx, ap.ID)
		if err != nil {
			return err
		}
		return &StateError{From: current.Status, To: ap.Status}
	}
	return nil
}

func (r *PgRepository) FindUnremindedStartingWithin(ctx context.Context, now time.Time, lead time.Duration) ([]Appointment, error) {
	// date + start_min is a wall-clock value in the professional's zone;
	// AT TIME ZONE anchors it there before comparing against the absolute
	// window edges.
	until := now.Add(lead)
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.professional_id, a.patient_id, a.service_id, a.date, a.start_min, a.duration_min,
			a.status, a.notes, a.cancelled_at, a.cancellation_reason, a.reminder_sent_at, a.created_at, a.updated_at
		FROM appointments a
		JOIN professionals p ON p.id = a.professional_id
		WHERE a.status IN ('scheduled', 'confirmed')
		  AND a.reminder_sent_at IS NULL
		  AND (a.date + make_interval(mins => a.start_min)) AT TIME ZONE p.timezone BETWEEN $1 AND $2
		ORDER BY a.date, a.start_min
	`, now, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND reminder_sent_at IS NULL
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}
	return nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
