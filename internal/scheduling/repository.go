package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the reservation service
// and the availability calculator.
type Repository interface {
	GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*CareService, error)
	ListServices(ctx context.Context) ([]CareService, error)

	GetWorkingHours(ctx context.Context, professionalID uuid.UUID, weekday int) (*WorkingHours, error)

	// ListActiveAppointmentsForDay returns the appointments that occupy the
	// professional's calendar on the given date (status scheduled, confirmed
	// or in_progress), ordered by start time.
	ListActiveAppointmentsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsForPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error)
	ListAppointmentsForProfessional(ctx context.Context, professionalID uuid.UUID, filter ListFilter) ([]Appointment, error)

	CreateAppointment(ctx context.Context, ap *Appointment) error

	// UpdateAppointment writes the appointment back only if its stored status
	// still equals from. When another writer got there first the update is
	// refused with a *StateError carrying the current status, so a terminal
	// state can never be overwritten by a stale read.
	UpdateAppointment(ctx context.Context, ap *Appointment, from Status) error

	// Reminder worker support.
	FindUnremindedStartingWithin(ctx context.Context, now time.Time, lead time.Duration) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error

	InsertEvent(ctx context.Context, ev EventLog) error
}

type ListFilter struct {
	Date   *time.Time
	Status *Status
}
