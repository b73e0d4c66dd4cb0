package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-scheduling/internal/auth"
	redisclient "github.com/vitalcare/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentCreated   = "appointment_created"
	EventAppointmentConfirmed = "appointment_confirmed"
	EventAppointmentCancelled = "appointment_cancelled"
	EventAppointmentStarted   = "appointment_started"
	EventAppointmentCompleted = "appointment_completed"
	EventAppointmentNoShow    = "appointment_no_show"
	EventAppointmentReminder  = "appointment_reminder"
)

// Notifier is the fire-and-forget delivery channel. Implementations must not
// fail the calling operation: delivery problems are theirs to log and drop.
type Notifier interface {
	AppointmentEvent(ctx context.Context, eventType string, ap *Appointment)
}

// Service is the reservation manager: it owns booking creation under the
// calendar lock, drives status transitions through the state machine rules,
// and is the sole authority on whether a slot is really free.
type Service struct {
	repo         Repository
	locker       redisclient.Locker
	calc         *AvailabilityCalculator
	policy       CancellationPolicy
	notifier     Notifier
	reminderLead time.Duration
	log          zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, calc *AvailabilityCalculator, policy CancellationPolicy, notifier Notifier, reminderLead time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		locker:       locker,
		calc:         calc,
		policy:       policy,
		notifier:     notifier,
		reminderLead: reminderLead,
		log:          log,
	}
}

type CreateInput struct {
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	Date           string // YYYY-MM-DD in the professional's zone
	Time           string // HH:MM in the professional's zone
	Notes          string
}

// AvailableSlots answers the advisory availability query. Results may be
// stale by the time a create call arrives; Create re-validates.
func (s *Service) AvailableSlots(ctx context.Context, professionalID, serviceID uuid.UUID, date string) ([]ClockTime, error) {
	svc, err := s.repo.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	return s.calc.AvailableSlots(ctx, professionalID, day, svc.DurationMin)
}

// Create books an appointment for the calling patient. The overlap check runs
// again inside the calendar lock so that two concurrent requests for
// conflicting slots end as one success and one ErrSlotTaken.
func (s *Service) Create(ctx context.Context, principal auth.Principal, in CreateInput) (*Appointment, error) {
	if !principal.IsPatient() {
		return nil, ErrOnlyPatientsMayBook
	}

	if _, err := s.repo.GetPatientByID(ctx, principal.UserID); err != nil {
		return nil, err
	}

	pro, err := s.repo.GetProfessionalByID(ctx, in.ProfessionalID)
	if err != nil {
		return nil, err
	}

	svc, err := s.repo.GetServiceByID(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}

	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}

	start, err := ParseClock(in.Time)
	if err != nil {
		return nil, ErrInvalidTime
	}
	end := start.Add(svc.DurationMin)

	today := Midnight(time.Now().In(pro.Location()))
	if err := s.calc.ValidateDate(date, today); err != nil {
		return nil, err
	}

	wh, err := s.repo.GetWorkingHours(ctx, pro.ID, int(date.Weekday()))
	if err != nil {
		if errors.Is(err, ErrWorkingHoursNotFound) {
			return nil, ErrOutsideWorkingHours
		}
		return nil, err
	}
	if !wh.Active || start < wh.Start || end > wh.End {
		return nil, ErrOutsideWorkingHours
	}

	ap := &Appointment{
		ID:             uuid.New(),
		ProfessionalID: pro.ID,
		PatientID:      principal.UserID,
		ServiceID:      svc.ID,
		Date:           date,
		Start:          start,
		DurationMin:    svc.DurationMin,
		Status:         StatusScheduled,
		Notes:          in.Notes,
	}

	err = s.locker.WithCalendarLock(ctx, pro.ID, date, func(lockCtx context.Context) error {
		// Availability answered before this point is advisory only: re-read
		// the calendar inside the critical section before inserting.
		taken, err := s.repo.ListActiveAppointmentsForDay(lockCtx, pro.ID, date)
		if err != nil {
			return fmt.Errorf("recheck calendar: %w", err)
		}
		for i := range taken {
			if taken[i].Overlaps(start, end) {
				return ErrSlotTaken
			}
		}

		if err := s.repo.CreateAppointment(lockCtx, ap); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		s.logEvent(lockCtx, ap.ID, EventAppointmentCreated, map[string]any{
			"professional_id": pro.ID.String(),
			"patient_id":      principal.UserID.String(),
			"date":            in.Date,
			"start":           start.String(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarContended
		}
		return nil, err
	}

	s.notifier.AppointmentEvent(ctx, EventAppointmentCreated, ap)

	return ap, nil
}

// Cancel moves an appointment to cancelled on behalf of its patient or its
// assigned professional. Patient cancellations are additionally bound by the
// cancellation-window policy. The slot is free again as soon as the status is
// written: availability derives live from current statuses.
func (s *Service) Cancel(ctx context.Context, principal auth.Principal, appointmentID uuid.UUID, reason string) (*Appointment, error) {
	ap, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	role, err := actorRole(principal, ap)
	if err != nil {
		return nil, err
	}

	if err := CanTransition(ap.Status, StatusCancelled); err != nil {
		return nil, err
	}

	pro, err := s.repo.GetProfessionalByID(ctx, ap.ProfessionalID)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(pro.Location())
	if role == RolePatient && !s.policy.PatientMayCancel(ap, pro.Location(), now) {
		return nil, ErrCancellationTooLate
	}

	from := ap.Status
	ap.Status = StatusCancelled
	ap.CancelledAt = &now
	if reason != "" {
		ap.CancellationReason = &reason
	}

	if err := s.repo.UpdateAppointment(ctx, ap, from); err != nil {
		return nil, err
	}

	s.logEvent(ctx, ap.ID, EventAppointmentCancelled, map[string]any{
		"actor":  string(role),
		"reason": reason,
	})
	s.notifier.AppointmentEvent(ctx, EventAppointmentCancelled, ap)

	return ap, nil
}

// UpdateStatus drives one appointment through the state machine on behalf of
// the caller. Cancellation requests are delegated to Cancel so the window
// policy applies on that path too.
func (s *Service) UpdateStatus(ctx context.Context, principal auth.Principal, appointmentID uuid.UUID, target Status, reason string) (*Appointment, error) {
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}
	if target == StatusCancelled {
		return s.Cancel(ctx, principal, appointmentID, reason)
	}

	ap, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	role, err := actorRole(principal, ap)
	if err != nil {
		return nil, err
	}

	if err := CanTransition(ap.Status, target); err != nil {
		return nil, err
	}
	if !RoleMayTransition(role, ap.Status, target) {
		return nil, ErrForbidden
	}

	from := ap.Status
	ap.Status = target

	if err := s.repo.UpdateAppointment(ctx, ap, from); err != nil {
		return nil, err
	}

	eventType := statusEventType(target)
	s.logEvent(ctx, ap.ID, eventType, map[string]any{
		"from":  string(from),
		"to":    string(target),
		"actor": string(role),
	})
	s.notifier.AppointmentEvent(ctx, eventType, ap)

	return ap, nil
}

// Get returns one appointment, visible only to its patient or its
// professional.
func (s *Service) Get(ctx context.Context, principal auth.Principal, appointmentID uuid.UUID) (*Appointment, error) {
	ap, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if _, err := actorRole(principal, ap); err != nil {
		return nil, err
	}
	return ap, nil
}

// List returns the caller's own appointments: bookings made for patients,
// calendar entries for professionals.
func (s *Service) List(ctx context.Context, principal auth.Principal, filter ListFilter) ([]Appointment, error) {
	if principal.IsProfessional() {
		return s.repo.ListAppointmentsForProfessional(ctx, principal.UserID, filter)
	}
	return s.repo.ListAppointmentsForPatient(ctx, principal.UserID, filter)
}

func (s *Service) ListServices(ctx context.Context) ([]CareService, error) {
	return s.repo.ListServices(ctx)
}

// CanBeCancelled evaluates the cancellation policy for display purposes.
func (s *Service) CanBeCancelled(ap *Appointment, loc *time.Location) bool {
	return s.policy.CanBeCancelled(ap, loc, time.Now().In(loc))
}

// Flags computes the display booleans attached to appointment responses,
// evaluated in the professional's own zone.
func (s *Service) Flags(ctx context.Context, ap *Appointment) (canCancel, pastDue bool, err error) {
	pro, err := s.repo.GetProfessionalByID(ctx, ap.ProfessionalID)
	if err != nil {
		return false, false, err
	}
	loc := pro.Location()
	now := time.Now().In(loc)
	canCancel = s.policy.CanBeCancelled(ap, loc, now)
	pastDue = ap.Status.Occupies() && ap.StartsAt(loc).Before(now)
	return canCancel, pastDue, nil
}

// SendDueReminders is called periodically by the reminder worker. Each
// appointment is marked before the notification fires, so a crashed delivery
// is dropped rather than repeated.
func (s *Service) SendDueReminders(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := s.repo.FindUnremindedStartingWithin(ctx, now, s.reminderLead)
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	sent := 0
	for i := range due {
		ap := due[i]
		if err := s.repo.MarkReminderSent(ctx, ap.ID, now); err != nil {
			s.log.Error().Err(err).Str("appointment_id", ap.ID.String()).Msg("mark reminder sent")
			continue
		}
		s.notifier.AppointmentEvent(ctx, EventAppointmentReminder, &ap)
		s.logEvent(ctx, ap.ID, EventAppointmentReminder, map[string]any{})
		sent++
	}

	return sent, nil
}

func statusEventType(target Status) string {
	switch target {
	case StatusConfirmed:
		return EventAppointmentConfirmed
	case StatusInProgress:
		return EventAppointmentStarted
	case StatusCompleted:
		return EventAppointmentCompleted
	case StatusNoShow:
		return EventAppointmentNoShow
	default:
		return "appointment_" + string(target)
	}
}

// actorRole resolves which side of the appointment the principal is on, or
// ErrForbidden when it is on neither.
func actorRole(principal auth.Principal, ap *Appointment) (Role, error) {
	switch {
	case principal.IsPatient() && principal.UserID == ap.PatientID:
		return RolePatient, nil
	case principal.IsProfessional() && principal.UserID == ap.ProfessionalID:
		return RoleProfessional, nil
	default:
		return "", ErrForbidden
	}
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
