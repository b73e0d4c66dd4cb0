package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient      Role = "patient"
	RoleProfessional Role = "professional"
)

// ClockTime is a wall-clock time of day expressed as minutes since midnight
// in the professional's own time zone. The engine never converts between
// zones; callers must supply values already local to the professional.
type ClockTime int

// ParseClock parses "HH:MM" (24h) into a ClockTime.
func ParseClock(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

type Professional struct {
	ID             uuid.UUID
	Name           string
	Specialty      *string
	Timezone       string
	GranularityMin int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Location resolves the professional's configured time zone, falling back to
// UTC when the name is empty or unknown.
func (p *Professional) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CareService struct {
	ID          uuid.UUID
	Name        string
	DurationMin int
	PriceCents  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkingHours is the window on one weekday during which a professional
// accepts appointments. Weekday follows time.Weekday (Sunday = 0).
type WorkingHours struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Weekday        int
	Start          ClockTime
	End            ClockTime
	Active         bool
}

type Appointment struct {
	ID                 uuid.UUID
	ProfessionalID     uuid.UUID
	PatientID          uuid.UUID
	ServiceID          uuid.UUID
	Date               time.Time // date only, midnight in the professional's zone
	Start              ClockTime
	DurationMin        int // copied from the service at creation time
	Status             Status
	Notes              string
	CancelledAt        *time.Time
	CancellationReason *string
	ReminderSentAt     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a *Appointment) End() ClockTime {
	return a.Start.Add(a.DurationMin)
}

// StartsAt combines the appointment's date and start time in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		int(a.Start)/60, int(a.Start)%60, 0, 0, loc)
}

// Overlaps reports whether two half-open [start, end) intervals on the same
// date intersect. Back-to-back appointments do not overlap.
func (a *Appointment) Overlaps(start, end ClockTime) bool {
	return a.Start < end && start < a.End()
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
