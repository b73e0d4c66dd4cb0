package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is a map-backed Repository for tests. All methods are safe for
// concurrent use so booking races can be exercised for real.
type memRepo struct {
	mu            sync.Mutex
	professionals map[uuid.UUID]*Professional
	patients      map[uuid.UUID]*Patient
	services      map[uuid.UUID]*CareService
	hours         map[uuid.UUID]map[int]*WorkingHours
	appointments  map[uuid.UUID]*Appointment
	events        []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{
		professionals: make(map[uuid.UUID]*Professional),
		patients:      make(map[uuid.UUID]*Patient),
		services:      make(map[uuid.UUID]*CareService),
		hours:         make(map[uuid.UUID]map[int]*WorkingHours),
		appointments:  make(map[uuid.UUID]*Appointment),
	}
}

func (r *memRepo) addProfessional(p *Professional) { r.professionals[p.ID] = p }
func (r *memRepo) addPatient(p *Patient)           { r.patients[p.ID] = p }
func (r *memRepo) addService(s *CareService)       { r.services[s.ID] = s }

func (r *memRepo) addHours(professionalID uuid.UUID, weekday int, start, end ClockTime) {
	if r.hours[professionalID] == nil {
		r.hours[professionalID] = make(map[int]*WorkingHours)
	}
	r.hours[professionalID][weekday] = &WorkingHours{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		Weekday:        weekday,
		Start:          start,
		End:            end,
		Active:         true,
	}
}

// addAllWeekHours registers the same window for every weekday so tests do not
// depend on which day of the week they run.
func (r *memRepo) addAllWeekHours(professionalID uuid.UUID, start, end ClockTime) {
	for wd := 0; wd < 7; wd++ {
		r.addHours(professionalID, wd, start, end)
	}
}

func (r *memRepo) GetProfessionalByID(_ context.Context, id uuid.UUID) (*Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.professionals[id]
	if !ok {
		return nil, ErrProfessionalNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetServiceByID(_ context.Context, id uuid.UUID) (*CareService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) ListServices(_ context.Context) ([]CareService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CareService, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) GetWorkingHours(_ context.Context, professionalID uuid.UUID, weekday int) (*WorkingHours, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wh, ok := r.hours[professionalID][weekday]
	if !ok {
		return nil, ErrWorkingHoursNotFound
	}
	cp := *wh
	return &cp, nil
}

func (r *memRepo) ListActiveAppointmentsForDay(_ context.Context, professionalID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, ap := range r.appointments {
		if ap.ProfessionalID == professionalID && sameDate(ap.Date, date) && ap.Status.Occupies() {
			out = append(out, *ap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ap, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *ap
	return &cp, nil
}

func (r *memRepo) ListAppointmentsForPatient(_ context.Context, patientID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	return r.list(func(ap *Appointment) bool { return ap.PatientID == patientID }, filter)
}

func (r *memRepo) ListAppointmentsForProfessional(_ context.Context, professionalID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	return r.list(func(ap *Appointment) bool { return ap.ProfessionalID == professionalID }, filter)
}

func (r *memRepo) list(owns func(*Appointment) bool, filter ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Appointment{}
	for _, ap := range r.appointments {
		if !owns(ap) {
			continue
		}
		if filter.Date != nil && !sameDate(ap.Date, *filter.Date) {
			continue
		}
		if filter.Status != nil && ap.Status != *filter.Status {
			continue
		}
		out = append(out, *ap)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (r *memRepo) CreateAppointment(_ context.Context, ap *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ap
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.appointments[ap.ID] = &cp
	return nil
}

func (r *memRepo) UpdateAppointment(_ context.Context, ap *Appointment, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appointments[ap.ID]
	if !ok {
		return ErrAppointmentNotFound
	}
	if stored.Status != from {
		return &StateError{From: stored.Status, To: ap.Status}
	}
	cp := *ap
	cp.UpdatedAt = time.Now()
	r.appointments[ap.ID] = &cp
	return nil
}

func (r *memRepo) FindUnremindedStartingWithin(_ context.Context, now time.Time, lead time.Duration) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, ap := range r.appointments {
		if ap.ReminderSentAt != nil || !ap.Status.Occupies() {
			continue
		}
		loc := time.UTC
		if pro, ok := r.professionals[ap.ProfessionalID]; ok {
			loc = pro.Location()
		}
		startsAt := ap.StartsAt(loc)
		if startsAt.After(now) && startsAt.Before(now.Add(lead)) {
			out = append(out, *ap)
		}
	}
	return out, nil
}

func (r *memRepo) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ap, ok := r.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	if ap.ReminderSentAt == nil {
		ap.ReminderSentAt = &at
	}
	return nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// mutexLocker serializes critical sections the way the Redis calendar lock
// does in production, minus the network.
type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) WithCalendarLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

type nopNotifier struct{}

func (nopNotifier) AppointmentEvent(context.Context, string, *Appointment) {}
