package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-scheduling/internal/auth"
	"github.com/vitalcare/clinic-scheduling/internal/review"
	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

// staticVerifier maps known bearer tokens to principals.
type staticVerifier map[string]auth.Principal

func (v staticVerifier) Verify(token string) (auth.Principal, error) {
	p, ok := v[token]
	if !ok {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return p, nil
}

type fakeSchedRepo struct {
	mu            sync.Mutex
	professionals map[uuid.UUID]*scheduling.Professional
	patients      map[uuid.UUID]*scheduling.Patient
	services      map[uuid.UUID]*scheduling.CareService
	hours         map[uuid.UUID]map[int]*scheduling.WorkingHours
	appointments  map[uuid.UUID]*scheduling.Appointment
}

func newFakeSchedRepo() *fakeSchedRepo {
	return &fakeSchedRepo{
		professionals: make(map[uuid.UUID]*scheduling.Professional),
		patients:      make(map[uuid.UUID]*scheduling.Patient),
		services:      make(map[uuid.UUID]*scheduling.CareService),
		hours:         make(map[uuid.UUID]map[int]*scheduling.WorkingHours),
		appointments:  make(map[uuid.UUID]*scheduling.Appointment),
	}
}

func (r *fakeSchedRepo) GetProfessionalByID(_ context.Context, id uuid.UUID) (*scheduling.Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.professionals[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, scheduling.ErrProfessionalNotFound
}

func (r *fakeSchedRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*scheduling.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, scheduling.ErrPatientNotFound
}

func (r *fakeSchedRepo) GetServiceByID(_ context.Context, id uuid.UUID) (*scheduling.CareService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.services[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, scheduling.ErrServiceNotFound
}

func (r *fakeSchedRepo) ListServices(_ context.Context) ([]scheduling.CareService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scheduling.CareService, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeSchedRepo) GetWorkingHours(_ context.Context, professionalID uuid.UUID, weekday int) (*scheduling.WorkingHours, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wh, ok := r.hours[professionalID][weekday]; ok {
		cp := *wh
		return &cp, nil
	}
	return nil, scheduling.ErrWorkingHoursNotFound
}

func (r *fakeSchedRepo) ListActiveAppointmentsForDay(_ context.Context, professionalID uuid.UUID, date time.Time) ([]scheduling.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []scheduling.Appointment
	for _, ap := range r.appointments {
		if ap.ProfessionalID == professionalID && ap.Date.Equal(date) && ap.Status.Occupies() {
			out = append(out, *ap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *fakeSchedRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ap, ok := r.appointments[id]; ok {
		cp := *ap
		return &cp, nil
	}
	return nil, scheduling.ErrAppointmentNotFound
}

func (r *fakeSchedRepo) ListAppointmentsForPatient(_ context.Context, patientID uuid.UUID, filter scheduling.ListFilter) ([]scheduling.Appointment, error) {
	return r.listOwned(func(ap *scheduling.Appointment) bool { return ap.PatientID == patientID }, filter)
}

func (r *fakeSchedRepo) ListAppointmentsForProfessional(_ context.Context, professionalID uuid.UUID, filter scheduling.ListFilter) ([]scheduling.Appointment, error) {
	return r.listOwned(func(ap *scheduling.Appointment) bool { return ap.ProfessionalID == professionalID }, filter)
}

func (r *fakeSchedRepo) listOwned(owns func(*scheduling.Appointment) bool, filter scheduling.ListFilter) ([]scheduling.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []scheduling.Appointment{}
	for _, ap := range r.appointments {
		if !owns(ap) {
			continue
		}
		if filter.Status != nil && ap.Status != *filter.Status {
			continue
		}
		if filter.Date != nil && !ap.Date.Equal(*filter.Date) {
			continue
		}
		out = append(out, *ap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *fakeSchedRepo) CreateAppointment(_ context.Context, ap *scheduling.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ap
	r.appointments[ap.ID] = &cp
	return nil
}

func (r *fakeSchedRepo) UpdateAppointment(_ context.Context, ap *scheduling.Appointment, from scheduling.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appointments[ap.ID]
	if !ok {
		return scheduling.ErrAppointmentNotFound
	}
	if stored.Status != from {
		return &scheduling.StateError{From: stored.Status, To: ap.Status}
	}
	cp := *ap
	r.appointments[ap.ID] = &cp
	return nil
}

func (r *fakeSchedRepo) FindUnremindedStartingWithin(context.Context, time.Time, time.Duration) ([]scheduling.Appointment, error) {
	return nil, nil
}

func (r *fakeSchedRepo) MarkReminderSent(context.Context, uuid.UUID, time.Time) error { return nil }

func (r *fakeSchedRepo) InsertEvent(context.Context, scheduling.EventLog) error { return nil }

type fakeLocker struct {
	mu sync.Mutex
}

func (l *fakeLocker) WithCalendarLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]*review.Review
	stats   map[uuid.UUID]*review.Stats
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{
		reviews: make(map[uuid.UUID]*review.Review),
		stats:   make(map[uuid.UUID]*review.Stats),
	}
}

func (r *fakeReviewRepo) GetByID(_ context.Context, id uuid.UUID) (*review.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rv, ok := r.reviews[id]; ok {
		cp := *rv
		return &cp, nil
	}
	return nil, review.ErrReviewNotFound
}

func (r *fakeReviewRepo) GetByAppointmentID(_ context.Context, appointmentID uuid.UUID) (*review.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range r.reviews {
		if rv.AppointmentID == appointmentID {
			cp := *rv
			return &cp, nil
		}
	}
	return nil, review.ErrReviewNotFound
}

func (r *fakeReviewRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]review.Review, error) {
	return r.list(func(rv *review.Review) bool { return rv.PatientID == patientID }), nil
}

func (r *fakeReviewRepo) ListByProfessional(_ context.Context, professionalID uuid.UUID) ([]review.Review, error) {
	return r.list(func(rv *review.Review) bool { return rv.ProfessionalID == professionalID }), nil
}

func (r *fakeReviewRepo) list(owns func(*review.Review) bool) []review.Review {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []review.Review{}
	for _, rv := range r.reviews {
		if owns(rv) {
			out = append(out, *rv)
		}
	}
	return out
}

func (r *fakeReviewRepo) CreateWithStats(_ context.Context, rv *review.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.AppointmentID == rv.AppointmentID {
			return review.ErrReviewExists
		}
	}
	cp := *rv
	r.reviews[rv.ID] = &cp
	r.statsFor(rv.ProfessionalID).ApplyCreated(rv.Rating)
	return nil
}

func (r *fakeReviewRepo) DeleteWithStats(_ context.Context, rv *review.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[rv.ID]; !ok {
		return review.ErrReviewNotFound
	}
	delete(r.reviews, rv.ID)
	r.statsFor(rv.ProfessionalID).ApplyDeleted(rv.Rating)
	return nil
}

func (r *fakeReviewRepo) GetStats(_ context.Context, professionalID uuid.UUID) (*review.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.statsFor(professionalID)
	return &cp, nil
}

func (r *fakeReviewRepo) RecomputeStats(_ context.Context, professionalID uuid.UUID) (*review.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reviews []review.Review
	for _, rv := range r.reviews {
		if rv.ProfessionalID == professionalID {
			reviews = append(reviews, *rv)
		}
	}
	fresh := review.Recompute(professionalID, reviews)
	r.stats[professionalID] = &fresh
	cp := fresh
	return &cp, nil
}

func (r *fakeReviewRepo) InsertEvent(context.Context, string, uuid.UUID, []byte) error { return nil }

func (r *fakeReviewRepo) statsFor(professionalID uuid.UUID) *review.Stats {
	s, ok := r.stats[professionalID]
	if !ok {
		s = &review.Stats{ProfessionalID: professionalID}
		r.stats[professionalID] = s
	}
	return s
}

// testEnv wires a full router over the in-memory fakes.
type testEnv struct {
	router       http.Handler
	schedRepo    *fakeSchedRepo
	reviewRepo   *fakeReviewRepo
	professional *scheduling.Professional
	patient      *scheduling.Patient
	care         *scheduling.CareService

	patientToken      string
	professionalToken string
}

func newTestEnv() *testEnv {
	schedRepo := newFakeSchedRepo()
	reviewRepo := newFakeReviewRepo()

	pro := &scheduling.Professional{ID: uuid.New(), Name: "Dr. Lindqvist", Timezone: "UTC", GranularityMin: 30}
	patient := &scheduling.Patient{ID: uuid.New(), Name: "Marta Silva"}
	care := &scheduling.CareService{ID: uuid.New(), Name: "Consultation", DurationMin: 60, PriceCents: 15000}

	schedRepo.professionals[pro.ID] = pro
	schedRepo.patients[patient.ID] = patient
	schedRepo.services[care.ID] = care
	schedRepo.hours[pro.ID] = make(map[int]*scheduling.WorkingHours)
	for wd := 0; wd < 7; wd++ {
		schedRepo.hours[pro.ID][wd] = &scheduling.WorkingHours{
			ID:             uuid.New(),
			ProfessionalID: pro.ID,
			Weekday:        wd,
			Start:          scheduling.ClockTime(9 * 60),
			End:            scheduling.ClockTime(17 * 60),
			Active:         true,
		}
	}

	calc := scheduling.NewAvailabilityCalculator(schedRepo, 90)
	policy := scheduling.CancellationPolicy{Cutoff: 2 * time.Hour}
	schedSvc := scheduling.NewService(schedRepo, &fakeLocker{}, calc, policy, dropNotifier{}, 24*time.Hour, zerolog.Nop())
	reviewSvc := review.NewService(reviewRepo, schedRepo, zerolog.Nop())

	env := &testEnv{
		schedRepo:         schedRepo,
		reviewRepo:        reviewRepo,
		professional:      pro,
		patient:           patient,
		care:              care,
		patientToken:      "patient-token",
		professionalToken: "professional-token",
	}

	verifier := staticVerifier{
		env.patientToken:      {UserID: patient.ID, Role: auth.RolePatient},
		env.professionalToken: {UserID: pro.ID, Role: auth.RoleProfessional},
	}

	env.router = NewRouter(RouterConfig{
		Scheduling: schedSvc,
		Reviews:    reviewSvc,
		Verifier:   verifier,
		Log:        zerolog.Nop(),
		Env:        "test",
		Version:    "test",
	})
	return env
}

type dropNotifier struct{}

func (dropNotifier) AppointmentEvent(context.Context, string, *scheduling.Appointment) {}
