package review

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

// memRepo keeps reviews and the per-professional aggregate in step the way
// the transactional Postgres repository does.
type memRepo struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]*Review
	stats   map[uuid.UUID]*Stats
}

func newMemRepo() *memRepo {
	return &memRepo{
		reviews: make(map[uuid.UUID]*Review),
		stats:   make(map[uuid.UUID]*Stats),
	}
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r *memRepo) GetByAppointmentID(_ context.Context, appointmentID uuid.UUID) (*Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range r.reviews {
		if rv.AppointmentID == appointmentID {
			cp := *rv
			return &cp, nil
		}
	}
	return nil, ErrReviewNotFound
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Review, error) {
	return r.list(func(rv *Review) bool { return rv.PatientID == patientID }), nil
}

func (r *memRepo) ListByProfessional(_ context.Context, professionalID uuid.UUID) ([]Review, error) {
	return r.list(func(rv *Review) bool { return rv.ProfessionalID == professionalID }), nil
}

func (r *memRepo) list(owns func(*Review) bool) []Review {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Review{}
	for _, rv := range r.reviews {
		if owns(rv) {
			out = append(out, *rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (r *memRepo) CreateWithStats(_ context.Context, rv *Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.AppointmentID == rv.AppointmentID {
			return ErrReviewExists
		}
	}

	cp := *rv
	r.reviews[rv.ID] = &cp
	r.statsFor(rv.ProfessionalID).ApplyCreated(rv.Rating)
	return nil
}

func (r *memRepo) DeleteWithStats(_ context.Context, rv *Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[rv.ID]; !ok {
		return ErrReviewNotFound
	}
	delete(r.reviews, rv.ID)
	r.statsFor(rv.ProfessionalID).ApplyDeleted(rv.Rating)
	return nil
}

func (r *memRepo) GetStats(_ context.Context, professionalID uuid.UUID) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.statsFor(professionalID)
	return &cp, nil
}

func (r *memRepo) RecomputeStats(_ context.Context, professionalID uuid.UUID) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reviews []Review
	for _, rv := range r.reviews {
		if rv.ProfessionalID == professionalID {
			reviews = append(reviews, *rv)
		}
	}
	fresh := Recompute(professionalID, reviews)
	r.stats[professionalID] = &fresh
	cp := fresh
	return &cp, nil
}

func (r *memRepo) InsertEvent(context.Context, string, uuid.UUID, []byte) error {
	return nil
}

func (r *memRepo) statsFor(professionalID uuid.UUID) *Stats {
	s, ok := r.stats[professionalID]
	if !ok {
		s = &Stats{ProfessionalID: professionalID}
		r.stats[professionalID] = s
	}
	return s
}

// memAppointments is a fixed appointment lookup standing in for the
// scheduling repository.
type memAppointments struct {
	byID map[uuid.UUID]*scheduling.Appointment
}

func newMemAppointments(aps ...*scheduling.Appointment) *memAppointments {
	m := &memAppointments{byID: make(map[uuid.UUID]*scheduling.Appointment)}
	for _, ap := range aps {
		m.byID[ap.ID] = ap
	}
	return m
}

func (m *memAppointments) GetAppointmentByID(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	ap, ok := m.byID[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	cp := *ap
	return &cp, nil
}
