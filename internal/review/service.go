package review

import (
	"context"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-scheduling/internal/auth"
	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

const (
	EventReviewCreated = "review_created"
	EventReviewDeleted = "review_deleted"
)

// AppointmentSource is the slice of the scheduling layer the review gate
// needs: a way to load the appointment under review.
type AppointmentSource interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

// Service is the review gate and the entry point for rating aggregation. It
// decides who may review what, and guarantees that every review that exists
// has been folded into the professional's stats.
type Service struct {
	repo         Repository
	appointments AppointmentSource
	log          zerolog.Logger
}

func NewService(repo Repository, appointments AppointmentSource, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		log:          log,
	}
}

// CanReview answers the advisory read-side eligibility question. CreateReview
// re-validates everything at write time; callers must not treat an eligible
// answer as a reservation.
func (s *Service) CanReview(ctx context.Context, appointmentID, patientID uuid.UUID) (Eligibility, error) {
	ap, err := s.appointments.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, scheduling.ErrAppointmentNotFound) {
			return Eligibility{Reason: "appointment does not exist"}, nil
		}
		return Eligibility{}, err
	}

	if ap.PatientID != patientID {
		return Eligibility{Reason: "appointment belongs to another patient"}, nil
	}
	if ap.Status != scheduling.StatusCompleted {
		return Eligibility{Reason: "appointment is not completed"}, nil
	}

	if _, err := s.repo.GetByAppointmentID(ctx, appointmentID); err == nil {
		return Eligibility{Reason: "appointment already has a review"}, nil
	} else if !errors.Is(err, ErrReviewNotFound) {
		return Eligibility{}, err
	}

	return Eligibility{Eligible: true}, nil
}

type CreateInput struct {
	AppointmentID uuid.UUID
	Rating        int
	Comment       string
}

// CreateReview validates eligibility at write time and creates the review
// together with its stats contribution. A concurrent duplicate attempt loses
// on the appointment's unique review constraint and gets ErrReviewExists.
func (s *Service) CreateReview(ctx context.Context, principal auth.Principal, in CreateInput) (*Review, error) {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return nil, ErrRatingOutOfRange
	}
	if utf8.RuneCountInString(in.Comment) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	ap, err := s.appointments.GetAppointmentByID(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}

	if !principal.IsPatient() || principal.UserID != ap.PatientID {
		return nil, ErrNotAppointmentPatient
	}
	if ap.Status != scheduling.StatusCompleted {
		return nil, ErrAppointmentNotCompleted
	}

	rv := &Review{
		ID:             uuid.New(),
		AppointmentID:  ap.ID,
		PatientID:      ap.PatientID,
		ProfessionalID: ap.ProfessionalID,
		Rating:         in.Rating,
		Comment:        in.Comment,
	}

	if err := s.repo.CreateWithStats(ctx, rv); err != nil {
		return nil, err
	}

	s.logEvent(ctx, EventReviewCreated, ap.ID, map[string]any{
		"review_id": rv.ID.String(),
		"rating":    rv.Rating,
	})

	return rv, nil
}

// DeleteReview removes a review on behalf of its author and rolls its rating
// back out of the professional's stats.
func (s *Service) DeleteReview(ctx context.Context, principal auth.Principal, reviewID uuid.UUID) error {
	rv, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}

	if !principal.IsPatient() || principal.UserID != rv.PatientID {
		return ErrNotReviewAuthor
	}

	if err := s.repo.DeleteWithStats(ctx, rv); err != nil {
		return err
	}

	s.logEvent(ctx, EventReviewDeleted, rv.AppointmentID, map[string]any{
		"review_id": rv.ID.String(),
		"rating":    rv.Rating,
	})

	return nil
}

// Stats returns the professional's cached aggregate.
func (s *Service) Stats(ctx context.Context, professionalID uuid.UUID) (*Stats, error) {
	return s.repo.GetStats(ctx, professionalID)
}

// Reconcile rebuilds the aggregate from the review set. The result should
// match the incremental state; a mismatch would mean a write reached one side
// without the other and is logged loudly.
func (s *Service) Reconcile(ctx context.Context, professionalID uuid.UUID) (*Stats, error) {
	before, err := s.repo.GetStats(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	fresh, err := s.repo.RecomputeStats(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	if !before.Equal(fresh) {
		s.log.Warn().
			Str("professional_id", professionalID.String()).
			Int("cached_total", before.TotalReviews).
			Int("recomputed_total", fresh.TotalReviews).
			Msg("stats drift corrected by reconcile")
	}

	return fresh, nil
}

func (s *Service) ListForProfessional(ctx context.Context, professionalID uuid.UUID) ([]Review, error) {
	return s.repo.ListByProfessional(ctx, professionalID)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Review, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) logEvent(ctx context.Context, eventType string, appointmentID uuid.UUID, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}
	if err := s.repo.InsertEvent(ctx, eventType, appointmentID, data); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("insert review event")
	}
}
