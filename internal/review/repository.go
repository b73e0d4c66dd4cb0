package review

import (
	"context"

	"github.com/google/uuid"
)

// Repository contains the review and stats DB interactions. The two write
// methods are transactional: a review never exists without its effect on the
// professional's stats.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Review, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Review, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]Review, error)

	// CreateWithStats inserts the review and folds its rating into the
	// professional's aggregate in one transaction. Returns ErrReviewExists
	// when the appointment already has a review.
	CreateWithStats(ctx context.Context, rv *Review) error

	// DeleteWithStats removes the review and its contribution to the
	// aggregate in one transaction.
	DeleteWithStats(ctx context.Context, rv *Review) error

	// GetStats returns the cached aggregate, zero-valued when the
	// professional has no reviews yet.
	GetStats(ctx context.Context, professionalID uuid.UUID) (*Stats, error)

	// RecomputeStats rebuilds the aggregate from the review set and stores
	// it, returning the fresh state. Reconciliation entry point.
	RecomputeStats(ctx context.Context, professionalID uuid.UUID) (*Stats, error)

	InsertEvent(ctx context.Context, eventType string, appointmentID uuid.UUID, payload []byte) error
}
