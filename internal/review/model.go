package review

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

// Review is a patient-authored rating of one completed appointment. At most
// one review exists per appointment; the professional reference is copied
// from the appointment so stats never need a join back.
type Review struct {
	ID             uuid.UUID
	AppointmentID  uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	Rating         int
	Comment        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Eligibility is the answer to "may this patient review this appointment".
// Reason is set when Eligible is false.
type Eligibility struct {
	Eligible bool
	Reason   string
}
