package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitalcare/clinic-scheduling/internal/review"
	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

type CreateAppointmentRequest struct {
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Notes          string `json:"notes,omitempty"`
}

type UpdateAppointmentRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ProfessionalID     uuid.UUID  `json:"professional_id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	ServiceID          uuid.UUID  `json:"service_id"`
	Date               string     `json:"date"`
	Start              string     `json:"start"`
	End                string     `json:"end"`
	DurationMin        int        `json:"duration_min"`
	Status             string     `json:"status"`
	Notes              string     `json:"notes,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CanBeCancelled     bool       `json:"can_be_cancelled"`
	IsPastDue          bool       `json:"is_past_due"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func newAppointmentResponse(ap *scheduling.Appointment, canCancel, pastDue bool) AppointmentResponse {
	return AppointmentResponse{
		ID:                 ap.ID,
		ProfessionalID:     ap.ProfessionalID,
		PatientID:          ap.PatientID,
		ServiceID:          ap.ServiceID,
		Date:               ap.Date.Format("2006-01-02"),
		Start:              ap.Start.String(),
		End:                ap.End().String(),
		DurationMin:        ap.DurationMin,
		Status:             string(ap.Status),
		Notes:              ap.Notes,
		CancelledAt:        ap.CancelledAt,
		CancellationReason: ap.CancellationReason,
		CanBeCancelled:     canCancel,
		IsPastDue:          pastDue,
		CreatedAt:          ap.CreatedAt,
		UpdatedAt:          ap.UpdatedAt,
	}
}

type SlotsResponse struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	ServiceID      uuid.UUID `json:"service_id"`
	Date           string    `json:"date"`
	Slots          []string  `json:"slots"`
}

type ServiceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DurationMin int       `json:"duration_min"`
	PriceCents  int64     `json:"price_cents"`
}

type CreateReviewRequest struct {
	AppointmentID string `json:"appointment_id"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment,omitempty"`
}

type ReviewResponse struct {
	ID             uuid.UUID `json:"id"`
	AppointmentID  uuid.UUID `json:"appointment_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func newReviewResponse(rv *review.Review) ReviewResponse {
	return ReviewResponse{
		ID:             rv.ID,
		AppointmentID:  rv.AppointmentID,
		PatientID:      rv.PatientID,
		ProfessionalID: rv.ProfessionalID,
		Rating:         rv.Rating,
		Comment:        rv.Comment,
		CreatedAt:      rv.CreatedAt,
	}
}

type StatsResponse struct {
	ProfessionalID uuid.UUID       `json:"professional_id"`
	TotalReviews   int             `json:"total_reviews"`
	AverageRating  *float64        `json:"average_rating"`
	Distribution   map[int]float64 `json:"distribution"`
}

type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
