package api

import (
	"errors"
	"net/http"

	"github.com/vitalcare/clinic-scheduling/internal/review"
	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

// handleServiceError translates domain errors into HTTP responses. Every
// sentinel the services can surface has a stable error code here; anything
// unmatched is a 500.
func handleServiceError(w http.ResponseWriter, err error) {
	for _, v := range scheduling.ValidationErrors {
		if errors.Is(err, v) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	var stateErr *scheduling.StateError
	if errors.As(err, &stateErr) {
		writeError(w, http.StatusConflict, "invalid_status_transition", stateErr.Error())
		return
	}

	switch {
	case errors.Is(err, review.ErrRatingOutOfRange),
		errors.Is(err, review.ErrCommentTooLong):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, scheduling.ErrForbidden),
		errors.Is(err, scheduling.ErrOnlyPatientsMayBook),
		errors.Is(err, review.ErrNotAppointmentPatient),
		errors.Is(err, review.ErrNotReviewAuthor):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())

	case errors.Is(err, scheduling.ErrCancellationTooLate):
		writeError(w, http.StatusForbidden, "cancellation_window_closed", err.Error())

	case errors.Is(err, scheduling.ErrProfessionalNotFound),
		errors.Is(err, scheduling.ErrPatientNotFound),
		errors.Is(err, scheduling.ErrServiceNotFound),
		errors.Is(err, scheduling.ErrAppointmentNotFound),
		errors.Is(err, review.ErrReviewNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())

	case errors.Is(err, scheduling.ErrCalendarContended):
		writeError(w, http.StatusConflict, "calendar_contended", "calendar is being modified, please retry shortly")

	case errors.Is(err, review.ErrReviewExists):
		writeError(w, http.StatusConflict, "review_exists", err.Error())

	case errors.Is(err, review.ErrAppointmentNotCompleted):
		writeError(w, http.StatusConflict, "appointment_not_completed", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
