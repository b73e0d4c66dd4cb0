package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vitalcare/clinic-scheduling/internal/review"
)

func createReviewHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		var req CreateReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		rv, err := svc.CreateReview(r.Context(), principal, review.CreateInput{
			AppointmentID: appointmentID,
			Rating:        req.Rating,
			Comment:       req.Comment,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newReviewResponse(rv))
	}
}

func listOwnReviewsHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		var (
			reviews []review.Review
			err     error
		)
		if principal.IsProfessional() {
			reviews, err = svc.ListForProfessional(r.Context(), principal.UserID)
		} else {
			reviews, err = svc.ListForPatient(r.Context(), principal.UserID)
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, reviewList(reviews))
	}
}

func deleteReviewHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_review_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteReview(r.Context(), principal, id); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func canReviewHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		elig, err := svc.CanReview(r.Context(), appointmentID, principal.UserID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, EligibilityResponse{
			Eligible: elig.Eligible,
			Reason:   elig.Reason,
		})
	}
}

func professionalReviewsHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "id must be a valid UUID")
			return
		}

		reviews, err := svc.ListForProfessional(r.Context(), professionalID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, reviewList(reviews))
	}
}

func professionalStatsHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "id must be a valid UUID")
			return
		}

		stats, err := svc.Stats(r.Context(), professionalID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := StatsResponse{
			ProfessionalID: professionalID,
			TotalReviews:   stats.TotalReviews,
			Distribution:   stats.Distribution(),
		}
		if _, ok := stats.Average(); ok {
			avg := stats.AverageDisplay()
			resp.AverageRating = &avg
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func reviewList(reviews []review.Review) []ReviewResponse {
	resp := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, newReviewResponse(&reviews[i]))
	}
	return resp
}
