package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

func listServicesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := svc.ListServices(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]ServiceResponse, 0, len(services))
		for _, s := range services {
			resp = append(resp, ServiceResponse{
				ID:          s.ID,
				Name:        s.Name,
				DurationMin: s.DurationMin,
				PriceCents:  s.PriceCents,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func availableSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, err := uuid.Parse(r.URL.Query().Get("professional_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}

		serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		date := r.URL.Query().Get("date")
		slots, err := svc.AvailableSlots(r.Context(), professionalID, serviceID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]string, 0, len(slots))
		for _, s := range slots {
			out = append(out, s.String())
		}
		writeJSON(w, http.StatusOK, SlotsResponse{
			ProfessionalID: professionalID,
			ServiceID:      serviceID,
			Date:           date,
			Slots:          out,
		})
	}
}

func createAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		ap, err := svc.Create(r.Context(), principal, scheduling.CreateInput{
			ProfessionalID: professionalID,
			ServiceID:      serviceID,
			Date:           req.Date,
			Time:           req.Time,
			Notes:          req.Notes,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		canCancel, pastDue, err := svc.Flags(r.Context(), ap)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newAppointmentResponse(ap, canCancel, pastDue))
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		var filter scheduling.ListFilter
		if d := r.URL.Query().Get("date"); d != "" {
			day, err := time.Parse("2006-01-02", d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "date must be formatted as YYYY-MM-DD")
				return
			}
			filter.Date = &day
		}
		if s := r.URL.Query().Get("status"); s != "" {
			status := scheduling.Status(s)
			if !status.Valid() {
				writeError(w, http.StatusBadRequest, "invalid_request", "unknown appointment status")
				return
			}
			filter.Status = &status
		}

		appointments, err := svc.List(r.Context(), principal, filter)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appointments))
		for i := range appointments {
			ap := &appointments[i]
			canCancel, pastDue, err := svc.Flags(r.Context(), ap)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			resp = append(resp, newAppointmentResponse(ap, canCancel, pastDue))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		ap, err := svc.Get(r.Context(), principal, id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		canCancel, pastDue, err := svc.Flags(r.Context(), ap)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newAppointmentResponse(ap, canCancel, pastDue))
	}
}

func updateAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ap, err := svc.UpdateStatus(r.Context(), principal, id, scheduling.Status(req.Status), req.Reason)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		canCancel, pastDue, err := svc.Flags(r.Context(), ap)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newAppointmentResponse(ap, canCancel, pastDue))
	}
}
