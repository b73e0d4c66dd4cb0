// Package notify is the fire-and-forget delivery channel for appointment
// events. Delivery is best effort: failures are logged and dropped, and no
// scheduling operation ever fails because a notification did.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

type webhookPayload struct {
	EventType   string `json:"event_type"`
	Appointment struct {
		ID             string `json:"id"`
		ProfessionalID string `json:"professional_id"`
		PatientID      string `json:"patient_id"`
		Date           string `json:"date"`
		Start          string `json:"start"`
		Status         string `json:"status"`
	} `json:"appointment"`
}

// WebhookNotifier posts appointment events to an external automation hook.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

func NewWebhookNotifier(url string, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		log: log,
	}
}

func (n *WebhookNotifier) AppointmentEvent(ctx context.Context, eventType string, ap *scheduling.Appointment) {
	var p webhookPayload
	p.EventType = eventType
	p.Appointment.ID = ap.ID.String()
	p.Appointment.ProfessionalID = ap.ProfessionalID.String()
	p.Appointment.PatientID = ap.PatientID.String()
	p.Appointment.Date = ap.Date.Format("2006-01-02")
	p.Appointment.Start = ap.Start.String()
	p.Appointment.Status = string(ap.Status)

	body, err := json.Marshal(p)
	if err != nil {
		n.log.Error().Err(err).Str("event_type", eventType).Msg("marshal webhook payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Error().Err(err).Str("event_type", eventType).Msg("build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn().Err(err).Str("event_type", eventType).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Warn().
			Int("status", resp.StatusCode).
			Str("event_type", eventType).
			Msg("webhook rejected")
	}
}

// NoopNotifier is used when no webhook URL is configured.
type NoopNotifier struct{}

func (NoopNotifier) AppointmentEvent(context.Context, string, *scheduling.Appointment) {}
