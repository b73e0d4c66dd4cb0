package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-scheduling/internal/auth"
	"github.com/vitalcare/clinic-scheduling/internal/metrics"
	"github.com/vitalcare/clinic-scheduling/internal/review"
	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Scheduling *scheduling.Service
	Reviews    *review.Service
	Verifier   auth.Verifier
	Metrics    *metrics.Metrics
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Log        zerolog.Logger
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Discovery endpoints need no identity.
	r.Get("/services", listServicesHandler(cfg.Scheduling))
	r.Get("/professionals/{id}/reviews", professionalReviewsHandler(cfg.Reviews))
	r.Get("/professionals/{id}/stats", professionalStatsHandler(cfg.Reviews))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier))

		r.Get("/slots", availableSlotsHandler(cfg.Scheduling))
		r.Post("/appointments", createAppointmentHandler(cfg.Scheduling))
		r.Get("/appointments", listAppointmentsHandler(cfg.Scheduling))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Scheduling))
		r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Scheduling))
		r.Get("/appointments/{id}/can-review", canReviewHandler(cfg.Reviews))

		r.Post("/reviews", createReviewHandler(cfg.Reviews))
		r.Get("/reviews", listOwnReviewsHandler(cfg.Reviews))
		r.Delete("/reviews/{id}", deleteReviewHandler(cfg.Reviews))
	})

	return r
}
