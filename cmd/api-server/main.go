package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-scheduling/internal/api"
	"github.com/vitalcare/clinic-scheduling/internal/auth"
	"github.com/vitalcare/clinic-scheduling/internal/config"
	"github.com/vitalcare/clinic-scheduling/internal/db"
	"github.com/vitalcare/clinic-scheduling/internal/metrics"
	"github.com/vitalcare/clinic-scheduling/internal/notify"
	redisclient "github.com/vitalcare/clinic-scheduling/internal/redis"
	"github.com/vitalcare/clinic-scheduling/internal/review"
	"github.com/vitalcare/clinic-scheduling/internal/scheduling"
)

const version = "1.0.0"

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	var notifier scheduling.Notifier = notify.NoopNotifier{}
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL, log)
	}

	schedRepo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisCalendarLocker(rdb, cfg.LockTTL)
	calc := scheduling.NewAvailabilityCalculator(schedRepo, cfg.HorizonDays)
	policy := scheduling.CancellationPolicy{Cutoff: cfg.CancelCutoff}
	schedSvc := scheduling.NewService(schedRepo, locker, calc, policy, notifier, cfg.ReminderLead, log)

	reviewRepo := review.NewPgRepository(pgPool)
	reviewSvc := review.NewService(reviewRepo, schedRepo, log)

	router := api.NewRouter(api.RouterConfig{
		Scheduling: schedSvc,
		Reviews:    reviewSvc,
		Verifier:   auth.NewJWTVerifier(cfg.JWTSecret),
		Metrics:    metrics.New("api-server"),
		PgPool:     pgPool,
		Redis:      rdb,
		Log:        log,
		Env:        cfg.Env,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", srv.Addr).Msg("listening")

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}
