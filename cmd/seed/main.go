package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-scheduling/internal/db"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Str("service", "seed").Logger()

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	bg := context.Background()
	if err := seedServices(bg, pool); err != nil {
		log.Fatal().Err(err).Msg("seed services")
	}
	if err := seedProfessionals(bg, pool, 100); err != nil {
		log.Fatal().Err(err).Msg("seed professionals")
	}
	if err := seedPatients(bg, pool, 9000); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	log.Info().Msg("seed complete")
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) error {
	services := []struct {
		name     string
		duration int
		price    int64
	}{
		{"Initial Consultation", 60, 15000},
		{"Follow-up Visit", 30, 8000},
		{"Extended Consultation", 90, 22000},
		{"Routine Check-up", 30, 9000},
		{"Telehealth Review", 15, 5000},
		{"Diagnostic Assessment", 45, 12000},
	}

	log.Info().Int("count", len(services)).Msg("seeding services")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range services {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, name, duration_min, price_cents, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, uuid.New(), s.name, s.duration, s.price)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding professionals")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}
	timezones := []string{
		"America/Sao_Paulo",
		"America/New_York",
		"Europe/Lisbon",
		"UTC",
	}
	granularities := []int{15, 30, 60}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		tz := timezones[gofakeit.Number(0, len(timezones)-1)]
		gran := granularities[gofakeit.Number(0, len(granularities)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, name, specialty, timezone, granularity_min, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, name, spec, tz, gran)
		if err != nil {
			return err
		}

		if err := seedWorkingHours(ctx, tx, id); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedWorkingHours gives each professional a Monday to Friday week. Morning
// start and evening end vary a little so availability differs per calendar.
func seedWorkingHours(ctx context.Context, tx pgx.Tx, professionalID uuid.UUID) error {
	startMin := []int{8 * 60, 9 * 60, 10 * 60}[gofakeit.Number(0, 2)]
	endMin := []int{16 * 60, 17 * 60, 18 * 60}[gofakeit.Number(0, 2)]

	for weekday := 1; weekday <= 5; weekday++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO working_hours (id, professional_id, weekday, start_min, end_min, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
		`, uuid.New(), professionalID, weekday, startMin, endMin)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}
