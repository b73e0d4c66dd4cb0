package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/vitalcare/clinic-scheduling/internal/config"
	"github.com/vitalcare/clinic-scheduling/internal/db"
)

// The simulator hammers the booking API with concurrent patients competing
// for the same few calendars. A correct run shows exactly one success per
// slot and conflicts for everyone else.

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	Professionals int // how few calendars the storm concentrates on
	Days          int // how many days ahead bookings target
	JWTSecret     string
	PostgresDSN   string
}

type DataPool struct {
	Patients      []uuid.UUID
	Professionals []uuid.UUID
	Services      []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OpMetrics struct {
	mu        sync.Mutex
	total     int
	success   int
	conflict  int
	failed    int
	latencies []time.Duration
}

func (om *OpMetrics) Record(latency time.Duration, status int, err error) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.total++
	switch {
	case err == nil && status >= 200 && status < 300:
		om.success++
	case err == nil && status == http.StatusConflict:
		om.conflict++
	default:
		om.failed++
	}
	om.latencies = append(om.latencies, latency)
}

func (om *OpMetrics) Report(name string) {
	om.mu.Lock()
	defer om.mu.Unlock()
	if om.total == 0 {
		return
	}

	sorted := make([]time.Duration, len(om.latencies))
	copy(sorted, om.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pct := func(p int) time.Duration {
		idx := len(sorted) * p / 100
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}

	fmt.Printf("%-12s total=%d success=%d conflict=%d failed=%d p50=%s p95=%s max=%s\n",
		name, om.total, om.success, om.conflict, om.failed,
		pct(50).Round(time.Millisecond), pct(95).Round(time.Millisecond),
		sorted[len(sorted)-1].Round(time.Millisecond))
}

type Simulator struct {
	cfg    SimConfig
	pool   *DataPool
	client *http.Client
	tokens map[uuid.UUID]string

	booking OpMetrics
	slots   OpMetrics
	reads   OpMetrics
	lists   OpMetrics
}

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "simulate").Logger()
	log.Info().Msg("simulator starting")

	base, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 20),
		Professionals: getInt("SIM_PROFESSIONALS", 3),
		Days:          getInt("SIM_DAYS", 5),
		JWTSecret:     base.JWTSecret,
		PostgresDSN:   base.PostgresDSN,
	}
	if cfg.Workers <= 0 || cfg.Duration <= 0 {
		log.Fatal().Msg("SIM_WORKERS and SIM_DURATION must be positive")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	pool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	log.Info().
		Int("patients", len(pool.Patients)).
		Int("professionals", len(pool.Professionals)).
		Int("services", len(pool.Services)).
		Msg("data pool loaded")

	sim := &Simulator{
		cfg:    cfg,
		pool:   pool,
		client: &http.Client{Timeout: 10 * time.Second},
		tokens: make(map[uuid.UUID]string, len(pool.Patients)),
	}
	for _, id := range pool.Patients {
		token, err := signPatientToken(cfg.JWTSecret, id)
		if err != nil {
			log.Fatal().Err(err).Msg("sign token")
		}
		sim.tokens[id] = token
	}

	sim.Run()

	fmt.Println()
	sim.booking.Report("booking")
	sim.slots.Report("slots")
	sim.reads.Report("read")
	sim.lists.Report("list")
}

func signPatientToken(secret string, patientID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub":  patientID.String(),
		"role": "patient",
		"exp":  time.Now().Add(2 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	if err := loadIDs(ctx, pool, `SELECT id FROM patients LIMIT 2000`, &dp.Patients); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	if err := loadIDs(ctx, pool, `SELECT id FROM professionals LIMIT $1`, &dp.Professionals, cfg.Professionals); err != nil {
		return nil, fmt.Errorf("load professionals: %w", err)
	}
	if err := loadIDs(ctx, pool, `SELECT id FROM services`, &dp.Services); err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}

	if len(dp.Patients) == 0 || len(dp.Professionals) == 0 || len(dp.Services) == 0 {
		return nil, fmt.Errorf("data pool is empty, run the seed first")
	}
	return dp, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, out *[]uuid.UUID, args ...any) error {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return err
		}
		*out = append(*out, id)
	}
	return rows.Err()
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch r := rng.Float64(); {
		case r < 0.5:
			s.doBooking(ctx, rng)
		case r < 0.7:
			s.doSlots(ctx, rng)
		case r < 0.85:
			s.doRead(ctx, rng)
		default:
			s.doList(ctx, rng)
		}
	}
}

// doBooking targets a narrow set of calendars, dates and times so that
// workers collide often enough to exercise the conflict path.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	professionalID := s.pool.Professionals[rng.Intn(len(s.pool.Professionals))]
	serviceID := s.pool.Services[rng.Intn(len(s.pool.Services))]

	date := time.Now().AddDate(0, 0, 1+rng.Intn(s.cfg.Days)).Format("2006-01-02")
	hour := 9 + rng.Intn(7)
	minute := []int{0, 30}[rng.Intn(2)]

	body, _ := json.Marshal(map[string]string{
		"professional_id": professionalID.String(),
		"service_id":      serviceID.String(),
		"date":            date,
		"time":            fmt.Sprintf("%02d:%02d", hour, minute),
	})

	start := time.Now()
	status, respBody, err := s.do(ctx, http.MethodPost, "/appointments", patientID, bytes.NewReader(body))
	s.booking.Record(time.Since(start), status, err)

	if err == nil && status == http.StatusCreated {
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if json.Unmarshal(respBody, &created) == nil && created.ID != uuid.Nil {
			s.pool.AddAppointment(created.ID)
		}
	}
}

func (s *Simulator) doSlots(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	professionalID := s.pool.Professionals[rng.Intn(len(s.pool.Professionals))]
	serviceID := s.pool.Services[rng.Intn(len(s.pool.Services))]
	date := time.Now().AddDate(0, 0, 1+rng.Intn(s.cfg.Days)).Format("2006-01-02")

	path := fmt.Sprintf("/slots?professional_id=%s&service_id=%s&date=%s", professionalID, serviceID, date)

	start := time.Now()
	status, _, err := s.do(ctx, http.MethodGet, path, patientID, nil)
	s.slots.Record(time.Since(start), status, err)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	status, _, err := s.do(ctx, http.MethodGet, "/appointments/"+apptID.String(), patientID, nil)
	s.reads.Record(time.Since(start), status, err)
}

func (s *Simulator) doList(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	status, _, err := s.do(ctx, http.MethodGet, "/appointments", patientID, nil)
	s.lists.Record(time.Since(start), status, err)
}

func (s *Simulator) do(ctx context.Context, method, path string, asPatient uuid.UUID, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIBaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if asPatient != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+s.tokens[asPatient])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
