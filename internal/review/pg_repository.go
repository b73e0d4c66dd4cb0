package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(
		&rv.ID,
		&rv.AppointmentID,
		&rv.PatientID,
		&rv.ProfessionalID,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &rv, nil
}

const reviewColumns = `id, appointment_id, patient_id, professional_id, rating, comment, created_at, updated_at`

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE id = $1
	`, id)
	return scanReview(row)
}

func (r *PgRepository) GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Review, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE appointment_id = $1
	`, appointmentID)
	return scanReview(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Review, error) {
	return r.list(ctx, "patient_id", patientID)
}

func (r *PgRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]Review, error) {
	return r.list(ctx, "professional_id", professionalID)
}

func (r *PgRepository) list(ctx context.Context, ownerColumn string, ownerID uuid.UUID) ([]Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE `+ownerColumn+` = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rv)
	}
	return result, rows.Err()
}

// CreateWithStats inserts the review and bumps the stats row in a single
// transaction. The unique index on reviews.appointment_id is the write-time
// guard: a concurrent duplicate attempt fails here with ErrReviewExists no
// matter what the eligibility read said.
func (r *PgRepository) CreateWithStats(ctx context.Context, rv *Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO reviews (id, appointment_id, patient_id, professional_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`, rv.ID, rv.AppointmentID, rv.PatientID, rv.ProfessionalID, rv.Rating, rv.Comment).
		Scan(&rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrReviewExists
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if _, err := tx.Exec(ctx, statsApplyQuery, rv.ProfessionalID, rv.Rating, 1); err != nil {
		return fmt.Errorf("apply review to stats: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) DeleteWithStats(ctx context.Context, rv *Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, rv.ID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}

	if _, err := tx.Exec(ctx, statsApplyQuery, rv.ProfessionalID, rv.Rating, -1); err != nil {
		return fmt.Errorf("remove review from stats: %w", err)
	}

	return tx.Commit(ctx)
}

// statsApplyQuery folds one review event into the aggregate row. $3 is +1 for
// a created review, -1 for a deleted one.
const statsApplyQuery = `
	INSERT INTO professional_stats (professional_id, total_reviews, rating_sum, star1, star2, star3, star4, star5)
	VALUES ($1, $3, $2 * $3,
		CASE WHEN $2 = 1 THEN $3 ELSE 0 END,
		CASE WHEN $2 = 2 THEN $3 ELSE 0 END,
		CASE WHEN $2 = 3 THEN $3 ELSE 0 END,
		CASE WHEN $2 = 4 THEN $3 ELSE 0 END,
		CASE WHEN $2 = 5 THEN $3 ELSE 0 END)
	ON CONFLICT (professional_id) DO UPDATE SET
		total_reviews = professional_stats.total_reviews + $3,
		rating_sum    = professional_stats.rating_sum + $2 * $3,
		star1 = professional_stats.star1 + CASE WHEN $2 = 1 THEN $3 ELSE 0 END,
		star2 = professional_stats.star2 + CASE WHEN $2 = 2 THEN $3 ELSE 0 END,
		star3 = professional_stats.star3 + CASE WHEN $2 = 3 THEN $3 ELSE 0 END,
		star4 = professional_stats.star4 + CASE WHEN $2 = 4 THEN $3 ELSE 0 END,
		star5 = professional_stats.star5 + CASE WHEN $2 = 5 THEN $3 ELSE 0 END
`

func (r *PgRepository) GetStats(ctx context.Context, professionalID uuid.UUID) (*Stats, error) {
	s := Stats{ProfessionalID: professionalID}
	err := r.pool.QueryRow(ctx, `
		SELECT total_reviews, rating_sum, star1, star2, star3, star4, star5
		FROM professional_stats
		WHERE professional_id = $1
	`, professionalID).Scan(
		&s.TotalReviews,
		&s.RatingSum,
		&s.StarCounts[0],
		&s.StarCounts[1],
		&s.StarCounts[2],
		&s.StarCounts[3],
		&s.StarCounts[4],
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No reviews yet: a zero aggregate, not an error.
			return &s, nil
		}
		return nil, err
	}
	return &s, nil
}

// RecomputeStats rebuilds the aggregate row from the review set. Used for
// reconciliation; with the transactional write path the result should always
// match the incremental state.
func (r *PgRepository) RecomputeStats(ctx context.Context, professionalID uuid.UUID) (*Stats, error) {
	s := Stats{ProfessionalID: professionalID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO professional_stats (professional_id, total_reviews, rating_sum, star1, star2, star3, star4, star5)
		SELECT $1,
			COUNT(*),
			COALESCE(SUM(rating), 0),
			COUNT(*) FILTER (WHERE rating = 1),
			COUNT(*) FILTER (WHERE rating = 2),
			COUNT(*) FILTER (WHERE rating = 3),
			COUNT(*) FILTER (WHERE rating = 4),
			COUNT(*) FILTER (WHERE rating = 5)
		FROM reviews
		WHERE professional_id = $1
		ON CONFLICT (professional_id) DO UPDATE SET
			total_reviews = EXCLUDED.total_reviews,
			rating_sum    = EXCLUDED.rating_sum,
			star1 = EXCLUDED.star1,
			star2 = EXCLUDED.star2,
			star3 = EXCLUDED.star3,
			star4 = EXCLUDED.star4,
			star5 = EXCLUDED.star5
		RETURNING total_reviews, rating_sum, star1, star2, star3, star4, star5
	`, professionalID).Scan(
		&s.TotalReviews,
		&s.RatingSum,
		&s.StarCounts[0],
		&s.StarCounts[1],
		&s.StarCounts[2],
		&s.StarCounts[3],
		&s.StarCounts[4],
	)
	if err != nil {
		return nil, fmt.Errorf("recompute stats: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, eventType string, appointmentID uuid.UUID, payload []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, now())
	`, eventType, appointmentID, payload)
	if err != nil {
		return fmt.Errorf("insert review event: %w", err)
	}
	return nil
}
