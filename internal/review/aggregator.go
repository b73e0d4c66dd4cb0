package review

import (
	"math"

	"github.com/google/uuid"
)

// Stats is the cached per-professional rating aggregate. Counters are exact
// running state (O(1) to maintain per review event); the average and the
// percentage distribution are derived on read, so stored state never drifts
// from what a full recompute would produce.
type Stats struct {
	ProfessionalID uuid.UUID
	TotalReviews   int
	RatingSum      int
	// StarCounts[i] is the number of reviews with rating i+1.
	StarCounts [5]int
}

// ApplyCreated folds one new review's rating into the aggregate.
func (s *Stats) ApplyCreated(rating int) {
	s.TotalReviews++
	s.RatingSum += rating
	s.StarCounts[rating-1]++
}

// ApplyDeleted removes one review's contribution.
func (s *Stats) ApplyDeleted(rating int) {
	s.TotalReviews--
	s.RatingSum -= rating
	s.StarCounts[rating-1]--
}

// Average returns the full-precision mean rating. The second return is false
// when there are no reviews: the average is undefined then, not zero.
func (s *Stats) Average() (float64, bool) {
	if s.TotalReviews == 0 {
		return 0, false
	}
	return float64(s.RatingSum) / float64(s.TotalReviews), true
}

// AverageDisplay is the mean rounded to one decimal for presentation, or 0
// when undefined.
func (s *Stats) AverageDisplay() float64 {
	avg, ok := s.Average()
	if !ok {
		return 0
	}
	return round1(avg)
}

// Distribution returns, per star value, the percentage of reviews at that
// value, rounded to one decimal. Percentages sum to 100 within rounding
// tolerance whenever TotalReviews > 0; the map is empty otherwise.
func (s *Stats) Distribution() map[int]float64 {
	dist := make(map[int]float64, 5)
	if s.TotalReviews == 0 {
		return dist
	}
	for i, count := range s.StarCounts {
		dist[i+1] = round1(float64(count) / float64(s.TotalReviews) * 100)
	}
	return dist
}

// Recompute builds the aggregate from scratch out of the full review set.
// Used by the reconciliation path and as the oracle the incremental state is
// checked against.
func Recompute(professionalID uuid.UUID, reviews []Review) Stats {
	s := Stats{ProfessionalID: professionalID}
	for i := range reviews {
		s.ApplyCreated(reviews[i].Rating)
	}
	return s
}

// Equal compares the exact counter state of two aggregates.
func (s *Stats) Equal(other *Stats) bool {
	return s.TotalReviews == other.TotalReviews &&
		s.RatingSum == other.RatingSum &&
		s.StarCounts == other.StarCounts
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
