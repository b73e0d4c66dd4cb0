package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AvailabilityCalculator derives open start times for a professional on a
// given date. It holds no state of its own: every call recomputes from the
// working-hours schedule and the live set of calendar-occupying appointments,
// so results go stale the moment a booking lands. The reservation service is
// the authority; this is advisory.
type AvailabilityCalculator struct {
	repo        Repository
	horizonDays int
}

func NewAvailabilityCalculator(repo Repository, horizonDays int) *AvailabilityCalculator {
	return &AvailabilityCalculator{repo: repo, horizonDays: horizonDays}
}

// ValidateDate rejects dates in the past or beyond the booking horizon. Both
// sides are compared as calendar dates: request dates parse to UTC midnight
// while today is midnight in the professional's zone, so an instant
// comparison would shift the window by the zone's UTC offset.
func (c *AvailabilityCalculator) ValidateDate(date, today time.Time) error {
	if dayBefore(date, today) {
		return ErrDateInPast
	}
	if dayBefore(today.AddDate(0, 0, c.horizonDays), date) {
		return ErrDateBeyondHorizon
	}
	return nil
}

// dayBefore reports whether a's calendar date falls before b's, ignoring the
// locations either carries.
func dayBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

// AvailableSlots returns the ordered open start times for the professional on
// date, for a service of the given duration. A candidate is open when its
// whole [start, start+duration) interval fits inside the working window and
// intersects no calendar-occupying appointment. A duration longer than the
// window yields an empty result, not an error.
func (c *AvailabilityCalculator) AvailableSlots(ctx context.Context, professionalID uuid.UUID, date time.Time, durationMin int) ([]ClockTime, error) {
	pro, err := c.repo.GetProfessionalByID(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	today := Midnight(time.Now().In(pro.Location()))
	if err := c.ValidateDate(Midnight(date), today); err != nil {
		return nil, err
	}

	wh, err := c.repo.GetWorkingHours(ctx, professionalID, int(date.Weekday()))
	if err != nil {
		if errors.Is(err, ErrWorkingHoursNotFound) {
			// Not working that weekday: no slots, not an error.
			return []ClockTime{}, nil
		}
		return nil, err
	}
	if !wh.Active {
		return []ClockTime{}, nil
	}

	taken, err := c.repo.ListActiveAppointmentsForDay(ctx, professionalID, Midnight(date))
	if err != nil {
		return nil, err
	}

	step := pro.GranularityMin
	if step <= 0 {
		step = 30
	}

	slots := []ClockTime{}
	idx := 0
	for cur := wh.Start; cur.Add(durationMin) <= wh.End; cur = cur.Add(step) {
		end := cur.Add(durationMin)

		// Skip appointments that finished before this candidate; taken is
		// ordered by start time, so the cursor never moves backwards.
		for idx < len(taken) && taken[idx].End() <= cur {
			idx++
		}

		open := true
		for j := idx; j < len(taken) && taken[j].Start < end; j++ {
			if taken[j].Overlaps(cur, end) {
				open = false
				break
			}
		}

		if open {
			slots = append(slots, cur)
		}
	}

	return slots, nil
}

// Midnight truncates t to its date, preserving the location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
