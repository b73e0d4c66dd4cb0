package scheduling

import "time"

// CancellationPolicy is the named rule behind the "can this appointment still
// be cancelled" flag. The original product exposed the flag without a visible
// rule; here the cutoff is explicit configuration, not a hard-coded guess.
// The policy binds patient-initiated cancellations only: the assigned
// professional may cancel at any time before a terminal status.
type CancellationPolicy struct {
	// Cutoff is the minimum remaining time before the appointment start for
	// a patient cancellation to be accepted.
	Cutoff time.Duration
}

// PatientMayCancel reports whether a patient cancellation at now is still
// inside the window. loc must be the professional's zone.
func (p CancellationPolicy) PatientMayCancel(ap *Appointment, loc *time.Location, now time.Time) bool {
	return ap.StartsAt(loc).Sub(now) > p.Cutoff
}

// CanBeCancelled is the read-side flag surfaced on appointment payloads: the
// appointment still occupies the calendar and the patient window is open.
func (p CancellationPolicy) CanBeCancelled(ap *Appointment, loc *time.Location, now time.Time) bool {
	return ap.Status.Occupies() && p.PatientMayCancel(ap, loc, now)
}
