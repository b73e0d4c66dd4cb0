package scheduling

import "errors"

var (
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrServiceNotFound      = errors.New("service not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrWorkingHoursNotFound = errors.New("no working hours for this weekday")

	// Slot validation failures surfaced by availability and create.
	ErrDateInPast          = errors.New("date is in the past")
	ErrDateBeyondHorizon   = errors.New("date is beyond the booking horizon")
	ErrInvalidDate         = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidTime         = errors.New("time must be formatted as HH:MM")
	ErrOutsideWorkingHours = errors.New("requested time is outside working hours")
	ErrInvalidStatus       = errors.New("unknown appointment status")

	// Write-time conflicts.
	ErrSlotTaken         = errors.New("slot is no longer available")
	ErrCalendarContended = errors.New("calendar is being modified, please retry")

	// Authorization failures.
	ErrForbidden           = errors.New("actor lacks permission for this appointment")
	ErrCancellationTooLate = errors.New("cancellation window has closed")
	ErrOnlyPatientsMayBook = errors.New("only patients may create appointments")
)

// ValidationErrors groups the failures that map to a 400 at the edge. The
// handlers match on this slice instead of enumerating sentinels twice.
var ValidationErrors = []error{
	ErrDateInPast,
	ErrDateBeyondHorizon,
	ErrInvalidDate,
	ErrInvalidTime,
	ErrOutsideWorkingHours,
	ErrInvalidStatus,
}
