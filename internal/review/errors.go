package review

import "errors"

var (
	ErrReviewNotFound = errors.New("review not found")

	// Write-time duplicate: a review for the appointment already exists.
	ErrReviewExists = errors.New("appointment already has a review")

	ErrRatingOutOfRange = errors.New("rating must be an integer between 1 and 5")
	ErrCommentTooLong   = errors.New("comment exceeds 500 characters")

	ErrNotAppointmentPatient   = errors.New("only the appointment's patient may review it")
	ErrAppointmentNotCompleted = errors.New("only completed appointments can be reviewed")
	ErrNotReviewAuthor         = errors.New("only the review's author may delete it")
)
