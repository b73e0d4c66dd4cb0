package scheduling

import "fmt"

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// ActiveStatuses are the statuses that occupy the calendar. Cancelled and
// no-show appointments release their slot the moment the status is written.
var ActiveStatuses = []Status{StatusScheduled, StatusConfirmed, StatusInProgress}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s Status) Occupies() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// StateError reports an illegal status transition request.
type StateError struct {
	From Status
	To   Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal status transition from %q to %q", e.From, e.To)
}

type transition struct {
	from Status
	to   Status
}

// transitions maps each legal transition to the roles allowed to request it.
var transitions = map[transition][]Role{
	{StatusScheduled, StatusConfirmed}:  {RolePatient, RoleProfessional},
	{StatusScheduled, StatusCancelled}:  {RolePatient, RoleProfessional},
	{StatusConfirmed, StatusCancelled}:  {RolePatient, RoleProfessional},
	{StatusConfirmed, StatusInProgress}: {RoleProfessional},
	{StatusConfirmed, StatusCompleted}:  {RoleProfessional},
	{StatusInProgress, StatusCompleted}: {RoleProfessional},
	{StatusConfirmed, StatusNoShow}:     {RoleProfessional},
}

// CanTransition checks whether moving from one status to another is legal at
// all, independent of who asks. Returns a *StateError naming the pair when it
// is not.
func CanTransition(from, to Status) error {
	if _, ok := transitions[transition{from, to}]; !ok {
		return &StateError{From: from, To: to}
	}
	return nil
}

// RoleMayTransition reports whether the given role is allowed to request the
// transition. Only meaningful for pairs that pass CanTransition.
func RoleMayTransition(role Role, from, to Status) bool {
	roles, ok := transitions[transition{from, to}]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
