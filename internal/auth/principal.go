package auth

import "github.com/google/uuid"

// Principal is the validated identity handed to the core by the external
// authentication collaborator. Core operations receive it as an explicit
// argument; nothing in the engine reads ambient session state.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

const (
	RolePatient      = "patient"
	RoleProfessional = "professional"
)

func (p Principal) IsPatient() bool      { return p.Role == RolePatient }
func (p Principal) IsProfessional() bool { return p.Role == RoleProfessional }
