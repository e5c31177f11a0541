package types

import (
	"fmt"
	"strings"
)

// Role is the account type of a user. The set of roles is closed: values
// outside of it are rejected when parsed from requests or storage.
type Role string

// Supported roles.
const (
	// RoleAdmin is an operator account with unrestricted access.
	RoleAdmin Role = "admin"

	// RolePsychologist is a practitioner offering services.
	RolePsychologist Role = "psychologist"

	// RoleInstitution is a clinic or center employing psychologists.
	RoleInstitution Role = "institution"

	// RoleClient is a person looking for help.
	RoleClient Role = "client"
)

// ParseRole converts a raw string into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePsychologist, RoleInstitution, RoleClient:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
