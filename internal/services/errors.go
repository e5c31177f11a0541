package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/validation"
	"github.com/cbt-marketplace/apiserver/types"
)

var (
	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactiveUser is returned when a deactivated account tries to log in.
	ErrInactiveUser = errors.New("inactive user")
)

// ValidationError reports rejected input fields.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for field := range e.Violations {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Violations[field]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// invalid returns a ValidationError when v holds violations, nil otherwise.
func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

func invalidField(field, reason string) error {
	return &ValidationError{Violations: validation.Violations{field: reason}}
}

const (
	defaultPageLimit = 100
	maxPageLimit     = 100
)

// page clamps listing bounds.
func page(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit
}

// profileOwner resolves the owner of a new record. Only unrestricted roles
// may create one for someone else.
func profileOwner(pol *policy.Policy, actor types.User, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == actor.ID {
		return actor.ID, nil
	}
	if !pol.Unrestricted(actor.Role) {
		return "", policy.ErrForbidden
	}
	return requested, nil
}
