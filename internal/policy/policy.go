// Package policy decides which roles may perform which actions and
// whether an actor owns the record it acts on.
package policy

import (
	"errors"

	"github.com/cbt-marketplace/apiserver/types"
)

// ErrForbidden is returned when the actor lacks the permission or does not
// own the target record.
var ErrForbidden = errors.New("forbidden")

// Ownable is implemented by records that belong to a user.
type Ownable interface {
	OwnerID() string
}

var authoring = []Permission{
	NewPermission(ResourceArticle, ActionCreate),
	NewPermission(ResourceArticle, ActionUpdate),
	NewPermission(ResourceArticle, ActionDelete),
	NewPermission(ResourceArticle, ActionPublish),
	NewPermission(ResourceArticle, ActionArchive),
	NewPermission(ResourceUser, ActionUpdate),
}

// Capabilities is the default role to permission table.
var Capabilities = map[types.Role][]Permission{
	types.RoleAdmin: {PermissionAll},
	types.RolePsychologist: append([]Permission{
		NewPermission(ResourcePsychologist, ActionCreate),
		NewPermission(ResourcePsychologist, ActionUpdate),
	}, authoring...),
	types.RoleInstitution: append([]Permission{
		NewPermission(ResourceInstitution, ActionCreate),
		NewPermission(ResourceInstitution, ActionUpdate),
	}, authoring...),
	types.RoleClient: {
		NewPermission(ResourceClient, ActionView),
		NewPermission(ResourceClient, ActionUpdate),
		NewPermission(ResourceUser, ActionUpdate),
	},
}

// Policy evaluates role permissions followed by record ownership.
type Policy struct {
	profiles map[types.Role]map[Permission]bool
}

// New builds a policy from a capability table. A nil table selects
// Capabilities.
func New(table map[types.Role][]Permission) *Policy {
	if table == nil {
		table = Capabilities
	}
	profiles := make(map[types.Role]map[Permission]bool, len(table))
	for role, perms := range table {
		set := make(map[Permission]bool, len(perms))
		for _, perm := range perms {
			set[perm] = true
		}
		profiles[role] = set
	}
	return &Policy{profiles: profiles}
}

func (p *Policy) hasPermission(role types.Role, requested Permission) bool {
	for perm := range p.profiles[role] {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// Unrestricted reports whether the role holds every permission.
func (p *Policy) Unrestricted(role types.Role) bool {
	return p.profiles[role][PermissionAll]
}

// Can checks only the role permission, without ownership.
func (p *Policy) Can(role types.Role, action Action, resource Resource) bool {
	if !role.Valid() {
		return false
	}
	return p.hasPermission(role, NewPermission(resource, action))
}

// Authorize checks:
//  1. the actor's role is known
//  2. unrestricted roles pass immediately
//  3. the role holds resource:action
//  4. if target is not nil, the actor owns it
func (p *Policy) Authorize(actor types.User, action Action, resource Resource, target Ownable) error {
	if !actor.Role.Valid() || actor.ID == "" {
		return ErrForbidden
	}
	if p.Unrestricted(actor.Role) {
		return nil
	}
	if !p.hasPermission(actor.Role, NewPermission(resource, action)) {
		return ErrForbidden
	}
	if target != nil && target.OwnerID() != actor.ID {
		return ErrForbidden
	}
	return nil
}
