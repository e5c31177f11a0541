package policy

import "strings"

// Action describes the kind of operation an actor wants to perform.
type Action string

const (
	ActionView    Action = "view"
	ActionList    Action = "list"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionPublish Action = "publish"
	ActionArchive Action = "archive"
	ActionVerify  Action = "verify"
)

// Resource names a kind of record guarded by the policy.
type Resource string

const (
	ResourceUser         Resource = "user"
	ResourceClient       Resource = "client"
	ResourceInstitution  Resource = "institution"
	ResourcePsychologist Resource = "psychologist"
	ResourceArticle      Resource = "article"
)

// Permission represents an allowed action on a resource.
// Format: "resource:action" (e.g. "article:publish").
type Permission string

const (
	wildcard = "*"

	// PermissionAll matches every permission.
	PermissionAll Permission = "*:*"
)

// NewPermission creates a permission from a resource and an action.
func NewPermission(resource Resource, action Action) Permission {
	return Permission(string(resource) + ":" + string(action))
}

// Parse splits a permission into resource and action. Malformed values
// yield empty strings.
func (p Permission) Parse() (Resource, Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return Resource(res), Action(act)
}

// Matches reports whether p grants requested. "*:*" matches everything and
// "article:*" matches every article action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionAll || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res != "" && res == reqRes && string(act) == wildcard
}
