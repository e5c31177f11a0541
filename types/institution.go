package types

import "time"

// Institution is the public profile of a clinic or center.
type Institution struct {
	// ID is the unique identifier of the institution.
	ID string `json:"id" db:"id"`

	// UserID is the account that owns this profile.
	UserID string `json:"user_id" db:"user_id"`

	// Name is the public name of the institution.
	Name string `json:"name" db:"name"`

	// Description is a free-form presentation text.
	Description string `json:"description" db:"description"`

	// Address is the postal address, including the city.
	Address string `json:"address" db:"address"`

	// Services lists the programs offered.
	Services []Service `json:"services" db:"services"`

	// Contacts holds the public contact channels.
	Contacts Contacts `json:"contacts" db:"contacts"`

	// IsVerified is set by an administrator.
	IsVerified bool `json:"is_verified" db:"is_verified"`

	// PsychologistsCount is a cached count of psychologists attached
	// to this institution. It is refreshed asynchronously and may lag.
	PsychologistsCount int `json:"psychologists_count" db:"psychologists_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OwnerID returns the id of the owning user.
func (i Institution) OwnerID() string {
	return i.UserID
}

// InstitutionFilter narrows institution listings. Zero values impose no constraint.
type InstitutionFilter struct {
	// City matches institutions whose address contains it, case-insensitively.
	City string

	// Verified, when set, matches the verification flag.
	Verified *bool
}

// InstitutionChanges is a partial update of an institution profile.
// Nil fields are left untouched.
type InstitutionChanges struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Address     *string    `json:"address"`
	Services    *[]Service `json:"services"`
	Contacts    *Contacts  `json:"contacts"`
}

// Apply copies the set fields onto inst.
func (c InstitutionChanges) Apply(inst *Institution) {
	if c.Name != nil {
		inst.Name = *c.Name
	}
	if c.Description != nil {
		inst.Description = *c.Description
	}
	if c.Address != nil {
		inst.Address = *c.Address
	}
	if c.Services != nil {
		inst.Services = *c.Services
	}
	if c.Contacts != nil {
		inst.Contacts = *c.Contacts
	}
}
