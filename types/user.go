package types

import "time"

// User represents an account in the marketplace.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Email is the user's login and contact address. It is unique
	// across all users and stored lowercased.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role is the account type. It is fixed at registration.
	Role Role `json:"role" db:"role"`

	// Avatar is the public URL of the user's profile picture, if any.
	Avatar string `json:"avatar,omitempty" db:"avatar"`

	// IsActive reports whether the account may log in.
	IsActive bool `json:"is_active" db:"is_active"`

	// IsVerified is set by an administrator after checking the
	// person behind a psychologist account.
	IsVerified bool `json:"is_verified" db:"is_verified"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"hashed_password"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OwnerID returns the id of the user owning this account, which is the user itself.
func (u User) OwnerID() string {
	return u.ID
}

// UserFilter narrows user listings. Zero values impose no constraint.
type UserFilter struct {
	Role Role
}

// UserChanges is a partial update of the caller's own account. Password is
// the new plain-text password and is hashed before storage.
type UserChanges struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Password *string `json:"password"`
}

// Apply copies the set profile fields onto u. Password is not applied.
func (c UserChanges) Apply(u *User) {
	if c.Email != nil {
		u.Email = *c.Email
	}
	if c.Name != nil {
		u.Name = *c.Name
	}
	if c.Avatar != nil {
		u.Avatar = *c.Avatar
	}
}
