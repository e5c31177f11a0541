package types

import "time"

// Psychologist is the public profile of a practitioner.
type Psychologist struct {
	// ID is the unique identifier of the psychologist profile.
	ID string `json:"id" db:"id"`

	// UserID is the account that owns this profile.
	UserID string `json:"user_id" db:"user_id"`

	// InstitutionID is the institution the psychologist works for, if any.
	InstitutionID *string `json:"institution_id" db:"institution_id"`

	// Description is a free-form presentation text.
	Description string `json:"description" db:"description"`

	// Experience is the number of years in practice.
	Experience int `json:"experience" db:"experience"`

	// Rating is the average review score, between 0 and 5.
	Rating float64 `json:"rating" db:"rating"`

	// ReviewsCount is the number of reviews behind Rating.
	ReviewsCount int `json:"reviews_count" db:"reviews_count"`

	Specializations []string     `json:"specializations" db:"specializations"`
	Languages       []string     `json:"languages" db:"languages"`
	Memberships     []string     `json:"memberships" db:"memberships"`
	Education       []Credential `json:"education" db:"education"`
	Certifications  []Credential `json:"certifications" db:"certifications"`

	// Gallery holds image URLs shown on the profile page.
	Gallery []string `json:"gallery" db:"gallery"`

	Location Location `json:"location" db:"location"`
	Contacts Contacts `json:"contacts" db:"contacts"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OwnerID returns the id of the owning user.
func (p Psychologist) OwnerID() string {
	return p.UserID
}

// PsychologistFilter narrows psychologist listings. Zero values impose no constraint.
type PsychologistFilter struct {
	// Specialization matches profiles listing it.
	Specialization string

	// City matches the location city, case-insensitively.
	City string

	// MinRating, when set, matches profiles rated at least this much.
	MinRating *float64

	// InstitutionID matches profiles attached to this institution.
	InstitutionID string
}

// PsychologistChanges is a partial update of a psychologist profile.
// Nil fields are left untouched.
type PsychologistChanges struct {
	InstitutionID   *string       `json:"institution_id"`
	Description     *string       `json:"description"`
	Experience      *int          `json:"experience"`
	Specializations *[]string     `json:"specializations"`
	Languages       *[]string     `json:"languages"`
	Memberships     *[]string     `json:"memberships"`
	Education       *[]Credential `json:"education"`
	Certifications  *[]Credential `json:"certifications"`
	Gallery         *[]string     `json:"gallery"`
	Location        *Location     `json:"location"`
	Contacts        *Contacts     `json:"contacts"`
}

// Apply copies the set fields onto p. An empty InstitutionID detaches
// the psychologist from its institution.
func (c PsychologistChanges) Apply(p *Psychologist) {
	if c.InstitutionID != nil {
		if *c.InstitutionID == "" {
			p.InstitutionID = nil
		} else {
			id := *c.InstitutionID
			p.InstitutionID = &id
		}
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Experience != nil {
		p.Experience = *c.Experience
	}
	if c.Specializations != nil {
		p.Specializations = *c.Specializations
	}
	if c.Languages != nil {
		p.Languages = *c.Languages
	}
	if c.Memberships != nil {
		p.Memberships = *c.Memberships
	}
	if c.Education != nil {
		p.Education = *c.Education
	}
	if c.Certifications != nil {
		p.Certifications = *c.Certifications
	}
	if c.Gallery != nil {
		p.Gallery = *c.Gallery
	}
	if c.Location != nil {
		p.Location = *c.Location
	}
	if c.Contacts != nil {
		p.Contacts = *c.Contacts
	}
}
