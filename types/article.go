package types

import (
	"fmt"
	"strings"
	"time"
)

// ArticleStatus is the lifecycle state of an article.
type ArticleStatus string

// Article lifecycle states. Articles start as drafts, become visible in
// default listings once published, and end archived.
const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"

	// ArticleStatusAny is a listing filter value matching every state.
	// It is never stored.
	ArticleStatusAny ArticleStatus = "any"
)

// ParseArticleStatus converts a raw string into a stored article status.
func ParseArticleStatus(raw string) (ArticleStatus, error) {
	status := ArticleStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown article status %q", raw)
	}
	return status, nil
}

// Valid reports whether s is a storable status.
func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleStatusDraft, ArticleStatusPublished, ArticleStatusArchived:
		return true
	default:
		return false
	}
}

// Article is a piece of content written by a psychologist, an institution
// or an administrator.
type Article struct {
	// ID is the unique identifier of the article.
	ID string `json:"id" db:"id"`

	// Title is the headline of the article.
	Title string `json:"title" db:"title"`

	// Preview is a short teaser shown in listings.
	Preview string `json:"preview" db:"preview"`

	// Content is the full body of the article.
	Content string `json:"content" db:"content"`

	// Image is the public URL of the cover image, if any.
	Image string `json:"image" db:"image"`

	// AuthorID is the user who wrote the article and owns it.
	AuthorID string `json:"author_id" db:"author_id"`

	// Views counts how many times the article was opened.
	Views int `json:"views" db:"views"`

	// Tags are free-form labels used for filtering.
	Tags []string `json:"tags" db:"tags"`

	// Status is the lifecycle state. It only changes through the
	// publish and archive operations.
	Status ArticleStatus `json:"status" db:"status"`

	// PublishedAt is stamped each time the article is published.
	// Archiving keeps the last value.
	PublishedAt *time.Time `json:"published_at" db:"published_at"`

	// InstitutionID optionally attributes the article to an institution.
	InstitutionID *string `json:"institution_id" db:"institution_id"`

	// PsychologistID optionally attributes the article to a psychologist profile.
	PsychologistID *string `json:"psychologist_id" db:"psychologist_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OwnerID returns the author id.
func (a Article) OwnerID() string {
	return a.AuthorID
}

// ArticleFilter narrows article listings. Empty fields impose no constraint,
// except Status, which the article service defaults to published.
type ArticleFilter struct {
	Tag            string
	AuthorID       string
	InstitutionID  string
	PsychologistID string
	Status         ArticleStatus
}

// ArticleChanges is a partial update of an article. Nil fields are left
// untouched. Status is decoded only so that attempts to edit it can be
// rejected.
type ArticleChanges struct {
	Title          *string        `json:"title"`
	Preview        *string        `json:"preview"`
	Content        *string        `json:"content"`
	Image          *string        `json:"image"`
	Tags           *[]string      `json:"tags"`
	InstitutionID  *string        `json:"institution_id"`
	PsychologistID *string        `json:"psychologist_id"`
	Status         *ArticleStatus `json:"status"`
}

// Apply copies the set content fields onto a. Status is ignored. Empty
// attribution ids clear the attribution.
func (c ArticleChanges) Apply(a *Article) {
	if c.Title != nil {
		a.Title = *c.Title
	}
	if c.Preview != nil {
		a.Preview = *c.Preview
	}
	if c.Content != nil {
		a.Content = *c.Content
	}
	if c.Image != nil {
		a.Image = *c.Image
	}
	if c.Tags != nil {
		a.Tags = *c.Tags
	}
	if c.InstitutionID != nil {
		a.InstitutionID = optionalID(*c.InstitutionID)
	}
	if c.PsychologistID != nil {
		a.PsychologistID = optionalID(*c.PsychologistID)
	}
}

func optionalID(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}
