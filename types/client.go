package types

import "time"

// Client is the private profile of a client account.
type Client struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Preferences are the client's search preferences.
	Preferences Preferences `json:"preferences" db:"preferences"`

	// SavedPsychologists and SavedInstitutions are bookmarked profile ids.
	SavedPsychologists []string `json:"saved_psychologists" db:"saved_psychologists"`
	SavedInstitutions  []string `json:"saved_institutions" db:"saved_institutions"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OwnerID returns the id of the owning user.
func (c Client) OwnerID() string {
	return c.UserID
}

// ClientChanges is a partial update of a client profile.
type ClientChanges struct {
	Preferences        *Preferences `json:"preferences"`
	SavedPsychologists *[]string    `json:"saved_psychologists"`
	SavedInstitutions  *[]string    `json:"saved_institutions"`
}

// Apply copies the set fields onto c.
func (ch ClientChanges) Apply(c *Client) {
	if ch.Preferences != nil {
		c.Preferences = *ch.Preferences
	}
	if ch.SavedPsychologists != nil {
		c.SavedPsychologists = *ch.SavedPsychologists
	}
	if ch.SavedInstitutions != nil {
		c.SavedInstitutions = *ch.SavedInstitutions
	}
}
