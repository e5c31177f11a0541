package types

import (
	"fmt"
	"sort"
)

// Contacts holds the public contact channels of a profile.
type Contacts struct {
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Website   string `json:"website,omitempty"`
	Telegram  string `json:"telegram,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	WhatsApp  string `json:"whatsapp,omitempty"`
}

// Service is a program or session type offered by an institution.
type Service struct {
	// Name is the short title of the service.
	Name string `json:"name"`

	// Description explains what the service includes.
	Description string `json:"description,omitempty"`

	// Price is the cost of one session in the smallest currency unit.
	Price int64 `json:"price"`

	// DurationMinutes is the session length, if fixed.
	DurationMinutes int `json:"duration_minutes,omitempty"`
}

// Location is where a psychologist practices.
type Location struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// Credential is one education or certification entry.
type Credential struct {
	Title       string `json:"title"`
	Institution string `json:"institution,omitempty"`
	Year        int    `json:"year,omitempty"`
}

// Preferences is the open-ended set of client search preferences.
// Only the keys listed in PreferenceKeys are accepted.
type Preferences map[string]string

// Documented preference keys.
const (
	PreferenceLanguage = "language"
	PreferenceCity     = "city"
	PreferenceFormat   = "format"
	PreferencePriceMax = "price_max"
	PreferenceGender   = "gender"
)

// PreferenceKeys lists the keys a client may store.
var PreferenceKeys = []string{
	PreferenceLanguage,
	PreferenceCity,
	PreferenceFormat,
	PreferencePriceMax,
	PreferenceGender,
}

// Validate returns an error naming the first unknown key, in sorted order.
func (p Preferences) Validate() error {
	allowed := make(map[string]struct{}, len(PreferenceKeys))
	for _, key := range PreferenceKeys {
		allowed[key] = struct{}{}
	}

	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("unknown preference %q", key)
		}
	}
	if format, ok := p[PreferenceFormat]; ok && format != "online" && format != "offline" {
		return fmt.Errorf("preference %q must be online or offline", PreferenceFormat)
	}
	return nil
}
