package validation

import (
	"net/mail"
	"strings"
)

// Violations maps a field name to the reason it was rejected.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records reason for field unless the field already failed.
func (v Violations) Add(field, reason string) {
	if _, ok := v[field]; !ok {
		v[field] = reason
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

// Email accepts a bare address such as "ann@example.com".
func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.Add(field, "required")
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.Add(field, "invalid_email")
	}
}

func MinLength(field, value string, n int, v Violations) {
	if len([]rune(value)) < n {
		v.Add(field, "too_short")
	}
}

func NonNegative(field string, val int, v Violations) {
	if val < 0 {
		v.Add(field, "must_be_non_negative")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}
