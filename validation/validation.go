// Package validation accumulates field-level input violations that handlers
// return as the details of a 400 response.
package validation

import (
	"regexp"
	"strings"
	"time"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// DateLayout is the wire format for birth dates.
const DateLayout = "2006-01-02"

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func Email(field, value string, v Violations) {
	if value != "" && !emailRegex.MatchString(value) {
		v[field] = "invalid_email"
	}
}

func MinLen(field, value string, minLen int, v Violations) {
	if len(value) < minLen {
		v[field] = "too_short"
	}
}

// Date validates value against DateLayout and returns the parsed day.
func Date(field, value string, v Violations) time.Time {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		v[field] = "invalid_date"
		return time.Time{}
	}
	return t
}

// OneOf restricts value to an allowed set; empty values are left to Required.
func OneOf(field, value string, allowed []string, v Violations) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "not_allowed"
}
