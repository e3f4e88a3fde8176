package secrets

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ValidationError represents a validation failure for required secrets.
type ValidationError struct {
	Empty   []string // variables that are unset or blank
	Invalid []string // variables whose value has the wrong shape
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Empty) > 0 {
		parts = append(parts, fmt.Sprintf("empty values for required environment variables: %s", strings.Join(e.Empty, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid values for environment variables: %s", strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}

// ValidateRequired checks that every named value is non-empty. Names in the error are sorted.
func ValidateRequired(values map[string]string) error {
	var empty []string
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			empty = append(empty, key)
		}
	}
	if len(empty) == 0 {
		return nil
	}
	sort.Strings(empty)
	return &ValidationError{Empty: empty}
}

// ValidateURL checks that raw parses as a URL with one of the given schemes and a host.
// An empty value passes; pair it with ValidateRequired to demand presence.
func ValidateURL(name, raw string, schemes ...string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return &ValidationError{Invalid: []string{name}}
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return nil
		}
	}
	return &ValidationError{Invalid: []string{name}}
}
