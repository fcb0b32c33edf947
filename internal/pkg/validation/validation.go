package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"stayloft-backend/internal/pkg/apperr"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Names: letters, spaces, hyphens, apostrophes and dots.
var nameRe = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires at least 8 characters with a letter, a digit and a symbol.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidName(name string) bool {
	return name != "" && nameRe.MatchString(name)
}

// Body is a decoded JSON object. Accessors return apperr validation errors
// naming the offending field.
type Body map[string]interface{}

// Has reports whether field is present and not null.
func (b Body) Has(field string) bool {
	v, ok := b[field]
	return ok && v != nil
}

// String returns the trimmed string value of field, "" when absent.
func (b Body) String(field string) (string, error) {
	v, ok := b[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", apperr.Validation(field, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

// RequiredString is String but rejects absent or blank values.
func (b Body) RequiredString(field string) (string, error) {
	s, err := b.String(field)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", apperr.Validation(field, "is required")
	}
	return s, nil
}

// OptionalString returns nil when the field is absent, null or blank.
func (b Body) OptionalString(field string) (*string, error) {
	s, err := b.String(field)
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

// Int parses an integral field. Fractions and non-numeric text are rejected.
func (b Body) Int(field string) (int, error) {
	return ParseInt(field, b[field])
}

// OptionalInt returns nil when the field is absent or null.
func (b Body) OptionalInt(field string) (*int, error) {
	if !b.Has(field) {
		return nil, nil
	}
	n, err := b.Int(field)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Float parses a finite number field.
func (b Body) Float(field string) (float64, error) {
	return ParseFloat(field, b[field])
}

// OptionalFloat returns nil when the field is absent or null.
func (b Body) OptionalFloat(field string) (*float64, error) {
	if !b.Has(field) {
		return nil, nil
	}
	f, err := b.Float(field)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Bool accepts JSON booleans and the strings "true"/"false".
func (b Body) Bool(field string) (bool, error) {
	switch v := b[field].(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	case nil:
		return false, apperr.Validation(field, "is required")
	}
	return false, apperr.Validation(field, "must be a boolean")
}

// OptionalBool returns nil when the field is absent or null.
func (b Body) OptionalBool(field string) (*bool, error) {
	if !b.Has(field) {
		return nil, nil
	}
	v, err := b.Bool(field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Strings returns a list of strings; a single string is treated as a one-element list.
func (b Body) Strings(field string) ([]string, error) {
	switch v := b[field].(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{strings.TrimSpace(v)}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, apperr.Validation(field, "must be a list of strings")
			}
			out = append(out, strings.TrimSpace(s))
		}
		return out, nil
	}
	return nil, apperr.Validation(field, "must be a list of strings")
}

// Objects returns a list of JSON objects.
func (b Body) Objects(field string) ([]Body, error) {
	v, ok := b[field]
	if !ok || v == nil {
		return nil, apperr.Validation(field, "is required")
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, apperr.Validation(field, "must be a list")
	}
	out := make([]Body, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, apperr.Validation(field, "must be a list of objects")
		}
		out = append(out, Body(m))
	}
	return out, nil
}

// ParseInt converts a JSON number or numeric string to an int.
func ParseInt(field string, v interface{}) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, apperr.Validation(field, "is required")
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, apperr.Validation(field, "must be a whole number")
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, apperr.Validation(field, "is out of range")
		}
		return int(n), nil
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, apperr.Validation(field, "must be a whole number")
		}
		return i, nil
	}
	return 0, apperr.Validation(field, "must be a whole number")
}

// ParseFloat converts a JSON number or numeric string to a finite float64.
func ParseFloat(field string, v interface{}) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, apperr.Validation(field, "is required")
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, apperr.Validation(field, "must be a number")
		}
		f = parsed
	default:
		return 0, apperr.Validation(field, "must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Validation(field, "must be a number")
	}
	return f, nil
}
