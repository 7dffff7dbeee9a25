package validation

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// Validator collects field problems from request parsing so a handler can
// report all of them in one 422 response.
type Validator struct {
	errors *apperrors.ValidationErrors
}

func NewValidator() *Validator {
	return &Validator{errors: apperrors.NewValidationErrors()}
}

// Err returns the collected problems, or nil when there are none.
func (v *Validator) Err() error {
	if !v.errors.HasErrors() {
		return nil
	}
	return v.errors
}

// Check records message against field unless ok.
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.errors.Add(field, message)
	}
}

// IntQuery parses an optional integer query parameter bounded by [min, max].
// Absent values yield def; malformed ones are recorded and yield def.
func (v *Validator) IntQuery(r *http.Request, key string, def, min, max int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		v.errors.Add(key, "Must be an integer")
		return def
	}
	v.Check(value >= min && value <= max, key, fmt.Sprintf("Must be between %d and %d", min, max))
	return value
}

// PositiveID parses a positive int64 identifier such as a ticket ID.
func (v *Validator) PositiveID(field, raw string) int64 {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		v.errors.Add(field, "Must be a positive integer")
		return 0
	}
	return value
}
