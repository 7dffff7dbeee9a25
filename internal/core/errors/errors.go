package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrForbidden    = errors.New("action forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Ticket snapshot validation (caller misuse)
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrInvalidTicketSnapshot = errors.New("invalid ticket snapshot")
	ErrTicketIDRequired      = errors.New("ticket ID is required")
	ErrCreatedAtRequired     = errors.New("ticket creation time is required")

	// Assignment
	ErrUserNotFound        = errors.New("user not found")
	ErrCannotAssignClosed  = errors.New("cannot assign a closed ticket")
	ErrAssignmentConflict  = errors.New("ticket was assigned concurrently")
	ErrLockNotAcquired     = errors.New("ticket is locked by another assignment")
	ErrRoleAlreadyAssigned = errors.New("role already assigned")

	// Configuration
	ErrInvalidPolicy = errors.New("invalid SLA policy")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// SnapshotError reports a structurally invalid ticket snapshot.
// It matches ErrInvalidTicketSnapshot and the specific field error via errors.Is.
type SnapshotError struct {
	TicketID int64
	Err      error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("ticket %d: %v", e.TicketID, e.Err)
}

func (e *SnapshotError) Unwrap() []error {
	return []error{ErrInvalidTicketSnapshot, e.Err}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
