package http

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ValidationErrorResponse includes field-level validation errors
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// errorMapping ties a domain error to its HTTP rendering. When message is
// empty the wrapped error text is shown to the caller.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first match wins, so specific errors precede the
// generic ones they may also wrap.
var errorMappings = []errorMapping{
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action"},

	{apperrors.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND", "Ticket not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},

	{apperrors.ErrLockNotAcquired, http.StatusConflict, "ASSIGNMENT_IN_PROGRESS", "Ticket is being assigned by another request"},
	{apperrors.ErrAssignmentConflict, http.StatusConflict, "ASSIGNMENT_CONFLICT", "Ticket was assigned concurrently"},

	{apperrors.ErrCannotAssignClosed, http.StatusUnprocessableEntity, "CANNOT_ASSIGN_CLOSED", "Cannot assign a closed ticket"},
	{apperrors.ErrInvalidTicketSnapshot, http.StatusUnprocessableEntity, "INVALID_TICKET", ""},

	{apperrors.ErrBadRequest, http.StatusBadRequest, "BAD_REQUEST", "Bad request"},
	{apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later."},
}

var internalError = errorMapping{
	status:  http.StatusInternalServerError,
	code:    "INTERNAL_ERROR",
	message: "An unexpected error occurred",
}

// ErrorHandler renders service errors as JSON and logs them at a level
// matching their status class.
type ErrorHandler struct {
	logger *slog.Logger
}

func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle writes the response for err.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.logError(r, http.StatusUnprocessableEntity, err)
		WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "Validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: validationErrs.Errors,
		})
		return
	}

	m := lookupMapping(err)
	message := m.message
	if message == "" {
		message = err.Error()
	}

	h.logError(r, m.status, err)
	WriteJSON(w, m.status, ErrorResponse{Error: message, Code: m.code})
}

func lookupMapping(err error) errorMapping {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m
		}
	}
	return internalError
}

// logError relies on the context handler for request and user IDs.
func (h *ErrorHandler) logError(r *http.Request, status int, err error) {
	level := slog.LevelWarn
	msg := "client error"
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
		msg = "server error"
	}

	h.logger.Log(r.Context(), level, msg,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"error", err.Error(),
	)
}

// HandleError reports whether err was non-nil and, if so, writes it.
// Usage: if HandleError(w, r, err, h.errorHandler) { return }
func HandleError(w http.ResponseWriter, r *http.Request, err error, handler *ErrorHandler) bool {
	if err == nil {
		return false
	}
	handler.Handle(w, r, err)
	return true
}
