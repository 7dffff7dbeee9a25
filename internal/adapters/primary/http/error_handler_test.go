package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

func TestErrorHandler_Mappings(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"forbidden", fmt.Errorf("user x: %w", apperrors.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{"ticket missing", apperrors.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},
		{"generic missing", fmt.Errorf("%w: role", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"lock held", apperrors.ErrLockNotAcquired, http.StatusConflict, "ASSIGNMENT_IN_PROGRESS"},
		{"lost race", apperrors.ErrAssignmentConflict, http.StatusConflict, "ASSIGNMENT_CONFLICT"},
		{"closed", apperrors.ErrCannotAssignClosed, http.StatusUnprocessableEntity, "CANNOT_ASSIGN_CLOSED"},
		{"rate limited", apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			got := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.NotContains(t, got.Error, "db exploded")
		})
	}
}

func TestErrorHandler_InvalidSnapshotShowsCause(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := &apperrors.SnapshotError{TicketID: 7, Err: apperrors.ErrCreatedAtRequired}

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodPost, "/", nil), err)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decode[ErrorResponse](t, rec)
	assert.Equal(t, "INVALID_TICKET", got.Code)
	assert.Equal(t, "ticket 7: ticket creation time is required", got.Error)
}

func TestErrorHandler_Validation(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	errs := apperrors.NewValidationErrors()
	errs.Add("hours", "must be between 1 and 720")

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), errs)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decode[ValidationErrorResponse](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", got.Code)
	assert.Equal(t, []string{"must be between 1 and 720"}, got.Fields["hours"])
}

func TestHandleError_NilIsNoop(t *testing.T) {
	rec := httptest.NewRecorder()
	handled := HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil, nil)

	assert.False(t, handled)
	assert.Equal(t, http.StatusOK, rec.Code)
}
