package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

func TestAssignmentHandler_AutoAssign(t *testing.T) {
	ts := newTestServer(t)
	agent := uuid.New()

	ts.assignment.On("AutoAssign", mock.Anything, ports.AutoAssignParams{TicketID: 42, ActorID: ts.userID}).
		Return(domain.AssignmentDecision{TicketID: 42, AgentID: &agent, Outcome: domain.OutcomeAssigned}, nil).Once()

	rec := ts.do(t, http.MethodPost, "/api/v1/tickets/42/assign")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[AssignmentDecisionDTO](t, rec)
	assert.Equal(t, int64(42), got.TicketID)
	assert.Equal(t, "ASSIGNED", got.Outcome)
	require.NotNil(t, got.AgentID)
	assert.Equal(t, agent.String(), *got.AgentID)
}

func TestAssignmentHandler_NoEligibleAgentIsNotAnError(t *testing.T) {
	ts := newTestServer(t)
	ts.assignment.On("AutoAssign", mock.Anything, ports.AutoAssignParams{TicketID: 7, ActorID: ts.userID}).
		Return(domain.AssignmentDecision{TicketID: 7, Outcome: domain.OutcomeNoEligibleAgent}, nil).Once()

	rec := ts.do(t, http.MethodPost, "/api/v1/tickets/7/assign")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ticketId":7,"agentId":null,"outcome":"NO_ELIGIBLE_AGENT"}`, rec.Body.String())
}

func TestAssignmentHandler_InvalidTicketID(t *testing.T) {
	ts := newTestServer(t)

	for _, id := range []string{"0", "-3", "abc"} {
		rec := ts.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/assign")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, id)
	}
	ts.assignment.AssertNotCalled(t, "AutoAssign", mock.Anything, mock.Anything)
}

func TestAssignmentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", apperrors.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"locked", apperrors.ErrLockNotAcquired, http.StatusConflict, "ASSIGNMENT_IN_PROGRESS"},
		{"closed", apperrors.ErrCannotAssignClosed, http.StatusUnprocessableEntity, "CANNOT_ASSIGN_CLOSED"},
		{
			"invalid snapshot",
			&apperrors.SnapshotError{TicketID: 9, Err: apperrors.ErrCreatedAtRequired},
			http.StatusUnprocessableEntity,
			"INVALID_TICKET",
		},
		{"wrapped", fmt.Errorf("commit: %w", apperrors.ErrAssignmentConflict), http.StatusConflict, "ASSIGNMENT_CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.assignment.On("AutoAssign", mock.Anything, ports.AutoAssignParams{TicketID: 9, ActorID: ts.userID}).
				Return(domain.AssignmentDecision{}, tt.err).Once()

			rec := ts.do(t, http.MethodPost, "/api/v1/tickets/9/assign")
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestAssignmentHandler_Sweep(t *testing.T) {
	ts := newTestServer(t)
	a, b := uuid.New(), uuid.New()

	ts.assignment.On("AutoAssignAll", mock.Anything, ts.userID).Return([]domain.AssignmentDecision{
		{TicketID: 1, AgentID: &a, Outcome: domain.OutcomeAssigned},
		{TicketID: 2, AgentID: &b, Outcome: domain.OutcomeAssigned},
		{TicketID: 3, AgentID: &a, Outcome: domain.OutcomeAlreadyAssigned},
		{TicketID: 4, Outcome: domain.OutcomeNoEligibleAgent},
		{TicketID: 5, Outcome: domain.OutcomeTicketClosed},
	}, nil).Once()

	rec := ts.do(t, http.MethodPost, "/api/v1/assignments/sweep")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[SweepResultDTO](t, rec)
	assert.Len(t, got.Decisions, 5)
	assert.Equal(t, 2, got.Assigned)
	assert.Equal(t, 1, got.AlreadyAssigned)
	assert.Equal(t, 1, got.NoEligibleAgent)
	assert.Equal(t, 1, got.Closed)
}

func TestAssignmentHandler_SweepWrongMethod(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/assignments/sweep")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
