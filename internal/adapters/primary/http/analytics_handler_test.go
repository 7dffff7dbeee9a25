package http

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

func TestAnalyticsHandler_Performance(t *testing.T) {
	ts := newTestServer(t)
	agent := uuid.New()

	ts.analytics.On("AgentPerformance", mock.Anything, ts.userID).Return([]domain.AgentPerformance{
		{AgentID: agent, FullName: "Ada", TicketsClosed: 6, SLAViolations: 1, AvgHandleTimeHours: 3.25, Rating: domain.RatingGood},
	}, nil).Once()

	rec := ts.do(t, http.MethodGet, "/api/v1/analytics/agents/performance")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ListResponse[AgentPerformanceDTO]](t, rec)
	require.Len(t, got.Data, 1)
	assert.Equal(t, agent.String(), got.Data[0].AgentID)
	assert.Equal(t, "Good", got.Data[0].Rating)
	assert.Equal(t, 3.25, got.Data[0].AvgHandleTimeHours)
}

func TestAnalyticsHandler_Workload(t *testing.T) {
	ts := newTestServer(t)
	agent := uuid.New()

	ts.analytics.On("AgentWorkload", mock.Anything, ts.userID).Return([]domain.AgentWorkload{
		{AgentID: agent, FullName: "Ada", Email: "ada@example.com", TotalTickets: 9, ActiveTickets: 4},
	}, nil).Once()

	rec := ts.do(t, http.MethodGet, "/api/v1/analytics/agents/workload")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ListResponse[AgentWorkloadDTO]](t, rec)
	require.Len(t, got.Data, 1)
	assert.Equal(t, int64(4), got.Data[0].ActiveTickets)
	assert.Equal(t, "ada@example.com", got.Data[0].Email)
}

func TestAnalyticsHandler_StatusCounts(t *testing.T) {
	ts := newTestServer(t)
	ts.analytics.On("StatusCounts", mock.Anything, ts.userID).
		Return(domain.StatusBuckets{New: 1, Open: 2, Pending: 3, Closed: 4}, nil).Once()

	rec := ts.do(t, http.MethodGet, "/api/v1/analytics/tickets/status-counts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"new":1,"open":2,"pending":3,"closed":4}`, rec.Body.String())
}

func TestAnalyticsHandler_Unassigned(t *testing.T) {
	ts := newTestServer(t)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	ts.analytics.On("UnassignedTickets", mock.Anything, ts.userID).Return([]domain.UnassignedTicket{
		{TicketID: 12, Title: "Laptop", Priority: domain.PriorityMedium, CreatedAt: created, HoursOpen: 5.456},
	}, nil).Once()

	rec := ts.do(t, http.MethodGet, "/api/v1/analytics/tickets/unassigned")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ListResponse[UnassignedTicketDTO]](t, rec)
	require.Len(t, got.Data, 1)
	assert.Equal(t, 5.46, got.Data[0].HoursOpen)
	assert.Equal(t, "MEDIUM", got.Data[0].Priority)
}

func TestAnalyticsHandler_Aging(t *testing.T) {
	ts := newTestServer(t)
	ts.analytics.On("TicketAging", mock.Anything, ts.userID).Return(&domain.TicketAging{
		Buckets: []domain.AgingBucket{
			{Label: domain.AgingUnder24h, Count: 2},
			{Label: domain.Aging24To48h, Count: 0},
			{Label: domain.Aging48To72h, Count: 1},
			{Label: domain.AgingOver72h, Count: 0},
		},
		TotalOpen:       3,
		AverageAgeHours: 20.333,
	}, nil).Once()

	rec := ts.do(t, http.MethodGet, "/api/v1/analytics/tickets/aging")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[TicketAgingDTO](t, rec)
	require.Len(t, got.Buckets, 4)
	assert.Equal(t, "0-24h", got.Buckets[0].Label)
	assert.Equal(t, int64(3), got.TotalOpen)
	assert.Equal(t, 20.33, got.AverageAgeHours)
}

func TestAnalyticsHandler_InternalError(t *testing.T) {
	ts := newTestServer(t)
	ts.analytics.On("AgentWorkload", mock.Anything, ts.userID).Return(nil, errors.New("db down")).Once()

	rec := ts.do(t, http.MethodGet, "/api/v1/analytics/agents/workload")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	got := decode[ErrorResponse](t, rec)
	assert.Equal(t, "INTERNAL_ERROR", got.Code)
	assert.NotContains(t, got.Error, "db down")
}
