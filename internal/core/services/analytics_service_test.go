package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/mocks"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/services"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// errgroup hands repositories a derived context.
var anyCtx = mock.Anything

type analyticsFixture struct {
	analytics *mocks.MockAnalyticsRepository
	tickets   *mocks.MockTicketSnapshotRepository
	authz     *mocks.MockAuthorizationService
	svc       ports.AnalyticsService
}

func newAnalyticsFixture() analyticsFixture {
	f := analyticsFixture{
		analytics: mocks.NewMockAnalyticsRepository(),
		tickets:   mocks.NewMockTicketSnapshotRepository(),
		authz:     mocks.NewMockAuthorizationService(),
	}
	f.svc = services.NewAnalyticsService(
		f.analytics,
		f.tickets,
		f.authz,
		mocks.StaticPolicy{Policy: sla.DefaultPolicy()},
		mocks.FixedClock{At: now},
		discardLogger(),
	)
	return f
}

func TestAnalyticsService_AgentPerformance(t *testing.T) {
	actorID := uuid.New()
	busy := uuid.New()
	quiet := uuid.New()

	t.Run("merges stats with sla violations", func(t *testing.T) {
		ctx := context.Background()
		f := newAnalyticsFixture()

		late := snapshot(1, domain.PriorityCritical, 10*time.Hour)
		late.AssigneeID = &busy
		alsoLate := snapshot(2, domain.PriorityHigh, 9*time.Hour)
		alsoLate.AssigneeID = &busy
		onTime := snapshot(3, domain.PriorityLow, time.Hour)
		onTime.AssigneeID = &quiet

		f.authz.On("Can", ctx, actorID, services.PermissionAnalyticsRead).Return(true, nil)
		f.analytics.On("GetAgentResolutionStats", anyCtx).Return([]domain.AgentPerformance{
			{AgentID: quiet, FullName: "Quiet", TicketsClosed: 2, AvgHandleTimeHours: 3.5},
			{AgentID: busy, FullName: "Busy", TicketsClosed: 9, AvgHandleTimeHours: 12},
		}, nil)
		f.tickets.On("ListSnapshots", anyCtx, ports.SnapshotFilter{Assigned: true}).
			Return([]domain.TicketSnapshot{late, alsoLate, onTime}, nil)

		perf, err := f.svc.AgentPerformance(ctx, actorID)
		require.NoError(t, err)
		require.Len(t, perf, 2)

		assert.Equal(t, busy, perf[0].AgentID)
		assert.Equal(t, int64(2), perf[0].SLAViolations)
		assert.Equal(t, domain.RatingGood, perf[0].Rating)

		assert.Equal(t, quiet, perf[1].AgentID)
		assert.Equal(t, int64(0), perf[1].SLAViolations)
		assert.Equal(t, domain.RatingAverage, perf[1].Rating)
		assert.Equal(t, 3.5, perf[1].AvgHandleTimeHours)
	})

	t.Run("fetch failure surfaces", func(t *testing.T) {
		ctx := context.Background()
		f := newAnalyticsFixture()

		dbErr := errors.New("timeout")
		f.authz.On("Can", ctx, actorID, services.PermissionAnalyticsRead).Return(true, nil)
		f.analytics.On("GetAgentResolutionStats", anyCtx).Return(nil, dbErr)
		f.tickets.On("ListSnapshots", anyCtx, ports.SnapshotFilter{Assigned: true}).
			Return([]domain.TicketSnapshot{}, nil)

		perf, err := f.svc.AgentPerformance(ctx, actorID)
		assert.Nil(t, perf)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("forbidden", func(t *testing.T) {
		ctx := context.Background()
		f := newAnalyticsFixture()
		f.authz.On("Can", ctx, actorID, services.PermissionAnalyticsRead).Return(false, nil)

		_, err := f.svc.AgentPerformance(ctx, actorID)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestAnalyticsService_StatusCounts(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	f := newAnalyticsFixture()

	f.authz.On("Can", ctx, actorID, services.PermissionAnalyticsRead).Return(true, nil)
	f.analytics.On("GetStatusCounts", ctx).Return([]domain.StatusCount{
		{Status: domain.StatusNew, Count: 1},
		{Status: domain.StatusInProgress, Count: 2},
		{Status: domain.StatusOpen, Count: 3},
		{Status: domain.StatusClosed, Count: 4},
	}, nil)

	buckets, err := f.svc.StatusCounts(ctx, actorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBuckets{New: 1, Open: 5, Closed: 4}, buckets)
}

func TestAnalyticsService_UnassignedTickets(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	f := newAnalyticsFixture()

	f.authz.On("Can", ctx, actorID, services.PermissionAnalyticsRead).Return(true, nil)
	f.tickets.On("ListUnassignedOpen", ctx, services.UnassignedLimit).Return([]domain.TicketSnapshot{
		snapshot(7, domain.PriorityHigh, 30*time.Hour),
		snapshot(8, domain.PriorityLow, 90*time.Minute),
	}, nil)

	out, err := f.svc.UnassignedTickets(ctx, actorID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 30.0, out[0].HoursOpen)
	assert.Equal(t, 1.5, out[1].HoursOpen)
}

func TestAnalyticsService_TicketAging(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("buckets and average", func(t *testing.T) {
		f := newAnalyticsFixture()
		f.authz.On("Can", ctx, actorID, services.PermissionAnalyticsRead).Return(true, nil)
		f.tickets.On("ListSnapshots", ctx, ports.SnapshotFilter{OpenOnly: true}).Return([]domain.TicketSnapshot{
			snapshot(1, domain.PriorityHigh, 2*time.Hour),
			snapshot(2, domain.PriorityHigh, 30*time.Hour),
			snapshot(3, domain.PriorityHigh, 50*time.Hour),
			snapshot(4, domain.PriorityHigh, 100*time.Hour),
			snapshot(5, domain.PriorityHigh, 18*time.Hour),
		}, nil)

		aging, err := f.svc.TicketAging(ctx, actorID)
		require.NoError(t, err)

		assert.Equal(t, int64(5), aging.TotalOpen)
		assert.Equal(t, 40.0, aging.AverageAgeHours)
		assert.Equal(t, []domain.AgingBucket{
			{Label: domain.AgingUnder24h, Count: 2},
			{Label: domain.Aging24To48h, Count: 1},
			{Label: domain.Aging48To72h, Count: 1},
			{Label: domain.AgingOver72h, Count: 1},
		}, aging.Buckets)
	})

	t.Run("no open tickets", func(t *testing.T) {
		f := newAnalyticsFixture()
		f.authz.On("Can", ctx, actorID, services.PermissionAnalyticsRead).Return(true, nil)
		f.tickets.On("ListSnapshots", ctx, ports.SnapshotFilter{OpenOnly: true}).Return([]domain.TicketSnapshot{}, nil)

		aging, err := f.svc.TicketAging(ctx, actorID)
		require.NoError(t, err)
		assert.Zero(t, aging.TotalOpen)
		assert.Zero(t, aging.AverageAgeHours)
		assert.Len(t, aging.Buckets, 4)
	})
}
