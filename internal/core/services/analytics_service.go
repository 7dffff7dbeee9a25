package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// UnassignedLimit caps the unassigned tickets report.
const UnassignedLimit = 20

// AnalyticsService implements workload and performance reporting.
type AnalyticsService struct {
	analytics ports.AnalyticsRepository
	tickets   ports.TicketSnapshotRepository
	authzSvc  ports.AuthorizationService
	policy    ports.PolicySource
	clock     ports.Clock
	logger    *slog.Logger
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	analytics ports.AnalyticsRepository,
	tickets ports.TicketSnapshotRepository,
	authzSvc ports.AuthorizationService,
	policy ports.PolicySource,
	clock ports.Clock,
	logger *slog.Logger,
) ports.AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		tickets:   tickets,
		authzSvc:  authzSvc,
		policy:    policy,
		clock:     clock,
		logger:    logger.With("component", "analytics_service"),
	}
}

// AgentPerformance combines resolution stats from the database with SLA
// violations counted by evaluating each agent's assigned tickets.
func (s *AnalyticsService) AgentPerformance(ctx context.Context, actorID uuid.UUID) ([]domain.AgentPerformance, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionAnalyticsRead); err != nil {
		return nil, err
	}

	var (
		stats    []domain.AgentPerformance
		assigned []domain.TicketSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.analytics.GetAgentResolutionStats(gctx)
		if err != nil {
			return fmt.Errorf("agent resolution stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assigned, err = s.tickets.ListSnapshots(gctx, ports.SnapshotFilter{Assigned: true})
		if err != nil {
			return fmt.Errorf("list assigned snapshots: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	policy := s.policy.Current()
	now := s.clock.Now()

	violations := make(map[uuid.UUID]int64)
	for _, ticket := range assigned {
		verdict, err := sla.Evaluate(policy, ticket, now)
		if err != nil {
			s.logger.Warn("skipping invalid snapshot", "ticket_id", ticket.ID, "error", err)
			continue
		}
		if verdict.IsViolated && ticket.AssigneeID != nil {
			violations[*ticket.AssigneeID]++
		}
	}

	out := make([]domain.AgentPerformance, 0, len(stats))
	for _, st := range stats {
		st.SLAViolations = violations[st.AgentID]
		st.Rating = domain.RatingFor(st.TicketsClosed)
		out = append(out, st)
	}

	slices.SortStableFunc(out, func(a, b domain.AgentPerformance) int {
		return cmp.Compare(b.TicketsClosed, a.TicketsClosed)
	})
	return out, nil
}

// AgentWorkload returns assigned and active ticket counts per agent.
func (s *AnalyticsService) AgentWorkload(ctx context.Context, actorID uuid.UUID) ([]domain.AgentWorkload, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionAnalyticsRead); err != nil {
		return nil, err
	}
	return s.analytics.GetAgentWorkload(ctx)
}

// StatusCounts folds per-status counts into the reporting buckets.
func (s *AnalyticsService) StatusCounts(ctx context.Context, actorID uuid.UUID) (domain.StatusBuckets, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionAnalyticsRead); err != nil {
		return domain.StatusBuckets{}, err
	}

	counts, err := s.analytics.GetStatusCounts(ctx)
	if err != nil {
		return domain.StatusBuckets{}, err
	}
	return domain.BucketStatusCounts(counts), nil
}

// UnassignedTickets lists the oldest open tickets without an agent.
func (s *AnalyticsService) UnassignedTickets(ctx context.Context, actorID uuid.UUID) ([]domain.UnassignedTicket, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionAnalyticsRead); err != nil {
		return nil, err
	}

	tickets, err := s.tickets.ListUnassignedOpen(ctx, UnassignedLimit)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]domain.UnassignedTicket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, domain.UnassignedTicket{
			TicketID:  t.ID,
			Title:     t.Title,
			Priority:  t.Priority,
			CreatedAt: t.CreatedAt,
			HoursOpen: max(now.Sub(t.CreatedAt).Hours(), 0),
		})
	}
	return out, nil
}

// TicketAging distributes open tickets over age buckets.
func (s *AnalyticsService) TicketAging(ctx context.Context, actorID uuid.UUID) (*domain.TicketAging, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionAnalyticsRead); err != nil {
		return nil, err
	}

	open, err := s.tickets.ListSnapshots(ctx, ports.SnapshotFilter{OpenOnly: true})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	counts := make(map[string]int64, len(domain.AgingBucketLabels))
	var totalHours float64
	for _, t := range open {
		age := max(now.Sub(t.CreatedAt), 0)
		counts[domain.AgingBucketFor(age)]++
		totalHours += age.Hours()
	}

	aging := &domain.TicketAging{
		Buckets:   make([]domain.AgingBucket, 0, len(domain.AgingBucketLabels)),
		TotalOpen: int64(len(open)),
	}
	for _, label := range domain.AgingBucketLabels {
		aging.Buckets = append(aging.Buckets, domain.AgingBucket{Label: label, Count: counts[label]})
	}
	if len(open) > 0 {
		aging.AverageAgeHours = totalHours / float64(len(open))
	}
	return aging, nil
}
