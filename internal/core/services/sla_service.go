package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// Reporting defaults applied when a caller leaves a parameter unset.
const (
	DefaultForecastHorizon = 24 * time.Hour
	DefaultTrendDays       = 30
)

// SLAServiceConfig holds the reporting defaults.
type SLAServiceConfig struct {
	ForecastHorizon time.Duration
	TrendDays       int
}

// SLAService implements compliance reporting on top of the sla engine.
// Every call loads fresh snapshots and evaluates them at the clock's now.
type SLAService struct {
	tickets  ports.TicketSnapshotRepository
	authzSvc ports.AuthorizationService
	policy   ports.PolicySource
	clock    ports.Clock
	cfg      SLAServiceConfig
	logger   *slog.Logger
}

var _ ports.SLAService = (*SLAService)(nil)

// NewSLAService creates a new SLA reporting service
func NewSLAService(
	tickets ports.TicketSnapshotRepository,
	authzSvc ports.AuthorizationService,
	policy ports.PolicySource,
	clock ports.Clock,
	cfg SLAServiceConfig,
	logger *slog.Logger,
) ports.SLAService {
	if cfg.ForecastHorizon <= 0 {
		cfg.ForecastHorizon = DefaultForecastHorizon
	}
	if cfg.TrendDays <= 0 {
		cfg.TrendDays = DefaultTrendDays
	}
	return &SLAService{
		tickets:  tickets,
		authzSvc: authzSvc,
		policy:   policy,
		clock:    clock,
		cfg:      cfg,
		logger:   logger.With("component", "sla_service"),
	}
}

// GetDashboard returns overall compliance, the per-priority breakdown and
// the number of tickets at risk within the default horizon.
func (s *SLAService) GetDashboard(ctx context.Context, actorID uuid.UUID) (*domain.SLADashboard, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionSLARead); err != nil {
		return nil, err
	}

	tickets, err := s.tickets.ListSnapshots(ctx, ports.SnapshotFilter{})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	policy := s.policy.Current()
	now := s.clock.Now()

	summary := sla.Aggregate(policy, tickets, now)
	s.logRejected(summary.Rejected)

	return &domain.SLADashboard{
		Summary:     summary,
		ByPriority:  sla.AggregateByPriority(policy, tickets, now),
		AtRisk:      len(sla.Forecast(policy, tickets, s.cfg.ForecastHorizon, now)),
		HorizonHrs:  s.cfg.ForecastHorizon.Hours(),
		GeneratedAt: now,
	}, nil
}

// ListViolations returns every ticket currently in breach, in snapshot order.
func (s *SLAService) ListViolations(ctx context.Context, actorID uuid.UUID) ([]domain.SLAViolation, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionSLARead); err != nil {
		return nil, err
	}

	tickets, err := s.tickets.ListSnapshots(ctx, ports.SnapshotFilter{})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	summary := sla.Aggregate(s.policy.Current(), tickets, s.clock.Now())
	s.logRejected(summary.Rejected)

	byID := make(map[int64]*domain.TicketSnapshot, len(tickets))
	for i := range tickets {
		byID[tickets[i].ID] = &tickets[i]
	}

	violations := make([]domain.SLAViolation, 0, len(summary.Violating))
	for _, v := range summary.Violating {
		ticket := byID[v.TicketID]
		violations = append(violations, domain.SLAViolation{
			TicketID:     v.TicketID,
			Title:        ticket.Title,
			Priority:     v.EffectivePriority,
			Status:       ticket.Status,
			AssigneeID:   v.AssigneeID,
			HoursElapsed: v.Measured.Hours(),
			TargetHours:  v.Threshold.Hours(),
			CreatedAt:    ticket.CreatedAt,
		})
	}
	return violations, nil
}

// Forecast lists open tickets that breach within the horizon, most urgent first.
func (s *SLAService) Forecast(ctx context.Context, params ports.ForecastParams) ([]domain.ForecastEntry, error) {
	if err := authorize(ctx, s.authzSvc, params.ActorID, PermissionSLARead); err != nil {
		return nil, err
	}

	horizon := params.Horizon
	if horizon <= 0 {
		horizon = s.cfg.ForecastHorizon
	}

	open, err := s.tickets.ListSnapshots(ctx, ports.SnapshotFilter{OpenOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list open snapshots: %w", err)
	}

	return sla.Forecast(s.policy.Current(), open, horizon, s.clock.Now()), nil
}

// Trends returns the daily compliance series ending today.
func (s *SLAService) Trends(ctx context.Context, params ports.TrendParams) ([]domain.DailyCompliance, error) {
	if err := authorize(ctx, s.authzSvc, params.ActorID, PermissionSLARead); err != nil {
		return nil, err
	}

	days := params.PeriodDays
	if days <= 0 {
		days = s.cfg.TrendDays
	}

	now := s.clock.Now()
	y, m, d := now.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	tickets, err := s.tickets.ListSnapshots(ctx, ports.SnapshotFilter{CreatedFrom: &from})
	if err != nil {
		return nil, fmt.Errorf("list snapshots since %s: %w", from.Format(time.DateOnly), err)
	}

	return sla.Trend(s.policy.Current(), tickets, days, now), nil
}

// Targets lists the configured threshold per priority.
func (s *SLAService) Targets(ctx context.Context, actorID uuid.UUID) ([]domain.SLATarget, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionSLARead); err != nil {
		return nil, err
	}
	return s.policy.Current().Targets(), nil
}

func (s *SLAService) logRejected(rejected []domain.RejectedTicket) {
	for _, r := range rejected {
		s.logger.Warn("ticket snapshot rejected", "ticket_id", r.TicketID, "reason", r.Reason)
	}
}
