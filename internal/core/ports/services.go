package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// AuthorizationService defines the port for checking user permissions.
type AuthorizationService interface {
	Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
	GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// ForecastParams defines the input for the at-risk forecast.
type ForecastParams struct {
	ActorID uuid.UUID
	Horizon time.Duration
}

// TrendParams defines the input for the compliance time series.
type TrendParams struct {
	ActorID    uuid.UUID
	PeriodDays int
}

// SLAService exposes compliance reporting.
type SLAService interface {
	GetDashboard(ctx context.Context, actorID uuid.UUID) (*domain.SLADashboard, error)
	ListViolations(ctx context.Context, actorID uuid.UUID) ([]domain.SLAViolation, error)
	Forecast(ctx context.Context, params ForecastParams) ([]domain.ForecastEntry, error)
	Trends(ctx context.Context, params TrendParams) ([]domain.DailyCompliance, error)
	Targets(ctx context.Context, actorID uuid.UUID) ([]domain.SLATarget, error)
}

// AnalyticsService exposes workload and performance reporting.
type AnalyticsService interface {
	AgentPerformance(ctx context.Context, actorID uuid.UUID) ([]domain.AgentPerformance, error)
	AgentWorkload(ctx context.Context, actorID uuid.UUID) ([]domain.AgentWorkload, error)
	StatusCounts(ctx context.Context, actorID uuid.UUID) (domain.StatusBuckets, error)
	UnassignedTickets(ctx context.Context, actorID uuid.UUID) ([]domain.UnassignedTicket, error)
	TicketAging(ctx context.Context, actorID uuid.UUID) (*domain.TicketAging, error)
}

// AutoAssignParams defines the input for assigning one ticket.
type AutoAssignParams struct {
	TicketID int64
	ActorID  uuid.UUID
}

// AssignmentService commits balancer decisions.
type AssignmentService interface {
	AutoAssign(ctx context.Context, params AutoAssignParams) (domain.AssignmentDecision, error)
	AutoAssignAll(ctx context.Context, actorID uuid.UUID) ([]domain.AssignmentDecision, error)
	Shutdown()
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	TicketID        int64
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// EventBroadcaster pushes real-time events to connected clients.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
	SendToUser(userID uuid.UUID, event domain.Event) error
}

// PolicySource returns the SLA policy currently in force.
type PolicySource interface {
	Current() sla.Policy
}

// Clock is the time source for evaluations.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// AssignmentMetrics records assignment outcomes.
type AssignmentMetrics interface {
	ObserveAssignment(outcome domain.AssignmentOutcome)
}

// ComplianceMetrics records the latest monitor pass.
type ComplianceMetrics interface {
	ObserveCompliance(summary domain.ComplianceSummary, atRisk int)
	ObserveBreachAlert(priority domain.TicketPriority)
}
