package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// SnapshotFilter narrows the tickets loaded for evaluation.
type SnapshotFilter struct {
	OpenOnly    bool
	CreatedFrom *time.Time
	Assigned    bool
}

// TicketSnapshotRepository reads ticket snapshots and commits assignments.
type TicketSnapshotRepository interface {
	GetSnapshot(ctx context.Context, ticketID int64) (*domain.TicketSnapshot, error)
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]domain.TicketSnapshot, error)
	ListUnassignedOpen(ctx context.Context, limit int) ([]domain.TicketSnapshot, error)
	// AssignIfUnassigned sets the assignee only when the ticket has none.
	// It returns ErrAssignmentConflict when another writer got there first.
	AssignIfUnassigned(ctx context.Context, ticketID int64, agentID uuid.UUID) error
}

// AgentRepository reads the support roster with live load counts.
type AgentRepository interface {
	ListRoster(ctx context.Context) ([]domain.Agent, error)
}

// UserDirectory looks up staff contact details.
type UserDirectory interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// AnalyticsRepository runs reporting aggregates in the database.
type AnalyticsRepository interface {
	GetStatusCounts(ctx context.Context) ([]domain.StatusCount, error)
	GetAgentWorkload(ctx context.Context) ([]domain.AgentWorkload, error)
	GetAgentResolutionStats(ctx context.Context) ([]domain.AgentPerformance, error)
}

// AuthorizationRepository reads and maintains RBAC assignments.
type AuthorizationRepository interface {
	GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
	EnsureRBACDefaults(ctx context.Context) error
}

// TicketLocker provides a per-ticket mutual exclusion lease.
type TicketLocker interface {
	// Acquire returns a release func, or ErrLockNotAcquired if someone else holds the lease.
	Acquire(ctx context.Context, ticketID int64) (release func(context.Context) error, err error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
