package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// MockTicketSnapshotRepository is a mock implementation of ports.TicketSnapshotRepository
type MockTicketSnapshotRepository struct {
	mock.Mock
}

func NewMockTicketSnapshotRepository() *MockTicketSnapshotRepository {
	return &MockTicketSnapshotRepository{}
}

func (m *MockTicketSnapshotRepository) GetSnapshot(ctx context.Context, ticketID int64) (*domain.TicketSnapshot, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketSnapshot), args.Error(1)
}

func (m *MockTicketSnapshotRepository) ListSnapshots(ctx context.Context, filter ports.SnapshotFilter) ([]domain.TicketSnapshot, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketSnapshot), args.Error(1)
}

func (m *MockTicketSnapshotRepository) ListUnassignedOpen(ctx context.Context, limit int) ([]domain.TicketSnapshot, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketSnapshot), args.Error(1)
}

func (m *MockTicketSnapshotRepository) AssignIfUnassigned(ctx context.Context, ticketID int64, agentID uuid.UUID) error {
	args := m.Called(ctx, ticketID, agentID)
	return args.Error(0)
}

// MockAgentRepository is a mock implementation of ports.AgentRepository
type MockAgentRepository struct {
	mock.Mock
}

func NewMockAgentRepository() *MockAgentRepository {
	return &MockAgentRepository{}
}

func (m *MockAgentRepository) ListRoster(ctx context.Context) ([]domain.Agent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Agent), args.Error(1)
}

// MockUserDirectory is a mock implementation of ports.UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func NewMockUserDirectory() *MockUserDirectory {
	return &MockUserDirectory{}
}

func (m *MockUserDirectory) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockAnalyticsRepository is a mock implementation of ports.AnalyticsRepository
type MockAnalyticsRepository struct {
	mock.Mock
}

func NewMockAnalyticsRepository() *MockAnalyticsRepository {
	return &MockAnalyticsRepository{}
}

func (m *MockAnalyticsRepository) GetStatusCounts(ctx context.Context) ([]domain.StatusCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusCount), args.Error(1)
}

func (m *MockAnalyticsRepository) GetAgentWorkload(ctx context.Context) ([]domain.AgentWorkload, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AgentWorkload), args.Error(1)
}

func (m *MockAnalyticsRepository) GetAgentResolutionStats(ctx context.Context) ([]domain.AgentPerformance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AgentPerformance), args.Error(1)
}

// MockTicketLocker is a mock implementation of ports.TicketLocker.
// Released records the ticket IDs whose lease was released.
type MockTicketLocker struct {
	mock.Mock
	mu       sync.Mutex
	Released []int64
}

func NewMockTicketLocker() *MockTicketLocker {
	return &MockTicketLocker{}
}

func (m *MockTicketLocker) Acquire(ctx context.Context, ticketID int64) (func(context.Context) error, error) {
	args := m.Called(ctx, ticketID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Released = append(m.Released, ticketID)
		return nil
	}, nil
}

// MockAuthorizationService is a mock implementation of ports.AuthorizationService
type MockAuthorizationService struct {
	mock.Mock
}

func NewMockAuthorizationService() *MockAuthorizationService {
	return &MockAuthorizationService{}
}

func (m *MockAuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	args := m.Called(ctx, userID, permission)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizationService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockSLAService is a mock implementation of ports.SLAService
type MockSLAService struct {
	mock.Mock
}

func NewMockSLAService() *MockSLAService {
	return &MockSLAService{}
}

func (m *MockSLAService) GetDashboard(ctx context.Context, actorID uuid.UUID) (*domain.SLADashboard, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SLADashboard), args.Error(1)
}

func (m *MockSLAService) ListViolations(ctx context.Context, actorID uuid.UUID) ([]domain.SLAViolation, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SLAViolation), args.Error(1)
}

func (m *MockSLAService) Forecast(ctx context.Context, params ports.ForecastParams) ([]domain.ForecastEntry, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ForecastEntry), args.Error(1)
}

func (m *MockSLAService) Trends(ctx context.Context, params ports.TrendParams) ([]domain.DailyCompliance, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DailyCompliance), args.Error(1)
}

func (m *MockSLAService) Targets(ctx context.Context, actorID uuid.UUID) ([]domain.SLATarget, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SLATarget), args.Error(1)
}

// MockAnalyticsService is a mock implementation of ports.AnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

func NewMockAnalyticsService() *MockAnalyticsService {
	return &MockAnalyticsService{}
}

func (m *MockAnalyticsService) AgentPerformance(ctx context.Context, actorID uuid.UUID) ([]domain.AgentPerformance, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AgentPerformance), args.Error(1)
}

func (m *MockAnalyticsService) AgentWorkload(ctx context.Context, actorID uuid.UUID) ([]domain.AgentWorkload, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AgentWorkload), args.Error(1)
}

func (m *MockAnalyticsService) StatusCounts(ctx context.Context, actorID uuid.UUID) (domain.StatusBuckets, error) {
	args := m.Called(ctx, actorID)
	return args.Get(0).(domain.StatusBuckets), args.Error(1)
}

func (m *MockAnalyticsService) UnassignedTickets(ctx context.Context, actorID uuid.UUID) ([]domain.UnassignedTicket, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UnassignedTicket), args.Error(1)
}

func (m *MockAnalyticsService) TicketAging(ctx context.Context, actorID uuid.UUID) (*domain.TicketAging, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketAging), args.Error(1)
}

// MockAssignmentService is a mock implementation of ports.AssignmentService
type MockAssignmentService struct {
	mock.Mock
}

func NewMockAssignmentService() *MockAssignmentService {
	return &MockAssignmentService{}
}

func (m *MockAssignmentService) AutoAssign(ctx context.Context, params ports.AutoAssignParams) (domain.AssignmentDecision, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.AssignmentDecision), args.Error(1)
}

func (m *MockAssignmentService) AutoAssignAll(ctx context.Context, actorID uuid.UUID) ([]domain.AssignmentDecision, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AssignmentDecision), args.Error(1)
}

func (m *MockAssignmentService) Shutdown() {
	m.Called()
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockEventBroadcaster) SendToUser(userID uuid.UUID, event domain.Event) error {
	args := m.Called(userID, event)
	return args.Error(0)
}

// MockMetrics is a mock implementation of the metrics ports.
type MockMetrics struct {
	mock.Mock
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{}
}

func (m *MockMetrics) ObserveAssignment(outcome domain.AssignmentOutcome) {
	m.Called(outcome)
}

func (m *MockMetrics) ObserveCompliance(summary domain.ComplianceSummary, atRisk int) {
	m.Called(summary, atRisk)
}

func (m *MockMetrics) ObserveBreachAlert(priority domain.TicketPriority) {
	m.Called(priority)
}

// StaticPolicy is a fixed ports.PolicySource.
type StaticPolicy struct {
	Policy sla.Policy
}

func (s StaticPolicy) Current() sla.Policy {
	return s.Policy
}

// FixedClock is a ports.Clock that always returns At.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}
