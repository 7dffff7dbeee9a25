package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-sla/internal/core/assignment"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// DefaultSweepLimit bounds how many unassigned tickets one sweep handles.
const DefaultSweepLimit = 200

// AssignmentService commits workload balancer decisions. Each commit runs
// under a per-ticket lock and is a compare-and-set on the assignee column,
// so two concurrent callers can never both assign the same ticket.
type AssignmentService struct {
	tickets     ports.TicketSnapshotRepository
	agents      ports.AgentRepository
	locker      ports.TicketLocker
	authzSvc    ports.AuthorizationService
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	metrics     ports.AssignmentMetrics
	policy      ports.PolicySource
	clock       ports.Clock
	sweepLimit  int
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.AssignmentService = (*AssignmentService)(nil)

// AssignmentDeps groups the collaborators of the assignment service.
type AssignmentDeps struct {
	Tickets     ports.TicketSnapshotRepository
	Agents      ports.AgentRepository
	Locker      ports.TicketLocker
	Authz       ports.AuthorizationService
	Notifier    ports.Notifier
	Broadcaster ports.EventBroadcaster
	Metrics     ports.AssignmentMetrics
	Policy      ports.PolicySource
	Clock       ports.Clock
	SweepLimit  int
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(deps AssignmentDeps, logger *slog.Logger) ports.AssignmentService {
	limit := deps.SweepLimit
	if limit <= 0 {
		limit = DefaultSweepLimit
	}
	return &AssignmentService{
		tickets:     deps.Tickets,
		agents:      deps.Agents,
		locker:      deps.Locker,
		authzSvc:    deps.Authz,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		metrics:     deps.Metrics,
		policy:      deps.Policy,
		clock:       deps.Clock,
		sweepLimit:  limit,
		logger:      logger.With("component", "assignment_service"),
	}
}

// AutoAssign assigns one ticket to the least-loaded active agent.
func (s *AssignmentService) AutoAssign(ctx context.Context, params ports.AutoAssignParams) (domain.AssignmentDecision, error) {
	if err := authorize(ctx, s.authzSvc, params.ActorID, PermissionTicketsAssign); err != nil {
		return domain.AssignmentDecision{}, err
	}

	ticket, err := s.tickets.GetSnapshot(ctx, params.TicketID)
	if err != nil {
		return domain.AssignmentDecision{}, err
	}
	if err := ticket.Validate(); err != nil {
		return domain.AssignmentDecision{}, err
	}
	if !ticket.IsOpen() {
		return domain.AssignmentDecision{}, apperrors.ErrCannotAssignClosed
	}

	if ticket.IsAssigned() {
		decision := assignment.Assign(*ticket, nil)
		s.metrics.ObserveAssignment(decision.Outcome)
		return decision, nil
	}

	roster, err := s.agents.ListRoster(ctx)
	if err != nil {
		return domain.AssignmentDecision{}, fmt.Errorf("list roster: %w", err)
	}

	decision := assignment.Assign(*ticket, roster)
	if decision.Assigned() {
		decision, err = s.commit(ctx, decision)
		if err != nil {
			return domain.AssignmentDecision{}, err
		}
	}

	s.metrics.ObserveAssignment(decision.Outcome)
	s.logger.Info("auto-assign finished",
		"ticket_id", decision.TicketID,
		"outcome", decision.Outcome,
		"actor_id", params.ActorID,
	)
	return decision, nil
}

// AutoAssignAll sweeps unassigned open tickets, most urgent deadline first,
// counting every pick toward the chosen agent before deciding the next one.
func (s *AssignmentService) AutoAssignAll(ctx context.Context, actorID uuid.UUID) ([]domain.AssignmentDecision, error) {
	if err := authorize(ctx, s.authzSvc, actorID, PermissionTicketsAssign); err != nil {
		return nil, err
	}

	pending, err := s.tickets.ListUnassignedOpen(ctx, s.sweepLimit)
	if err != nil {
		return nil, fmt.Errorf("list unassigned: %w", err)
	}
	if len(pending) == 0 {
		return []domain.AssignmentDecision{}, nil
	}

	roster, err := s.agents.ListRoster(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}

	policy := s.policy.Current()
	slices.SortStableFunc(pending, func(a, b domain.TicketSnapshot) int {
		if c := sla.Deadline(policy, a).Compare(sla.Deadline(policy, b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	tracked := assignment.NewRoster(roster)
	decisions := make([]domain.AssignmentDecision, 0, len(pending))
	for _, ticket := range pending {
		decision, err := s.sweepOne(ctx, tracked, ticket)
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveAssignment(decision.Outcome)
		decisions = append(decisions, decision)
	}

	s.logger.Info("auto-assign sweep finished", "tickets", len(decisions), "actor_id", actorID)
	return decisions, nil
}

// sweepOne decides and commits one ticket of a sweep. Only assignments that
// landed are counted toward the roster, including ones another writer made
// first, so a lost race does not skew the picks that follow.
func (s *AssignmentService) sweepOne(ctx context.Context, roster *assignment.Roster, ticket domain.TicketSnapshot) (domain.AssignmentDecision, error) {
	decision := roster.Assign(ticket)
	if !decision.Assigned() {
		return decision, nil
	}

	committed, err := s.commit(ctx, decision)
	switch {
	case errors.Is(err, apperrors.ErrLockNotAcquired):
		s.logger.Info("ticket locked by another assignment, skipping", "ticket_id", ticket.ID)
		return domain.AssignmentDecision{TicketID: ticket.ID, Outcome: domain.OutcomeAlreadyAssigned}, nil
	case errors.Is(err, apperrors.ErrCannotAssignClosed):
		s.logger.Info("ticket closed before commit, skipping", "ticket_id", ticket.ID)
		return domain.AssignmentDecision{TicketID: ticket.ID, Outcome: domain.OutcomeTicketClosed}, nil
	case err != nil:
		return domain.AssignmentDecision{}, err
	}

	if committed.AgentID != nil {
		roster.Count(*committed.AgentID)
	}
	return committed, nil
}

// commit persists an assigned decision. If another writer assigned the
// ticket first, the decision is rewritten to report the existing assignee.
func (s *AssignmentService) commit(ctx context.Context, decision domain.AssignmentDecision) (domain.AssignmentDecision, error) {
	release, err := s.locker.Acquire(ctx, decision.TicketID)
	if err != nil {
		return domain.AssignmentDecision{}, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release ticket lock", "ticket_id", decision.TicketID, "error", err)
		}
	}()

	err = s.tickets.AssignIfUnassigned(ctx, decision.TicketID, *decision.AgentID)
	if errors.Is(err, apperrors.ErrAssignmentConflict) {
		current, getErr := s.tickets.GetSnapshot(ctx, decision.TicketID)
		if getErr != nil {
			return domain.AssignmentDecision{}, getErr
		}
		s.logger.Info("ticket assigned concurrently", "ticket_id", decision.TicketID)
		return assignment.Assign(*current, nil), nil
	}
	if err != nil {
		return domain.AssignmentDecision{}, fmt.Errorf("commit assignment: %w", err)
	}

	s.announce(decision)
	return decision, nil
}

// announce pushes the assignment event and notifies the agent in the background.
func (s *AssignmentService) announce(decision domain.AssignmentDecision) {
	agentID := *decision.AgentID
	event := domain.Event{
		Type:     domain.EventTicketAutoAssigned,
		Payload:  domain.NewAssignmentPayload(decision, s.clock.Now()),
		TicketID: decision.TicketID,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The request context may already be done.
		ctx := context.Background()

		if err := s.broadcaster.SendToUser(agentID, event); err != nil {
			s.logger.Warn("failed to push assignment event", "ticket_id", decision.TicketID, "error", err)
		}
		s.notifier.Notify(ctx, ports.NotificationParams{
			RecipientUserID: agentID,
			Subject:         fmt.Sprintf("Ticket #%d has been assigned to you", decision.TicketID),
			Message:         fmt.Sprintf("Ticket #%d was auto-assigned to you based on current workload.", decision.TicketID),
			TicketID:        decision.TicketID,
		})
	}()
}

// Shutdown waits for in-flight assignment notifications.
func (s *AssignmentService) Shutdown() {
	s.wg.Wait()
}
