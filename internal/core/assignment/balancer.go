// Package assignment picks the least-loaded agent for a ticket.
//
// Assign is a pure chooser. It reads load counts that may already be stale
// and does not guard against two callers picking the same agent for the same
// ticket; committing the decision exclusively is the caller's job.
package assignment

import (
	"bytes"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// Assign returns the decision for one ticket. An assigned ticket is reported
// as already assigned and never reassigned. Among active agents the one with
// the fewest active tickets wins; ties go to the lowest agent id in byte order.
func Assign(ticket domain.TicketSnapshot, agents []domain.Agent) domain.AssignmentDecision {
	decision := domain.AssignmentDecision{TicketID: ticket.ID}

	if ticket.IsAssigned() {
		current := *ticket.AssigneeID
		decision.AgentID = &current
		decision.Outcome = domain.OutcomeAlreadyAssigned
		return decision
	}

	best := -1
	for i := range agents {
		if !agents[i].IsActive {
			continue
		}
		if best < 0 || less(agents[i], agents[best]) {
			best = i
		}
	}

	if best < 0 {
		decision.Outcome = domain.OutcomeNoEligibleAgent
		return decision
	}

	chosen := agents[best].ID
	decision.AgentID = &chosen
	decision.Outcome = domain.OutcomeAssigned
	return decision
}

func less(a, b domain.Agent) bool {
	if a.ActiveTickets != b.ActiveTickets {
		return a.ActiveTickets < b.ActiveTickets
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Roster is a private copy of the agent list whose load counts a batch
// caller bumps as assignments are confirmed. The slice handed to NewRoster
// is not modified.
type Roster struct {
	agents []domain.Agent
	index  map[uuid.UUID]int
}

func NewRoster(agents []domain.Agent) *Roster {
	r := &Roster{
		agents: make([]domain.Agent, len(agents)),
		index:  make(map[uuid.UUID]int, len(agents)),
	}
	copy(r.agents, agents)
	for i, a := range r.agents {
		r.index[a.ID] = i
	}
	return r
}

// Assign decides ticket against the current counts without changing them.
func (r *Roster) Assign(ticket domain.TicketSnapshot) domain.AssignmentDecision {
	return Assign(ticket, r.agents)
}

// Count adds one active ticket to agentID. Agents outside the roster are ignored.
func (r *Roster) Count(agentID uuid.UUID) {
	if i, ok := r.index[agentID]; ok {
		r.agents[i].ActiveTickets++
	}
}

// ActiveTickets returns the tracked load of agentID.
func (r *Roster) ActiveTickets(agentID uuid.UUID) (int, bool) {
	i, ok := r.index[agentID]
	if !ok {
		return 0, false
	}
	return r.agents[i].ActiveTickets, true
}

// Plan assigns a batch of tickets in order, assuming every pick commits, and
// counts each pick toward the chosen agent before deciding the next ticket.
// The roster passed in is not modified.
func Plan(tickets []domain.TicketSnapshot, agents []domain.Agent) []domain.AssignmentDecision {
	roster := NewRoster(agents)

	decisions := make([]domain.AssignmentDecision, 0, len(tickets))
	for _, ticket := range tickets {
		decision := roster.Assign(ticket)
		if decision.Assigned() {
			roster.Count(*decision.AgentID)
		}
		decisions = append(decisions, decision)
	}
	return decisions
}
