package domain

import "github.com/google/uuid"

// Agent is a member of the support roster as seen by the workload balancer.
// ActiveTickets is derived externally and is only read here.
type Agent struct {
	ID            uuid.UUID
	FullName      string
	Email         string
	IsActive      bool
	ActiveTickets int
}

// AssignmentOutcome describes what the balancer decided for a ticket.
type AssignmentOutcome string

const (
	OutcomeAssigned        AssignmentOutcome = "ASSIGNED"
	OutcomeAlreadyAssigned AssignmentOutcome = "ALREADY_ASSIGNED"
	OutcomeNoEligibleAgent AssignmentOutcome = "NO_ELIGIBLE_AGENT"
	// OutcomeTicketClosed reports a ticket that stopped its SLA clock
	// between the read and the commit.
	OutcomeTicketClosed AssignmentOutcome = "TICKET_CLOSED"
)

// AssignmentDecision is the balancer's answer for one ticket. AgentID is set
// for OutcomeAssigned and, for OutcomeAlreadyAssigned, carries the existing
// assignee. The caller persists the decision.
type AssignmentDecision struct {
	TicketID int64
	AgentID  *uuid.UUID
	Outcome  AssignmentOutcome
}

// Assigned reports whether the decision picked a new agent.
func (d AssignmentDecision) Assigned() bool {
	return d.Outcome == OutcomeAssigned && d.AgentID != nil
}
