package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// TicketStatus represents the lifecycle label of a ticket.
type TicketStatus string

const (
	StatusNew        TicketStatus = "NEW"
	StatusOpen       TicketStatus = "OPEN"
	StatusInProgress TicketStatus = "IN_PROGRESS"
	StatusPending    TicketStatus = "PENDING"
	StatusResolved   TicketStatus = "RESOLVED"
	StatusClosed     TicketStatus = "CLOSED"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []TicketStatus{
	StatusNew,
	StatusOpen,
	StatusInProgress,
	StatusPending,
	StatusResolved,
	StatusClosed,
}

// IsValid reports whether the status is one of the known lifecycle labels.
func (s TicketStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status stops the SLA clock.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed
}

func (s TicketStatus) String() string {
	return string(s)
}

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityCritical TicketPriority = "CRITICAL"
	PriorityHigh     TicketPriority = "HIGH"
	PriorityMedium   TicketPriority = "MEDIUM"
	PriorityLow      TicketPriority = "LOW"
)

// DefaultPriority is the tier used when a ticket carries no or an unknown priority.
const DefaultPriority = PriorityMedium

// AllPriorities lists priorities from most to least severe.
var AllPriorities = []TicketPriority{
	PriorityCritical,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
}

// IsValid reports whether the priority is one of the closed set of tiers.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (p TicketPriority) String() string {
	return string(p)
}

// TicketSnapshot is the read-only view of a ticket used for SLA evaluation
// and assignment. It is owned by the ticket-management side; the engine
// never mutates it.
type TicketSnapshot struct {
	ID         int64
	Title      string
	Priority   TicketPriority
	Status     TicketStatus
	AssigneeID *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	ResolvedAt *time.Time
}

// Validate checks the fields the engine cannot work without.
func (t *TicketSnapshot) Validate() error {
	if t.ID == 0 {
		return &apperrors.SnapshotError{TicketID: t.ID, Err: apperrors.ErrTicketIDRequired}
	}
	if t.CreatedAt.IsZero() {
		return &apperrors.SnapshotError{TicketID: t.ID, Err: apperrors.ErrCreatedAtRequired}
	}
	return nil
}

// IsOpen reports whether the ticket is still running against its SLA.
func (t *TicketSnapshot) IsOpen() bool {
	return t.ResolvedAt == nil && !t.Status.IsTerminal()
}

// IsAssigned reports whether the ticket already has an agent.
func (t *TicketSnapshot) IsAssigned() bool {
	return t.AssigneeID != nil && *t.AssigneeID != uuid.Nil
}
