package domain

import (
	"time"
)

// SLAAlertPayload matches the API response shape for breach and at-risk alerts.
type SLAAlertPayload struct {
	TicketID       int64   `json:"ticketId"`
	Title          string  `json:"title,omitempty"`
	Priority       string  `json:"priority"`
	AssigneeID     *string `json:"assigneeId"`
	Deadline       string  `json:"deadline"`
	HoursRemaining float64 `json:"hoursRemaining"`
	Overdue        bool    `json:"overdue"`
	Risk           string  `json:"risk"`
}

// AssignmentPayload matches the API response shape for auto-assignment events.
type AssignmentPayload struct {
	TicketID   int64  `json:"ticketId"`
	AgentID    string `json:"agentId"`
	Outcome    string `json:"outcome"`
	AssignedAt string `json:"assignedAt"`
}

// NewSLAAlertPayload builds an alert payload from a forecast entry.
func NewSLAAlertPayload(entry ForecastEntry) SLAAlertPayload {
	var assigneeID *string
	if entry.AssigneeID != nil {
		value := entry.AssigneeID.String()
		assigneeID = &value
	}

	return SLAAlertPayload{
		TicketID:       entry.TicketID,
		Title:          entry.Title,
		Priority:       string(entry.Priority),
		AssigneeID:     assigneeID,
		Deadline:       entry.Deadline.UTC().Format(time.RFC3339),
		HoursRemaining: entry.Remaining.Hours(),
		Overdue:        entry.Overdue,
		Risk:           string(entry.Risk),
	}
}

// NewAssignmentPayload builds an assignment payload from a committed decision.
func NewAssignmentPayload(decision AssignmentDecision, at time.Time) AssignmentPayload {
	var agentID string
	if decision.AgentID != nil {
		agentID = decision.AgentID.String()
	}

	return AssignmentPayload{
		TicketID:   decision.TicketID,
		AgentID:    agentID,
		Outcome:    string(decision.Outcome),
		AssignedAt: at.UTC().Format(time.RFC3339),
	}
}
