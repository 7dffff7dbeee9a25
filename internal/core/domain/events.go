package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventSLABreached        EventType = "SLA_BREACHED"
	EventSLAAtRisk          EventType = "SLA_AT_RISK"
	EventTicketAutoAssigned EventType = "TICKET_AUTO_ASSIGNED"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type     EventType   `json:"type"`
	Payload  interface{} `json:"payload"`
	TicketID int64       `json:"ticketId"`
}
