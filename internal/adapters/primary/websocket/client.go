package websocket

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// Client message types.
const (
	MessageSubscribeAlerts   = "SUBSCRIBE_SLA_ALERTS"
	MessageUnsubscribeAlerts = "UNSUBSCRIBE_SLA_ALERTS"
	MessageSubscribeTicket   = "SUBSCRIBE_TO_TICKET"
	MessageUnsubscribeTicket = "UNSUBSCRIBE_FROM_TICKET"
	MessagePing              = "PING"
	MessagePong              = "PONG"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1024
	sendBufferSize = 256
)

// Timings controls connection keep-alive. PingInterval must be shorter than
// PongWait or the peer is declared dead between pings.
type Timings struct {
	PingInterval time.Duration
	PongWait     time.Duration
}

var DefaultTimings = Timings{
	PingInterval: 54 * time.Second,
	PongWait:     60 * time.Second,
}

func (t Timings) normalized() Timings {
	if t.PongWait <= 0 {
		t.PongWait = DefaultTimings.PongWait
	}
	if t.PingInterval <= 0 || t.PingInterval >= t.PongWait {
		t.PingInterval = t.PongWait * 9 / 10
	}
	return t
}

// ClientMessage is a command sent by the browser.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload names the ticket for SUBSCRIBE_TO_TICKET and its inverse.
type SubscribePayload struct {
	TicketID int64 `json:"ticketId"`
}

// Client is one websocket connection. The hub owns registration; the client
// owns its socket and the set of tickets it watches.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan domain.Event
	userID uuid.UUID

	timings Timings
	logger  *slog.Logger

	// mu guards closed and tickets. closed is set once send is closed; the
	// read pump may still be running at that point.
	mu      sync.Mutex
	closed  bool
	tickets map[int64]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, timings Timings, logger *slog.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan domain.Event, sendBufferSize),
		userID:  userID,
		timings: timings.normalized(),
		logger:  logger.With("user_id", userID.String()),
		tickets: make(map[int64]struct{}),
	}
}

// UserID identifies the authenticated owner of the connection.
func (c *Client) UserID() uuid.UUID { return c.userID }

// closeSend is idempotent; the write pump sends a close frame once it drains.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// offer queues an event without blocking and reports whether it fit.
// A closed client accepts nothing.
func (c *Client) offer(event domain.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) watch(ticketID int64) {
	c.mu.Lock()
	c.tickets[ticketID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) unwatch(ticketID int64) {
	c.mu.Lock()
	delete(c.tickets, ticketID)
	c.mu.Unlock()
}

func (c *Client) watching(ticketID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tickets[ticketID]
	return ok
}

// watchedTickets returns the watched ticket IDs in ascending order.
func (c *Client) watchedTickets() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.tickets))
}

// readPump applies client commands until the socket fails, then unregisters.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.timings.PongWait))
	}
	if err := extend(""); err != nil {
		return
	}
	c.conn.SetPongHandler(extend)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.handleIncomingMessage(message)
	}
}

// writePump serializes queued events and keep-alive pings onto the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.timings.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				_ = c.write(func() error { return c.conn.WriteMessage(websocket.CloseMessage, nil) })
				return
			}
			if err := c.write(func() error { return c.conn.WriteJSON(event) }); err != nil {
				c.logger.Warn("failed to write event", "event_type", event.Type, "error", err)
				return
			}

		case <-ticker.C:
			if err := c.write(func() error { return c.conn.WriteMessage(websocket.PingMessage, nil) }); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (c *Client) write(fn func() error) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return fn()
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case MessageSubscribeAlerts:
		c.hub.joinFeed(c)
	case MessageUnsubscribeAlerts:
		c.hub.leaveFeed(c)
	case MessageSubscribeTicket:
		if id, ok := c.parseTicketID(msg.Payload); ok {
			c.hub.joinRoom(c, id)
		}
	case MessageUnsubscribeTicket:
		if id, ok := c.parseTicketID(msg.Payload); ok {
			c.hub.leaveRoom(c, id)
		}
	case MessagePing:
		c.offer(domain.Event{Type: MessagePong})
	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) parseTicketID(payload json.RawMessage) (int64, bool) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.TicketID <= 0 {
		c.logger.Warn("invalid ticket subscription payload", "payload", string(payload))
		return 0, false
	}
	return p.TicketID, true
}
