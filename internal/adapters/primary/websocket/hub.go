package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// ErrDeliveryDropped is returned when no target connection had buffer room.
var ErrDeliveryDropped = errors.New("event dropped: client send buffers full")

const broadcastQueueSize = 256

type clientSet map[*Client]struct{}

// Hub fans SLA alerts and assignment notices out to connected clients.
// Broadcast reaches the alert feed plus whoever watches the event's ticket.
// SendToUser reaches every connection of one user.
type Hub struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]clientSet
	feed    clientSet
	rooms   map[int64]clientSet
	stopped bool

	events     chan domain.Event
	unregister chan *Client
	done       chan struct{}

	logger *slog.Logger
}

var _ ports.EventBroadcaster = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		users:      make(map[uuid.UUID]clientSet),
		feed:       make(clientSet),
		rooms:      make(map[int64]clientSet),
		events:     make(chan domain.Event, broadcastQueueSize),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Run serves unregistrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.stopped = true
			for _, set := range h.users {
				for c := range set {
					h.dropLocked(c)
				}
			}
			h.mu.Unlock()
			close(h.done)
			return

		case c := <-h.unregister:
			h.drop(c)
			h.logger.Info("client unregistered", "user_id", c.userID)

		case event := <-h.events:
			h.fanOut(event)
		}
	}
}

// Attach wraps an upgraded connection, registers it and starts its pumps.
// It closes conn and returns false once the hub has stopped.
func (h *Hub) Attach(conn *websocket.Conn, userID uuid.UUID, timings Timings) bool {
	c := NewClient(h, conn, userID, timings, h.logger)
	if !h.join(c) {
		_ = conn.Close()
		return false
	}
	go c.writePump()
	go c.readPump()
	return true
}

// Broadcast queues an event without blocking. When the queue is full the
// event is dropped; the dashboard remains the source of truth.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.events <- event:
		return nil
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
		)
		return ErrDeliveryDropped
	}
}

// SendToUser offers event to each of the user's connections. A user with no
// connections is not an error.
func (h *Hub) SendToUser(userID uuid.UUID, event domain.Event) error {
	// Holding the read lock keeps dropLocked from closing a send channel mid-offer.
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.users[userID]
	if len(set) == 0 {
		return nil
	}
	delivered := false
	for c := range set {
		if c.offer(event) {
			delivered = true
		}
	}
	if !delivered {
		return ErrDeliveryDropped
	}
	return nil
}

// join registers c synchronously so commands read right after Attach find
// it in place. It fails once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	addTo(h.users, c.userID, c)
	n := len(h.users[c.userID])
	h.mu.Unlock()

	h.logger.Info("client registered", "user_id", c.userID, "user_connections", n)
	return true
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

// dropLocked detaches c everywhere and closes its send channel.
func (h *Hub) dropLocked(c *Client) {
	removeFrom(h.users, c.userID, c)
	delete(h.feed, c)
	for _, id := range c.watchedTickets() {
		removeFrom(h.rooms, id, c)
	}
	c.closeSend()
}

// audience is the feed plus the ticket's room, without duplicates.
func (h *Hub) audience(ticketID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.feed)+len(h.rooms[ticketID]))
	for c := range h.feed {
		out = append(out, c)
	}
	for c := range h.rooms[ticketID] {
		if _, inFeed := h.feed[c]; !inFeed {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) fanOut(event domain.Event) {
	audience := h.audience(event.TicketID)
	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"client_count", len(audience),
	)

	for _, c := range audience {
		if !c.offer(event) {
			// A client that cannot keep up is cut off; its read pump exits on close.
			h.logger.Warn("client send buffer full, disconnecting", "user_id", c.userID)
			h.drop(c)
		}
	}
}

// joinFeed and joinRoom ignore clients the hub has already dropped, whose
// read pump may still deliver commands until the socket closes.
func (h *Hub) joinFeed(c *Client) {
	h.mu.Lock()
	if h.registeredLocked(c) {
		h.feed[c] = struct{}{}
	}
	h.mu.Unlock()
}

func (h *Hub) leaveFeed(c *Client) {
	h.mu.Lock()
	delete(h.feed, c)
	h.mu.Unlock()
}

func (h *Hub) joinRoom(c *Client, ticketID int64) {
	h.mu.Lock()
	ok := h.registeredLocked(c)
	if ok {
		addTo(h.rooms, ticketID, c)
		c.watch(ticketID)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Debug("client watching ticket", "user_id", c.userID, "ticket_id", ticketID)
	}
}

func (h *Hub) registeredLocked(c *Client) bool {
	_, ok := h.users[c.userID][c]
	return ok
}

func (h *Hub) leaveRoom(c *Client, ticketID int64) {
	h.mu.Lock()
	removeFrom(h.rooms, ticketID, c)
	c.unwatch(ticketID)
	h.mu.Unlock()
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.users {
		n += len(set)
	}
	return n
}

// FeedCount returns the number of alert feed subscribers.
func (h *Hub) FeedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.feed)
}

// Watchers returns the number of connections watching ticketID.
func (h *Hub) Watchers(ticketID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ticketID])
}

func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func addTo[K comparable](m map[K]clientSet, key K, c *Client) {
	set, ok := m[key]
	if !ok {
		set = make(clientSet)
		m[key] = set
	}
	set[c] = struct{}{}
}

func removeFrom[K comparable](m map[K]clientSet, key K, c *Client) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m, key)
	}
}
