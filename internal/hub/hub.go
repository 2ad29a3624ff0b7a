// Package hub implements the in-process fan-out of real-time events to
// connected subscribers. Delivery is best-effort, at-most-once: a slow
// subscriber gets its events dropped, never blocks the pipeline.
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Event types pushed to subscribers.
const (
	EventPriceUpdate          = "price_update"
	EventIndicatorUpdate      = "indicator_update"
	EventMarketStatus         = "market_status"
	EventOptionChainUpdate    = "option_chain_update"
	EventOIAnalysisUpdate     = "oi_analysis_update"
	EventStrikeRecommendation = "strike_recommendation_update"
)

// Event is a single outbound message. Symbol is empty for events delivered
// to every connected client regardless of room membership.
type Event struct {
	Type   string         `json:"event"`
	Symbol string         `json:"symbol,omitempty"`
	Data   map[string]any `json:"data"`
}

// Subscriber is one connected client. Events are delivered on Send; the
// subscriber owns draining it.
type Subscriber struct {
	ID   string
	Send chan Event
}

// NewSubscriber creates a subscriber with a buffered delivery channel.
func NewSubscriber(id string) *Subscriber {
	return &Subscriber{ID: id, Send: make(chan Event, 64)}
}

// room is the subscriber set for one symbol. Each room carries its own lock
// so broadcasts to unrelated symbols never contend.
type room struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func (r *room) add(sub *Subscriber) {
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
}

func (r *room) remove(sub *Subscriber) {
	r.mu.Lock()
	delete(r.subs, sub)
	r.mu.Unlock()
}

// Hub maintains per-symbol rooms plus the set of all connected clients.
type Hub struct {
	logger *logrus.Logger

	roomsMu sync.RWMutex
	rooms   map[string]*room

	clientsMu sync.RWMutex
	clients   map[*Subscriber]struct{}
}

// NewHub creates an empty Hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:  logger,
		rooms:   make(map[string]*room),
		clients: make(map[*Subscriber]struct{}),
	}
}

// Register adds a newly connected client.
func (h *Hub) Register(sub *Subscriber) {
	h.clientsMu.Lock()
	h.clients[sub] = struct{}{}
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Infof("Client connected: %s (total: %d)", sub.ID, total)
}

// Unregister removes a client from every room and closes its channel.
func (h *Hub) Unregister(sub *Subscriber) {
	h.clientsMu.Lock()
	if _, ok := h.clients[sub]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, sub)
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.roomsMu.RLock()
	for _, r := range h.rooms {
		r.remove(sub)
	}
	h.roomsMu.RUnlock()

	close(sub.Send)
	h.logger.Infof("Client disconnected: %s (total: %d)", sub.ID, total)
}

// Subscribe joins the client to a symbol's room, creating it on first use.
func (h *Hub) Subscribe(sub *Subscriber, symbol string) {
	h.roomsMu.RLock()
	r, ok := h.rooms[symbol]
	h.roomsMu.RUnlock()

	if !ok {
		h.roomsMu.Lock()
		if r, ok = h.rooms[symbol]; !ok {
			r = &room{subs: make(map[*Subscriber]struct{})}
			h.rooms[symbol] = r
		}
		h.roomsMu.Unlock()
	}

	r.add(sub)
	h.logger.Infof("Client %s subscribed to %s", sub.ID, symbol)
}

// Unsubscribe leaves a symbol's room. Unknown symbols are a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber, symbol string) {
	h.roomsMu.RLock()
	r, ok := h.rooms[symbol]
	h.roomsMu.RUnlock()
	if !ok {
		return
	}

	r.remove(sub)
	h.logger.Infof("Client %s unsubscribed from %s", sub.ID, symbol)
}

// Publish delivers a symbol-scoped event to that symbol's room only.
func (h *Hub) Publish(event Event) {
	h.roomsMu.RLock()
	r, ok := h.rooms[event.Symbol]
	h.roomsMu.RUnlock()
	if !ok {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for sub := range r.subs {
		h.deliver(sub, event)
	}
}

// PublishAll delivers an event to every connected client regardless of room
// membership. Used for market-status transitions.
func (h *Hub) PublishAll(event Event) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for sub := range h.clients {
		h.deliver(sub, event)
	}
}

// deliver is fire-and-forget: if the subscriber's buffer is full the event
// is dropped and logged.
func (h *Hub) deliver(sub *Subscriber, event Event) {
	select {
	case sub.Send <- event:
	default:
		h.logger.Warnf("Dropping %s event for slow client %s", event.Type, sub.ID)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
