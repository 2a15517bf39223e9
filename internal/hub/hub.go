package hub

import (
	"sort"
	"sync"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/dto"
)

// Connection is the hub's view of one client. Send must not block; it
// reports false when the message was dropped.
type Connection interface {
	ID() string
	Send(msg dto.Outbound) bool
}

// subscription ties a connection to a date with the service filter it
// asked for.
type subscription struct {
	conn      Connection
	serviceID int
}

// Hub is the subscription registry: which connections watch which dates.
// All methods are safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]Connection
	byDate map[string]map[string]*subscription
	byConn map[string]map[string]*subscription
}

// New creates an empty Hub
func New() *Hub {
	return &Hub{
		conns:  make(map[string]Connection),
		byDate: make(map[string]map[string]*subscription),
		byConn: make(map[string]map[string]*subscription),
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID()] = conn
}

// Unregister removes a connection and all of its subscriptions
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, connID)

	for date := range h.byConn[connID] {
		delete(h.byDate[date], connID)
		if len(h.byDate[date]) == 0 {
			delete(h.byDate, date)
		}
	}
	delete(h.byConn, connID)
}

// Connection returns a registered connection by id, nil when absent
func (h *Hub) Connection(connID string) Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[connID]
}

// Subscribe adds a (connection, date) subscription. Subscribing twice is
// idempotent; the newest service filter wins.
func (h *Hub) Subscribe(conn Connection, date string, serviceID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	connID := conn.ID()
	h.conns[connID] = conn

	sub := &subscription{conn: conn, serviceID: serviceID}

	if h.byDate[date] == nil {
		h.byDate[date] = make(map[string]*subscription)
	}
	h.byDate[date][connID] = sub

	if h.byConn[connID] == nil {
		h.byConn[connID] = make(map[string]*subscription)
	}
	h.byConn[connID][date] = sub
}

// Unsubscribe removes the (connection, date) subscription. Returns false
// when no such subscription existed.
func (h *Hub) Unsubscribe(connID, date string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.byDate[date]
	if !ok {
		return false
	}
	if _, ok := subs[connID]; !ok {
		return false
	}

	delete(subs, connID)
	if len(subs) == 0 {
		delete(h.byDate, date)
	}

	delete(h.byConn[connID], date)
	if len(h.byConn[connID]) == 0 {
		delete(h.byConn, connID)
	}

	return true
}

// Subscriber is a snapshot of one subscription for delivery
type Subscriber struct {
	Conn      Connection
	ServiceID int
}

// Subscribers returns the connections watching a date
func (h *Hub) Subscribers(date string) []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.byDate[date]
	out := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		out = append(out, Subscriber{Conn: sub.conn, ServiceID: sub.serviceID})
	}
	return out
}

// Dates returns all dates with at least one subscriber, sorted
func (h *Hub) Dates() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dates := make([]string, 0, len(h.byDate))
	for date := range h.byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SubscriptionCount returns the number of (connection, date) pairs
func (h *Hub) SubscriptionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, subs := range h.byDate {
		n += len(subs)
	}
	return n
}
