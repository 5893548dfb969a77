// Package notify fans dispatch events out to connected department sessions
// over SSE and to department webhook endpoints through a Redis-backed queue.
// Delivery is best effort: clients reconcile against the list endpoints,
// the event stream only tells them when to look.
package notify

import (
	"sync"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
)

// DefaultSessionBuffer is the per-session event buffer. A session that
// cannot drain this many events loses the overflow.
const DefaultSessionBuffer = 32

// Session is one subscribed SSE connection.
type Session struct {
	DepartmentID uuid.UUID
	Events       <-chan *domain.DispatchEvent

	hub *Hub
	ch  chan *domain.DispatchEvent
}

// Close detaches the session from the hub.
func (s *Session) Close() {
	s.hub.unsubscribe(s)
}

// Hub routes dispatch events to subscribed department sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	buffer   int
	closed   bool
}

// NewHub creates a session hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		buffer:   DefaultSessionBuffer,
	}
}

// Subscribe attaches a new session for the department.
func (h *Hub) Subscribe(departmentID uuid.UUID) *Session {
	ch := make(chan *domain.DispatchEvent, h.buffer)
	s := &Session{
		DepartmentID: departmentID,
		Events:       ch,
		hub:          h,
		ch:           ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return s
	}
	h.sessions[s] = struct{}{}
	sseSessions.Set(float64(len(h.sessions)))
	return s
}

func (h *Hub) unsubscribe(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	close(s.ch)
	sseSessions.Set(float64(len(h.sessions)))
}

// Dispatch delivers the event to the sessions it concerns. Targeted events
// reach only the addressed department, with one exception: a reassignment
// goes to everyone so stale pending views refresh, the new candidate simply
// being the one the event is addressed to. Full buffers drop the event
// rather than block the publisher.
func (h *Hub) Dispatch(event *domain.DispatchEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions {
		if event.IsTargeted() &&
			event.Type != domain.EventIncidentReassigned &&
			s.DepartmentID != *event.TargetDepartment {
			continue
		}
		select {
		case s.ch <- event:
			sseDelivered.Inc()
		default:
			sseDropped.Inc()
		}
	}
}

// Close detaches every session. Subsequent Dispatch calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.sessions {
		delete(h.sessions, s)
		close(s.ch)
	}
	sseSessions.Set(0)
}
