package notify

import (
	"testing"
	"time"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(eventType domain.EventType, target *uuid.UUID) *domain.DispatchEvent {
	return &domain.DispatchEvent{
		Type:             eventType,
		TargetDepartment: target,
		Incident:         &domain.Incident{ID: uuid.New()},
		OccurredAt:       time.Now().UTC(),
	}
}

func receive(t *testing.T, s *Session) *domain.DispatchEvent {
	t.Helper()
	select {
	case event := <-s.Events:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertEmpty(t *testing.T, s *Session) {
	t.Helper()
	select {
	case event := <-s.Events:
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := hub.Subscribe(uuid.New())
	b := hub.Subscribe(uuid.New())

	hub.Dispatch(newEvent(domain.EventIncidentAccepted, nil))

	assert.Equal(t, domain.EventIncidentAccepted, receive(t, a).Type)
	assert.Equal(t, domain.EventIncidentAccepted, receive(t, b).Type)
}

func TestHubTargetedDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	deptA := uuid.New()
	deptB := uuid.New()
	a1 := hub.Subscribe(deptA)
	a2 := hub.Subscribe(deptA)
	b := hub.Subscribe(deptB)

	hub.Dispatch(newEvent(domain.EventNewIncidentRequest, &deptA))

	// Every session of the target department gets it, nobody else does.
	assert.Equal(t, domain.EventNewIncidentRequest, receive(t, a1).Type)
	assert.Equal(t, domain.EventNewIncidentRequest, receive(t, a2).Type)
	assertEmpty(t, b)
}

func TestHubReassignedReachesEveryone(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	next := uuid.New()
	target := hub.Subscribe(next)
	other := hub.Subscribe(uuid.New())

	hub.Dispatch(newEvent(domain.EventIncidentReassigned, &next))

	assert.Equal(t, domain.EventIncidentReassigned, receive(t, target).Type)
	assert.Equal(t, domain.EventIncidentReassigned, receive(t, other).Type)
}

func TestHubDropsOnFullBuffer(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	s := hub.Subscribe(uuid.New())

	for i := 0; i < DefaultSessionBuffer+10; i++ {
		hub.Dispatch(newEvent(domain.EventIncidentAccepted, nil))
	}

	// The buffer holds exactly its capacity; the overflow is gone and the
	// channel never blocked the publisher.
	received := 0
	for {
		select {
		case <-s.Events:
			received++
		default:
			assert.Equal(t, DefaultSessionBuffer, received)
			return
		}
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	s := hub.Subscribe(uuid.New())
	s.Close()

	_, open := <-s.Events
	assert.False(t, open)

	// Dispatching after close must not panic.
	hub.Dispatch(newEvent(domain.EventIncidentAccepted, nil))

	// Closing twice is harmless.
	s.Close()
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(uuid.New())

	hub.Close()

	_, open := <-a.Events
	require.False(t, open)

	// Sessions subscribed after close are born closed.
	late := hub.Subscribe(uuid.New())
	_, open = <-late.Events
	assert.False(t, open)

	hub.Dispatch(newEvent(domain.EventIncidentAccepted, nil))
}
