package notify

import (
	"context"

	"github.com/emberwatch/firedispatch/internal/dispatch"
	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/pkg/ctxlog"
)

// Broadcaster fans committed dispatch events out to the SSE hub and to the
// webhook queue. It implements the dispatch.Broadcaster boundary.
type Broadcaster struct {
	hub         *Hub
	queue       *Queue
	departments dispatch.DepartmentSource
}

// NewBroadcaster creates a broadcaster. queue may be nil when webhook
// delivery is disabled.
func NewBroadcaster(hub *Hub, queue *Queue, departments dispatch.DepartmentSource) *Broadcaster {
	return &Broadcaster{
		hub:         hub,
		queue:       queue,
		departments: departments,
	}
}

// Publish delivers the event to connected sessions and enqueues webhook
// deliveries for the departments it concerns. Callers invoke it only after
// the originating transition committed; failures here never roll anything
// back, they just lose a nudge the clients can recover via the list
// endpoints.
func (b *Broadcaster) Publish(ctx context.Context, event *domain.DispatchEvent) {
	eventsPublished.WithLabelValues(string(event.Type)).Inc()

	b.hub.Dispatch(event)

	if b.queue == nil {
		return
	}
	if err := b.enqueueWebhooks(ctx, event); err != nil {
		ctxlog.FromContext(ctx).Error("failed to enqueue webhook deliveries",
			"event_type", event.Type,
			"error", err,
		)
	}
}

func (b *Broadcaster) enqueueWebhooks(ctx context.Context, event *domain.DispatchEvent) error {
	departments, err := b.departments.ListDepartments(ctx)
	if err != nil {
		return err
	}

	for _, department := range departments {
		if department.WebhookURL == "" {
			continue
		}
		// Reassignments are pushed everywhere for the same reason the hub
		// broadcasts them.
		if event.IsTargeted() &&
			event.Type != domain.EventIncidentReassigned &&
			department.ID != *event.TargetDepartment {
			continue
		}
		if err := b.queue.Enqueue(ctx, Delivery{
			URL:   department.WebhookURL,
			Event: event,
		}); err != nil {
			return err
		}
	}
	return nil
}
