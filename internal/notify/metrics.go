package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "firedispatch",
		Subsystem: "notify",
		Name:      "events_published_total",
		Help:      "Dispatch events published to the notification layer.",
	}, []string{"type"})

	sseDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "firedispatch",
		Subsystem: "notify",
		Name:      "sse_delivered_total",
		Help:      "Events delivered to SSE sessions.",
	})

	sseDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "firedispatch",
		Subsystem: "notify",
		Name:      "sse_dropped_total",
		Help:      "Events dropped because a session buffer was full.",
	})

	sseSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "firedispatch",
		Subsystem: "notify",
		Name:      "sse_sessions",
		Help:      "Currently connected SSE sessions.",
	})

	webhooksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "firedispatch",
		Subsystem: "notify",
		Name:      "webhooks_enqueued_total",
		Help:      "Webhook deliveries pushed to the queue.",
	})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "firedispatch",
		Subsystem: "notify",
		Name:      "webhook_deliveries_total",
		Help:      "Webhook delivery attempts by outcome.",
	}, []string{"outcome"})
)
