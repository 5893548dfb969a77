package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emberwatch/firedispatch/internal/domain"
	"github.com/emberwatch/firedispatch/internal/pkg/ctxlog"
	"github.com/redis/go-redis/v9"
)

const queueKey = "firedispatch:webhook_queue"

// Delivery is one queued webhook delivery.
type Delivery struct {
	URL   string                `json:"url"`
	Event *domain.DispatchEvent `json:"event"`
}

// Queue is a Redis-list webhook delivery queue. Producers push on the left,
// the worker blocks popping on the right, so deliveries come out in order.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a queue over the Redis client.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue pushes a delivery onto the queue.
func (q *Queue) Enqueue(ctx context.Context, delivery Delivery) error {
	payload, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	if err := q.client.LPush(ctx, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("push delivery: %w", err)
	}
	webhooksEnqueued.Inc()
	return nil
}

// Dequeue blocks up to timeout for the next delivery. Returns nil with no
// error when the timeout elapsed with an empty queue.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	res, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop delivery: %w", err)
	}

	// BRPop returns [key, value].
	var delivery Delivery
	if err := json.Unmarshal([]byte(res[1]), &delivery); err != nil {
		return nil, fmt.Errorf("unmarshal delivery: %w", err)
	}
	return &delivery, nil
}

// Depth reports the number of pending deliveries.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, queueKey).Result()
}

// Worker drains the queue and posts deliveries through the sender.
type Worker struct {
	queue  *Queue
	sender *WebhookSender
}

// NewWorker creates a queue worker.
func NewWorker(queue *Queue, sender *WebhookSender) *Worker {
	return &Worker{queue: queue, sender: sender}
}

// Run consumes deliveries until the context is cancelled. A failed delivery
// is logged and dropped after the sender exhausted its retries; the queue is
// a nudge channel, not a ledger.
func (w *Worker) Run(ctx context.Context) {
	log := ctxlog.FromContext(ctx)
	log.Info("webhook worker started")

	for {
		delivery, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("webhook worker stopped")
				return
			}
			log.Error("failed to dequeue webhook delivery", "error", err)
			continue
		}
		if delivery == nil {
			continue
		}

		if err := w.sender.Send(ctx, delivery); err != nil {
			if ctx.Err() != nil {
				log.Info("webhook worker stopped")
				return
			}
			log.Error("webhook delivery failed",
				"url", delivery.URL,
				"event_type", delivery.Event.Type,
				"error", err,
			)
		}
	}
}
