package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Firedispatch-Signature"

// WebhookSender posts signed event payloads to department endpoints with
// bounded retries and a global send rate limit.
type WebhookSender struct {
	client      *http.Client
	secret      []byte
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
}

// WebhookSenderConfig tunes the sender.
type WebhookSenderConfig struct {
	Secret      string
	Timeout     time.Duration
	RatePerSec  float64
	Burst       int
	MaxAttempts int
	Backoff     time.Duration
}

// NewWebhookSender creates a sender. Zero config fields get safe defaults.
func NewWebhookSender(cfg WebhookSenderConfig) *WebhookSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &WebhookSender{
		client:      &http.Client{Timeout: cfg.Timeout},
		secret:      []byte(cfg.Secret),
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
}

// Sign computes the hex HMAC-SHA256 signature for a payload.
func (s *WebhookSender) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Send posts the delivery, retrying 5xx and transport errors with
// exponential backoff. 4xx responses are not retried: the endpoint saw the
// request and refused it.
func (s *WebhookSender) Send(ctx context.Context, delivery *Delivery) error {
	payload, err := json.Marshal(delivery.Event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	signature := s.Sign(payload)

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff << (attempt - 1)):
			}
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		retryable, err := s.post(ctx, delivery.URL, payload, signature)
		if err == nil {
			webhookDeliveries.WithLabelValues("delivered").Inc()
			return nil
		}
		lastErr = err
		if !retryable {
			webhookDeliveries.WithLabelValues("rejected").Inc()
			return err
		}
		webhookDeliveries.WithLabelValues("retried").Inc()
	}

	webhookDeliveries.WithLabelValues("failed").Inc()
	return fmt.Errorf("delivery exhausted %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *WebhookSender) post(ctx context.Context, url string, payload []byte, signature string) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
}
