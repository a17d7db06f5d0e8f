// Package notify contient les destinations des notifications "Change Detected!".
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/page-tracker/internal/ports"
	"github.com/rs/zerolog"
)

// LogSink écrit chaque notification dans le log du service.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, n ports.Notification) error {
	s.logger.Info().
		Str("notification_id", n.ID).
		Str("tracking_id", n.TrackingID).
		Str("url", n.URL).
		Msg(n.Title + " " + n.Message)
	return nil
}

// WebhookSink POSTe la notification en JSON, avec retries et backoff exponentiel.
// L'URL est relue à chaque envoi; vide = désactivé.
type WebhookSink struct {
	url        func(ctx context.Context) string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
}

type WebhookOption func(*WebhookSink)

func WithRetries(n int) WebhookOption {
	return func(w *WebhookSink) { w.maxRetries = n }
}

// WithBackoff fixe le premier délai entre deux essais (doublé ensuite).
func WithBackoff(d time.Duration) WebhookOption {
	return func(w *WebhookSink) { w.backoff = d }
}

func WithClient(c *http.Client) WebhookOption {
	return func(w *WebhookSink) { w.client = c }
}

func NewWebhookSink(logger zerolog.Logger, url func(ctx context.Context) string, opts ...WebhookOption) *WebhookSink {
	w := &WebhookSink{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		logger:     logger,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

type webhookEnvelope struct {
	Type string             `json:"type"`
	Data ports.Notification `json:"data"`
}

func (w *WebhookSink) Notify(ctx context.Context, n ports.Notification) error {
	target := ""
	if w.url != nil {
		target = w.url(ctx)
	}
	if target == "" {
		return nil
	}

	body, err := json.Marshal(webhookEnvelope{Type: "notification", Data: n})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			delay := w.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			w.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("webhook request failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook: status %d", resp.StatusCode)
		w.logger.Warn().Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("webhook bad status")
	}
	return fmt.Errorf("webhook: all retries exhausted: %w", lastErr)
}
