package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mercator-hq/beacon/pkg/telemetry/tracing"
)

// DefaultWebhookTimeout is the per-request timeout when none is configured.
const DefaultWebhookTimeout = 2 * time.Second

var defaultBackoffs = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond}

// WebhookNotifier POSTs alerts as JSON to an HTTP endpoint, retrying on
// transport errors and non-2xx responses.
type WebhookNotifier struct {
	url      string
	headers  map[string]string
	client   *http.Client
	backoffs []time.Duration
}

// NewWebhookNotifier creates a webhook notifier. headers are copied.
func NewWebhookNotifier(url string, headers map[string]string, timeout time.Duration) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url is empty")
	}
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	hdr := make(map[string]string, len(headers))
	for k, v := range headers {
		hdr[k] = v
	}
	return &WebhookNotifier{
		url:      url,
		headers:  hdr,
		client:   &http.Client{Timeout: timeout},
		backoffs: defaultBackoffs,
	}, nil
}

// WithBackoffs replaces the delays between attempts. The notifier makes
// len(backoffs)+1 attempts.
func (n *WebhookNotifier) WithBackoffs(backoffs []time.Duration) *WebhookNotifier {
	n.backoffs = append([]time.Duration{}, backoffs...)
	return n
}

// Name implements Notifier.
func (n *WebhookNotifier) Name() string { return "webhook" }

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, alert *Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < len(n.backoffs)+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", alert.ID)
		for k, v := range n.headers {
			req.Header.Set(k, v)
		}
		tracing.Inject(ctx, req.Header)

		resp, err := n.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("post: %w", err)
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("status %d body=%q", resp.StatusCode, truncateBody(body))
		}

		if attempt < len(n.backoffs) {
			timer := time.NewTimer(n.backoffs[attempt])
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return lastErr
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
