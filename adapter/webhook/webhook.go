// Package webhook forwards telemetry records as JSON POST requests.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/toolproxy/adapter"
	"github.com/pithecene-io/toolproxy/iox"
	"github.com/pithecene-io/toolproxy/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 2 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 1

// Config configures the webhook adapter.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 2s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the first retry delay (default adapter.DefaultBackoff).
	Backoff time.Duration
}

// Adapter publishes telemetry messages via HTTP POST.
type Adapter struct {
	config Config
	client *http.Client
}

// New creates a webhook adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Publish POSTs msg as JSON. 5xx responses and network errors are retried
// with exponential backoff; 4xx responses fail immediately.
func (a *Adapter) Publish(ctx context.Context, msg *adapter.TelemetryMessage) error {
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("webhook: marshal message: %w", err)
	}

	return adapter.Retry(ctx, adapter.RetryConfig{
		Name:      "webhook",
		Retries:   a.config.Retries,
		Backoff:   a.config.Backoff,
		Permanent: isClientError,
	}, func(ctx context.Context) error {
		return a.doRequest(ctx, body, msg.InvocationID)
	})
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

func isClientError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500
}

// doRequest performs a single HTTP POST and returns nil on 2xx.
func (a *Adapter) doRequest(ctx context.Context, body []byte, invocationID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "toolproxy/"+types.Version)
	if invocationID != "" {
		// Lets receivers drop duplicates caused by retries.
		req.Header.Set("X-Toolproxy-Invocation", invocationID)
	}
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
