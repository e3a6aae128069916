// Package redis forwards telemetry records over Redis pub/sub.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/toolproxy/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "toolproxy:telemetry"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 1

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: toolproxy:telemetry).
	// A "{kind}" placeholder is replaced with the record kind.
	Channel string
	// Timeout is the per-publish timeout (default 1s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the first retry delay (default adapter.DefaultBackoff).
	Backoff time.Duration
}

// Adapter publishes telemetry messages via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	// One attempt never waits longer than the publish timeout.
	opts.DialTimeout = cfg.Timeout
	opts.MaxRetries = -1

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Channel returns the channel a message is published to.
func (a *Adapter) Channel(msg *adapter.TelemetryMessage) string {
	return expandChannel(a.config.Channel, msg.RecordKind)
}

// Publish sends msg as JSON to the configured channel, retrying with
// exponential backoff.
func (a *Adapter) Publish(ctx context.Context, msg *adapter.TelemetryMessage) error {
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("redis: marshal message: %w", err)
	}
	channel := a.Channel(msg)

	return adapter.Retry(ctx, adapter.RetryConfig{
		Name:    "redis",
		Retries: a.config.Retries,
		Backoff: a.config.Backoff,
		Permanent: func(err error) bool {
			return errors.Is(err, goredis.ErrClosed)
		},
	}, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return a.client.Publish(publishCtx, channel, body).Err()
	})
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func expandChannel(channel, kind string) string {
	return strings.Replace(channel, "{kind}", kind, 1)
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
