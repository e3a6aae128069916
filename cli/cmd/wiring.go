package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/toolproxy/adapter"
	"github.com/pithecene-io/toolproxy/adapter/redis"
	"github.com/pithecene-io/toolproxy/adapter/webhook"
	"github.com/pithecene-io/toolproxy/cli/config"
	"github.com/pithecene-io/toolproxy/log"
	"github.com/pithecene-io/toolproxy/lode"
	"github.com/pithecene-io/toolproxy/metrics"
	"github.com/pithecene-io/toolproxy/notify"
	"github.com/pithecene-io/toolproxy/telemetry"
)

// loadConfig reads the configuration from the toolproxy home directory.
func loadConfig() (*config.Config, error) {
	home, err := config.HomeDir()
	if err != nil {
		return nil, err
	}
	return config.LoadHome(home)
}

// newLogger builds the invocation logger. Logs go to log.file when set,
// otherwise to stderr. The returned close func is never nil.
func newLogger(cfg *config.Config, meta *log.Meta) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	logger := log.NewLoggerWithWriter(meta, level, w)
	return logger, func() {
		_ = logger.Sync()
		closeFn()
	}, nil
}

// buildAdapter creates the configured forwarding adapter, or nil when none
// is configured. Unset timeout and retries keep the adapter's defaults.
func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		wcfg := webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: webhook.DefaultRetries,
		}
		if cfg.Retries != nil {
			wcfg.Retries = *cfg.Retries
		}
		a, err := webhook.New(wcfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		rcfg := redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: redis.DefaultRetries,
		}
		if cfg.Retries != nil {
			rcfg.Retries = *cfg.Retries
		}
		a, err := redis.New(rcfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q", cfg.Type)
	}
}

// newEmitter builds the telemetry emitter for one invocation. Adapter
// construction errors are reported like any other telemetry failure and
// never prevent the run.
func newEmitter(cfg *config.Config, meta lode.Meta, logger *log.Logger, collector *metrics.Collector) *telemetry.Emitter {
	handler := notify.NewLogHandler(logger)

	forward, err := buildAdapter(cfg.Adapter)
	if err != nil {
		handler.Notify(notify.TelemetryForwardError{Adapter: cfg.Adapter.Type, Err: err})
	}

	return telemetry.NewEmitter(telemetry.Config{
		Open: func(ctx context.Context) (lode.Store, error) {
			storeCfg, err := cfg.StoreConfig()
			if err != nil {
				return nil, err
			}
			return lode.Open(ctx, storeCfg)
		},
		Meta:        meta,
		StoragePath: cfg.StoragePath(),
		Notify:      handler,
		Forward:     forward,
		ForwardName: cfg.Adapter.Type,
		Metrics:     collector,
		Logger:      logger,
	})
}
