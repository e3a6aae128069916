// Package telemetry turns extracted events into stored records.
//
// Emit is best effort. Every failure (opening the store, appending,
// forwarding) is reported to the notification handler and then dropped.
// Nothing here can change a proxied program's exit code.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/toolproxy/adapter"
	"github.com/pithecene-io/toolproxy/log"
	"github.com/pithecene-io/toolproxy/lode"
	"github.com/pithecene-io/toolproxy/metrics"
	"github.com/pithecene-io/toolproxy/notify"
	"github.com/pithecene-io/toolproxy/types"
)

// OpenFunc opens the telemetry store on first use.
type OpenFunc func(ctx context.Context) (lode.Store, error)

// Config configures an Emitter.
type Config struct {
	// Open creates the store. It is called at most once.
	Open OpenFunc
	// Meta is stamped on every record. An empty InvocationID gets a new UUID.
	Meta lode.Meta
	// StoragePath is reported to the forwarding adapter.
	StoragePath string
	// Notify receives failures. Nil discards them.
	Notify notify.Handler
	// Forward, if set, receives every stored record.
	Forward adapter.Adapter
	// ForwardName names the adapter in notifications.
	ForwardName string
	// Metrics may be nil.
	Metrics *metrics.Collector
	// Logger defaults to a no-op logger.
	Logger *log.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Emitter appends telemetry events to a store.
type Emitter struct {
	config Config

	openOnce sync.Once
	store    lode.Store
	openErr  error
}

// NewEmitter creates an emitter. The store is not opened until the first Emit.
func NewEmitter(cfg Config) *Emitter {
	if cfg.Meta.InvocationID == "" {
		cfg.Meta.InvocationID = uuid.NewString()
	}
	if cfg.Notify == nil {
		cfg.Notify = notify.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Emitter{config: cfg}
}

// InvocationID returns the id stamped on this emitter's records.
func (e *Emitter) InvocationID() string {
	return e.config.Meta.InvocationID
}

// Emit stores event. Failures become notifications.
func (e *Emitter) Emit(ctx context.Context, event types.TelemetryEvent) {
	store, err := e.open(ctx)
	if err != nil {
		e.config.Metrics.IncTelemetryWriteFailure()
		e.config.Notify.Notify(notify.TelemetryWriteError{Op: "open", Err: err})
		return
	}

	record := lode.NewRecord(event, e.config.Meta, e.config.Now())
	if err := store.Append(ctx, record); err != nil {
		e.config.Notify.Notify(notify.TelemetryWriteError{Op: "append to", Err: err})
		return
	}

	e.config.Logger.Debug("telemetry record stored", map[string]any{
		"record_kind": record.RecordKind,
		"timestamp":   record.Timestamp,
	})

	e.forward(ctx, record)
}

func (e *Emitter) forward(ctx context.Context, record lode.Record) {
	if e.config.Forward == nil {
		return
	}
	msg := adapter.NewTelemetryMessage(record, e.config.StoragePath)
	if err := e.config.Forward.Publish(ctx, msg); err != nil {
		e.config.Metrics.IncForwardFailure()
		e.config.Notify.Notify(notify.TelemetryForwardError{Adapter: e.config.ForwardName, Err: err})
		return
	}
	e.config.Metrics.IncForwardSuccess()
}

// open opens the store once and wraps it with write metrics.
func (e *Emitter) open(ctx context.Context) (lode.Store, error) {
	e.openOnce.Do(func() {
		if e.config.Open == nil {
			e.openErr = errors.New("no telemetry store configured")
			return
		}
		store, err := e.config.Open(ctx)
		if err != nil {
			e.openErr = err
			return
		}
		e.store = lode.NewInstrumentedStore(store, e.config.Metrics)
	})
	return e.store, e.openErr
}

// Close closes the store and the forwarding adapter, if they were opened.
func (e *Emitter) Close() error {
	var firstErr error
	if e.store != nil {
		firstErr = e.store.Close()
	}
	if e.config.Forward != nil {
		if err := e.config.Forward.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
