package lode

import (
	"context"

	"github.com/pithecene-io/toolproxy/metrics"
)

// InstrumentedStore wraps a Store and records write metrics.
// Each Append increments telemetry_write_success or telemetry_write_failure.
type InstrumentedStore struct {
	inner     Store
	collector *metrics.Collector
}

// NewInstrumentedStore wraps a store with metrics instrumentation.
func NewInstrumentedStore(inner Store, collector *metrics.Collector) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, collector: collector}
}

// Append delegates to the inner store and records success or failure.
func (s *InstrumentedStore) Append(ctx context.Context, record Record) error {
	err := s.inner.Append(ctx, record)
	if err != nil {
		s.collector.IncTelemetryWriteFailure()
	} else {
		s.collector.IncTelemetryWriteSuccess()
	}
	return err
}

// Records delegates to the inner store.
func (s *InstrumentedStore) Records(ctx context.Context) ([]Record, error) {
	return s.inner.Records(ctx)
}

// Close delegates to the inner store.
func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

// Verify InstrumentedStore implements Store.
var _ Store = (*InstrumentedStore)(nil)
