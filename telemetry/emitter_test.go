package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/toolproxy/adapter"
	"github.com/pithecene-io/toolproxy/lode"
	"github.com/pithecene-io/toolproxy/metrics"
	"github.com/pithecene-io/toolproxy/notify"
	"github.com/pithecene-io/toolproxy/types"
)

type notificationSink struct {
	mu   sync.Mutex
	seen []notify.Notification
}

func (s *notificationSink) Notify(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, n)
}

func (s *notificationSink) All() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.seen...)
}

type stubAdapter struct {
	published []*adapter.TelemetryMessage
	err       error
	closed    bool
}

func (a *stubAdapter) Publish(_ context.Context, msg *adapter.TelemetryMessage) error {
	if a.err != nil {
		return a.err
	}
	a.published = append(a.published, msg)
	return nil
}

func (a *stubAdapter) Close() error {
	a.closed = true
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openStub(store *lode.StubStore) OpenFunc {
	return func(context.Context) (lode.Store, error) { return store, nil }
}

func TestEmit_AppendsRecord(t *testing.T) {
	store := lode.NewStubStore()
	collector := metrics.NewCollector("rustc", "memory", "")
	e := NewEmitter(Config{
		Open:    openStub(store),
		Meta:    lode.Meta{InvocationID: "inv-1", Program: "rustc"},
		Metrics: collector,
		Now:     func() time.Time { return fixedNow },
	})

	e.Emit(t.Context(), types.NewRunRecord(120, 101, []string{"E0308"}))

	if len(store.Appended) != 1 {
		t.Fatalf("appended %d records, want 1", len(store.Appended))
	}
	r := store.Appended[0]
	if r.RecordKind != "run_record" || r.InvocationID != "inv-1" || r.Program != "rustc" {
		t.Errorf("record = %+v", r)
	}
	if r.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("Timestamp = %q", r.Timestamp)
	}
	if r.ExitCode == nil || *r.ExitCode != 101 {
		t.Errorf("ExitCode = %v, want 101", r.ExitCode)
	}
	if collector.Snapshot().TelemetryWriteSuccess != 1 {
		t.Error("expected a counted write success")
	}
}

func TestEmit_OpensStoreOnce(t *testing.T) {
	store := lode.NewStubStore()
	opens := 0
	e := NewEmitter(Config{
		Open: func(context.Context) (lode.Store, error) {
			opens++
			return store, nil
		},
	})

	if opens != 0 {
		t.Fatal("store opened before the first event")
	}
	e.Emit(t.Context(), types.VersionProbe{Version: "1.70.0"})
	e.Emit(t.Context(), types.NewRunRecord(1, 0, nil))

	if opens != 1 {
		t.Errorf("opened %d times, want 1", opens)
	}
	if len(store.Appended) != 2 {
		t.Errorf("appended %d records, want 2", len(store.Appended))
	}
}

func TestEmit_GeneratesInvocationID(t *testing.T) {
	e := NewEmitter(Config{Open: openStub(lode.NewStubStore())})
	if _, err := uuid.Parse(e.InvocationID()); err != nil {
		t.Errorf("InvocationID %q is not a UUID: %v", e.InvocationID(), err)
	}
}

func TestEmit_OpenFailureNotifies(t *testing.T) {
	sink := &notificationSink{}
	openErr := errors.New("permission denied")
	collector := metrics.NewCollector("rustc", "fs", "inv-1")
	e := NewEmitter(Config{
		Open:    func(context.Context) (lode.Store, error) { return nil, openErr },
		Notify:  sink,
		Metrics: collector,
	})

	e.Emit(t.Context(), types.NewRunRecord(1, 0, nil))
	e.Emit(t.Context(), types.NewRunRecord(1, 0, nil))

	got := sink.All()
	if len(got) != 2 {
		t.Fatalf("got %d notifications, want 2", len(got))
	}
	writeErr, ok := got[0].(notify.TelemetryWriteError)
	if !ok {
		t.Fatalf("notification type = %T, want TelemetryWriteError", got[0])
	}
	if writeErr.Op != "open" || !errors.Is(writeErr, openErr) {
		t.Errorf("notification = %+v", writeErr)
	}
	if collector.Snapshot().TelemetryWriteFailure != 2 {
		t.Errorf("TelemetryWriteFailure = %d, want 2", collector.Snapshot().TelemetryWriteFailure)
	}
}

func TestEmit_AppendFailureNotifies(t *testing.T) {
	store := lode.NewStubStore()
	store.ErrorOnAppend = lode.NewStorageError(lode.ErrDiskFull, "write", "/tmp/telemetry", errors.New("ENOSPC"))
	sink := &notificationSink{}
	fwd := &stubAdapter{}
	collector := metrics.NewCollector("rustc", "fs", "inv-1")
	e := NewEmitter(Config{Open: openStub(store), Notify: sink, Forward: fwd, Metrics: collector})

	e.Emit(t.Context(), types.NewRunRecord(1, 0, nil))

	got := sink.All()
	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	if !errors.Is(got[0].(notify.TelemetryWriteError), lode.ErrDiskFull) {
		t.Errorf("notification should carry the classified storage error: %v", got[0].Message())
	}
	if len(fwd.published) != 0 {
		t.Error("failed writes must not be forwarded")
	}
	if collector.Snapshot().TelemetryWriteFailure != 1 {
		t.Error("expected a counted write failure")
	}
}

func TestEmit_NilOpenNotifies(t *testing.T) {
	sink := &notificationSink{}
	e := NewEmitter(Config{Notify: sink})
	e.Emit(t.Context(), types.NewRunRecord(1, 0, nil))
	if len(sink.All()) != 1 {
		t.Error("expected a notification for a missing store")
	}
}

func TestEmit_Forwards(t *testing.T) {
	fwd := &stubAdapter{}
	collector := metrics.NewCollector("rustc", "fs", "inv-1")
	e := NewEmitter(Config{
		Open:        openStub(lode.NewStubStore()),
		Meta:        lode.Meta{InvocationID: "inv-1", Program: "rustc"},
		StoragePath: "/home/dev/.toolproxy/telemetry",
		Forward:     fwd,
		Metrics:     collector,
	})

	e.Emit(t.Context(), types.VersionProbe{Version: "1.70.0", VersionHash: "abc", BuildDate: "2023-05-31"})

	if len(fwd.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(fwd.published))
	}
	msg := fwd.published[0]
	if msg.EventType != adapter.EventTypeTelemetryRecorded || msg.Version != "1.70.0" {
		t.Errorf("message = %+v", msg)
	}
	if msg.StoragePath != "/home/dev/.toolproxy/telemetry" {
		t.Errorf("StoragePath = %q", msg.StoragePath)
	}
	if collector.Snapshot().ForwardSuccess != 1 {
		t.Error("expected a counted forward success")
	}
}

func TestEmit_ForwardFailureNotifies(t *testing.T) {
	sink := &notificationSink{}
	store := lode.NewStubStore()
	e := NewEmitter(Config{
		Open:        openStub(store),
		Notify:      sink,
		Forward:     &stubAdapter{err: errors.New("connection refused")},
		ForwardName: "webhook",
	})

	e.Emit(t.Context(), types.NewRunRecord(1, 0, nil))

	if len(store.Appended) != 1 {
		t.Error("record should still be stored")
	}
	got := sink.All()
	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	fwdErr, ok := got[0].(notify.TelemetryForwardError)
	if !ok || fwdErr.Adapter != "webhook" {
		t.Errorf("notification = %#v", got[0])
	}
}

func TestClose(t *testing.T) {
	store := lode.NewStubStore()
	fwd := &stubAdapter{}
	e := NewEmitter(Config{Open: openStub(store), Forward: fwd})

	// Closing before any emit must not open the store.
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if store.Closed {
		t.Error("unopened store should not be closed")
	}
	if !fwd.closed {
		t.Error("adapter should be closed")
	}

	e = NewEmitter(Config{Open: openStub(store)})
	e.Emit(t.Context(), types.NewRunRecord(1, 0, nil))
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !store.Closed {
		t.Error("opened store should be closed")
	}
}
