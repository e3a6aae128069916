// Package metrics provides per-invocation counters.
//
// The Collector accumulates counters during a single proxied invocation. It is
// a leaf package with no internal dependencies. A snapshot is logged at debug
// level when the invocation ends.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the counters.
type Snapshot struct {
	// Dispatch
	Passthrough   int64 `json:"passthrough"`
	VersionQuery  int64 `json:"version_query"`
	InstrumentRun int64 `json:"instrumented_run"`

	// Process
	SpawnFailures int64 `json:"spawn_failures"`

	// Extraction
	LinesScanned       int64 `json:"lines_scanned"`
	ErrorCodesMatched  int64 `json:"error_codes_matched"`
	VersionProbesFound int64 `json:"version_probes_found"`

	// Telemetry store
	TelemetryWriteSuccess int64 `json:"telemetry_write_success"`
	TelemetryWriteFailure int64 `json:"telemetry_write_failure"`

	// Downstream adapter
	ForwardSuccess int64 `json:"forward_success"`
	ForwardFailure int64 `json:"forward_failure"`

	// Dimensions (informational, set at construction)
	Program        string `json:"program"`
	StorageBackend string `json:"storage_backend"`
	InvocationID   string `json:"invocation_id"`
}

// Fields returns the snapshot as a flat map for structured logging.
func (s Snapshot) Fields() map[string]any {
	return map[string]any{
		"passthrough":             s.Passthrough,
		"version_query":           s.VersionQuery,
		"instrumented_run":        s.InstrumentRun,
		"spawn_failures":          s.SpawnFailures,
		"lines_scanned":           s.LinesScanned,
		"error_codes_matched":     s.ErrorCodesMatched,
		"version_probes_found":    s.VersionProbesFound,
		"telemetry_write_success": s.TelemetryWriteSuccess,
		"telemetry_write_failure": s.TelemetryWriteFailure,
		"forward_success":         s.ForwardSuccess,
		"forward_failure":         s.ForwardFailure,
		"storage_backend":         s.StorageBackend,
	}
}

// Collector accumulates metrics during a single invocation.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	passthrough   int64
	versionQuery  int64
	instrumentRun int64

	spawnFailures int64

	linesScanned       int64
	errorCodesMatched  int64
	versionProbesFound int64

	telemetryWriteSuccess int64
	telemetryWriteFailure int64

	forwardSuccess int64
	forwardFailure int64

	program        string
	storageBackend string
	invocationID   string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(program, storageBackend, invocationID string) *Collector {
	return &Collector{
		program:        program,
		storageBackend: storageBackend,
		invocationID:   invocationID,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Dispatch ---

// IncPassthrough records a plain passthrough invocation.
func (c *Collector) IncPassthrough() {
	if c == nil {
		return
	}
	c.add(&c.passthrough, 1)
}

// IncVersionQuery records a version-query invocation.
func (c *Collector) IncVersionQuery() {
	if c == nil {
		return
	}
	c.add(&c.versionQuery, 1)
}

// IncInstrumentedRun records a normal instrumented run.
func (c *Collector) IncInstrumentedRun() {
	if c == nil {
		return
	}
	c.add(&c.instrumentRun, 1)
}

// --- Process ---

// IncSpawnFailure records a child that could not be spawned or awaited.
func (c *Collector) IncSpawnFailure() {
	if c == nil {
		return
	}
	c.add(&c.spawnFailures, 1)
}

// --- Extraction ---

// IncLinesScanned records one line handed to an extractor.
func (c *Collector) IncLinesScanned() {
	if c == nil {
		return
	}
	c.add(&c.linesScanned, 1)
}

// AddErrorCodes records n diagnostic codes matched on one line.
func (c *Collector) AddErrorCodes(n int) {
	if c == nil || n == 0 {
		return
	}
	c.add(&c.errorCodesMatched, int64(n))
}

// IncVersionProbe records a matched version line.
func (c *Collector) IncVersionProbe() {
	if c == nil {
		return
	}
	c.add(&c.versionProbesFound, 1)
}

// --- Telemetry store ---
// Counters are per event, one Append call per event.

// IncTelemetryWriteSuccess records a stored event.
func (c *Collector) IncTelemetryWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.telemetryWriteSuccess, 1)
}

// IncTelemetryWriteFailure records an event that could not be stored.
func (c *Collector) IncTelemetryWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.telemetryWriteFailure, 1)
}

// --- Downstream adapter ---

// IncForwardSuccess records an event published downstream.
func (c *Collector) IncForwardSuccess() {
	if c == nil {
		return
	}
	c.add(&c.forwardSuccess, 1)
}

// IncForwardFailure records a failed downstream publish.
func (c *Collector) IncForwardFailure() {
	if c == nil {
		return
	}
	c.add(&c.forwardFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Passthrough:   c.passthrough,
		VersionQuery:  c.versionQuery,
		InstrumentRun: c.instrumentRun,

		SpawnFailures: c.spawnFailures,

		LinesScanned:       c.linesScanned,
		ErrorCodesMatched:  c.errorCodesMatched,
		VersionProbesFound: c.versionProbesFound,

		TelemetryWriteSuccess: c.telemetryWriteSuccess,
		TelemetryWriteFailure: c.telemetryWriteFailure,

		ForwardSuccess: c.forwardSuccess,
		ForwardFailure: c.forwardFailure,

		Program:        c.program,
		StorageBackend: c.storageBackend,
		InvocationID:   c.invocationID,
	}
}
