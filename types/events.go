package types

// EventKind is the telemetry event discriminator.
type EventKind string

// Event kinds.
const (
	EventKindVersionProbe EventKind = "version_probe"
	EventKindRunRecord    EventKind = "run_record"
)

// Valid returns true for known event kinds.
func (k EventKind) Valid() bool {
	return k == EventKindVersionProbe || k == EventKindRunRecord
}

// TelemetryEvent is one observation extracted from a proxied invocation.
// The set of implementations is closed: VersionProbe and RunRecord.
type TelemetryEvent interface {
	// Kind returns the event discriminator.
	Kind() EventKind

	telemetryEvent()
}

// VersionProbe is produced when a version query prints a line of the form
// "<name> <version> (<hash> <YYYY-MM-DD>".
type VersionProbe struct {
	Version     string `json:"version" msgpack:"version"`
	VersionHash string `json:"version_hash" msgpack:"version_hash"`
	BuildDate   string `json:"build_date" msgpack:"build_date"`
}

// Kind implements TelemetryEvent.
func (VersionProbe) Kind() EventKind { return EventKindVersionProbe }

func (VersionProbe) telemetryEvent() {}

// RunRecord is produced for every instrumented run of the program,
// including runs that could not be spawned.
type RunRecord struct {
	// DurationMs is the wall-clock time from spawn to exit, truncated to
	// whole milliseconds.
	DurationMs uint64 `json:"duration_ms" msgpack:"duration_ms"`
	// ExitCode is the child's exit code, or the OS error code on spawn failure.
	ExitCode int `json:"exit_code" msgpack:"exit_code"`
	// Errors holds bracketed diagnostic codes in the order they were printed.
	// Nil means no codes were observed, which is not the same as "zero errors".
	Errors []string `json:"errors,omitempty" msgpack:"errors,omitempty"`
}

// NewRunRecord builds a RunRecord. An empty errors list is stored as absent.
func NewRunRecord(durationMs uint64, exitCode int, errors []string) RunRecord {
	if len(errors) == 0 {
		errors = nil
	}
	return RunRecord{
		DurationMs: durationMs,
		ExitCode:   exitCode,
		Errors:     errors,
	}
}

// HasErrors reports whether any diagnostic codes were observed.
func (r RunRecord) HasErrors() bool {
	return r.Errors != nil
}

// Kind implements TelemetryEvent.
func (RunRecord) Kind() EventKind { return EventKindRunRecord }

func (RunRecord) telemetryEvent() {}

var (
	_ TelemetryEvent = VersionProbe{}
	_ TelemetryEvent = RunRecord{}
)
