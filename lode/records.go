package lode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pithecene-io/toolproxy/types"
)

// Partition keys for the Hive layout. Records are grouped by kind, then by
// UTC day of their timestamp.
var partitionKeys = []string{"record_kind", "day"}

// Meta identifies the invocation that produced a record.
type Meta struct {
	// InvocationID is unique per proxied invocation.
	InvocationID string
	// Program is the proxied program name.
	Program string
}

// Record is the storage format of one telemetry event. The timestamp is the
// log key: records are append-only and ordered by it.
type Record struct {
	RecordKind    string `json:"record_kind" msgpack:"record_kind"`
	RecordVersion string `json:"record_version" msgpack:"record_version"`
	Timestamp     string `json:"timestamp" msgpack:"timestamp"`
	Day           string `json:"day" msgpack:"day"`
	InvocationID  string `json:"invocation_id" msgpack:"invocation_id"`
	Program       string `json:"program" msgpack:"program"`

	// version_probe fields
	Version     string `json:"version,omitempty" msgpack:"version,omitempty"`
	VersionHash string `json:"version_hash,omitempty" msgpack:"version_hash,omitempty"`
	BuildDate   string `json:"build_date,omitempty" msgpack:"build_date,omitempty"`

	// run_record fields
	DurationMs *uint64  `json:"duration_ms,omitempty" msgpack:"duration_ms,omitempty"`
	ExitCode   *int     `json:"exit_code,omitempty" msgpack:"exit_code,omitempty"`
	Errors     []string `json:"errors,omitempty" msgpack:"errors,omitempty"`
}

// DeriveDay computes the partition day of ts. Format: YYYY-MM-DD in UTC.
func DeriveDay(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

// NewRecord converts an event into its storage format.
func NewRecord(event types.TelemetryEvent, meta Meta, ts time.Time) Record {
	r := Record{
		RecordKind:    string(event.Kind()),
		RecordVersion: types.RecordVersion,
		Timestamp:     ts.UTC().Format(time.RFC3339Nano),
		Day:           DeriveDay(ts),
		InvocationID:  meta.InvocationID,
		Program:       meta.Program,
	}

	switch e := event.(type) {
	case types.VersionProbe:
		r.Version = e.Version
		r.VersionHash = e.VersionHash
		r.BuildDate = e.BuildDate
	case types.RunRecord:
		duration := e.DurationMs
		code := e.ExitCode
		r.DurationMs = &duration
		r.ExitCode = &code
		if e.Errors != nil {
			r.Errors = append([]string(nil), e.Errors...)
		}
	}
	return r
}

// Time parses the record timestamp.
func (r Record) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// Event converts the record back into a telemetry event.
func (r Record) Event() (types.TelemetryEvent, error) {
	switch types.EventKind(r.RecordKind) {
	case types.EventKindVersionProbe:
		return types.VersionProbe{
			Version:     r.Version,
			VersionHash: r.VersionHash,
			BuildDate:   r.BuildDate,
		}, nil
	case types.EventKindRunRecord:
		var duration uint64
		var code int
		if r.DurationMs != nil {
			duration = *r.DurationMs
		}
		if r.ExitCode != nil {
			code = *r.ExitCode
		}
		return types.NewRunRecord(duration, code, r.Errors), nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", r.RecordKind)
	}
}

// toMap converts a record to the map form Lode's Hive layout requires.
func (r Record) toMap() map[string]any {
	m := map[string]any{
		"record_kind":    r.RecordKind,
		"record_version": r.RecordVersion,
		"timestamp":      r.Timestamp,
		"day":            r.Day,
		"invocation_id":  r.InvocationID,
		"program":        r.Program,
	}
	if r.Version != "" {
		m["version"] = r.Version
	}
	if r.VersionHash != "" {
		m["version_hash"] = r.VersionHash
	}
	if r.BuildDate != "" {
		m["build_date"] = r.BuildDate
	}
	if r.DurationMs != nil {
		m["duration_ms"] = *r.DurationMs
	}
	if r.ExitCode != nil {
		m["exit_code"] = *r.ExitCode
	}
	if r.Errors != nil {
		m["errors"] = r.Errors
	}
	return m
}

// recordFromAny decodes a record read back from a dataset. Codecs may hand
// back either a map or raw JSON, so both go through encoding/json.
func recordFromAny(item any) (Record, error) {
	var data []byte
	switch v := item.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Record{}, fmt.Errorf("encode record: %w", err)
		}
		data = b
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if !types.EventKind(r.RecordKind).Valid() {
		return Record{}, fmt.Errorf("unknown record kind %q", r.RecordKind)
	}
	return r, nil
}
