// Package reader provides the read-side data access layer for the
// telemetry commands.
//
// Commands never touch a lode.Store directly. They go through a Reader so
// that filtering and summarizing live in one place and tests can swap the
// store for a stub.
package reader

import (
	"fmt"

	"github.com/pithecene-io/toolproxy/analysis"
	"github.com/pithecene-io/toolproxy/types"
)

// ListOptions filters telemetry listings.
type ListOptions struct {
	// Kind keeps only records of this kind. Empty keeps all.
	Kind types.EventKind
	// Program keeps only records of this program. Empty keeps all.
	Program string
	// Limit keeps only the most recent N records. Zero means no limit.
	Limit int
}

// Validate checks the options.
func (o ListOptions) Validate() error {
	if o.Kind != "" && !o.Kind.Valid() {
		return fmt.Errorf("invalid kind %q (must be %s or %s)",
			o.Kind, types.EventKindVersionProbe, types.EventKindRunRecord)
	}
	if o.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", o.Limit)
	}
	return nil
}

// ListItem is one row of a telemetry listing.
type ListItem struct {
	Timestamp    string   `json:"timestamp" yaml:"timestamp"`
	Kind         string   `json:"record_kind" yaml:"record_kind"`
	InvocationID string   `json:"invocation_id" yaml:"invocation_id"`
	Program      string   `json:"program" yaml:"program"`
	Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	VersionHash  string   `json:"version_hash,omitempty" yaml:"version_hash,omitempty"`
	BuildDate    string   `json:"build_date,omitempty" yaml:"build_date,omitempty"`
	DurationMs   *uint64  `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	ExitCode     *int     `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	Errors       []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// AnalyzeResponse is the result of summarizing the store.
type AnalyzeResponse struct {
	// StoragePath is where the records were read from.
	StoragePath string           `json:"storage_path" yaml:"storage_path"`
	Summary     analysis.Summary `json:"summary" yaml:"summary"`
	// SuccessRate is Summary.SuccessRate, for output formats.
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}
