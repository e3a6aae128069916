// Package analysis summarizes stored telemetry.
package analysis

import (
	"sort"

	"github.com/pithecene-io/toolproxy/lode"
	"github.com/pithecene-io/toolproxy/types"
)

// CodeCount is how often one error code was reported.
type CodeCount struct {
	Code  string `json:"code" yaml:"code"`
	Count int    `json:"count" yaml:"count"`
}

// DurationStats describes run durations in milliseconds.
type DurationStats struct {
	MinMs   uint64  `json:"min_ms" yaml:"min_ms"`
	AvgMs   float64 `json:"avg_ms" yaml:"avg_ms"`
	MaxMs   uint64  `json:"max_ms" yaml:"max_ms"`
	TotalMs uint64  `json:"total_ms" yaml:"total_ms"`
}

// VersionInfo is the most recent version probe.
type VersionInfo struct {
	Version     string `json:"version" yaml:"version"`
	VersionHash string `json:"version_hash" yaml:"version_hash"`
	BuildDate   string `json:"build_date" yaml:"build_date"`
	SeenAt      string `json:"seen_at" yaml:"seen_at"`
}

// Summary aggregates a set of telemetry records.
type Summary struct {
	Runs      int `json:"runs" yaml:"runs"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	// RunsWithErrors counts runs that reported at least one error code.
	RunsWithErrors int           `json:"runs_with_errors" yaml:"runs_with_errors"`
	Duration       DurationStats `json:"duration" yaml:"duration"`
	// ErrorCodes is sorted by count (descending), then code.
	ErrorCodes    []CodeCount  `json:"error_codes" yaml:"error_codes"`
	VersionProbes int          `json:"version_probes" yaml:"version_probes"`
	LatestVersion *VersionInfo `json:"latest_version" yaml:"latest_version"`
	FirstSeen     string       `json:"first_seen,omitempty" yaml:"first_seen,omitempty"`
	LastSeen      string       `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
}

// SuccessRate is the fraction of runs that exited 0, or 0 with no runs.
func (s Summary) SuccessRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Runs)
}

// TopErrorCodes returns at most n entries of ErrorCodes.
func (s Summary) TopErrorCodes(n int) []CodeCount {
	if n < 0 || n >= len(s.ErrorCodes) {
		return s.ErrorCodes
	}
	return s.ErrorCodes[:n]
}

// Summarize aggregates records. Records are expected in timestamp order,
// as every lode.Store returns them; records that cannot be decoded are
// skipped.
func Summarize(records []lode.Record) Summary {
	var s Summary
	codes := make(map[string]int)
	first := true

	for _, r := range records {
		event, err := r.Event()
		if err != nil {
			continue
		}

		if s.FirstSeen == "" || r.Timestamp < s.FirstSeen {
			s.FirstSeen = r.Timestamp
		}
		if r.Timestamp > s.LastSeen {
			s.LastSeen = r.Timestamp
		}

		switch e := event.(type) {
		case types.VersionProbe:
			s.VersionProbes++
			if s.LatestVersion == nil || r.Timestamp >= s.LatestVersion.SeenAt {
				s.LatestVersion = &VersionInfo{
					Version:     e.Version,
					VersionHash: e.VersionHash,
					BuildDate:   e.BuildDate,
					SeenAt:      r.Timestamp,
				}
			}

		case types.RunRecord:
			s.Runs++
			if e.ExitCode == 0 {
				s.Succeeded++
			} else {
				s.Failed++
			}
			if e.HasErrors() {
				s.RunsWithErrors++
			}
			for _, code := range e.Errors {
				codes[code]++
			}

			s.Duration.TotalMs += e.DurationMs
			if first || e.DurationMs < s.Duration.MinMs {
				s.Duration.MinMs = e.DurationMs
			}
			if e.DurationMs > s.Duration.MaxMs {
				s.Duration.MaxMs = e.DurationMs
			}
			first = false
		}
	}

	if s.Runs > 0 {
		s.Duration.AvgMs = float64(s.Duration.TotalMs) / float64(s.Runs)
	}
	s.ErrorCodes = sortCodes(codes)
	return s
}

func sortCodes(codes map[string]int) []CodeCount {
	out := make([]CodeCount, 0, len(codes))
	for code, n := range codes {
		out = append(out, CodeCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out
}
