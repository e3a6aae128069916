package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/toolproxy/metrics"
	"github.com/pithecene-io/toolproxy/types"
)

// InvocationReport is the structured JSON report written by --report.
type InvocationReport struct {
	InvocationID string `json:"invocation_id"`
	Program      string `json:"program"`
	Executable   string `json:"executable"`
	Path         string `json:"path"`
	// ExitCode is the code the proxy exits with.
	ExitCode int `json:"exit_code"`
	// SpawnError is set when the child could not be run.
	SpawnError string            `json:"spawn_error,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Metrics    *metrics.Snapshot `json:"metrics"`
}

// BuildInvocationReport composes a report from an invocation's outcome and
// metrics snapshot.
func BuildInvocationReport(inv *types.Invocation, path Path, outcome types.ExitOutcome, duration time.Duration, snap metrics.Snapshot) *InvocationReport {
	report := &InvocationReport{
		InvocationID: snap.InvocationID,
		Program:      snap.Program,
		Executable:   inv.Executable,
		Path:         path.String(),
		DurationMs:   duration.Milliseconds(),
		Metrics:      &snap,
	}

	if outcome.IsCompleted() {
		report.ExitCode = outcome.Code
	} else {
		report.ExitCode = ExitCodeLaunchFailure
		report.SpawnError = outcome.SpawnErr.Error()
	}
	return report
}

// WriteInvocationReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteInvocationReport(report *InvocationReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := writeReportTo(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return f.Close()
}

func writeReportTo(report *InvocationReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
