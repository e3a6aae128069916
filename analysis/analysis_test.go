package analysis

import (
	"reflect"
	"testing"
	"time"

	"github.com/pithecene-io/toolproxy/lode"
	"github.com/pithecene-io/toolproxy/types"
)

var (
	meta = lode.Meta{InvocationID: "inv", Program: "rustc"}
	base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func at(i int) time.Time { return base.Add(time.Duration(i) * time.Minute) }

func TestSummarize(t *testing.T) {
	records := []lode.Record{
		lode.NewRecord(types.VersionProbe{Version: "1.69.0", VersionHash: "84c898d65", BuildDate: "2023-04-16"}, meta, at(0)),
		lode.NewRecord(types.NewRunRecord(100, 0, nil), meta, at(1)),
		lode.NewRecord(types.NewRunRecord(300, 1, []string{"E0308", "E0499", "E0308"}), meta, at(2)),
		lode.NewRecord(types.VersionProbe{Version: "1.70.0", VersionHash: "90c541806", BuildDate: "2023-05-31"}, meta, at(3)),
		lode.NewRecord(types.NewRunRecord(200, 101, []string{"E0499", "E0061"}), meta, at(4)),
		{RecordKind: "bogus", Timestamp: at(5).Format(time.RFC3339Nano)},
	}

	s := Summarize(records)

	if s.Runs != 3 || s.Succeeded != 1 || s.Failed != 2 {
		t.Errorf("runs = %d/%d/%d, want 3/1/2", s.Runs, s.Succeeded, s.Failed)
	}
	if s.RunsWithErrors != 2 {
		t.Errorf("RunsWithErrors = %d, want 2", s.RunsWithErrors)
	}
	wantDuration := DurationStats{MinMs: 100, AvgMs: 200, MaxMs: 300, TotalMs: 600}
	if s.Duration != wantDuration {
		t.Errorf("Duration = %+v, want %+v", s.Duration, wantDuration)
	}

	wantCodes := []CodeCount{{"E0308", 2}, {"E0499", 2}, {"E0061", 1}}
	if !reflect.DeepEqual(s.ErrorCodes, wantCodes) {
		t.Errorf("ErrorCodes = %v, want %v", s.ErrorCodes, wantCodes)
	}

	if s.VersionProbes != 2 {
		t.Errorf("VersionProbes = %d, want 2", s.VersionProbes)
	}
	if s.LatestVersion == nil || s.LatestVersion.Version != "1.70.0" {
		t.Errorf("LatestVersion = %+v, want 1.70.0", s.LatestVersion)
	}
	if s.FirstSeen != "2026-03-01T12:00:00Z" || s.LastSeen != "2026-03-01T12:04:00Z" {
		t.Errorf("seen range = %s..%s", s.FirstSeen, s.LastSeen)
	}

	if got := s.SuccessRate(); got < 0.333 || got > 0.334 {
		t.Errorf("SuccessRate = %v, want 1/3", got)
	}
	if got := s.TopErrorCodes(1); len(got) != 1 || got[0].Code != "E0308" {
		t.Errorf("TopErrorCodes(1) = %v", got)
	}
	if got := s.TopErrorCodes(10); len(got) != 3 {
		t.Errorf("TopErrorCodes(10) returned %d entries, want 3", len(got))
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Runs != 0 || s.LatestVersion != nil || s.SuccessRate() != 0 {
		t.Errorf("empty summary = %+v", s)
	}
	if s.ErrorCodes == nil || len(s.ErrorCodes) != 0 {
		t.Errorf("ErrorCodes = %#v, want empty non-nil slice", s.ErrorCodes)
	}
}

func TestSummarize_ZeroDurationIsMinimum(t *testing.T) {
	s := Summarize([]lode.Record{
		lode.NewRecord(types.NewRunRecord(50, 0, nil), meta, at(0)),
		lode.NewRecord(types.NewRunRecord(0, 2, nil), meta, at(1)),
	})
	if s.Duration.MinMs != 0 || s.Duration.MaxMs != 50 {
		t.Errorf("Duration = %+v, want min 0 max 50", s.Duration)
	}
}
