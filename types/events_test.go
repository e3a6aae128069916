package types //nolint:revive // types is a valid package name

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEventKind_Valid(t *testing.T) {
	tests := []struct {
		kind EventKind
		want bool
	}{
		{EventKindVersionProbe, true},
		{EventKindRunRecord, true},
		{EventKind("rustc_run"), false},
		{EventKind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.want {
				t.Errorf("EventKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestNewRunRecord_EmptyErrorsAreAbsent(t *testing.T) {
	rec := NewRunRecord(12, 0, []string{})
	if rec.Errors != nil {
		t.Fatalf("expected nil errors, got %v", rec.Errors)
	}
	if rec.HasErrors() {
		t.Error("HasErrors() = true for empty list")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "errors") {
		t.Errorf("absent errors must not be serialized, got %s", data)
	}
}

func TestNewRunRecord_KeepsOrder(t *testing.T) {
	rec := NewRunRecord(5, 1, []string{"E0308", "E0499", "E0308"})
	want := []string{"E0308", "E0499", "E0308"}
	if len(rec.Errors) != len(want) {
		t.Fatalf("errors = %v, want %v", rec.Errors, want)
	}
	for i := range want {
		if rec.Errors[i] != want[i] {
			t.Errorf("errors[%d] = %q, want %q", i, rec.Errors[i], want[i])
		}
	}
}

func TestTelemetryEvent_Kinds(t *testing.T) {
	var events []TelemetryEvent
	events = append(events, VersionProbe{Version: "1.42.0"}, NewRunRecord(1, 0, nil))

	if events[0].Kind() != EventKindVersionProbe {
		t.Errorf("VersionProbe kind = %q", events[0].Kind())
	}
	if events[1].Kind() != EventKindRunRecord {
		t.Errorf("RunRecord kind = %q", events[1].Kind())
	}
}

func TestInvocation_Accessors(t *testing.T) {
	inv := &Invocation{
		Executable: "/opt/toolchain/bin/rustc",
		Args:       []string{"rustc", "--edition", "2021", "main.rs"},
		Caller:     "/usr/local/bin/rustc",
	}

	if inv.Name() != "rustc" {
		t.Errorf("Name() = %q, want rustc", inv.Name())
	}
	if got := inv.PassThroughArgs(); len(got) != 3 || got[0] != "--edition" {
		t.Errorf("PassThroughArgs() = %v", got)
	}
	if err := inv.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	empty := &Invocation{Executable: "rustc"}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty argument vector")
	}
	if empty.Name() != "rustc" {
		t.Errorf("Name() fallback = %q, want rustc", empty.Name())
	}
}

func TestExitOutcome(t *testing.T) {
	done := Completed(101)
	if !done.IsCompleted() || done.Code != 101 {
		t.Errorf("Completed(101) = %+v", done)
	}

	failed := SpawnFailed(errors.New("no such file or directory"))
	if failed.IsCompleted() {
		t.Error("SpawnFailed outcome reported as completed")
	}
	if !strings.Contains(failed.String(), "spawn failed") {
		t.Errorf("String() = %q", failed.String())
	}
}
