package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "child exit code passes through",
			err:      cli.Exit("", 101),
			wantCode: 101,
			wantMsg:  "",
		},
		{
			name:     "launch failure",
			err:      cli.Exit("toolproxy: could not execute process `rustc`: no such file or directory", 127),
			wantCode: 127,
			wantMsg:  "toolproxy: could not execute process `rustc`: no such file or directory\n",
		},
		{
			name:     "wrapped exit coder",
			err:      errors.Join(errors.New("context"), cli.Exit("inner error", 42)),
			wantCode: 42,
			wantMsg:  "inner error\n",
		},
		{
			name:     "regular error",
			err:      errors.New("boom"),
			wantCode: 1,
			wantMsg:  "Error: boom\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code := exitStatus(&buf, tt.err)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantMsg {
				t.Errorf("message = %q, want %q", buf.String(), tt.wantMsg)
			}
		})
	}
}

func TestExitStatus_EveryChildCodeSurvives(t *testing.T) {
	for _, code := range []int{1, 2, 3, 101, 126, 255} {
		var buf bytes.Buffer
		if got := exitStatus(&buf, cli.Exit("", code)); got != code {
			t.Errorf("exitStatus(cli.Exit(\"\", %d)) = %d", code, got)
		}
		if buf.Len() != 0 {
			t.Errorf("code %d printed %q, want nothing", code, buf.String())
		}
	}
}
