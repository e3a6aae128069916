package iox

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type spyCloser struct{ closed bool }

func (s *spyCloser) Close() error { s.closed = true; return errors.New("ignored") }

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.closed {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestTeeLines_ForwardsVerbatim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lines []string
	}{
		{"empty", "", nil},
		{"single terminated", "hello\n", []string{"hello\n"}},
		{"no trailing newline", "a\nb", []string{"a\n", "b"}},
		{"blank lines", "\n\nx\n", []string{"\n", "\n", "x\n"}},
		{"crlf kept", "one\r\ntwo\r\n", []string{"one\r\n", "two\r\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			var seen []string
			err := TeeLines(strings.NewReader(tt.input), &out, func(line string) {
				seen = append(seen, line)
			})
			if err != nil {
				t.Fatalf("TeeLines: %v", err)
			}
			if out.String() != tt.input {
				t.Errorf("forwarded %q, want %q", out.String(), tt.input)
			}
			if len(seen) != len(tt.lines) {
				t.Fatalf("handler saw %q, want %q", seen, tt.lines)
			}
			for i := range tt.lines {
				if seen[i] != tt.lines[i] {
					t.Errorf("line %d = %q, want %q", i, seen[i], tt.lines[i])
				}
			}
		})
	}
}

// orderWriter records whether the handler ran before each write landed.
type orderWriter struct {
	log *[]string
}

func (w orderWriter) Write(p []byte) (int, error) {
	*w.log = append(*w.log, "write:"+string(p))
	return len(p), nil
}

func TestTeeLines_WritesBeforeHandler(t *testing.T) {
	var events []string
	err := TeeLines(strings.NewReader("x\ny\n"), orderWriter{log: &events}, func(line string) {
		events = append(events, "handle:"+line)
	})
	if err != nil {
		t.Fatalf("TeeLines: %v", err)
	}

	want := []string{"write:x\n", "handle:x\n", "write:y\n", "handle:y\n"}
	if strings.Join(events, "|") != strings.Join(want, "|") {
		t.Errorf("order = %q, want %q", events, want)
	}
}

func TestTeeLines_HandlerPanicDoesNotStopForwarding(t *testing.T) {
	var out bytes.Buffer
	calls := 0
	err := TeeLines(strings.NewReader("a\nb\nc\n"), &out, func(string) {
		calls++
		panic("extractor bug")
	})
	if err != nil {
		t.Fatalf("TeeLines: %v", err)
	}
	if out.String() != "a\nb\nc\n" {
		t.Errorf("forwarded %q", out.String())
	}
	if calls != 3 {
		t.Errorf("handler called %d times, want 3", calls)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestTeeLines_WriteErrorKeepsDraining(t *testing.T) {
	var seen int
	err := TeeLines(strings.NewReader("1\n2\n3\n"), failingWriter{}, func(string) { seen++ })
	if err != nil {
		t.Fatalf("TeeLines: %v", err)
	}
	if seen != 3 {
		t.Errorf("handler saw %d lines, want 3", seen)
	}
}

type errReader struct {
	data string
	err  error
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestTeeLines_ReadErrorReturned(t *testing.T) {
	readErr := errors.New("pipe closed unexpectedly")
	var out bytes.Buffer
	err := TeeLines(&errReader{data: "partial\nrest", err: readErr}, &out, nil)
	if !errors.Is(err, readErr) {
		t.Fatalf("err = %v, want %v", err, readErr)
	}
	if out.String() != "partial\nrest" {
		t.Errorf("forwarded %q before error", out.String())
	}
}

func TestTeeLines_NilHandler(t *testing.T) {
	var out bytes.Buffer
	if err := TeeLines(io.LimitReader(strings.NewReader("z\n"), 10), &out, nil); err != nil {
		t.Fatalf("TeeLines: %v", err)
	}
	if out.String() != "z\n" {
		t.Errorf("forwarded %q", out.String())
	}
}
