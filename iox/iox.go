// Package iox provides I/O helpers for stream forwarding and resource cleanup.
package iox

import (
	"bufio"
	"errors"
	"io"
)

// LineFunc receives one line exactly as it was read, delimiter included.
type LineFunc func(line string)

// TeeLines copies r to w one line at a time and offers each line to fn.
//
// Every line is written to w before fn sees it, so a slow or broken fn can
// never hold back visible output. Only one line is held in memory at a time.
// A panic in fn is recovered and the copy continues. Write errors on w are
// ignored so the source keeps draining and the producer is never blocked on
// a full pipe.
//
// TeeLines returns when r reports io.EOF (nil) or another read error.
func TeeLines(r io.Reader, w io.Writer, fn LineFunc) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			_, _ = io.WriteString(w, line)
			if fn != nil {
				offer(fn, line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func offer(fn LineFunc, line string) {
	defer func() { _ = recover() }()
	fn(line)
}

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(store))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}
