package runtime

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pithecene-io/toolproxy/iox"
	"github.com/pithecene-io/toolproxy/log"
	"github.com/pithecene-io/toolproxy/metrics"
	"github.com/pithecene-io/toolproxy/types"
)

// Emitter receives telemetry events. Emit must not fail the run: any
// storage problem stays inside the emitter.
type Emitter interface {
	Emit(ctx context.Context, event types.TelemetryEvent)
}

// Streams are the proxy's own standard streams.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// StdStreams returns the process's standard streams.
func StdStreams() Streams {
	return Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// withDefaults fills unset streams from the process's standard streams.
func (s Streams) withDefaults() Streams {
	if s.Stdin == nil {
		s.Stdin = os.Stdin
	}
	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}
	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}
	return s
}

// Proxy runs invocations on behalf of a caller.
type Proxy struct {
	// Settings decides which invocations are instrumented.
	Settings Settings
	// Emitter receives telemetry. Nil drops events.
	Emitter Emitter
	// Streams default to the process's standard streams.
	Streams Streams
	// Logger defaults to a no-op logger.
	Logger *log.Logger
	// Metrics may be nil.
	Metrics *metrics.Collector

	mu    sync.Mutex
	child *ChildProcess
}

// Signal forwards sig to the child that is currently running, if any.
func (p *Proxy) Signal(sig os.Signal) error {
	p.mu.Lock()
	child := p.child
	p.mu.Unlock()

	if child == nil {
		return nil
	}
	return child.Signal(sig)
}

// spawn starts child and makes it the target of Signal until the returned
// func is called.
func (p *Proxy) spawn(child *ChildProcess) (func(), error) {
	if err := child.Start(); err != nil {
		return func() {}, err
	}
	p.mu.Lock()
	p.child = child
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.child = nil
		p.mu.Unlock()
	}, nil
}

// Run executes inv on the path chosen by Dispatch.
//
// Run never exits the process. A nil error means the child ran and
// outcome carries its exit code. A non-nil error is either
// ErrNoExecutableName (nothing was spawned) or a *RunningCommandError, and
// outcome is SpawnFailed. Telemetry has already been emitted when Run
// returns.
func (p *Proxy) Run(ctx context.Context, inv *types.Invocation) (types.ExitOutcome, error) {
	if err := inv.Validate(); err != nil {
		return types.SpawnFailed(err), err
	}

	path, err := Dispatch(inv, p.Settings)
	if err != nil {
		return types.SpawnFailed(err), err
	}

	p.logger().Debug("dispatching invocation", map[string]any{
		"path":       path.String(),
		"executable": inv.Executable,
		"args":       len(inv.PassThroughArgs()),
	})

	switch path {
	case PathVersionQuery:
		return p.runVersionQuery(ctx, inv)
	case PathRun:
		return p.runInstrumented(ctx, inv)
	default:
		return p.runPassthrough(inv)
	}
}

// runPassthrough inherits all three streams. Stdin is always the proxy's
// own stdin so interactive programs keep working.
func (p *Proxy) runPassthrough(inv *types.Invocation) (types.ExitOutcome, error) {
	p.Metrics.IncPassthrough()

	child := NewChildProcess(&ChildConfig{
		Executable: inv.Executable,
		Args:       inv.PassThroughArgs(),
		Capture:    CaptureNone,
		Streams:    p.streams(),
	})
	release, err := p.spawn(child)
	if err != nil {
		return p.spawnFailed(inv, err)
	}
	defer release()

	code, err := child.Wait()
	if err != nil {
		return p.spawnFailed(inv, err)
	}
	return types.Completed(code), nil
}

// runVersionQuery pipes stdout through the version matcher and emits a
// VersionProbe when a line matched.
func (p *Proxy) runVersionQuery(ctx context.Context, inv *types.Invocation) (types.ExitOutcome, error) {
	p.Metrics.IncVersionQuery()
	streams := p.streams()

	child := NewChildProcess(&ChildConfig{
		Executable: inv.Executable,
		Args:       inv.PassThroughArgs(),
		Capture:    CaptureStdout,
		Streams:    streams,
	})
	release, err := p.spawn(child)
	if err != nil {
		return p.spawnFailed(inv, err)
	}
	defer release()

	var matcher VersionMatcher
	p.tee(child.Captured(), streams.Stdout, func(line string) {
		if matcher.Offer(line) {
			p.Metrics.IncVersionProbe()
		}
	})

	code, err := child.Wait()
	if err != nil {
		return p.spawnFailed(inv, err)
	}

	if probe, ok := matcher.Probe(); ok {
		p.emit(ctx, probe)
	}
	return types.Completed(code), nil
}

// runInstrumented pipes stderr through the error-code collector, times the
// child and always emits exactly one RunRecord.
func (p *Proxy) runInstrumented(ctx context.Context, inv *types.Invocation) (types.ExitOutcome, error) {
	p.Metrics.IncInstrumentedRun()
	streams := p.streams()

	child := NewChildProcess(&ChildConfig{
		Executable: inv.Executable,
		Args:       inv.PassThroughArgs(),
		Capture:    CaptureStderr,
		Streams:    streams,
	})

	start := time.Now()
	release, err := p.spawn(child)
	if err != nil {
		p.emit(ctx, types.NewRunRecord(elapsedMs(start), SpawnErrorCode(err), nil))
		return p.spawnFailed(inv, err)
	}
	defer release()

	var collector ErrorCodeCollector
	p.tee(child.Captured(), streams.Stderr, func(line string) {
		p.Metrics.AddErrorCodes(collector.Offer(line))
	})

	code, err := child.Wait()
	duration := elapsedMs(start)
	if err != nil {
		p.emit(ctx, types.NewRunRecord(duration, SpawnErrorCode(err), nil))
		return p.spawnFailed(inv, err)
	}

	p.emit(ctx, types.NewRunRecord(duration, code, collector.Codes()))
	return types.Completed(code), nil
}

// tee forwards r to w line by line through fn. A read error ends the copy
// early; the child is still awaited by the caller.
func (p *Proxy) tee(r io.Reader, w io.Writer, fn iox.LineFunc) {
	err := iox.TeeLines(r, w, func(line string) {
		p.Metrics.IncLinesScanned()
		fn(line)
	})
	if err != nil {
		p.logger().Warn("captured stream read failed", map[string]any{
			"error": err.Error(),
		})
	}
}

func (p *Proxy) spawnFailed(inv *types.Invocation, err error) (types.ExitOutcome, error) {
	p.Metrics.IncSpawnFailure()
	p.logger().Debug("child could not be run", map[string]any{
		"executable": inv.Executable,
		"error":      err.Error(),
	})
	return types.SpawnFailed(err), &RunningCommandError{Name: inv.Name(), Err: err}
}

func (p *Proxy) emit(ctx context.Context, event types.TelemetryEvent) {
	if p.Emitter == nil {
		return
	}
	p.Emitter.Emit(ctx, event)
}

func (p *Proxy) streams() Streams {
	return p.Streams.withDefaults()
}

func (p *Proxy) logger() *log.Logger {
	if p.Logger == nil {
		return log.Nop()
	}
	return p.Logger
}

// elapsedMs truncates the monotonic time since start to whole milliseconds.
func elapsedMs(start time.Time) uint64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}
