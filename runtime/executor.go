package runtime

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Capture names the one child stream that is piped back to the proxy.
// The other standard streams are inherited. Piping a single stream means
// only one pipe ever needs draining, so the child cannot block on a second
// full pipe.
type Capture int

// Capture modes.
const (
	CaptureNone Capture = iota
	CaptureStdout
	CaptureStderr
)

// ChildConfig configures one child process.
type ChildConfig struct {
	// Executable is the program to run.
	Executable string
	// Args are passed to the child after the executable.
	Args []string
	// Capture selects the piped stream.
	Capture Capture
	// Streams are handed to the child for every stream that is not captured.
	Streams Streams
}

// ChildProcess manages one child process lifecycle.
type ChildProcess struct {
	config *ChildConfig
	cmd    *exec.Cmd
	pipe   io.ReadCloser

	mu      sync.Mutex // guards process; Signal may run on another goroutine
	process *os.Process
}

// NewChildProcess creates a new child process manager.
func NewChildProcess(config *ChildConfig) *ChildProcess {
	return &ChildProcess{config: config}
}

// Start spawns the child. On failure the pipe it created is closed and the
// raw spawn error is returned.
func (c *ChildProcess) Start() error {
	// No context: a hung child hangs the proxy, exactly as if it were the
	// program itself.
	c.cmd = exec.Command(c.config.Executable, c.config.Args...) //nolint:gosec,noctx
	c.cmd.Stdin = c.config.Streams.Stdin
	c.cmd.Stdout = c.config.Streams.Stdout
	c.cmd.Stderr = c.config.Streams.Stderr

	var err error
	switch c.config.Capture {
	case CaptureStdout:
		c.cmd.Stdout = nil
		c.pipe, err = c.cmd.StdoutPipe()
	case CaptureStderr:
		c.cmd.Stderr = nil
		c.pipe, err = c.cmd.StderrPipe()
	}
	if err != nil {
		return err
	}

	if err := c.cmd.Start(); err != nil {
		c.closePipe()
		return err
	}

	c.mu.Lock()
	c.process = c.cmd.Process
	c.mu.Unlock()
	return nil
}

// Captured returns the piped stream, or nil with CaptureNone.
// It must be drained before Wait is called.
func (c *ChildProcess) Captured() io.Reader {
	return c.pipe
}

// Wait waits for the child to exit and returns its exit code.
// An error is returned only when no exit status could be obtained.
func (c *ChildProcess) Wait() (int, error) {
	if c.cmd == nil || c.cmd.Process == nil {
		return 0, errors.New("child process not started")
	}

	err := c.cmd.Wait()
	c.closePipe()

	c.mu.Lock()
	c.process = nil
	c.mu.Unlock()

	if c.cmd.ProcessState != nil {
		// An *exec.ExitError still carries a usable status, and copy
		// errors on inherited writers do not change the child's code.
		return exitCodeFromState(c.cmd.ProcessState), nil
	}
	return 0, err
}

// Signal delivers sig to the running child. It is a no-op before Start
// and once the child has been reaped.
func (c *ChildProcess) Signal(sig os.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.process == nil {
		return nil
	}
	err := c.process.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (c *ChildProcess) closePipe() {
	if c.pipe != nil {
		_ = c.pipe.Close()
	}
}
