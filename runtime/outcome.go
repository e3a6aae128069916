package runtime

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Exit codes produced by the proxy itself rather than the child.
const (
	// ExitCodeNoStatus is used when the child ended without an exit status,
	// for example when it was killed by a signal.
	ExitCodeNoStatus = 1
	// ExitCodeLaunchFailure is the process exit code when the child could not
	// be launched at all. Shells use 127 for "command not found", and no
	// proxied program is expected to return it.
	ExitCodeLaunchFailure = 127
)

// RunningCommandError reports that the named program could not be spawned
// or awaited.
type RunningCommandError struct {
	// Name is the program name from the invocation.
	Name string
	// Err is the underlying OS error.
	Err error
}

func (e *RunningCommandError) Error() string {
	return fmt.Sprintf("could not execute process `%s`: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *RunningCommandError) Unwrap() error {
	return e.Err
}

// exitCodeFromState returns the child's exit code, or ExitCodeNoStatus when
// it has none.
func exitCodeFromState(state *os.ProcessState) int {
	if state == nil {
		return ExitCodeNoStatus
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return ExitCodeNoStatus
}

// SpawnErrorCode maps a spawn or wait failure to the raw OS error number.
// A PATH lookup miss maps to ENOENT. Anything else is 1.
func SpawnErrorCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return int(syscall.ENOENT)
	}
	return 1
}
