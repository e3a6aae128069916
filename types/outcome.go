package types

import "fmt"

// ExitOutcome is how one invocation ended: the child completed with an exit
// code, or it could not be spawned or awaited at all.
type ExitOutcome struct {
	// Code is the child's exit code. Only meaningful when SpawnErr is nil.
	Code int
	// SpawnErr is the OS error from spawning or awaiting the child.
	SpawnErr error
}

// Completed returns the outcome of a child that terminated.
func Completed(code int) ExitOutcome {
	return ExitOutcome{Code: code}
}

// SpawnFailed returns the outcome of a child that never ran to completion.
func SpawnFailed(err error) ExitOutcome {
	return ExitOutcome{SpawnErr: err}
}

// IsCompleted reports whether the child terminated on its own terms.
func (o ExitOutcome) IsCompleted() bool {
	return o.SpawnErr == nil
}

func (o ExitOutcome) String() string {
	if o.SpawnErr != nil {
		return fmt.Sprintf("spawn failed: %v", o.SpawnErr)
	}
	return fmt.Sprintf("completed with code %d", o.Code)
}
