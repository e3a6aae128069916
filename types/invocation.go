package types

import (
	"errors"
	"fmt"
)

// Invocation describes one proxied command. It is not mutated once a run starts.
type Invocation struct {
	// Executable is the resolved path (or PATH-relative name) of the real program.
	Executable string
	// Args is the full argument vector. Args[0] is the program name reported
	// in errors; Args[1:] are passed to the child unchanged.
	Args []string
	// Caller is this process's own identity, usually argv[0].
	Caller string
}

// Name returns the program name used in error messages.
func (inv *Invocation) Name() string {
	if len(inv.Args) > 0 {
		return inv.Args[0]
	}
	return inv.Executable
}

// PassThroughArgs returns the arguments handed to the child.
func (inv *Invocation) PassThroughArgs() []string {
	if len(inv.Args) <= 1 {
		return nil
	}
	return inv.Args[1:]
}

// Validate checks that the invocation can be launched.
func (inv *Invocation) Validate() error {
	if inv.Executable == "" {
		return errors.New("invocation has no executable")
	}
	if len(inv.Args) == 0 {
		return fmt.Errorf("invocation of %s has an empty argument vector", inv.Executable)
	}
	return nil
}
