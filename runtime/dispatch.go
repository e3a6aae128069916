// Package runtime decides how each proxied invocation runs and drives the
// child process for it.
//
// Three paths exist. Passthrough inherits every standard stream and does
// nothing else. The version-query path pipes stdout through a version
// matcher. The normal-run path pipes stderr through an error-code collector
// and times the child. Every path returns an ExitOutcome; only the top-level
// command turns that outcome into a process exit.
package runtime

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/pithecene-io/toolproxy/types"
)

// DefaultProgram is the instrumented program when none is configured.
const DefaultProgram = "rustc"

// ErrNoExecutableName is returned when the caller's own basename cannot be
// determined. Nothing is spawned.
var ErrNoExecutableName = errors.New("could not determine executable name")

// Path is the run path chosen for an invocation.
type Path int

// Run paths.
const (
	PathPassthrough Path = iota
	PathVersionQuery
	PathRun
)

func (p Path) String() string {
	switch p {
	case PathPassthrough:
		return "passthrough"
	case PathVersionQuery:
		return "version_query"
	case PathRun:
		return "run"
	default:
		return "unknown"
	}
}

// Settings controls instrumentation.
type Settings struct {
	// Enabled turns telemetry on. When false every invocation passes through.
	Enabled bool
	// Program is the basename of the instrumented program. Empty means DefaultProgram.
	Program string
}

func (s Settings) program() string {
	if s.Program == "" {
		return DefaultProgram
	}
	return NormalizeName(s.Program)
}

// versionFlags are matched exactly against every argument.
var versionFlags = map[string]struct{}{
	"-V":        {},
	"--version": {},
}

// Dispatch selects the run path for inv.
func Dispatch(inv *types.Invocation, settings Settings) (Path, error) {
	name, err := CallerName(inv.Caller)
	if err != nil {
		return PathPassthrough, err
	}

	if !settings.Enabled || name != settings.program() {
		return PathPassthrough, nil
	}

	for _, arg := range inv.Args {
		if _, ok := versionFlags[arg]; ok {
			return PathVersionQuery, nil
		}
	}
	return PathRun, nil
}

// CallerName returns the normalized basename of caller, usually argv[0].
func CallerName(caller string) (string, error) {
	if caller == "" {
		return "", ErrNoExecutableName
	}
	base := filepath.Base(caller)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", ErrNoExecutableName
	}
	return NormalizeName(base), nil
}

// NormalizeName lower-cases name and strips a trailing ".exe".
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	return strings.TrimSuffix(name, ".exe")
}
