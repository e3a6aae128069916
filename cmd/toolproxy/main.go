// Package main provides the toolproxy entrypoint.
//
// Invoked as toolproxy, the binary is a CLI. Invoked under any other name
// (usually through a symlink such as ~/.toolproxy/bin/rustc), it is a shim:
// it runs the real program of that name and exits with its exit code.
//
// Usage:
//
//	toolproxy run [--as NAME] -- EXECUTABLE [ARGS...]
//	toolproxy telemetry list|analyze|export [options]
//	toolproxy version
//
// Exit codes:
//   - the proxied program's own exit code, unchanged
//   - 1 when the program ended without an exit status (e.g. killed by a signal)
//   - 127 when the program could not be launched at all
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/toolproxy/cli/cmd"
	"github.com/pithecene-io/toolproxy/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if len(os.Args) > 0 && cmd.IsShim(os.Args[0]) {
		exitErrHandler(nil, cmd.RunShim(context.Background(), os.Args))
		return
	}

	app := &cli.App{
		Name:           cmd.SelfName,
		Usage:          "Transparent toolchain proxy with build telemetry",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.TelemetryCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler is the only place the process exits with a chosen code.
// A nil error returns normally, which exits 0.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(exitStatus(os.Stderr, err))
}

// exitStatus writes err's message to w when it has one and returns the
// exit code. Codes from cli.Exit pass through unchanged; any other error
// exits 1.
func exitStatus(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N) carries only the code; the child already
		// reported whatever it had to say.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
