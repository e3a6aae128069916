package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/toolproxy/cli/config"
	"github.com/pithecene-io/toolproxy/log"
	"github.com/pithecene-io/toolproxy/lode"
	"github.com/pithecene-io/toolproxy/metrics"
	"github.com/pithecene-io/toolproxy/runtime"
	"github.com/pithecene-io/toolproxy/telemetry"
	"github.com/pithecene-io/toolproxy/types"
)

// SelfName is this binary's own name. Invoked under any other name, the
// binary acts as a shim for the program of that name.
const SelfName = "toolproxy"

// IsShim reports whether argv0 names a proxied program rather than toolproxy.
func IsShim(argv0 string) bool {
	name, err := runtime.CallerName(argv0)
	return err == nil && name != SelfName
}

// RunCommand returns the run command, the explicit proxy entry point for
// dispatchers and build-tool wrappers.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a program through the proxy",
		ArgsUsage: "[--as NAME] -- EXECUTABLE [ARGS...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "as",
				Usage: "Identity to dispatch on (default: basename of EXECUTABLE)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON invocation report to this path (- for stderr)",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) == 0 {
		return cli.Exit("run requires an executable", 1)
	}

	caller := c.String("as")
	if caller == "" {
		caller = args[0]
	}

	inv := &types.Invocation{
		Executable: args[0],
		Args:       args,
		Caller:     caller,
	}
	return proxyInvocation(c.Context, loadConfigOrDefault(), inv, invocationOptions{
		streams:    runtime.StdStreams(),
		reportPath: c.String("report"),
	})
}

// RunShim proxies argv, where argv[0] is the shim's name (e.g. rustc).
// The returned error carries the exit code for the top-level handler.
func RunShim(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return cli.Exit(fmt.Sprintf("%s: %v", SelfName, runtime.ErrNoExecutableName), runtime.ExitCodeLaunchFailure)
	}
	if _, err := runtime.CallerName(argv[0]); err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", SelfName, err), runtime.ExitCodeLaunchFailure)
	}

	cfg := loadConfigOrDefault()
	name := filepath.Base(argv[0])

	exe, err := ResolveExecutable(name, cfg.BinDir())
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", SelfName, err), runtime.ExitCodeLaunchFailure)
	}

	inv := &types.Invocation{
		Executable: exe,
		Args:       append([]string{name}, argv[1:]...),
		Caller:     argv[0],
	}
	return proxyInvocation(ctx, cfg, inv, invocationOptions{streams: runtime.StdStreams()})
}

// loadConfigOrDefault never fails: a proxy that refuses to run over a bad
// config file would break every build. The problem is reported on stderr.
func loadConfigOrDefault() *config.Config {
	return configOrDefault(os.Stderr)
}

func configOrDefault(w io.Writer) *config.Config {
	cfg, err := loadConfig()
	if err == nil {
		return cfg
	}
	fmt.Fprintf(w, "%s: ignoring configuration: %v\n", SelfName, err)

	home, err := config.HomeDir()
	if err != nil {
		fmt.Fprintf(w, "%s: using defaults without a home directory: %v\n", SelfName, err)
	}
	return config.Default(home)
}

// invocationOptions are per-invocation settings not taken from the config.
type invocationOptions struct {
	streams runtime.Streams
	// reportPath, when set, receives an InvocationReport.
	reportPath string
}

// proxyInvocation runs inv and converts the outcome into the process exit.
// It returns only after telemetry has been emitted and the store closed.
func proxyInvocation(ctx context.Context, cfg *config.Config, inv *types.Invocation, opts invocationOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	invocationID := uuid.NewString()
	program := inv.Name()
	if name, err := runtime.CallerName(inv.Caller); err == nil {
		program = name
	}

	meta := &log.Meta{InvocationID: invocationID, Program: program, Caller: inv.Caller}
	logger, closeLog, err := newLogger(cfg, meta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", SelfName, err)
		logger, closeLog = log.NewLogger(meta, log.DefaultLevel), func() {}
	}
	defer closeLog()

	collector := metrics.NewCollector(program, storageBackend(cfg), invocationID)
	proxy := &runtime.Proxy{
		Settings: runtime.Settings{
			Enabled: cfg.TelemetryEnabled(),
			Program: cfg.Telemetry.Program,
		},
		Streams: opts.streams,
		Logger:  logger,
		Metrics: collector,
	}

	var emitter *telemetry.Emitter
	if cfg.TelemetryEnabled() {
		emitter = newEmitter(cfg, lode.Meta{InvocationID: invocationID, Program: program}, logger, collector)
		proxy.Emitter = emitter
	}

	stop := holdSignals(proxy)
	start := time.Now()
	outcome, runErr := proxy.Run(ctx, inv)
	duration := time.Since(start)
	stop()

	sugar := logger.Sugar()
	if emitter != nil {
		if err := emitter.Close(); err != nil {
			sugar.Warnf("closing telemetry: %v", err)
		}
	}
	snap := collector.Snapshot()
	logger.Debug("invocation finished", snap.Fields())

	if opts.reportPath != "" {
		path, _ := runtime.Dispatch(inv, proxy.Settings)
		report := runtime.BuildInvocationReport(inv, path, outcome, duration, snap)
		if err := runtime.WriteInvocationReport(report, opts.reportPath); err != nil {
			sugar.Warnf("writing invocation report %s: %v", opts.reportPath, err)
		}
	}

	return exitError(outcome, runErr)
}

// exitError maps an outcome to the error the top-level handler exits with.
// The child's code is passed through unchanged; a launch failure exits with
// a code the child could not have produced itself.
func exitError(outcome types.ExitOutcome, err error) error {
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", SelfName, err), runtime.ExitCodeLaunchFailure)
	}
	if !outcome.IsCompleted() {
		return cli.Exit(fmt.Sprintf("%s: %v", SelfName, outcome.SpawnErr), runtime.ExitCodeLaunchFailure)
	}
	if outcome.Code == 0 {
		return nil
	}
	return cli.Exit("", outcome.Code)
}

// signalForwarder receives the signals the proxy catches.
type signalForwarder interface {
	Signal(sig os.Signal) error
}

// holdSignals keeps interrupt and terminate signals from killing the proxy
// while the child runs and forwards them to the child instead, so a
// supervisor that signals the proxy reaches the real program. The proxy
// then reports the child's exit status. Caught signals are reset to their
// defaults in the child on exec.
func holdSignals(child signalForwarder) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case sig := <-sigCh:
				_ = child.Signal(sig)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
		<-stopped
	}
}

func storageBackend(cfg *config.Config) string {
	backend, err := lode.ParseBackend(cfg.Telemetry.Backend)
	if err != nil {
		return cfg.Telemetry.Backend
	}
	return string(backend)
}
