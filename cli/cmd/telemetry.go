package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/toolproxy/cli/reader"
	"github.com/pithecene-io/toolproxy/cli/render"
	"github.com/pithecene-io/toolproxy/cli/tui"
	"github.com/pithecene-io/toolproxy/export"
	"github.com/pithecene-io/toolproxy/types"
)

// listWarningThreshold is the number of items above which we warn about using --limit.
const listWarningThreshold = 100

// openReader opens the configured telemetry store. Tests replace it.
var openReader = func(ctx context.Context) (reader.Reader, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	storeCfg, err := cfg.StoreConfig()
	if err != nil {
		return nil, err
	}
	return reader.Open(ctx, storeCfg, cfg.StoragePath())
}

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// TelemetryCommand returns the telemetry command with subcommands.
// Every subcommand is read-only.
func TelemetryCommand() *cli.Command {
	return &cli.Command{
		Name:  "telemetry",
		Usage: "Inspect recorded telemetry",
		Subcommands: []*cli.Command{
			telemetryListCommand(),
			telemetryAnalyzeCommand(),
			telemetryExportCommand(),
		},
	}
}

func telemetryListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List telemetry records, oldest first",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Filter by kind: version_probe, run_record",
			},
			&cli.StringFlag{
				Name:  "program",
				Usage: "Filter by program name",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Keep only the most recent N records (0 = no limit)",
			},
		),
		Action: telemetryListAction,
	}
}

func telemetryListAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	opts := reader.ListOptions{
		Kind:    types.EventKind(c.String("kind")),
		Program: c.String("program"),
		Limit:   c.Int("limit"),
	}
	if err := opts.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	rd, err := openReader(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer func() { _ = rd.Close() }()

	items, err := rd.List(c.Context, opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("list telemetry: %v", err), 1)
	}

	if len(items) > listWarningThreshold && opts.Limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d records. Consider using --limit to reduce output.\n\n", len(items))
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewList, items)
	}
	return r.Render(items)
}

func telemetryAnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Summarize runs, error codes and versions",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "program",
				Usage: "Only analyze this program",
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "Analyze an export file instead of the store",
			},
		),
		Action: telemetryAnalyzeAction,
	}
}

func telemetryAnalyzeAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	var rd reader.Reader
	if from := c.String("from"); from != "" {
		rd, err = openExport(c.Context, from)
	} else {
		rd, err = openReader(c.Context)
	}
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer func() { _ = rd.Close() }()

	resp, err := rd.Analyze(c.Context, c.String("program"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("analyze telemetry: %v", err), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewAnalyze, resp)
	}
	return r.Render(resp)
}

func openExport(ctx context.Context, path string) (reader.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return reader.FromExport(ctx, f, path)
}

func telemetryExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write every record as a length-prefixed msgpack stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file (- for stdout)",
				Value:   "-",
			},
		},
		Action: telemetryExportAction,
	}
}

func telemetryExportAction(c *cli.Context) error {
	rd, err := openReader(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer func() { _ = rd.Close() }()

	records, err := rd.Records(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("read telemetry: %v", err), 1)
	}

	out := c.String("out")
	var w io.Writer = c.App.Writer
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return cli.Exit(fmt.Sprintf("create %s: %v", out, err), 1)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := export.WriteAll(w, records, time.Now()); err != nil {
		return cli.Exit(fmt.Sprintf("export telemetry: %v", err), 1)
	}
	if out != "-" {
		fmt.Fprintf(c.App.ErrWriter, "exported %d records to %s\n", len(records), out)
	}
	return nil
}
