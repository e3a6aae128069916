package reader

import (
	"context"
	"fmt"
	"io"

	"github.com/pithecene-io/toolproxy/analysis"
	"github.com/pithecene-io/toolproxy/export"
	"github.com/pithecene-io/toolproxy/lode"
	"github.com/pithecene-io/toolproxy/types"
)

// StoreReader reads from a lode.Store.
type StoreReader struct {
	store lode.Store
	path  string
}

// New creates a reader over store. path is only reported in responses.
func New(store lode.Store, path string) *StoreReader {
	return &StoreReader{store: store, path: path}
}

// Open opens the store described by cfg and wraps it in a reader.
func Open(ctx context.Context, cfg lode.StoreConfig, path string) (*StoreReader, error) {
	store, err := lode.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open telemetry store: %w", err)
	}
	return New(store, path), nil
}

// FromExport loads an export stream into an in-memory store, so exported
// telemetry can be listed and analyzed like a live store.
func FromExport(ctx context.Context, r io.Reader, path string) (*StoreReader, error) {
	_, records, err := export.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", path, err)
	}

	store, err := lode.Open(ctx, lode.StoreConfig{Backend: lode.BackendMemory})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := store.Append(ctx, rec); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return New(store, path), nil
}

// List implements Reader.
func (r *StoreReader) List(ctx context.Context, opts ListOptions) ([]ListItem, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	records, err := r.store.Records(ctx)
	if err != nil {
		return nil, err
	}

	filtered := filter(records, opts.Kind, opts.Program)
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[len(filtered)-opts.Limit:]
	}

	items := make([]ListItem, 0, len(filtered))
	for _, rec := range filtered {
		items = append(items, toListItem(rec))
	}
	return items, nil
}

// Analyze implements Reader. An empty program analyzes all programs.
func (r *StoreReader) Analyze(ctx context.Context, program string) (*AnalyzeResponse, error) {
	records, err := r.store.Records(ctx)
	if err != nil {
		return nil, err
	}

	summary := analysis.Summarize(filter(records, "", program))
	return &AnalyzeResponse{
		StoragePath: r.path,
		Summary:     summary,
		SuccessRate: summary.SuccessRate(),
	}, nil
}

// Records implements Reader.
func (r *StoreReader) Records(ctx context.Context) ([]lode.Record, error) {
	return r.store.Records(ctx)
}

// Close implements Reader.
func (r *StoreReader) Close() error {
	return r.store.Close()
}

func filter(records []lode.Record, kind types.EventKind, program string) []lode.Record {
	if kind == "" && program == "" {
		return records
	}
	out := make([]lode.Record, 0, len(records))
	for _, rec := range records {
		if kind != "" && rec.RecordKind != string(kind) {
			continue
		}
		if program != "" && rec.Program != program {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func toListItem(rec lode.Record) ListItem {
	return ListItem{
		Timestamp:    rec.Timestamp,
		Kind:         rec.RecordKind,
		InvocationID: rec.InvocationID,
		Program:      rec.Program,
		Version:      rec.Version,
		VersionHash:  rec.VersionHash,
		BuildDate:    rec.BuildDate,
		DurationMs:   rec.DurationMs,
		ExitCode:     rec.ExitCode,
		Errors:       rec.Errors,
	}
}

// Verify StoreReader implements Reader.
var _ Reader = (*StoreReader)(nil)
