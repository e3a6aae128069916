package reader

import (
	"context"

	"github.com/pithecene-io/toolproxy/lode"
)

// Reader abstracts read-only telemetry access for CLI commands.
// Implementations must not mutate the store.
type Reader interface {
	// List returns records matching opts, oldest first.
	List(ctx context.Context, opts ListOptions) ([]ListItem, error)

	// Analyze summarizes every run and version probe in the store.
	Analyze(ctx context.Context, program string) (*AnalyzeResponse, error)

	// Records returns every stored record, oldest first.
	Records(ctx context.Context) ([]lode.Record, error)

	// Close releases the underlying store.
	Close() error
}
