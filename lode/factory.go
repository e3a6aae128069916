package lode

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// Backend names a storage backend.
type Backend string

// Supported backends.
const (
	BackendFS     Backend = "fs"
	BackendS3     Backend = "s3"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// ParseBackend parses a backend name. Empty selects BackendFS.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "":
		return BackendFS, nil
	case BackendFS, BackendS3, BackendSQLite, BackendMemory:
		return Backend(s), nil
	default:
		return "", fmt.Errorf("invalid telemetry backend: %q (must be fs, s3, sqlite, or memory)", s)
	}
}

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Backend Backend
	// Dir is the telemetry base directory (fs and sqlite).
	Dir string
	// S3 configures the s3 backend.
	S3 S3Config
}

// Open creates the store described by cfg.
func Open(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case BackendFS, "":
		if cfg.Dir == "" {
			return nil, errors.New("telemetry directory is required for fs backend")
		}
		return NewLodeStore(cfg.Dir)
	case BackendSQLite:
		if cfg.Dir == "" {
			return nil, errors.New("telemetry directory is required for sqlite backend")
		}
		return NewSQLiteStore(cfg.Dir)
	case BackendS3:
		return NewLodeS3Store(ctx, cfg.S3)
	case BackendMemory:
		return NewLodeStoreWithFactory(lode.NewMemoryFactory(), "memory")
	default:
		return nil, fmt.Errorf("unknown telemetry backend: %q", cfg.Backend)
	}
}
