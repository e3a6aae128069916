package lode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// DatasetID prefixes every Lode dataset that holds telemetry records.
const DatasetID = "telemetry"

// LodeStore is a Lode-backed implementation of Store.
// Uses Lode's HiveLayout with partition keys: record_kind/day.
//
// Each invocation writes into its own dataset, named by day and invocation
// id. Lode resolves the parent snapshot by listing the dataset being
// written, so appends only ever scan the current invocation's records.
type LodeStore struct {
	store lode.Store
	path  string

	mu       sync.Mutex // serializes writes from one process
	datasets map[lode.DatasetID]lode.Dataset
}

// NewLodeStore creates a store with filesystem storage rooted at dir,
// creating dir if needed.
func NewLodeStore(dir string) (*LodeStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, WrapInitError(fmt.Errorf("creating telemetry directory: %w", err), dir)
	}
	return NewLodeStoreWithFactory(lode.NewFSFactory(dir), dir)
}

// NewLodeStoreWithFactory creates a store with a custom store factory.
// Use lode.NewMemoryFactory() for testing. path is only used in errors.
func NewLodeStoreWithFactory(factory lode.StoreFactory, path string) (*LodeStore, error) {
	if factory == nil {
		return nil, WrapInitError(errors.New("store factory is required"), path)
	}
	st, err := factory()
	if err != nil {
		return nil, WrapInitError(err, path)
	}
	if st == nil {
		return nil, WrapInitError(errors.New("store factory returned nil store"), path)
	}
	return &LodeStore{
		store:    st,
		path:     path,
		datasets: make(map[lode.DatasetID]lode.Dataset),
	}, nil
}

// datasetFor names the dataset a record is written to.
func datasetFor(r Record) lode.DatasetID {
	if r.InvocationID == "" {
		return lode.DatasetID(DatasetID + "-" + r.Day)
	}
	return lode.DatasetID(DatasetID + "-" + r.Day + "-" + r.InvocationID)
}

// isTelemetryDataset reports whether id was written by this store.
// The bare "telemetry" id is the single-dataset layout of older stores.
func isTelemetryDataset(id lode.DatasetID) bool {
	return id == DatasetID || strings.HasPrefix(string(id), DatasetID+"-")
}

// dataset returns the cached handle for id. Callers hold s.mu.
func (s *LodeStore) dataset(id lode.DatasetID) (lode.Dataset, error) {
	if ds, ok := s.datasets[id]; ok {
		return ds, nil
	}
	st := s.store
	ds, err := lode.NewDataset(
		id,
		func() (lode.Store, error) { return st, nil },
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, err
	}
	s.datasets[id] = ds
	return ds, nil
}

// Append implements Store.
func (s *LodeStore) Append(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.dataset(datasetFor(record))
	if err != nil {
		return WrapInitError(err, s.path)
	}
	_, err = ds.Write(ctx, []any{record.toMap()}, lode.Metadata{})
	return WrapWriteError(err, s.path)
}

// Records implements Store.
//
// Every telemetry dataset is read, snapshots oldest first. A record that
// shows up in more than one snapshot is returned once.
func (s *LodeStore) Records(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store
	reader, err := lode.NewDatasetReader(
		func() (lode.Store, error) { return st, nil },
		lode.WithHiveLayout(partitionKeys...),
	)
	if err != nil {
		return nil, WrapReadError(err, s.path)
	}
	ids, err := reader.ListDatasets(ctx, lode.DatasetListOptions{})
	if err != nil && !errors.Is(err, lode.ErrNoManifests) {
		return nil, WrapReadError(err, s.path)
	}

	seen := make(map[string]struct{})
	var records []Record
	for _, id := range ids {
		if !isTelemetryDataset(id) {
			continue
		}
		ds, err := s.dataset(id)
		if err != nil {
			return nil, WrapReadError(err, s.path)
		}
		snapshots, err := ds.Snapshots(ctx)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/%s", s.path, id))
		}
		for _, snap := range snapshots {
			data, err := ds.Read(ctx, snap.ID)
			if err != nil {
				return nil, WrapReadError(err, fmt.Sprintf("%s/%s/snapshot/%s", s.path, id, snap.ID))
			}
			for _, item := range data {
				r, err := recordFromAny(item)
				if err != nil {
					continue
				}
				key := r.RecordKind + "|" + r.InvocationID + "|" + r.Timestamp
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				records = append(records, r)
			}
		}
	}

	sortRecords(records)
	return records, nil
}

// Close releases store resources.
func (s *LodeStore) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeStore implements Store.
var _ Store = (*LodeStore)(nil)
