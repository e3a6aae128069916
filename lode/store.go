// Package lode provides the append-only telemetry store.
//
// Records are keyed by timestamp and never rewritten. Four backends exist:
// a Lode dataset on the local filesystem (the default), a Lode dataset in
// memory (tests), a Lode dataset on S3, and a single SQLite table.
package lode

import (
	"context"
	"sort"
	"sync"
)

// Store persists telemetry records.
type Store interface {
	// Append adds one record to the log.
	Append(ctx context.Context, record Record) error

	// Records returns every stored record ordered by timestamp.
	Records(ctx context.Context) ([]Record, error)

	// Close releases store resources.
	Close() error
}

// sortRecords orders records by timestamp, keeping insertion order for ties.
func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, erri := records[i].Time()
		tj, errj := records[j].Time()
		if erri != nil || errj != nil {
			return records[i].Timestamp < records[j].Timestamp
		}
		return ti.Before(tj)
	})
}

// StubStore is a test store that keeps records in memory.
type StubStore struct {
	mu sync.Mutex

	// Appended holds every accepted record in call order.
	Appended []Record
	// Closed indicates whether Close was called.
	Closed bool

	// ErrorOnAppend, if non-nil, is returned by Append.
	ErrorOnAppend error
	// ErrorOnRecords, if non-nil, is returned by Records.
	ErrorOnRecords error
}

// NewStubStore creates a new stub store.
func NewStubStore() *StubStore {
	return &StubStore{}
}

// Append implements Store.
func (s *StubStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnAppend != nil {
		return s.ErrorOnAppend
	}
	s.Appended = append(s.Appended, record)
	return nil
}

// Records implements Store.
func (s *StubStore) Records(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnRecords != nil {
		return nil, s.ErrorOnRecords
	}
	out := append([]Record(nil), s.Appended...)
	sortRecords(out)
	return out, nil
}

// Close implements Store.
func (s *StubStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	return nil
}

// Verify StubStore implements Store.
var _ Store = (*StubStore)(nil)
