package lode

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/justapithecus/lode/lode"
)

// failingStore is a lode.Store whose Put always fails with putErr.
type failingStore struct {
	putErr   error
	putCalls int
}

func (s *failingStore) Put(_ context.Context, _ string, _ io.Reader) error {
	s.putCalls++
	return s.putErr
}

func (s *failingStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, nil
}

func (s *failingStore) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *failingStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (s *failingStore) Delete(_ context.Context, _ string) error {
	return nil
}

func (s *failingStore) ReadRange(_ context.Context, _ string, _, _ int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *failingStore) ReaderAt(_ context.Context, _ string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*failingStore)(nil)

func TestLodeStore_AppendFailureIsClassified(t *testing.T) {
	tests := []struct {
		name   string
		putErr error
		want   error
	}{
		{"disk full", errors.New("write /home/dev/.toolproxy/telemetry: no space left on device"), ErrDiskFull},
		{"permission denied", errors.New("open /home/dev/.toolproxy/telemetry: permission denied"), ErrPermissionDenied},
		{"throttled", errors.New("SlowDown: please reduce your request rate"), ErrThrottled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &failingStore{putErr: tt.putErr}
			s, err := NewLodeStoreWithFactory(sharedFactory(store), "/home/dev/.toolproxy/telemetry")
			if err != nil {
				t.Fatalf("NewLodeStoreWithFactory failed: %v", err)
			}

			err = s.Append(t.Context(), testRecords()[1])
			if err == nil {
				t.Fatal("expected Append error, got nil")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(err, %v) = false, err = %v", tt.want, err)
			}

			var storageErr *StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("expected *StorageError, got %T", err)
			}
			if storageErr.Op != "write" {
				t.Errorf("Op = %q, want write", storageErr.Op)
			}
			if store.putCalls == 0 {
				t.Error("expected a Put attempt")
			}
		})
	}
}
