package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("rustc", "fs", "inv-001")

	c.IncInstrumentedRun()
	c.IncSpawnFailure()
	c.IncLinesScanned()
	c.IncLinesScanned()
	c.IncLinesScanned()
	c.AddErrorCodes(2)
	c.AddErrorCodes(0)
	c.IncVersionProbe()
	c.IncTelemetryWriteSuccess()
	c.IncTelemetryWriteFailure()
	c.IncTelemetryWriteFailure()
	c.IncForwardSuccess()
	c.IncForwardFailure()

	s := c.Snapshot()

	if s.InstrumentRun != 1 {
		t.Errorf("InstrumentRun = %d, want 1", s.InstrumentRun)
	}
	if s.Passthrough != 0 || s.VersionQuery != 0 {
		t.Errorf("unexpected dispatch counters: %+v", s)
	}
	if s.SpawnFailures != 1 {
		t.Errorf("SpawnFailures = %d, want 1", s.SpawnFailures)
	}
	if s.LinesScanned != 3 {
		t.Errorf("LinesScanned = %d, want 3", s.LinesScanned)
	}
	if s.ErrorCodesMatched != 2 {
		t.Errorf("ErrorCodesMatched = %d, want 2", s.ErrorCodesMatched)
	}
	if s.VersionProbesFound != 1 {
		t.Errorf("VersionProbesFound = %d, want 1", s.VersionProbesFound)
	}
	if s.TelemetryWriteSuccess != 1 {
		t.Errorf("TelemetryWriteSuccess = %d, want 1", s.TelemetryWriteSuccess)
	}
	if s.TelemetryWriteFailure != 2 {
		t.Errorf("TelemetryWriteFailure = %d, want 2", s.TelemetryWriteFailure)
	}
	if s.ForwardSuccess != 1 || s.ForwardFailure != 1 {
		t.Errorf("forward counters = %d/%d, want 1/1", s.ForwardSuccess, s.ForwardFailure)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("rustc", "sqlite", "inv-42")
	s := c.Snapshot()

	if s.Program != "rustc" {
		t.Errorf("Program = %q, want %q", s.Program, "rustc")
	}
	if s.StorageBackend != "sqlite" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "sqlite")
	}
	if s.InvocationID != "inv-42" {
		t.Errorf("InvocationID = %q, want %q", s.InvocationID, "inv-42")
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.IncPassthrough()
	c.IncVersionQuery()
	c.IncInstrumentedRun()
	c.IncSpawnFailure()
	c.IncLinesScanned()
	c.AddErrorCodes(3)
	c.IncVersionProbe()
	c.IncTelemetryWriteSuccess()
	c.IncTelemetryWriteFailure()
	c.IncForwardSuccess()
	c.IncForwardFailure()

	if s := c.Snapshot(); s.LinesScanned != 0 {
		t.Errorf("nil collector snapshot should be zero, got %+v", s)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("rustc", "fs", "")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncLinesScanned()
			c.AddErrorCodes(2)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.LinesScanned != 50 {
		t.Errorf("LinesScanned = %d, want 50", s.LinesScanned)
	}
	if s.ErrorCodesMatched != 100 {
		t.Errorf("ErrorCodesMatched = %d, want 100", s.ErrorCodesMatched)
	}
}

func TestSnapshot_Fields(t *testing.T) {
	c := NewCollector("rustc", "fs", "inv-1")
	c.IncPassthrough()

	f := c.Snapshot().Fields()
	if f["passthrough"] != int64(1) {
		t.Errorf("passthrough = %v, want 1", f["passthrough"])
	}
	if f["storage_backend"] != "fs" {
		t.Errorf("storage_backend = %v", f["storage_backend"])
	}
}
