// Package adapter forwards stored telemetry records to downstream systems.
//
// Forwarding runs inside the proxied invocation, after the record is
// stored and before the proxy exits, so adapters keep timeouts short and
// retry only a little. A failed forward never affects the run.
package adapter

import (
	"context"
	"encoding/json"

	"github.com/pithecene-io/toolproxy/lode"
)

// EventTypeTelemetryRecorded is the event type of every forwarded message.
const EventTypeTelemetryRecorded = "telemetry_recorded"

// TelemetryMessage is the payload published for one stored record.
// The record fields are inlined next to the envelope fields.
type TelemetryMessage struct {
	EventType string `json:"event_type"` // always "telemetry_recorded"
	// StoragePath is where the record was stored, if known.
	StoragePath string `json:"storage_path,omitempty"`

	lode.Record
}

// NewTelemetryMessage wraps a stored record for publishing.
func NewTelemetryMessage(record lode.Record, storagePath string) *TelemetryMessage {
	return &TelemetryMessage{
		EventType:   EventTypeTelemetryRecorded,
		StoragePath: storagePath,
		Record:      record,
	}
}

// Marshal encodes the message as JSON.
func (m *TelemetryMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Adapter publishes telemetry messages to a downstream system.
type Adapter interface {
	// Publish sends one message. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, msg *TelemetryMessage) error

	// Close releases adapter resources.
	Close() error
}
