// Package notify carries non-fatal conditions from the telemetry side channel
// to whoever wants to hear about them. Handlers are fire-and-forget: nothing
// they do can change the outcome of a proxied run.
package notify

import (
	"fmt"

	"github.com/pithecene-io/toolproxy/log"
)

// Notification is a closed set of reportable conditions.
type Notification interface {
	// Message is a one-line human readable description.
	Message() string

	notification()
}

// TelemetryWriteError reports that an event could not be stored.
type TelemetryWriteError struct {
	// Op is the failing step: "open" or "append".
	Op  string
	Err error
}

// Message implements Notification.
func (n TelemetryWriteError) Message() string {
	return fmt.Sprintf("could not %s telemetry store: %v", n.Op, n.Err)
}

func (n TelemetryWriteError) Error() string { return n.Message() }

// Unwrap returns the underlying storage error.
func (n TelemetryWriteError) Unwrap() error { return n.Err }

func (TelemetryWriteError) notification() {}

// TelemetryForwardError reports that a stored event could not be forwarded
// to the configured downstream adapter.
type TelemetryForwardError struct {
	Adapter string
	Err     error
}

// Message implements Notification.
func (n TelemetryForwardError) Message() string {
	return fmt.Sprintf("could not forward telemetry via %s: %v", n.Adapter, n.Err)
}

func (n TelemetryForwardError) Error() string { return n.Message() }

// Unwrap returns the underlying adapter error.
func (n TelemetryForwardError) Unwrap() error { return n.Err }

func (TelemetryForwardError) notification() {}

// Handler receives notifications.
type Handler interface {
	Notify(n Notification)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(n Notification)

// Notify implements Handler.
func (f HandlerFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Handler = HandlerFunc(func(Notification) {})

// LogHandler writes notifications as warnings.
type LogHandler struct {
	logger *log.Logger
}

// NewLogHandler creates a handler that logs through logger.
func NewLogHandler(logger *log.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// Notify implements Handler.
func (h *LogHandler) Notify(n Notification) {
	fields := map[string]any{}
	switch n := n.(type) {
	case TelemetryWriteError:
		fields["op"] = n.Op
		fields["error"] = fmt.Sprint(n.Err)
	case TelemetryForwardError:
		fields["adapter"] = n.Adapter
		fields["error"] = fmt.Sprint(n.Err)
	}
	h.logger.Warn(n.Message(), fields)
}

var (
	_ Notification = TelemetryWriteError{}
	_ Notification = TelemetryForwardError{}
	_ Handler      = (*LogHandler)(nil)
)
