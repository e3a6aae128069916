// Package export writes and reads telemetry as a stream of length-prefixed
// msgpack frames.
//
// A stream is one header frame followed by one frame per record. Each frame
// is a 4-byte big-endian payload length and a msgpack payload.
package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/toolproxy/lode"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// HeaderKind is the record_kind discriminant of the header frame.
const HeaderKind = "export_header"

// FormatVersion is bumped when the frame layout changes.
const FormatVersion = 1

// Header opens every export stream.
type Header struct {
	RecordKind    string `msgpack:"record_kind"` // always "export_header"
	FormatVersion int    `msgpack:"format_version"`
	RecordVersion string `msgpack:"record_version"`
	ExportedAt    string `msgpack:"exported_at"`
	Count         int    `msgpack:"count"`
}

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the stream cannot be read further.
// Partial and oversized frames lose framing; a bad payload does not.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameEncoder writes length-prefixed msgpack frames.
type FrameEncoder struct {
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteFrame writes one raw payload with its length prefix.
func (e *FrameEncoder) WriteFrame(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload))) //nolint:gosec // bounded by MaxPayloadSize
	if _, err := e.writer.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := e.writer.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// WriteHeader writes the header frame.
func (e *FrameEncoder) WriteHeader(h Header) error {
	h.RecordKind = HeaderKind
	return e.writeValue(h)
}

// WriteRecord writes one record frame.
func (e *FrameEncoder) WriteRecord(r lode.Record) error {
	return e.writeValue(r)
}

func (e *FrameEncoder) writeValue(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return e.WriteFrame(payload)
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame from the stream and returns its payload.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// ReadValue reads and decodes the next frame. It returns either a *Header
// or a *lode.Record.
func (d *FrameDecoder) ReadValue() (any, error) {
	payload, err := d.ReadFrame()
	if err != nil {
		return nil, err
	}
	return DecodeFrame(payload)
}

// frameKindProbe is used to peek at the kind field without full decode.
type frameKindProbe struct {
	RecordKind string `msgpack:"record_kind"`
}

// DecodeFrame decodes a payload as a *Header or a *lode.Record, based on
// its record_kind.
func DecodeFrame(payload []byte) (any, error) {
	var probe frameKindProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode frame kind",
			Err:  err,
		}
	}

	if probe.RecordKind == HeaderKind {
		var h Header
		if err := msgpack.Unmarshal(payload, &h); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode header", Err: err}
		}
		return &h, nil
	}

	var r lode.Record
	if err := msgpack.Unmarshal(payload, &r); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode record", Err: err}
	}
	return &r, nil
}
