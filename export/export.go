package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/toolproxy/lode"
	"github.com/pithecene-io/toolproxy/types"
)

// ErrMissingHeader is returned when a stream does not start with a header.
var ErrMissingHeader = errors.New("export stream has no header frame")

// WriteAll writes a header followed by every record.
func WriteAll(w io.Writer, records []lode.Record, exportedAt time.Time) error {
	enc := NewFrameEncoder(w)
	err := enc.WriteHeader(Header{
		FormatVersion: FormatVersion,
		RecordVersion: types.RecordVersion,
		ExportedAt:    exportedAt.UTC().Format(time.RFC3339Nano),
		Count:         len(records),
	})
	if err != nil {
		return err
	}
	for i := range records {
		if err := enc.WriteRecord(records[i]); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// ReadAll reads a complete export stream. Frames whose payload cannot be
// decoded are skipped; framing errors stop the read.
func ReadAll(r io.Reader) (*Header, []lode.Record, error) {
	dec := NewFrameDecoder(r)

	first, err := dec.ReadValue()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrMissingHeader
		}
		return nil, nil, err
	}
	header, ok := first.(*Header)
	if !ok {
		return nil, nil, ErrMissingHeader
	}

	var records []lode.Record
	for {
		v, err := dec.ReadValue()
		if errors.Is(err, io.EOF) {
			return header, records, nil
		}
		if err != nil {
			if IsFatalFrameError(err) {
				return header, records, err
			}
			continue
		}
		if rec, ok := v.(*lode.Record); ok {
			records = append(records, *rec)
		}
	}
}
