package compositor

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/entrhq/pageview/pkg/geom"
)

// Trace frame constants.
const (
	TraceHeaderSize = 8
	TraceMagic      = 0x5043 // ASCII 'PC'
	TraceVersion    = 1

	recordCommit = 1
)

// Errors returned when reading a trace.
var (
	ErrTraceBadMagic  = errors.New("compositor: invalid magic bytes in trace frame")
	ErrTraceTruncated = errors.New("compositor: trace ends inside a frame")
)

// TraceRecord is one commit as recorded in a trace.
type TraceRecord struct {
	Sequence          uint64    `cbor:"seq" json:"seq"`
	ID                string    `cbor:"id" json:"id"`
	UnixNano          int64     `cbor:"t" json:"t"`
	Scale             float64   `cbor:"scale" json:"scale"`
	LayoutRect        geom.Rect `cbor:"layout" json:"layout"`
	DocumentRect      geom.Rect `cbor:"document" json:"document"`
	DrawsRootLayer    bool      `cbor:"root" json:"root"`
	Layers            []Layer   `cbor:"layers" json:"layers"`
	StartedAnimations bool      `cbor:"anim" json:"anim"`
}

// TraceWriter appends commit records to a stream.
//
// Each record is a frame:
//
//	[0:2]  magic   (big-endian uint16, 0x5043)
//	[2]    version (uint8, 1)
//	[3]    type    (uint8, 1 = commit)
//	[4:8]  length  (little-endian uint32, payload bytes)
//
// followed by the CBOR encoded TraceRecord.
type TraceWriter struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	records int
}

// NewTraceWriter writes records to w.
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{w: w}
}

// CreateTraceFile creates or truncates path and writes records to it.
func CreateTraceFile(path string) (*TraceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("compositor: create trace: %w", err)
	}
	return &TraceWriter{w: f, closer: f}, nil
}

// Write appends rec.
func (t *TraceWriter) Write(rec TraceRecord) error {
	payload, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cbor encode: %w", err)
	}

	frame := make([]byte, TraceHeaderSize+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], TraceMagic)
	frame[2] = TraceVersion
	frame[3] = recordCommit
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[TraceHeaderSize:], payload)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(frame); err != nil {
		return fmt.Errorf("compositor: write trace: %w", err)
	}
	t.records++
	return nil
}

// Records returns the number of records written.
func (t *TraceWriter) Records() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records
}

// Close closes the underlying file when the writer owns one.
func (t *TraceWriter) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// ReadTrace decodes every record in r.
func ReadTrace(r io.Reader) ([]TraceRecord, error) {
	br := bufio.NewReader(r)
	header := make([]byte, TraceHeaderSize)

	var records []TraceRecord
	for {
		n, err := io.ReadFull(br, header)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			if n > 0 {
				return records, ErrTraceTruncated
			}
			return records, err
		}
		if binary.BigEndian.Uint16(header[0:2]) != TraceMagic {
			return records, ErrTraceBadMagic
		}
		if header[2] != TraceVersion {
			return records, fmt.Errorf("compositor: unsupported trace version %d", header[2])
		}

		payload := make([]byte, binary.LittleEndian.Uint32(header[4:8]))
		if _, err := io.ReadFull(br, payload); err != nil {
			return records, ErrTraceTruncated
		}
		if header[3] != recordCommit {
			continue
		}

		var rec TraceRecord
		if err := cbor.Unmarshal(payload, &rec); err != nil {
			return records, fmt.Errorf("cbor unmarshal: %w", err)
		}
		records = append(records, rec)
	}
}

// ReadTraceFile decodes the trace at path.
func ReadTraceFile(path string) ([]TraceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compositor: open trace: %w", err)
	}
	defer f.Close()
	return ReadTrace(f)
}
