package compositor

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pageview/pkg/geom"
)

func sampleRecord(seq uint64) TraceRecord {
	return TraceRecord{
		Sequence:     seq,
		ID:           "commit",
		UnixNano:     1700000000000000000,
		Scale:        2.25,
		LayoutRect:   geom.R(0, 120, 320, 480),
		DocumentRect: geom.R(0, 0, 980, 4000),
		Layers:       []Layer{{ID: "video", Bounds: geom.R(10, 10, 300, 200), Animations: 1}},
	}
}

func TestTraceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriter(&buf)
	require.NoError(t, w.Write(sampleRecord(1)))
	require.NoError(t, w.Write(sampleRecord(2)))

	records, err := ReadTrace(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, sampleRecord(1), records[0])
	assert.Equal(t, uint64(2), records[1].Sequence)
}

func TestReadTraceEmpty(t *testing.T) {
	records, err := ReadTrace(bytes.NewReader(nil))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadTraceErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTraceWriter(&buf).Write(sampleRecord(1)))
	frame := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[0] = 'X'
		_, err := ReadTrace(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrTraceBadMagic)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := ReadTrace(bytes.NewReader(frame[:3]))
		assert.ErrorIs(t, err, ErrTraceTruncated)
	})

	t.Run("truncated payload", func(t *testing.T) {
		records, err := ReadTrace(bytes.NewReader(append(append([]byte(nil), frame...), frame[:len(frame)-2]...)))
		assert.ErrorIs(t, err, ErrTraceTruncated)
		assert.Len(t, records, 1)
	})

	t.Run("unknown version", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[2] = 9
		_, err := ReadTrace(bytes.NewReader(bad))
		assert.Error(t, err)
	})
}

func TestReadTraceSkipsUnknownRecords(t *testing.T) {
	other := make([]byte, TraceHeaderSize+2)
	binary.BigEndian.PutUint16(other[0:2], TraceMagic)
	other[2] = TraceVersion
	other[3] = 7
	binary.LittleEndian.PutUint32(other[4:8], 2)

	var buf bytes.Buffer
	buf.Write(other)
	require.NoError(t, NewTraceWriter(&buf).Write(sampleRecord(1)))

	records, err := ReadTrace(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commits.cbor")

	w, err := CreateTraceFile(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecord(1)))
	require.NoError(t, w.Close())

	records, err := ReadTraceFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = ReadTraceFile(filepath.Join(t.TempDir(), "missing.cbor"))
	assert.Error(t, err)
}
