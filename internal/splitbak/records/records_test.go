package records

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/multipart"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trickleWriter accepts at most max bytes per call and never reports an error,
// mimicking a part boundary on every write.
type trickleWriter struct {
	buf bytes.Buffer
	max int
}

func (w *trickleWriter) Write(p []byte) (int, error) {
	if len(p) > w.max {
		p = p[:w.max]
	}
	return w.buf.Write(p)
}

// stuckWriter never accepts anything.
type stuckWriter struct{}

func (stuckWriter) Write(p []byte) (int, error) { return 0, nil }

func frame(payload []byte) []byte {
	out := make([]byte, 4, 4+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

func TestRecordRoundTrip(t *testing.T) {
	ops := []types.Operation{
		types.EnterDirectory{Name: "root"},
		types.CreateFile{Name: "a.txt", Size: 5},
		types.CreateFile{Name: "empty", Size: 0},
		types.EnterDirectory{Name: "sub dir with spaces ✓"},
		types.CreateFile{Name: "big.bin", Size: 1 << 40},
		types.LeaveDirectory{},
		types.LeaveDirectory{},
	}

	var plain bytes.Buffer
	trickle := &trickleWriter{max: 1}
	testCases := []struct {
		name string
		w    io.Writer
		out  func() []byte
	}{
		{name: "in-memory buffer", w: &plain, out: plain.Bytes},
		{name: "one byte per write", w: trickle, out: trickle.buf.Bytes},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := NewWriter(tc.w)
			for _, op := range ops {
				require.NoError(t, w.WriteRecord(op))
			}

			r := NewReader(bytes.NewReader(tc.out()))
			for _, want := range ops {
				got, err := r.ReadRecord()
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			_, err := r.ReadRecord()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestRecordsAndSpansShareCursor(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteRecord(types.CreateFile{Name: "a.txt", Size: 5}))
	require.NoError(t, w.WriteSpan([]byte("hel")))
	require.NoError(t, w.WriteSpan([]byte("lo")))
	require.NoError(t, w.WriteRecord(types.LeaveDirectory{}))

	r := NewReader(&buf)
	op, err := r.ReadRecord()
	require.NoError(t, err)
	create, ok := op.(types.CreateFile)
	require.True(t, ok, "expected CreateFile, got %v", op)

	// Read the span back in pieces that do not match the written pieces.
	var content []byte
	for _, n := range []int{1, 4} {
		p := make([]byte, n)
		require.NoError(t, r.ReadSpan(p))
		content = append(content, p...)
	}
	assert.Equal(t, "hello", string(content))
	assert.Equal(t, uint64(len(content)), create.Size)

	op, err = r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, types.LeaveDirectory{}, op)
}

func TestRecordsStraddleParts(t *testing.T) {
	for _, maxSize := range []int64{1, 2, 3, 5, 1 << 20} {
		dir := filepath.Join(t.TempDir(), "parts")
		mw, err := multipart.NewWriter(dir, maxSize)
		require.NoError(t, err)

		w := NewWriter(mw)
		require.NoError(t, w.WriteRecord(types.EnterDirectory{Name: "root"}))
		require.NoError(t, w.WriteRecord(types.CreateFile{Name: "a.txt", Size: 5}))
		require.NoError(t, w.WriteSpan([]byte("hello")))
		require.NoError(t, w.WriteRecord(types.LeaveDirectory{}))
		require.NoError(t, mw.Close())

		mr := multipart.NewReader(dir)
		r := NewReader(mr)
		op, err := r.ReadRecord()
		require.NoError(t, err, "max size %d", maxSize)
		assert.Equal(t, types.EnterDirectory{Name: "root"}, op)
		op, err = r.ReadRecord()
		require.NoError(t, err, "max size %d", maxSize)
		assert.Equal(t, types.CreateFile{Name: "a.txt", Size: 5}, op)
		span := make([]byte, 5)
		require.NoError(t, r.ReadSpan(span))
		assert.Equal(t, "hello", string(span))
		op, err = r.ReadRecord()
		require.NoError(t, err)
		assert.Equal(t, types.LeaveDirectory{}, op)
		_, err = r.ReadRecord()
		assert.Equal(t, io.EOF, err, "max size %d", maxSize)
		require.NoError(t, mr.Close())
	}
}

func TestWriterNoProgress(t *testing.T) {
	err := NewWriter(stuckWriter{}).WriteSpan([]byte("x"))
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestWriterRejectsInvalidNames(t *testing.T) {
	for _, op := range []types.Operation{
		types.EnterDirectory{Name: ""},
		types.EnterDirectory{Name: ".."},
		types.CreateFile{Name: "a/b", Size: 1},
		types.CreateFile{Name: "nul\x00byte"},
	} {
		var buf bytes.Buffer
		err := NewWriter(&buf).WriteRecord(op)
		assert.Error(t, err, "%v", op)
		assert.Zero(t, buf.Len(), "nothing should be written for %v", op)
	}
}

func TestReadRecordTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteRecord(types.CreateFile{Name: "a.txt", Size: 5}))
	full := buf.Bytes()

	t.Run("partial length prefix", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(full[:2])).ReadRecord()
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("partial payload", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(full[:len(full)-1])).ReadRecord()
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("prefix only", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(full[:4])).ReadRecord()
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("short span", func(t *testing.T) {
		r := NewReader(bytes.NewReader([]byte("abc")))
		err := r.ReadSpan(make([]byte, 5))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("empty stream is a clean end", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(nil)).ReadRecord()
		assert.Equal(t, io.EOF, err)
	})
}

func TestReadRecordMalformed(t *testing.T) {
	encode := func(v any) []byte {
		payload, err := cbor.Marshal(v)
		require.NoError(t, err)
		return payload
	}

	testCases := []struct {
		name    string
		payload []byte
	}{
		{name: "empty payload", payload: []byte{}},
		{name: "not CBOR", payload: []byte{0xff, 0xfe, 0xfd}},
		{name: "not a map", payload: encode(42)},
		{name: "unknown kind", payload: encode(map[int]any{1: 9, 2: "x"})},
		{name: "missing kind", payload: encode(map[int]any{2: "x"})},
		{name: "unknown field", payload: encode(map[int]any{1: 2, 7: "extra"})},
		{name: "leave with name", payload: encode(map[int]any{1: 2, 2: "x"})},
		{name: "enter with size", payload: encode(map[int]any{1: 1, 2: "x", 3: 4})},
		{name: "parent directory name", payload: encode(map[int]any{1: 1, 2: ".."})},
		{name: "name with separator", payload: encode(map[int]any{1: 3, 2: "../../etc/passwd", 3: 1})},
		{name: "trailing bytes", payload: append(encode(map[int]any{1: 2}), 0x00)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(frame(tc.payload))).ReadRecord()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord), "got %v", err)
			assert.False(t, errors.Is(err, ErrTruncated))
		})
	}

	t.Run("oversized length prefix", func(t *testing.T) {
		var prefix [4]byte
		binary.LittleEndian.PutUint32(prefix[:], MaxRecordSize+1)
		_, err := NewReader(bytes.NewReader(prefix[:])).ReadRecord()
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})
}

func TestEncodeIsDeterministic(t *testing.T) {
	op := types.CreateFile{Name: "a.txt", Size: 5}
	first, err := EncodeOperation(op)
	require.NoError(t, err)
	second, err := EncodeOperation(op)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	decoded, err := DecodeOperation(first)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}
