package records

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
)

// ErrTruncated is returned when the stream ends in the middle of a record or
// before a declared span is complete.
var ErrTruncated = errors.New("truncated stream")

// Reader reads records and spans written by Writer. Both share one buffered
// cursor over the underlying reader.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader on top of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadRecord reads the next record. It returns io.EOF only when the stream
// ends exactly at a record boundary. A partial record yields ErrTruncated and
// an undecodable one ErrMalformedRecord; other I/O errors are returned as is.
func (r *Reader) ReadRecord() (types.Operation, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: incomplete record length", ErrTruncated)
		}
		return nil, err
	}

	size := binary.LittleEndian.Uint32(prefix[:])
	if size > MaxRecordSize {
		return nil, fmt.Errorf("%w: record length %d exceeds %d", ErrMalformedRecord, size, MaxRecordSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: record payload of %d bytes is incomplete", ErrTruncated, size)
		}
		return nil, err
	}

	return DecodeOperation(payload)
}

// ReadSpan fills p exactly from the stream.
func (r *Reader) ReadSpan(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: span wanted %d bytes, got %d", ErrTruncated, len(p), n)
		}
		return err
	}
	return nil
}
