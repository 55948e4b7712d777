package records

import (
	"encoding/binary"
	"io"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
)

// Writer writes records and spans to an underlying writer. The underlying
// writer may return short writes without an error (as multipart.Writer does
// at part boundaries); Writer keeps writing until every byte is accepted.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord encodes op and writes its length prefix and payload.
func (w *Writer) WriteRecord(op types.Operation) error {
	payload, err := EncodeOperation(op)
	if err != nil {
		return err
	}

	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	if err := w.writeFull(prefix[:]); err != nil {
		return err
	}
	return w.writeFull(payload)
}

// WriteSpan writes p with no framing.
func (w *Writer) WriteSpan(p []byte) error {
	return w.writeFull(p)
}

func (w *Writer) writeFull(p []byte) error {
	for len(p) > 0 {
		n, err := w.w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
