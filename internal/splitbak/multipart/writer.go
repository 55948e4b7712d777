// Package multipart presents an unbounded byte stream backed by a sequence of
// numbered, size-capped part files (0, 1, 2, ...) in one directory.
package multipart

import (
	"errors"
	"fmt"
	"os"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"go.uber.org/zap"
)

// ErrClosed is returned by Write and Read after Close.
var ErrClosed = errors.New("multipart: use of closed stream")

// Writer splits a byte stream across part files of at most maxSize bytes.
//
// Write follows write(2) semantics rather than io.Writer's: it writes at most
// what fits in the current part and may return n < len(p) with a nil error.
// Callers must loop until everything is written.
type Writer struct {
	dir     string
	maxSize int64
	log     *zap.Logger

	part    int
	written int64
	file    *os.File
	created int
	closed  bool
	err     error // sticky rollover failure
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger used to report part rollovers.
func WithWriterLogger(log *zap.Logger) WriterOption {
	return func(w *Writer) {
		w.log = log
	}
}

// NewWriter returns a Writer producing parts in dir. Nothing touches the disk
// until the first byte is written.
func NewWriter(dir string, maxSize int64, opts ...WriterOption) (*Writer, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("multipart: max part size must be at least 1 byte, got %d", maxSize)
	}
	w := &Writer{
		dir:     dir,
		maxSize: maxSize,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Write writes min(len(p), space left in the current part) bytes. When the
// current part is full it first rolls over to the next part.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.err != nil {
		return 0, w.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if w.file == nil {
		if err := w.openPart(); err != nil {
			return 0, err
		}
	}

	remaining := w.maxSize - w.written
	if remaining == 0 {
		err := w.file.Close()
		w.file = nil
		if err != nil {
			w.err = fmt.Errorf("multipart: closing part %d: %w", w.part, err)
			return 0, w.err
		}
		w.part++
		w.written = 0
		if err := w.openPart(); err != nil {
			return 0, err
		}
		remaining = w.maxSize
	}

	size := len(p)
	if int64(size) > remaining {
		size = int(remaining)
	}
	n, err := w.file.Write(p[:size])
	w.written += int64(n)
	return n, err
}

// openPart creates (or truncates) the file for the current part number.
func (w *Writer) openPart() error {
	if w.part == 0 {
		if err := lib.EnsureDir(w.dir); err != nil {
			return err
		}
	}
	path := lib.PartPath(w.dir, w.part)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, lib.FilePerm)
	if err != nil {
		return err
	}
	w.file = file
	w.created++
	w.log.Debug("writing to part", zap.Int("part", w.part), zap.String("path", path))
	return nil
}

// Parts returns the number of part files created so far.
func (w *Writer) Parts() int {
	return w.created
}

// Close syncs and closes the current part. It is safe to call more than once.
// After a failed rollover it reports that failure.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return w.err
	}
	// Ensure the data is written to stable storage.
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
