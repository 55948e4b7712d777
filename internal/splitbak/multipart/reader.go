package multipart

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"go.uber.org/zap"
)

// ErrNoParts is returned when the archive directory has no part 0.
var ErrNoParts = fmt.Errorf("multipart: no part files found: %w", fs.ErrNotExist)

// Reader reads the concatenation of the part files in a directory. It implements
// io.Reader: once the last part is exhausted and the next numbered part does
// not exist, Read returns io.EOF.
type Reader struct {
	dir string
	log *zap.Logger

	part   int
	file   *os.File
	eof    bool
	closed bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithReaderLogger sets the logger used to report part switches.
func WithReaderLogger(log *zap.Logger) ReaderOption {
	return func(r *Reader) {
		r.log = log
	}
}

// NewReader returns a Reader over the parts in dir. Part 0 is opened on the
// first Read.
func NewReader(dir string, opts ...ReaderOption) *Reader {
	r := &Reader{
		dir: dir,
		log: zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Read reads from the current part and moves on to the next part whenever the
// current one is exhausted.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if r.eof {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if r.file == nil {
		if err := r.openPart(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return 0, ErrNoParts
			}
			return 0, err
		}
	}

	for {
		n, err := r.file.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		// The current part is exhausted; see if the next one exists.
		next := lib.PartPath(r.dir, r.part+1)
		if _, err := os.Stat(next); err != nil {
			if os.IsNotExist(err) {
				r.eof = true
				return 0, io.EOF
			}
			return 0, err
		}
		if err := r.file.Close(); err != nil {
			return 0, err
		}
		r.file = nil
		r.part++
		if err := r.openPart(); err != nil {
			return 0, err
		}
	}
}

func (r *Reader) openPart() error {
	path := lib.PartPath(r.dir, r.part)
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	r.file = file
	r.log.Debug("reading from part", zap.Int("part", r.part), zap.String("path", path))
	return nil
}

// Part returns the number of the part currently being read.
func (r *Reader) Part() int {
	return r.part
}

// Close closes the current part. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
