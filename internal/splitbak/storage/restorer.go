package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/records"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
	"go.uber.org/zap"
)

// StructuralError reports a stream whose records decode fine but do not
// describe a well-formed tree: unbalanced scopes, records outside the root
// directory, or an empty archive.
type StructuralError struct {
	Op     types.Operation // nil when the problem is detected at end of stream
	Path   string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Op == nil {
		return fmt.Sprintf("structural error at %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("structural error at %s: %v: %s", e.Path, e.Op, e.Reason)
}

// Restorer replays an Operation stream onto disk below a destination
// directory. It is an explicit state machine: the current location is the
// destination joined with the stack of open scopes.
type Restorer struct {
	r         *records.Reader
	dest      string
	log       *zap.Logger
	chunkSize int

	scopes     []string
	records    int
	rootClosed bool
	prepared   bool
	buf        []byte
	stats      Stats
}

// RestorerOption configures a Restorer.
type RestorerOption func(*Restorer)

// WithRestorerLogger sets the logger.
func WithRestorerLogger(log *zap.Logger) RestorerOption {
	return func(r *Restorer) {
		r.log = log
	}
}

// WithRestorerChunkSize sets the size of each span read from the stream.
// Values below 1 are ignored; values above MaxChunkSize make Step fail.
func WithRestorerChunkSize(size int) RestorerOption {
	return func(r *Restorer) {
		if size > 0 {
			r.chunkSize = size
		}
	}
}

// NewRestorer returns a Restorer reading from r and writing below dest.
func NewRestorer(r *records.Reader, dest string, opts ...RestorerOption) *Restorer {
	rs := &Restorer{
		r:         r,
		dest:      dest,
		log:       zap.NewNop(),
		chunkSize: DefaultChunkSize,
	}
	for _, o := range opts {
		o(rs)
	}
	return rs
}

// CurrentPath returns the directory the next record applies to.
func (r *Restorer) CurrentPath() string {
	return filepath.Join(append([]string{r.dest}, r.scopes...)...)
}

// Depth returns the number of open directory scopes.
func (r *Restorer) Depth() int {
	return len(r.scopes)
}

// Stats returns what has been restored so far.
func (r *Restorer) Stats() Stats {
	return r.stats
}

// Run steps until the stream ends cleanly or an error occurs.
func (r *Restorer) Run() (Stats, error) {
	for {
		done, err := r.Step()
		if err != nil {
			return r.stats, err
		}
		if done {
			return r.stats, nil
		}
	}
}

// Step interprets one record. It returns done once the stream has ended at a
// record boundary with every scope closed.
func (r *Restorer) Step() (bool, error) {
	if !r.prepared {
		if err := checkChunkSize(r.chunkSize); err != nil {
			return false, err
		}
		if err := lib.EnsureDir(r.dest); err != nil {
			return false, err
		}
		r.prepared = true
	}

	op, err := r.r.ReadRecord()
	if err == io.EOF {
		switch {
		case r.records == 0:
			return false, &StructuralError{Path: r.dest, Reason: "archive contains no records"}
		case len(r.scopes) > 0:
			return false, &StructuralError{
				Path:   r.CurrentPath(),
				Reason: fmt.Sprintf("stream ended with %d unclosed directories", len(r.scopes)),
			}
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read record %d: %w", r.records+1, err)
	}
	r.records++

	if r.rootClosed {
		return false, &StructuralError{Op: op, Path: r.dest, Reason: "record after the root directory was closed"}
	}

	switch op := op.(type) {
	case types.EnterDirectory:
		path := filepath.Join(r.CurrentPath(), op.Name)
		r.log.Debug("enter directory", zap.String("path", path))
		if err := os.Mkdir(path, lib.DirPerm); err != nil {
			return false, err
		}
		r.scopes = append(r.scopes, op.Name)
		r.stats.Directories++

	case types.LeaveDirectory:
		if len(r.scopes) == 0 {
			return false, &StructuralError{Op: op, Path: r.dest, Reason: "no open directory to leave"}
		}
		r.log.Debug("leave directory", zap.String("path", r.CurrentPath()))
		r.scopes = r.scopes[:len(r.scopes)-1]
		if len(r.scopes) == 0 {
			r.rootClosed = true
		}

	case types.CreateFile:
		if len(r.scopes) == 0 {
			return false, &StructuralError{Op: op, Path: r.dest, Reason: "file outside of any directory"}
		}
		path := filepath.Join(r.CurrentPath(), op.Name)
		r.log.Debug("create file", zap.String("path", path), zap.Uint64("size", op.Size))
		if err := r.restoreFile(path, op.Size); err != nil {
			return false, err
		}
		r.stats.Files++
		r.stats.Bytes += op.Size

	default:
		return false, fmt.Errorf("unsupported operation %T", op)
	}

	return false, nil
}

// restoreFile creates path and copies exactly size bytes of span into it.
func (r *Restorer) restoreFile(path string, size uint64) error {
	file, err := lib.CreateExclusive(path)
	if err != nil {
		return err
	}

	if r.buf == nil {
		r.buf = make([]byte, r.chunkSize)
	}

	remaining := size
	for remaining > 0 {
		n := uint64(len(r.buf))
		if remaining < n {
			n = remaining
		}
		span := r.buf[:n]
		if err := r.r.ReadSpan(span); err != nil {
			file.Close()
			return fmt.Errorf("failed to restore %s: %w", path, err)
		}
		if _, err := file.Write(span); err != nil {
			file.Close()
			return err
		}
		remaining -= n
	}

	return file.Close()
}
