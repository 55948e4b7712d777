// Package storage linearizes a directory tree into Operation records and
// replays such a stream back onto disk.
package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/records"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
	"go.uber.org/zap"
)

// DefaultChunkSize is the largest span read from a source file or written to
// a restored file in one call.
const DefaultChunkSize = 1024 * 1024

// MaxChunkSize bounds the copy buffer allocated for a run.
const MaxChunkSize = 64 * 1024 * 1024

// checkChunkSize rejects buffer sizes outside [1, MaxChunkSize].
func checkChunkSize(size int) error {
	if size < 1 || size > MaxChunkSize {
		return fmt.Errorf("chunk size %d out of range (1 to %d bytes)", size, MaxChunkSize)
	}
	return nil
}

// Stats summarizes a backup or restore run.
type Stats struct {
	Directories int
	Files       int
	Bytes       uint64
	Skipped     int
}

// dirScope is one open directory on the archiver's explicit stack.
type dirScope struct {
	path    string
	entries []os.DirEntry
	next    int
}

// Archiver writes a directory tree to a records.Writer.
type Archiver struct {
	w         *records.Writer
	log       *zap.Logger
	chunkSize int
	ignore    *lib.IgnoreRules
	exclude   map[string]bool
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithArchiverLogger sets the logger.
func WithArchiverLogger(log *zap.Logger) ArchiverOption {
	return func(a *Archiver) {
		a.log = log
	}
}

// WithArchiverChunkSize sets the size of each content span. Values below 1
// are ignored; values above MaxChunkSize make Archive fail.
func WithArchiverChunkSize(size int) ArchiverOption {
	return func(a *Archiver) {
		if size > 0 {
			a.chunkSize = size
		}
	}
}

// WithIgnoreRules skips every path the rules ignore.
func WithIgnoreRules(rules *lib.IgnoreRules) ArchiverOption {
	return func(a *Archiver) {
		a.ignore = rules
	}
}

// WithExcludedPaths skips the given paths and everything below them. It is
// used to keep an archive directory nested in the origin out of its own backup.
func WithExcludedPaths(paths ...string) ArchiverOption {
	return func(a *Archiver) {
		for _, p := range paths {
			if abs, err := filepath.Abs(p); err == nil {
				a.exclude[abs] = true
			}
		}
	}
}

// NewArchiver returns an Archiver writing to w.
func NewArchiver(w *records.Writer, opts ...ArchiverOption) *Archiver {
	a := &Archiver{
		w:         w,
		log:       zap.NewNop(),
		chunkSize: DefaultChunkSize,
		exclude:   make(map[string]bool),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Archive writes root and everything below it. The stream starts with
// EnterDirectory for root's leaf name and ends with the matching
// LeaveDirectory. Any error aborts the whole run.
func (a *Archiver) Archive(root string) (Stats, error) {
	var stats Stats

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return stats, fmt.Errorf("could not resolve absolute path for %s: %w", root, err)
	}
	if err := lib.RequireDir(absRoot); err != nil {
		return stats, err
	}
	if err := checkChunkSize(a.chunkSize); err != nil {
		return stats, err
	}

	buf := make([]byte, a.chunkSize)

	var stack []dirScope
	enter := func(path string) error {
		name := filepath.Base(path)
		a.log.Debug("enter directory", zap.String("path", path))
		if err := a.w.WriteRecord(types.EnterDirectory{Name: name}); err != nil {
			return err
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		stack = append(stack, dirScope{path: path, entries: entries})
		stats.Directories++
		return nil
	}

	if err := enter(absRoot); err != nil {
		return stats, err
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.entries) {
			a.log.Debug("leave directory", zap.String("path", top.path))
			if err := a.w.WriteRecord(types.LeaveDirectory{}); err != nil {
				return stats, err
			}
			stack = stack[:len(stack)-1]
			continue
		}

		entry := top.entries[top.next]
		top.next++
		path := filepath.Join(top.path, entry.Name())

		if a.exclude[path] || a.ignore.Ignored(path) {
			a.log.Debug("skip ignored path", zap.String("path", path))
			stats.Skipped++
			continue
		}

		// Symlinks are followed to regular files only. A symlinked directory
		// could loop back into the tree.
		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			switch {
			case err != nil:
				a.log.Warn("skip broken symlink", zap.String("path", path), zap.Error(err))
				stats.Skipped++
				continue
			case info.IsDir():
				a.log.Warn("skip symlinked directory", zap.String("path", path))
				stats.Skipped++
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case entry.IsDir():
			// enter may grow the stack, so top must not be used after this.
			if err := enter(path); err != nil {
				return stats, err
			}
		case mode.IsRegular():
			size, err := a.archiveFile(path, buf)
			if err != nil {
				return stats, err
			}
			stats.Files++
			stats.Bytes += size
		default:
			a.log.Warn("skip non-regular file", zap.String("path", path), zap.Stringer("type", mode))
			stats.Skipped++
		}
	}

	return stats, nil
}

// archiveFile emits CreateFile for path followed by exactly the declared
// number of content bytes. A file that changes size while being read fails
// the backup rather than producing a stream that cannot be replayed.
func (a *Archiver) archiveFile(path string, buf []byte) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is no longer a regular file", path)
	}
	size := uint64(info.Size())

	a.log.Debug("create file", zap.String("path", path), zap.Uint64("size", size))
	if err := a.w.WriteRecord(types.CreateFile{Name: filepath.Base(path), Size: size}); err != nil {
		return 0, err
	}

	remaining := size
	for remaining > 0 {
		n := uint64(len(buf))
		if remaining < n {
			n = remaining
		}
		if _, err := io.ReadFull(file, buf[:n]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, fmt.Errorf("%s shrank while being backed up", path)
			}
			return 0, err
		}
		if err := a.w.WriteSpan(buf[:n]); err != nil {
			return 0, err
		}
		remaining -= n
	}

	// Anything past the declared size means the file grew underneath us.
	var extra [1]byte
	if n, err := file.Read(extra[:]); n > 0 {
		return 0, fmt.Errorf("%s grew while being backed up", path)
	} else if err != nil && err != io.EOF {
		return 0, err
	}

	return size, nil
}
