// Package commands contains the command-line entry points for the splitbak application.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/multipart"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/records"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/storage"
	"go.uber.org/zap"
)

// BackupOptions configures a Backup run. Zero values fall back to defaults.
type BackupOptions struct {
	MaxPartSize  int64
	ChunkSize    int
	Report       bool
	ReportFormat string
	Hash         lib.HashAlgorithm
	// Force clears part files and reports left in the destination by an
	// earlier backup instead of refusing to run.
	Force  bool
	Logger *zap.Logger
	Out    io.Writer
}

func (o *BackupOptions) setDefaults() {
	if o.MaxPartSize == 0 {
		o.MaxPartSize = lib.DefaultMaxPartSize
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = storage.DefaultChunkSize
	}
	if o.ReportFormat == "" {
		o.ReportFormat = "json"
	}
	if o.Hash == "" {
		o.Hash = lib.DefaultHashAlgorithm
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
}

// Backup archives the origin directory into numbered part files in
// destination.
func Backup(origin, destination string, opts BackupOptions) error {
	opts.setDefaults()
	log := opts.Logger

	// 1. Resolve and validate paths.
	absOrigin, err := filepath.Abs(origin)
	if err != nil {
		return fmt.Errorf("could not resolve absolute path for %s: %w", origin, err)
	}
	absDest, err := filepath.Abs(destination)
	if err != nil {
		return fmt.Errorf("could not resolve absolute path for %s: %w", destination, err)
	}
	if err := lib.RequireDir(absOrigin); err != nil {
		return fmt.Errorf("invalid origin: %w", err)
	}
	if absDest == absOrigin || lib.CanonicalPath(absDest) == lib.CanonicalPath(absOrigin) {
		return fmt.Errorf("destination must differ from origin: %s", absDest)
	}
	if opts.Report {
		if _, err := lib.ParseReportFormat(opts.ReportFormat); err != nil {
			return err
		}
		if _, err := lib.ParseHashAlgorithm(string(opts.Hash)); err != nil {
			return err
		}
	}

	// 2. Never append to or interleave with an earlier archive.
	existing, err := lib.ListParts(absDest)
	if err != nil {
		return fmt.Errorf("failed to inspect destination: %w", err)
	}
	if len(existing) > 0 {
		if !opts.Force {
			return fmt.Errorf("destination %s already contains %d part file(s); use --force to overwrite", absDest, len(existing))
		}
		log.Info("clearing previous archive", zap.String("destination", absDest), zap.Int("parts", len(existing)))
		if err := lib.ClearArchiveDir(absDest); err != nil {
			return fmt.Errorf("failed to clear destination: %w", err)
		}
	}

	fmt.Fprintf(opts.Out, "📦 Starting backup of \"%s\" into \"%s\"...\n", absOrigin, absDest)

	// 3. Collect ignore rules and keep a nested destination out of its own backup.
	ignore, err := lib.LoadIgnoreRules(absOrigin)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", lib.IgnoreFilename, err)
	}
	archiverOpts := []storage.ArchiverOption{
		storage.WithArchiverLogger(log),
		storage.WithArchiverChunkSize(opts.ChunkSize),
		storage.WithIgnoreRules(ignore),
	}
	// The archiver walks paths below absOrigin, so the exclusion is expressed
	// there even when either side is reached through a symlink.
	if nested, ok := lib.NestedPath(absOrigin, absDest); ok {
		excluded := filepath.Join(absOrigin, nested)
		log.Debug("excluding nested destination", zap.String("path", excluded))
		archiverOpts = append(archiverOpts, storage.WithExcludedPaths(excluded))
	}

	// 4. Stream the tree into the part files.
	parts, err := multipart.NewWriter(absDest, opts.MaxPartSize, multipart.WithWriterLogger(log))
	if err != nil {
		return err
	}
	archiver := storage.NewArchiver(records.NewWriter(parts), archiverOpts...)

	log.Info("backup started",
		zap.String("origin", absOrigin),
		zap.String("destination", absDest),
		zap.Int64("max_part_size", opts.MaxPartSize))

	stats, err := archiver.Archive(absOrigin)
	if closeErr := parts.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close part file: %w", closeErr)
	}
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	log.Info("backup finished",
		zap.Int("parts", parts.Parts()),
		zap.Int("files", stats.Files),
		zap.Int("directories", stats.Directories),
		zap.Uint64("bytes", stats.Bytes))

	// 5. Optionally write the integrity report next to the parts.
	var reportPath string
	if opts.Report {
		report, err := lib.BuildReport(absOrigin, absDest, opts.Hash)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		// The report describes what was archived, so ignored files stay out of it.
		report.BackedUpFiles = filterIgnored(report.BackedUpFiles, absOrigin, ignore)
		reportPath, err = lib.WriteReport(report, absDest, opts.ReportFormat)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	fmt.Fprintln(opts.Out, "✅ Backup complete!")
	fmt.Fprintf(opts.Out, "   - Parts: %d (max %s each)\n", parts.Parts(), humanize.IBytes(uint64(opts.MaxPartSize)))
	fmt.Fprintf(opts.Out, "   - Directories: %d, Files: %d, Skipped: %d\n", stats.Directories, stats.Files, stats.Skipped)
	fmt.Fprintf(opts.Out, "   - Source size: %s\n", humanize.IBytes(stats.Bytes))
	if reportPath != "" {
		fmt.Fprintf(opts.Out, "   - Report: %s\n", reportPath)
	}
	return nil
}
