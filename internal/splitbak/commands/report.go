package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
	"go.uber.org/zap"
)

// ReportOptions configures a Report run.
type ReportOptions struct {
	Format string
	Hash   lib.HashAlgorithm
	Logger *zap.Logger
	Out    io.Writer
}

// Report writes an integrity report for an existing archive, listing the
// origin files it was made from and the part files that hold them.
func Report(origin, archiveDir string, opts ReportOptions) error {
	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.Hash == "" {
		opts.Hash = lib.DefaultHashAlgorithm
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	format, err := lib.ParseReportFormat(opts.Format)
	if err != nil {
		return err
	}
	algo, err := lib.ParseHashAlgorithm(string(opts.Hash))
	if err != nil {
		return err
	}

	absOrigin, err := filepath.Abs(origin)
	if err != nil {
		return fmt.Errorf("could not resolve absolute path for %s: %w", origin, err)
	}
	absArchive, err := filepath.Abs(archiveDir)
	if err != nil {
		return fmt.Errorf("could not resolve absolute path for %s: %w", archiveDir, err)
	}
	if err := lib.RequireDir(absOrigin); err != nil {
		return fmt.Errorf("invalid origin: %w", err)
	}
	if err := lib.RequireDir(absArchive); err != nil {
		return fmt.Errorf("invalid archive directory: %w", err)
	}

	ignore, err := lib.LoadIgnoreRules(absOrigin)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", lib.IgnoreFilename, err)
	}

	opts.Logger.Info("building report", zap.String("origin", absOrigin), zap.String("archive", absArchive), zap.String("hash", string(algo)))

	report, err := lib.BuildReport(absOrigin, absArchive, algo)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	report.BackedUpFiles = filterIgnored(report.BackedUpFiles, absOrigin, ignore)

	reportPath, err := lib.WriteReport(report, absArchive, format)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(opts.Out, "📝 Report written to %s\n", reportPath)
	fmt.Fprintf(opts.Out, "   - Origin files: %d\n", len(report.BackedUpFiles))
	fmt.Fprintf(opts.Out, "   - Storage files: %d\n", len(report.StorageFiles))
	return nil
}

// filterIgnored drops report entries the backup would not have archived
// because they or one of their parent directories are ignored.
func filterIgnored(files []types.FileReportInfo, origin string, ignore *lib.IgnoreRules) []types.FileReportInfo {
	if ignore == nil {
		return files
	}
	kept := make([]types.FileReportInfo, 0, len(files))
	for _, f := range files {
		if ignoredAnywhere(ignore, origin, f.Path) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// ignoredAnywhere reports whether relPath or one of its parent directories
// is ignored. The archiver never descends into an ignored directory, so
// either one keeps the file out of the archive.
func ignoredAnywhere(ignore *lib.IgnoreRules, origin, relPath string) bool {
	if ignore == nil {
		return false
	}
	path := origin
	for _, elem := range strings.Split(relPath, "/") {
		path = filepath.Join(path, elem)
		if ignore.Ignored(path) {
			return true
		}
	}
	return false
}
