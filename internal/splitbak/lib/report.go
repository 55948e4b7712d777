package lib

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
	"gopkg.in/yaml.v3"
)

// ReportFormats lists the supported report encodings. The value doubles as
// the report file extension.
var ReportFormats = []string{"json", "yaml"}

// ParseReportFormat validates a user-supplied report format.
func ParseReportFormat(format string) (string, error) {
	for _, f := range ReportFormats {
		if f == format {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported report format %q (want json or yaml)", format)
}

// BuildReport walks the origin tree and the archive directory and records the
// size and content hash of every regular file in each, following symlinks to
// regular files the way the archiver does. Paths are relative to their root
// and use forward slashes. Existing reports in the archive directory are not
// listed, and an archive directory nested in origin is left out of the origin
// side.
func BuildReport(origin, archiveDir string, algo HashAlgorithm) (*types.Report, error) {
	var skipOrigin map[string]bool
	if nested, ok := NestedPath(origin, archiveDir); ok {
		skipOrigin = map[string]bool{filepath.ToSlash(nested): true}
	}
	backedUp, err := collectFilesInfo(origin, algo, skipOrigin)
	if err != nil {
		return nil, fmt.Errorf("failed to scan origin %s: %w", origin, err)
	}

	skip := make(map[string]bool, len(ReportFormats))
	for _, format := range ReportFormats {
		skip[ReportBaseName+"."+format] = true
	}
	stored, err := collectFilesInfo(archiveDir, algo, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive %s: %w", archiveDir, err)
	}

	return &types.Report{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		HashAlgorithm: string(algo),
		Origin:        origin,
		Destination:   archiveDir,
		BackedUpFiles: backedUp,
		StorageFiles:  stored,
	}, nil
}

// collectFilesInfo lists regular files under root in lexical order. Entries
// whose root-relative slash path is in skip are left out; a skipped directory
// is not descended into.
func collectFilesInfo(root string, algo HashAlgorithm, skip map[string]bool) ([]types.FileReportInfo, error) {
	files := []types.FileReportInfo{}

	// WalkDir does not descend through a symlinked root.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if skip[relPath] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		var info fs.FileInfo
		switch {
		case d.Type().IsRegular():
			info, err = d.Info()
		case d.Type()&fs.ModeSymlink != 0:
			info, err = os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		default:
			return nil
		}
		if err != nil {
			return err
		}
		hash, err := GetFileHash(algo, path)
		if err != nil {
			return err
		}

		files = append(files, types.FileReportInfo{
			Path: relPath,
			Size: info.Size(),
			Hash: hash,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// WriteReport encodes report in the given format and writes it into
// archiveDir. It returns the path of the written file.
func WriteReport(report *types.Report, archiveDir, format string) (string, error) {
	var (
		content []byte
		err     error
	)
	switch format {
	case "json":
		content, err = json.MarshalIndent(report, "", "  ")
	case "yaml":
		content, err = yaml.Marshal(report)
	default:
		return "", fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return "", err
	}

	reportPath := GetReportPath(archiveDir, format)
	if err := os.WriteFile(reportPath, content, FilePerm); err != nil {
		return "", err
	}
	return reportPath, nil
}
