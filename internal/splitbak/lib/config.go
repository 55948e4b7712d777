// Package lib contains the core, reusable services for the splitbak application.
package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
)

// --- Constants ---

// ReportBaseName is the file name, without extension, of the integrity report
// written next to the part files.
const ReportBaseName = "backup_report"

// IgnoreFilename is the name of the file containing user-defined ignore patterns.
// It is only read from the root of the origin directory.
const IgnoreFilename = ".splitbakignore"

// DefaultMaxPartSize is the part size used when none is configured.
const DefaultMaxPartSize = 512 * 1024 * 1024

// DirPerm and FilePerm are used for every directory and file splitbak creates.
const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// --- Path Helper Functions ---

// PartName returns the file name of part n.
func PartName(n int) string {
	return strconv.Itoa(n)
}

// PartPath returns the path of part n inside an archive directory.
func PartPath(archiveDir string, n int) string {
	return filepath.Join(archiveDir, PartName(n))
}

// ParsePartName reports whether name is a canonical part file name ("0", "1",
// ... without sign or leading zeros) and returns its number.
func ParsePartName(name string) (int, bool) {
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || strconv.Itoa(n) != name {
		return 0, false
	}
	return n, true
}

// GetReportPath returns the path of the integrity report for the given format.
func GetReportPath(archiveDir, format string) string {
	return filepath.Join(archiveDir, ReportBaseName+"."+format)
}

// ListParts returns the part files in archiveDir ordered by number. A missing
// directory yields an empty list.
func ListParts(archiveDir string) ([]types.PartInfo, error) {
	dirEntries, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.PartInfo{}, nil
		}
		return nil, err
	}

	parts := []types.PartInfo{}
	for _, entry := range dirEntries {
		if !entry.Type().IsRegular() {
			continue
		}
		n, ok := ParsePartName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		parts = append(parts, types.PartInfo{
			Number: n,
			Path:   filepath.Join(archiveDir, entry.Name()),
			Size:   info.Size(),
		})
	}

	sort.Slice(parts, func(i, j int) bool {
		return parts[i].Number < parts[j].Number
	})
	return parts, nil
}

// CheckContiguous returns an error if parts do not run 0, 1, 2, ... without gaps.
// The reader stops at the first missing number, so anything after a gap would
// be silently ignored on restore.
func CheckContiguous(parts []types.PartInfo) error {
	for i, p := range parts {
		if p.Number != i {
			return fmt.Errorf("part %d is missing (found part %d)", i, p.Number)
		}
	}
	return nil
}

// ClearArchiveDir removes every part file and integrity report from
// archiveDir, leaving any other file in place.
func ClearArchiveDir(archiveDir string) error {
	parts, err := ListParts(archiveDir)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if err := os.Remove(p.Path); err != nil {
			return err
		}
	}
	for _, format := range ReportFormats {
		if err := os.Remove(GetReportPath(archiveDir, format)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
