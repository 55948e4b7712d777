package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Operation is one step of a linearized directory tree. The set of variants is
// closed: EnterDirectory, LeaveDirectory and CreateFile.
type Operation interface {
	isOperation()
	fmt.Stringer
}

// EnterDirectory opens a new directory scope. Name is the leaf name only.
type EnterDirectory struct {
	Name string
}

// LeaveDirectory closes the innermost open directory scope.
type LeaveDirectory struct{}

// CreateFile declares a file of Size bytes. Exactly Size bytes of content
// follow it in the stream as a raw span.
type CreateFile struct {
	Name string
	Size uint64
}

func (EnterDirectory) isOperation() {}
func (LeaveDirectory) isOperation() {}
func (CreateFile) isOperation()     {}

func (op EnterDirectory) String() string { return fmt.Sprintf("EnterDirectory(%q)", op.Name) }
func (LeaveDirectory) String() string    { return "LeaveDirectory" }
func (op CreateFile) String() string     { return fmt.Sprintf("CreateFile(%q, %d)", op.Name, op.Size) }

// `json:"..."` and `yaml:"..."` tags are used for the integrity report.

// FileReportInfo describes one regular file seen by the integrity reporter.
type FileReportInfo struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
	Hash string `json:"hash" yaml:"hash"`
}

// Report lists the backed up origin files next to the part files that hold them.
type Report struct {
	Timestamp     string           `json:"timestamp" yaml:"timestamp"`
	HashAlgorithm string           `json:"hashAlgorithm" yaml:"hashAlgorithm"`
	Origin        string           `json:"origin" yaml:"origin"`
	Destination   string           `json:"destination" yaml:"destination"`
	BackedUpFiles []FileReportInfo `json:"backedUpFiles" yaml:"backedUpFiles"`
	StorageFiles  []FileReportInfo `json:"storageFiles" yaml:"storageFiles"`
}

// PartInfo describes one part file of an archive.
type PartInfo struct {
	Number int
	Path   string
	Size   int64
}

// ValidateName checks that name can be used as a single path element when the
// operation is replayed: non-empty, not "." or "..", and free of separators
// and NUL bytes.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty name")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is not allowed", name)
	case strings.ContainsAny(name, "/\x00") || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("name %q contains a path separator or NUL byte", name)
	}
	return nil
}
