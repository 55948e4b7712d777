package lib

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func setupReportDirs(t *testing.T) (origin, archive string) {
	t.Helper()
	origin = t.TempDir()
	archive = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(origin, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(origin, "a.txt"), []byte("hello world"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(origin, "sub", "b.txt"), []byte{}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(archive, "0"), []byte("part"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(archive, ReportBaseName+".json"), []byte("{}"), 0644))
	return origin, archive
}

func TestBuildReport(t *testing.T) {
	origin, archive := setupReportDirs(t)

	report, err := BuildReport(origin, archive, SHA256)
	require.NoError(t, err)

	assert.Equal(t, "sha256", report.HashAlgorithm)
	assert.Equal(t, origin, report.Origin)
	assert.Equal(t, archive, report.Destination)
	assert.NotEmpty(t, report.Timestamp)

	require.Len(t, report.BackedUpFiles, 2)
	assert.Equal(t, types.FileReportInfo{
		Path: "a.txt",
		Size: 11,
		Hash: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
	}, report.BackedUpFiles[0])
	assert.Equal(t, "sub/b.txt", report.BackedUpFiles[1].Path)
	assert.Equal(t, int64(0), report.BackedUpFiles[1].Size)

	require.Len(t, report.StorageFiles, 1, "existing reports are not listed")
	assert.Equal(t, "0", report.StorageFiles[0].Path)
	assert.Equal(t, int64(4), report.StorageFiles[0].Size)
}

func TestWriteReport(t *testing.T) {
	origin, archive := setupReportDirs(t)
	report, err := BuildReport(origin, archive, MD5)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		path, err := WriteReport(report, archive, "json")
		require.NoError(t, err)
		assert.Equal(t, GetReportPath(archive, "json"), path)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded types.Report
		require.NoError(t, json.Unmarshal(content, &decoded))
		assert.Equal(t, *report, decoded)
	})

	t.Run("yaml", func(t *testing.T) {
		path, err := WriteReport(report, archive, "yaml")
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded types.Report
		require.NoError(t, yaml.Unmarshal(content, &decoded))
		assert.Equal(t, *report, decoded)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := WriteReport(report, archive, "xml")
		assert.Error(t, err)
		_, err = ParseReportFormat("xml")
		assert.Error(t, err)
	})
}

func TestBuildReportNestedArchiveAndSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on Windows")
	}
	origin := t.TempDir()
	outside := filepath.Join(t.TempDir(), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("hello world"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(origin, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(origin, "link.txt")))
	require.NoError(t, os.Symlink(origin, filepath.Join(origin, "loop")))

	archive := filepath.Join(origin, "backup")
	require.NoError(t, os.Mkdir(archive, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(archive, "0"), []byte("part"), 0644))

	report, err := BuildReport(origin, archive, SHA256)
	require.NoError(t, err)

	require.Len(t, report.BackedUpFiles, 2, "nested archive must not be listed")
	assert.Equal(t, "a.txt", report.BackedUpFiles[0].Path)
	assert.Equal(t, types.FileReportInfo{
		Path: "link.txt",
		Size: 11,
		Hash: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
	}, report.BackedUpFiles[1])

	require.Len(t, report.StorageFiles, 1)
	assert.Equal(t, "0", report.StorageFiles[0].Path)
}
