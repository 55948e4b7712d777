package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/multipart"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/records"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/types"
	"github.com/olekukonko/tablewriter"
)

// listSkipBuffer bounds the memory used to step over file contents.
const listSkipBuffer = 64 * 1024

// List prints the part files of an archive and, when showRecords is set, the
// operation stream they contain.
func List(archiveDir string, showRecords bool, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	absArchive, err := filepath.Abs(archiveDir)
	if err != nil {
		return fmt.Errorf("could not resolve absolute path for %s: %w", archiveDir, err)
	}
	if err := lib.RequireDir(absArchive); err != nil {
		return fmt.Errorf("invalid archive directory: %w", err)
	}

	parts, err := lib.ListParts(absArchive)
	if err != nil {
		return fmt.Errorf("failed to list parts: %w", err)
	}
	if len(parts) == 0 {
		fmt.Fprintf(out, "No parts found in \"%s\".\n", absArchive)
		return nil
	}

	var total int64
	fmt.Fprintf(out, "Parts in \"%s\":\n", absArchive)
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Part", "Size", "Bytes"})
	table.SetAutoWrapText(false)
	for _, p := range parts {
		total += p.Size
		table.Append([]string{
			strconv.Itoa(p.Number),
			humanize.IBytes(uint64(p.Size)),
			strconv.FormatInt(p.Size, 10),
		})
	}
	table.SetFooter([]string{"Total", humanize.IBytes(uint64(total)), strconv.FormatInt(total, 10)})
	table.Render()

	if err := lib.CheckContiguous(parts); err != nil {
		fmt.Fprintf(out, "\nWarning: %v. Parts after the gap are not read on restore.\n", err)
	}

	if !showRecords {
		return nil
	}
	fmt.Fprintln(out, "\nRecords:")
	return listRecords(absArchive, out)
}

// listRecords replays the operation stream without touching the filesystem
// beyond the archive. Rows printed before a decoding error stay visible.
func listRecords(archiveDir string, out io.Writer) error {
	reader := multipart.NewReader(archiveDir)
	defer reader.Close()
	rr := records.NewReader(reader)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Depth", "Operation", "Name", "Size"})
	table.SetAutoWrapText(false)
	defer table.Render()

	buf := make([]byte, listSkipBuffer)
	depth := 0
	for n := 0; ; n++ {
		op, err := rr.ReadRecord()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read record %d: %w", n, err)
		}

		row := []string{strconv.Itoa(n), strconv.Itoa(depth), "", "", ""}
		switch op := op.(type) {
		case types.EnterDirectory:
			row[2], row[3] = "enter", op.Name
			depth++
		case types.LeaveDirectory:
			depth--
			row[1], row[2] = strconv.Itoa(depth), "leave"
		case types.CreateFile:
			row[2], row[3], row[4] = "file", op.Name, humanize.IBytes(op.Size)
			if err := skipSpan(rr, op.Size, buf); err != nil {
				table.Append(row)
				return fmt.Errorf("failed to skip contents of %s: %w", op.Name, err)
			}
		}
		table.Append(row)
	}
}

func skipSpan(rr *records.Reader, size uint64, buf []byte) error {
	for size > 0 {
		n := uint64(len(buf))
		if size < n {
			n = size
		}
		if err := rr.ReadSpan(buf[:n]); err != nil {
			return err
		}
		size -= n
	}
	return nil
}
