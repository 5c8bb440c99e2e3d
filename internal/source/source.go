// Package source reads spreadsheet exports into header-keyed rows.
//
// Delimited text and xlsx workbooks are treated identically once read: the
// result is a Table whose rows map the (trimmed) header text to the raw cell
// value. Nothing here interprets cell contents.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions with no reader.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrNoHeader is returned when a file has no non-empty row to use as header.
var ErrNoHeader = errors.New("header row not found")

// ErrTooLarge is returned when an export exceeds MaxFileSize.
var ErrTooLarge = errors.New("file too large")

// ErrEmpty is returned for files with no content.
var ErrEmpty = errors.New("empty file")

// MaxFileSize caps how much of a single export is read into memory (50MB).
var MaxFileSize int64 = 50 * 1024 * 1024

// Row maps header text to the raw cell value.
type Row map[string]string

// Table is a parsed export.
type Table struct {
	Name   string
	Header []string
	Rows   []Row
	// Lines holds the 1-based source line (or sheet row) of each entry in Rows.
	Lines []int
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Line returns the source line for row i, or i+2 when unknown.
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Open reads the file at path, choosing a reader by extension.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Read(filepath.Base(path), f)
}

// Read parses r according to the extension of name.
func Read(name string, r io.Reader) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		t, err = ReadDelimited(r, Options{})
	case ".tsv":
		t, err = ReadDelimited(r, Options{Delimiter: '\t'})
	case ".xlsx":
		t, err = ReadXLSX(r, "")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	t.Name = name
	return t, nil
}

// fromRecords builds a Table from raw records. The first non-empty record is
// the header; empty records are dropped; short records are padded. lines
// gives the 1-based start line of each record; when nil, record i is taken
// to sit on line i+1.
func fromRecords(records [][]string, lines []int) (*Table, error) {
	headerIdx := -1
	for i, rec := range records {
		if !isEmptyRecord(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		header[i] = strings.TrimSpace(h)
	}

	t := &Table{Header: header}
	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRecord(rec) {
			continue
		}
		row := make(Row, len(header))
		for col, name := range header {
			if name == "" {
				continue
			}
			if col < len(rec) {
				row[name] = rec[col]
			} else {
				row[name] = ""
			}
		}
		t.Rows = append(t.Rows, row)
		line := i + 1
		if i < len(lines) {
			line = lines[i]
		}
		t.Lines = append(t.Lines, line)
	}
	return t, nil
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readLimited reads all of r, failing once more than MaxFileSize bytes arrive.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, fmt.Errorf("%w: exceeds %dMB limit", ErrTooLarge, MaxFileSize/(1024*1024))
	}
	return data, nil
}
