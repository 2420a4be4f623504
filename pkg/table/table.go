// Package table reads uploaded statement files into a header row plus raw string cells.
package table

import (
	"io"
	"strings"
)

// utf8BOM is prepended to the first header cell by some spreadsheet exports.
const utf8BOM = "\ufeff"

// Table is an uploaded file as raw text: the first non-blank row is the
// header, Rows holds every other non-blank row in file order.
type Table struct {
	Header []string
	Rows   [][]string
}

// Reader parses one file format into a Table.
// A Reader returns an error only when the input is structurally broken;
// an empty input yields an empty Table.
type Reader interface {
	// Name returns the format name (e.g., "csv", "xlsx").
	Name() string
	// Extensions returns the lowercase file extensions handled, including the dot.
	Extensions() []string
	// Read parses the whole input.
	Read(r io.Reader) (*Table, error)
}

// fromRecords drops rows where every cell is blank and splits the rest into
// header and rows. Spreadsheets report gap rows as empty records.
func fromRecords(records [][]string) *Table {
	kept := records[:0:0]
	for _, rec := range records {
		if !blankRecord(rec) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		return &Table{}
	}

	header := make([]string, len(kept[0]))
	for i, name := range kept[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		header[i] = strings.TrimSpace(name)
	}

	return &Table{
		Header: header,
		Rows:   kept[1:],
	}
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(strings.TrimPrefix(c, utf8BOM)) != "" {
			return false
		}
	}
	return true
}

// Cell returns the cell at column i, or "" when the row is short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
