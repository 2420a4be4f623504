package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSV reads comma-delimited text with a header row.
type CSV struct {
	// Comma is the field delimiter. Defaults to ','.
	Comma rune
}

// Name returns the format name.
func (c CSV) Name() string {
	return "csv"
}

// Extensions returns the file extensions handled by the CSV reader.
func (c CSV) Extensions() []string {
	return []string{".csv", ".txt"}
}

// Read parses the whole input. Rows may have fewer or more cells than the header.
func (c CSV) Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	if c.Comma != 0 {
		cr.Comma = c.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	return fromRecords(records), nil
}
