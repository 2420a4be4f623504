package table

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSX reads the first sheet of an Office Open XML workbook.
type XLSX struct{}

// Name returns the format name.
func (XLSX) Name() string {
	return "xlsx"
}

// Extensions returns the file extensions handled by the XLSX reader.
func (XLSX) Extensions() []string {
	return []string{".xlsx"}
}

// Read parses the first sheet. Cell values are read as displayed, so dates
// come through in the sheet's number format.
func (XLSX) Read(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	return fromRecords(rows), nil
}
