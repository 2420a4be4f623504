package table

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// XLS reads the first sheet of a legacy BIFF (.xls) workbook.
type XLS struct{}

// Name returns the format name.
func (XLS) Name() string {
	return "xls"
}

// Extensions returns the file extensions handled by the XLS reader.
func (XLS) Extensions() []string {
	return []string{".xls"}
}

// Read parses the first sheet. The BIFF reader needs random access, so the
// input is buffered in memory first.
func (XLS) Read(r io.Reader) (tbl *Table, err error) {
	// The BIFF parser panics on some malformed files.
	defer func() {
		if p := recover(); p != nil {
			tbl, err = nil, fmt.Errorf("parsing xls: %v", p)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading xls: %w", err)
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return &Table{}, nil
	}

	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		records = append(records, cells)
	}

	return fromRecords(records), nil
}
