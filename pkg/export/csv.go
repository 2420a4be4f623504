// Package export writes committed transactions in downloadable formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ArionMiles/spendsort/pkg/api"
)

// csvHeader matches the field names of the JSON wire record.
var csvHeader = []string{"id", "date", "description", "amount", "category", "created_at"}

// CSV writes transactions as comma-separated rows with a header line.
type CSV struct{}

// Name returns the format name.
func (CSV) Name() string {
	return "csv"
}

// ContentType returns the MIME type of the output.
func (CSV) ContentType() string {
	return "text/csv; charset=utf-8"
}

// Export writes a header row followed by one row per transaction.
func (CSV) Export(w io.Writer, transactions []api.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, t := range transactions {
		record := []string{
			formatID(t.ID),
			t.Date.Format(api.DateLayout),
			t.Description,
			api.FormatAmount(t.Amount).String(),
			t.Category,
			formatTime(t.CreatedAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
