// Package ingest turns an uploaded statement table into a validated, categorized
// batch of canonical transactions.
//
// A run moves through HeaderCheck, Normalize, Filter, Summarize and Finalize.
// Only a header mismatch or an empty/unreadable table stops a batch; rows that
// fail to normalize are dropped and counted.
package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendsort/pkg/api"
	"github.com/ArionMiles/spendsort/pkg/categorize"
	"github.com/ArionMiles/spendsort/pkg/table"
)

// Categorizer assigns a category to a description. It must be a pure function.
type Categorizer interface {
	Categorize(description string) string
}

// Pipeline runs uploads through the ingestion stages.
// It holds no per-batch state and is safe for concurrent use.
type Pipeline struct {
	categorizer Categorizer
	logger      *slog.Logger
	newID       func() uuid.UUID
}

// New creates a pipeline. A nil categorizer uses the built-in category table.
func New(c Categorizer, logger *slog.Logger) *Pipeline {
	if c == nil {
		c = categorize.New(categorize.Default())
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		categorizer: c,
		logger:      logger,
		newID:       uuid.New,
	}
}

// Ingest reads the whole input with the given table reader and runs the batch.
func (p *Pipeline) Ingest(source string, r io.Reader, reader table.Reader) (*api.BatchResult, error) {
	tbl, err := reader.Read(r)
	if err != nil {
		p.logger.Warn("failed to read table", "source", source, "format", reader.Name(), "error", err)
		return nil, &api.UnparseableError{Detail: err.Error(), Err: err}
	}
	return p.Run(source, tbl)
}

// Run processes an already-read table. No row is normalized unless the table
// has a usable header and at least one data row.
func (p *Pipeline) Run(source string, tbl *table.Table) (*api.BatchResult, error) {
	logger := p.logger.With("source", source)

	// HeaderCheck
	if tbl == nil || blank(tbl.Header) {
		logger.Warn("table has no header row")
		return nil, api.ErrEmptyInput
	}
	logger.Info("validating headers", "headers", tbl.Header, "rows", len(tbl.Rows))

	mapping, err := ReconcileHeader(tbl.Header)
	if err != nil {
		logger.Warn("header check failed", "error", err)
		return nil, err
	}
	logger.Debug("headers reconciled",
		"columns", mapping.Columns,
		"debit_credit", mapping.DebitCredit(),
	)

	if len(tbl.Rows) == 0 {
		logger.Warn("table has no data rows")
		return nil, api.ErrEmptyInput
	}

	// Normalize
	rows := make([]NormalizedRow, len(tbl.Rows))
	for i, raw := range tbl.Rows {
		rows[i] = Normalize(i+1, raw, mapping)
		if rows[i].Status == RowOK {
			rows[i].Category = p.categorizer.Categorize(rows[i].Description)
		}
	}

	// Filter
	filtered := Filter(rows)
	if filtered.Rejected > 0 {
		logger.Info("dropped rows with invalid data", "count", filtered.Rejected)
		for reason, n := range filtered.ByReason {
			logger.Debug("rejected rows", "reason", reason.String(), "count", n)
		}
	}

	// Summarize
	batchID := p.newID()
	total := decimal.Zero
	distribution := make(map[string]int)
	transactions := make([]api.Transaction, 0, len(filtered.Accepted))
	for _, row := range filtered.Accepted {
		distribution[row.Category]++
		total = total.Add(row.Amount)

		transactions = append(transactions, api.Transaction{
			BatchID:     batchID,
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount,
			Category:    row.Category,
		})
	}
	logger.Info("categorized transactions", "distribution", distribution)

	// Finalize
	result := &api.BatchResult{
		BatchID:      batchID,
		Source:       source,
		Transactions: transactions,
		Rejected:     filtered.Rejected,
		Stats: api.Stats{
			TotalRows:   len(transactions),
			TotalAmount: total,
		},
	}

	logger.Info("batch ready",
		"batch_id", batchID,
		"total_rows", result.Stats.TotalRows,
		"total_amount", total.String(),
		"rejected", result.Rejected,
	)
	return result, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Summary renders a batch result as one line for CLI output.
func Summary(b *api.BatchResult) string {
	return fmt.Sprintf("batch %s: %d rows accepted, %d rejected, total %s",
		b.BatchID, b.Stats.TotalRows, b.Rejected, api.FormatAmount(b.Stats.TotalAmount))
}
