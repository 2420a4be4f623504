// Package api defines the core interfaces and data structures for spendsort.
package api

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of a transaction date.
const DateLayout = "2006-01-02"

// Field is a canonical column the pipeline understands, regardless of how a
// statement export names it.
type Field string

// Canonical fields. Category is filled in by the pipeline and never read from input.
const (
	FieldDate        Field = "Date"
	FieldDescription Field = "Description"
	FieldAmount      Field = "Amount"
	FieldDebit       Field = "Debit"
	FieldCredit      Field = "Credit"
	FieldCategory    Field = "Category"
)

// Transaction is the canonical, persisted record of one statement row.
type Transaction struct {
	// ID is assigned by the store on commit.
	ID      int64
	BatchID uuid.UUID
	// Date is a calendar date at UTC midnight.
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    string
	// CreatedAt is the ingestion timestamp, assigned by the store.
	CreatedAt time.Time
}

// Stats aggregates the accepted rows of a batch.
type Stats struct {
	TotalRows   int
	TotalAmount decimal.Decimal
}

// BatchResult is the output of one pipeline run over an uploaded table.
type BatchResult struct {
	BatchID uuid.UUID
	// Source is the uploaded file name, kept for the batch record.
	Source       string
	Transactions []Transaction
	// Rejected is the number of rows dropped during validation.
	Rejected int
	Stats    Stats
}

// Committer persists a finalized batch as a single all-or-nothing unit.
// It returns the transactions with store-assigned ids and timestamps.
type Committer interface {
	Commit(ctx context.Context, batch *BatchResult) ([]Transaction, error)
}

// Lister returns previously committed transactions, newest date first.
type Lister interface {
	ListTransactions(ctx context.Context) ([]Transaction, error)
}

// Store is the persistence gateway used by the upload service.
type Store interface {
	Committer
	Lister
	Close()
}

// Archiver keeps a copy of a raw uploaded file.
type Archiver interface {
	Archive(ctx context.Context, batchID uuid.UUID, name string, data []byte) error
}

// Exporter writes committed transactions in one output format.
type Exporter interface {
	// Name returns the format name (e.g., "csv", "json").
	Name() string
	// ContentType returns the MIME type of the output.
	ContentType() string
	// Export writes all transactions to w.
	Export(w io.Writer, transactions []Transaction) error
}
