package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ArionMiles/spendsort/pkg/api"
)

// Listing is the JSON document returned for a transaction listing.
type Listing struct {
	Transactions []api.Transaction `json:"transactions"`
	Count        int               `json:"count"`
}

// JSON writes transactions as a {"transactions": [...], "count": n} document.
type JSON struct {
	// Indent pretty-prints the output when set.
	Indent bool
}

// Name returns the format name.
func (JSON) Name() string {
	return "json"
}

// ContentType returns the MIME type of the output.
func (JSON) ContentType() string {
	return "application/json"
}

// Export writes the listing document.
func (j JSON) Export(w io.Writer, transactions []api.Transaction) error {
	if transactions == nil {
		transactions = []api.Transaction{}
	}

	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(Listing{Transactions: transactions, Count: len(transactions)}); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
