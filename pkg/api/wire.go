package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// transactionJSON is the on-the-wire shape of a transaction.
type transactionJSON struct {
	ID          int64       `json:"id,omitempty"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
}

type statsJSON struct {
	TotalRows   int         `json:"total_rows"`
	TotalAmount json.Number `json:"total_amount"`
}

// MarshalJSON encodes the transaction as {date, description, amount, category},
// adding id and created_at only once the store has assigned them.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := transactionJSON{
		ID:          t.ID,
		Date:        t.Date.Format(DateLayout),
		Description: t.Description,
		Amount:      FormatAmount(t.Amount),
		Category:    t.Category,
	}
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt.UTC()
		out.CreatedAt = &created
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var in transactionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	date, err := time.Parse(DateLayout, in.Date)
	if err != nil {
		return fmt.Errorf("parsing date: %w", err)
	}
	amount, err := decimal.NewFromString(in.Amount.String())
	if err != nil {
		return fmt.Errorf("parsing amount: %w", err)
	}

	*t = Transaction{
		ID:          in.ID,
		Date:        date,
		Description: in.Description,
		Amount:      amount,
		Category:    in.Category,
	}
	if in.CreatedAt != nil {
		t.CreatedAt = *in.CreatedAt
	}
	return nil
}

// MarshalJSON encodes totals as plain JSON numbers.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		TotalRows:   s.TotalRows,
		TotalAmount: FormatAmount(s.TotalAmount),
	})
}

// FormatAmount renders an amount with at least two fractional digits and
// never fewer than the value carries, so no precision is dropped.
func FormatAmount(d decimal.Decimal) json.Number {
	places := -d.Exponent()
	if places < 2 {
		places = 2
	}
	return json.Number(d.StringFixed(places))
}
