package ingest

import (
	"github.com/ArionMiles/spendsort/pkg/api"
)

// Synonyms maps vendor column names to canonical fields. Matching is exact and
// case-sensitive; a header equal to a canonical name maps to itself.
var Synonyms = map[string]api.Field{
	"Transaction Date":   api.FieldDate,
	"Posted Date":        api.FieldDate,
	"Posting Date":       api.FieldDate,
	"Name":               api.FieldDescription,
	"Merchant":           api.FieldDescription,
	"Payee":              api.FieldDescription,
	"Price":              api.FieldAmount,
	"Transaction Amount": api.FieldAmount,
	"Withdrawal":         api.FieldDebit,
	"Withdrawals":        api.FieldDebit,
	"Debit Amount":       api.FieldDebit,
	"Deposit":            api.FieldCredit,
	"Deposits":           api.FieldCredit,
	"Credit Amount":      api.FieldCredit,
}

// inputFields are the canonical fields that may be read from an upload.
var inputFields = map[api.Field]struct{}{
	api.FieldDate:        {},
	api.FieldDescription: {},
	api.FieldAmount:      {},
	api.FieldDebit:       {},
	api.FieldCredit:      {},
}

// HeaderMapping is the resolved header of one upload.
type HeaderMapping struct {
	// Columns maps each raw column name that resolved to a canonical field.
	Columns map[string]api.Field
	// Found is the raw header as uploaded.
	Found []string

	index map[api.Field]int
}

// Index returns the column position of a canonical field.
func (m *HeaderMapping) Index(f api.Field) (int, bool) {
	i, ok := m.index[f]
	return i, ok
}

// DebitCredit reports whether amounts are derived from Debit and Credit columns.
// An Amount column takes precedence when both shapes are present.
func (m *HeaderMapping) DebitCredit() bool {
	_, hasAmount := m.index[api.FieldAmount]
	return !hasAmount
}

// ReconcileHeader resolves raw column names to canonical fields. Unknown columns
// are ignored. When two columns resolve to the same field the left-most wins.
// The header is accepted when it covers {Date, Description, Amount} or
// {Date, Description, Debit, Credit}; otherwise a *api.SchemaError is returned.
func ReconcileHeader(header []string) (*HeaderMapping, error) {
	m := &HeaderMapping{
		Columns: make(map[string]api.Field),
		Found:   append([]string(nil), header...),
		index:   make(map[api.Field]int),
	}

	for i, name := range header {
		field, ok := resolve(name)
		if !ok {
			continue
		}
		if _, taken := m.index[field]; taken {
			continue
		}
		m.index[field] = i
		m.Columns[name] = field
	}

	if missing := m.missing(); len(missing) > 0 {
		return nil, &api.SchemaError{Missing: missing, Found: m.Found}
	}
	return m, nil
}

func resolve(name string) (api.Field, bool) {
	if _, ok := inputFields[api.Field(name)]; ok {
		return api.Field(name), true
	}
	field, ok := Synonyms[name]
	return field, ok
}

// missing names the required fields not covered. For the amount part, a lone
// Debit or Credit column means the partner is missing; otherwise Amount is.
func (m *HeaderMapping) missing() []api.Field {
	var missing []api.Field
	for _, f := range []api.Field{api.FieldDate, api.FieldDescription} {
		if _, ok := m.index[f]; !ok {
			missing = append(missing, f)
		}
	}

	if _, ok := m.index[api.FieldAmount]; ok {
		return missing
	}

	_, hasDebit := m.index[api.FieldDebit]
	_, hasCredit := m.index[api.FieldCredit]
	switch {
	case hasDebit && hasCredit:
	case hasDebit:
		missing = append(missing, api.FieldCredit)
	case hasCredit:
		missing = append(missing, api.FieldDebit)
	default:
		missing = append(missing, api.FieldAmount)
	}
	return missing
}
