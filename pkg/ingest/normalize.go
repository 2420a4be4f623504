package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendsort/pkg/api"
	"github.com/ArionMiles/spendsort/pkg/table"
)

// RowStatus tags the outcome of normalizing one row.
type RowStatus int

// Row outcomes. Anything other than RowOK is a rejection.
const (
	RowOK RowStatus = iota
	RowEmptyDescription
	RowBadDate
	RowBadAmount
	RowBadDescription
)

func (s RowStatus) String() string {
	switch s {
	case RowOK:
		return "ok"
	case RowEmptyDescription:
		return "empty_description"
	case RowBadDate:
		return "bad_date"
	case RowBadAmount:
		return "bad_amount"
	case RowBadDescription:
		return "bad_description"
	default:
		return fmt.Sprintf("RowStatus(%d)", int(s))
	}
}

// NormalizedRow is one data row with typed canonical values.
// Fields past the first failure are left zero.
type NormalizedRow struct {
	// Line is the 1-based data row number in the upload.
	Line        int
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	// Debit and Credit hold the raw cells when the amount was derived from them.
	Debit  string
	Credit string
	// Category is set by the pipeline for accepted rows.
	Category string
	Status   RowStatus
}

// Amounts outside these bounds are rejected before they reach arithmetic.
const (
	maxAmountExponent = 18
	maxAmountDigits   = 38
)

var (
	errEmptyAmount      = errors.New("empty amount")
	errAmountOutOfRange = errors.New("amount out of range")
	errAmountSpacing    = errors.New("unexpected space in amount")
)

// digitGroup matches a three-digit thousands group, as after the space in "1 000,00".
var digitGroup = regexp.MustCompile(`^[0-9]{3}(?:[.,]|$)`)

// dateLayouts are tried in order. Ambiguous numeric dates read month first.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/06",
	"1-2-2006",
	"1-2-06",
	"1.2.2006",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"20060102",
}

// Normalize types one raw row using the resolved header. It never fails:
// problems are reported through the row's Status.
func Normalize(line int, row []string, m *HeaderMapping) NormalizedRow {
	out := NormalizedRow{Line: line}

	out.Description = strings.TrimSpace(cell(row, m, api.FieldDescription))
	if out.Description == "" {
		out.Status = RowEmptyDescription
		return out
	}
	if !utf8.ValidString(out.Description) || strings.ContainsRune(out.Description, 0) {
		out.Status = RowBadDescription
		return out
	}

	date, err := ParseDate(cell(row, m, api.FieldDate))
	if err != nil {
		out.Status = RowBadDate
		return out
	}
	out.Date = date

	if m.DebitCredit() {
		out.Debit = cell(row, m, api.FieldDebit)
		out.Credit = cell(row, m, api.FieldCredit)
		amount, err := DeriveAmount(out.Debit, out.Credit)
		if err != nil {
			out.Status = RowBadAmount
			return out
		}
		out.Amount = amount
		return out
	}

	amount, err := ParseAmount(cell(row, m, api.FieldAmount))
	if err != nil {
		out.Status = RowBadAmount
		return out
	}
	out.Amount = amount
	return out
}

func cell(row []string, m *HeaderMapping, f api.Field) string {
	i, ok := m.Index(f)
	if !ok {
		return ""
	}
	return table.Cell(row, i)
}

// ParseAmount cleans a money cell and parses it as an exact decimal.
// Currency symbols and digit-group commas are stripped and an
// accounting-style "(12.50)" reads as -12.50. "$1,234.56" yields 1234.56.
// Inner spaces are only allowed next to a currency symbol or sign, or before
// a three-digit group, so "12 50" is rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}

	negate := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negate = true
		s = s[1 : len(s)-1]
	}

	joined, err := joinAmountFields(strings.Fields(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, err)
	}

	var b strings.Builder
	for _, r := range joined {
		if r == ',' || unicode.Is(unicode.Sc, r) {
			continue
		}
		b.WriteRune(r)
	}

	if b.Len() == 0 {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, errEmptyAmount)
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent || d.NumDigits() > maxAmountDigits {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, errAmountOutOfRange)
	}
	if negate {
		d = d.Neg()
	}
	return d, nil
}

func joinAmountFields(fields []string) (string, error) {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 && !spaceAllowed(fields[i-1], f) {
			return "", errAmountSpacing
		}
		b.WriteString(f)
	}
	return b.String(), nil
}

func spaceAllowed(prev, next string) bool {
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	if symbolOrSign(last) || symbolOrSign(first) {
		return true
	}
	return unicode.IsDigit(last) && digitGroup.MatchString(next)
}

func symbolOrSign(r rune) bool {
	return r == '-' || r == '+' || unicode.Is(unicode.Sc, r)
}

// DeriveAmount returns credit - debit. A blank cell counts as exactly zero;
// a cell that is present but unparseable is an error.
func DeriveAmount(debit, credit string) (decimal.Decimal, error) {
	d, err := optionalAmount(debit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit: %w", err)
	}
	c, err := optionalAmount(credit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit: %w", err)
	}
	return c.Sub(d), nil
}

func optionalAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return ParseAmount(raw)
}

// ParseDate reads a calendar date from common statement formats and returns
// it at UTC midnight. Any time-of-day component is dropped.
func ParseDate(raw string) (time.Time, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, mo, d := t.Date()
			return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date: %q", raw)
}
