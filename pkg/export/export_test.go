package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/spendsort/pkg/api"
)

func sample() []api.Transaction {
	return []api.Transaction{
		{
			ID:          7,
			Date:        time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
			Description: "Joe's Pharmacy, Main St",
			Amount:      decimal.RequireFromString("42.1"),
			Category:    "Healthcare",
			CreatedAt:   time.Date(2024, time.January, 6, 9, 30, 0, 0, time.UTC),
		},
		{
			Date:        time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			Description: "Bus fare",
			Amount:      decimal.RequireFromString("-3.505"),
			Category:    "Transportation",
		},
	}
}

func TestCSVExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV{}.Export(&buf, sample()))

	want := "id,date,description,amount,category,created_at\n" +
		"7,2024-01-05,\"Joe's Pharmacy, Main St\",42.10,Healthcare,2024-01-06T09:30:00Z\n" +
		",2024-02-01,Bus fare,-3.505,Transportation,\n"
	assert.Equal(t, want, buf.String())
}

func TestCSVExport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV{}.Export(&buf, nil))
	assert.Equal(t, "id,date,description,amount,category,created_at\n", buf.String())
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON{}.Export(&buf, sample()))

	var doc struct {
		Transactions []map[string]any `json:"transactions"`
		Count        int              `json:"count"`
	}
	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&doc))

	assert.Equal(t, 2, doc.Count)
	require.Len(t, doc.Transactions, 2)

	first := doc.Transactions[0]
	assert.Equal(t, json.Number("7"), first["id"])
	assert.Equal(t, "2024-01-05", first["date"])
	assert.Equal(t, json.Number("42.10"), first["amount"])
	assert.Equal(t, "2024-01-06T09:30:00Z", first["created_at"])

	second := doc.Transactions[1]
	assert.NotContains(t, second, "id")
	assert.NotContains(t, second, "created_at")
	assert.Equal(t, json.Number("-3.505"), second["amount"])
}

func TestJSONExport_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON{}.Export(&buf, nil))
	assert.JSONEq(t, `{"transactions":[],"count":0}`, buf.String())
}

func TestJSONExport_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON{Indent: true}.Export(&buf, sample()))

	var listing Listing
	require.NoError(t, json.Unmarshal(buf.Bytes(), &listing))
	require.Len(t, listing.Transactions, 2)
	assert.True(t, decimal.RequireFromString("42.10").Equal(listing.Transactions[0].Amount))
	assert.True(t, sample()[0].CreatedAt.Equal(listing.Transactions[0].CreatedAt))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "csv", CSV{}.Name())
	assert.Equal(t, "json", JSON{}.Name())
	assert.Contains(t, CSV{}.ContentType(), "text/csv")
	assert.Equal(t, "application/json", JSON{}.ContentType())
}
