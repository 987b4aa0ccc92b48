package view_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/smsledger/cmd/smsctl/internal/view"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
)

func TestFormatAmount(t *testing.T) {
	type testCase struct {
		in   string
		want string
	}

	tests := []testCase{
		{in: "0", want: "₹0.00"},
		{in: "500", want: "₹500.00"},
		{in: "1250.5", want: "₹1,250.50"},
		{in: "99999.99", want: "₹99,999.99"},
		{in: "1234567.5", want: "₹12,34,567.50"},
		{in: "-2000", want: "-₹2,000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, view.FormatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatConfidence(t *testing.T) {
	assert.Equal(t, "85%", view.FormatConfidence(0.85))
	assert.Equal(t, "100%", view.FormatConfidence(1))
}

func TestRenderTable(t *testing.T) {
	txs := []*parser.ParsedTransaction{
		{
			Amount:        decimal.RequireFromString("500"),
			Direction:     parser.DirectionDebit,
			Merchant:      "SWIGGY",
			Category:      "Food & Dining",
			PaymentMethod: parser.PaymentUPI,
			OccurredAt:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Confidence:    0.9,
			Bank:          "HDFC Bank",
		},
		{
			Amount:     decimal.RequireFromString("20"),
			Direction:  parser.DirectionCredit,
			Category:   "Other",
			OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Confidence: 0.5,
			Bank:       "Generic Bank",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, view.RenderTable(&buf, view.Rows(txs, 0.7)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "2024-01-02")
	assert.Contains(t, lines[1], "SWIGGY")
	assert.Contains(t, lines[1], "₹500.00")
	assert.Contains(t, lines[2], "Generic Bank")

	summary := view.Summary(txs, 3, 0.7)
	assert.Contains(t, summary, "1 at or above 70%")
	assert.Contains(t, summary, "₹500.00")
	assert.Contains(t, summary, "₹20.00")
}
