package parser

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountCeiling = decimal.NewFromInt(1_000_000)

// parseAmount parses an Indian-formatted amount ("1,23,456.78") after
// stripping grouping commas.
func parseAmount(s string) (decimal.Decimal, bool) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, false
	}

	return d, true
}

// ToPaise converts a rupee amount to integer paise, rounding half away from zero.
func ToPaise(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromPaise is the inverse of ToPaise.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}
