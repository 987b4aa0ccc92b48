package view

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a rupee amount with Indian digit grouping, e.g.
// ₹12,34,567.50.
func FormatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}

	return sign + "₹" + groupIndian(whole) + "." + frac
}

// groupIndian groups the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}

	if head != "" {
		parts = append([]string{head}, parts...)
	}

	return strings.Join(parts, ",") + "," + tail
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c*100, 'f', 0, 64) + "%"
}
