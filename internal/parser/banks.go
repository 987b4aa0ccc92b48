package parser

import (
	"regexp"
	"strings"
)

// Shared fragments. Everything is matched against lower-cased text.
const (
	amountExpr   = `(?:rs\.?|inr|₹)\s*([\d,]+(?:\.\d+)?)`
	tailAlts     = `\.\s|\.$|\s+on\s|\s+avl|\s+ref|\s*\(|,|;|$`
	merchantTail = `(?:` + tailAlts + `)`
	merchantBody = `([a-z0-9][a-z0-9@&'._\- ]*?)`
	onDateExpr   = `\bon\s+(\d{1,2}[-/ ]?[a-z]{3}[-/ ]?\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`
)

var defaultIndicators = TypeIndicators{
	Debit:  []string{"debited", "debit", "spent", "withdrawn", "withdrawal", "paid", "sent", "purchase", "charged"},
	Credit: []string{"credited", "credit", "received", "deposited", "refund", "cashback", "reversed"},
}

func res(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}

	return out
}

var (
	hdfcPattern = &BankPattern{
		Name:            "HDFC Bank",
		TriggerPatterns: res(`hdfc\s*bank`, `\bhdfc\b`),
		AmountPattern:   regexp.MustCompile(amountExpr),
		MerchantPattern: regexp.MustCompile(`\b(?:at|to vpa|to)\s+` + merchantBody + merchantTail),
		DatePattern:     regexp.MustCompile(onDateExpr),
		TypeIndicators:  defaultIndicators,
	}

	iciciPattern = &BankPattern{
		Name:            "ICICI Bank",
		TriggerPatterns: res(`icici\s*bank`, `\bicici\b`),
		AmountPattern:   regexp.MustCompile(amountExpr),
		MerchantPattern: regexp.MustCompile(`(?:\bat\s+|;\s*)` + merchantBody + `(?:\s+credited|` + tailAlts + `)`),
		DatePattern:     regexp.MustCompile(onDateExpr),
		TypeIndicators:  defaultIndicators,
	}

	sbiPattern = &BankPattern{
		Name:            "State Bank of India",
		TriggerPatterns: res(`\bsbi\b`, `state bank of india`, `\bsbi(?:inb|psg|upi)\b`),
		AmountPattern:   regexp.MustCompile(amountExpr),
		MerchantPattern: regexp.MustCompile(`\b(?:transfer to|trf to|to|at|from)\s+([a-z][a-z0-9@&'._\- ]*?)(?:\s*-\s*sbi|` + tailAlts + `)`),
		DatePattern:     regexp.MustCompile(onDateExpr),
		TypeIndicators:  defaultIndicators,
	}

	axisPattern = &BankPattern{
		Name:            "Axis Bank",
		TriggerPatterns: res(`axis\s*bank`, `\baxis\b`),
		AmountPattern:   regexp.MustCompile(amountExpr),
		MerchantPattern: regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}\s+(?:upi/p2[am]/\d+/)?` + merchantBody + `\s+(?:ind\b|avl|not you|sms)`),
		DatePattern:     regexp.MustCompile(`\b(\d{2}-\d{2}-\d{2,4})\b`),
		TypeIndicators:  defaultIndicators,
	}

	kotakPattern = &BankPattern{
		Name:            "Kotak Mahindra Bank",
		TriggerPatterns: res(`\bkotak\b`, `kotak\s*(?:mahindra\s*)?bank`),
		AmountPattern:   regexp.MustCompile(amountExpr),
		MerchantPattern: regexp.MustCompile(`\b(?:to|from)\s+((?:[a-z0-9._\-]+@[a-z0-9]+)|(?:[a-z][a-z&' ]*?))\s+on\s+\d`),
		DatePattern:     regexp.MustCompile(onDateExpr),
		TypeIndicators:  defaultIndicators,
	}

	genericPattern = &BankPattern{
		Name: "Generic Bank",
		TriggerPatterns: res(
			`\b(?:debited|credited|spent|withdrawn|deposited|received|paid|sent)\b`,
			`(?:rs\.?|inr|₹)\s*[\d,]+`,
			`(?:\ba/c\b|\bacct\b|\baccount\b|\bcard\b)`,
		),
		AmountPattern:   regexp.MustCompile(amountExpr),
		MerchantPattern: regexp.MustCompile(`\b(?:at|to|towards|from|via)\s+([a-z][a-z0-9@&'._\- ]*?)` + merchantTail),
		DatePattern:     regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|\d{1,2}[-/ ][a-z]{3}[-/ ]\d{2,4}|\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
		TypeIndicators:  defaultIndicators,
	}
)

var defaultRegistry = NewRegistry(
	hdfcPattern,
	iciciPattern,
	sbiPattern,
	axisPattern,
	kotakPattern,
	genericPattern, // must stay last
)

// DefaultRegistry returns the built-in Indian bank templates, generic fallback last.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// GenericPattern is the fallback template of the default registry.
func GenericPattern() *BankPattern {
	return genericPattern
}

var bankKeywords = []string{
	"bank", "hdfc", "icici", "sbi", "axis", "kotak", "pnb", "yesbnk", "idfc", "indusind", "paytm",
	"a/c", "acct", "debited", "credited", "upi", "neft", "imps", "avl bal", "avl lmt",
}

// LooksLikeBankSMS is the cheap pre-filter applied to inbound traffic before
// full parsing: the sender id or the body must mention a bank keyword.
func LooksLikeBankSMS(sender, message string) bool {
	return containsAny(strings.ToLower(sender), bankKeywords) ||
		containsAny(strings.ToLower(message), bankKeywords)
}
