package parser

import "strings"

// DefaultCategory is assigned when no keyword in the table matches.
const DefaultCategory = "Other"

type categoryKeyword struct {
	keyword  string
	category string
}

// categoryTable is searched top to bottom and the first hit wins, so longer
// or more specific keywords sit above the short ones they contain.
var categoryTable = []categoryKeyword{
	// Food & Dining
	{"swiggy", "Food & Dining"},
	{"zomato", "Food & Dining"},
	{"dominos", "Food & Dining"},
	{"mcdonald", "Food & Dining"},
	{"kfc", "Food & Dining"},
	{"pizza", "Food & Dining"},
	{"starbucks", "Food & Dining"},
	{"restaurant", "Food & Dining"},
	{"cafe", "Food & Dining"},

	// Groceries
	{"bigbasket", "Groceries"},
	{"blinkit", "Groceries"},
	{"zepto", "Groceries"},
	{"dmart", "Groceries"},
	{"grofers", "Groceries"},
	{"reliance fresh", "Groceries"},

	// Transportation
	{"uber", "Transportation"},
	{"ola", "Transportation"},
	{"rapido", "Transportation"},
	{"irctc", "Transportation"},
	{"redbus", "Transportation"},
	{"indigo", "Transportation"},
	{"metro", "Transportation"},
	{"fastag", "Transportation"},
	{"petrol", "Transportation"},
	{"fuel", "Transportation"},

	// Entertainment (above Shopping so "amazon prime" is not filed as shopping)
	{"netflix", "Entertainment"},
	{"hotstar", "Entertainment"},
	{"spotify", "Entertainment"},
	{"bookmyshow", "Entertainment"},
	{"amazon prime", "Entertainment"},
	{"pvr", "Entertainment"},

	// Shopping
	{"amazon", "Shopping"},
	{"flipkart", "Shopping"},
	{"myntra", "Shopping"},
	{"ajio", "Shopping"},
	{"nykaa", "Shopping"},
	{"meesho", "Shopping"},

	// Bills & Utilities
	{"electricity", "Bills & Utilities"},
	{"bescom", "Bills & Utilities"},
	{"airtel", "Bills & Utilities"},
	{"jio", "Bills & Utilities"},
	{"vodafone", "Bills & Utilities"},
	{"broadband", "Bills & Utilities"},
	{"recharge", "Bills & Utilities"},
	{"bill", "Bills & Utilities"},

	// Healthcare
	{"apollo", "Healthcare"},
	{"pharmacy", "Healthcare"},
	{"medplus", "Healthcare"},
	{"hospital", "Healthcare"},
	{"1mg", "Healthcare"},

	// Income
	{"salary", "Salary"},
	{"interest", "Interest"},

	// Cash
	{"atm", "Cash Withdrawal"},
}

// Categorize returns the category of the first table keyword found in text
// (case-insensitive substring match), or DefaultCategory.
func Categorize(text string) string {
	lower := strings.ToLower(text)

	for _, c := range categoryTable {
		if strings.Contains(lower, c.keyword) {
			return c.category
		}
	}

	return DefaultCategory
}

// Payment methods stored on ledger rows.
const (
	PaymentUPI          = "upi"
	PaymentCash         = "cash"
	PaymentNetBanking   = "net_banking"
	PaymentCard         = "card"
	PaymentBankTransfer = "bank_transfer"
)

func detectPaymentMethod(text string) string {
	switch {
	case containsAny(text, []string{"upi", "vpa"}):
		return PaymentUPI
	case containsAny(text, []string{"atm", "withdrawn", "cash withdrawal"}):
		return PaymentCash
	case containsAny(text, []string{"neft", "imps", "rtgs", "netbanking", "net banking"}):
		return PaymentNetBanking
	case containsAny(text, []string{"card"}):
		return PaymentCard
	default:
		return PaymentBankTransfer
	}
}
