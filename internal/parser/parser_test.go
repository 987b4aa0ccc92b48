package parser_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/smsledger/internal/parser"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, parser.IST)

func newParser(opts ...parser.Option) *parser.Parser {
	opts = append([]parser.Option{parser.WithClock(func() time.Time { return fixedNow })}, opts...)
	return parser.New(opts...)
}

func TestParser_Parse_HDFCDebit(t *testing.T) {
	msg := "HDFC Bank: Rs.500.00 debited from A/C **1234 on 15-Dec-23 at SWIGGY BANGALORE. Avl Bal: Rs.10,000.00"

	tx, ok := newParser().Parse(msg)
	require.True(t, ok)

	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("500.00")))
	assert.Equal(t, int64(50000), tx.Paise())
	assert.Equal(t, parser.DirectionDebit, tx.Direction)
	assert.Equal(t, "SWIGGY BANGALORE", tx.Merchant)
	assert.Equal(t, "Food & Dining", tx.Category)
	assert.Equal(t, "HDFC Bank", tx.Bank)
	assert.Equal(t, time.Date(2023, 12, 15, 0, 0, 0, 0, parser.IST), tx.OccurredAt)
	assert.Equal(t, "Payment of ₹500.00 at SWIGGY BANGALORE", tx.Description)
	assert.Equal(t, msg, tx.RawText)
	assert.GreaterOrEqual(t, tx.Confidence, 0.8)
	assert.InDelta(t, 1.0, tx.Confidence, 1e-9)
}

func TestParser_Parse(t *testing.T) {
	type want struct {
		amount        string
		direction     parser.Direction
		merchant      string
		category      string
		bank          string
		paymentMethod string
		occurredAt    time.Time
		description   string
		confidence    float64
	}

	type testCase struct {
		name string
		msg  string
		want *want
	}

	tests := []testCase{
		{
			name: "GenericCreditFromUPI",
			msg:  "Rs.1,250.50 credited to your A/c XX1234 by UPI from RAHUL on 05-Jan-24",
			want: &want{
				amount:        "1250.50",
				direction:     parser.DirectionCredit,
				merchant:      "RAHUL",
				category:      parser.DefaultCategory,
				bank:          "Generic Bank",
				paymentMethod: parser.PaymentUPI,
				occurredAt:    time.Date(2024, 1, 5, 0, 0, 0, 0, parser.IST),
				description:   "Received of ₹1250.50 at RAHUL",
				confidence:    1.0,
			},
		},
		{
			name: "ICICISemicolonMerchant",
			msg:  "ICICI Bank Acct XX123 debited for Rs 1,200.00 on 12-Feb-24; AMAZON PAY credited. UPI:12345",
			want: &want{
				amount:        "1200",
				direction:     parser.DirectionDebit,
				merchant:      "AMAZON PAY",
				category:      "Shopping",
				bank:          "ICICI Bank",
				paymentMethod: parser.PaymentUPI,
				occurredAt:    time.Date(2024, 2, 12, 0, 0, 0, 0, parser.IST),
				description:   "Payment of ₹1200.00 at AMAZON PAY",
				confidence:    1.0,
			},
		},
		{
			name: "NoTypeKeywordDefaultsToDebit",
			msg:  "Your a/c XX5678 Rs 250 transaction at ABC STORE",
			want: &want{
				amount:        "250",
				direction:     parser.DirectionDebit,
				merchant:      "ABC STORE",
				category:      parser.DefaultCategory,
				bank:          "Generic Bank",
				paymentMethod: parser.PaymentBankTransfer,
				occurredAt:    fixedNow,
				description:   "Payment of ₹250.00 at ABC STORE",
				confidence:    0.5 + 0.3*2.0/3.0 + 0.2,
			},
		},
		{
			name: "NoMerchantCategorizesFullText",
			msg:  "Rs 2,000 withdrawn at ATM from your a/c on 2024-02-20",
			want: &want{
				amount:        "2000",
				direction:     parser.DirectionDebit,
				merchant:      "",
				category:      "Cash Withdrawal",
				bank:          "Generic Bank",
				paymentMethod: parser.PaymentCash,
				occurredAt:    time.Date(2024, 2, 20, 0, 0, 0, 0, parser.IST),
				description:   "Payment of ₹2000.00",
				confidence:    1.0,
			},
		},
		{
			name: "OTPIsNotATransaction",
			msg:  "Your OTP for login is 482913. Do not share it with anyone.",
			want: nil,
		},
		{
			name: "BankWithoutAmount",
			msg:  "HDFC Bank: your e-statement for December is ready",
			want: nil,
		},
		{
			name: "ZeroAmount",
			msg:  "Rs 0 debited from your a/c",
			want: nil,
		},
		{
			name: "Blank",
			msg:  "   ",
			want: nil,
		},
	}

	p := newParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := p.Parse(tt.msg)
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, tx)

				return
			}

			require.True(t, ok)
			assert.True(t, tx.Amount.Equal(decimal.RequireFromString(tt.want.amount)), "amount %s", tx.Amount)
			assert.Equal(t, tt.want.direction, tx.Direction)
			assert.Equal(t, tt.want.merchant, tx.Merchant)
			assert.Equal(t, tt.want.category, tx.Category)
			assert.Equal(t, tt.want.bank, tx.Bank)
			assert.Equal(t, tt.want.paymentMethod, tx.PaymentMethod)
			assert.True(t, tt.want.occurredAt.Equal(tx.OccurredAt), "occurredAt %s", tx.OccurredAt)
			assert.Equal(t, tt.want.description, tx.Description)
			assert.InDelta(t, tt.want.confidence, tx.Confidence, 1e-9)
		})
	}
}

func TestParser_Parse_Idempotent(t *testing.T) {
	p := newParser()

	msgs := []string{
		"HDFC Bank: Rs.500.00 debited from A/C **1234 on 15-Dec-23 at SWIGGY BANGALORE. Avl Bal: Rs.10,000.00",
		"Your a/c XX5678 Rs 250 transaction at ABC STORE",
		"Your OTP for login is 482913.",
	}

	for _, msg := range msgs {
		first, ok1 := p.Parse(msg)
		second, ok2 := p.Parse(msg)

		assert.Equal(t, ok1, ok2)
		assert.Equal(t, first, second)
	}
}

func TestParser_Parse_ConfidenceBounds(t *testing.T) {
	p := newParser()

	msgs := []string{
		"HDFC Bank: Rs.500.00 debited from A/C **1234 on 15-Dec-23 at SWIGGY BANGALORE.",
		"Your a/c XX5678 Rs 250 transaction at ABC STORE",
		"SBI: Rs 25,00,000 sent to BUILDER ESTATES on 01-01-24",
		"Kotak Bank: Sent Rs.49.00 from a/c x9876 to zomato@upi on 03-03-24",
		"Axis Bank: INR 120.00 spent on card XX4321",
	}

	for _, msg := range msgs {
		tx, ok := p.Parse(msg)
		require.True(t, ok, msg)
		assert.GreaterOrEqual(t, tx.Confidence, 0.5, msg)
		assert.LessOrEqual(t, tx.Confidence, 1.0, msg)
	}
}

func TestParser_Parse_LargeAmountLosesRangeBonus(t *testing.T) {
	tx, ok := newParser().Parse("SBI: Rs 25,00,000 sent to BUILDER ESTATES on 01-01-24")
	require.True(t, ok)

	assert.Equal(t, "State Bank of India", tx.Bank)
	assert.Equal(t, int64(250000000), tx.Paise())
	// One of three triggers, no range bonus, keyword found.
	assert.InDelta(t, 0.5+0.3/3.0+0.2, tx.Confidence, 1e-9)
}

func TestParser_Parse_RegistryPrecedence(t *testing.T) {
	msg := "HDFC Bank: Rs.500.00 debited from A/C **1234 on 15-Dec-23 at SWIGGY BANGALORE."

	tx, ok := newParser().Parse(msg)
	require.True(t, ok)
	assert.Equal(t, "HDFC Bank", tx.Bank)

	reordered := parser.NewRegistry(parser.GenericPattern())
	tx, ok = newParser(parser.WithRegistry(reordered)).Parse(msg)
	require.True(t, ok)
	assert.Equal(t, "Generic Bank", tx.Bank)
}

func TestParser_Parse_MaskedAccountKeepsSenderBank(t *testing.T) {
	type testCase struct {
		name string
		msg  string
		bank string
	}

	tests := []testCase{
		{name: "SBI", msg: "SBI: Rs 100 debited from A/c **1234 to RAMESH on 01-01-24", bank: "State Bank of India"},
		{name: "Kotak", msg: "Kotak Bank: Rs 49 debited from a/c **9876 to zomato@upi on 03-03-24", bank: "Kotak Mahindra Bank"},
		{name: "Axis", msg: "Axis Bank: INR 120.00 spent on A/c **4321", bank: "Axis Bank"},
		{name: "AxisCard", msg: "Axis Bank: INR 120.00 spent on card XX4321", bank: "Axis Bank"},
		{name: "Unbranded", msg: "Rs 75 debited from A/c **1234", bank: "Generic Bank"},
	}

	p := newParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := p.Parse(tt.msg)
			require.True(t, ok)
			assert.Equal(t, tt.bank, tx.Bank)
		})
	}
}

func TestParser_Parse_DateFallsBackToClock(t *testing.T) {
	tx, ok := newParser().Parse("HDFC Bank: Rs.99 debited from A/C **1234 on 99-Foo-23 at CAFE COFFEE DAY.")
	require.True(t, ok)

	assert.Equal(t, fixedNow, tx.OccurredAt)
	assert.Equal(t, "Food & Dining", tx.Category)
}

func TestParser_Parse_Location(t *testing.T) {
	tx, ok := newParser(parser.WithLocation(time.UTC)).Parse("Rs 10 debited from your a/c on 2024-01-02")
	require.True(t, ok)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), tx.OccurredAt)
}

func TestParser_ParseMany_OrdersNewestFirst(t *testing.T) {
	m1 := "Rs 100 debited from your a/c on 2024-01-03"
	m2 := "Rs 200 debited from your a/c on 2024-01-01"
	m3 := "Rs 300 debited from your a/c on 2024-01-02"

	txs := newParser().ParseMany([]string{m1, "not a bank message", m2, m3})
	require.Len(t, txs, 3)

	assert.Equal(t, m1, txs[0].RawText)
	assert.Equal(t, m3, txs[1].RawText)
	assert.Equal(t, m2, txs[2].RawText)
}

func TestParser_ParseMany_Empty(t *testing.T) {
	assert.Empty(t, newParser().ParseMany(nil))
}

func TestParsedTransaction_WithCategory(t *testing.T) {
	tx, ok := newParser().Parse("Your a/c XX5678 Rs 250 transaction at ABC STORE")
	require.True(t, ok)

	derived := tx.WithCategory("Groceries")

	assert.Equal(t, "Groceries", derived.Category)
	assert.Equal(t, parser.DefaultCategory, tx.Category)
	assert.Equal(t, tx.Description, derived.Description)
}

func TestCategorize(t *testing.T) {
	tests := map[string]string{
		"Uber India":      "Transportation",
		"AMAZON PRIME":    "Entertainment",
		"amazon.in":       "Shopping",
		"ATM WDL":         "Cash Withdrawal",
		"zomato@upi":      "Food & Dining",
		"Some Local Shop": parser.DefaultCategory,
	}

	for in, want := range tests {
		assert.Equal(t, want, parser.Categorize(in), in)
	}
}

func TestLooksLikeBankSMS(t *testing.T) {
	assert.True(t, parser.LooksLikeBankSMS("VM-HDFCBK", "anything"))
	assert.True(t, parser.LooksLikeBankSMS("+919999999999", "Rs 10 debited from a/c"))
	assert.False(t, parser.LooksLikeBankSMS("+919999999999", "see you at dinner"))
}

func TestRegistry_FindMatchingTemplate(t *testing.T) {
	r := parser.DefaultRegistry()

	assert.Equal(t, []string{
		"HDFC Bank", "ICICI Bank", "State Bank of India", "Axis Bank", "Kotak Mahindra Bank", "Generic Bank",
	}, r.Names())

	tmpl, ok := r.FindMatchingTemplate("KOTAK BANK: Rs 10 sent")
	require.True(t, ok)
	assert.Equal(t, "Kotak Mahindra Bank", tmpl.Name)

	_, ok = r.FindMatchingTemplate("hello there")
	assert.False(t, ok)
}
