package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// ParsedTransaction is a candidate extracted from one SMS. Values are never
// mutated once returned; use the With* helpers to derive a changed copy.
type ParsedTransaction struct {
	Amount        decimal.Decimal
	Direction     Direction
	Merchant      string
	Category      string
	PaymentMethod string
	OccurredAt    time.Time
	Description   string
	RawText       string
	Confidence    float64
	Bank          string
}

// Paise returns the amount in integer paise as stored by the ledger.
func (p *ParsedTransaction) Paise() int64 {
	return ToPaise(p.Amount)
}

// HasMerchant reports whether a merchant was extracted.
func (p *ParsedTransaction) HasMerchant() bool {
	return p.Merchant != ""
}

// WithCategory returns a copy of p filed under category.
func (p *ParsedTransaction) WithCategory(category string) *ParsedTransaction {
	cp := *p
	cp.Category = category

	return &cp
}

const (
	baseConfidence   = 0.5
	triggerWeight    = 0.3
	amountBonus      = 0.2
	typeKeywordBonus = 0.2
	maxConfidence    = 1.0
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Fragments that mean the merchant regex captured account boilerplate.
	merchantStopPrefixes = []string{"your ", "a/c", "ac ", "account", "acct"}
)

// Parser turns bank SMS text into ParsedTransaction candidates. A Parser is
// immutable and safe for concurrent use.
type Parser struct {
	registry *Registry
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Parser)

// WithRegistry replaces the default bank templates.
func WithRegistry(r *Registry) Option {
	return func(p *Parser) {
		p.registry = r
	}
}

// WithLocation sets the zone dates without an offset are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock sets the fallback time source used when a message carries no
// readable date.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// IST is the default parsing location.
var IST = time.FixedZone("IST", 5*60*60+30*60)

func New(opts ...Option) *Parser {
	p := &Parser{
		registry: DefaultRegistry(),
		loc:      IST,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse extracts a candidate from raw. The boolean is false for messages that
// do not describe a transaction; that is an expected outcome, not an error.
func (p *Parser) Parse(raw string) (*ParsedTransaction, bool) {
	original := strings.TrimSpace(raw)
	text := strings.ToLower(original)

	if text == "" {
		return nil, false
	}

	tmpl, ok := p.registry.FindMatchingTemplate(text)
	if !ok {
		return nil, false
	}

	m := tmpl.AmountPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil, false
	}

	amount, ok := parseAmount(m[1])
	if !ok || !amount.IsPositive() {
		return nil, false
	}

	direction, keyword := tmpl.direction(text)
	merchant := extractMerchant(tmpl, text, original)

	categorySource := text
	if merchant != "" {
		categorySource = merchant
	}

	tx := &ParsedTransaction{
		Amount:        amount,
		Direction:     direction,
		Merchant:      merchant,
		Category:      Categorize(categorySource),
		PaymentMethod: detectPaymentMethod(text),
		OccurredAt:    p.extractDate(tmpl, text),
		RawText:       original,
		Confidence:    confidence(tmpl, text, amount, keyword),
		Bank:          tmpl.Name,
	}
	tx.Description = describe(tx)

	return tx, true
}

func confidence(tmpl *BankPattern, text string, amount decimal.Decimal, keyword bool) float64 {
	score := baseConfidence + triggerWeight*tmpl.triggerRatio(text)

	if amount.IsPositive() && amount.LessThan(amountCeiling) {
		score += amountBonus
	}

	if keyword {
		score += typeKeywordBonus
	}

	return min(maxConfidence, score)
}

func extractMerchant(tmpl *BankPattern, lower, original string) string {
	if tmpl.MerchantPattern == nil {
		return ""
	}

	idx := tmpl.MerchantPattern.FindStringSubmatchIndex(lower)
	if len(idx) < 4 || idx[2] < 0 {
		return ""
	}

	// Lower-casing can change byte lengths for some scripts; only slice the
	// original when offsets still line up.
	src := lower
	if len(original) == len(lower) {
		src = original
	}

	merchant := whitespaceRe.ReplaceAllString(strings.TrimSpace(src[idx[2]:idx[3]]), " ")
	merchant = strings.TrimRight(merchant, ".-, ")

	check := strings.ToLower(merchant)
	for _, prefix := range merchantStopPrefixes {
		if strings.HasPrefix(check, prefix) {
			return ""
		}
	}

	return merchant
}

func describe(tx *ParsedTransaction) string {
	verb := "Payment"
	if tx.Direction == DirectionCredit {
		verb = "Received"
	}

	desc := verb + " of ₹" + tx.Amount.StringFixed(2)
	if tx.Merchant != "" {
		desc += " at " + tx.Merchant
	}

	return desc
}

// ReceivedAt returns a copy of p whose fallback time is t, for messages whose
// delivery time is known.
func (p *Parser) ReceivedAt(t time.Time) *Parser {
	cp := *p
	cp.now = func() time.Time { return t }

	return &cp
}
