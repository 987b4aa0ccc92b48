package parser

import (
	"regexp"
	"strings"
)

// TypeIndicators are the keywords that decide whether a message describes
// money leaving (Debit) or entering (Credit) the account.
type TypeIndicators struct {
	Debit  []string
	Credit []string
}

// BankPattern describes how one bank phrases its transaction SMS. All
// expressions run against the trimmed, lower-cased message text.
type BankPattern struct {
	Name            string
	TriggerPatterns []*regexp.Regexp
	AmountPattern   *regexp.Regexp
	MerchantPattern *regexp.Regexp // optional
	DatePattern     *regexp.Regexp // optional
	TypeIndicators  TypeIndicators
}

// Matches reports whether at least one trigger pattern matches text.
func (p *BankPattern) Matches(text string) bool {
	for _, re := range p.TriggerPatterns {
		if re.MatchString(text) {
			return true
		}
	}

	return false
}

// triggerRatio is the fraction of trigger patterns that match text.
func (p *BankPattern) triggerRatio(text string) float64 {
	if len(p.TriggerPatterns) == 0 {
		return 0
	}

	matched := 0

	for _, re := range p.TriggerPatterns {
		if re.MatchString(text) {
			matched++
		}
	}

	return float64(matched) / float64(len(p.TriggerPatterns))
}

// direction scans debit keywords before credit keywords. The second return
// value is false when neither list matched and the debit default was used.
func (p *BankPattern) direction(text string) (Direction, bool) {
	if containsAny(text, p.TypeIndicators.Debit) {
		return DirectionDebit, true
	}

	if containsAny(text, p.TypeIndicators.Credit) {
		return DirectionCredit, true
	}

	return DirectionDebit, false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	return false
}
