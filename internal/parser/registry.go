package parser

import "strings"

// Registry is an ordered, immutable list of bank templates.
//
// Order is part of the contract: FindMatchingTemplate returns the first
// template whose triggers match, so bank-specific templates must be
// registered before the generic fallback or they will never be selected.
type Registry struct {
	patterns []*BankPattern
}

// NewRegistry builds a registry that tries patterns in the given order.
func NewRegistry(patterns ...*BankPattern) *Registry {
	return &Registry{patterns: append([]*BankPattern(nil), patterns...)}
}

// FindMatchingTemplate returns the first template matching the lower-cased
// text, or false when none does.
func (r *Registry) FindMatchingTemplate(text string) (*BankPattern, bool) {
	lower := strings.ToLower(text)

	for _, p := range r.patterns {
		if p.Matches(lower) {
			return p, true
		}
	}

	return nil, false
}

// Names lists template names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		names[i] = p.Name
	}

	return names
}
