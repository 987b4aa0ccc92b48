package parser

import "sort"

// ParseMany parses every message independently, drops the ones that yield no
// candidate and returns the rest newest first. Messages with equal dates keep
// their input order.
func (p *Parser) ParseMany(messages []string) []*ParsedTransaction {
	out := make([]*ParsedTransaction, 0, len(messages))

	for _, msg := range messages {
		if tx, ok := p.Parse(msg); ok {
			out = append(out, tx)
		}
	}

	SortNewestFirst(out)

	return out
}

// SortNewestFirst orders candidates by OccurredAt descending, stable.
func SortNewestFirst(txs []*ParsedTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].OccurredAt.After(txs[j].OccurredAt)
	})
}
