package parser

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2-Jan-06",
	"2-Jan-2006",
	"2/Jan/06",
	"2/Jan/2006",
	"2 Jan 06",
	"2 Jan 2006",
	"2Jan06",
	"2Jan2006",
	"2-1-2006",
	"2-1-06",
	"2/1/2006",
	"2/1/06",
}

// parseDate tries every known bank layout in loc. Numeric dates are read
// day-first, as Indian banks write them.
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func (p *Parser) extractDate(tmpl *BankPattern, text string) time.Time {
	if tmpl.DatePattern == nil {
		return p.now()
	}

	m := tmpl.DatePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return p.now()
	}

	t, ok := parseDate(m[1], p.loc)
	if !ok {
		return p.now()
	}

	return t
}
