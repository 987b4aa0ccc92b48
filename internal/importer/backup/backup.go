// Package backup reads SMS exports produced by phone backup apps.
package backup

import "time"

// Message is one received SMS from a backup file. ReceivedAt is zero when the
// export carries no timestamp.
type Message struct {
	Sender     string
	Body       string
	ReceivedAt time.Time
}

// Bodies returns the message texts in order.
func Bodies(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Body
	}

	return out
}
