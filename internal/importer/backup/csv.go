package backup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	senderColumns = []string{"address", "sender", "from", "number"}
	bodyColumns   = []string{"body", "message", "text", "sms"}
	dateColumns   = []string{"date", "time", "timestamp", "received"}
)

var csvDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
}

var ErrNoBodyColumn = errors.New("csv export has no message column")

// CSVReader reads spreadsheet style exports. The header row is located by
// name, so leading banner rows and column order do not matter.
type CSVReader struct{}

func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

func (c *CSVReader) Parse(r io.Reader) ([]Message, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	idxSender, idxBody, idxDate := -1, -1, -1
	headerFound := false

	var msgs []Message

	for _, row := range rows {
		if !headerFound {
			idxSender, idxBody, idxDate = -1, -1, -1

			for i, col := range row {
				name := strings.ToLower(strings.TrimSpace(col))

				switch {
				case idxSender < 0 && contains(senderColumns, name):
					idxSender = i
				case idxBody < 0 && contains(bodyColumns, name):
					idxBody = i
				case idxDate < 0 && contains(dateColumns, name):
					idxDate = i
				}
			}

			headerFound = idxBody >= 0

			continue
		}

		body := strings.TrimSpace(field(row, idxBody))
		if body == "" {
			continue
		}

		msgs = append(msgs, Message{
			Sender:     strings.TrimSpace(field(row, idxSender)),
			Body:       body,
			ReceivedAt: parseCSVDate(field(row, idxDate)),
		})
	}

	if !headerFound {
		return nil, ErrNoBodyColumn
	}

	return msgs, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return row[idx]
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}

func parseCSVDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	if t := parseEpochMillis(s); !t.IsZero() {
		return t
	}

	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
