package backup

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// smsTypeInbox marks a received message in SMS Backup & Restore exports.
const smsTypeInbox = "1"

type xmlSMS struct {
	Address string `xml:"address,attr"`
	Body    string `xml:"body,attr"`
	Date    string `xml:"date,attr"`
	Type    string `xml:"type,attr"`
}

// XMLReader reads the <smses><sms .../></smses> layout written by SMS Backup &
// Restore. Sent messages are dropped.
type XMLReader struct{}

func NewXMLReader() *XMLReader {
	return &XMLReader{}
}

func (x *XMLReader) Parse(r io.Reader) ([]Message, error) {
	dec := xml.NewDecoder(r)
	// Input has already been decoded to UTF-8, whatever the prolog says.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	// Backup apps write emoji as surrogate pair entities, which strict mode
	// rejects.
	dec.Strict = false

	var msgs []Message

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "sms" {
			continue
		}

		var s xmlSMS
		if err := dec.DecodeElement(&s, &start); err != nil {
			return nil, fmt.Errorf("failed to decode sms element: %w", err)
		}

		if s.Type != "" && s.Type != smsTypeInbox {
			continue
		}

		body := strings.TrimSpace(s.Body)
		if body == "" {
			continue
		}

		msgs = append(msgs, Message{
			Sender:     strings.TrimSpace(s.Address),
			Body:       body,
			ReceivedAt: parseEpochMillis(s.Date),
		})
	}

	return msgs, nil
}

func parseEpochMillis(s string) time.Time {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}
