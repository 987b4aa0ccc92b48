package importer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/smsledger/internal/encoding"
	"github.com/MrJamesThe3rd/smsledger/internal/importer/backup"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
)

const sniffLen = 512

var ErrTooManyMessages = errors.New("backup holds more messages than allowed")

type Service struct {
	importers   map[Format]Importer
	maxMessages int
}

// NewService returns a Service that rejects backups with more than
// maxMessages bank messages. Zero means no limit.
func NewService(maxMessages int) *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatXML:  backup.NewXMLReader(),
			FormatCSV:  backup.NewCSVReader(),
			FormatText: backup.NewTextReader(),
		},
		maxMessages: maxMessages,
	}
}

// Import reads a backup in the given format, guessing it for FormatAuto, and
// returns only the messages that look like bank traffic.
func (s *Service) Import(format Format, r io.Reader) ([]Message, error) {
	utf8, _, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	br := bufio.NewReader(utf8)

	if format == FormatAuto {
		format = detectFormat(br)
	}

	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	msgs, err := importer.Parse(br)
	if err != nil {
		return nil, err
	}

	bank := FilterBankMessages(msgs)

	if s.maxMessages > 0 && len(bank) > s.maxMessages {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyMessages, len(bank), s.maxMessages)
	}

	return bank, nil
}

// FilterBankMessages keeps messages whose sender or text looks like a bank
// notification.
func FilterBankMessages(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))

	for _, m := range msgs {
		if parser.LooksLikeBankSMS(m.Sender, m.Body) {
			out = append(out, m)
		}
	}

	return out
}

func detectFormat(br *bufio.Reader) Format {
	head, _ := br.Peek(sniffLen)
	head = bytes.TrimLeft(head, " \t\r\n")

	if bytes.HasPrefix(head, []byte("<")) {
		return FormatXML
	}

	firstLine, _, _ := strings.Cut(strings.ToLower(string(head)), "\n")
	if strings.Contains(firstLine, ",") &&
		(strings.Contains(firstLine, "body") || strings.Contains(firstLine, "message")) {
		return FormatCSV
	}

	return FormatText
}
