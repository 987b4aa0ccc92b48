package backup

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const maxLineLen = 64 * 1024

// TextReader reads plain text dumps where messages are separated by one or
// more blank lines. Lines within a message are joined with a space.
type TextReader struct{}

func NewTextReader() *TextReader {
	return &TextReader{}
}

func (t *TextReader) Parse(r io.Reader) ([]Message, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLen)

	var (
		msgs  []Message
		lines []string
	)

	flush := func() {
		if len(lines) > 0 {
			msgs = append(msgs, Message{Body: strings.Join(lines, " ")})
			lines = lines[:0]
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}

		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}

	flush()

	return msgs, nil
}
