package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names reported by NewUTF8Reader.
const (
	CharsetUTF8        = "UTF-8"
	CharsetUTF16LE     = "UTF-16LE"
	CharsetUTF16BE     = "UTF-16BE"
	CharsetISO88591    = "ISO-8859-1"
	CharsetISO885915   = "ISO-8859-15"
	CharsetWindows1252 = "windows-1252"
)

const sniffLen = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Phone backup tools export in whatever charset the handset used; these are
// the ones seen in practice.
var decoders = map[string]encoding.Encoding{
	CharsetUTF16LE:     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	CharsetUTF16BE:     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	CharsetISO88591:    charmap.ISO8859_1,
	CharsetISO885915:   charmap.ISO8859_15,
	CharsetWindows1252: charmap.Windows1252,
}

// NewUTF8Reader returns a reader that yields the content of r as UTF-8,
// together with the charset it was decoded from.
//
// A byte order mark wins; otherwise valid UTF-8 passes through untouched,
// then chardet guesses from the first few KiB, and anything it cannot place
// is read as Windows-1252.
func NewUTF8Reader(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffLen)

	buf, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, CharsetUTF8, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		_, _ = br.Discard(len(bomUTF16LE))
		return decode(br, CharsetUTF16LE), CharsetUTF16LE, nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		_, _ = br.Discard(len(bomUTF16BE))
		return decode(br, CharsetUTF16BE), CharsetUTF16BE, nil
	}

	if validUTF8Prefix(buf, len(buf) == sniffLen) {
		return br, CharsetUTF8, nil
	}

	result, err := chardet.NewTextDetector().DetectBest(buf)
	if err == nil {
		if result.Charset == CharsetUTF8 {
			return br, CharsetUTF8, nil
		}

		if _, ok := decoders[result.Charset]; ok {
			return decode(br, result.Charset), result.Charset, nil
		}
	}

	return decode(br, CharsetWindows1252), CharsetWindows1252, nil
}

func decode(r io.Reader, charset string) io.Reader {
	return transform.NewReader(r, decoders[charset].NewDecoder())
}

// validUTF8Prefix reports whether buf is valid UTF-8. When buf was cut from a
// longer stream a rune split at the end is tolerated.
func validUTF8Prefix(buf []byte, truncated bool) bool {
	if utf8.Valid(buf) {
		return true
	}

	if !truncated {
		return false
	}

	for cut := 1; cut < utf8.UTFMax && cut < len(buf); cut++ {
		if utf8.Valid(buf[:len(buf)-cut]) {
			return true
		}
	}

	return false
}
