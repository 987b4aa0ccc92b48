package importer

import (
	"io"

	"github.com/MrJamesThe3rd/smsledger/internal/importer/backup"
)

type Format string

const (
	FormatAuto Format = ""
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

type Message = backup.Message

type Importer interface {
	Parse(r io.Reader) ([]backup.Message, error)
}
