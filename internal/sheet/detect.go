package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies a spreadsheet container.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatCSV     Format = "csv"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip  = "application/zip"
	mimeXLS  = "application/vnd.ms-excel"
	mimeOLE  = "application/x-ole-storage"
	mimeCSV  = "text/csv"
	mimeText = "text/plain"
)

// ErrUnsupportedFormat is returned for containers no adapter can read.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Detect sniffs the container format from content, using the file name
// extension only to break ties between plain text and CSV.
func Detect(name string, data []byte) Format {
	if len(data) == 0 {
		return FormatUnknown
	}

	mtype := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case mtype.Is(mimeXLSX):
		return FormatXLSX
	case mtype.Is(mimeXLS), mtype.Is(mimeOLE):
		return FormatXLS
	case mtype.Is(mimeZip) && ext == ".xlsx":
		return FormatXLSX
	case mtype.Is(mimeCSV):
		return FormatCSV
	case isText(mtype) && (ext == ".csv" || ext == ".txt" || ext == ""):
		return FormatCSV
	}
	return FormatUnknown
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(mimeText) {
			return true
		}
	}
	return false
}

// Read detects the container and adapts it to a Document.
func Read(name string, data []byte) (*Document, Format, error) {
	format := Detect(name, data)
	switch format {
	case FormatXLSX:
		doc, err := ReadXLSX(data)
		return doc, format, err
	case FormatCSV:
		doc, err := ReadCSV(data)
		return doc, format, err
	case FormatXLS:
		return nil, format, fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx", ErrUnsupportedFormat)
	default:
		return nil, format, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}
