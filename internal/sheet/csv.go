package sheet

// csv.go adapts comma-separated files to a Document.
//
// CSV carries no type information, so each field is sniffed:
//   - blank (after trimming) -> empty
//   - TRUE / FALSE in any case -> bool
//   - a canonical decimal literal -> number
//   - anything else -> text, untrimmed
//
// "Canonical" means the literal survives a round trip through decimal
// unchanged, so values such as "00123" or "5.90" stay text and keep their
// exact spelling. Text cells are parsed again by the coercer when a numeric
// or date field needs them.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses CSV bytes into a Document.
func ReadCSV(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	doc := &Document{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}

		// encoding/csv skips blank lines; place each record on its source
		// line so row numbers in errors match what the user sees.
		line, _ := r.FieldPos(0)
		for len(doc.Rows) < line-1 {
			doc.Rows = append(doc.Rows, nil)
		}

		row := make(Row, len(record))
		for j, field := range record {
			row[j] = sniffCell(field)
		}
		doc.Rows = append(doc.Rows, trimRow(row))
	}
	return doc, nil
}

// sniffCell assigns a type tag to a raw CSV field.
func sniffCell(field string) Cell {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return Empty()
	}

	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return Bool(true)
	case "FALSE":
		return Bool(false)
	}

	if d, err := decimal.NewFromString(trimmed); err == nil && d.String() == trimmed {
		return Number(d)
	}

	return Text(field)
}

// trimRow drops trailing empty cells. The result stays non-nil so a row of
// blank cells is still present.
func trimRow(row Row) Row {
	end := len(row)
	for end > 0 && row[end-1].Kind == KindEmpty {
		end--
	}
	if row == nil {
		return Row{}
	}
	return row[:end]
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
