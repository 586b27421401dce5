package sheet

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// rawValues asks excelize for unformatted cell contents.
var rawValues = excelize.Options{RawCellValue: true}

// ReadXLSX adapts the first worksheet of an .xlsx workbook to a Document.
// Formula cells are evaluated here so the Document never carries formula text.
func ReadXLSX(data []byte) (*Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Document{}, nil
	}
	name := sheets[0]

	doc := &Document{}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		doc.Date1904 = *props.Date1904
	}

	rows, err := f.GetRows(name, rawValues)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	r := &xlsxReader{f: f, sheet: name, dateStyles: make(map[int]bool)}
	doc.Rows = make([]Row, len(rows))
	for i, values := range rows {
		// Rows without any cell element come back empty; they are absent.
		if len(values) == 0 {
			continue
		}
		row := make(Row, len(values))
		for j, raw := range values {
			cell, err := r.cell(j, i, raw)
			if err != nil {
				return nil, err
			}
			row[j] = cell
		}
		doc.Rows[i] = trimRow(row)
	}
	return doc, nil
}

type xlsxReader struct {
	f     *excelize.File
	sheet string

	// dateStyles caches the date-format decision per style index.
	dateStyles map[int]bool
}

// cell converts the raw value at zero-based (col, row) into a Cell.
func (r *xlsxReader) cell(col, row int, raw string) (Cell, error) {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return Cell{}, err
	}

	formula, err := r.f.GetCellFormula(r.sheet, ref)
	if err != nil {
		return Cell{}, fmt.Errorf("read formula %s: %w", ref, err)
	}
	if formula != "" {
		return r.formula(ref, raw), nil
	}

	typ, err := r.f.GetCellType(r.sheet, ref)
	if err != nil {
		return Cell{}, fmt.Errorf("read cell type %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		if raw == "" {
			return Empty(), nil
		}
		return Text(raw), nil
	case excelize.CellTypeBool:
		switch raw {
		case "1":
			return Bool(true), nil
		case "0":
			return Bool(false), nil
		}
		return Text(raw), nil
	case excelize.CellTypeError:
		return Cell{Kind: KindError, Text: raw}, nil
	case excelize.CellTypeDate:
		// ISO 8601 date cells are rare; hand them on as ISO text.
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return Text(t.Format(time.DateOnly)), nil
		}
		return Text(raw), nil
	}

	if strings.TrimSpace(raw) == "" {
		return Empty(), nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Text(raw), nil
	}
	c := Number(d)
	c.DateFormatted = r.dateFormatted(ref)
	return c, nil
}

// formula evaluates a formula cell, falling back to the value cached in the
// workbook when the calculation engine cannot handle the expression.
func (r *xlsxReader) formula(ref, cached string) Cell {
	c := Formula(nil)
	c.DateFormatted = r.dateFormatted(ref)

	value, err := r.f.CalcCellValue(r.sheet, ref, rawValues)
	if err != nil || value == "" {
		value = cached
	}
	if value == "" {
		return c
	}

	result := classifyResult(value)
	c.Result = &result
	return c
}

func classifyResult(value string) Cell {
	switch strings.ToUpper(value) {
	case "TRUE":
		return Bool(true)
	case "FALSE":
		return Bool(false)
	}
	if strings.HasPrefix(value, "#") {
		return Cell{Kind: KindError, Text: value}
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
		return Number(d)
	}
	return Text(value)
}

func (r *xlsxReader) dateFormatted(ref string) bool {
	idx, err := r.f.GetCellStyle(r.sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := r.dateStyles[idx]; ok {
		return v
	}

	v := false
	if style, err := r.f.GetStyle(idx); err == nil && style != nil {
		v = isDateNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	r.dateStyles[idx] = v
	return v
}

// isDateNumFmt reports whether a number format renders a date or time.
func isDateNumFmt(id int, custom *string) bool {
	if custom != nil {
		return isDateFormatCode(*custom)
	}
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode looks for date or time tokens outside quoted literals,
// bracketed sections and escaped characters.
func isDateFormatCode(code string) bool {
	// Only the positive section decides.
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}

	inQuote := false
	inBracket := false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			if ch == '"' {
				inQuote = false
			}
		case inBracket:
			if ch == ']' {
				inBracket = false
			}
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			switch ch | 0x20 {
			case 'd', 'm', 'y', 'h', 's':
				return true
			}
		}
	}
	return false
}
