// Package sheet models an uploaded spreadsheet as ordered rows of typed cells
// and adapts concrete containers (.xlsx workbooks, CSV files) to that shape.
//
// Everything downstream of this package sees a [Document]: row 0 is the
// header, rows are sparse, and formula cells arrive already evaluated.
// Nothing here interprets inventory semantics.
package sheet

import (
	"github.com/shopspring/decimal"
)

// Kind is the type tag of a raw cell.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindBool
	KindFormula
	KindError
)

// String returns the tag name used in logs and test output.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindFormula:
		return "formula"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Cell is a tagged value. Only the fields that belong to Kind are meaningful.
type Cell struct {
	Kind   Kind
	Text   string          // KindText, and the error code for KindError
	Number decimal.Decimal // KindNumber
	Bool   bool            // KindBool

	// DateFormatted is set when the cell's number format renders dates.
	DateFormatted bool

	// Result is the evaluated value of a KindFormula cell. Nil means the
	// formula could not be evaluated.
	Result *Cell
}

// Empty returns an empty cell.
func Empty() Cell { return Cell{} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: KindText, Text: s} }

// Number returns a numeric cell.
func Number(d decimal.Decimal) Cell { return Cell{Kind: KindNumber, Number: d} }

// Date returns a numeric cell holding a spreadsheet day offset rendered as a date.
func Date(serial decimal.Decimal) Cell {
	return Cell{Kind: KindNumber, Number: serial, DateFormatted: true}
}

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{Kind: KindBool, Bool: b} }

// Formula returns a formula cell whose evaluated value is result.
// Pass nil when evaluation failed.
func Formula(result *Cell) Cell { return Cell{Kind: KindFormula, Result: result} }

// Resolve returns the cell with any formula replaced by its computed value.
// The result is never KindFormula; an unevaluated formula resolves to an
// empty cell. A formula's own date format carries over to a numeric result.
func (c Cell) Resolve() Cell {
	dateFormatted := false
	for c.Kind == KindFormula {
		dateFormatted = dateFormatted || c.DateFormatted
		if c.Result == nil {
			return Cell{}
		}
		c = *c.Result
	}
	if c.Kind == KindNumber && dateFormatted {
		c.DateFormatted = true
	}
	return c
}

// Row is one spreadsheet row. Indices past the end read as empty cells.
// A nil Row is absent from the source; a non-nil Row with no cells exists
// but holds only blanks.
type Row []Cell

// Cell returns the cell at column index i, or an empty cell if absent.
func (r Row) Cell(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{}
	}
	return r[i]
}

// Present reports whether the row exists in the source document.
func (r Row) Present() bool {
	return r != nil
}

// Document is a fully materialised single-sheet spreadsheet.
// Rows[0] is the header row.
type Document struct {
	Rows []Row

	// Date1904 selects the 1904 date system for day-offset conversion.
	Date1904 bool
}

// Row returns the row at index i, or nil if absent.
func (d *Document) Row(i int) Row {
	if d == nil || i < 0 || i >= len(d.Rows) {
		return nil
	}
	return d.Rows[i]
}

// LastRowIndex returns the index of the last row, or -1 for an empty document.
func (d *Document) LastRowIndex() int {
	if d == nil {
		return -1
	}
	return len(d.Rows) - 1
}
