package ingest

import (
	"github.com/JonMunkholm/pima/internal/sheet"
)

// Field is one of the six logical inventory columns. Its value is also the
// column index used when the header does not name it.
type Field int

const (
	FieldSKU Field = iota
	FieldName
	FieldCategory
	FieldPurchaseDate
	FieldUnitPrice
	FieldQuantity
)

// Fields lists the logical columns in default positional order.
var Fields = []Field{FieldSKU, FieldName, FieldCategory, FieldPurchaseDate, FieldUnitPrice, FieldQuantity}

var fieldHeaders = [...]string{
	FieldSKU:          "Product SKU",
	FieldName:         "Product Name",
	FieldCategory:     "Category",
	FieldPurchaseDate: "Purchase Date",
	FieldUnitPrice:    "Unit Price",
	FieldQuantity:     "Quantity",
}

// Header returns the header text that names the field.
func (f Field) Header() string { return fieldHeaders[f] }

// DefaultColumn returns the positional fallback index.
func (f Field) DefaultColumn() int { return int(f) }

// ColumnMap maps trimmed header text to a physical column index.
type ColumnMap map[string]int

// Column returns the physical column for a field, falling back to its
// default position when no header cell names it.
func (m ColumnMap) Column(f Field) int {
	if i, ok := m[f.Header()]; ok {
		return i
	}
	return f.DefaultColumn()
}

// ResolveColumns builds a ColumnMap from row 0. Every header cell with a
// non-null text value is recorded; a repeated header keeps the rightmost
// column. Missing expected headers are not an error.
func ResolveColumns(doc *sheet.Document) (ColumnMap, error) {
	header := doc.Row(0)
	if !header.Present() {
		return nil, &Error{Kind: KindMissingHeaderRow}
	}

	c := coercer{date1904: doc.Date1904}
	m := make(ColumnMap, len(header))
	for i, cell := range header {
		if text, ok := c.text(cell); ok {
			m[text] = i
		}
	}
	return m, nil
}
