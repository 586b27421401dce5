// Package ingest turns an uploaded inventory spreadsheet into validated
// records.
//
// The pipeline is header resolution, per-cell coercion, row validation and
// record assembly. The first failure aborts the whole document: callers get
// either every record or a single *Error, never a partial list.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/pima/internal/sheet"
)

// emptyCheckColumns is how many leading physical columns decide emptiness.
const emptyCheckColumns = 6

// Record is one normalized inventory line.
type Record struct {
	ProductSKU   string          `json:"productSku"`
	ProductName  string          `json:"productName"`
	Category     string          `json:"category"`
	PurchaseDate civil.Date      `json:"purchaseDate"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int64           `json:"quantity"`
}

// Normalizer converts Documents into Records. It holds no per-call state and
// is safe for concurrent use.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger discards output.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Normalizer{logger: logger}
}

// Normalize validates every data row of doc and returns the records in row
// order. Empty rows are skipped. Any failure is returned as an *Error.
func (n *Normalizer) Normalize(doc *sheet.Document) ([]Record, error) {
	records, err := n.normalize(doc)
	if err != nil {
		return nil, Classify(err)
	}
	return records, nil
}

func (n *Normalizer) normalize(doc *sheet.Document) ([]Record, error) {
	cols, err := ResolveColumns(doc)
	if err != nil {
		return nil, err
	}

	c := coercer{date1904: doc.Date1904}
	var records []Record
	skipped := 0

	for i := 1; i <= doc.LastRowIndex(); i++ {
		row := doc.Row(i)
		if IsRowEmpty(row) {
			skipped++
			continue
		}

		rowNum := i + 1
		rec, err := c.record(row, cols, rowNum)
		if err != nil {
			return nil, atRow(err, rowNum)
		}
		records = append(records, rec)
	}

	n.logger.Debug("normalized document",
		"records", len(records),
		"skipped_rows", skipped,
	)
	return records, nil
}

// record extracts and validates one data row. rowNum is 1-based.
func (c coercer) record(row sheet.Row, cols ColumnMap, rowNum int) (Record, error) {
	cell := func(f Field) sheet.Cell { return row.Cell(cols.Column(f)) }

	var rec Record
	sku, hasSKU := c.text(cell(FieldSKU))
	rec.ProductSKU = sku
	rec.ProductName, _ = c.text(cell(FieldName))
	rec.Category, _ = c.text(cell(FieldCategory))

	date, hasDate, err := c.date(cell(FieldPurchaseDate))
	if err != nil {
		return Record{}, err
	}
	rec.PurchaseDate = date

	if rec.UnitPrice, err = c.decimal(cell(FieldUnitPrice)); err != nil {
		return Record{}, err
	}

	qty, err := c.decimal(cell(FieldQuantity))
	if err != nil {
		return Record{}, err
	}
	rec.Quantity = qty.IntPart()

	if !hasSKU || strings.TrimSpace(sku) == "" {
		return Record{}, &Error{Kind: KindMissingSKU, Row: rowNum}
	}
	if !hasDate {
		return Record{}, &Error{Kind: KindMissingPurchaseDate, Row: rowNum}
	}
	return rec, nil
}

// IsRowEmpty reports whether none of the first six physical columns holds
// non-blank text, a number or a boolean.
func IsRowEmpty(row sheet.Row) bool {
	for i := 0; i < emptyCheckColumns; i++ {
		cell := row.Cell(i).Resolve()
		switch cell.Kind {
		case sheet.KindText:
			if strings.TrimSpace(cell.Text) != "" {
				return false
			}
		case sheet.KindNumber, sheet.KindBool:
			return false
		}
	}
	return true
}

// Parse reads an uploaded file to the end, closes it, and normalizes its
// first sheet. The reader is closed on every path. All failures, including
// panics in the container adapters, come back as an *Error, except a
// cancelled or expired ctx, which is returned as ctx.Err().
func (n *Normalizer) Parse(ctx context.Context, name string, r io.ReadCloser) (records []Record, err error) {
	defer r.Close()
	defer func() {
		if p := recover(); p != nil {
			records = nil
			err = &Error{Kind: KindInvalidDocument, Err: fmt.Errorf("panic: %v", p)}
		}
		if err != nil && ctx.Err() != nil {
			records = nil
			n.logger.WarnContext(ctx, "ingestion aborted", "file", name, "error", err)
			err = ctx.Err()
			return
		}
		if err != nil {
			ie := Classify(err)
			n.logger.WarnContext(ctx, "ingestion failed",
				"file", name,
				"kind", ie.Kind.String(),
				"row", ie.Row,
				"error", ie.Error(),
				"cause", ie.Err,
			)
			err = ie
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, format, err := sheet.Read(name, data)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err = n.Normalize(doc)
	if err != nil {
		return nil, err
	}

	n.logger.InfoContext(ctx, "parsed inventory file",
		"file", name,
		"format", string(format),
		"records", len(records),
	)
	return records, nil
}
