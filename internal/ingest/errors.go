package ingest

import (
	"errors"
	"fmt"
)

// Kind classifies an ingestion failure.
type Kind int

const (
	KindInvalidDocument Kind = iota
	KindMissingHeaderRow
	KindInvalidNumber
	KindInvalidDateFormat
	KindMissingSKU
	KindMissingPurchaseDate
)

// String returns a stable identifier for logs.
func (k Kind) String() string {
	switch k {
	case KindMissingHeaderRow:
		return "missing_header_row"
	case KindInvalidNumber:
		return "invalid_number"
	case KindInvalidDateFormat:
		return "invalid_date_format"
	case KindMissingSKU:
		return "missing_sku"
	case KindMissingPurchaseDate:
		return "missing_purchase_date"
	default:
		return "invalid_document"
	}
}

// Error is the single failure type returned by ingestion. Its message is
// safe to show to the uploader as-is.
type Error struct {
	Kind Kind

	// Row is the 1-based source row, or 0 when the failure is not tied to a row.
	Row int

	// Text is the offending cell text for InvalidNumber and InvalidDateFormat.
	Text string

	// Err is the underlying cause for InvalidDocument.
	Err error
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrInvalidDocument     = &Error{Kind: KindInvalidDocument}
	ErrMissingHeaderRow    = &Error{Kind: KindMissingHeaderRow}
	ErrInvalidNumber       = &Error{Kind: KindInvalidNumber}
	ErrInvalidDateFormat   = &Error{Kind: KindInvalidDateFormat}
	ErrMissingSKU          = &Error{Kind: KindMissingSKU}
	ErrMissingPurchaseDate = &Error{Kind: KindMissingPurchaseDate}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingHeaderRow:
		return "Excel file has no header row"
	case KindInvalidNumber:
		return fmt.Sprintf("Invalid number: '%s'", e.Text) + e.rowSuffix()
	case KindInvalidDateFormat:
		return fmt.Sprintf("Invalid date format: '%s'", e.Text) + e.rowSuffix()
	case KindMissingSKU:
		return "Product SKU is mandatory" + e.rowSuffix()
	case KindMissingPurchaseDate:
		return "Purchase Date is mandatory" + e.rowSuffix()
	default:
		return "Invalid Excel format or data"
	}
}

func (e *Error) rowSuffix() string {
	if e.Row <= 0 {
		return ""
	}
	return fmt.Sprintf(" (row %d)", e.Row)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so callers can test against the
// package sentinels regardless of row or text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func invalidNumber(text string) *Error {
	return &Error{Kind: KindInvalidNumber, Text: text}
}

func invalidDateFormat(text string) *Error {
	return &Error{Kind: KindInvalidDateFormat, Text: text}
}

// Classify returns err as an *Error, wrapping anything unrecognised as
// InvalidDocument. A nil err classifies as nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ie *Error
	if errors.As(err, &ie) {
		return ie
	}
	return &Error{Kind: KindInvalidDocument, Err: err}
}

// atRow attributes a row-less coercion error to a data row.
func atRow(err error, row int) error {
	var ie *Error
	if !errors.As(err, &ie) || ie.Row != 0 {
		return err
	}
	if ie.Kind != KindInvalidNumber && ie.Kind != KindInvalidDateFormat {
		return err
	}
	attributed := *ie
	attributed.Row = row
	return &attributed
}
