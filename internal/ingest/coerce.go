package ingest

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/pima/internal/sheet"
)

// coercer converts raw cells into typed field values. Every entry point
// resolves formulas first, so a formula cell behaves exactly like a cell of
// its computed type.
type coercer struct {
	date1904 bool
}

// text returns the cell as trimmed text. ok is false for a null value.
func (c coercer) text(cell sheet.Cell) (s string, ok bool) {
	cell = cell.Resolve()
	switch cell.Kind {
	case sheet.KindText:
		return strings.TrimSpace(cell.Text), true
	case sheet.KindNumber:
		if cell.DateFormatted {
			if d, ok := c.serialDate(cell.Number); ok {
				return d.String(), true
			}
		}
		return cell.Number.String(), true
	case sheet.KindBool:
		if cell.Bool {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

// decimal returns the numeric value of a cell. Empty and non-numeric
// tags read as zero; only unparseable text is an error.
func (c coercer) decimal(cell sheet.Cell) (decimal.Decimal, error) {
	cell = cell.Resolve()
	switch cell.Kind {
	case sheet.KindNumber:
		return cell.Number, nil
	case sheet.KindText:
		value := strings.TrimSpace(cell.Text)
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, invalidNumber(value)
		}
		return d, nil
	default:
		return decimal.Zero, nil
	}
}

// date returns the calendar date held by a cell. ok is false for a null
// value. Any number is taken as a spreadsheet day offset, date format or not.
func (c coercer) date(cell sheet.Cell) (d civil.Date, ok bool, err error) {
	cell = cell.Resolve()
	switch cell.Kind {
	case sheet.KindNumber:
		d, ok = c.serialDate(cell.Number)
		if !ok {
			return civil.Date{}, false, &Error{
				Kind: KindInvalidDocument,
				Err:  fmt.Errorf("day offset %s has no calendar date", cell.Number),
			}
		}
		return d, true, nil
	case sheet.KindText:
		d, err = ParseDate(cell.Text)
		if err != nil {
			return civil.Date{}, false, err
		}
		return d, true, nil
	default:
		return civil.Date{}, false, nil
	}
}

// serialDate converts a day offset to a date. Negative offsets have no
// calendar date.
func (c coercer) serialDate(serial decimal.Decimal) (civil.Date, bool) {
	t, err := excelize.ExcelDateToTime(serial.InexactFloat64(), c.date1904)
	if err != nil {
		return civil.Date{}, false
	}
	return civil.DateOf(t.In(time.UTC)), true
}
