package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/pima/internal/sheet"
)

var march1 = civil.Date{Year: 2024, Month: 3, Day: 1}

func headerRow() sheet.Row {
	row := make(sheet.Row, len(Fields))
	for i, f := range Fields {
		row[i] = sheet.Text(f.Header())
	}
	return row
}

func dataRow(sku, name, category string, date sheet.Cell, price, qty sheet.Cell) sheet.Row {
	return sheet.Row{sheet.Text(sku), sheet.Text(name), sheet.Text(category), date, price, qty}
}

func doc(rows ...sheet.Row) *sheet.Document {
	return &sheet.Document{Rows: rows}
}

func TestNormalize(t *testing.T) {
	d := doc(
		headerRow(),
		dataRow("SKU-1", "Widget", "Tools", sheet.Text("2024-03-01"), num("12.5"), num("4")),
		nil,
		sheet.Row{sheet.Empty(), sheet.Text("   "), sheet.Empty()},
		dataRow("SKU-2", "Gadget", "", sheet.Date(decimal.NewFromInt(45352)), sheet.Text("3.10"), num("5.9")),
	)

	records, err := NewNormalizer(nil).Normalize(d)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		ProductSKU:   "SKU-1",
		ProductName:  "Widget",
		Category:     "Tools",
		PurchaseDate: march1,
		UnitPrice:    decimal.RequireFromString("12.5"),
		Quantity:     4,
	}, records[0])

	assert.Equal(t, "SKU-2", records[1].ProductSKU)
	assert.Equal(t, "", records[1].Category)
	assert.Equal(t, march1, records[1].PurchaseDate)
	assert.Equal(t, "3.1", records[1].UnitPrice.String())
	assert.Equal(t, int64(5), records[1].Quantity, "quantity truncates, never rounds")
}

func TestNormalize_RecordCountMatchesNonEmptyRows(t *testing.T) {
	rows := []sheet.Row{headerRow()}
	want := 0
	for i := 0; i < 25; i++ {
		if i%4 == 0 {
			rows = append(rows, sheet.Row{})
			continue
		}
		rows = append(rows, dataRow("SKU", "n", "c", sheet.Text("2024-03-01"), num("1"), num("1")))
		want++
	}

	records, err := NewNormalizer(nil).Normalize(doc(rows...))
	require.NoError(t, err)
	assert.Len(t, records, want)
}

func TestNormalize_Defaults(t *testing.T) {
	d := doc(
		headerRow(),
		sheet.Row{sheet.Text("SKU-1"), sheet.Empty(), sheet.Empty(), sheet.Text("2024-03-01")},
	)

	records, err := NewNormalizer(nil).Normalize(d)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].UnitPrice.IsZero())
	assert.Zero(t, records[0].Quantity)
	assert.Empty(t, records[0].ProductName)
}

func TestNormalize_Quantity(t *testing.T) {
	tests := []struct {
		qty  sheet.Cell
		want int64
	}{
		{num("5.9"), 5},
		{num("5.1"), 5},
		{num("-5.9"), -5},
		{sheet.Text("7.99"), 7},
		{formula(num("2.5")), 2},
		{sheet.Bool(true), 0},
	}

	for _, tt := range tests {
		t.Run(tt.qty.Kind.String(), func(t *testing.T) {
			d := doc(headerRow(), dataRow("S", "", "", sheet.Text("2024-03-01"), num("1"), tt.qty))
			records, err := NewNormalizer(nil).Normalize(d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, records[0].Quantity)
		})
	}
}

func TestNormalize_Errors(t *testing.T) {
	date := sheet.Text("2024-03-01")

	tests := []struct {
		name    string
		doc     *sheet.Document
		kind    *Error
		wantRow int
		wantMsg string
	}{
		{
			name:    "no rows",
			doc:     doc(),
			kind:    ErrMissingHeaderRow,
			wantMsg: "Excel file has no header row",
		},
		{
			name:    "absent header row",
			doc:     doc(nil, dataRow("S", "", "", date, num("1"), num("1"))),
			kind:    ErrMissingHeaderRow,
			wantMsg: "Excel file has no header row",
		},
		{
			name:    "blank sku",
			doc:     doc(headerRow(), dataRow("S1", "", "", date, num("1"), num("1")), dataRow("   ", "Widget", "Tools", date, num("1"), num("1"))),
			kind:    ErrMissingSKU,
			wantRow: 3,
			wantMsg: "Product SKU is mandatory (row 3)",
		},
		{
			name:    "null sku",
			doc:     doc(headerRow(), sheet.Row{sheet.Empty(), sheet.Text("Widget"), sheet.Empty(), date}),
			kind:    ErrMissingSKU,
			wantRow: 2,
			wantMsg: "Product SKU is mandatory (row 2)",
		},
		{
			name:    "missing date",
			doc:     doc(headerRow(), dataRow("S", "Widget", "", sheet.Empty(), num("1"), num("1"))),
			kind:    ErrMissingPurchaseDate,
			wantRow: 2,
			wantMsg: "Purchase Date is mandatory (row 2)",
		},
		{
			name:    "bad date",
			doc:     doc(headerRow(), dataRow("S", "", "", sheet.Text("not-a-date"), num("1"), num("1"))),
			kind:    ErrInvalidDateFormat,
			wantRow: 2,
			wantMsg: "Invalid date format: 'not-a-date' (row 2)",
		},
		{
			name:    "bad price",
			doc:     doc(headerRow(), sheet.Row{}, dataRow("S", "", "", date, sheet.Text("$5"), num("1"))),
			kind:    ErrInvalidNumber,
			wantRow: 3,
			wantMsg: "Invalid number: '$5' (row 3)",
		},
		{
			name:    "coercion error wins over missing sku",
			doc:     doc(headerRow(), dataRow("", "", "", sheet.Text("later"), num("1"), num("1"))),
			kind:    ErrInvalidDateFormat,
			wantRow: 2,
			wantMsg: "Invalid date format: 'later' (row 2)",
		},
		{
			name:    "negative serial date",
			doc:     doc(headerRow(), dataRow("S", "", "", num("-3"), num("1"), num("1"))),
			kind:    ErrInvalidDocument,
			wantMsg: "Invalid Excel format or data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := NewNormalizer(nil).Normalize(tt.doc)
			assert.Nil(t, records, "no partial output on failure")
			require.ErrorIs(t, err, tt.kind)

			var ie *Error
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.wantRow, ie.Row)
			assert.Equal(t, tt.wantMsg, ie.Error())
		})
	}
}

func TestNormalize_HeaderResolution(t *testing.T) {
	t.Run("reordered headers", func(t *testing.T) {
		d := doc(
			sheet.Row{sheet.Text("Quantity"), sheet.Text(" Purchase Date "), sheet.Text("Product SKU")},
			sheet.Row{num("3"), sheet.Text("2024-03-01"), sheet.Text("SKU-9")},
		)
		records, err := NewNormalizer(nil).Normalize(d)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "SKU-9", records[0].ProductSKU)
		assert.Equal(t, int64(3), records[0].Quantity)
	})

	t.Run("unrecognised headers fall back to positions", func(t *testing.T) {
		d := doc(
			sheet.Row{sheet.Text("sku"), sheet.Text("name"), sheet.Text("cat"), sheet.Text("bought"), sheet.Text("price"), sheet.Text("qty")},
			dataRow("SKU-1", "Widget", "Tools", sheet.Text("01/03/2024"), num("2"), num("6")),
		)
		records, err := NewNormalizer(nil).Normalize(d)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "SKU-1", records[0].ProductSKU)
		assert.Equal(t, "Tools", records[0].Category)
		assert.Equal(t, march1, records[0].PurchaseDate)
		assert.Equal(t, int64(6), records[0].Quantity)
	})

	t.Run("duplicate header keeps last column", func(t *testing.T) {
		d := doc(
			sheet.Row{sheet.Text("Product SKU"), sheet.Text("Product SKU"), sheet.Empty(), sheet.Text("Purchase Date")},
			sheet.Row{sheet.Text("first"), sheet.Text("second"), sheet.Empty(), sheet.Text("2024-03-01")},
		)
		records, err := NewNormalizer(nil).Normalize(d)
		require.NoError(t, err)
		assert.Equal(t, "second", records[0].ProductSKU)
	})

	t.Run("header row present but unnamed", func(t *testing.T) {
		d := doc(
			sheet.Row{num("1")},
			dataRow("SKU-1", "", "", sheet.Text("2024-03-01"), num("1"), num("1")),
		)
		records, err := NewNormalizer(nil).Normalize(d)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("blank header row uses positions", func(t *testing.T) {
		d := doc(
			sheet.Row{},
			dataRow("SKU-1", "Widget", "", sheet.Text("2024-03-01"), num("4"), num("2")),
		)
		records, err := NewNormalizer(nil).Normalize(d)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "SKU-1", records[0].ProductSKU)
		assert.Equal(t, int64(2), records[0].Quantity)
	})
}

func TestParse_CSVBlankHeaderLine(t *testing.T) {
	r := &trackingReader{Reader: strings.NewReader(",,,,,\nSKU-1,Widget,,2024-03-01,4,2\n")}
	records, err := NewNormalizer(nil).Parse(context.Background(), "inventory.csv", r)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, march1, records[0].PurchaseDate)
}

func TestResolveColumns(t *testing.T) {
	cols, err := ResolveColumns(doc(sheet.Row{sheet.Text("Unit Price"), sheet.Empty(), num("7"), sheet.Text("  Category ")}))
	require.NoError(t, err)

	assert.Equal(t, ColumnMap{"Unit Price": 0, "7": 2, "Category": 3}, cols)
	assert.Equal(t, 0, cols.Column(FieldUnitPrice))
	assert.Equal(t, 3, cols.Column(FieldCategory))
	assert.Equal(t, 0, cols.Column(FieldSKU))
	assert.Equal(t, 5, cols.Column(FieldQuantity))
}

func TestIsRowEmpty(t *testing.T) {
	tests := []struct {
		name string
		row  sheet.Row
		want bool
	}{
		{"absent", nil, true},
		{"blank text", sheet.Row{sheet.Text(" "), sheet.Text("\t")}, true},
		{"error cells", sheet.Row{sheet.Cell{Kind: sheet.KindError, Text: "#REF!"}}, true},
		{"unevaluated formula", sheet.Row{sheet.Formula(nil)}, true},
		{"value past sixth column", sheet.Row{{}, {}, {}, {}, {}, {}, sheet.Text("x")}, true},
		{"zero", sheet.Row{{}, {}, {}, {}, {}, num("0")}, false},
		{"false", sheet.Row{sheet.Bool(false)}, false},
		{"text", sheet.Row{{}, sheet.Text("a")}, false},
		{"formula text", sheet.Row{formula(sheet.Text("a"))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRowEmpty(tt.row))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	d := doc(
		headerRow(),
		dataRow("SKU-1", "Widget", "Tools", sheet.Text("2024-03-01"), num("12.5"), num("4")),
		dataRow("SKU-2", "Gadget", "Tools", sheet.Text("02/03/2024"), num("1.25"), num("9.99")),
	)
	n := NewNormalizer(nil)

	first, err := n.Normalize(d)
	require.NoError(t, err)
	second, err := n.Normalize(d)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// trackingReader records whether Close was called.
type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

type panicReader struct{}

func (panicReader) Read([]byte) (int, error) { panic("boom") }

func TestParse_CSV(t *testing.T) {
	body := "Product SKU,Product Name,Category,Purchase Date,Unit Price,Quantity\n" +
		"SKU-1,Widget,Tools,2024-03-01,12.50,4\n" +
		",,,,,\n" +
		"SKU-2,Gadget,Toys,01 Mar 2024,3,5.9\n"
	r := &trackingReader{Reader: strings.NewReader(body)}

	records, err := NewNormalizer(nil).Parse(context.Background(), "inventory.csv", r)
	require.NoError(t, err)
	assert.True(t, r.closed)

	require.Len(t, records, 2)
	assert.Equal(t, "12.5", records[0].UnitPrice.String())
	assert.Equal(t, march1, records[1].PurchaseDate)
	assert.Equal(t, int64(5), records[1].Quantity)
}

func TestParse_CSVRowNumbersCountBlankLines(t *testing.T) {
	body := "Product SKU,Purchase Date\n\nSKU-1,2024-03-01\n\n,2024-03-01\n"
	r := &trackingReader{Reader: strings.NewReader(body)}

	_, err := NewNormalizer(nil).Parse(context.Background(), "inventory.csv", r)
	require.ErrorIs(t, err, ErrMissingSKU)
	assert.Equal(t, "Product SKU is mandatory (row 5)", err.Error())
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	header := []any{"Product SKU", "Product Name", "Category", "Purchase Date", "Unit Price", "Quantity"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	row := []any{"SKU-1", "Widget", "Tools", 45352, 9.75, 5.9}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &row))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", 1001))
	require.NoError(t, f.SetCellValue("Sheet1", "D3", "Mar 01, 2024"))
	require.NoError(t, f.SetCellFormula("Sheet1", "F3", "2*3"))

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D2", dateStyle))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	r := &trackingReader{Reader: buf}
	records, err := NewNormalizer(nil).Parse(context.Background(), "inventory.xlsx", r)
	require.NoError(t, err)
	assert.True(t, r.closed)

	require.Len(t, records, 2)
	assert.Equal(t, march1, records[0].PurchaseDate)
	assert.Equal(t, "9.75", records[0].UnitPrice.String())
	assert.Equal(t, int64(5), records[0].Quantity)

	assert.Equal(t, "1001", records[1].ProductSKU)
	assert.Equal(t, march1, records[1].PurchaseDate)
	assert.Equal(t, int64(6), records[1].Quantity)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		reader io.Reader
		kind   *Error
	}{
		{"garbage", "inventory.xlsx", strings.NewReader("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), ErrInvalidDocument},
		{"empty upload", "inventory.csv", strings.NewReader(""), ErrInvalidDocument},
		{"corrupt zip", "inventory.xlsx", strings.NewReader("PK\x03\x04\x14\x00broken"), ErrInvalidDocument},
		{"panicking reader", "inventory.csv", panicReader{}, ErrInvalidDocument},
		{"bad row", "inventory.csv", strings.NewReader("Product SKU,Purchase Date\nSKU-1,someday\n"), ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &trackingReader{Reader: tt.reader}
			records, err := NewNormalizer(nil).Parse(context.Background(), tt.file, r)
			assert.Nil(t, records)
			require.ErrorIs(t, err, tt.kind)
			assert.True(t, r.closed, "reader must be closed on every path")
		})
	}
}

func TestParse_ContextDone(t *testing.T) {
	body := "Product SKU,Purchase Date\nSKU-1,2024-03-01\n"

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel2 := context.WithTimeout(context.Background(), -time.Second)
	defer cancel2()

	tests := []struct {
		name string
		ctx  context.Context
		want error
	}{
		{"cancelled", cancelled, context.Canceled},
		{"deadline", expired, context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &trackingReader{Reader: strings.NewReader(body)}
			records, err := NewNormalizer(nil).Parse(tt.ctx, "inventory.csv", r)
			assert.Nil(t, records)
			require.ErrorIs(t, err, tt.want)

			var ie *Error
			assert.False(t, errors.As(err, &ie), "context errors are not ingestion errors")
			assert.True(t, r.closed)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	cause := errors.New("zip: not a valid zip file")
	ie := Classify(cause)
	assert.Equal(t, KindInvalidDocument, ie.Kind)
	assert.ErrorIs(t, ie, cause)
	assert.Equal(t, "Invalid Excel format or data", ie.Error())

	missing := &Error{Kind: KindMissingSKU, Row: 4}
	assert.Same(t, missing, Classify(missing))
}
