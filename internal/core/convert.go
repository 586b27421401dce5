package core

// convert.go maps between normalized records and the pgtype values used by
// the database layer.
//
// Optional text maps to NULL when empty. Dates are stored without a time or
// zone. Prices round-trip through numeric without passing through float64.

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	db "github.com/JonMunkholm/pima/internal/database"
	"github.com/JonMunkholm/pima/internal/ingest"
)

// ToPgText converts a string to pgtype.Text. Empty strings are NULL.
func ToPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a calendar date to pgtype.Date.
func ToPgDate(d civil.Date) pgtype.Date {
	if !d.IsValid() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

// ToPgNumeric converts a decimal to pgtype.Numeric exactly.
func ToPgNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// ToPgUUID converts a uuid to pgtype.UUID.
func ToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// FromPgNumeric converts pgtype.Numeric to a decimal. NULL, NaN and
// infinities read as zero.
func FromPgNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp)
}

// FromPgDate converts pgtype.Date to a calendar date. NULL reads as the zero date.
func FromPgDate(d pgtype.Date) civil.Date {
	if !d.Valid {
		return civil.Date{}
	}
	return civil.DateOf(d.Time)
}

// toInsertParams builds COPY rows, assigning each record a fresh id.
func toInsertParams(records []ingest.Record) []db.InsertProductInventoryParams {
	params := make([]db.InsertProductInventoryParams, len(records))
	for i, r := range records {
		params[i] = db.InsertProductInventoryParams{
			ID:           ToPgUUID(uuid.New()),
			ProductSku:   r.ProductSKU,
			ProductName:  ToPgText(r.ProductName),
			Category:     ToPgText(r.Category),
			PurchaseDate: ToPgDate(r.PurchaseDate),
			UnitPrice:    ToPgNumeric(r.UnitPrice),
			Quantity:     r.Quantity,
		}
	}
	return params
}

// toInventoryItem converts a stored row to its API shape.
func toInventoryItem(row db.ProductInventory) InventoryItem {
	item := InventoryItem{
		Record: ingest.Record{
			ProductSKU:   row.ProductSku,
			ProductName:  row.ProductName.String,
			Category:     row.Category.String,
			PurchaseDate: FromPgDate(row.PurchaseDate),
			UnitPrice:    FromPgNumeric(row.UnitPrice),
			Quantity:     row.Quantity,
		},
	}
	if row.ID.Valid {
		item.ID = uuid.UUID(row.ID.Bytes)
	}
	if row.CreatedAt.Valid {
		item.CreatedAt = row.CreatedAt.Time
	}
	return item
}

func toInventoryItems(rows []db.ProductInventory) []InventoryItem {
	items := make([]InventoryItem, len(rows))
	for i, row := range rows {
		items[i] = toInventoryItem(row)
	}
	return items
}
