package database

import (
	"context"
	"fmt"
)

// inventoryColumns is the select list shared by the paged listing and
// scanInventory.
const inventoryColumns = "id, product_sku, product_name, category, purchase_date, unit_price, quantity, created_at"

// SortColumns maps API sort keys to columns. Keys outside this map are never
// interpolated into SQL.
var SortColumns = map[string]string{
	"productSku":   "product_sku",
	"productName":  "product_name",
	"category":     "category",
	"purchaseDate": "purchase_date",
	"unitPrice":    "unit_price",
	"quantity":     "quantity",
}

// ListProductInventoryPageParams selects one page. Sort must be a key of
// SortColumns.
type ListProductInventoryPageParams struct {
	Sort       string
	Descending bool
	Limit      int32
	Offset     int32
}

// ListProductInventoryPage returns one page ordered by the requested column,
// with id as the tie-breaker so pages never overlap.
// Ordering is dynamic, so this query lives outside sqlc.
func (q *Queries) ListProductInventoryPage(ctx context.Context, arg ListProductInventoryPageParams) ([]ProductInventory, error) {
	col, ok := SortColumns[arg.Sort]
	if !ok {
		return nil, fmt.Errorf("unknown sort key %q", arg.Sort)
	}
	dir := "ASC"
	if arg.Descending {
		dir = "DESC"
	}

	query := fmt.Sprintf(
		"SELECT %s FROM product_inventory ORDER BY %s %s NULLS LAST, id %s LIMIT $1 OFFSET $2",
		inventoryColumns, col, dir, dir,
	)

	rows, err := q.db.Query(ctx, query, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ProductInventory
	for rows.Next() {
		var i ProductInventory
		if err := rows.Scan(
			&i.ID,
			&i.ProductSku,
			&i.ProductName,
			&i.Category,
			&i.PurchaseDate,
			&i.UnitPrice,
			&i.Quantity,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
