// Package templates renders the inventory dashboard with templ. Components
// live in the .templ files; run `templ generate` after editing them.
package templates

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/pima/internal/core"
)

// DashboardData is everything the dashboard page shows.
type DashboardData struct {
	Summary     core.Summary
	Page        core.Page
	Imports     core.UploadLimiterStatus
	MaxFileSize int64
}

var inventoryColumns = []string{"Product SKU", "Product Name", "Category", "Purchase Date", "Unit Price", "Quantity"}

func itemCells(item core.InventoryItem) []string {
	return []string{
		item.ProductSKU,
		item.ProductName,
		item.Category,
		item.PurchaseDate.String(),
		item.UnitPrice.String(),
		strconv.FormatInt(item.Quantity, 10),
	}
}

func formatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatDays(days float64) string {
	return fmt.Sprintf("%.1f days", days)
}

func uploadHint(maxFileSize int64, imports core.UploadLimiterStatus) string {
	return fmt.Sprintf("Excel (.xlsx) or CSV, up to %s. %d of %d import slots free.",
		formatBytes(maxFileSize), imports.Available, imports.MaxConcurrent)
}

func pageHint(p core.Page) string {
	return fmt.Sprintf("Page %d of %d, %d items", p.Page+1, p.TotalPages, p.TotalElements)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
