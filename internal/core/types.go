package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/pima/internal/ingest"
)

// InventoryItem is a stored record.
type InventoryItem struct {
	ID uuid.UUID `json:"id"`
	ingest.Record
	CreatedAt time.Time `json:"createdAt"`
}

// ImportResult describes a completed import.
type ImportResult struct {
	FileName string        `json:"fileName"`
	Imported int           `json:"imported"`
	Duration time.Duration `json:"-"`
}

// Paging defaults and limits.
const (
	DefaultPageSize  = 10
	MaxPageSize      = 100
	DefaultSortKey   = "purchaseDate"
	DefaultDirection = "desc"
)

// PageRequest selects one page of the inventory listing. Page is zero-based.
type PageRequest struct {
	Page      int
	Size      int
	Sort      string
	Direction string
}

// Page is one page of inventory items.
type Page struct {
	Content       []InventoryItem `json:"content"`
	TotalElements int64           `json:"totalElements"`
	TotalPages    int             `json:"totalPages"`
	Page          int             `json:"page"`
	Size          int             `json:"size"`
}

// Summary aggregates the whole inventory.
type Summary struct {
	TotalProducts       int64           `json:"totalProducts"`
	TotalInventoryValue decimal.Decimal `json:"totalInventoryValue"`
	AverageStockAge     float64         `json:"averageStockAge"`
}
