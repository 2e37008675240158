package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Required input columns for each uploaded table.
var (
	SalesColumns     = []string{"timestamp", "item_id", "product_brand", "product_style", "target_quantity", "price"}
	InventoryColumns = []string{"snapshot_date", "item_id", "quantity_on_hand"}
)

// SalesRecord is a single line of the retail transaction log.
type SalesRecord struct {
	Date           time.Time       `json:"timestamp" validate:"required"`
	ItemID         string          `json:"item_id"`
	ProductBrand   string          `json:"product_brand"`
	ProductStyle   string          `json:"product_style"`
	TargetQuantity decimal.Decimal `json:"target_quantity"`
	Price          decimal.Decimal `json:"price"`
	SeriesID       string          `json:"series_id"` // brand + "_" + style, derived
}

// SeriesIDFor builds the grouping key for a brand/style pair.
// The concatenation is exact: case and whitespace are significant.
func SeriesIDFor(brand, style string) string {
	return brand + "_" + style
}

// InventorySnapshot is one stock-level observation for an item on a day.
type InventorySnapshot struct {
	Date           time.Time       `json:"snapshot_date" validate:"required"`
	ItemID         string          `json:"item_id"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
}

// DateLayout is the calendar-day format used for every date written out.
const DateLayout = "2006-01-02"

// CivilDate truncates t to midnight UTC of the calendar day it was written in.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
