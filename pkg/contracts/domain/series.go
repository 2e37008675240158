package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Output column names of the training file.
const (
	ColumnTimestamp            = "timestamp"
	ColumnSeriesID             = "series_id"
	ColumnTotalQuantitySold    = "total_quantity_sold"
	ColumnWeightedAvgPrice     = "weighted_avg_price"
	ColumnStockOnHand          = "stock_on_hand"
	ColumnSKUAvailabilityRatio = "sku_availability_ratio"
	ColumnAvailableModelCount  = "available_model_count"
)

// SeriesDaySales aggregates all sales of one series on one day.
type SeriesDaySales struct {
	Date              time.Time       `json:"timestamp"`
	SeriesID          string          `json:"series_id"`
	TotalQuantitySold decimal.Decimal `json:"total_quantity_sold"`
	// WeightedAvgPrice is zero when TotalQuantitySold is zero.
	WeightedAvgPrice decimal.Decimal `json:"weighted_avg_price"`
}

// SeriesDayInventory aggregates the stock snapshots of one series on one day.
type SeriesDayInventory struct {
	Date                 time.Time       `json:"timestamp"`
	SeriesID             string          `json:"series_id"`
	StockOnHand          decimal.Decimal `json:"stock_on_hand"`
	AvailableModelCount  int             `json:"available_model_count"`
	SKUAvailabilityRatio decimal.Decimal `json:"sku_availability_ratio"`
}

// GridRow is one (date, series) cell of the dense training grid.
// Inventory fields are only meaningful when the owning Grid has inventory.
type GridRow struct {
	Date                 time.Time
	SeriesID             string
	TotalQuantitySold    decimal.Decimal
	WeightedAvgPrice     decimal.Decimal
	StockOnHand          decimal.Decimal
	SKUAvailabilityRatio decimal.Decimal
	AvailableModelCount  int
}

// Grid is the densified output of one pipeline run, sorted by series then date.
type Grid struct {
	HasInventory bool
	Series       []string
	Days         int
	Rows         []GridRow
}

// Columns returns the output header. Inventory presence changes the schema.
func (g *Grid) Columns() []string {
	cols := []string{ColumnTimestamp, ColumnSeriesID, ColumnTotalQuantitySold, ColumnWeightedAvgPrice}
	if g.HasInventory {
		cols = append(cols, ColumnStockOnHand, ColumnSKUAvailabilityRatio, ColumnAvailableModelCount)
	}
	return cols
}
