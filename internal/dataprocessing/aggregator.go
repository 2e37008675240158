package dataprocessing

import (
	"time"

	"github.com/shopspring/decimal"

	"retailetl/pkg/contracts/domain"
)

// divisionPrecision is the number of decimal places kept by divisions.
const divisionPrecision = 16

// SeriesDayKey keys aggregates by calendar day (unix seconds of UTC
// midnight) and series.
type SeriesDayKey struct {
	Day      int64
	SeriesID string
}

// KeyOf builds the aggregate key for a civil date and series.
func KeyOf(date time.Time, seriesID string) SeriesDayKey {
	return SeriesDayKey{Day: date.Unix(), SeriesID: seriesID}
}

type salesAccumulator struct {
	date     time.Time
	quantity decimal.Decimal
	revenue  decimal.Decimal
}

// AggregateSales groups sales by (day, series), summing quantity and
// computing the quantity-weighted mean price. The price is zero when the
// group sold nothing.
func AggregateSales(records []domain.SalesRecord) map[SeriesDayKey]domain.SeriesDaySales {
	acc := make(map[SeriesDayKey]*salesAccumulator)
	for _, r := range records {
		k := KeyOf(r.Date, r.SeriesID)
		a, ok := acc[k]
		if !ok {
			a = &salesAccumulator{date: r.Date}
			acc[k] = a
		}
		a.quantity = a.quantity.Add(r.TargetQuantity)
		a.revenue = a.revenue.Add(r.Price.Mul(r.TargetQuantity))
	}

	out := make(map[SeriesDayKey]domain.SeriesDaySales, len(acc))
	for k, a := range acc {
		price := decimal.Zero
		if !a.quantity.IsZero() {
			price = a.revenue.DivRound(a.quantity, divisionPrecision)
		}
		out[k] = domain.SeriesDaySales{
			Date:              a.date,
			SeriesID:          k.SeriesID,
			TotalQuantitySold: a.quantity,
			WeightedAvgPrice:  price,
		}
	}
	return out
}

type inventoryAccumulator struct {
	date      time.Time
	stock     decimal.Decimal
	available map[string]struct{}
}

// InventoryResult is the inventory aggregate plus how many snapshots were
// dropped because their item was never sold.
type InventoryResult struct {
	Aggregates map[SeriesDayKey]domain.SeriesDayInventory
	Dropped    int
}

// AggregateInventory joins snapshots to series through the catalog and
// groups them by (day, series). Availability counts only the items of the
// group itself with stock above zero, and the ratio divides by the series'
// distinct items ever sold.
func AggregateInventory(snapshots []domain.InventorySnapshot, catalog *SeriesCatalog) InventoryResult {
	acc := make(map[SeriesDayKey]*inventoryAccumulator)
	dropped := 0

	for _, s := range snapshots {
		seriesID, ok := catalog.SeriesFor(s.ItemID)
		if !ok {
			dropped++
			continue
		}
		k := KeyOf(s.Date, seriesID)
		a, ok := acc[k]
		if !ok {
			a = &inventoryAccumulator{date: s.Date, available: make(map[string]struct{})}
			acc[k] = a
		}
		a.stock = a.stock.Add(s.QuantityOnHand)
		if s.QuantityOnHand.IsPositive() {
			a.available[s.ItemID] = struct{}{}
		}
	}

	out := make(map[SeriesDayKey]domain.SeriesDayInventory, len(acc))
	for k, a := range acc {
		count := len(a.available)
		ratio := decimal.Zero
		if total := catalog.DistinctItems(k.SeriesID); total > 0 {
			ratio = decimal.NewFromInt(int64(count)).
				DivRound(decimal.NewFromInt(int64(total)), divisionPrecision)
		}
		out[k] = domain.SeriesDayInventory{
			Date:                 a.date,
			SeriesID:             k.SeriesID,
			StockOnHand:          a.stock,
			AvailableModelCount:  count,
			SKUAvailabilityRatio: ratio,
		}
	}
	return InventoryResult{Aggregates: out, Dropped: dropped}
}
