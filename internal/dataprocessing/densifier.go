package dataprocessing

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "retailetl/internal/errors"
	"retailetl/pkg/contracts/domain"
)

const secondsPerDay = 24 * 60 * 60

// DateRange returns the first and last sales day.
func DateRange(records []domain.SalesRecord) (first, last time.Time, ok bool) {
	for i, r := range records {
		if i == 0 || r.Date.Before(first) {
			first = r.Date
		}
		if i == 0 || r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last, len(records) > 0
}

// DayCount returns the number of calendar days in [first, last].
func DayCount(first, last time.Time) int64 {
	return (last.Unix()-first.Unix())/secondsPerDay + 1
}

// GridInput carries everything the densifier joins onto the master grid.
type GridInput struct {
	First, Last  time.Time
	Series       []string
	Sales        map[SeriesDayKey]domain.SeriesDaySales
	Inventory    map[SeriesDayKey]domain.SeriesDayInventory
	HasInventory bool
}

// Densify builds one row for every (series, day) pair, sorted by series then
// day, and left-joins the aggregates onto it. Missing aggregates leave every
// numeric column at zero. The grid size is checked against maxRows before
// anything is allocated; maxRows <= 0 disables the check.
func Densify(in GridInput, maxRows int64) (*domain.Grid, error) {
	grid := &domain.Grid{HasInventory: in.HasInventory, Series: in.Series}
	if len(in.Series) == 0 {
		return grid, nil
	}

	days := DayCount(in.First, in.Last)
	total := days * int64(len(in.Series))
	if maxRows > 0 && (days > maxRows || total > maxRows) {
		return nil, apperrors.NewCapacityError("grid rows", total, maxRows).
			WithContext("days", days).
			WithContext("series", len(in.Series))
	}

	dates := make([]time.Time, days)
	for d := range dates {
		dates[d] = in.First.AddDate(0, 0, d)
	}

	grid.Days = int(days)
	grid.Rows = make([]domain.GridRow, 0, total)

	for _, seriesID := range in.Series {
		for _, date := range dates {
			k := KeyOf(date, seriesID)

			row := domain.GridRow{
				Date:                 date,
				SeriesID:             seriesID,
				TotalQuantitySold:    decimal.Zero,
				WeightedAvgPrice:     decimal.Zero,
				StockOnHand:          decimal.Zero,
				SKUAvailabilityRatio: decimal.Zero,
			}
			if s, ok := in.Sales[k]; ok {
				row.TotalQuantitySold = s.TotalQuantitySold
				row.WeightedAvgPrice = s.WeightedAvgPrice
			}
			if in.HasInventory {
				if inv, ok := in.Inventory[k]; ok {
					row.StockOnHand = inv.StockOnHand
					row.SKUAvailabilityRatio = inv.SKUAvailabilityRatio
					row.AvailableModelCount = inv.AvailableModelCount
				}
			}
			grid.Rows = append(grid.Rows, row)
		}
	}
	return grid, nil
}
