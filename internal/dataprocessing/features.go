package dataprocessing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailetl/internal/config"
	apperrors "retailetl/internal/errors"
	"retailetl/pkg/contracts/domain"
)

// ConflictPolicy decides what happens when one item_id appears under more
// than one series in the sales table.
type ConflictPolicy int

const (
	// LastWriteWins maps the item to the series of its last sales row.
	LastWriteWins ConflictPolicy = iota
	// ErrorOnConflict rejects the input with a conflict error.
	ErrorOnConflict
)

// ParseConflictPolicy maps a configuration value to a policy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", config.ConflictLastWriteWins:
		return LastWriteWins, nil
	case config.ConflictError:
		return ErrorOnConflict, nil
	default:
		return LastWriteWins, apperrors.NewConfigError(fmt.Sprintf("unknown conflict policy %q", s), nil)
	}
}

func (p ConflictPolicy) String() string {
	if p == ErrorOnConflict {
		return config.ConflictError
	}
	return config.ConflictLastWriteWins
}

// dateLayouts are tried in order. Layouts without a zone parse as UTC.
// "01-02-06" is how excelize renders Excel's built-in short date format.
var dateLayouts = []string{
	domain.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"01-02-06",
}

// ParseDate parses a timestamp and truncates it to the calendar day it was
// written in.
func ParseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return domain.CivilDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

// parseQuantity parses a non-negative decimal.
func parseQuantity(value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative number")
	}
	return d, nil
}

// columnIndex resolves required column positions. Callers validate first.
func columnIndex(t *Table, names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for _, n := range names {
		i, _ := t.Column(n)
		idx[n] = i
	}
	return idx
}

// ParseSalesRecords converts the sales table to typed records and derives
// series_id. Any unparseable cell aborts the whole table.
func ParseSalesRecords(t *Table) ([]domain.SalesRecord, error) {
	col := columnIndex(t, domain.SalesColumns)
	records := make([]domain.SalesRecord, 0, t.Len())

	for _, row := range t.Rows {
		cell := func(name string) string { return row.Cell(col[name]) }

		date, err := ParseDate(cell("timestamp"))
		if err != nil {
			return nil, apperrors.NewCellParseError(t.Name, row.Line, "timestamp", cell("timestamp"), err)
		}
		qty, err := parseQuantity(cell("target_quantity"))
		if err != nil {
			return nil, apperrors.NewCellParseError(t.Name, row.Line, "target_quantity", cell("target_quantity"), err)
		}
		price, err := parseQuantity(cell("price"))
		if err != nil {
			return nil, apperrors.NewCellParseError(t.Name, row.Line, "price", cell("price"), err)
		}

		brand, style := cell("product_brand"), cell("product_style")
		records = append(records, domain.SalesRecord{
			Date:           date,
			ItemID:         cell("item_id"),
			ProductBrand:   brand,
			ProductStyle:   style,
			TargetQuantity: qty,
			Price:          price,
			SeriesID:       domain.SeriesIDFor(brand, style),
		})
	}
	return records, nil
}

// ParseInventorySnapshots converts the inventory table to typed snapshots.
func ParseInventorySnapshots(t *Table) ([]domain.InventorySnapshot, error) {
	col := columnIndex(t, domain.InventoryColumns)
	snapshots := make([]domain.InventorySnapshot, 0, t.Len())

	for _, row := range t.Rows {
		cell := func(name string) string { return row.Cell(col[name]) }

		date, err := ParseDate(cell("snapshot_date"))
		if err != nil {
			return nil, apperrors.NewCellParseError(t.Name, row.Line, "snapshot_date", cell("snapshot_date"), err)
		}
		qty, err := parseQuantity(cell("quantity_on_hand"))
		if err != nil {
			return nil, apperrors.NewCellParseError(t.Name, row.Line, "quantity_on_hand", cell("quantity_on_hand"), err)
		}

		snapshots = append(snapshots, domain.InventorySnapshot{
			Date:           date,
			ItemID:         cell("item_id"),
			QuantityOnHand: qty,
		})
	}
	return snapshots, nil
}

// SeriesCatalog is what the sales table says about items and series: the
// canonical item to series mapping, the distinct items sold per series and
// the sorted set of series.
type SeriesCatalog struct {
	itemSeries  map[string]string
	seriesItems map[string]map[string]struct{}
	series      []string

	// Conflicts counts items seen under more than one series.
	Conflicts int
}

// BuildSeriesCatalog derives the catalog from sales records in file order.
func BuildSeriesCatalog(records []domain.SalesRecord, policy ConflictPolicy) (*SeriesCatalog, error) {
	c := &SeriesCatalog{
		itemSeries:  make(map[string]string),
		seriesItems: make(map[string]map[string]struct{}),
	}
	conflicted := make(map[string]bool)

	for _, r := range records {
		if prev, ok := c.itemSeries[r.ItemID]; ok && prev != r.SeriesID {
			if policy == ErrorOnConflict {
				return nil, apperrors.NewConflictError(r.ItemID, prev, r.SeriesID)
			}
			if !conflicted[r.ItemID] {
				conflicted[r.ItemID] = true
				c.Conflicts++
			}
		}
		c.itemSeries[r.ItemID] = r.SeriesID

		items, ok := c.seriesItems[r.SeriesID]
		if !ok {
			items = make(map[string]struct{})
			c.seriesItems[r.SeriesID] = items
			c.series = append(c.series, r.SeriesID)
		}
		items[r.ItemID] = struct{}{}
	}

	sort.Strings(c.series)
	return c, nil
}

// SeriesFor returns the series an item belongs to.
func (c *SeriesCatalog) SeriesFor(itemID string) (string, bool) {
	s, ok := c.itemSeries[itemID]
	return s, ok
}

// DistinctItems returns how many distinct items were ever sold in a series.
func (c *SeriesCatalog) DistinctItems(seriesID string) int {
	return len(c.seriesItems[seriesID])
}

// Series returns every series seen in sales, sorted.
func (c *SeriesCatalog) Series() []string {
	return c.series
}
