package dataprocessing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "retailetl/internal/errors"
	"retailetl/internal/shared/testutil"
	"retailetl/pkg/contracts/domain"
)

func mustTable(t *testing.T, name, csvText string) *Table {
	t.Helper()
	tbl, err := ReadCSV(name, strings.NewReader(csvText))
	require.NoError(t, err)
	return tbl
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-05", want, false},
		{" 2024-03-05 ", want, false},
		{"2024-03-05T23:59:59Z", want, false},
		{"2024-03-05T01:00:00+05:00", want, false},
		{"2024-03-05 14:30:00", want, false},
		{"2024-03-05 14:30:00.123", want, false},
		{"2024/03/05", want, false},
		{"03/05/2024", want, false},
		{"03-05-24", want, false},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
		{"2024-13-01", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseConflictPolicy(t *testing.T) {
	p, err := ParseConflictPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LastWriteWins, p)

	p, err = ParseConflictPolicy("ERROR")
	require.NoError(t, err)
	assert.Equal(t, ErrorOnConflict, p)
	assert.Equal(t, "error", p.String())

	_, err = ParseConflictPolicy("first_wins")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestParseSalesRecords(t *testing.T) {
	tbl := mustTable(t, TableSales, testutil.SalesCSV(
		testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "Acme", Style: " Tee", Qty: "2.50", Price: "10"},
	))

	records, err := ParseSalesRecords(tbl)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme_ Tee", records[0].SeriesID)
	assert.Equal(t, "2.5", records[0].TargetQuantity.String())
}

func TestParseSalesRecords_Errors(t *testing.T) {
	tests := []struct {
		name       string
		row        testutil.SalesRow
		wantColumn string
	}{
		{"bad date", testutil.SalesRow{Date: "01.01.2024", Item: "A1", Brand: "b", Style: "s", Qty: "1", Price: "1"}, "timestamp"},
		{"bad quantity", testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "b", Style: "s", Qty: "two", Price: "1"}, "target_quantity"},
		{"negative price", testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "b", Style: "s", Qty: "1", Price: "-3"}, "price"},
		{"empty price", testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "b", Style: "s", Qty: "1", Price: ""}, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			good := testutil.SalesRow{Date: "2024-01-01", Item: "A0", Brand: "b", Style: "s", Qty: "1", Price: "1"}
			tbl := mustTable(t, TableSales, testutil.SalesCSV(good, tt.row))

			_, err := ParseSalesRecords(tbl)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
			assert.Equal(t, 3, appErr.Context["row"])
			assert.Equal(t, tt.wantColumn, appErr.Context["column"])
			assert.Equal(t, TableSales, appErr.Context["table"])
		})
	}
}

func TestParseInventorySnapshots_Error(t *testing.T) {
	tbl := mustTable(t, TableInventory, testutil.InventoryCSV(
		testutil.InventoryRow{Date: "2024-01-01", Item: "A1", Qty: "lots"},
	))
	_, err := ParseInventorySnapshots(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `inventory file row 2: invalid quantity_on_hand value "lots"`)
}

func salesRecord(date, item, brand, style string) domain.SalesRecord {
	d, _ := ParseDate(date)
	return domain.SalesRecord{Date: d, ItemID: item, ProductBrand: brand, ProductStyle: style, SeriesID: domain.SeriesIDFor(brand, style)}
}

func TestBuildSeriesCatalog(t *testing.T) {
	records := []domain.SalesRecord{
		salesRecord("2024-01-01", "A1", "Zeta", "Tee"),
		salesRecord("2024-01-01", "A2", "Acme", "Tee"),
		salesRecord("2024-01-02", "A2", "Acme", "Tee"),
		salesRecord("2024-01-02", "A3", "Acme", "Tee"),
	}

	c, err := BuildSeriesCatalog(records, LastWriteWins)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme_Tee", "Zeta_Tee"}, c.Series())
	assert.Equal(t, 2, c.DistinctItems("Acme_Tee"))
	assert.Equal(t, 0, c.DistinctItems("Nope_Nope"))
	assert.Equal(t, 0, c.Conflicts)

	s, ok := c.SeriesFor("A1")
	assert.True(t, ok)
	assert.Equal(t, "Zeta_Tee", s)
}

func TestBuildSeriesCatalog_Conflicts(t *testing.T) {
	records := []domain.SalesRecord{
		salesRecord("2024-01-01", "A1", "Acme", "Tee"),
		salesRecord("2024-01-02", "A1", "Acme", "Polo"),
		salesRecord("2024-01-03", "A1", "Acme", "Tee"),
	}

	c, err := BuildSeriesCatalog(records, LastWriteWins)
	require.NoError(t, err)
	s, _ := c.SeriesFor("A1")
	assert.Equal(t, "Acme_Tee", s)
	assert.Equal(t, 1, c.Conflicts)
	assert.Equal(t, 1, c.DistinctItems("Acme_Polo"))

	_, err = BuildSeriesCatalog(records, ErrorOnConflict)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))
	assert.Contains(t, err.Error(), `"Acme_Tee" and "Acme_Polo"`)
}
