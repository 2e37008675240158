package dataprocessing

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "retailetl/internal/errors"
	"retailetl/internal/shared/testutil"
	"retailetl/pkg/contracts/domain"
)

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	return NewPipeline(opts, logger, nil, nil), logs
}

func rowStrings(g *domain.Grid) [][]string {
	out := make([][]string, 0, len(g.Rows))
	for _, r := range g.Rows {
		row := []string{r.Date.Format(domain.DateLayout), r.SeriesID, r.TotalQuantitySold.String(), r.WeightedAvgPrice.String()}
		if g.HasInventory {
			row = append(row, r.StockOnHand.String(), r.SKUAvailabilityRatio.String(), strconv.Itoa(r.AvailableModelCount))
		}
		out = append(out, row)
	}
	return out
}

func TestPipeline_Run(t *testing.T) {
	salesCSV, inventoryCSV := testutil.AvailabilityFixture()

	tests := []struct {
		name         string
		withInv      bool
		wantColumns  int
		wantRows     [][]string
		wantDropped  int
		wantSeries   int
		wantGridRows int
	}{
		{
			name:        "sales only",
			wantColumns: 4,
			wantRows: [][]string{
				{"2024-01-01", "Acme_Tee", "2", "10"},
				{"2024-01-02", "Acme_Tee", "2", "10"},
			},
			wantSeries:   1,
			wantGridRows: 2,
		},
		{
			name:        "with inventory",
			withInv:     true,
			wantColumns: 7,
			wantRows: [][]string{
				{"2024-01-01", "Acme_Tee", "2", "10", "8", "0.75", "3"},
				{"2024-01-02", "Acme_Tee", "2", "10", "0", "0", "0"},
			},
			wantDropped:  1,
			wantSeries:   1,
			wantGridRows: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, logs := newTestPipeline(t, Options{})
			in := Input{Sales: mustTable(t, TableSales, salesCSV)}
			if tt.withInv {
				in.Inventory = mustTable(t, TableInventory, inventoryCSV)
			}

			grid, stats, err := p.Run(context.Background(), in)
			require.NoError(t, err)

			assert.Len(t, grid.Columns(), tt.wantColumns)
			assert.Equal(t, tt.wantRows, rowStrings(grid))
			assert.Equal(t, tt.wantDropped, stats.DroppedInventoryRows)
			assert.Equal(t, tt.wantSeries, stats.SeriesCount)
			assert.Equal(t, tt.wantGridRows, stats.GridRows)
			assert.NotEmpty(t, stats.RunID)
			testutil.AssertLogContains(t, logs, slog.LevelInfo, "pipeline run complete")
		})
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	salesCSV := testutil.SalesCSV(
		testutil.SalesRow{Date: "2024-02-03", Item: "Z9", Brand: "Zed", Style: "Cap", Qty: "1", Price: "3.10"},
		testutil.SalesRow{Date: "2024-02-01", Item: "A1", Brand: "Acme", Style: "Tee", Qty: "2", Price: "10"},
		testutil.SalesRow{Date: "2024-02-01", Item: "A2", Brand: "Acme", Style: "Tee", Qty: "3", Price: "20"},
		testutil.SalesRow{Date: "2024-02-02", Item: "B1", Brand: "Beta", Style: "Polo", Qty: "7", Price: "1.5"},
	)
	p, _ := newTestPipeline(t, Options{})

	var first [][]string
	for i := 0; i < 5; i++ {
		grid, _, err := p.Run(context.Background(), Input{Sales: mustTable(t, TableSales, salesCSV)})
		require.NoError(t, err)
		if i == 0 {
			first = rowStrings(grid)
			continue
		}
		assert.Equal(t, first, rowStrings(grid))
	}

	// 3 series x 3 days
	require.Len(t, first, 9)
	assert.Equal(t, []string{"2024-02-01", "Acme_Tee", "5", "16"}, first[0])
	assert.Equal(t, "Beta_Polo", first[3][1])
	assert.Equal(t, []string{"2024-02-03", "Zed_Cap", "1", "3.1"}, first[8])
}

func TestPipeline_Errors(t *testing.T) {
	validSales := testutil.SalesCSV(testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "a", Style: "b", Qty: "1", Price: "1"})

	tests := []struct {
		name     string
		opts     Options
		sales    string
		inv      string
		noSales  bool
		wantType apperrors.ErrorType
	}{
		{name: "missing sales", noSales: true, wantType: apperrors.ErrTypeMissingInput},
		{name: "missing price column", sales: "timestamp,item_id,product_brand,product_style,target_quantity\n2024-01-01,A1,a,b,1\n", wantType: apperrors.ErrTypeSchema},
		{name: "bad inventory column", sales: validSales, inv: "snapshot_date,item_id\n", wantType: apperrors.ErrTypeSchema},
		{name: "unparseable date", sales: testutil.SalesCSV(testutil.SalesRow{Date: "soon", Item: "A1", Brand: "a", Style: "b", Qty: "1", Price: "1"}), wantType: apperrors.ErrTypeParsing},
		{
			name:  "conflict under error policy",
			opts:  Options{ConflictPolicy: ErrorOnConflict},
			sales: testutil.SalesCSV(
				testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "a", Style: "b", Qty: "1", Price: "1"},
				testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "a", Style: "c", Qty: "1", Price: "1"},
			),
			wantType: apperrors.ErrTypeConflict,
		},
		{
			name:  "grid over capacity",
			opts:  Options{MaxGridRows: 10},
			sales: testutil.SalesCSV(
				testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "a", Style: "b", Qty: "1", Price: "1"},
				testutil.SalesRow{Date: "2024-12-31", Item: "A1", Brand: "a", Style: "b", Qty: "1", Price: "1"},
			),
			wantType: apperrors.ErrTypeCapacity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(t, tt.opts)
			var in Input
			if !tt.noSales {
				in.Sales = mustTable(t, TableSales, tt.sales)
			}
			if tt.inv != "" {
				in.Inventory = mustTable(t, TableInventory, tt.inv)
			}

			grid, stats, err := p.Run(context.Background(), in)
			require.Error(t, err)
			assert.Nil(t, grid)
			assert.Nil(t, stats)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}
}

func TestPipeline_SchemaErrorNamesPrice(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})
	sales := mustTable(t, TableSales, "timestamp,item_id,product_brand,product_style,target_quantity\n")

	_, _, err := p.Run(context.Background(), Input{Sales: sales})
	require.Error(t, err)
	assert.Equal(t, []string{"price"}, apperrors.MissingColumns(err))
}

func TestPipeline_LastWriteWinsWarns(t *testing.T) {
	p, logs := newTestPipeline(t, Options{})
	sales := mustTable(t, TableSales, testutil.SalesCSV(
		testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "a", Style: "b", Qty: "1", Price: "1"},
		testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "a", Style: "c", Qty: "1", Price: "1"},
	))

	grid, stats, err := p.Run(context.Background(), Input{Sales: sales})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Conflicts)
	assert.Equal(t, []string{"a_b", "a_c"}, grid.Series)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "more than one series")
}

// Under last_write_wins an item's earlier series keeps it in the availability
// denominator, while its inventory follows the final mapping only.
func TestPipeline_LastWriteWinsInventoryFollowsFinalSeries(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})
	sales := mustTable(t, TableSales, testutil.SalesCSV(
		testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "a", Style: "b", Qty: "1", Price: "1"},
		testutil.SalesRow{Date: "2024-01-01", Item: "A2", Brand: "a", Style: "b", Qty: "1", Price: "1"},
		testutil.SalesRow{Date: "2024-01-01", Item: "A1", Brand: "a", Style: "c", Qty: "1", Price: "1"},
	))
	inventory := mustTable(t, TableInventory, testutil.InventoryCSV(
		testutil.InventoryRow{Date: "2024-01-01", Item: "A1", Qty: "5"},
		testutil.InventoryRow{Date: "2024-01-01", Item: "A2", Qty: "3"},
	))

	grid, stats, err := p.Run(context.Background(), Input{Sales: sales, Inventory: inventory})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Conflicts)
	assert.Equal(t, [][]string{
		{"2024-01-01", "a_b", "2", "1", "3", "0.5", "1"},
		{"2024-01-01", "a_c", "1", "1", "5", "1", "1"},
	}, rowStrings(grid))
}

func TestPipeline_HeaderOnlySales(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})
	grid, stats, err := p.Run(context.Background(), Input{
		Sales:     mustTable(t, TableSales, testutil.SalesHeader+"\n"),
		Inventory: mustTable(t, TableInventory, testutil.InventoryHeader+"\n"),
	})
	require.NoError(t, err)
	assert.Empty(t, grid.Rows)
	assert.True(t, grid.HasInventory)
	assert.Equal(t, 0, stats.GridRows)
}

func TestPipeline_XLSXMatchesCSV(t *testing.T) {
	salesCSV, inventoryCSV := testutil.AvailabilityFixture()
	p, _ := newTestPipeline(t, Options{})

	fromCSV, _, err := p.Run(context.Background(), Input{
		Sales:     mustTable(t, TableSales, salesCSV),
		Inventory: mustTable(t, TableInventory, inventoryCSV),
	})
	require.NoError(t, err)

	sales, err := ReadTable(TableSales, "sales.xlsx", bytes.NewReader(testutil.XLSX(t, salesCSV)))
	require.NoError(t, err)
	inv, err := ReadTable(TableInventory, "inventory.xlsx", bytes.NewReader(testutil.XLSX(t, inventoryCSV)))
	require.NoError(t, err)

	fromXLSX, _, err := p.Run(context.Background(), Input{Sales: sales, Inventory: inv})
	require.NoError(t, err)
	assert.Equal(t, rowStrings(fromCSV), rowStrings(fromXLSX))
}

func TestPipeline_CanceledContext(t *testing.T) {
	salesCSV, _ := testutil.AvailabilityFixture()
	p, _ := newTestPipeline(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.Run(ctx, Input{Sales: mustTable(t, TableSales, salesCSV)})
	assert.ErrorIs(t, err, context.Canceled)
}
