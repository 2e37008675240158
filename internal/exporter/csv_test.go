package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailetl/internal/shared/testutil"
	"retailetl/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleGrid(inventory bool) *domain.Grid {
	return &domain.Grid{
		HasInventory: inventory,
		Series:       []string{"Acme_Tee"},
		Days:         2,
		Rows: []domain.GridRow{
			{
				Date:                 day("2024-01-01"),
				SeriesID:             "Acme_Tee",
				TotalQuantitySold:    decimal.NewFromInt(5),
				WeightedAvgPrice:     decimal.RequireFromString("16.0000000000000000"),
				StockOnHand:          decimal.NewFromInt(8),
				SKUAvailabilityRatio: decimal.RequireFromString("0.7500000000000000"),
				AvailableModelCount:  3,
			},
			{
				Date:                 day("2024-01-02"),
				SeriesID:             "Acme_Tee",
				TotalQuantitySold:    decimal.Zero,
				WeightedAvgPrice:     decimal.Zero,
				StockOnHand:          decimal.Zero,
				SKUAvailabilityRatio: decimal.Zero,
			},
		},
	}
}

func TestCSVWriter_WriteGrid(t *testing.T) {
	tests := []struct {
		name      string
		inventory bool
		bom       bool
		expected  string
	}{
		{
			name: "sales only",
			expected: "timestamp,series_id,total_quantity_sold,weighted_avg_price\n" +
				"2024-01-01,Acme_Tee,5,16\n" +
				"2024-01-02,Acme_Tee,0,0\n",
		},
		{
			name:      "with inventory",
			inventory: true,
			expected: "timestamp,series_id,total_quantity_sold,weighted_avg_price,stock_on_hand,sku_availability_ratio,available_model_count\n" +
				"2024-01-01,Acme_Tee,5,16,8,0.75,3\n" +
				"2024-01-02,Acme_Tee,0,0,0,0,0\n",
		},
		{
			name: "with BOM",
			bom:  true,
			expected: "\ufefftimestamp,series_id,total_quantity_sold,weighted_avg_price\n" +
				"2024-01-01,Acme_Tee,5,16\n" +
				"2024-01-02,Acme_Tee,0,0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			var buf bytes.Buffer
			require.NoError(t, NewCSVWriter(logger).WriteGrid(&buf, sampleGrid(tt.inventory), tt.bom))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestCSVWriter_WriteGridQuotesSeriesID(t *testing.T) {
	grid := sampleGrid(false)
	grid.Rows = grid.Rows[:1]
	grid.Rows[0].SeriesID = `Acme, Inc_"Big" Tee`

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).WriteGrid(&buf, grid, false))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `Acme, Inc_"Big" Tee`, records[1][1])
}

func TestCSVWriter_WriteGridEmpty(t *testing.T) {
	var buf bytes.Buffer
	grid := &domain.Grid{HasInventory: true}
	require.NoError(t, NewCSVWriter(nil).WriteGrid(&buf, grid, false))
	assert.Equal(t, strings.Join(grid.Columns(), ",")+"\n", buf.String())
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := NewCSVWriter(nil).WriteCSV(&buf, WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"1", "x y"}, {"2", "needs,quote"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x y\n2,\"needs,quote\"\n", buf.String())
}

func TestCSVWriter_WriteFile(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "out", "training.csv")

	require.NoError(t, NewCSVWriter(logger).WriteFile(path, sampleGrid(true), false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "timestamp,series_id,"))
	assert.Contains(t, string(data), "2024-01-01,Acme_Tee,5,16,8,0.75,3\n")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be gone")
	assert.True(t, logs.ContainsAttr("file_path", path))
}
