package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SalesHeader is the canonical sales header used by fixtures.
const SalesHeader = "timestamp,item_id,product_brand,product_style,target_quantity,price"

// InventoryHeader is the canonical inventory header used by fixtures.
const InventoryHeader = "snapshot_date,item_id,quantity_on_hand"

// SalesRow is one raw sales line. Fields are written verbatim.
type SalesRow struct {
	Date  string
	Item  string
	Brand string
	Style string
	Qty   string
	Price string
}

// InventoryRow is one raw inventory line.
type InventoryRow struct {
	Date string
	Item string
	Qty  string
}

// SalesCSV renders rows under the canonical sales header.
func SalesCSV(rows ...SalesRow) string {
	var b strings.Builder
	b.WriteString(SalesHeader + "\n")
	for _, r := range rows {
		b.WriteString(strings.Join([]string{r.Date, r.Item, r.Brand, r.Style, r.Qty, r.Price}, ",") + "\n")
	}
	return b.String()
}

// InventoryCSV renders rows under the canonical inventory header.
func InventoryCSV(rows ...InventoryRow) string {
	var b strings.Builder
	b.WriteString(InventoryHeader + "\n")
	for _, r := range rows {
		b.WriteString(strings.Join([]string{r.Date, r.Item, r.Qty}, ",") + "\n")
	}
	return b.String()
}

// AvailabilityFixture has four items in series Acme_Tee, three of them in
// stock on 2024-01-01, plus an inventory row for an item never sold.
func AvailabilityFixture() (sales, inventory string) {
	sales = SalesCSV(
		SalesRow{"2024-01-01", "A1", "Acme", "Tee", "1", "10"},
		SalesRow{"2024-01-01", "A2", "Acme", "Tee", "1", "10"},
		SalesRow{"2024-01-02", "A3", "Acme", "Tee", "1", "10"},
		SalesRow{"2024-01-02", "A4", "Acme", "Tee", "1", "10"},
	)
	inventory = InventoryCSV(
		InventoryRow{"2024-01-01", "A1", "5"},
		InventoryRow{"2024-01-01", "A2", "2"},
		InventoryRow{"2024-01-01", "A3", "1"},
		InventoryRow{"2024-01-01", "A4", "0"},
		InventoryRow{"2024-01-01", "ZZ", "100"},
	)
	return sales, inventory
}

// XLSX builds a single-sheet workbook from CSV text. Cells are written as strings.
func XLSX(t *testing.T, csvText string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	lines := strings.Split(strings.TrimRight(csvText, "\n"), "\n")
	for i, line := range lines {
		cells := strings.Split(line, ",")
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
