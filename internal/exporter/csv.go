package exporter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"retailetl/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "exporter"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes a header and records to w.
func (w *CSVWriter) WriteCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteGrid writes the training grid as CSV. Rows are streamed in grid
// order, so memory use does not double for large grids.
func (w *CSVWriter) WriteGrid(out io.Writer, grid *domain.Grid, bom bool) error {
	if bom {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(grid.Columns()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(grid.Columns()))
	for i := range grid.Rows {
		gridRecord(record, &grid.Rows[i], grid.HasInventory)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	w.logger.Debug("grid written",
		slog.Int("record_count", len(grid.Rows)),
		slog.Bool("inventory", grid.HasInventory))
	return nil
}

// WriteFile writes the grid to path, creating parent directories. The file
// is written next to path first and renamed into place on success.
func (w *CSVWriter) WriteFile(path string, grid *domain.Grid, bom bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".etl-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	if err := w.WriteGrid(buf, grid, bom); err != nil {
		tmp.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	w.logger.Info("Wrote CSV file",
		slog.String("file_path", path),
		slog.Int("record_count", len(grid.Rows)))
	return nil
}

func gridRecord(dst []string, row *domain.GridRow, inventory bool) {
	dst[0] = formatDate(row.Date)
	dst[1] = row.SeriesID
	dst[2] = formatDecimal(row.TotalQuantitySold)
	dst[3] = formatDecimal(row.WeightedAvgPrice)
	if inventory {
		dst[4] = formatDecimal(row.StockOnHand)
		dst[5] = formatDecimal(row.SKUAvailabilityRatio)
		dst[6] = formatInt(int64(row.AvailableModelCount))
	}
}
