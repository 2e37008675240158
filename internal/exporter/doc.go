// Package exporter serializes the training grid as CSV.
//
// CSVWriter writes to any io.Writer, so the HTTP layer can render into a
// buffer before sending and the CLI can write to stdout or a file.
// Decimals are written in their shortest exact form and dates as
// YYYY-MM-DD.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	var buf bytes.Buffer
//	err := w.WriteGrid(&buf, grid, false)
package exporter
