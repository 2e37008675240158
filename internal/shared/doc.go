// Package shared holds helpers used by more than one package of the ETL
// service that do not belong to any single layer.
//
// The testutil subpackage provides a capturing slog handler for log
// assertions and builders for sales and inventory fixtures in CSV and
// XLSX form.
package shared
