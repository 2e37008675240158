// Package dataprocessing turns retail sales logs, and optionally inventory
// snapshots, into a dense daily time series per product series.
//
// # Architecture
//
// A run passes through four stages, each with its own span and duration
// metric:
//
//  1. Validate: required columns are present in every supplied table
//  2. Derive: cells are parsed, series_id = brand + "_" + style, and the
//     item to series catalog is built
//  3. Aggregate: per (day, series) sales volume and weighted price, and
//     per (day, series) stock, available items and availability ratio
//  4. Densify: every series crossed with every day between the first and
//     last sale, zero filled and sorted by series then day
//
// # Usage
//
//	sales, err := dataprocessing.ReadTable(dataprocessing.TableSales, "sales.csv", f)
//	if err != nil {
//	    return err
//	}
//	p := dataprocessing.NewPipeline(dataprocessing.Options{MaxGridRows: 1_000_000}, logger, nil, nil)
//	grid, stats, err := p.Run(ctx, dataprocessing.Input{Sales: sales})
//
// # Error Handling
//
// Every failure is an *errors.AppError classified where it is detected:
// SCHEMA for missing columns, PARSING for unreadable files and cells (with
// table, row, column and value), CONFLICT for inconsistent item mappings
// under the error policy and CAPACITY for oversized grids. A run returns
// either a complete grid or an error.
//
// # Arithmetic
//
// Quantities and prices are shopspring decimals so identical inputs give
// byte-identical output. Divisions keep 16 decimal places.
package dataprocessing
