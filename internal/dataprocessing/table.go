package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "retailetl/internal/errors"
)

// Table names used in error messages and metrics.
const (
	TableSales     = "sales"
	TableInventory = "inventory"
)

const utf8BOM = "\ufeff"

// Row is one data row together with its 1-based row number in the source
// file (the header is row 1).
type Row struct {
	Line  int
	Cells []string
}

// Table is an uploaded file as text cells, header first.
type Table struct {
	Name   string
	Header []string
	Rows   []Row

	index map[string]int
}

// NewTable builds a table and its column index. A UTF-8 BOM on the first
// header cell and surrounding whitespace on header names are removed.
// Rows with no non-blank cell are dropped.
func NewTable(name string, header []string, rows []Row) *Table {
	t := &Table{
		Name:   name,
		Header: make([]string, len(header)),
		index:  make(map[string]int, len(header)),
	}

	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}

	t.Rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		if !isBlank(r.Cells) {
			t.Rows = append(t.Rows, r)
		}
	}
	return t
}

// Column returns the position of a header name.
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Cell returns the value at a column of a row, or "" for short rows.
func (r Row) Cell(col int) string {
	if col < 0 || col >= len(r.Cells) {
		return ""
	}
	return r.Cells[col]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadCSV reads a comma separated table. Rows may have a different number
// of fields than the header.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s file is empty", name), nil).
			WithContext("table", name)
	}
	if err != nil {
		return nil, csvError(name, err)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, Row{Line: line, Cells: record})
	}

	return NewTable(name, header, rows), nil
}

func csvError(name string, err error) error {
	appErr := apperrors.NewParsingError(fmt.Sprintf("%s file is not valid CSV", name), err).
		WithContext("table", name)
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		appErr.WithContext("row", perr.StartLine)
	}
	return appErr
}

// ReadXLSX reads the first worksheet of an Excel workbook. Cells are taken
// as excelize formats them for display.
func ReadXLSX(name string, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s file is not a valid workbook", name), err).
			WithContext("table", name)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s workbook has no sheets", name), nil).
			WithContext("table", name)
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s workbook could not be read", name), err).
			WithContext("table", name)
	}
	if len(cells) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s file is empty", name), nil).
			WithContext("table", name)
	}

	rows := make([]Row, 0, len(cells)-1)
	for i, c := range cells[1:] {
		rows = append(rows, Row{Line: i + 2, Cells: c})
	}
	return NewTable(name, cells[0], rows), nil
}

// ReadTable picks a reader from the file extension. Workbooks are read
// with ReadXLSX and everything else as CSV.
func ReadTable(name, filename string, r io.Reader) (*Table, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ReadXLSX(name, r)
	}
	return ReadCSV(name, r)
}
