// Package rowreader turns uploaded inventory sheets (.csv or .xlsx) into raw
// rows keyed by the required upload columns. It checks the header only; the
// bulk pipeline validates row contents.
package rowreader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Required columns, in template order.
var RequiredColumns = []string{"product_name", "sku", "batch_number", "quantity"}

const columnDescription = "description"

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")

// MissingColumnsError lists required header columns that were not found.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// RawRow is one data line of an upload; Line is 1-based and counts the header.
type RawRow struct {
	Line        int    `json:"line"`
	ProductName string `json:"product_name" validate:"notblank"`
	SKU         string `json:"sku" validate:"notblank"`
	BatchNumber string `json:"batch_number" validate:"notblank"`
	Quantity    string `json:"quantity" validate:"positive_int"`
	Description string `json:"description"`
}

// Read dispatches on the filename extension.
func Read(filename string, r io.Reader) ([]RawRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func ReadCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records)
}

// ReadXLSX reads the first worksheet of the workbook.
func ReadXLSX(r io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &MissingColumnsError{Columns: RequiredColumns}
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) ([]RawRow, error) {
	if len(records) == 0 {
		return nil, &MissingColumnsError{Columns: RequiredColumns}
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	cell := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]RawRow, 0, len(records)-1)
	for n, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		rows = append(rows, RawRow{
			Line:        n + 2,
			ProductName: cell(record, "product_name"),
			SKU:         cell(record, "sku"),
			BatchNumber: cell(record, "batch_number"),
			Quantity:    cell(record, "quantity"),
			Description: cell(record, columnDescription),
		})
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
