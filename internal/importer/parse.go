// Package importer turns uploaded contact spreadsheets into client records.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoHeader          = errors.New("no header row found in file")
	ErrMissingColumn     = errors.New("required column missing from header")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format is the layout of an uploaded file.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
}

// Row is one data row of the sheet, addressed by lower-cased header name.
type Row struct {
	// Number is the 1-based row number in the sheet; the header is row 1.
	Number int
	cells  map[string]string
}

// Get returns the trimmed cell under column, or "" when absent.
func (r Row) Get(column string) string {
	return r.cells[column]
}

// Blank reports whether every cell of the row is empty.
func (r Row) Blank() bool {
	for _, v := range r.cells {
		if v != "" {
			return false
		}
	}
	return true
}

// Parse reads every data row of a file. The first row must be a header that
// names an email column; columns are matched by name regardless of case or
// order, and unknown columns are ignored.
func Parse(format Format, data []byte) ([]Row, error) {
	var (
		raw []record
		err error
	)
	switch format {
	case FormatXLSX:
		raw, err = readXLSX(data)
	case FormatCSV:
		raw, err = readCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrNoHeader
	}

	columns, err := headerColumns(raw[0].cells)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		row := Row{Number: rec.line, cells: make(map[string]string, len(columns))}
		for name, idx := range columns {
			if idx < len(rec.cells) {
				row.cells[name] = strings.TrimSpace(rec.cells[idx])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type record struct {
	line  int
	cells []string
}

func headerColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "" {
			continue
		}
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	if len(columns) == 0 {
		return nil, ErrNoHeader
	}
	if _, ok := columns[ColumnEmail]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, ColumnEmail)
	}
	return columns, nil
}

func readXLSX(data []byte) ([]record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	out := make([]record, len(rows))
	for i, cells := range rows {
		out[i] = record{line: i + 1, cells: cells}
	}
	return out, nil
}

// readCSV numbers records by file line; the csv reader drops empty lines.
func readCSV(data []byte) ([]record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []record
	for {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, record{line: line, cells: cells})
	}
	return rows, nil
}
