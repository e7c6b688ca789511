// Package io reads and writes tables: CSV with null-aware type
// inference, Excel workbooks, ZIP archives of data files, and JSON
// output formats.
package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/prepd/prepd/internal/series"
	"github.com/prepd/prepd/internal/table"
)

// ColumnType names a CSV schema override target type.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInt64   ColumnType = "int64"
	TypeFloat64 ColumnType = "float64"
	TypeBool    ColumnType = "bool"
)

// CSVOptions configures CSV reading.
type CSVOptions struct {
	// Delimiter is the field separator, ',' by default.
	Delimiter rune
	// Header reads the first row as column names. Without it columns
	// are named column_0, column_1, ...
	Header bool
	// NullTokens are cell values mapped to null before inference.
	NullTokens []string
	// SchemaOverrides forces a type per column, skipping inference.
	SchemaOverrides map[string]ColumnType
	// TrimSpace trims surrounding whitespace from every cell.
	TrimSpace bool
}

// DefaultCSVOptions reads comma-separated input with a header row and
// the usual null tokens.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:  ',',
		Header:     true,
		NullTokens: []string{"", "null", "NULL", "n/a", "N/A"},
	}
}

// CSVReader reads one table from CSV input.
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
	mem     memory.Allocator
}

// NewCSVReader creates a CSV reader over reader.
func NewCSVReader(reader io.Reader, options CSVOptions, mem memory.Allocator) *CSVReader {
	if options.Delimiter == 0 {
		options.Delimiter = ','
	}
	return &CSVReader{reader: reader, options: options, mem: mem}
}

// ReadCSVFile reads a whole CSV file into a table. Input that is not
// valid UTF-8 is retried as latin-1.
func ReadCSVFile(path string, options CSVOptions, mem memory.Allocator) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		data = latin1ToUTF8(data)
	}
	return NewCSVReader(strings.NewReader(string(data)), options, mem).Read()
}

// latin1ToUTF8 reinterprets bytes as latin-1 code points.
func latin1ToUTF8(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		out = utf8.AppendRune(out, rune(b))
	}
	return out
}

// Read parses the input into a table.
func (r *CSVReader) Read() (*table.Table, error) {
	cr := csv.NewReader(r.reader)
	cr.Comma = r.options.Delimiter
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return table.Empty(r.mem), nil
	}

	var header []string
	rows := records
	if r.options.Header {
		header = records[0]
		rows = records[1:]
	} else {
		header = make([]string, len(records[0]))
		for i := range header {
			header[i] = fmt.Sprintf("column_%d", i)
		}
	}

	return tableFromRecords(header, rows, r.options, r.mem)
}

// tableFromRecords builds a table from a header and string rows,
// applying null tokens, schema overrides and inference. Shared by the
// CSV and Excel readers.
func tableFromRecords(header []string, rows [][]string, options CSVOptions, mem memory.Allocator) (*table.Table, error) {
	nulls := make(map[string]bool, len(options.NullTokens))
	for _, tok := range options.NullTokens {
		nulls[tok] = true
	}

	columns := make([]*series.Column, len(header))
	for ci, name := range header {
		cells := make([]string, len(rows))
		valid := make([]bool, len(rows))
		for ri, row := range rows {
			if ci >= len(row) {
				continue
			}
			cell := row[ci]
			if options.TrimSpace {
				cell = strings.TrimSpace(cell)
			}
			if nulls[cell] {
				continue
			}
			cells[ri] = cell
			valid[ri] = true
		}

		colType, overridden := options.SchemaOverrides[name]
		if !overridden {
			colType = inferType(cells, valid)
		}
		col, err := buildTypedColumn(name, colType, cells, valid, mem)
		if err != nil {
			for _, built := range columns[:ci] {
				built.Release()
			}
			return nil, err
		}
		columns[ci] = col
	}
	return table.New(mem, columns...)
}

// inferType picks the narrowest type all non-null cells fit:
// bool, int64, float64, then string.
func inferType(cells []string, valid []bool) ColumnType {
	isBool, isInt, isFloat := true, true, true
	seen := false
	for i, cell := range cells {
		if !valid[i] {
			continue
		}
		seen = true
		if isBool && !isBoolToken(cell) {
			isBool = false
		}
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
	}
	switch {
	case !seen:
		return TypeString
	case isBool:
		return TypeBool
	case isInt:
		return TypeInt64
	case isFloat:
		return TypeFloat64
	default:
		return TypeString
	}
}

// isBoolToken recognizes only true/false spellings, so 0/1 columns
// stay numeric.
func isBoolToken(cell string) bool {
	switch strings.ToLower(cell) {
	case "true", "false":
		return true
	default:
		return false
	}
}

func buildTypedColumn(name string, colType ColumnType, cells []string, valid []bool, mem memory.Allocator) (*series.Column, error) {
	switch colType {
	case TypeString:
		return series.NewWithNulls(name, cells, valid, mem), nil
	case TypeInt64:
		out := make([]int64, len(cells))
		for i, cell := range cells {
			if !valid[i] {
				continue
			}
			v, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %q is not an int64", name, cell)
			}
			out[i] = v
		}
		return series.NewWithNulls(name, out, valid, mem), nil
	case TypeFloat64:
		out := make([]float64, len(cells))
		for i, cell := range cells {
			if !valid[i] {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %q is not a float64", name, cell)
			}
			out[i] = v
		}
		return series.NewWithNulls(name, out, valid, mem), nil
	case TypeBool:
		out := make([]bool, len(cells))
		for i, cell := range cells {
			if !valid[i] {
				continue
			}
			v, err := strconv.ParseBool(cell)
			if err != nil {
				return nil, fmt.Errorf("column %s: %q is not a bool", name, cell)
			}
			out[i] = v
		}
		return series.NewWithNulls(name, out, valid, mem), nil
	default:
		return nil, fmt.Errorf("column %s: unknown type %q", name, colType)
	}
}

// CSVWriter writes a table as CSV, nulls as empty fields.
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	if options.Delimiter == 0 {
		options.Delimiter = ','
	}
	return &CSVWriter{writer: writer, options: options}
}

// Write renders the table.
func (w *CSVWriter) Write(tbl *table.Table) error {
	cw := csv.NewWriter(w.writer)
	cw.Comma = w.options.Delimiter

	if w.options.Header {
		if err := cw.Write(tbl.ColumnNames()); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}
	record := make([]string, tbl.NumCols())
	for row := 0; row < tbl.NumRows(); row++ {
		for ci, col := range tbl.Columns() {
			record[ci] = ""
			if value, ok := col.Value(row); ok {
				record[ci] = fmt.Sprintf("%v", value)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes a table to path with a header row.
func WriteCSVFile(path string, tbl *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return NewCSVWriter(f, CSVOptions{Header: true}).Write(tbl)
}
