package io

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/xuri/excelize/v2"

	"github.com/prepd/prepd/internal/table"
)

// ExcelOptions configures workbook reading. Cells come back as the
// rendered strings, so the CSV inference and null-token rules apply.
type ExcelOptions struct {
	// Sheet selects a sheet by name; empty selects by SheetIndex.
	Sheet string
	// SheetIndex is the zero-based sheet position used when Sheet is
	// empty.
	SheetIndex int
	// SkipRows drops this many rows before the header.
	SkipRows int
	// Renames maps header names to new column names at load time.
	Renames map[string]string

	CSV CSVOptions
}

// DefaultExcelOptions reads the first sheet with a header row.
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{CSV: DefaultCSVOptions()}
}

// ReadExcelFile reads one sheet of a workbook into a table.
func ReadExcelFile(path string, options ExcelOptions, mem memory.Allocator) (*table.Table, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer book.Close()

	sheet := options.Sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if options.SheetIndex < 0 || options.SheetIndex >= len(sheets) {
			return nil, fmt.Errorf("workbook %s has no sheet index %d", path, options.SheetIndex)
		}
		sheet = sheets[options.SheetIndex]
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, path, err)
	}
	if options.SkipRows > 0 {
		if options.SkipRows >= len(rows) {
			rows = nil
		} else {
			rows = rows[options.SkipRows:]
		}
	}
	if len(rows) == 0 {
		return table.Empty(mem), nil
	}

	csvOpts := options.CSV
	if csvOpts.Delimiter == 0 {
		csvOpts = DefaultCSVOptions()
	}

	var header []string
	data := rows
	if csvOpts.Header {
		header = rows[0]
		data = rows[1:]
	} else {
		header = make([]string, len(rows[0]))
		for i := range header {
			header[i] = fmt.Sprintf("column_%d", i)
		}
	}
	for i, name := range header {
		if next, ok := options.Renames[name]; ok {
			header[i] = next
		}
	}
	return tableFromRecords(header, data, csvOpts, mem)
}
