package io

import (
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, book.SaveAs(path))
	return path
}

func TestReadExcelFile(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"name", "age"},
		{"alice", 30},
		{"bob", 25},
	})

	tbl, err := ReadExcelFile(path, DefaultExcelOptions(), memory.NewGoAllocator())
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, []string{"name", "age"}, tbl.ColumnNames())
	assert.Equal(t, 2, tbl.NumRows())
	age, _ := tbl.Column("age")
	assert.Equal(t, "int64", age.DataType().String())
}

func TestReadExcelFileSkipRowsAndRenames(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"report generated 2024"},
		{"Name", "Age"},
		{"alice", 30},
	})

	options := DefaultExcelOptions()
	options.SkipRows = 1
	options.Renames = map[string]string{"Name": "name", "Age": "age"}
	tbl, err := ReadExcelFile(path, options, memory.NewGoAllocator())
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, []string{"name", "age"}, tbl.ColumnNames())
	assert.Equal(t, 1, tbl.NumRows())
}

func TestReadExcelFileMissingSheet(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"v"}, {1}})

	options := DefaultExcelOptions()
	options.Sheet = "Nope"
	_, err := ReadExcelFile(path, options, memory.NewGoAllocator())
	assert.Error(t, err)
}
