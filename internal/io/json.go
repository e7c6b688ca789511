package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prepd/prepd/internal/table"
)

// WriteNDJSON writes one JSON object per row, nulls as JSON null, with
// keys in column order.
func WriteNDJSON(w io.Writer, tbl *table.Table) error {
	names := tbl.ColumnNames()
	var buf bytes.Buffer
	for row := 0; row < tbl.NumRows(); row++ {
		buf.Reset()
		if err := appendRowObject(&buf, tbl, names, row); err != nil {
			return err
		}
		buf.WriteByte('\n')
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
	}
	return nil
}

// WriteNDJSONFile writes the table to path as NDJSON.
func WriteNDJSONFile(path string, tbl *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return WriteNDJSON(f, tbl)
}

// WriteJSONDocument writes named tables as one object mapping each
// name to its array of row objects, in the given name order.
func WriteJSONDocument(w io.Writer, names []string, tables map[string]*table.Table) error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for ti, name := range names {
		tbl, ok := tables[name]
		if !ok {
			return fmt.Errorf("no table named %q", name)
		}
		if ti > 0 {
			buf.WriteString(",\n")
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteString(": [")
		columnNames := tbl.ColumnNames()
		for row := 0; row < tbl.NumRows(); row++ {
			if row > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString("\n    ")
			if err := appendRowObject(&buf, tbl, columnNames, row); err != nil {
				return err
			}
		}
		if tbl.NumRows() > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteByte(']')
	}
	buf.WriteString("\n}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteJSONDocumentFile writes the named tables to path.
func WriteJSONDocumentFile(path string, names []string, tables map[string]*table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSONDocument(f, names, tables)
}

// appendRowObject renders one row as a JSON object with keys in column
// order, which map-based encoding would not preserve.
func appendRowObject(buf *bytes.Buffer, tbl *table.Table, names []string, row int) error {
	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		col, _ := tbl.Column(name)
		value, ok := col.Value(row)
		if !ok {
			buf.WriteString("null")
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s row %d: %w", name, row, err)
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return nil
}
