package io

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/prepd/prepd/internal/table"
)

// ReadZip extracts the archive to a temp directory and reads every
// data file in it, keyed by base filename. CSV files use the given
// options; xlsx files use default workbook options; other files are
// skipped.
func ReadZip(path string, options CSVOptions, mem memory.Allocator) (map[string]*table.Table, error) {
	dir, err := os.MkdirTemp("", "prepd-zip-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := extractZip(path, dir); err != nil {
		return nil, err
	}
	return ReadDirectory(dir, options, mem)
}

// ReadDirectory reads every csv and xlsx file directly inside dir,
// keyed by base filename.
func ReadDirectory(dir string, options CSVOptions, mem memory.Allocator) (map[string]*table.Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	tables := make(map[string]*table.Table)
	releaseAll := func() {
		for _, tbl := range tables {
			tbl.Release()
		}
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		full := filepath.Join(dir, name)
		var tbl *table.Table
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv":
			tbl, err = ReadCSVFile(full, options, mem)
		case ".xlsx":
			tbl, err = ReadExcelFile(full, DefaultExcelOptions(), mem)
		default:
			continue
		}
		if err != nil {
			releaseAll()
			return nil, err
		}
		tables[name] = tbl
	}
	return tables, nil
}

// extractZip unpacks the archive into dir, rejecting entries that
// would escape it.
func extractZip(path, dir string) error {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		target := filepath.Join(dir, filepath.Base(file.Name))
		if file.FileInfo().IsDir() {
			continue
		}
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction dir", file.Name)
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening archive entry %q: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("extracting %q: %w", file.Name, err)
	}
	return nil
}
