// Package ingest reads the campaign source table and groups its rows by campaign title.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrSourceNotFound indicates the source table does not exist.
var ErrSourceNotFound = errors.New("source table not found")

// Row is one source record keyed by header column name.
// Columns absent from the header are reported as empty strings.
type Row map[string]string

// Get returns the value of column, or "" when the column is missing.
func (r Row) Get(column string) string {
	return r[column]
}

// Lookup returns the value of column and whether the header carried it.
func (r Row) Lookup(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

// ReadFile reads all rows from the delimited table at path.
// Returns ErrSourceNotFound when the file does not exist.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("open source table: %w", err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("read source table %s: %w", path, err)
	}
	return rows, nil
}

// ReadRows parses a header-led CSV stream into rows.
// Short records leave their trailing columns empty; extra fields are ignored.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		row := make(Row, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			} else {
				row[column] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
