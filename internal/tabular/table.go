// Package tabular holds the loosely-typed table that raw exports arrive as:
// a header row plus string cells. Upstream systems disagree on everything
// (column names, casing, date formats), so nothing here interprets values —
// that is the normalization layer's job.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a delimited text table with a header row.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool { return t == nil || len(t.Rows) == 0 }

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column, matching
// case-insensitively on the trimmed header. Returns -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, c := range t.Columns {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return i
		}
	}
	return -1
}

// HasColumn reports whether any of the candidate names is present.
func (t *Table) HasColumn(names ...string) bool {
	for _, n := range names {
		if t.ColumnIndex(n) >= 0 {
			return true
		}
	}
	return false
}

// Cell returns row[col] or "" when the row is ragged or col is -1.
func (t *Table) Cell(row int, col int) string {
	if t == nil || col < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Read parses delimited tabular text with a header row. Short rows are kept
// (missing cells read as empty), so a truncated export still normalizes.
func Read(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return &Table{Name: name}, nil
	}

	header := make([]string, len(records[0]))
	for i, c := range records[0] {
		header[i] = strings.TrimSpace(c)
	}
	return &Table{Name: name, Columns: header, Rows: records[1:]}, nil
}

// ReadFile reads a CSV file into a Table named after its path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(path, f)
}

// Write emits the table as CSV, header first.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table as a CSV file.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
