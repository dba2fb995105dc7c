package drift

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

// Table is a header plus string cells, exactly as read from a CSV file.
// No coercion happens at this level.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable builds a table from a header and rows. The slices are copied.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	t.Rows = make([][]string, len(rows))
	for i, r := range rows {
		t.Rows[i] = append([]string(nil), r...)
	}
	return t
}

// ReadCSV reads a comma-separated table with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errorsmod.Wrapf(ErrInput, "read csv: %v", err)
	}
	if len(records) == 0 {
		return nil, errorsmod.Wrap(ErrInput, "empty file, no header row")
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		header[i] = strings.TrimSpace(name)
	}

	return &Table{Header: header, Rows: records[1:]}, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errorsmod.Wrapf(ErrInput, "input file %s does not exist", path)
		}
		return nil, err
	}
	defer file.Close()

	return ReadCSV(file)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	if t == nil {
		return -1
	}
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column is present.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return NewTable(t.Header, t.Rows)
}

// cell returns the trimmed value of column col in row, or "" when the row is
// shorter than the header.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
