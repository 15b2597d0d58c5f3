package tabular

import (
	"path/filepath"
	"strings"
)

// Kind identifies the declared source format of an upload.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindXLS  Kind = "xls"
)

// KindForFilename maps a filename extension to a source kind.
func KindForFilename(name string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return KindCSV, true
	case ".xlsx", ".xlsm":
		return KindXLSX, true
	case ".xls":
		return KindXLS, true
	}
	return "", false
}

// Table is a rectangular view of one spreadsheet: a header row of column
// labels and the data rows beneath it. Tables are ephemeral; they exist only
// for the duration of one parse and are never mutated after construction.
type Table struct {
	Header []string
	Rows   [][]string
}

// Cell returns the trimmed value at (row, col), or "" when the row is
// shorter than the header.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// RowEmpty reports whether every cell of row i is blank.
func (t *Table) RowEmpty(i int) bool {
	for _, cell := range t.Rows[i] {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
