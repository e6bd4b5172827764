package export

import "errors"

// ErrNoColumns is returned when a table has nothing to render.
var ErrNoColumns = errors.New("export table has no columns")

// Column describes one exported field. Width is a relative weight used by the PDF layout.
type Column struct {
	Key    string
	Header string
	Width  float64
}

// Table is a titled, column-ordered set of rows keyed by Column.Key.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

func (t Table) record(row map[string]string) []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = row[col.Key]
	}
	return out
}

func (t Table) headers() []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Header
		if out[i] == "" {
			out[i] = col.Key
		}
	}
	return out
}
