package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV streams the table as comma separated values with a header row.
func WriteCSV(w io.Writer, t Table) error {
	if len(t.Columns) == 0 {
		return ErrNoColumns
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(t.headers()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(t.record(row)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
