package codec

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/tabletools/internal/table"
)

// Encode writes rows to w as CSV, one record per row with cells in columns
// order. Absent cells are written as "". The header record is written only
// when includeHeader is set.
func Encode(w io.Writer, rows []table.Row, includeHeader bool, columns []string) error {
	cw := csv.NewWriter(w)

	if includeHeader && len(columns) > 0 {
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, r := range rows {
		if err := cw.Write(r.Values(columns)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// EncodeBytes encodes rows into a new byte slice.
func EncodeBytes(rows []table.Row, includeHeader bool, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, rows, includeHeader, columns); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTable encodes t using its own schema and header mode.
func EncodeTable(t table.Table) ([]byte, error) {
	return EncodeBytes(t.Rows, t.HasHeader, table.ColumnsOf(t))
}
