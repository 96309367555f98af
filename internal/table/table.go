package table

// Table is an ordered sequence of rows plus the column schema derived from
// the first row.
//
// The schema is computed once by New and carried with the rows. Every row of
// a well-formed table exposes the same keys as the first one; nothing here
// verifies that; callers must guarantee a uniform schema upstream. Fields a
// later row has beyond the schema are ignored by column-aware operations and
// fields it lacks read as absent.
type Table struct {
	Schema    []string
	Rows      []Row
	HasHeader bool
}

// New builds a table over rows and derives its schema from the first row's
// keys, excluding the empty-string key.
func New(rows []Row, hasHeader bool) Table {
	return Table{
		Schema:    schemaOf(rows),
		Rows:      rows,
		HasHeader: hasHeader,
	}
}

func schemaOf(rows []Row) []string {
	if len(rows) == 0 {
		return []string{}
	}
	keys := rows[0].Keys()
	cols := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		cols = append(cols, k)
	}
	return cols
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Columns returns the table's schema.
func (t Table) Columns() []string {
	return t.Schema
}

// HasColumn reports whether col is part of the schema.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Schema {
		if c == col {
			return true
		}
	}
	return false
}

// RequireHeader returns a ConfigurationError for op when the table was
// decoded without a header row.
func (t Table) RequireHeader(op string) error {
	if t.HasHeader {
		return nil
	}
	return &ConfigurationError{Op: op, Reason: "a header row is required for column operations"}
}
