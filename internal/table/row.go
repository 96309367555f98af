// Package table holds the in-memory model shared by every tabular operation:
// rows keyed by column name, tables carrying an explicit column schema, and
// the column list helpers the engines use to line two tables up.
package table

import (
	"fmt"
	"strings"

	"github.com/Velocidex/ordereddict"
)

// Row is an ordered mapping from column name to cell value.
//
// A Row is immutable once built. Use a Builder to derive a new Row from an
// existing one; the base row is never touched.
type Row struct {
	d *ordereddict.Dict
}

// NewRow builds a row from parallel key and value slices. Missing values
// become "". A repeated key keeps its first position and its last value.
func NewRow(keys []string, values []string) Row {
	b := &Builder{index: make(map[string]int, len(keys))}
	for i, k := range keys {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		b.Set(k, v)
	}
	return b.Build()
}

// RowFromPairs builds a row from alternating key, value arguments.
// A trailing key without a value is stored as "".
func RowFromPairs(pairs ...string) Row {
	b := &Builder{index: make(map[string]int, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		v := ""
		if i+1 < len(pairs) {
			v = pairs[i+1]
		}
		b.Set(pairs[i], v)
	}
	return b.Build()
}

// Get returns the value stored under col and whether the column is present.
func (r Row) Get(col string) (string, bool) {
	if r.d == nil {
		return "", false
	}
	return r.d.GetString(col)
}

// Value returns the value stored under col, or "" when it is absent.
func (r Row) Value(col string) string {
	v, _ := r.Get(col)
	return v
}

// Has reports whether col is present in the row.
func (r Row) Has(col string) bool {
	_, ok := r.Get(col)
	return ok
}

// Keys returns the row's column names in insertion order.
func (r Row) Keys() []string {
	if r.d == nil {
		return nil
	}
	return r.d.Keys()
}

// Len returns the number of fields in the row.
func (r Row) Len() int {
	if r.d == nil {
		return 0
	}
	return r.d.Len()
}

// Values returns the cells for cols in order; absent columns yield "".
func (r Row) Values(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = r.Value(c)
	}
	return out
}

// Equal reports whether both rows hold the same keys, in the same order,
// with the same values.
func (r Row) Equal(other Row) bool {
	ak, bk := r.Keys(), other.Keys()
	if len(ak) != len(bk) {
		return false
	}
	for i, k := range ak {
		if bk[i] != k {
			return false
		}
		if r.Value(k) != other.Value(k) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the row as a JSON object preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	if r.d == nil {
		return []byte("{}"), nil
	}
	return r.d.MarshalJSON()
}

func (r Row) String() string {
	parts := make([]string, 0, r.Len())
	for _, k := range r.Keys() {
		parts = append(parts, fmt.Sprintf("%s:%q", k, r.Value(k)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Builder constructs a new Row, optionally starting from the fields of a
// base row. Setting an existing key replaces its value in place.
type Builder struct {
	keys   []string
	values []string
	index  map[string]int
}

// NewBuilder returns a builder seeded with a copy of base's fields.
func NewBuilder(base Row) *Builder {
	keys := base.Keys()
	b := &Builder{
		keys:   make([]string, 0, len(keys)),
		values: make([]string, 0, len(keys)),
		index:  make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		b.Set(k, base.Value(k))
	}
	return b
}

// Set stores value under col.
func (b *Builder) Set(col, value string) *Builder {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[col]; ok {
		b.values[i] = value
		return b
	}
	b.index[col] = len(b.keys)
	b.keys = append(b.keys, col)
	b.values = append(b.values, value)
	return b
}

// Has reports whether col has been set on the builder.
func (b *Builder) Has(col string) bool {
	_, ok := b.index[col]
	return ok
}

// Build returns the finished row. The builder may keep being used; later
// changes do not affect rows already built.
func (b *Builder) Build() Row {
	d := ordereddict.NewDict()
	for i, k := range b.keys {
		d.Set(k, b.values[i])
	}
	return Row{d: d}
}
