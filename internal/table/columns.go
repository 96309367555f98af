package table

// ColumnsOf returns the known columns of t: the first row's keys, in
// insertion order, without the empty-string key. It is not a union over
// all rows.
func ColumnsOf(t Table) []string {
	if t.Schema == nil {
		return schemaOf(t.Rows)
	}
	return t.Schema
}

// UnionColumns concatenates the columns of a and b, dropping duplicates and
// keeping first occurrences, so a's columns come first.
func UnionColumns(a, b Table) []string {
	return appendUnique(nil, ColumnsOf(a), ColumnsOf(b))
}

// KeysOf returns the union of the keys actually present across rows, in
// first-seen order. Unlike ColumnsOf it looks at every row.
func KeysOf(rows []Row) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Contains reports whether col is in cols.
func Contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

func appendUnique(dst []string, lists ...[]string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, c := range dst {
		seen[c] = struct{}{}
	}
	for _, list := range lists {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			dst = append(dst, c)
		}
	}
	if dst == nil {
		dst = []string{}
	}
	return dst
}
