// Package naming derives output file names from an input file name.
//
// Every name is built from the input's stem: the input name with every
// occurrence of the literal, case-sensitive ".csv" removed.
package naming

import (
	"fmt"
	"strings"
)

const ext = ".csv"

// Kind identifies the operation that produced an output.
type Kind string

const (
	KindSplit  Kind = "split"
	KindDiff   Kind = "diff"
	KindFilter Kind = "filter"
	KindMerge  Kind = "merge"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSplit, KindDiff, KindFilter, KindMerge:
		return true
	}
	return false
}

// Stem removes every ".csv" from name. "report.csv.csv" and
// "my.csv-export.csv" both lose all occurrences; ".CSV" is kept.
func Stem(name string) string {
	return strings.ReplaceAll(name, ext, "")
}

// DiffName is the name of the combined diff output.
func DiffName(name string) string {
	return Stem(name) + "-diff" + ext
}

// MergeName is the name of the merge output.
func MergeName(name string) string {
	return Stem(name) + "-merged" + ext
}

// FilterNames returns the names of the matching and missing outputs.
func FilterNames(name string) (match, miss string) {
	stem := Stem(name)
	return stem + "-match" + ext, stem + "-miss" + ext
}

// PartName is the name of part i, counted from 1.
func PartName(name string, i int) string {
	return fmt.Sprintf("%s-part%d%s", Stem(name), i, ext)
}
