// Package codec turns CSV bytes into tables and tables back into CSV bytes.
//
// Decoding strips a UTF-8 byte order mark, replaces invalid UTF-8 bytes
// with '?', skips blank lines and rejects records whose field count differs
// from the first record. With a header, rows are keyed by header name;
// without one they are keyed by position ("0", "1", ...).
package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tabletools/internal/table"
)

// ErrInvalidCSV is matched by every DecodeError.
var ErrInvalidCSV = errors.New("invalid csv")

// DecodeError reports input that could not be decoded into a table.
type DecodeError struct {
	Name string
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("invalid csv")
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInvalidCSV) match any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidCSV
}

// Options tune decoding.
type Options struct {
	// Name is the input's file name, used in error messages.
	Name string
	// HasHeader treats the first record as column names.
	HasHeader bool
	// MaxRows rejects inputs with more data rows. Zero means no limit.
	MaxRows int
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// Stats describes a completed decode.
type Stats struct {
	Bytes    int64
	Replaced int
}

// Decode reads a whole table from r.
func Decode(r io.Reader, hasHeader bool) (table.Table, error) {
	t, _, err := DecodeWith(r, Options{HasHeader: hasHeader})
	return t, err
}

// DecodeBytes decodes data.
func DecodeBytes(data []byte, hasHeader bool) (table.Table, error) {
	return Decode(bytes.NewReader(data), hasHeader)
}

// DecodeWith reads a whole table from r using opts.
func DecodeWith(r io.Reader, opts Options) (table.Table, Stats, error) {
	counter, san := wrap(r)

	cr := csv.NewReader(counter)
	cr.FieldsPerRecord = 0
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	fail := func(line int, err error) (table.Table, Stats, error) {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = pe.Line
			err = pe.Err
		}
		return table.Table{}, Stats{}, &DecodeError{Name: opts.Name, Line: line, Err: err}
	}

	var keys []string
	var rows []table.Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(0, err)
		}

		if keys == nil {
			if opts.HasHeader {
				keys = headerKeys(rec)
				continue
			}
			keys = positionalKeys(len(rec))
		}

		if opts.MaxRows > 0 && len(rows) >= opts.MaxRows {
			line, _ := cr.FieldPos(0)
			return fail(line, fmt.Errorf("more than %d rows", opts.MaxRows))
		}
		rows = append(rows, table.NewRow(keys, rec))
	}

	stats := Stats{Bytes: counter.N, Replaced: san.Replaced}
	return table.New(rows, opts.HasHeader), stats, nil
}

// headerKeys turns a header record into unique column names. A repeated
// name gets "_1", "_2", ... appended until it no longer collides.
func headerKeys(rec []string) []string {
	keys := make([]string, len(rec))
	used := make(map[string]bool, len(rec))
	for i, h := range rec {
		name := h
		for n := 1; used[name]; n++ {
			name = h + "_" + strconv.Itoa(n)
		}
		used[name] = true
		keys[i] = name
	}
	return keys
}

func positionalKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}
