package codec

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/JonMunkholm/tabletools/internal/table"
)

func TestDecode_Header(t *testing.T) {
	input := "id,email\n1,a@x.com\n\n2,\"b,c@x.com\"\n"
	tbl, err := Decode(strings.NewReader(input), true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !reflect.DeepEqual(tbl.Schema, []string{"id", "email"}) {
		t.Errorf("Schema = %v", tbl.Schema)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (blank line skipped)", tbl.Len())
	}
	if got := tbl.Rows[1].Value("email"); got != "b,c@x.com" {
		t.Errorf("quoted field = %q", got)
	}
	if !tbl.HasHeader {
		t.Error("HasHeader = false")
	}
}

func TestDecode_Headerless(t *testing.T) {
	tbl, err := Decode(strings.NewReader("a,b\nc,d\n"), false)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tbl.Len() != 2 || tbl.HasHeader {
		t.Fatalf("Len = %d HasHeader = %v", tbl.Len(), tbl.HasHeader)
	}
	if tbl.Rows[1].Value("0") != "c" || tbl.Rows[1].Value("1") != "d" {
		t.Errorf("row = %v", tbl.Rows[1])
	}
}

func TestDecode_BOMAndInvalidUTF8(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name\nbad\x80byte\n")...)
	tbl, stats, err := DecodeWith(bytes.NewReader(input), Options{HasHeader: true})
	if err != nil {
		t.Fatalf("DecodeWith: %v", err)
	}
	if !tbl.HasColumn("name") {
		t.Fatalf("Schema = %v, BOM not stripped", tbl.Schema)
	}
	if got := tbl.Rows[0].Value("name"); got != "bad?byte" {
		t.Errorf("value = %q, want %q", got, "bad?byte")
	}
	if stats.Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", stats.Replaced)
	}
}

func TestDecode_DuplicateHeaders(t *testing.T) {
	tbl, err := Decode(strings.NewReader("a,a,b,a\n1,2,3,4\n"), true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []string{"a", "a_1", "b", "a_2"}
	if !reflect.DeepEqual(tbl.Schema, want) {
		t.Errorf("Schema = %v, want %v", tbl.Schema, want)
	}
	if tbl.Rows[0].Value("a_2") != "4" {
		t.Errorf("row = %v", tbl.Rows[0])
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
	}{
		{"ragged record", "a,b\n1,2,3\n", Options{HasHeader: true}},
		{"bare quote", "a,b\n1,x\"y\n", Options{HasHeader: true}},
		{"too many rows", "a\n1\n2\n3\n", Options{HasHeader: true, MaxRows: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeWith(strings.NewReader(tt.input), tt.opts)
			if !errors.Is(err, ErrInvalidCSV) {
				t.Fatalf("err = %v, want ErrInvalidCSV", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) || de.Line == 0 {
				t.Errorf("DecodeError line missing: %v", err)
			}
			if !strings.Contains(err.Error(), "invalid csv") {
				t.Errorf("message = %q", err.Error())
			}
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	tbl, err := Decode(strings.NewReader(""), true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tbl.Len() != 0 || len(tbl.Schema) != 0 {
		t.Errorf("tbl = %+v", tbl)
	}
}

func TestEncode(t *testing.T) {
	rows := []table.Row{
		table.RowFromPairs("id", "1", "note", "has,comma"),
		table.RowFromPairs("id", "2"),
	}

	got, err := EncodeBytes(rows, true, []string{"id", "note"})
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	want := "id,note\n1,\"has,comma\"\n2,\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, err = EncodeBytes(rows, false, []string{"note", "id"})
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	want = "\"has,comma\",1\n,2\n"
	if string(got) != want {
		t.Errorf("headerless got %q, want %q", got, want)
	}
}

func TestRoundTripPreservesOrder(t *testing.T) {
	input := "z,a,m\n3,1,2\n6,4,5\n"
	tbl, err := DecodeBytes([]byte(input), true)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	out, err := EncodeTable(tbl)
	if err != nil {
		t.Fatalf("EncodeTable: %v", err)
	}
	if string(out) != input {
		t.Errorf("got %q, want %q", out, input)
	}
}

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"with BOM", append([]byte{0xEF, 0xBB, 0xBF}, "hello"...), "hello"},
		{"without BOM", []byte("hello"), "hello"},
		{"empty", nil, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM", []byte{0xEF, 0xBB, 'a'}, string([]byte{0xEF, 0xBB, 'a'})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(SkipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizer(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"ascii", []byte("plain"), "plain"},
		{"multibyte", []byte("caf\xc3\xa9"), "café"},
		{"invalid byte", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
		{"truncated at EOF", []byte{'a', 0xE2, 0x82}, "a??"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewSanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizer_SplitSequence(t *testing.T) {
	// One byte per Read forces every multi-byte rune to straddle reads.
	input := "naïve,日本\n"
	r := NewSanitizer(iotest.OneByteReader(strings.NewReader(input)))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != input {
		t.Errorf("got %q, want %q", got, input)
	}
	if r.Replaced != 0 {
		t.Errorf("Replaced = %d, want 0", r.Replaced)
	}
}
