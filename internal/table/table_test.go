package table

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestNew_SchemaFromFirstRow(t *testing.T) {
	rows := []Row{
		RowFromPairs("id", "1", "", "x", "email", "a@x.com"),
		RowFromPairs("id", "2", "other", "y"),
	}
	tbl := New(rows, true)

	want := []string{"id", "email"}
	if !reflect.DeepEqual(tbl.Schema, want) {
		t.Errorf("Schema = %v, want %v", tbl.Schema, want)
	}
	if !reflect.DeepEqual(ColumnsOf(tbl), want) {
		t.Errorf("ColumnsOf = %v, want %v", ColumnsOf(tbl), want)
	}
	if tbl.HasColumn("other") {
		t.Error("HasColumn(other) = true, schema only comes from the first row")
	}
}

func TestColumnsOf_Empty(t *testing.T) {
	tbl := New(nil, true)
	cols := ColumnsOf(tbl)
	if cols == nil || len(cols) != 0 {
		t.Errorf("ColumnsOf(empty) = %#v, want empty non-nil slice", cols)
	}
}

func TestColumnsOf_DerivesWhenSchemaMissing(t *testing.T) {
	tbl := Table{Rows: []Row{RowFromPairs("b", "1", "a", "2")}}
	want := []string{"b", "a"}
	if got := ColumnsOf(tbl); !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnsOf = %v, want %v", got, want)
	}
}

func TestUnionColumns(t *testing.T) {
	tests := []struct {
		name string
		a, b []Row
		want []string
	}{
		{
			name: "disjoint",
			a:    []Row{RowFromPairs("id", "1", "name", "a")},
			b:    []Row{RowFromPairs("email", "x", "city", "y")},
			want: []string{"id", "name", "email", "city"},
		},
		{
			name: "overlap keeps A order first",
			a:    []Row{RowFromPairs("id", "1", "email", "a")},
			b:    []Row{RowFromPairs("email", "x", "id", "2", "plan", "pro")},
			want: []string{"id", "email", "plan"},
		},
		{
			name: "empty A",
			a:    nil,
			b:    []Row{RowFromPairs("id", "1")},
			want: []string{"id"},
		},
		{
			name: "both empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnionColumns(New(tt.a, true), New(tt.b, true))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("UnionColumns = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeysOf_FirstSeenOrder(t *testing.T) {
	rows := []Row{
		RowFromPairs("id", "1"),
		RowFromPairs("id", "2", "id (2)", "2", "plan", "pro"),
		RowFromPairs("plan", "free", "extra", "z"),
	}
	want := []string{"id", "id (2)", "plan", "extra"}
	if got := KeysOf(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("KeysOf = %v, want %v", got, want)
	}
}

func TestBuilder_DoesNotMutateBase(t *testing.T) {
	base := RowFromPairs("id", "1", "email", "a@x.com")

	derived := NewBuilder(base).
		Set("email (2)", "b@x.com").
		Set("id", "changed").
		Build()

	if base.Len() != 2 {
		t.Fatalf("base row grew to %d fields", base.Len())
	}
	if base.Value("id") != "1" {
		t.Errorf("base id = %q, want %q", base.Value("id"), "1")
	}

	wantKeys := []string{"id", "email", "email (2)"}
	if !reflect.DeepEqual(derived.Keys(), wantKeys) {
		t.Errorf("derived keys = %v, want %v", derived.Keys(), wantKeys)
	}
	if derived.Value("id") != "changed" {
		t.Errorf("derived id = %q, want %q", derived.Value("id"), "changed")
	}
}

func TestRow_GetAbsentVersusEmpty(t *testing.T) {
	r := RowFromPairs("a", "")

	if v, ok := r.Get("a"); !ok || v != "" {
		t.Errorf("Get(a) = %q, %v; want \"\", true", v, ok)
	}
	if _, ok := r.Get("b"); ok {
		t.Error("Get(b) reported present")
	}

	var zero Row
	if zero.Has("a") || zero.Len() != 0 || zero.Keys() != nil {
		t.Error("zero Row should behave as empty")
	}
}

func TestRow_MarshalJSONKeepsOrder(t *testing.T) {
	r := RowFromPairs("z", "1", "a", "2")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"z":"1","a":"2"}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestRow_Equal(t *testing.T) {
	a := RowFromPairs("id", "1", "x", "y")
	if !a.Equal(RowFromPairs("id", "1", "x", "y")) {
		t.Error("identical rows not equal")
	}
	if a.Equal(RowFromPairs("x", "y", "id", "1")) {
		t.Error("rows with different key order reported equal")
	}
	if a.Equal(RowFromPairs("id", "1", "x", "z")) {
		t.Error("rows with different values reported equal")
	}
}

func TestNewRow_ShortValues(t *testing.T) {
	r := NewRow([]string{"a", "b"}, []string{"1"})
	if v, ok := r.Get("b"); !ok || v != "" {
		t.Errorf("Get(b) = %q, %v; want \"\", true", v, ok)
	}
}

func TestRequireHeader(t *testing.T) {
	if err := New(nil, true).RequireHeader("diff"); err != nil {
		t.Errorf("RequireHeader with header = %v", err)
	}
	err := New(nil, false).RequireHeader("diff")
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("RequireHeader without header = %v, want ErrConfiguration", err)
	}
}
