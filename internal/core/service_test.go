package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/tabletools/internal/codec"
	"github.com/JonMunkholm/tabletools/internal/naming"
	"github.com/JonMunkholm/tabletools/internal/predicate"
	"github.com/JonMunkholm/tabletools/internal/reconcile"
	"github.com/JonMunkholm/tabletools/internal/table"
)

func newTestService(t *testing.T) (*Service, *MemoryHistory) {
	t.Helper()
	hist := NewMemoryHistory(20)
	svc := NewService(Options{
		Limiter:   NewOperationLimiter(2, time.Second),
		Artifacts: NewArtifactStore(time.Minute, 0),
		History:   hist,
		MaxParts:  50,
	})
	return svc, hist
}

func csvInput(name, data string) Input {
	return Input{Name: name, Data: []byte(data), HasHeader: true}
}

func artifactText(t *testing.T, svc *Service, out Output) string {
	t.Helper()
	a, err := svc.Artifact(out.ArtifactID)
	if err != nil {
		t.Fatalf("Artifact(%s): %v", out.Name, err)
	}
	return string(a.Data)
}

func TestService_Split(t *testing.T) {
	svc, hist := newTestService(t)
	ctx := context.Background()

	res, err := svc.Split(ctx, SplitRequest{
		File:  csvInput("people.csv", "id,email\n1,a@x.com\n2,b@x.com\n3,c@x.com\n"),
		Parts: 4,
	})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if res.Kind != naming.KindSplit || len(res.Outputs) != 4 {
		t.Fatalf("Result = %+v", res)
	}
	wantNames := []string{"people-part1.csv", "people-part2.csv", "people-part3.csv", "people-part4.csv"}
	wantRows := []int{1, 1, 1, 0}
	for i, out := range res.Outputs {
		if out.Name != wantNames[i] || out.Rows != wantRows[i] {
			t.Errorf("output %d = %s/%d, want %s/%d", i, out.Name, out.Rows, wantNames[i], wantRows[i])
		}
	}
	if got := artifactText(t, svc, res.Outputs[1]); got != "id,email\n2,b@x.com\n" {
		t.Errorf("part 2 = %q", got)
	}
	if got := artifactText(t, svc, res.Outputs[3]); got != "id,email\n" {
		t.Errorf("empty part = %q, want header only", got)
	}

	entries, _ := hist.Recent(ctx, 1)
	if len(entries) != 1 || entries[0].ID != res.ID || entries[0].RowsIn != 3 || entries[0].RowsOut != 3 {
		t.Errorf("history = %+v", entries)
	}
}

func TestService_BlankHeaderColumnKept(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	in := csvInput("notes.csv", "id,,name\n1,x,Ann\n2,y,Bob\n")

	split, err := svc.Split(ctx, SplitRequest{File: in, Parts: 1})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if got := artifactText(t, svc, split.Outputs[0]); got != string(in.Data) {
		t.Errorf("split part = %q, want %q", got, in.Data)
	}

	expr := predicate.Expression{{{Column: "name", Operator: predicate.Equal, Value: "Bob"}}}
	filtered, err := svc.Filter(ctx, FilterRequest{File: in, Expression: expr})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if got, want := artifactText(t, svc, filtered.Outputs[0]), "id,,name\n2,y,Bob\n"; got != want {
		t.Errorf("match = %q, want %q", got, want)
	}
}

func TestService_SplitHeaderless(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Split(context.Background(), SplitRequest{
		File:  Input{Name: "raw.csv", Data: []byte("a,b\nc,d\ne,f\n")},
		Parts: 2,
	})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if got := artifactText(t, svc, res.Outputs[0]); got != "a,b\nc,d\n" {
		t.Errorf("part 1 = %q", got)
	}
	if got := artifactText(t, svc, res.Outputs[1]); got != "e,f\n" {
		t.Errorf("part 2 = %q", got)
	}
}

func TestService_SplitConfigurationErrors(t *testing.T) {
	svc, hist := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SplitRequest
	}{
		{"zero parts", SplitRequest{File: csvInput("a.csv", "id\n1\n"), Parts: 0}},
		{"negative parts", SplitRequest{File: csvInput("a.csv", "id\n1\n"), Parts: -2}},
		{"too many parts", SplitRequest{File: csvInput("a.csv", "id\n1\n"), Parts: 51}},
		{"missing name", SplitRequest{File: Input{Data: []byte("id\n1\n")}, Parts: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Split(ctx, tt.req)
			if !errors.Is(err, table.ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
		})
	}

	if svc.Artifacts().Len() != 0 {
		t.Errorf("artifacts stored for rejected requests: %d", svc.Artifacts().Len())
	}
	if entries, _ := hist.Recent(ctx, 0); len(entries) != 0 {
		t.Errorf("rejected requests recorded: %+v", entries)
	}
}

func TestService_Diff(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Diff(context.Background(), DiffRequest{
		A:       csvInput("crm.csv", "id,name\n1,Ann\n2,Bob\n"),
		B:       csvInput("billing.csv", "id,plan\n2,pro\n3,free\n"),
		Join:    reconcile.JoinSpec{ColumnA: "id", ColumnB: "id"},
		Include: reconcile.IncludeAll,
	})
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	if len(res.Outputs) != 1 || res.Outputs[0].Name != "crm-diff.csv" {
		t.Fatalf("Outputs = %+v", res.Outputs)
	}
	if res.Stats["left"] != 1 || res.Stats["overlapping"] != 1 || res.Stats["right"] != 1 {
		t.Errorf("Stats = %v", res.Stats)
	}

	want := "id,name,id (2),plan\n" +
		"1,Ann,,\n" +
		"2,Bob,2,pro\n" +
		"3,,,free\n"
	if got := artifactText(t, svc, res.Outputs[0]); got != want {
		t.Errorf("diff output =\n%s\nwant\n%s", got, want)
	}
	if res.Summary != "left=1 overlapping=1 right=1" {
		t.Errorf("Summary = %q", res.Summary)
	}
}

func TestService_DiffEmptyResultUsesUnionHeader(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Diff(context.Background(), DiffRequest{
		A:       csvInput("a.csv", "id,name\n1,Ann\n"),
		B:       csvInput("b.csv", "id,plan\n1,pro\n"),
		Join:    reconcile.JoinSpec{ColumnA: "id", ColumnB: "id"},
		Include: reconcile.Include{Left: true},
	})
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if got := artifactText(t, svc, res.Outputs[0]); got != "id,name,plan\n" {
		t.Errorf("output = %q", got)
	}
}

func TestService_DiffErrors(t *testing.T) {
	svc, hist := newTestService(t)
	ctx := context.Background()

	_, err := svc.Diff(ctx, DiffRequest{
		A:       csvInput("a.csv", "id\n1\n"),
		B:       csvInput("b.csv", "id\n1\n"),
		Join:    reconcile.JoinSpec{ColumnA: "id"},
		Include: reconcile.IncludeAll,
	})
	if !errors.Is(err, table.ErrConfiguration) {
		t.Errorf("missing join column err = %v", err)
	}

	_, err = svc.Diff(ctx, DiffRequest{
		A:       csvInput("a.csv", "id\n1\n"),
		B:       csvInput("b.csv", "id,x\n1\n"),
		Join:    reconcile.JoinSpec{ColumnA: "id", ColumnB: "id"},
		Include: reconcile.IncludeAll,
	})
	if !errors.Is(err, codec.ErrInvalidCSV) {
		t.Errorf("ragged input err = %v, want ErrInvalidCSV", err)
	}
	if MapError(err).Code != "FILE002" {
		t.Errorf("MapError code = %s", MapError(err).Code)
	}

	entries, _ := hist.Recent(ctx, 0)
	if len(entries) != 1 || !entries[0].Failed() {
		t.Errorf("history = %+v, want one failed entry", entries)
	}
	if svc.Artifacts().Len() != 0 {
		t.Errorf("artifacts stored after failure: %d", svc.Artifacts().Len())
	}
}

func TestService_Filter(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Filter(context.Background(), FilterRequest{
		File: csvInput("users.csv", "name,status\nAnn,active\nBob,inactive\nCy,active\n"),
		Expression: predicate.Expression{
			{{Column: "status", Operator: predicate.Equal, Value: "active"}},
		},
	})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}

	if len(res.Outputs) != 2 {
		t.Fatalf("Outputs = %+v", res.Outputs)
	}
	match, miss := res.Outputs[0], res.Outputs[1]
	if match.Name != "users-match.csv" || match.Rows != 2 {
		t.Errorf("match = %+v", match)
	}
	if miss.Name != "users-miss.csv" || miss.Rows != 1 {
		t.Errorf("miss = %+v", miss)
	}
	if got := artifactText(t, svc, miss); got != "name,status\nBob,inactive\n" {
		t.Errorf("miss output = %q", got)
	}
}

func TestService_FilterInvalidExpression(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Filter(context.Background(), FilterRequest{
		File:       csvInput("users.csv", "name\nAnn\n"),
		Expression: predicate.Expression{{{Operator: predicate.Empty}}},
	})
	if !errors.Is(err, table.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestService_Merge(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Merge(context.Background(), MergeRequest{
		A:    csvInput("leads.csv", "email,name\na@x.com,Ann\n,Nobody\nz@x.com,Zed\n"),
		B:    csvInput("accounts.csv", "email,plan\n,ghost\na@x.com,pro\n"),
		Join: reconcile.JoinSpec{ColumnA: "email", ColumnB: "email"},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	out := res.Outputs[0]
	if out.Name != "leads-merged.csv" || out.Rows != 3 {
		t.Errorf("output = %+v", out)
	}
	if res.Stats["matched"] != 1 || res.Stats["unmatched"] != 2 {
		t.Errorf("Stats = %v", res.Stats)
	}

	want := "email,name,email (2),plan\n" +
		"a@x.com,Ann,a@x.com,pro\n" +
		",Nobody,,\n" +
		"z@x.com,Zed,,\n"
	if got := artifactText(t, svc, out); got != want {
		t.Errorf("merge output =\n%s\nwant\n%s", got, want)
	}
}

func TestService_MergeHeaderlessRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Merge(context.Background(), MergeRequest{
		A:    Input{Name: "a.csv", Data: []byte("1,2\n")},
		B:    csvInput("b.csv", "id\n1\n"),
		Join: reconcile.JoinSpec{ColumnA: "0", ColumnB: "id"},
	})
	if !errors.Is(err, table.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestService_Inspect(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Inspect(context.Background(), InspectRequest{
		File: csvInput("c.csv", "ID,Work Email,Name\n1,a@x.com,Ann\n2,b@x.com,Bob\n"),
	})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if res.Rows != 2 || res.SuggestedJoin != "Work Email" || len(res.Preview) != 2 {
		t.Errorf("Inspect = %+v", res)
	}
	if strings.Join(res.Columns, "|") != "ID|Work Email|Name" {
		t.Errorf("Columns = %v", res.Columns)
	}
}

func TestService_InputLimits(t *testing.T) {
	svc := NewService(Options{MaxFileSize: 8, MaxRows: 1})
	ctx := context.Background()

	tests := []struct {
		name     string
		in       Input
		wantCode string
	}{
		{"no data", Input{Name: "a.csv"}, "FILE004"},
		{"empty data", Input{Name: "a.csv", Data: []byte{}}, "FILE005"},
		{"too large", csvInput("a.csv", "id\n1\n2\n3\n4\n"), "FILE001"},
		{"too many rows", csvInput("a.csv", "id\n1\n2\n"), "FILE002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Split(ctx, SplitRequest{File: tt.in, Parts: 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := MapError(err).Code; got != tt.wantCode {
				t.Errorf("code = %s, want %s (%v)", got, tt.wantCode, err)
			}
		})
	}
}

func hundredRows() Input {
	var b strings.Builder
	b.WriteString("id,email\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "%d,user%d@example.com\n", i, i)
	}
	return csvInput("users.csv", b.String())
}

func TestService_OutputsExceedStore(t *testing.T) {
	in := hundredRows()
	store := NewArtifactStore(time.Minute, int64(len(in.Data))/2)
	hist := NewMemoryHistory(5)
	svc := NewService(Options{Artifacts: store, History: hist})

	res, err := svc.Split(context.Background(), SplitRequest{File: in, Parts: 4})
	if !errors.Is(err, ErrArtifactStoreFull) {
		t.Fatalf("Split = %+v, %v; want ErrArtifactStoreFull", res, err)
	}
	if got := MapError(err).Code; got != "OP003" {
		t.Errorf("code = %s, want OP003", got)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d artifacts after a failed operation", store.Len())
	}
	entries, _ := hist.Recent(context.Background(), 1)
	if len(entries) != 1 || entries[0].Error == "" {
		t.Errorf("history = %+v, want one failed entry", entries)
	}
}

func TestService_OutputsEvictOnlyOlderArtifacts(t *testing.T) {
	in := hundredRows()
	store := NewArtifactStore(time.Minute, 2*int64(len(in.Data)))
	svc := NewService(Options{Artifacts: store})

	old, err := store.Put("old.csv", make([]byte, len(in.Data)))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := svc.Split(context.Background(), SplitRequest{File: in, Parts: 4})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	rows := 0
	for _, out := range res.Outputs {
		text := artifactText(t, svc, out)
		if !strings.HasPrefix(text, "id,email\n") {
			t.Errorf("%s missing header: %q", out.Name, text)
		}
		rows += out.Rows
	}
	if rows != 100 {
		t.Errorf("parts hold %d rows, want 100", rows)
	}
	if _, err := store.Get(old.ID); !errors.Is(err, ErrArtifactNotFound) {
		t.Error("older artifact should have been evicted to make room")
	}
}

func TestService_Busy(t *testing.T) {
	svc := NewService(Options{Limiter: NewOperationLimiter(1, 20*time.Millisecond)})
	if !svc.Limiter().TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer svc.Limiter().Release()

	_, err := svc.Split(context.Background(), SplitRequest{File: csvInput("a.csv", "id\n1\n"), Parts: 1})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestService_ClientIPRecorded(t *testing.T) {
	svc, hist := newTestService(t)
	ctx := ContextWithClientIP(context.Background(), "203.0.113.9")

	if _, err := svc.Split(ctx, SplitRequest{File: csvInput("a.csv", "id\n1\n"), Parts: 1}); err != nil {
		t.Fatalf("Split: %v", err)
	}
	entries, _ := hist.Recent(ctx, 1)
	if len(entries) != 1 || entries[0].ClientIP != "203.0.113.9" {
		t.Errorf("history = %+v", entries)
	}
}
