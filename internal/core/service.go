package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JonMunkholm/tabletools/internal/codec"
	"github.com/JonMunkholm/tabletools/internal/logging"
	"github.com/JonMunkholm/tabletools/internal/naming"
	"github.com/JonMunkholm/tabletools/internal/partition"
	"github.com/JonMunkholm/tabletools/internal/predicate"
	"github.com/JonMunkholm/tabletools/internal/reconcile"
	"github.com/JonMunkholm/tabletools/internal/table"
)

// PreviewRows is the number of rows Inspect returns.
const PreviewRows = 5

// Options configures a Service. Zero values select defaults.
type Options struct {
	Limiter   *OperationLimiter
	Artifacts *ArtifactStore
	History   HistoryStore

	// MaxFileSize rejects larger inputs. Zero means no limit.
	MaxFileSize int64
	// MaxRows rejects inputs with more data rows. Zero means no limit.
	MaxRows int
	// MaxParts caps the part count of a split. Zero means no limit.
	MaxParts int
	// Timeout bounds one operation. Zero means no timeout.
	Timeout time.Duration
}

// Service runs tabular operations: it decodes inputs, runs the engines,
// encodes and stores the outputs and records history.
type Service struct {
	limiter   *OperationLimiter
	artifacts *ArtifactStore
	history   HistoryStore
	validate  *validator.Validate

	maxFileSize int64
	maxRows     int
	maxParts    int
	timeout     time.Duration
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	s := &Service{
		limiter:     opts.Limiter,
		artifacts:   opts.Artifacts,
		history:     opts.History,
		validate:    validator.New(),
		maxFileSize: opts.MaxFileSize,
		maxRows:     opts.MaxRows,
		maxParts:    opts.MaxParts,
		timeout:     opts.Timeout,
	}
	if s.limiter == nil {
		s.limiter = NewOperationLimiter(DefaultMaxConcurrent, DefaultMaxWait)
	}
	if s.artifacts == nil {
		s.artifacts = NewArtifactStore(30*time.Minute, 0)
	}
	if s.history == nil {
		s.history = NewMemoryHistory(200)
	}
	return s
}

// Limiter returns the service's operation limiter.
func (s *Service) Limiter() *OperationLimiter { return s.limiter }

// Artifacts returns the store holding generated files.
func (s *Service) Artifacts() *ArtifactStore { return s.artifacts }

// Artifact returns a stored output by ID.
func (s *Service) Artifact(id string) (Artifact, error) {
	return s.artifacts.Get(id)
}

// History returns up to limit recent operations, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	return s.history.Recent(ctx, limit)
}

// Split cuts the file into req.Parts contiguous parts, one output each.
// Parts beyond the available rows are emitted empty.
func (s *Service) Split(ctx context.Context, req SplitRequest) (*Result, error) {
	const op = naming.KindSplit
	if err := s.check(op, req); err != nil {
		return nil, err
	}
	if s.maxParts > 0 && req.Parts > s.maxParts {
		return nil, table.Configf(string(op), "at most %d parts may be requested, got %d", s.maxParts, req.Parts)
	}

	return s.run(ctx, op, []Input{req.File}, func(tables []table.Table) ([]pendingOutput, map[string]int, error) {
		t := tables[0]
		parts, err := partition.Split(t.Rows, req.Parts)
		if err != nil {
			return nil, nil, err
		}

		cols := columnsFor(t.Rows, table.ColumnsOf(t))
		outs := make([]pendingOutput, len(parts))
		for i, p := range parts {
			outs[i] = pendingOutput{
				name:          naming.PartName(req.File.Name, i+1),
				rows:          p,
				columns:       cols,
				includeHeader: t.HasHeader,
			}
		}
		stats := map[string]int{
			"parts":     len(parts),
			"part_size": partition.PartSize(t.Len(), req.Parts),
		}
		return outs, stats, nil
	})
}

// Diff reconciles A against B and writes the selected sets, in the order
// left, overlapping, right, to a single output named after A.
func (s *Service) Diff(ctx context.Context, req DiffRequest) (*Result, error) {
	const op = naming.KindDiff
	if err := s.check(op, req); err != nil {
		return nil, err
	}
	if err := req.Join.Validate(string(op)); err != nil {
		return nil, err
	}
	if !req.Include.Any() {
		return nil, table.Configf(string(op), "no output set selected")
	}

	return s.run(ctx, op, []Input{req.A, req.B}, func(tables []table.Table) ([]pendingOutput, map[string]int, error) {
		a, b := tables[0], tables[1]
		res, err := reconcile.Diff(a, b, req.Join, req.Include)
		if err != nil {
			return nil, nil, err
		}

		rows := res.Rows()
		out := pendingOutput{
			name:          naming.DiffName(req.A.Name),
			rows:          rows,
			columns:       columnsFor(rows, table.UnionColumns(a, b)),
			includeHeader: true,
		}
		stats := map[string]int{
			"left":        len(res.Left),
			"overlapping": len(res.Overlapping),
			"right":       len(res.Right),
		}
		return []pendingOutput{out}, stats, nil
	})
}

// Filter evaluates the expression against every row and writes the
// matching and missing rows to two outputs.
func (s *Service) Filter(ctx context.Context, req FilterRequest) (*Result, error) {
	const op = naming.KindFilter
	if err := s.check(op, req); err != nil {
		return nil, err
	}
	if err := req.Expression.Validate(); err != nil {
		return nil, err
	}

	return s.run(ctx, op, []Input{req.File}, func(tables []table.Table) ([]pendingOutput, map[string]int, error) {
		t := tables[0]
		res, err := predicate.Filter(t, req.Expression)
		if err != nil {
			return nil, nil, err
		}

		cols := columnsFor(t.Rows, table.ColumnsOf(t))
		matchName, missName := naming.FilterNames(req.File.Name)
		outs := []pendingOutput{
			{name: matchName, rows: res.Matching, columns: cols, includeHeader: true},
			{name: missName, rows: res.Missing, columns: cols, includeHeader: true},
		}
		stats := map[string]int{
			"matching":   len(res.Matching),
			"missing":    len(res.Missing),
			"groups":     len(req.Expression),
			"conditions": req.Expression.Conditions(),
		}
		return outs, stats, nil
	})
}

// Merge enriches every row of A with its match in B and writes one output
// row per row of A.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (*Result, error) {
	const op = naming.KindMerge
	if err := s.check(op, req); err != nil {
		return nil, err
	}
	if err := req.Join.Validate(string(op)); err != nil {
		return nil, err
	}

	return s.run(ctx, op, []Input{req.A, req.B}, func(tables []table.Table) ([]pendingOutput, map[string]int, error) {
		res, err := reconcile.Merge(tables[0], tables[1], req.Join)
		if err != nil {
			return nil, nil, err
		}

		out := pendingOutput{
			name:          naming.MergeName(req.A.Name),
			rows:          res.Rows,
			columns:       res.Columns,
			includeHeader: true,
		}
		stats := map[string]int{
			"matched":   res.Matched,
			"unmatched": len(res.Rows) - res.Matched,
		}
		return []pendingOutput{out}, stats, nil
	})
}

// Inspect decodes a file and reports its columns, row count, a suggested
// join column and the first rows. Nothing is stored or recorded.
func (s *Service) Inspect(ctx context.Context, req InspectRequest) (*InspectResult, error) {
	if err := s.check("inspect", req); err != nil {
		return nil, err
	}
	t, err := s.decode(req.File)
	if err != nil {
		return nil, err
	}

	cols := table.ColumnsOf(t)
	res := &InspectResult{
		Name:      req.File.Name,
		Rows:      t.Len(),
		HasHeader: t.HasHeader,
		Columns:   cols,
		Preview:   t.Rows[:min(PreviewRows, t.Len())],
	}
	if t.HasHeader {
		res.SuggestedJoin, _ = reconcile.SuggestJoinColumn(cols)
	}

	logging.WithFields(ctx, "op", "inspect", "file", req.File.Name).
		Debug("file inspected", "rows", res.Rows, "columns", len(cols))
	return res, nil
}

type engineFunc func(tables []table.Table) ([]pendingOutput, map[string]int, error)

// run holds an operation slot while it decodes the inputs, runs fn, and
// encodes and stores every output. Nothing is stored unless every step
// succeeds.
func (s *Service) run(ctx context.Context, kind naming.Kind, inputs []Input, fn engineFunc) (*Result, error) {
	start := time.Now()
	id := uuid.NewString()
	logger := logging.WithFields(ctx, "op", string(kind), "operation_id", id, "file", inputs[0].Name)

	entry := HistoryEntry{
		ID:        id,
		Operation: string(kind),
		Inputs:    inputNames(inputs),
		ClientIP:  ClientIPFromContext(ctx),
		CreatedAt: start.UTC(),
	}

	res, err := s.execute(ctx, kind, inputs, fn, &entry)
	entry.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		entry.Error = err.Error()
		s.record(ctx, entry)
		logger.Warn("operation failed", "error", err, "duration_ms", entry.DurationMs)
		return nil, err
	}

	res.ID = id
	res.DurationMs = entry.DurationMs
	entry.Summary = res.Summary
	entry.RowsOut = res.RowsOut()
	for _, o := range res.Outputs {
		entry.Outputs = append(entry.Outputs, o.Name)
	}
	s.record(ctx, entry)

	logger.Info("operation completed",
		"rows_in", entry.RowsIn,
		"rows_out", entry.RowsOut,
		"outputs", len(res.Outputs),
		"duration_ms", entry.DurationMs,
	)
	return res, nil
}

func (s *Service) execute(ctx context.Context, kind naming.Kind, inputs []Input, fn engineFunc, entry *HistoryEntry) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tables := make([]table.Table, len(inputs))
	for i, in := range inputs {
		t, err := s.decode(in)
		if err != nil {
			return nil, err
		}
		tables[i] = t
		entry.RowsIn += t.Len()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	pending, stats, err := fn(tables)
	if err != nil {
		return nil, err
	}

	encoded := make([][]byte, len(pending))
	for i, p := range pending {
		data, err := codec.EncodeBytes(p.rows, p.includeHeader, p.columns)
		if err != nil {
			return nil, fmt.Errorf("%s: encode %s: %w", kind, p.name, err)
		}
		encoded[i] = data
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	res := &Result{
		Kind:    kind,
		Outputs: make([]Output, len(pending)),
		Stats:   stats,
		Summary: summarize(stats),
	}
	files := make([]ArtifactFile, len(pending))
	for i, p := range pending {
		files[i] = ArtifactFile{Name: p.name, Data: encoded[i]}
	}
	stored, err := s.artifacts.PutAll(files)
	if err != nil {
		return nil, fmt.Errorf("%s: store outputs: %w", kind, err)
	}
	for i, p := range pending {
		res.Outputs[i] = Output{
			Name:       p.name,
			Rows:       len(p.rows),
			Size:       stored[i].Size,
			Columns:    p.columns,
			ArtifactID: stored[i].ID,
		}
	}
	return res, nil
}

// decode turns one input into a table, enforcing the size limits.
func (s *Service) decode(in Input) (table.Table, error) {
	if in.Data == nil {
		return table.Table{}, fmt.Errorf("%s: no file provided", in.Name)
	}
	if len(in.Data) == 0 {
		return table.Table{}, fmt.Errorf("%s: empty file", in.Name)
	}
	if s.maxFileSize > 0 && int64(len(in.Data)) > s.maxFileSize {
		return table.Table{}, fmt.Errorf("%s: file too large: %d bytes exceeds limit of %d", in.Name, len(in.Data), s.maxFileSize)
	}

	t, _, err := codec.DecodeWith(bytes.NewReader(in.Data), codec.Options{
		Name:      in.Name,
		HasHeader: in.HasHeader,
		MaxRows:   s.maxRows,
	})
	return t, err
}

// check validates a request struct, reporting failures as a
// ConfigurationError.
func (s *Service) check(op naming.Kind, req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: validate request: %w", op, err)
	}

	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			reasons = append(reasons, field+" is required")
		case "min":
			reasons = append(reasons, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			reasons = append(reasons, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return table.Configf(string(op), "%s", strings.Join(reasons, "; "))
}

func (s *Service) record(ctx context.Context, e HistoryEntry) {
	// Recorded even when the request context has already ended.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.history.Record(ctx, e); err != nil {
		logging.FromContext(ctx).Error("record history failed", "operation_id", e.ID, "error", err)
	}
}

// columnsFor is the first-seen union of the keys present in rows, or
// fallback when there are no rows to look at.
// columnsFor returns the keys present across rows, so a column with a blank
// header is written back out. With no rows it falls back to fallback.
func columnsFor(rows []table.Row, fallback []string) []string {
	if cols := table.KeysOf(rows); len(cols) > 0 {
		return cols
	}
	return fallback
}

func inputNames(inputs []Input) []string {
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name
	}
	return names
}

// statOrder fixes the order stats appear in summaries.
var statOrder = []string{
	"parts", "part_size",
	"left", "overlapping", "right",
	"matching", "missing", "groups", "conditions",
	"matched", "unmatched",
}

func summarize(stats map[string]int) string {
	parts := make([]string, 0, len(stats))
	for _, k := range statOrder {
		if v, ok := stats[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", k, v))
		}
	}
	return strings.Join(parts, " ")
}
