package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tabletools/internal/core"
	"github.com/JonMunkholm/tabletools/internal/logging"
	"github.com/JonMunkholm/tabletools/internal/predicate"
	"github.com/JonMunkholm/tabletools/internal/reconcile"
	"github.com/JonMunkholm/tabletools/internal/table"
	"github.com/JonMunkholm/tabletools/internal/web/templates"
)

// formMemory is how much of a multipart form is held in memory before the
// rest spills to temporary files.
const formMemory = 32 << 20

// indexHistory is the number of operations shown on the landing page.
const indexHistory = 10

// OutputResponse is one generated file in an operation response.
type OutputResponse struct {
	Name      string   `json:"name"`
	Rows      int      `json:"rows"`
	Size      int64    `json:"size"`
	SizeHuman string   `json:"size_human"`
	Columns   []string `json:"columns"`
	URL       string   `json:"url"`
}

// OperationResponse is the JSON body returned by every operation endpoint.
type OperationResponse struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Summary    string           `json:"summary"`
	Stats      map[string]int   `json:"stats"`
	DurationMs int64            `json:"duration_ms"`
	Outputs    []OutputResponse `json:"outputs"`
}

func artifactURL(id string) string {
	return "/api/artifacts/" + id
}

func toResponse(res *core.Result) OperationResponse {
	out := OperationResponse{
		ID:         res.ID,
		Kind:       string(res.Kind),
		Summary:    res.Summary,
		Stats:      res.Stats,
		DurationMs: res.DurationMs,
		Outputs:    make([]OutputResponse, len(res.Outputs)),
	}
	for i, o := range res.Outputs {
		out.Outputs[i] = OutputResponse{
			Name:      o.Name,
			Rows:      o.Rows,
			Size:      o.Size,
			SizeHuman: humanize.Bytes(uint64(o.Size)),
			Columns:   o.Columns,
			URL:       artifactURL(o.ArtifactID),
		}
	}
	return out
}

// respondResult writes a completed operation as JSON, or as a result panel
// for HTMX requests.
func (s *Server) respondResult(w http.ResponseWriter, r *http.Request, res *core.Result) {
	resp := toResponse(res)
	if !isHTMX(r) {
		writeJSON(w, resp)
		return
	}

	view := templates.ResultView{Kind: resp.Kind, Summary: resp.Summary}
	for _, o := range resp.Outputs {
		view.Outputs = append(view.Outputs, templates.OutputView{
			Name: o.Name,
			Rows: o.Rows,
			Size: o.SizeHuman,
			URL:  o.URL,
		})
	}
	s.renderHTML(w, r, templates.ResultPanel(view))
}

// renderHTML renders c into a buffer first, so a failed render becomes an
// error response instead of a truncated page.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, fmt.Errorf("render: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write response failed", "error", err)
	}
}

// parseForm reads a multipart request, capping the body at two input files.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.Limits.MaxFileSize+formMemory)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("file too large: %w", err))
			return false
		}
		s.respondErrorStatus(w, r, fmt.Errorf("invalid form: %w", err), http.StatusBadRequest)
		return false
	}
	return true
}

// readInput loads the file in the given form field. A missing file yields
// an Input without data, which the service reports as "no file provided".
func readInput(r *http.Request, field string, hasHeader bool) (core.Input, error) {
	in := core.Input{Name: field, HasHeader: hasHeader}

	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return in, fmt.Errorf("read %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return in, fmt.Errorf("read %s: %w", field, err)
	}
	if name := filepath.Base(hdr.Filename); name != "." && name != string(filepath.Separator) {
		in.Name = name
	}
	in.Data = data
	return in, nil
}

// formBool parses a boolean form field. Checkboxes send "on" when they
// have no value of their own.
func formBool(r *http.Request, op, name string, def bool) (bool, error) {
	v := strings.TrimSpace(r.FormValue(name))
	switch v {
	case "":
		return def, nil
	case "on":
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, table.Configf(op, "%s must be true or false, got %q", name, v)
	}
	return b, nil
}

// readPair loads the two input files and join columns shared by diff and
// merge. Each file has its own header flag, header_a and header_b, which
// default to the shared header field.
func readPair(r *http.Request, op string) (a, b core.Input, join reconcile.JoinSpec, err error) {
	hasHeader, err := formBool(r, op, "header", true)
	if err != nil {
		return a, b, join, err
	}
	headerA, err := formBool(r, op, "header_a", hasHeader)
	if err != nil {
		return a, b, join, err
	}
	headerB, err := formBool(r, op, "header_b", hasHeader)
	if err != nil {
		return a, b, join, err
	}
	if a, err = readInput(r, "a", headerA); err != nil {
		return a, b, join, err
	}
	if b, err = readInput(r, "b", headerB); err != nil {
		return a, b, join, err
	}
	join = reconcile.JoinSpec{
		ColumnA: strings.TrimSpace(r.FormValue("join_a")),
		ColumnB: strings.TrimSpace(r.FormValue("join_b")),
	}
	return a, b, join, nil
}

// handleIndex renders the landing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context(), indexHistory)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	params := templates.IndexParams{History: make([]templates.HistoryRow, len(entries))}
	for _, op := range predicate.Operators() {
		params.Operators = append(params.Operators, string(op))
	}
	for i, e := range entries {
		params.History[i] = templates.HistoryRow{
			Operation: e.Operation,
			Inputs:    strings.Join(e.Inputs, ", "),
			Summary:   e.Summary,
			Error:     e.Error,
			When:      humanize.Time(e.CreatedAt),
		}
	}

	s.renderHTML(w, r, templates.Index(params))
}

// handleHealth reports liveness for load balancers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleStatus reports operation slots and stored artifacts.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	store := s.service.Artifacts()
	writeJSON(w, map[string]any{
		"operations": s.service.Limiter().Status(),
		"artifacts": map[string]any{
			"count":       store.Len(),
			"bytes":       store.Bytes(),
			"bytes_human": humanize.Bytes(uint64(store.Bytes())),
		},
	})
}

// handleHistory returns recent operations, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	if maxHistory := s.cfg.Artifacts.HistorySize; maxHistory > 0 && limit > maxHistory {
		limit = maxHistory
	}

	entries, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, entries)
}

// handleArtifact streams a generated file as a download.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Artifact(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	w.Write(a.Data)
}

// handleInspect reports a file's columns and a suggested join column.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	hasHeader, err := formBool(r, "inspect", "header", true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := readInput(r, "file", hasHeader)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Inspect(withRequestMetadata(r), core.InspectRequest{File: in})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// handleSplit cuts one file into parts.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	hasHeader, err := formBool(r, "split", "header", true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := readInput(r, "file", hasHeader)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var parts int
	if v := strings.TrimSpace(r.FormValue("parts")); v != "" {
		if parts, err = strconv.Atoi(v); err != nil {
			s.respondError(w, r, table.Configf("split", "parts must be a whole number, got %q", v))
			return
		}
	}

	res, err := s.service.Split(withRequestMetadata(r), core.SplitRequest{File: in, Parts: parts})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}

// handleDiff reconciles two files by their join columns.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	a, b, join, err := readPair(r, "diff")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var include reconcile.Include
	for name, dst := range map[string]*bool{
		"left":        &include.Left,
		"overlapping": &include.Overlapping,
		"right":       &include.Right,
	} {
		if *dst, err = formBool(r, "diff", name, true); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	res, err := s.service.Diff(withRequestMetadata(r), core.DiffRequest{A: a, B: b, Join: join, Include: include})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}

// handleFilter splits a file by a predicate expression given as JSON.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	hasHeader, err := formBool(r, "filter", "header", true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := readInput(r, "file", hasHeader)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	raw := strings.TrimSpace(r.FormValue("expression"))
	if raw == "" {
		raw = "[]"
	}
	expr, err := predicate.ParseExpression([]byte(raw))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Filter(withRequestMetadata(r), core.FilterRequest{File: in, Expression: expr})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}

// handleMerge enriches the first file with matches from the second.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	a, b, join, err := readPair(r, "merge")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Merge(withRequestMetadata(r), core.MergeRequest{A: a, B: b, Join: join})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
