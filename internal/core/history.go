package core

// history.go records completed operations.
//
// The service writes one entry per split, diff, filter or merge, whether it
// succeeded or not. Entries go to Postgres when a database is configured and
// to a bounded in-memory ring otherwise.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// HistoryEntry describes one operation run.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	Inputs     []string  `json:"inputs"`
	Outputs    []string  `json:"outputs"`
	RowsIn     int       `json:"rows_in"`
	RowsOut    int       `json:"rows_out"`
	Summary    string    `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Failed reports whether the operation ended in an error.
func (e HistoryEntry) Failed() bool {
	return e.Error != ""
}

// HistoryStore persists operation history.
type HistoryStore interface {
	Record(ctx context.Context, e HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// MemoryHistory keeps the most recent entries in a fixed-size ring.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
	next    int
	full    bool
}

// NewMemoryHistory keeps at most size entries.
func NewMemoryHistory(size int) *MemoryHistory {
	if size <= 0 {
		size = 200
	}
	return &MemoryHistory{entries: make([]HistoryEntry, size)}
}

func (h *MemoryHistory) Record(_ context.Context, e HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (h *MemoryHistory) Recent(_ context.Context, limit int) ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]HistoryEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out, nil
}

// DBTX is the subset of *pgxpool.Pool used by PGHistory.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGHistory stores history in the operation_log table.
type PGHistory struct {
	db DBTX
}

// NewPGHistory returns a history backed by db. Call EnsureSchema once at
// startup.
func NewPGHistory(db DBTX) *PGHistory {
	return &PGHistory{db: db}
}

const operationLogSchema = `
CREATE TABLE IF NOT EXISTS operation_log (
	id          UUID PRIMARY KEY,
	operation   TEXT NOT NULL,
	inputs      TEXT[] NOT NULL DEFAULT '{}',
	outputs     TEXT[] NOT NULL DEFAULT '{}',
	rows_in     INTEGER NOT NULL DEFAULT 0,
	rows_out    INTEGER NOT NULL DEFAULT 0,
	summary     TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	client_ip   TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS operation_log_created_at_idx ON operation_log (created_at DESC);
`

// EnsureSchema creates the operation_log table if it does not exist.
func (h *PGHistory) EnsureSchema(ctx context.Context) error {
	if _, err := h.db.Exec(ctx, operationLogSchema); err != nil {
		return fmt.Errorf("create operation_log: %w", err)
	}
	return nil
}

func (h *PGHistory) Record(ctx context.Context, e HistoryEntry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("history id %q: %w", e.ID, err)
	}

	_, err = h.db.Exec(ctx, `
		INSERT INTO operation_log
			(id, operation, inputs, outputs, rows_in, rows_out, summary, error, client_ip, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		pgtype.UUID{Bytes: id, Valid: true},
		e.Operation,
		nonNil(e.Inputs),
		nonNil(e.Outputs),
		e.RowsIn,
		e.RowsOut,
		e.Summary,
		e.Error,
		e.ClientIP,
		e.DurationMs,
		pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert operation_log: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (h *PGHistory) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.Query(ctx, `
		SELECT id, operation, inputs, outputs, rows_in, rows_out, summary, error, client_ip, duration_ms, created_at
		FROM operation_log
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query operation_log: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e       HistoryEntry
			id      pgtype.UUID
			created pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &e.Operation, &e.Inputs, &e.Outputs, &e.RowsIn, &e.RowsOut,
			&e.Summary, &e.Error, &e.ClientIP, &e.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("scan operation_log: %w", err)
		}
		e.ID = uuid.UUID(id.Bytes).String()
		e.CreatedAt = created.Time
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read operation_log: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
