package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Entry is one processed query with the plan and results it produced.
// Plan and Results are kept as encoded JSON so the store stays independent
// of the agent types.
type Entry struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Plan      json.RawMessage `json:"plan"`
	Results   json.RawMessage `json:"results"`
	Timestamp time.Time       `json:"timestamp"`
}

// HistoryStore records executed plans in insertion order.
type HistoryStore interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
	Clear(ctx context.Context) error
	Close() error
}

// MemoryHistory is the process-lifetime history.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (m *MemoryHistory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryHistory) List(context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryHistory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

func (m *MemoryHistory) Close() error { return nil }

// SQLiteHistory persists history entries across restarts.
type SQLiteHistory struct {
	DB *sql.DB
}

func NewSQLiteHistory(dbPath string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			query TEXT,
			plan TEXT,
			results TEXT,
			timestamp TEXT
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &SQLiteHistory{DB: db}, nil
}

func (h *SQLiteHistory) Append(ctx context.Context, e Entry) error {
	query := `INSERT INTO executions (id, query, plan, results, timestamp) VALUES (?, ?, ?, ?, ?)`
	_, err := h.DB.ExecContext(ctx, query, e.ID, e.Query, string(e.Plan), string(e.Results), e.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (h *SQLiteHistory) List(ctx context.Context) ([]Entry, error) {
	query := `SELECT id, query, plan, results, timestamp FROM executions ORDER BY seq ASC`
	rows, err := h.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var id, q, plan, results, ts string
		if err := rows.Scan(&id, &q, &plan, &results, &ts); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("history %s: bad timestamp %q: %w", id, ts, err)
		}
		entries = append(entries, Entry{
			ID:        id,
			Query:     q,
			Plan:      rawOrNull(plan),
			Results:   rawOrNull(results),
			Timestamp: t,
		})
	}
	return entries, rows.Err()
}

func (h *SQLiteHistory) Clear(ctx context.Context) error {
	_, err := h.DB.ExecContext(ctx, `DELETE FROM executions`)
	return err
}

func (h *SQLiteHistory) Close() error {
	return h.DB.Close()
}

func rawOrNull(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}
