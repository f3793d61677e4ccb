package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/dbcatalog/internal/config"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	operation    TEXT NOT NULL,
	dialect      TEXT,
	server       TEXT,
	target       TEXT,
	executed_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	duration_ms  INTEGER,
	result_count INTEGER,
	is_error     BOOLEAN DEFAULT FALSE,
	error        TEXT
)`

// Entry records one introspection run, e.g. a properties lookup of
// public.orders on a CockroachDB server.
type Entry struct {
	ID          int64
	Operation   string
	Dialect     string
	Server      string
	Target      string
	ExecutedAt  time.Time
	DurationMS  int64
	ResultCount int64
	IsError     bool
	Error       string
}

// History provides SQLite-backed storage of introspection runs.
type History struct {
	db *sql.DB
}

// New opens (or creates) the history database at ConfigDir()/history.db.
func New() (*History, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("history: config dir: %w", err)
	}
	return Open(filepath.Join(dir, "history.db"))
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}

	return &History{db: db}, nil
}

// Add inserts a new history entry.
func (h *History) Add(entry Entry) error {
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now()
	}
	_, err := h.db.Exec(
		`INSERT INTO history (operation, dialect, server, target, executed_at, duration_ms, result_count, is_error, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Operation,
		entry.Dialect,
		entry.Server,
		entry.Target,
		entry.ExecutedAt,
		entry.DurationMS,
		entry.ResultCount,
		entry.IsError,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("history add: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, operation, dialect, server, target, executed_at, duration_ms, result_count, is_error, error
		 FROM history`

// Search returns history entries whose target or operation matches the given
// pattern using SQL LIKE. Results are ordered by most recent first, limited
// to limit rows.
func (h *History) Search(pattern string, limit int) ([]Entry, error) {
	rows, err := h.db.Query(
		selectColumns+`
		 WHERE target LIKE ? OR operation LIKE ?
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns the most recent history entries, limited to limit rows.
func (h *History) Recent(limit int) ([]Entry, error) {
	rows, err := h.db.Query(
		selectColumns+`
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Clear deletes all history entries.
func (h *History) Clear() error {
	if _, err := h.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("history clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// scanEntries reads all rows from the result set into a slice of Entry.
func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			dialect, server, target sql.NullString
			errText                 sql.NullString
		)
		if err := rows.Scan(
			&e.ID,
			&e.Operation,
			&dialect,
			&server,
			&target,
			&e.ExecutedAt,
			&e.DurationMS,
			&e.ResultCount,
			&e.IsError,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		e.Dialect = dialect.String
		e.Server = server.String
		e.Target = target.String
		e.Error = errText.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return entries, nil
}
