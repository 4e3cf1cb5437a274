// Package history archives completed analysis runs in SQLite. It is a
// consumer of the orchestrator's Result shape; the orchestration core never
// depends on it.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dusk-indust/conclave/internal/orchestrator"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("history: run not found")

// Run is one archived analysis run.
type Run struct {
	ID               string                           `json:"id"`
	Prompt           string                           `json:"prompt"`
	Results          map[orchestrator.AgentID]string  `json:"results"`
	ValidationReport string                           `json:"validationReport"`
	OptimalAnswer    string                           `json:"optimalAnswer"`
	CreatedAt        time.Time                        `json:"createdAt"`
}

// Store persists runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("history: ping sqlite: %w", err)
	}

	// WAL lets the gateway read history while a run is being archived;
	// the busy timeout retries instead of surfacing SQLITE_BUSY.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("history: exec %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                 TEXT PRIMARY KEY,
			prompt             TEXT NOT NULL,
			results            TEXT NOT NULL,
			validation_report  TEXT NOT NULL,
			optimal_answer     TEXT NOT NULL,
			created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Save archives one completed run and returns its id.
func (s *Store) Save(prompt string, res *orchestrator.Result) (string, error) {
	results, err := json.Marshal(res.Results)
	if err != nil {
		return "", fmt.Errorf("history: encode results: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO runs (id, prompt, results, validation_report, optimal_answer)
		VALUES (?, ?, ?, ?, ?)`,
		id, prompt, string(results), res.ValidationReport, res.OptimalAnswer)
	if err != nil {
		return "", fmt.Errorf("history: save run: %w", err)
	}
	return id, nil
}

// Get returns one archived run by id.
func (s *Store) Get(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, prompt, results, validation_report, optimal_answer, created_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run: %w", err)
	}
	return run, nil
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, prompt, results, validation_report, optimal_answer, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run     Run
		results string
	)
	if err := sc.Scan(&run.ID, &run.Prompt, &results, &run.ValidationReport, &run.OptimalAnswer, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(results), &run.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &run, nil
}
