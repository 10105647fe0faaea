// Package storage persists run state in sqlite and exports result files.
// Each run is stored as a single JSON payload keyed by run id; the
// payload is the full RunState snapshot, so readers never need joins.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fixwright/fixwright/internal/types"
)

// ErrRunNotFound is returned when a run id has no stored state.
var ErrRunNotFound = errors.New("run not found")

// Store is a sqlite-backed run repository.
type Store struct {
	db      *sql.DB
	dataDir string

	// mu serializes writers. sqlite handles concurrent readers fine but
	// a single writer keeps WAL checkpointing predictable.
	mu sync.Mutex
}

// Open creates the data directory, opens (or creates) the database, and
// runs the schema migration.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "runs.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT PRIMARY KEY,
    payload    TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db, dataDir: dataDir}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertRun writes the full run snapshot, replacing any previous one.
func (s *Store) UpsertRun(state *types.RunState) error {
	if state.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", state.RunID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
INSERT INTO runs(run_id, payload, updated_at)
VALUES(?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
ON CONFLICT(run_id)
DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		state.RunID, string(payload))
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", state.RunID, err)
	}
	return nil
}

// GetRun fetches a run snapshot by id.
func (s *Store) GetRun(runID string) (*types.RunState, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch run %s: %w", runID, err)
	}

	var state types.RunState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &state, nil
}

// ListRunIDs returns every stored run id, newest first.
func (s *Store) ListRunIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM runs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// WriteResultsFile exports the run snapshot to results_<id>.json and to
// results.json, which always reflects the most recent run.
func (s *Store) WriteResultsFile(state *types.RunState) (string, error) {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results for %s: %w", state.RunID, err)
	}

	resultsPath := filepath.Join(s.dataDir, fmt.Sprintf("results_%s.json", state.RunID))
	if err := os.WriteFile(resultsPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", resultsPath, err)
	}

	latestPath := filepath.Join(s.dataDir, "results.json")
	if err := os.WriteFile(latestPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", latestPath, err)
	}
	return resultsPath, nil
}
