/*
Package sqlite provides a SQLite-backed implementation of scenario.Store.

PURPOSE:
  Keeps saved planning scenarios across server restarts. Each scenario is
  one row; its rates are a JSON snapshot column (scenario.Encode), so the
  schema does not change when the rate model grows a field.

KEY TABLES:
  scenarios: id, session label, name, snapshot JSON, version, timestamps

VERSIONING:
  Save is an upsert. Re-saving an existing ID bumps version in SQL
  (version = scenarios.version + 1) and keeps created_at.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/planner.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - scenario/store.go: Interface definition
  - scenario/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/comp-planner/scenario"
)

// Store implements scenario.Store using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ scenario.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every pooled connection to ":memory:" would be its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		session_label TEXT,
		name TEXT NOT NULL,
		additional_unit TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scenarios_label_updated
		ON scenarios(session_label, updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SCENARIOS
// =============================================================================

// Save inserts or replaces a scenario and reads back the stored version.
func (s *Store) Save(ctx context.Context, sc *scenario.Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	snapshot, err := scenario.Encode(sc.Snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc.Touch(s.now().UTC())

	query := `
		INSERT INTO scenarios (id, session_label, name, additional_unit, snapshot_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_label = excluded.session_label,
			name = excluded.name,
			additional_unit = excluded.additional_unit,
			snapshot_json = excluded.snapshot_json,
			version = scenarios.version + 1,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		sc.ID, nullString(sc.SessionLabel), sc.Name, string(sc.Snapshot.AdditionalUnit), string(snapshot),
		formatTime(sc.CreatedAt), formatTime(sc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save scenario %s: %w", sc.ID, err)
	}

	var createdAt string
	err = s.db.QueryRowContext(ctx,
		"SELECT version, created_at FROM scenarios WHERE id = ?", sc.ID,
	).Scan(&sc.Version, &createdAt)
	if err != nil {
		return fmt.Errorf("read back scenario %s: %w", sc.ID, err)
	}
	sc.CreatedAt = parseTime(createdAt)
	return nil
}

// Get retrieves a scenario by ID.
func (s *Store) Get(ctx context.Context, id string) (scenario.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_label, name, snapshot_json, version, created_at, updated_at
		FROM scenarios WHERE id = ?`, id)
	sc, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return scenario.Scenario{}, scenario.ErrNotFound
	}
	return sc, err
}

// List returns scenarios, most recently updated first.
func (s *Store) List(ctx context.Context, sessionLabel string) ([]scenario.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, session_label, name, snapshot_json, version, created_at, updated_at
		FROM scenarios`
	var args []any
	if sessionLabel != "" {
		query += " WHERE session_label = ?"
		args = append(args, sessionLabel)
	}
	query += " ORDER BY updated_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []scenario.Scenario{}
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Delete removes a scenario.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM scenarios WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return scenario.ErrNotFound
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset deletes every scenario. Backs DELETE /api/scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM scenarios")
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScenario(row scanner) (scenario.Scenario, error) {
	var (
		sc                   scenario.Scenario
		label                sql.NullString
		snapshot             string
		createdAt, updatedAt string
	)
	if err := row.Scan(&sc.ID, &label, &sc.Name, &snapshot, &sc.Version, &createdAt, &updatedAt); err != nil {
		return scenario.Scenario{}, err
	}
	snap, err := scenario.Decode([]byte(snapshot))
	if err != nil {
		return scenario.Scenario{}, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}
	sc.SessionLabel = label.String
	sc.Snapshot = snap
	sc.CreatedAt = parseTime(createdAt)
	sc.UpdatedAt = parseTime(updatedAt)
	return sc, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout is fixed-width so that ORDER BY on the text column is
// chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
