/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.CompilationStore using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  Compilation records are diagnostic evidence:
  - No UPDATE statements on the compilations table
  - A reused id is rejected by the primary key

KEY TABLES:
  compilations: one row per compilation served, answers, request and errors
                kept as JSON columns

INDEXES:
  - idx_compilations_created_at: List (most recent first)
  - idx_compilations_outcome: failure dashboards

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers of the
  compilation history do not block the API writing new records.

USAGE:
  store, err := sqlite.New("./data/aides.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definition
  - store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-sqlite3"

	"github.com/betagouv/aides-simplifiees-engine/generic"
)

// timeLayout is fixed-width so created_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements generic.CompilationStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.CompilationStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
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
	CREATE TABLE IF NOT EXISTS compilations (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		outcome TEXT NOT NULL,
		answers_json TEXT NOT NULL,
		request_json TEXT,
		errors_json TEXT NOT NULL,
		error_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_compilations_created_at
		ON compilations(created_at);
	CREATE INDEX IF NOT EXISTS idx_compilations_outcome
		ON compilations(outcome, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COMPILATION STORE
// =============================================================================

// Save appends a compilation record.
func (s *Store) Save(ctx context.Context, rec generic.CompilationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errorsJSON, err := json.Marshal(rec.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}
	if rec.Errors == nil {
		errorsJSON = []byte("[]")
	}

	query := `
		INSERT INTO compilations
		(id, created_at, outcome, answers_json, request_json, errors_json, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.CreatedAt.UTC().Format(timeLayout),
		string(rec.Outcome),
		string(rec.Answers),
		nullBytes(rec.Request),
		string(errorsJSON),
		len(rec.Errors),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", generic.ErrDuplicateCompilation, rec.ID)
		}
		return fmt.Errorf("failed to save compilation: %w", err)
	}
	return nil
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, id string) (*generic.CompilationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, outcome, answers_json, request_json, errors_json
		FROM compilations
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrCompilationNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the most recent records first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]generic.CompilationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, outcome, answers_json, request_json, errors_json
		FROM compilations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query compilations: %w", err)
	}
	defer rows.Close()

	var out []generic.CompilationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*generic.CompilationRecord, error) {
	var (
		rec        generic.CompilationRecord
		createdAt  string
		outcome    string
		answers    string
		request    sql.NullString
		errorsJSON string
	)
	if err := row.Scan(&rec.ID, &createdAt, &outcome, &answers, &request, &errorsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan compilation: %w", err)
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("compilation %s: bad created_at: %w", rec.ID, err)
	}
	rec.CreatedAt = t
	rec.Outcome = generic.Outcome(outcome)
	rec.Answers = []byte(answers)
	if request.Valid {
		rec.Request = []byte(request.String)
	}
	if err := json.Unmarshal([]byte(errorsJSON), &rec.Errors); err != nil {
		return nil, fmt.Errorf("compilation %s: bad errors_json: %w", rec.ID, err)
	}
	if len(rec.Errors) == 0 {
		rec.Errors = nil
	}
	return &rec, nil
}

func nullBytes(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
