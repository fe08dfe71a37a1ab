/*
store.go - Persistence interface for compilation records

PURPOSE:
  A failed strict compilation must stay diagnosable after the caller has
  fallen back to a permissive request. Every compilation served by the API is
  recorded with its input answers, the produced request (if any) and the
  complete error list.

APPEND-ONLY CONTRACT:
  Records are never updated. Save rejects an id that already exists.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory.go: In-memory for tests and the CLI

SEE ALSO:
  - api/handlers.go: Saves a record per compilation
*/
package generic

import (
	"context"
	"time"
)

// Outcome is the result category of a compilation.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeFallback Outcome = "fallback" // strict build failed, permissive request served
)

// CompilationRecord is one stored compilation. Answers and Request are kept
// as raw JSON so the record survives registry changes.
type CompilationRecord struct {
	ID        string
	CreatedAt time.Time
	Outcome   Outcome
	Answers   []byte
	Request   []byte // nil on failure
	Errors    BuildErrors
}

// CompilationStore persists compilation records.
type CompilationStore interface {
	// Save appends a record. Returns an error if the id already exists.
	Save(ctx context.Context, rec CompilationRecord) error

	// Get returns a record by id, or ErrCompilationNotFound.
	Get(ctx context.Context, id string) (*CompilationRecord, error)

	// List returns the most recent records first, at most limit (0 = all).
	List(ctx context.Context, limit int) ([]CompilationRecord, error)
}
