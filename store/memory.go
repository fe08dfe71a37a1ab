// Package store provides CompilationStore implementations.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/betagouv/aides-simplifiees-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records []generic.CompilationRecord // insertion order
	byID    map[string]int
}

var _ generic.CompilationStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]int)}
}

// Save appends a record. Append-only.
func (m *Memory) Save(_ context.Context, rec generic.CompilationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[rec.ID]; ok {
		return fmt.Errorf("%w: %s", generic.ErrDuplicateCompilation, rec.ID)
	}
	m.byID[rec.ID] = len(m.records)
	m.records = append(m.records, clone(rec))
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*generic.CompilationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrCompilationNotFound, id)
	}
	rec := clone(m.records[i])
	return &rec, nil
}

// List returns the most recent records first: by CreatedAt, then by
// insertion order.
func (m *Memory) List(_ context.Context, limit int) ([]generic.CompilationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := make([]int, len(m.records))
	for i := range idx {
		idx[i] = len(m.records) - 1 - i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return m.records[b].CreatedAt.Compare(m.records[a].CreatedAt)
	})
	if limit > 0 && limit < len(idx) {
		idx = idx[:limit]
	}

	out := make([]generic.CompilationRecord, len(idx))
	for i, j := range idx {
		out[i] = clone(m.records[j])
	}
	return out, nil
}

func clone(rec generic.CompilationRecord) generic.CompilationRecord {
	rec.Answers = slices.Clone(rec.Answers)
	rec.Request = slices.Clone(rec.Request)
	rec.Errors = slices.Clone(rec.Errors)
	return rec
}
