/*
Package entity holds the per-entity variable state of one compilation.

PURPOSE:
  The calculation request groups variables under four relational entities
  (individual, household, tax household, family). One Manager owns one
  entity: its membership arrays and its variable bag.

THE NO-SILENT-OVERWRITE INVARIANT:
  A (variable, period) pair holds at most one value per compilation.
  AddVariable resolves every write with this table:

    variable is a membership field        -> refused, logged only
    variable unknown                      -> created
    variable known, period free           -> merged (periods coexist)
    variable known, period taken, refined -> overwritten
    variable known, period taken          -> kept, MAPPING_ERROR recorded

  "Refined" means the Refinements table has a rule for the variable that
  accepts the (old, new) pair. Refinements are never inferred.

MEMBERSHIP:
  Membership arrays are only changed through AddMember. They are seeded from
  Config.Members when the manager is created.

LIFECYCLE:
  Created fresh per compilation, mutated during that pass, then discarded.
  Not safe for concurrent use; a compilation is single-threaded.

SEE ALSO:
  - refinement.go: Refinement rules
  - compiler/builder.go: Routes answers into managers
*/
package entity

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/betagouv/aides-simplifiees-engine/generic"
)

// =============================================================================
// CONFIG - What distinguishes the four kinds
// =============================================================================

// Config parameterises a Manager for one entity kind.
type Config struct {
	Kind generic.EntityKind
	ID   string // canonical entity id for the whole compilation

	// MemberFields lists the membership arrays of this kind, in output order.
	MemberFields []string

	// Members seeds membership arrays (field -> entity ids).
	Members map[string][]string
}

// IsMemberField reports whether name is a membership array of this kind.
func (c Config) IsMemberField(name string) bool {
	return slices.Contains(c.MemberFields, name)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns one entity's state.
type Manager struct {
	cfg         Config
	refinements Refinements
	logger      *slog.Logger

	members   map[string][]string
	variables generic.Variables
	order     []string // variable names in first-write order
	errs      generic.BuildErrors
}

// Option configures a Manager.
type Option func(*Manager)

// WithRefinements installs the allow-list of legitimate overwrites.
func WithRefinements(r Refinements) Option {
	return func(m *Manager) { m.refinements = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a manager seeded with cfg.Members.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		logger:    slog.Default(),
		members:   make(map[string][]string, len(cfg.MemberFields)),
		variables: make(generic.Variables),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, field := range cfg.MemberFields {
		for _, id := range cfg.Members[field] {
			_ = m.AddMember(field, id)
		}
	}
	return m
}

// Kind returns the entity kind.
func (m *Manager) Kind() generic.EntityKind { return m.cfg.Kind }

// ID returns the canonical entity id.
func (m *Manager) ID() string { return m.cfg.ID }

// AddMember appends an entity id to a membership array. Adding an id twice is
// a no-op.
func (m *Manager) AddMember(field, id string) error {
	if !m.cfg.IsMemberField(field) {
		return fmt.Errorf("%s has no membership field %q", m.cfg.Kind, field)
	}
	if id == "" {
		return fmt.Errorf("%s.%s: empty member id", m.cfg.Kind, field)
	}
	if slices.Contains(m.members[field], id) {
		return nil
	}
	m.members[field] = append(m.members[field], id)
	return nil
}

// Members returns a copy of one membership array.
func (m *Manager) Members(field string) []string {
	return slices.Clone(m.members[field])
}

// AddVariable records value for (name, period). It returns the recorded
// BuildError on conflict, nil otherwise; a refused membership write is not an
// error.
func (m *Manager) AddVariable(name string, value generic.Scalar, period, answerKey string) *generic.BuildError {
	if m.cfg.IsMemberField(name) {
		m.logger.Warn("entity: refusing variable write to membership field",
			"entity", m.cfg.Kind, "field", name, "answer_key", answerKey)
		return nil
	}

	existing, known := m.variables[name]
	if !known {
		m.variables[name] = generic.PeriodValues{period: value}
		m.order = append(m.order, name)
		return nil
	}

	old, taken := existing[period]
	if !taken {
		existing[period] = value
		return nil
	}

	if m.refinements.Allows(name, old, value) {
		m.logger.Debug("entity: refinement overwrites earlier value",
			"entity", m.cfg.Kind, "variable", name, "period", period,
			"old", old, "new", value, "answer_key", answerKey)
		existing[period] = value
		return nil
	}

	err := generic.NewBuildError(generic.ErrorMapping, answerKey,
		"%s.%s already set for %s: keeping %v, refusing %v",
		m.cfg.Kind, name, period, old, value)
	m.logger.Warn("entity: conflicting value", "entity", m.cfg.Kind,
		"variable", name, "period", period, "old", old, "new", value, "answer_key", answerKey)
	m.errs = append(m.errs, *err)
	return err
}

// Value returns the stored value of (name, period).
func (m *Manager) Value(name, period string) (generic.Scalar, bool) {
	pv, ok := m.variables[name]
	if !ok {
		return nil, false
	}
	v, ok := pv[period]
	return v, ok
}

// Has reports whether (name, period) holds a value, including a null probe.
func (m *Manager) Has(name, period string) bool {
	_, ok := m.Value(name, period)
	return ok
}

// VariableNames returns variable names in first-write order.
func (m *Manager) VariableNames() []string {
	return slices.Clone(m.order)
}

// Entity returns a deep copy of the entity: non-empty membership arrays and
// every variable.
func (m *Manager) Entity() generic.EntityRecord {
	rec := make(generic.EntityRecord, len(m.cfg.MemberFields)+len(m.variables))
	for _, field := range m.cfg.MemberFields {
		if ids := m.members[field]; len(ids) > 0 {
			rec[field] = slices.Clone(ids)
		}
	}
	for name, pv := range m.variables {
		rec[name] = pv.Clone()
	}
	return rec
}

// Errors returns the conflicts recorded so far.
func (m *Manager) Errors() generic.BuildErrors {
	return slices.Clone(m.errs)
}

// HasErrors reports whether any conflict was recorded.
func (m *Manager) HasErrors() bool { return len(m.errs) > 0 }
