/*
Package compiler turns survey answers into a calculation request.

PURPOSE:
  The Builder is the request compiler. It owns one entity Manager per kind,
  routes every answer through the mapping Resolver into the right manager,
  and returns either a complete CalculationRequest or every problem it found.

FLOW:
  1. AddAnswer / AddAnswers: one answer at a time, in insertion order
  2. AddQuestion / AddQuestions: null probes for engine-computed variables
  3. ApplyDefaultValues: engine-required values not already set
  4. Build: request on success, BuildErrors on failure

ADDANSWER ALGORITHM:
  unset value        -> skipped, or UNDEFINED_VALUE when undefined values are rejected
  combobox value     -> unwrapped to its value
  Excluded mapping   -> skipped, whatever the value shape
  list value         -> UNEXPECTED_VALUE (checkboxes are expanded upstream)
  no mapping         -> UNKNOWN_VARIABLE
  no entity kind     -> UNKNOWN_ENTITY
  expansion failure  -> MAPPING_ERROR
  otherwise          -> every assignment routed to the kind's manager

ERROR COLLECTION:
  Errors are recorded in the order they happen, manager conflicts included.
  Conflicts written straight to a Manager are merged in at build time.
  By default the builder never stops: the caller gets the full list in one
  pass and decides whether to fall back to BuildPartial. With FailFast the
  first error is sticky: further input is ignored.

LIFECYCLE:
  One Builder per compilation. Not safe for concurrent use.

SEE ALSO:
  - defaults.go: Default value rules
  - entity/manager.go: Conflict resolution
  - openfisca/builder.go: The production configuration
*/
package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/betagouv/aides-simplifiees-engine/entity"
	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/mapping"
	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config wires a Builder.
type Config struct {
	Resolver    mapping.Resolver
	Entities    []entity.Config // one per entity kind
	Refinements entity.Refinements
	Defaults    []DefaultRule

	// Clock fixes the reference date of periods. Defaults to SystemClock.
	Clock generic.Clock

	// RejectUndefinedValues turns unset answers into UNDEFINED_VALUE errors
	// instead of skipping them.
	RejectUndefinedValues bool

	// FailFast stops accepting input after the first error.
	FailFast bool

	Logger *slog.Logger
}

// Validate checks that every entity kind has exactly one configuration.
func (c Config) Validate() error {
	if c.Resolver == nil {
		return errors.New("compiler: nil resolver")
	}
	seen := make(map[generic.EntityKind]bool, len(c.Entities))
	for _, ec := range c.Entities {
		if !ec.Kind.Valid() {
			return fmt.Errorf("compiler: unknown entity kind %q", ec.Kind)
		}
		if ec.ID == "" {
			return fmt.Errorf("compiler: %s has no entity id", ec.Kind)
		}
		if seen[ec.Kind] {
			return fmt.Errorf("compiler: %s configured twice", ec.Kind)
		}
		seen[ec.Kind] = true
	}
	for _, k := range generic.Kinds() {
		if !seen[k] {
			return fmt.Errorf("compiler: missing configuration for %s", k)
		}
	}
	return nil
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder compiles one set of answers.
type Builder struct {
	cfg      Config
	now      time.Time
	logger   *slog.Logger
	managers map[generic.EntityKind]*entity.Manager
	errs     generic.BuildErrors

	// forwarded counts, per kind, the manager errors already in errs.
	forwarded map[generic.EntityKind]int
}

// New creates a Builder with fresh entity managers.
func New(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = generic.SystemClock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Builder{
		cfg:       cfg,
		now:       cfg.Clock(),
		logger:    logger,
		managers:  make(map[generic.EntityKind]*entity.Manager, len(cfg.Entities)),
		forwarded: make(map[generic.EntityKind]int, len(cfg.Entities)),
	}
	for _, ec := range cfg.Entities {
		b.managers[ec.Kind] = entity.NewManager(ec,
			entity.WithRefinements(cfg.Refinements),
			entity.WithLogger(logger))
	}
	return b, nil
}

// Now returns the reference date of this compilation.
func (b *Builder) Now() time.Time { return b.now }

// Manager returns the manager of one kind.
func (b *Builder) Manager(kind generic.EntityKind) *entity.Manager {
	return b.managers[kind]
}

// halted reports whether fail-fast mode has already seen an error.
func (b *Builder) halted() bool {
	return b.cfg.FailFast && (len(b.errs) > 0 || b.unforwarded() > 0)
}

// unforwarded counts manager errors that did not go through the builder.
func (b *Builder) unforwarded() int {
	n := 0
	for kind, mgr := range b.managers {
		n += len(mgr.Errors()) - b.forwarded[kind]
	}
	return n
}

func (b *Builder) record(e *generic.BuildError) {
	if b.halted() {
		return
	}
	b.logger.Debug("compiler: build error", "type", e.Type, "answer_key", e.AnswerKey, "message", e.Message)
	b.errs = append(b.errs, *e)
}

// assign writes one variable through mgr and records its conflict, if any.
func (b *Builder) assign(mgr *entity.Manager, variable string, value generic.Scalar, period, key string) {
	if e := mgr.AddVariable(variable, value, period, key); e != nil {
		b.forwarded[mgr.Kind()]++
		b.record(e)
	}
}

// AddAnswer compiles one answer. It returns the builder for chaining.
func (b *Builder) AddAnswer(key string, value survey.Value) *Builder {
	if b.halted() {
		return b
	}

	if value.IsUnset() {
		if b.cfg.RejectUndefinedValues {
			b.record(generic.NewBuildError(generic.ErrorUndefinedValue, key, "answer has no value"))
		}
		return b
	}
	value = value.Unwrap()

	m, mapped := b.cfg.Resolver.Resolve(key)
	if mapped && m.Type == mapping.TypeExcluded {
		return b
	}

	scalar, ok := value.Scalar()
	if !ok {
		b.record(generic.NewBuildError(generic.ErrorUnexpectedValue, key,
			"expected a scalar answer, got %s %s", value.Kind(), value))
		return b
	}
	if !mapped {
		b.record(generic.NewBuildError(generic.ErrorUnknownVariable, key, "no mapping for answer key"))
		return b
	}

	mgr, ok := b.managerFor(key)
	if !ok {
		return b
	}

	assignments, err := m.Expand(key, scalar, m.Period.Format(b.now))
	if err != nil {
		b.record(generic.NewBuildError(generic.ErrorMapping, key, "%s", err))
		return b
	}
	for _, a := range assignments {
		b.assign(mgr, a.Variable, a.Value, a.Period, key)
	}
	return b
}

// AddAnswers compiles every answer in insertion order.
func (b *Builder) AddAnswers(answers *survey.Answers) *Builder {
	answers.Each(func(key string, v survey.Value) bool {
		b.AddAnswer(key, v)
		return !b.halted()
	})
	return b
}

// AddQuestion injects a null probe for the variable behind key, asking the
// engine to compute it. Only direct mappings can be probed. A probe never
// conflicts: a variable that already holds a value for the period is left
// alone and no error is recorded.
func (b *Builder) AddQuestion(key string) *Builder {
	if b.halted() {
		return b
	}

	m, ok := b.cfg.Resolver.Resolve(key)
	if !ok {
		b.record(generic.NewBuildError(generic.ErrorUnknownVariable, key, "no mapping for question key"))
		return b
	}
	if m.Type != mapping.TypeDirect || m.Variable == "" {
		b.record(generic.NewBuildError(generic.ErrorMapping, key,
			"question needs a direct mapping, got %s", m.Type))
		return b
	}

	mgr, ok := b.managerFor(key)
	if !ok {
		return b
	}

	period := m.Period.Format(b.now)
	if mgr.Has(m.Variable, period) {
		b.logger.Debug("compiler: probe skipped, variable already set",
			"question", key, "variable", m.Variable, "period", period)
		return b
	}
	b.assign(mgr, m.Variable, nil, period, key)
	return b
}

// AddQuestions probes every key in order.
func (b *Builder) AddQuestions(keys ...string) *Builder {
	for _, k := range keys {
		b.AddQuestion(k)
	}
	return b
}

func (b *Builder) managerFor(key string) (*entity.Manager, bool) {
	kind, ok := b.cfg.Resolver.ResolveEntity(key)
	if !ok {
		b.record(generic.NewBuildError(generic.ErrorUnknownEntity, key, "no entity kind owns this key"))
		return nil, false
	}
	mgr, ok := b.managers[kind]
	if !ok {
		b.record(generic.NewBuildError(generic.ErrorUnknownEntity, key, "no manager for entity kind %q", kind))
		return nil, false
	}
	return mgr, true
}

// =============================================================================
// RESULT
// =============================================================================

// Errors returns every error recorded so far, in order. Conflicts recorded
// directly on a manager, outside the builder, follow in entity kind order.
// With FailFast only the first error is returned.
func (b *Builder) Errors() generic.BuildErrors {
	out := slices.Clone(b.errs)
	for _, kind := range generic.Kinds() {
		mgr, ok := b.managers[kind]
		if !ok {
			continue
		}
		if own := mgr.Errors(); len(own) > b.forwarded[kind] {
			out = append(out, own[b.forwarded[kind]:]...)
		}
	}
	if b.cfg.FailFast && len(out) > 1 {
		out = out[:1]
	}
	return out
}

// Err returns the recorded errors as an error, or nil.
func (b *Builder) Err() error {
	if errs := b.Errors(); len(errs) > 0 {
		return errs
	}
	return nil
}

// Build returns the calculation request, or generic.BuildErrors when any
// error was recorded. Build does not mutate the builder.
func (b *Builder) Build() (generic.CalculationRequest, error) {
	if errs := b.Errors(); len(errs) > 0 {
		b.logger.Info("compiler: build failed", "errors", len(errs), "by_type", errs.CountByType())
		return nil, errs
	}
	return b.assemble(), nil
}

// BuildPartial assembles whatever compiled successfully, together with the
// recorded errors. It is the permissive path a caller may fall back to.
func (b *Builder) BuildPartial() (generic.CalculationRequest, generic.BuildErrors) {
	return b.assemble(), b.Errors()
}

func (b *Builder) assemble() generic.CalculationRequest {
	req := make(generic.CalculationRequest, len(b.managers))
	for _, kind := range generic.Kinds() {
		mgr := b.managers[kind]
		req[kind] = map[string]generic.EntityRecord{mgr.ID(): mgr.Entity()}
	}
	return req
}
