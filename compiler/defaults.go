package compiler

import (
	"time"

	"github.com/betagouv/aides-simplifiees-engine/generic"
)

// =============================================================================
// DEFAULT VALUES - Engine-required variables the survey may not ask for
// =============================================================================

// Lookup reads the current state of a manager during ApplyDefaultValues.
type Lookup func(kind generic.EntityKind, variable string, period generic.PeriodType) (generic.Scalar, bool)

// DefaultRule injects one variable when it is not already set.
type DefaultRule struct {
	Name     string
	Kind     generic.EntityKind
	Variable string
	Period   generic.PeriodType

	// Value produces the default from the compilation date.
	Value func(now time.Time) generic.Scalar

	// When, if set, must hold for the rule to apply. It sees the managers'
	// state, not the raw answers.
	When func(lookup Lookup) bool
}

// Constant returns a Value func always producing v.
func Constant(v generic.Scalar) func(time.Time) generic.Scalar {
	return func(time.Time) generic.Scalar { return v }
}

// IsTrue returns a When func holding when variable equals true for period.
func IsTrue(kind generic.EntityKind, variable string, period generic.PeriodType) func(Lookup) bool {
	return func(lookup Lookup) bool {
		v, ok := lookup(kind, variable, period)
		return ok && v == true
	}
}

// ApplyDefaultValues runs the default rules in order. A rule never replaces
// an existing value, so the first applicable rule for a variable wins and
// calling this twice is a no-op.
func (b *Builder) ApplyDefaultValues() *Builder {
	lookup := func(kind generic.EntityKind, variable string, pt generic.PeriodType) (generic.Scalar, bool) {
		mgr, ok := b.managers[kind]
		if !ok {
			return nil, false
		}
		return mgr.Value(variable, pt.Format(b.now))
	}

	for _, rule := range b.cfg.Defaults {
		if b.halted() {
			return b
		}
		mgr, ok := b.managers[rule.Kind]
		if !ok || rule.Value == nil {
			b.record(generic.NewBuildError(generic.ErrorMapping, "default:"+rule.Name,
				"default rule for %s.%s cannot be applied", rule.Kind, rule.Variable))
			continue
		}
		period := rule.Period.Format(b.now)
		if mgr.Has(rule.Variable, period) {
			continue
		}
		if rule.When != nil && !rule.When(lookup) {
			continue
		}
		b.logger.Debug("compiler: default applied", "rule", rule.Name, "variable", rule.Variable, "period", period)
		b.assign(mgr, rule.Variable, rule.Value(b.now), period, "default:"+rule.Name)
	}
	return b
}
