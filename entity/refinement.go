package entity

import "github.com/betagouv/aides-simplifiees-engine/generic"

// =============================================================================
// REFINEMENTS - Named overwrites that are not conflicts
// =============================================================================

// RefinementRule accepts an overwrite of old by new.
type RefinementRule func(old, new generic.Scalar) bool

// Refinements maps a variable name to the rule allowing a later answer to
// replace an earlier value for the same period.
type Refinements map[string]RefinementRule

// Allows reports whether the table permits replacing old with new for name.
func (r Refinements) Allows(name string, old, new generic.Scalar) bool {
	rule, ok := r[name]
	return ok && rule != nil && rule(old, new)
}

// ReplacesValue is a rule allowing any value to replace exactly old.
func ReplacesValue(old generic.Scalar) RefinementRule {
	return func(current, _ generic.Scalar) bool { return current == old }
}
