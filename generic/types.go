/*
Package generic provides the core types of the survey compilation engine.

PURPOSE:
  This package contains the domain-agnostic vocabulary shared by every stage
  of a compilation: relational entity kinds, variable values recorded per
  period, the calculation request handed to the external rules engine, and
  the error taxonomy. It knows nothing about specific survey questions or
  engine variables; those live in the openfisca package.

KEY CONCEPTS IN THIS FILE (types.go):
  - EntityKind: One of the four relational groupings the engine expects
  - Scalar: A variable value (bool, float64, string or nil)
  - PeriodValues: Values of one variable keyed by period string
  - EntityRecord: One entity's membership arrays and variables
  - CalculationRequest: kind -> entity id -> field -> value

DESIGN PRINCIPLES:
  1. Immutability: A CalculationRequest is produced once and never mutated
  2. Determinism: Kinds are always visited in the same fixed order
  3. JSON shape: The request marshals directly to the engine's wire format

USAGE:
  req := generic.CalculationRequest{
      generic.KindIndividual: {
          "usager": {"date_naissance": generic.PeriodValues{"ETERNITY": "2000-01-01"}},
      },
  }

SEE ALSO:
  - period.go: Period types and resolution
  - errors.go: BuildError taxonomy
  - store.go: Compilation record persistence interface
*/
package generic

import "maps"

// =============================================================================
// ENTITY KINDS
// =============================================================================

// EntityKind identifies a relational grouping. The value is the top-level key
// used in the calculation request.
type EntityKind string

const (
	KindIndividual   EntityKind = "individus"
	KindHousehold    EntityKind = "menages"
	KindTaxHousehold EntityKind = "foyers_fiscaux"
	KindFamily       EntityKind = "familles"
)

// Kinds returns every entity kind in the fixed resolution order.
func Kinds() []EntityKind {
	return []EntityKind{KindIndividual, KindHousehold, KindTaxHousehold, KindFamily}
}

// Valid reports whether k is one of the four known kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindIndividual, KindHousehold, KindTaxHousehold, KindFamily:
		return true
	}
	return false
}

func (k EntityKind) String() string { return string(k) }

// =============================================================================
// VALUES
// =============================================================================

// Scalar is a variable value: bool, float64, string, or nil for a probe the
// engine must compute.
type Scalar any

// PeriodValues holds one variable's values keyed by period ("2025-01", "2025",
// "ETERNITY").
type PeriodValues map[string]Scalar

// Clone returns a shallow copy; scalars are immutable.
func (pv PeriodValues) Clone() PeriodValues {
	if pv == nil {
		return nil
	}
	return maps.Clone(pv)
}

// Variables maps a variable name to its period values.
type Variables map[string]PeriodValues

// Clone deep-copies the variable bag.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for name, pv := range v {
		out[name] = pv.Clone()
	}
	return out
}

// =============================================================================
// CALCULATION REQUEST
// =============================================================================

// EntityRecord is one entity as sent to the engine. Fields are either
// membership arrays ([]string of entity ids) or variables (PeriodValues).
type EntityRecord map[string]any

// Clone deep-copies membership slices and period maps.
func (r EntityRecord) Clone() EntityRecord {
	out := make(EntityRecord, len(r))
	for field, v := range r {
		switch t := v.(type) {
		case []string:
			out[field] = append([]string(nil), t...)
		case PeriodValues:
			out[field] = t.Clone()
		default:
			out[field] = v
		}
	}
	return out
}

// CalculationRequest is the nested structure consumed by the external
// calculation API: kind -> entity id -> field -> value.
type CalculationRequest map[EntityKind]map[string]EntityRecord

// Entity returns the record for the given kind and id.
func (r CalculationRequest) Entity(kind EntityKind, id string) (EntityRecord, bool) {
	byID, ok := r[kind]
	if !ok {
		return nil, false
	}
	rec, ok := byID[id]
	return rec, ok
}

// Variable returns the period values of a variable on an entity. It also
// reads requests decoded from JSON, where the values are plain maps.
func (r CalculationRequest) Variable(kind EntityKind, id, name string) (PeriodValues, bool) {
	rec, ok := r.Entity(kind, id)
	if !ok {
		return nil, false
	}
	switch v := rec[name].(type) {
	case PeriodValues:
		return v, true
	case map[string]any:
		pv := make(PeriodValues, len(v))
		for period, val := range v {
			pv[period] = val
		}
		return pv, true
	default:
		return nil, false
	}
}
