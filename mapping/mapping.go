/*
Package mapping routes survey answer keys to engine variables.

PURPOSE:
  Every answer key resolves to exactly one Mapping and exactly one entity
  kind. A Mapping says what the answer becomes in the calculation request:

    Direct    one variable at the mapping's period
    Dispatch  a function that fans one answer out to several variables
    Excluded  nothing; the key is deliberately ignored

REGISTRY:
  The Registry is built once at process start from four dictionaries, one
  per entity kind. Each dictionary is the union of the answer mappings and
  the question-only mappings (variables probed with a null value) of that
  kind. NewRegistry refuses a key that appears twice, so lookups never have
  to arbitrate between kinds.

SEE ALSO:
  - registry.go: Registry construction and lookup
  - openfisca/: The concrete dictionaries
  - compiler/builder.go: The only consumer
*/
package mapping

import (
	"fmt"

	"github.com/betagouv/aides-simplifiees-engine/generic"
)

// =============================================================================
// MAPPING
// =============================================================================

// Type discriminates mappings. The zero Type is invalid.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeDirect
	TypeDispatch
	TypeExcluded
)

func (t Type) String() string {
	switch t {
	case TypeDirect:
		return "direct"
	case TypeDispatch:
		return "dispatch"
	case TypeExcluded:
		return "excluded"
	}
	return "invalid"
}

// Assignment is one variable value produced from an answer.
type Assignment struct {
	Variable string
	Period   string
	Value    generic.Scalar
}

// DispatchFunc fans one answer out to one or more variables. It must be pure.
// period is the mapping's period type resolved against the compilation clock.
// Assignments are routed in the returned order.
type DispatchFunc func(answerKey string, value generic.Scalar, period string) ([]Assignment, error)

// Mapping describes what an answer becomes.
type Mapping struct {
	Type     Type
	Variable string             // TypeDirect
	Period   generic.PeriodType // TypeDirect, TypeDispatch
	Dispatch DispatchFunc       // TypeDispatch
}

// Direct maps an answer to one variable.
func Direct(variable string, period generic.PeriodType) Mapping {
	return Mapping{Type: TypeDirect, Variable: variable, Period: period}
}

// Dispatch maps an answer through fn.
func Dispatch(fn DispatchFunc, period generic.PeriodType) Mapping {
	return Mapping{Type: TypeDispatch, Dispatch: fn, Period: period}
}

// Excluded marks a key that never reaches the request.
func Excluded() Mapping {
	return Mapping{Type: TypeExcluded}
}

// Expand turns a scalar answer into assignments. Malformed mappings (unknown
// type, empty variable, nil dispatch function) return an error.
func (m Mapping) Expand(answerKey string, value generic.Scalar, period string) ([]Assignment, error) {
	switch m.Type {
	case TypeDirect:
		if m.Variable == "" {
			return nil, fmt.Errorf("direct mapping without variable name")
		}
		return []Assignment{{Variable: m.Variable, Period: period, Value: value}}, nil
	case TypeDispatch:
		if m.Dispatch == nil {
			return nil, fmt.Errorf("dispatch mapping without function")
		}
		out, err := m.Dispatch(answerKey, value, period)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("dispatch produced no variable")
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot expand %s mapping", m.Type)
}

// Dictionary maps answer keys to mappings for one entity kind.
type Dictionary map[string]Mapping
