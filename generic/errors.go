/*
errors.go - Centralized error types for the compilation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  A compilation never stops on the first problem: every problem becomes a
  BuildError value and the whole list is returned by Build().

ERROR CATEGORIES:
  1. UNKNOWN_VARIABLE  - No mapping for the answer key at all
  2. UNKNOWN_ENTITY    - Mapping found but no entity kind owns the key
  3. UNDEFINED_VALUE   - Null/unset answer while undefined values are rejected
  4. UNEXPECTED_VALUE  - Non-scalar answer shape (bare list)
  5. MAPPING_ERROR     - Malformed mapping or a variable/period value conflict

USAGE:
  Callers match on the sentinel:

    _, err := builder.Build()
    if errors.Is(err, generic.ErrUnknownVariable) {
        ...
    }

  or retrieve the full list:

    var errs generic.BuildErrors
    if errors.As(err, &errs) {
        for _, e := range errs { log(e.AnswerKey, e.Message) }
    }

SEE ALSO:
  - compiler/builder.go: Records these errors
  - entity/manager.go: Emits MAPPING_ERROR on conflicts
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownVariable is returned when no mapping exists for an answer key.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrUnknownEntity is returned when a mapped key has no owning entity kind.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUndefinedValue is returned for unset answers when they are rejected.
	ErrUndefinedValue = errors.New("undefined value")

	// ErrUnexpectedValue is returned for answers that are not scalars.
	ErrUnexpectedValue = errors.New("unexpected value")

	// ErrMapping is returned for malformed mappings and value conflicts.
	ErrMapping = errors.New("mapping error")

	// ErrCompilationNotFound is returned by stores for unknown record ids.
	ErrCompilationNotFound = errors.New("compilation not found")

	// ErrDuplicateCompilation is returned by stores when a record id is reused.
	ErrDuplicateCompilation = errors.New("duplicate compilation id")
)

// =============================================================================
// BUILD ERROR
// =============================================================================

// ErrorType classifies a BuildError.
type ErrorType string

const (
	ErrorUnknownVariable ErrorType = "UNKNOWN_VARIABLE"
	ErrorUnknownEntity   ErrorType = "UNKNOWN_ENTITY"
	ErrorUndefinedValue  ErrorType = "UNDEFINED_VALUE"
	ErrorUnexpectedValue ErrorType = "UNEXPECTED_VALUE"
	ErrorMapping         ErrorType = "MAPPING_ERROR"
)

// BuildError is a single problem found while compiling one answer.
type BuildError struct {
	Type      ErrorType `json:"type"`
	AnswerKey string    `json:"answerKey"`
	Message   string    `json:"message"`
}

// NewBuildError formats a BuildError.
func NewBuildError(t ErrorType, answerKey, format string, args ...any) *BuildError {
	return &BuildError{Type: t, AnswerKey: answerKey, Message: fmt.Sprintf(format, args...)}
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Type, e.AnswerKey, e.Message)
}

// Unwrap maps the error type to its sentinel.
func (e *BuildError) Unwrap() error {
	switch e.Type {
	case ErrorUnknownVariable:
		return ErrUnknownVariable
	case ErrorUnknownEntity:
		return ErrUnknownEntity
	case ErrorUndefinedValue:
		return ErrUndefinedValue
	case ErrorUnexpectedValue:
		return ErrUnexpectedValue
	default:
		return ErrMapping
	}
}

// =============================================================================
// BUILD ERRORS - The failure side of Build()
// =============================================================================

// BuildErrors is the ordered list of every problem found by one compilation.
// Order follows answer insertion order.
type BuildErrors []BuildError

func (es BuildErrors) Error() string {
	switch len(es) {
	case 0:
		return "no build errors"
	case 1:
		return es[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d build errors:", len(es))
	for i := range es {
		b.WriteString("\n  ")
		b.WriteString(es[i].Error())
	}
	return b.String()
}

// Unwrap exposes each BuildError to errors.Is / errors.As.
func (es BuildErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i := range es {
		out[i] = &es[i]
	}
	return out
}

// OfType returns the errors of the given type, in order.
func (es BuildErrors) OfType(t ErrorType) BuildErrors {
	var out BuildErrors
	for _, e := range es {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// CountByType tallies errors per type.
func (es BuildErrors) CountByType() map[ErrorType]int {
	counts := make(map[ErrorType]int)
	for _, e := range es {
		counts[e.Type]++
	}
	return counts
}
