/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Compilation:
    CompileRequest, CompileResponse, CompilationDTO

  Survey:
    VisibilityRequest, VisibilityResponse
    EvaluateRequest, EvaluateResponse

  Registry:
    MappingDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/betagouv/aides-simplifiees-engine/generic"
	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// =============================================================================
// COMPILATION
// =============================================================================

// CompileRequest is the body of POST /api/compile.
type CompileRequest struct {
	Answers *survey.Answers `json:"answers"`

	// Questions are question-only keys to probe. Empty means none.
	Questions []string `json:"questions,omitempty"`

	// Schema, when present, filters hidden answers and expands checkboxes
	// before compiling.
	Schema []survey.Question `json:"schema,omitempty"`
}

// CompileResponse is returned by POST /api/compile.
type CompileResponse struct {
	ID      string                     `json:"id"`
	Outcome generic.Outcome            `json:"outcome"`
	Request generic.CalculationRequest `json:"request,omitempty"`
	Errors  generic.BuildErrors        `json:"errors,omitempty"`
}

// CompilationDTO is a stored compilation.
type CompilationDTO struct {
	ID         string              `json:"id"`
	CreatedAt  time.Time           `json:"createdAt"`
	Outcome    generic.Outcome     `json:"outcome"`
	ErrorCount int                 `json:"errorCount"`
	Answers    json.RawMessage     `json:"answers,omitempty"`
	Request    json.RawMessage     `json:"request,omitempty"`
	Errors     generic.BuildErrors `json:"errors,omitempty"`
}

func toCompilationDTO(rec generic.CompilationRecord, full bool) CompilationDTO {
	dto := CompilationDTO{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		Outcome:    rec.Outcome,
		ErrorCount: len(rec.Errors),
	}
	if full {
		dto.Answers = json.RawMessage(rec.Answers)
		dto.Request = json.RawMessage(rec.Request)
		dto.Errors = rec.Errors
	}
	return dto
}

// =============================================================================
// SURVEY
// =============================================================================

// VisibilityRequest is the body of POST /api/visibility.
type VisibilityRequest struct {
	Schema  []survey.Question `json:"schema"`
	Answers *survey.Answers   `json:"answers"`
}

// VisibilityResponse lists visible questions and the answers kept.
type VisibilityResponse struct {
	Visible []string        `json:"visible"`
	Answers *survey.Answers `json:"answers"`
}

// EvaluateRequest is the body of POST /api/conditions/evaluate.
type EvaluateRequest struct {
	Expression string          `json:"expression"`
	Answers    *survey.Answers `json:"answers"`
}

// EvaluateResponse is the result of one condition.
type EvaluateResponse struct {
	Result bool `json:"result"`
}

// =============================================================================
// REGISTRY
// =============================================================================

// MappingDTO is one registered answer key.
type MappingDTO struct {
	Key      string             `json:"key"`
	Entity   generic.EntityKind `json:"entity"`
	Type     string             `json:"type"`
	Variable string             `json:"variable,omitempty"`
	Period   generic.PeriodType `json:"period,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
