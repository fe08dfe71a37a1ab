/*
Package factory provides JSON/YAML to Go survey schema conversion.

PURPOSE:
  Converts normalized survey definitions into survey.Question values. The
  schema is authored outside the engine (JSON from the form builder, YAML in
  the repository), so the factory validates everything the compiler and the
  visibility filter rely on before any answer is processed.

SCHEMA:
  {
    "id": "bourse-etudiant",
    "title": "Bourse et aides étudiantes",
    "version": "2025.1",
    "steps": [
      {
        "id": "profil",
        "title": "Votre profil",
        "questions": [
          {"id": "situation-professionnelle", "type": "radio",
           "choices": [{"id": "etudiant", "title": "Étudiant"}]},
          {"id": "boursier", "type": "boolean",
           "visibleWhen": "situation-professionnelle=etudiant"}
        ]
      }
    ]
  }

CHECKS:
  - question ids are non-empty and unique across steps
  - question types are known
  - radio and checkbox questions have choices with unique ids
  - min <= max for number questions
  - visibleWhen expressions parse, when a validator is supplied

USAGE:
  f := factory.NewSchemaFactory(factory.WithConditionValidator(evaluator))
  schema, err := f.ParseSchemaJSON(data)
  visible, err := survey.FilterVisible(schema.Questions(), answers, evaluator)

SEE ALSO:
  - survey/question.go: Question type definition
  - condition/evaluator.go: Validate
*/
package factory

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// ErrInvalidSchema wraps every validation failure.
var ErrInvalidSchema = errors.New("invalid survey schema")

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// Schema is a normalized survey.
type Schema struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Steps   []Step `json:"steps" yaml:"steps"`
}

// Step groups questions shown together.
type Step struct {
	ID        string            `json:"id" yaml:"id"`
	Title     string            `json:"title" yaml:"title"`
	Questions []survey.Question `json:"questions" yaml:"questions"`
}

// Questions flattens the steps in order.
func (s *Schema) Questions() []survey.Question {
	var out []survey.Question
	for _, st := range s.Steps {
		out = append(out, st.Questions...)
	}
	return out
}

// Question finds a question by id.
func (s *Schema) Question(id string) (survey.Question, bool) {
	for _, st := range s.Steps {
		for _, q := range st.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return survey.Question{}, false
}

// =============================================================================
// SCHEMA FACTORY
// =============================================================================

// ConditionValidator checks a visibleWhen expression.
type ConditionValidator interface {
	Validate(expr string) error
}

// SchemaFactory parses and validates survey schemas.
type SchemaFactory struct {
	conditions ConditionValidator
}

// Option configures a SchemaFactory.
type Option func(*SchemaFactory)

// WithConditionValidator rejects schemas whose visibleWhen does not parse.
func WithConditionValidator(v ConditionValidator) Option {
	return func(f *SchemaFactory) { f.conditions = v }
}

// NewSchemaFactory creates a new schema factory.
func NewSchemaFactory(opts ...Option) *SchemaFactory {
	f := &SchemaFactory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ParseSchemaJSON parses a JSON schema document.
func (f *SchemaFactory) ParseSchemaJSON(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}
	return f.finish(&s)
}

// ParseSchemaYAML parses a YAML schema document.
func (f *SchemaFactory) ParseSchemaYAML(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	return f.finish(&s)
}

// ParseQuestionsJSON parses a bare JSON list of questions, as sent by the
// visibility endpoint.
func (f *SchemaFactory) ParseQuestionsJSON(data []byte) ([]survey.Question, error) {
	var qs []survey.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("failed to parse questions JSON: %w", err)
	}
	if err := f.ValidateQuestions(qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func (f *SchemaFactory) finish(s *Schema) (*Schema, error) {
	if err := f.ValidateQuestions(s.Questions()); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateQuestions runs every schema check and reports all failures.
func (f *SchemaFactory) ValidateQuestions(qs []survey.Question) error {
	var problems []string
	seen := make(map[string]bool, len(qs))

	for i, q := range qs {
		where := fmt.Sprintf("question %d (%q)", i, q.ID)
		if q.ID == "" {
			problems = append(problems, fmt.Sprintf("question %d: empty id", i))
		} else if seen[q.ID] {
			problems = append(problems, where+": duplicate id")
		}
		seen[q.ID] = true

		if !q.Type.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", where, q.Type))
		}
		if q.Type == survey.TypeRadio || q.Type == survey.TypeCheckbox {
			problems = append(problems, checkChoices(where, q.Choices)...)
		}
		if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
			problems = append(problems, fmt.Sprintf("%s: min %v above max %v", where, *q.Min, *q.Max))
		}
		if f.conditions != nil {
			for _, expr := range q.VisibleWhen {
				if err := f.conditions.Validate(expr); err != nil {
					problems = append(problems, fmt.Sprintf("%s: visibleWhen: %v", where, err))
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSchema, strings.Join(problems, "; "))
	}
	return nil
}

func checkChoices(where string, choices []survey.Option) []string {
	if len(choices) == 0 {
		return []string{where + ": no choices"}
	}
	var problems []string
	ids := make(map[string]bool, len(choices))
	for _, c := range choices {
		switch {
		case c.ID == "":
			problems = append(problems, where+": choice with empty id")
		case ids[c.ID]:
			problems = append(problems, fmt.Sprintf("%s: duplicate choice %q", where, c.ID))
		}
		ids[c.ID] = true
	}
	return problems
}
