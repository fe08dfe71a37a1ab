package survey

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// =============================================================================
// QUESTION - Normalized question definition supplied by the schema layer
// =============================================================================

// QuestionType discriminates question definitions.
type QuestionType string

const (
	TypeRadio    QuestionType = "radio"
	TypeCheckbox QuestionType = "checkbox"
	TypeNumber   QuestionType = "number"
	TypeDate     QuestionType = "date"
	TypeCombobox QuestionType = "combobox"
	TypeBoolean  QuestionType = "boolean"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeRadio, TypeCheckbox, TypeNumber, TypeDate, TypeCombobox, TypeBoolean:
		return true
	}
	return false
}

// Option is one choice of a radio or checkbox question.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Question is one survey question. Choices only apply to radio/checkbox,
// Min/Max only to number questions.
type Question struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Type        QuestionType `json:"type" yaml:"type"`
	Required    *bool        `json:"required,omitempty" yaml:"required,omitempty"`
	VisibleWhen Conditions   `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
	Choices     []Option     `json:"choices,omitempty" yaml:"choices,omitempty"`
	Min         *float64     `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64     `json:"max,omitempty" yaml:"max,omitempty"`
}

// IsRequired defaults to true when unspecified.
func (q Question) IsRequired() bool {
	return q.Required == nil || *q.Required
}

// ChoiceIDs lists the choice ids in order.
func (q Question) ChoiceIDs() []string {
	ids := make([]string, len(q.Choices))
	for i, c := range q.Choices {
		ids[i] = c.ID
	}
	return ids
}

// =============================================================================
// CONDITIONS - visibleWhen accepts a string or a list of strings
// =============================================================================

// Conditions is the visibility rule of a question. Every condition must hold.
type Conditions []string

// UnmarshalJSON accepts "expr" or ["expr", ...].
func (c *Conditions) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = splitSingle(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("visibleWhen: want string or list of strings: %w", err)
	}
	*c = many
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (c *Conditions) UnmarshalYAML(unmarshal func(any) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*c = splitSingle(single)
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return fmt.Errorf("visibleWhen: want string or list of strings: %w", err)
	}
	*c = many
	return nil
}

func splitSingle(s string) Conditions {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return Conditions{s}
}

// =============================================================================
// VISIBILITY
// =============================================================================

// ConditionEvaluator decides whether a visibility expression holds.
// Implemented by condition.Evaluator.
type ConditionEvaluator interface {
	Evaluate(expr string, answers *Answers) (bool, error)
}

// Visible reports whether every visibility condition of q holds.
func Visible(q Question, answers *Answers, cond ConditionEvaluator) (bool, error) {
	for _, expr := range q.VisibleWhen {
		ok, err := cond.Evaluate(expr, answers)
		if err != nil {
			return false, fmt.Errorf("question %q: %w", q.ID, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// FilterVisible keeps the answers whose questions are currently visible.
// Answers to questions absent from the schema are kept. Hiding a question can
// hide the questions that depend on it, so filtering repeats until stable.
func FilterVisible(questions []Question, answers *Answers, cond ConditionEvaluator) (*Answers, error) {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	current := answers.Clone()
	for {
		next := &Answers{}
		var err error
		current.Each(func(key string, v Value) bool {
			q, known := byID[key]
			if !known {
				next.Set(key, v)
				return true
			}
			var ok bool
			if ok, err = Visible(q, current, cond); err != nil {
				return false
			}
			if ok {
				next.Set(key, v)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		if next.Len() == current.Len() {
			return next, nil
		}
		current = next
	}
}

// ExpandCheckboxes adds one boolean answer per choice of every answered
// checkbox question, keyed by the choice id, right after the list answer.
// The list answer itself is kept. Choices already answered are left alone.
func ExpandCheckboxes(questions []Question, answers *Answers) *Answers {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	out := &Answers{}
	answers.Each(func(key string, v Value) bool {
		out.Set(key, v)
		q, ok := byID[key]
		if !ok || q.Type != TypeCheckbox || v.Kind() != KindList {
			return true
		}
		for _, c := range q.Choices {
			if _, answered := answers.Get(c.ID); answered {
				continue
			}
			out.Set(c.ID, Bool(v.Contains(c.ID)))
		}
		return true
	})
	return out
}
