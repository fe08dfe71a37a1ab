/*
Package survey models what a respondent supplies: question definitions and
the answers given to them.

PURPOSE:
  Answers arrive as loosely typed JSON (string, number, boolean, string list,
  combobox object or null). This package closes that union into a single Value
  type with exactly one unwrap point, so downstream stages switch on a Kind
  instead of scattering type assertions.

VALUE KINDS:
  KindUnset   null / missing  (an unanswered question)
  KindString  "oui", "2000-01-01"
  KindNumber  1200.5
  KindBool    true
  KindList    ["a", "b"]          (checkbox answers)
  KindChoice  {"text": "Paris", "value": "75056"}  (combobox answers)

SEE ALSO:
  - answers.go: Ordered answer map
  - question.go: Question definitions
*/
package survey

import (
	"fmt"
	"slices"
	"strconv"

	json "github.com/goccy/go-json"
)

// Kind discriminates the Value union.
type Kind uint8

const (
	KindUnset Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindList:
		return "list"
	case KindChoice:
		return "choice"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one answer. The zero Value is unset.
type Value struct {
	kind Kind
	str  string // KindString, and the value of a KindChoice
	text string // KindChoice label
	num  float64
	b    bool
	list []string
}

// Constructors

func Unset() Value              { return Value{} }
func String(s string) Value     { return Value{kind: KindString, str: s} }
func Number(n float64) Value    { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func List(items ...string) Value { return Value{kind: KindList, list: slices.Clone(items)} }

// Choice builds a combobox answer.
func Choice(text, value string) Value {
	return Value{kind: KindChoice, text: text, str: value}
}

// Accessors

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsUnset() bool   { return v.kind == KindUnset }
func (v Value) IsScalar() bool  { return v.kind == KindString || v.kind == KindNumber || v.kind == KindBool }
func (v Value) Str() string     { return v.str }
func (v Value) Num() float64    { return v.num }
func (v Value) Boolean() bool   { return v.b }
func (v Value) Items() []string { return slices.Clone(v.list) }
func (v Value) Text() string    { return v.text }

// Unwrap is the single point where a combobox answer collapses to its value.
// Every other kind is returned unchanged.
func (v Value) Unwrap() Value {
	if v.kind == KindChoice {
		return String(v.str)
	}
	return v
}

// Scalar returns the Go value carried by a scalar answer (string, float64 or
// bool) after unwrapping. Lists return nil and false, as does an unset value.
func (v Value) Scalar() (any, bool) {
	u := v.Unwrap()
	switch u.kind {
	case KindString:
		return u.str, true
	case KindNumber:
		return u.num, true
	case KindBool:
		return u.b, true
	}
	return nil, false
}

// Contains reports whether a list answer holds s.
func (v Value) Contains(s string) bool {
	return v.kind == KindList && slices.Contains(v.list, s)
}

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		return slices.Equal(v.list, o.list)
	case KindChoice:
		return v.str == o.str && v.text == o.text
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		return fmt.Sprint(v.list)
	case KindChoice:
		return v.text + " (" + v.str + ")"
	}
	return "<unset>"
}

// =============================================================================
// JSON
// =============================================================================

type choiceJSON struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// MarshalJSON encodes the value in its original survey shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindChoice:
		return json.Marshal(choiceJSON{Text: v.text, Value: v.str})
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes any member of the answer union. Objects must carry a
// "value" field; lists must contain only strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// FromAny converts a decoded JSON value (or a plain Go value) into a Value.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Unset(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Number(n), nil
	case []string:
		return List(t...), nil
	case []any:
		items := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("list answer item %d is %T, want string", i, item)
			}
			items = append(items, s)
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		val, ok := t["value"]
		if !ok {
			return Value{}, fmt.Errorf("object answer without \"value\" field")
		}
		text, _ := t["text"].(string)
		switch v := val.(type) {
		case nil:
			return Unset(), nil
		case string:
			return Choice(text, v), nil
		case bool, float64, json.Number:
			return Choice(text, fmt.Sprint(v)), nil
		}
		return Value{}, fmt.Errorf("object answer \"value\" is %T, want a scalar", val)
	}
	return Value{}, fmt.Errorf("unsupported answer type %T", raw)
}
