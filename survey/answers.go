package survey

import (
	"bytes"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
)

// =============================================================================
// ANSWERS - Ordered map of question id to Value
// =============================================================================

// Answers maps question ids to answers. Iteration follows insertion order so
// that error lists and requests are reproducible. The zero value is ready to
// use.
type Answers struct {
	keys   []string
	values map[string]Value
}

// NewAnswers builds an answer set from alternating key/value pairs in order.
func NewAnswers(pairs ...any) (*Answers, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd number of key/value arguments")
	}
	a := &Answers{}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("argument %d: key is %T, want string", i, pairs[i])
		}
		v, err := FromAny(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", key, err)
		}
		a.Set(key, v)
	}
	return a, nil
}

// MustAnswers is NewAnswers that panics. Use in tests.
func MustAnswers(pairs ...any) *Answers {
	a, err := NewAnswers(pairs...)
	if err != nil {
		panic(err)
	}
	return a
}

// Set stores a value. Re-setting a key keeps its original position.
func (a *Answers) Set(key string, v Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = v
}

// Get returns the value for key; missing keys read as unset.
func (a *Answers) Get(key string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	v, ok := a.values[key]
	return v, ok
}

// Delete removes key.
func (a *Answers) Delete(key string) {
	if a == nil {
		return
	}
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order.
func (a *Answers) Keys() []string {
	if a == nil {
		return nil
	}
	return slices.Clone(a.keys)
}

// Len returns the number of answers.
func (a *Answers) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Each calls fn for every answer in order until fn returns false.
func (a *Answers) Each(fn func(key string, v Value) bool) {
	if a == nil {
		return
	}
	for _, k := range a.keys {
		if !fn(k, a.values[k]) {
			return
		}
	}
}

// Clone returns an independent copy.
func (a *Answers) Clone() *Answers {
	out := &Answers{}
	a.Each(func(k string, v Value) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// MarshalJSON writes an object whose members follow insertion order.
func (a *Answers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var err error
	a.Each(func(k string, v Value) bool {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return false
		}
		if vb, err = v.MarshalJSON(); err != nil {
			return false
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping document order.
func (a *Answers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("answers: expected object, got %v", tok)
	}
	out := Answers{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("answers: expected key, got %v", tok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("answers: %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}
