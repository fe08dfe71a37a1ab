package mapping

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/betagouv/aides-simplifiees-engine/generic"
)

// ErrDuplicateKey is returned by NewRegistry when a key is mapped twice.
var ErrDuplicateKey = errors.New("answer key mapped more than once")

// Resolver looks up answer keys. Implemented by *Registry.
type Resolver interface {
	Resolve(key string) (Mapping, bool)
	ResolveEntity(key string) (generic.EntityKind, bool)
}

// Source is the input dictionaries of one entity kind.
type Source struct {
	Kind      generic.EntityKind
	Answers   Dictionary // answer keys
	Questions Dictionary // question-only keys, probed with a null value
}

// Entry is one registered key, for listing.
type Entry struct {
	Key     string
	Kind    generic.EntityKind
	Mapping Mapping
}

// Registry is the immutable set of four dictionaries.
type Registry struct {
	kinds []generic.EntityKind // fixed scan order
	dicts map[generic.EntityKind]Dictionary
}

var _ Resolver = (*Registry)(nil)

// NewRegistry merges each kind's answer and question dictionaries and checks
// that no key appears in more than one place.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{
		kinds: generic.Kinds(),
		dicts: make(map[generic.EntityKind]Dictionary, 4),
	}
	for _, k := range r.kinds {
		r.dicts[k] = Dictionary{}
	}

	owner := make(map[string]string)
	var dups []string
	add := func(kind generic.EntityKind, origin string, d Dictionary) {
		for key, m := range d {
			where := string(kind) + "/" + origin
			if prev, ok := owner[key]; ok {
				dups = append(dups, fmt.Sprintf("%q in %s and %s", key, prev, where))
				continue
			}
			owner[key] = where
			r.dicts[kind][key] = m
		}
	}

	for _, src := range sources {
		if !src.Kind.Valid() {
			return nil, fmt.Errorf("mapping source for unknown entity kind %q", src.Kind)
		}
		add(src.Kind, "answers", src.Answers)
		add(src.Kind, "questions", src.Questions)
	}

	if len(dups) > 0 {
		slices.Sort(dups)
		return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, strings.Join(dups, "; "))
	}
	return r, nil
}

// Resolve scans the dictionaries in kind order and returns the first hit.
func (r *Registry) Resolve(key string) (Mapping, bool) {
	for _, k := range r.kinds {
		if m, ok := r.dicts[k][key]; ok {
			return m, true
		}
	}
	return Mapping{}, false
}

// ResolveEntity returns the kind whose dictionary holds key.
func (r *Registry) ResolveEntity(key string) (generic.EntityKind, bool) {
	for _, k := range r.kinds {
		if _, ok := r.dicts[k][key]; ok {
			return k, true
		}
	}
	return "", false
}

// Keys returns the sorted keys of one kind.
func (r *Registry) Keys(kind generic.EntityKind) []string {
	d := r.dicts[kind]
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Entries lists every key, grouped by kind in scan order, then sorted by key.
func (r *Registry) Entries() []Entry {
	var out []Entry
	for _, k := range r.kinds {
		for _, key := range r.Keys(k) {
			out = append(out, Entry{Key: key, Kind: k, Mapping: r.dicts[k][key]})
		}
	}
	return out
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	n := 0
	for _, d := range r.dicts {
		n += len(d)
	}
	return n
}
