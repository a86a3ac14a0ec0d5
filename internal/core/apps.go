package core

import (
	"sort"
	"strings"
)

// AppSet is a set of application identifiers. The zero value is an empty set.
type AppSet struct {
	ids map[string]struct{}
}

// NewAppSet builds a set from identifiers. Blank entries are dropped and
// surrounding whitespace is trimmed.
func NewAppSet(ids ...string) AppSet {
	s := AppSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		s.ids[id] = struct{}{}
	}
	return s
}

// Len returns the number of identifiers in the set.
func (s AppSet) Len() int {
	return len(s.ids)
}

// Empty reports whether the set holds no identifiers.
func (s AppSet) Empty() bool {
	return len(s.ids) == 0
}

// Contains reports whether id is in the set.
func (s AppSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Slice returns the identifiers in sorted order.
func (s AppSet) Slice() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same identifiers.
func (s AppSet) Equal(other AppSet) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if _, ok := other.ids[id]; !ok {
			return false
		}
	}
	return true
}

// With returns a copy of the set with ids added.
func (s AppSet) With(ids ...string) AppSet {
	return NewAppSet(append(s.Slice(), ids...)...)
}

// Without returns a copy of the set with ids removed.
func (s AppSet) Without(ids ...string) AppSet {
	out := NewAppSet(s.Slice()...)
	for _, id := range ids {
		delete(out.ids, strings.TrimSpace(id))
	}
	return out
}

// String renders the set as a comma separated list.
func (s AppSet) String() string {
	return strings.Join(s.Slice(), ",")
}
