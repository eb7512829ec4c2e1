// Package enumset defines closed, named sets of labeled constant values.
//
// A Set is built once from an ordered list of member definitions and is
// immutable afterwards. Identity is scoped to the set: members of two
// different sets never compare equal, even when their labels and values
// are textually identical.
package enumset

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrDuplicateValue = errors.New("duplicate value")
	ErrUnknownLabel   = errors.New("unknown label")
)

// MemberDef declares one member of a set: a label, the declared value, and
// an optional alternate stored representation. When Mapping is non-empty it
// is what actually goes to storage and what restore matches on.
type MemberDef struct {
	Label   string
	Value   string
	Mapping string
}

// Member is one value of a Set. It carries the owning set's qualified type
// name, so equality and membership checks cannot leak across sets.
type Member struct {
	ns      string
	Label   string
	Value   string
	Mapping string
}

// Namespace returns the qualified type name of the owning set.
func (m Member) Namespace() string { return m.ns }

// Stored returns the representation sent to storage: the mapping value when
// declared, the declared value otherwise.
func (m Member) Stored() string {
	if m.Mapping != "" {
		return m.Mapping
	}
	return m.Value
}

// Equal reports whether two members denote the same value of the same set.
// Members of different sets are never equal.
func (m Member) Equal(other Member) bool {
	return m.ns == other.ns && m.Value == other.Value
}

// Set is a closed, named collection of members with unique labels and
// unique values. The zero value is not usable; construct with New or
// NewInSchema.
type Set struct {
	schema  string
	name    string
	members []Member

	byLabel  map[string]int
	byValue  map[string]int
	byStored map[string]int
}

// New constructs a set in the default "public" schema.
func New(name string, defs ...MemberDef) (*Set, error) {
	return NewInSchema("public", name, defs...)
}

// NewInSchema constructs a set whose DDL type lives in the given schema.
// Definitions are checked in declaration order; for each member the label
// is checked before the value, so the first offending duplicate decides
// which error is returned.
func NewInSchema(schema, name string, defs ...MemberDef) (*Set, error) {
	if schema == "" {
		schema = "public"
	}
	if name == "" {
		return nil, fmt.Errorf("enumset: set name must not be empty")
	}

	s := &Set{
		schema:   schema,
		name:     name,
		members:  make([]Member, 0, len(defs)),
		byLabel:  make(map[string]int, len(defs)),
		byValue:  make(map[string]int, len(defs)),
		byStored: make(map[string]int, len(defs)),
	}
	ns := s.TypeName()

	for _, def := range defs {
		if _, ok := s.byLabel[def.Label]; ok {
			return nil, fmt.Errorf("enumset %s: %w: %q", ns, ErrDuplicateLabel, def.Label)
		}
		if _, ok := s.byValue[def.Value]; ok {
			return nil, fmt.Errorf("enumset %s: %w: %q", ns, ErrDuplicateValue, def.Value)
		}
		m := Member{
			ns:      ns,
			Label:   def.Label,
			Value:   def.Value,
			Mapping: def.Mapping,
		}
		idx := len(s.members)
		s.members = append(s.members, m)
		s.byLabel[def.Label] = idx
		s.byValue[def.Value] = idx
		s.byStored[m.Stored()] = idx
	}
	return s, nil
}

// Name returns the bare set name.
func (s *Set) Name() string { return s.name }

// Schema returns the schema the DDL type lives in.
func (s *Set) Schema() string { return s.schema }

// TypeName returns the qualified DDL type name, "schema.name". It is also
// the identity carried by every member.
func (s *Set) TypeName() string { return s.schema + "." + s.name }

// Member returns the member with the given label.
func (s *Set) Member(label string) (Member, error) {
	idx, ok := s.byLabel[label]
	if !ok {
		return Member{}, fmt.Errorf("enumset %s: %w: %q", s.TypeName(), ErrUnknownLabel, label)
	}
	return s.members[idx], nil
}

// ByValue returns the member with the given declared value.
func (s *Set) ByValue(value string) (Member, bool) {
	idx, ok := s.byValue[value]
	if !ok {
		return Member{}, false
	}
	return s.members[idx], true
}

// ByStored returns the member whose stored representation equals the given
// text. The mapping value, when declared, is authoritative here.
func (s *Set) ByStored(stored string) (Member, bool) {
	idx, ok := s.byStored[stored]
	if !ok {
		return Member{}, false
	}
	return s.members[idx], true
}

// Contains reports whether the candidate is a value of this set. A member
// carrying another set's identity is never contained, regardless of value.
func (s *Set) Contains(m Member) bool {
	if m.ns != s.TypeName() {
		return false
	}
	_, ok := s.byValue[m.Value]
	return ok
}

// Members returns all members in declaration order.
func (s *Set) Members() []Member {
	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out
}

// Labels returns all labels in declaration order.
func (s *Set) Labels() []string {
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = m.Label
	}
	return out
}

// Values returns all declared values in declaration order.
func (s *Set) Values() []string {
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = m.Value
	}
	return out
}

// StoredValues returns the stored representation of every member in
// declaration order. This is the list the enum DDL emits.
func (s *Set) StoredValues() []string {
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = m.Stored()
	}
	return out
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.members) }
