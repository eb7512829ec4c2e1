package enumset

import (
	"errors"
	"strings"
	"testing"
)

func mustSet(t *testing.T, name string, defs ...MemberDef) *Set {
	t.Helper()
	s, err := New(name, defs...)
	if err != nil {
		t.Fatalf("New(%q) error = %v", name, err)
	}
	return s
}

func TestNew(t *testing.T) {
	s := mustSet(t, "status",
		MemberDef{Label: "ACTIVE", Value: "1"},
		MemberDef{Label: "IDLE", Value: "2"},
		MemberDef{Label: "RETIRED", Value: "3", Mapping: "retired"},
	)

	if s.Name() != "status" {
		t.Errorf("Name() = %q, want %q", s.Name(), "status")
	}
	if s.Schema() != "public" {
		t.Errorf("Schema() = %q, want %q", s.Schema(), "public")
	}
	if s.TypeName() != "public.status" {
		t.Errorf("TypeName() = %q, want %q", s.TypeName(), "public.status")
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}

	m, err := s.Member("ACTIVE")
	if err != nil {
		t.Fatalf("Member(ACTIVE) error = %v", err)
	}
	if m.Value != "1" || m.Label != "ACTIVE" {
		t.Errorf("Member(ACTIVE) = %+v", m)
	}
	if m.Namespace() != "public.status" {
		t.Errorf("Namespace() = %q, want %q", m.Namespace(), "public.status")
	}

	if _, err := s.Member("MISSING"); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("Member(MISSING) error = %v, want ErrUnknownLabel", err)
	}
}

func TestNewInSchema(t *testing.T) {
	s, err := NewInSchema("app", "status", MemberDef{Label: "A", Value: "1"})
	if err != nil {
		t.Fatalf("NewInSchema error = %v", err)
	}
	if s.TypeName() != "app.status" {
		t.Errorf("TypeName() = %q, want %q", s.TypeName(), "app.status")
	}
}

func TestDuplicateLabel(t *testing.T) {
	_, err := New("status",
		MemberDef{Label: "A", Value: "1"},
		MemberDef{Label: "A", Value: "2"},
	)
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("error = %v, want ErrDuplicateLabel", err)
	}
	if !strings.Contains(err.Error(), "public.status") || !strings.Contains(err.Error(), `"A"`) {
		t.Errorf("error %q should name the namespace and label", err)
	}
}

func TestDuplicateValue(t *testing.T) {
	_, err := New("status",
		MemberDef{Label: "A", Value: "1"},
		MemberDef{Label: "B", Value: "1"},
	)
	if !errors.Is(err, ErrDuplicateValue) {
		t.Fatalf("error = %v, want ErrDuplicateValue", err)
	}
	if !strings.Contains(err.Error(), `"1"`) {
		t.Errorf("error %q should name the value", err)
	}
}

// The label check runs before the value check for each definition, so the
// first offending duplicate in declaration order decides the error.
func TestDuplicatePrecedence(t *testing.T) {
	tests := []struct {
		name string
		defs []MemberDef
		want error
	}{
		{
			// Third def repeats both the label of the first and the value
			// of the second; label fires first.
			name: "label checked before value",
			defs: []MemberDef{
				{Label: "A", Value: "1"},
				{Label: "B", Value: "2"},
				{Label: "A", Value: "2"},
			},
			want: ErrDuplicateLabel,
		},
		{
			// Second def repeats only a value; third would repeat a label
			// but is never reached.
			name: "earlier value duplicate wins over later label duplicate",
			defs: []MemberDef{
				{Label: "A", Value: "1"},
				{Label: "B", Value: "1"},
				{Label: "A", Value: "3"},
			},
			want: ErrDuplicateValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("s", tt.defs...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCrossNamespaceIdentity(t *testing.T) {
	defs := []MemberDef{
		{Label: "A", Value: "1"},
		{Label: "B", Value: "2"},
	}
	left := mustSet(t, "left", defs...)
	right := mustSet(t, "right", defs...)

	lm, _ := left.Member("A")
	rm, _ := right.Member("A")

	if lm.Equal(rm) {
		t.Error("members of distinct sets with identical label/value must not be equal")
	}
	if left.Contains(rm) {
		t.Error("left.Contains(right member) = true, want false")
	}
	if right.Contains(lm) {
		t.Error("right.Contains(left member) = true, want false")
	}
	if !left.Contains(lm) {
		t.Error("left.Contains(own member) = false, want true")
	}
}

func TestEqualSameSet(t *testing.T) {
	s := mustSet(t, "s", MemberDef{Label: "A", Value: "1"}, MemberDef{Label: "B", Value: "2"})

	a1, _ := s.Member("A")
	a2, ok := s.ByValue("1")
	if !ok {
		t.Fatal("ByValue(1) not found")
	}
	if !a1.Equal(a2) {
		t.Error("same member fetched by label and by value should be equal")
	}

	b, _ := s.Member("B")
	if a1.Equal(b) {
		t.Error("distinct members of the same set should not be equal")
	}
}

func TestStoredAndMapping(t *testing.T) {
	s := mustSet(t, "status",
		MemberDef{Label: "ACTIVE", Value: "1", Mapping: "active"},
		MemberDef{Label: "IDLE", Value: "2"},
	)

	active, _ := s.Member("ACTIVE")
	if active.Stored() != "active" {
		t.Errorf("Stored() = %q, want %q", active.Stored(), "active")
	}
	idle, _ := s.Member("IDLE")
	if idle.Stored() != "2" {
		t.Errorf("Stored() = %q, want %q", idle.Stored(), "2")
	}

	// The mapping value is authoritative on restore.
	if m, ok := s.ByStored("active"); !ok || m.Label != "ACTIVE" {
		t.Errorf("ByStored(active) = %+v, %v", m, ok)
	}
	// With a mapping declared, the plain value is not a stored form.
	if _, ok := s.ByStored("1"); ok {
		t.Error("ByStored(1) found a member, want miss when mapping is declared")
	}

	want := []string{"active", "2"}
	got := s.StoredValues()
	if len(got) != len(want) {
		t.Fatalf("StoredValues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StoredValues()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOrderPreserved(t *testing.T) {
	s := mustSet(t, "s",
		MemberDef{Label: "C", Value: "3"},
		MemberDef{Label: "A", Value: "1"},
		MemberDef{Label: "B", Value: "2"},
	)

	wantLabels := []string{"C", "A", "B"}
	for i, l := range s.Labels() {
		if l != wantLabels[i] {
			t.Errorf("Labels()[%d] = %q, want %q", i, l, wantLabels[i])
		}
	}
	wantValues := []string{"3", "1", "2"}
	for i, v := range s.Values() {
		if v != wantValues[i] {
			t.Errorf("Values()[%d] = %q, want %q", i, v, wantValues[i])
		}
	}
}

func TestEmptyName(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}
}
