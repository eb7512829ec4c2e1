// Package field describes a single table column and renders its
// column-definition text.
package field

import (
	"errors"
	"fmt"
	"strings"

	"github.com/linga/declsql/internal/enumset"
)

// ErrConfig marks a field specification with conflicting or missing
// attributes. It is raised when the owning declaration is built, never at
// render time.
var ErrConfig = errors.New("invalid field spec")

// Spec describes one column. Exactly one of Type, Enum, Serial, SQL, or
// Full determines the emitted column type text; Full overrides SQL, and
// either of them silences every other attribute when rendering.
type Spec struct {
	Type       string       // raw SQL type text, e.g. "integer"
	Enum       *enumset.Set // reference to an enum type
	PrimaryKey bool
	Unique     bool
	Serial     bool
	Required   bool   // NOT NULL
	Default    string // default literal, emitted verbatim

	Check       string // CHECK expression
	GeneratedAs string // GENERATED ALWAYS AS (...) STORED expression
	IndexType   string // index method for this column: btree, hash, gin, ...

	SQL  string // customized fragment emitted after the column name
	Full string // full column text, emitted verbatim
}

// Def pairs a column name with its spec. Declarations collect fields as an
// ordered list of Defs.
type Def struct {
	Name string
	Spec Spec
}

// Validate checks the spec for conflicting attributes. The name is only
// used in error messages.
func (s Spec) Validate(name string) error {
	if s.Full != "" || s.SQL != "" {
		return nil // customized text overrides everything else
	}
	if s.Serial {
		switch {
		case s.Type != "":
			return fmt.Errorf("%w: field %q: serial conflicts with raw type %q", ErrConfig, name, s.Type)
		case s.Enum != nil:
			return fmt.Errorf("%w: field %q: serial conflicts with enum reference", ErrConfig, name)
		case s.Default != "":
			return fmt.Errorf("%w: field %q: serial conflicts with default literal", ErrConfig, name)
		case s.GeneratedAs != "":
			return fmt.Errorf("%w: field %q: serial conflicts with generated expression", ErrConfig, name)
		}
		return nil
	}
	if s.Type != "" && s.Enum != nil {
		return fmt.Errorf("%w: field %q: raw type %q conflicts with enum reference", ErrConfig, name, s.Type)
	}
	if s.Type == "" && s.Enum == nil {
		return fmt.Errorf("%w: field %q: no column type given", ErrConfig, name)
	}
	if s.GeneratedAs != "" && s.Default != "" {
		return fmt.Errorf("%w: field %q: generated expression conflicts with default literal", ErrConfig, name)
	}
	return nil
}

// Render produces the column-definition text for the given column name.
// It is pure: the same spec always renders the same text. Constraint
// suffixes come in a fixed order so the DDL is byte-stable.
func (s Spec) Render(name string) string {
	if s.Full != "" {
		return s.Full
	}
	if s.SQL != "" {
		return name + " " + s.SQL
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte(' ')
	switch {
	case s.Enum != nil:
		b.WriteString(s.Enum.TypeName())
	case s.Serial:
		b.WriteString("SERIAL")
	default:
		b.WriteString(s.Type)
	}

	if s.Required {
		b.WriteString(" NOT NULL")
	}
	if s.Unique {
		b.WriteString(" UNIQUE")
	}
	if s.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(s.Default)
	}
	if s.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if s.Check != "" {
		b.WriteString(" CHECK (")
		b.WriteString(s.Check)
		b.WriteString(")")
	}
	if s.GeneratedAs != "" {
		b.WriteString(" GENERATED ALWAYS AS (")
		b.WriteString(s.GeneratedAs)
		b.WriteString(") STORED")
	}
	return b.String()
}
