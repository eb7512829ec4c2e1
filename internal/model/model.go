// Package model declares schemas, tables, and enum types as data and
// renders them into DDL text.
//
// A Declaration is built once and immutable afterwards; rendering is a pure
// function of its attributes, so the emitted DDL is byte-stable across
// calls. Metadata-shape problems are fatal at construction time, never
// deferred to first render.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/linga/declsql/internal/enumset"
	"github.com/linga/declsql/internal/field"
)

// ErrConfig marks an invalid declaration: missing names, unknown
// unique-constraint columns, conflicting field attributes, and the like.
var ErrConfig = errors.New("invalid declaration")

// Kind is the target a declaration creates.
type Kind int

const (
	KindSchema Kind = iota
	KindTable
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindTable:
		return "table"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SeedFunc produces one-time initialization SQL for a table, given the
// schema and table name it is being created under.
type SeedFunc func(schema, table string) string

// Meta enumerates every recognized declaration option. Defaults are filled
// in at construction; option resolution never happens at render time.
type Meta struct {
	Initialize      bool // created by the orchestrator at startup
	ConditionalInit bool // idempotent create-if-absent form
	InitIndex       bool // emit per-column index statements

	SchemaNames   []string // schema kind: names to create; table kind: target schemas
	TableName     string
	Authorization string // schema owner; may be assigned later via SetAuthorization

	Unique          [][]string // UNIQUE(...) column tuples
	OtherConditions string     // free trailing fragment inside the column list
	PostCreate      []string   // statements emitted after creation
}

// Declaration aggregates a kind, its metadata, and (for tables) an ordered
// field list. Construct with NewSchema, NewTable, or NewEnum.
type Declaration struct {
	kind   Kind
	meta   Meta
	fields []field.Def
	enum   *enumset.Set

	ifInit   SeedFunc
	elseInit SeedFunc
}

// NewSchema declares one or more database schemas.
func NewSchema(meta Meta) (*Declaration, error) {
	if len(meta.SchemaNames) == 0 {
		return nil, fmt.Errorf("%w: schema declaration needs at least one schema name", ErrConfig)
	}
	if meta.TableName != "" {
		return nil, fmt.Errorf("%w: schema declaration must not carry a table name", ErrConfig)
	}
	return &Declaration{kind: KindSchema, meta: meta}, nil
}

// NewTable declares a table with an ordered field list. Field specs are
// validated here; unique-constraint tuples must reference declared fields.
func NewTable(meta Meta, fields []field.Def) (*Declaration, error) {
	if meta.TableName == "" {
		return nil, fmt.Errorf("%w: table declaration needs exactly one table name", ErrConfig)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: table %q has no fields", ErrConfig, meta.TableName)
	}
	if len(meta.SchemaNames) == 0 {
		meta.SchemaNames = []string{"public"}
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: table %q has an unnamed field", ErrConfig, meta.TableName)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: table %q declares field %q twice", ErrConfig, meta.TableName, f.Name)
		}
		seen[f.Name] = true
		if err := f.Spec.Validate(f.Name); err != nil {
			return nil, fmt.Errorf("table %q: %w", meta.TableName, err)
		}
	}
	for _, tuple := range meta.Unique {
		if len(tuple) == 0 {
			return nil, fmt.Errorf("%w: table %q has an empty unique constraint", ErrConfig, meta.TableName)
		}
		for _, col := range tuple {
			if !seen[col] {
				return nil, fmt.Errorf("%w: table %q unique constraint references unknown column %q",
					ErrConfig, meta.TableName, col)
			}
		}
	}

	d := &Declaration{kind: KindTable, meta: meta}
	d.fields = make([]field.Def, len(fields))
	copy(d.fields, fields)
	return d, nil
}

// NewEnum declares the DDL type for an enum set. The type name and schema
// come from the set itself; meta may carry init policy but must not
// contradict the set's schema.
func NewEnum(set *enumset.Set, meta Meta) (*Declaration, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: enum declaration needs a set", ErrConfig)
	}
	if len(meta.SchemaNames) > 1 {
		return nil, fmt.Errorf("%w: enum %q allows at most one schema name", ErrConfig, set.Name())
	}
	if len(meta.SchemaNames) == 1 && meta.SchemaNames[0] != set.Schema() {
		return nil, fmt.Errorf("%w: enum %q declared in schema %q but set lives in %q",
			ErrConfig, set.Name(), meta.SchemaNames[0], set.Schema())
	}
	meta.SchemaNames = []string{set.Schema()}
	return &Declaration{kind: KindEnum, meta: meta, enum: set}, nil
}

// SetSeedHooks installs the one-time initialization hooks. They only apply
// to conditionally initialized tables, where creation is guarded by an
// existence probe: ifInit runs on first creation, elseInit (optional, may
// be nil) when the table already exists.
func (d *Declaration) SetSeedHooks(ifInit, elseInit SeedFunc) error {
	if d.kind != KindTable {
		return fmt.Errorf("%w: seed hooks only apply to table declarations", ErrConfig)
	}
	if !d.meta.ConditionalInit {
		return fmt.Errorf("%w: table %q: seed hooks require conditional init", ErrConfig, d.meta.TableName)
	}
	if ifInit == nil {
		return fmt.Errorf("%w: table %q: if-initialize hook must not be nil", ErrConfig, d.meta.TableName)
	}
	d.ifInit = ifInit
	d.elseInit = elseInit
	return nil
}

// SetAuthorization assigns the schema owner after construction. It is how
// an initializer fills in a deferred owner; it has no effect on other
// kinds.
func (d *Declaration) SetAuthorization(owner string) {
	if d.kind == KindSchema && d.meta.Authorization == "" {
		d.meta.Authorization = owner
	}
}

// Kind returns what the declaration creates.
func (d *Declaration) Kind() Kind { return d.kind }

// Meta returns a copy of the declaration metadata.
func (d *Declaration) Meta() Meta { return d.meta }

// Enum returns the enum set for enum-kind declarations, nil otherwise.
func (d *Declaration) Enum() *enumset.Set { return d.enum }

// Fields returns the ordered field list of a table declaration.
func (d *Declaration) Fields() []field.Def {
	out := make([]field.Def, len(d.fields))
	copy(out, d.fields)
	return out
}

// Field returns the spec of a declared column.
func (d *Declaration) Field(name string) (field.Spec, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f.Spec, true
		}
	}
	return field.Spec{}, false
}

// EnumRefs returns the enum sets referenced by the table's fields, in
// first-reference order.
func (d *Declaration) EnumRefs() []*enumset.Set {
	var refs []*enumset.Set
	seen := make(map[string]bool)
	for _, f := range d.fields {
		if f.Spec.Enum == nil {
			continue
		}
		name := f.Spec.Enum.TypeName()
		if !seen[name] {
			seen[name] = true
			refs = append(refs, f.Spec.Enum)
		}
	}
	return refs
}

// QualifiedNames returns the objects this declaration creates: schema names
// for schema kind, the qualified type name for enum kind, and one
// schema-qualified table name per target schema for table kind.
func (d *Declaration) QualifiedNames() []string {
	switch d.kind {
	case KindSchema:
		out := make([]string, len(d.meta.SchemaNames))
		copy(out, d.meta.SchemaNames)
		return out
	case KindEnum:
		return []string{d.enum.TypeName()}
	default:
		out := make([]string, len(d.meta.SchemaNames))
		for i, s := range d.meta.SchemaNames {
			out[i] = s + "." + d.meta.TableName
		}
		return out
	}
}

// Rendered pairs one DDL statement with the qualified name of the object
// it targets.
type Rendered struct {
	Target string
	SQL    string
}

// Render produces the declaration's DDL, one element per statement, each
// stamped with its own target so multi-schema declarations stay
// attributable. Rendering is deterministic: the same declaration always
// yields identical text.
func (d *Declaration) Render() []Rendered {
	switch d.kind {
	case KindSchema:
		out := make([]Rendered, 0, len(d.meta.SchemaNames))
		for _, name := range d.meta.SchemaNames {
			out = append(out, Rendered{Target: name, SQL: d.schemaStatement(name)})
		}
		return out
	case KindEnum:
		return []Rendered{{Target: d.enum.TypeName(), SQL: d.enumStatement()}}
	default:
		return d.tableRendered()
	}
}

// Statements renders the declaration into bare DDL text.
func (d *Declaration) Statements() []string {
	rendered := d.Render()
	out := make([]string, len(rendered))
	for i, r := range rendered {
		out[i] = r.SQL
	}
	return out
}

func (d *Declaration) schemaStatement(name string) string {
	if d.meta.Authorization != "" {
		return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION %s;",
			name, d.meta.Authorization)
	}
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", name)
}

func (d *Declaration) enumStatement() string {
	stored := d.enum.StoredValues()
	quoted := make([]string, len(stored))
	for i, v := range stored {
		quoted[i] = "'" + v + "'"
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s);", d.enum.TypeName(), strings.Join(quoted, ", "))
}

func (d *Declaration) tableRendered() []Rendered {
	var out []Rendered
	for _, schema := range d.meta.SchemaNames {
		target := schema + "." + d.meta.TableName
		out = append(out, Rendered{Target: target, SQL: d.createTable(schema)})
		if d.meta.InitIndex {
			for _, sql := range d.indexStatements(schema) {
				out = append(out, Rendered{Target: target, SQL: sql})
			}
		}
	}
	// Post-create statements are free-form; attribute them to the first
	// target.
	for _, sql := range d.meta.PostCreate {
		out = append(out, Rendered{Target: d.QualifiedNames()[0], SQL: sql})
	}
	return out
}

// columnList renders the parenthesized body of the CREATE TABLE statement:
// field definitions, UNIQUE tuples, then the free trailing fragment.
func (d *Declaration) columnList() string {
	parts := make([]string, 0, len(d.fields)+len(d.meta.Unique)+1)
	for _, f := range d.fields {
		parts = append(parts, f.Spec.Render(f.Name))
	}
	for _, tuple := range d.meta.Unique {
		parts = append(parts, "UNIQUE("+strings.Join(tuple, ", ")+")")
	}
	if d.meta.OtherConditions != "" {
		parts = append(parts, d.meta.OtherConditions)
	}
	return strings.Join(parts, ", ")
}

func (d *Declaration) createTable(schema string) string {
	target := schema + "." + d.meta.TableName
	body := d.columnList()

	if d.meta.ConditionalInit && d.ifInit != nil {
		return d.guardedCreate(schema, target, body)
	}

	if d.meta.ConditionalInit {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", target, body)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", target, body)
}

// guardedCreate wraps the create in an existence probe so the seed SQL
// runs exactly once, on first creation.
func (d *Declaration) guardedCreate(schema, target, body string) string {
	ifSQL := d.ifInit(schema, d.meta.TableName)

	var elseClause string
	if d.elseInit != nil {
		if elseSQL := d.elseInit(schema, d.meta.TableName); elseSQL != "" {
			elseClause = " ELSE " + elseSQL
		}
	}

	return fmt.Sprintf(
		"DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = '%s' AND table_name = '%s') THEN CREATE TABLE %s (%s); %s%s END IF; END$$;",
		schema, d.meta.TableName, target, body, ifSQL, elseClause)
}

func (d *Declaration) indexStatements(schema string) []string {
	var out []string
	for _, f := range d.fields {
		if f.Spec.IndexType == "" {
			continue
		}
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s ON %s.%s USING %s (%s);",
			f.Name, schema, d.meta.TableName, strings.ToUpper(f.Spec.IndexType), f.Name))
	}
	return out
}
