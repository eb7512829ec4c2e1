// Package declfile loads schema, enum, and table declarations from a YAML
// file and resolves them into model declarations.
package declfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linga/declsql/internal/enumset"
	"github.com/linga/declsql/internal/field"
	"github.com/linga/declsql/internal/model"
)

// ErrUnknownEnum marks a field referencing an enum type the file never
// declares.
var ErrUnknownEnum = errors.New("unknown enum type")

// Bundle is a parsed declaration file: the enum sets by qualified type
// name, and the declarations in schemas, enums, tables order.
type Bundle struct {
	Sets         map[string]*enumset.Set
	Declarations []*model.Declaration
}

// Tables returns only the table declarations, for handing to a data
// gateway.
func (b *Bundle) Tables() []*model.Declaration {
	var out []*model.Declaration
	for _, d := range b.Declarations {
		if d.Kind() == model.KindTable {
			out = append(out, d)
		}
	}
	return out
}

type document struct {
	Authorization string       `yaml:"authorization,omitempty"`
	Schemas       []schemaDecl `yaml:"schemas"`
	Enums         []enumDecl   `yaml:"enums"`
	Tables        []tableDecl  `yaml:"tables"`
}

type schemaDecl struct {
	Names         []string `yaml:"names"`
	Authorization string   `yaml:"authorization,omitempty"`
	Initialize    bool     `yaml:"initialize,omitempty"`
}

type enumDecl struct {
	Schema     string       `yaml:"schema,omitempty"`
	Name       string       `yaml:"name"`
	Members    []memberDecl `yaml:"members"`
	Initialize bool         `yaml:"initialize,omitempty"`
}

type memberDecl struct {
	Label   string `yaml:"label"`
	Value   string `yaml:"value"`
	Mapping string `yaml:"mapping,omitempty"`
}

type tableDecl struct {
	Schemas         []string    `yaml:"schemas,omitempty"`
	Name            string      `yaml:"name"`
	Initialize      bool        `yaml:"initialize,omitempty"`
	ConditionalInit bool        `yaml:"conditional_init,omitempty"`
	IndexFields     bool        `yaml:"index_fields,omitempty"`
	Fields          []fieldDecl `yaml:"fields"`
	Unique          [][]string  `yaml:"unique,omitempty"`
	OtherConditions string      `yaml:"other_conditions,omitempty"`
	PostCreate      []string    `yaml:"post_create,omitempty"`
	SeedSQL         string      `yaml:"seed_sql,omitempty"`
	SeedElseSQL     string      `yaml:"seed_else_sql,omitempty"`
}

type fieldDecl struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type,omitempty"`
	Enum        string `yaml:"enum,omitempty"`
	PrimaryKey  bool   `yaml:"primary_key,omitempty"`
	Unique      bool   `yaml:"unique,omitempty"`
	Serial      bool   `yaml:"serial,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Default     string `yaml:"default,omitempty"`
	Check       string `yaml:"check,omitempty"`
	GeneratedAs string `yaml:"generated_as,omitempty"`
	Index       string `yaml:"index,omitempty"`
	SQL         string `yaml:"sql,omitempty"`
	Full        string `yaml:"full,omitempty"`
}

// Load reads and parses the declaration file at path.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read declarations: %w", err)
	}
	return Parse(data)
}

// Parse builds a Bundle from YAML text. Enums are resolved before tables,
// so a field may reference any enum declared anywhere in the file.
func Parse(data []byte) (*Bundle, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse declarations: %w", err)
	}

	b := &Bundle{Sets: make(map[string]*enumset.Set)}

	for _, s := range doc.Schemas {
		owner := s.Authorization
		if owner == "" {
			owner = doc.Authorization
		}
		decl, err := model.NewSchema(model.Meta{
			Initialize:    s.Initialize,
			SchemaNames:   s.Names,
			Authorization: owner,
		})
		if err != nil {
			return nil, err
		}
		b.Declarations = append(b.Declarations, decl)
	}

	for _, e := range doc.Enums {
		defs := make([]enumset.MemberDef, len(e.Members))
		for i, m := range e.Members {
			defs[i] = enumset.MemberDef{Label: m.Label, Value: m.Value, Mapping: m.Mapping}
		}
		schema := e.Schema
		if schema == "" {
			schema = "public"
		}
		set, err := enumset.NewInSchema(schema, e.Name, defs...)
		if err != nil {
			return nil, err
		}
		decl, err := model.NewEnum(set, model.Meta{Initialize: e.Initialize})
		if err != nil {
			return nil, err
		}
		b.Sets[set.TypeName()] = set
		b.Declarations = append(b.Declarations, decl)
	}

	for _, t := range doc.Tables {
		decl, err := b.table(t)
		if err != nil {
			return nil, err
		}
		b.Declarations = append(b.Declarations, decl)
	}

	return b, nil
}

func (b *Bundle) table(t tableDecl) (*model.Declaration, error) {
	fields := make([]field.Def, len(t.Fields))
	for i, f := range t.Fields {
		spec := field.Spec{
			Type:        f.Type,
			PrimaryKey:  f.PrimaryKey,
			Unique:      f.Unique,
			Serial:      f.Serial,
			Required:    f.Required,
			Default:     f.Default,
			Check:       f.Check,
			GeneratedAs: f.GeneratedAs,
			IndexType:   f.Index,
			SQL:         f.SQL,
			Full:        f.Full,
		}
		if f.Enum != "" {
			set, ok := b.Sets[qualify(f.Enum)]
			if !ok {
				return nil, fmt.Errorf("table %q field %q: %w: %q",
					t.Name, f.Name, ErrUnknownEnum, f.Enum)
			}
			spec.Enum = set
		}
		fields[i] = field.Def{Name: f.Name, Spec: spec}
	}

	decl, err := model.NewTable(model.Meta{
		Initialize:      t.Initialize,
		ConditionalInit: t.ConditionalInit,
		InitIndex:       t.IndexFields,
		SchemaNames:     t.Schemas,
		TableName:       t.Name,
		Unique:          t.Unique,
		OtherConditions: t.OtherConditions,
		PostCreate:      t.PostCreate,
	}, fields)
	if err != nil {
		return nil, err
	}

	if t.SeedSQL != "" {
		var elseHook model.SeedFunc
		if t.SeedElseSQL != "" {
			elseHook = seedHook(t.SeedElseSQL)
		}
		if err := decl.SetSeedHooks(seedHook(t.SeedSQL), elseHook); err != nil {
			return nil, err
		}
	}
	return decl, nil
}

// seedHook wraps raw seed SQL, expanding {schema} and {table} to the
// names the table is being created under.
func seedHook(sql string) model.SeedFunc {
	return func(schema, table string) string {
		r := strings.NewReplacer("{schema}", schema, "{table}", table)
		return strings.TrimSpace(r.Replace(sql))
	}
}

func qualify(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return "public." + name
}
