// Package ddl sequences DDL emission across declarations and applies it
// through an executor.
//
// Ordering is the point: schemas come first, then every enum type, then the
// tables — so a table never reaches the executor before an enum type it
// references.
package ddl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linga/declsql/internal/changelog"
	"github.com/linga/declsql/internal/executor"
	"github.com/linga/declsql/internal/model"
)

var (
	// ErrExecution wraps a failure reported by the executor, annotated
	// with the target object so the failing declaration is identifiable.
	ErrExecution = errors.New("ddl execution failed")

	// ErrUnresolvedEnum marks a table whose enum reference has no matching
	// enum declaration in the batch.
	ErrUnresolvedEnum = errors.New("enum type not declared in batch")
)

// Statement is one planned DDL statement with its provenance.
type Statement struct {
	SQL    string
	Target string // qualified name of the object being created
	Kind   model.Kind
}

// Batch aggregates declarations and renders them in dependency order.
type Batch struct {
	decls        []*model.Declaration
	log          *changelog.Log
	defaultOwner string
}

// NewBatch creates a batch over the given declarations.
func NewBatch(decls ...*model.Declaration) *Batch {
	b := &Batch{}
	b.Add(decls...)
	return b
}

// Add appends declarations to the batch.
func (b *Batch) Add(decls ...*model.Declaration) {
	b.decls = append(b.decls, decls...)
}

// Clear empties the batch.
func (b *Batch) Clear() {
	b.decls = nil
}

// Len returns the number of declarations in the batch.
func (b *Batch) Len() int { return len(b.decls) }

// SetChangelog makes Apply record every statement in the given log. A nil
// log disables recording.
func (b *Batch) SetChangelog(log *changelog.Log) {
	b.log = log
}

// SetDefaultAuthorization assigns an owner to schema declarations that do
// not carry one. Declarations with an explicit owner keep it.
func (b *Batch) SetDefaultAuthorization(owner string) {
	b.defaultOwner = owner
}

// Plan renders the batch into an ordered statement list: schema kinds
// first, then enum kinds, then tables. A table referencing an enum set
// with no matching enum declaration in the batch is a configuration error.
func (b *Batch) Plan() ([]Statement, error) {
	declaredEnums := make(map[string]bool)
	for _, d := range b.decls {
		if d.Kind() == model.KindEnum {
			declaredEnums[d.Enum().TypeName()] = true
		}
	}
	for _, d := range b.decls {
		if d.Kind() != model.KindTable {
			continue
		}
		for _, set := range d.EnumRefs() {
			if !declaredEnums[set.TypeName()] {
				return nil, fmt.Errorf("table %s: %w: %s",
					d.QualifiedNames()[0], ErrUnresolvedEnum, set.TypeName())
			}
		}
	}

	var plan []Statement
	for _, kind := range []model.Kind{model.KindSchema, model.KindEnum, model.KindTable} {
		for _, d := range b.decls {
			if d.Kind() != kind {
				continue
			}
			if kind == model.KindSchema && b.defaultOwner != "" {
				d.SetAuthorization(b.defaultOwner)
			}
			for _, r := range d.Render() {
				plan = append(plan, Statement{SQL: r.SQL, Target: r.Target, Kind: kind})
			}
		}
	}
	return plan, nil
}

// Apply plans the batch and sends each statement to the executor in order,
// stopping at the first failure. It returns how many statements succeeded.
// Every attempt is recorded in the changelog, failures included.
func (b *Batch) Apply(ctx context.Context, exec executor.Executor) (int, error) {
	plan, err := b.Plan()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, stmt := range plan {
		start := time.Now()
		_, execErr := exec.Exec(ctx, stmt.SQL)

		logErr := b.log.Record(changelog.Entry{
			Statement:  stmt.SQL,
			Target:     stmt.Target,
			Kind:       stmt.Kind.String(),
			Executor:   exec.Name(),
			DurationMS: time.Since(start).Milliseconds(),
			IsError:    execErr != nil,
		})
		if logErr != nil {
			logErr = fmt.Errorf("record %s: %w", stmt.Target, logErr)
		}

		// The execution failure is the primary error; a record failure
		// rides along instead of replacing it.
		if execErr != nil {
			execErr = fmt.Errorf("%w: %s %s: %v", ErrExecution, stmt.Kind, stmt.Target, execErr)
			return applied, errors.Join(execErr, logErr)
		}
		if logErr != nil {
			return applied, logErr
		}
		applied++
	}
	return applied, nil
}
