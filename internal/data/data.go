// Package data is the row-level gateway in front of the executor. Every
// write that touches an enum-typed column is validated against the owning
// set before any SQL is issued, and every read restores stored enum values
// back into set members.
package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/linga/declsql/internal/enumset"
	"github.com/linga/declsql/internal/executor"
	"github.com/linga/declsql/internal/model"
)

var (
	// ErrValidation marks a write rejected before reaching the executor.
	ErrValidation = errors.New("enum validation failed")

	// ErrIntegrity marks a stored value that no longer maps to any member
	// of its column's set.
	ErrIntegrity = errors.New("stored enum value unknown")

	// ErrUnknownTable marks an operation against a table the gateway has
	// no declaration for.
	ErrUnknownTable = errors.New("unknown table")
)

// Result is the outcome of one data operation.
type Result struct {
	Indicator bool
	Message   string

	Header []string // column names, reads only
	Data   [][]any  // raw rows as the executor returned them
	Count  int64    // affected rows, writes only

	// FormattedData holds each row as a column→value map, with enum
	// columns restored to their set members.
	FormattedData []map[string]any
}

func failure(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

func success(count int64) Result {
	return Result{Indicator: true, Message: "operation succeeded", Count: count}
}

// Condition is one WHERE clause term: the column plus its operator, and
// the parameter value. The clause is emitted verbatim before the
// placeholder, e.g. {"roi_id=", 1} or {"camera_ip LIKE", "192.168%"}.
type Condition struct {
	Clause string
	Value  any
}

// GetOptions refine a Get call. The zero value selects every column with
// no conditions, no ordering, and no limit.
type GetOptions struct {
	Columns    []string
	Conditions []Condition
	OrderBy    []string // e.g. "roi_id DESC"
	Limit      int      // <= 0 means no limit
}

// AddOptions refine an Add call.
type AddOptions struct {
	// Columns restricts the insert to the given columns. When empty, all
	// declared fields except a serial primary key are used.
	Columns []string

	// ToNull inserts NULL for columns missing from a row instead of
	// failing.
	ToNull bool
}

// Gateway binds an executor to table declarations.
type Gateway struct {
	exec  executor.Executor
	decls map[string]*model.Declaration
}

// New builds a gateway over the table declarations in decls; other kinds
// are ignored. Tables are addressable by their qualified names and, when
// unambiguous, their bare name.
func New(exec executor.Executor, decls ...*model.Declaration) *Gateway {
	g := &Gateway{
		exec:  exec,
		decls: make(map[string]*model.Declaration),
	}
	ambiguous := make(map[string]bool)
	for _, d := range decls {
		if d.Kind() != model.KindTable {
			continue
		}
		for _, name := range d.QualifiedNames() {
			g.decls[name] = d
		}
		bare := d.Meta().TableName
		if _, taken := g.decls[bare]; taken || ambiguous[bare] {
			ambiguous[bare] = true
			delete(g.decls, bare)
			continue
		}
		g.decls[bare] = d
	}
	return g
}

func (g *Gateway) declaration(table string) (*model.Declaration, error) {
	d, ok := g.decls[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Write path
// ---------------------------------------------------------------------------

// Add validates and inserts rows. The whole batch is checked before any
// SQL is issued: the first enum value that is not a member of its column's
// set aborts the call with Indicator=false and nothing reaches the
// executor.
func (g *Gateway) Add(ctx context.Context, table string, rows []map[string]any, opts AddOptions) Result {
	if len(rows) == 0 {
		return Result{Indicator: true, Message: "nothing to add"}
	}
	decl, err := g.declaration(table)
	if err != nil {
		return failure("%v", err)
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = insertColumns(decl)
	}
	for _, col := range columns {
		if _, ok := decl.Field(col); !ok {
			return failure("table %s: unknown column %q", table, col)
		}
	}

	argSets := make([][]any, 0, len(rows))
	for _, row := range rows {
		args := make([]any, 0, len(columns))
		for _, col := range columns {
			v, present := row[col]
			if !present {
				if opts.ToNull {
					args = append(args, nil)
					continue
				}
				return failure("table %s: row is missing column %q", table, col)
			}
			arg, err := g.outbound(decl, table, col, v)
			if err != nil {
				return failure("%v", err)
			}
			args = append(args, arg)
		}
		argSets = append(argSets, args)
	}

	sql := insertSQL(g.exec, table, columns)
	count, err := g.exec.ExecMany(ctx, sql, argSets)
	if err != nil {
		return failure("table %s: %v", table, err)
	}
	return success(count)
}

// Update edits rows matched by the reference columns. Every edit must
// contain all reference columns; enum-typed values are validated exactly
// as in Add.
func (g *Gateway) Update(ctx context.Context, table string, edits []map[string]any, refCols []string) Result {
	if len(edits) == 0 {
		return Result{Indicator: true, Message: "nothing to update"}
	}
	if len(refCols) == 0 {
		return failure("table %s: no reference columns", table)
	}
	decl, err := g.declaration(table)
	if err != nil {
		return failure("%v", err)
	}

	setCols := presentColumns(decl, edits[0], refCols)
	if len(setCols) == 0 {
		return failure("table %s: edit contains no declared columns", table)
	}

	argSets := make([][]any, 0, len(edits))
	for _, edit := range edits {
		args := make([]any, 0, len(setCols)+len(refCols))
		for _, col := range setCols {
			v, present := edit[col]
			if !present {
				return failure("table %s: edit is missing column %q", table, col)
			}
			arg, err := g.outbound(decl, table, col, v)
			if err != nil {
				return failure("%v", err)
			}
			args = append(args, arg)
		}
		for _, col := range refCols {
			v, present := edit[col]
			if !present {
				return failure("table %s: edit is missing reference column %q", table, col)
			}
			arg, err := g.outbound(decl, table, col, v)
			if err != nil {
				return failure("%v", err)
			}
			args = append(args, arg)
		}
		argSets = append(argSets, args)
	}

	sql := updateSQL(g.exec, table, setCols, refCols)
	count, err := g.exec.ExecMany(ctx, sql, argSets)
	if err != nil {
		return failure("table %s: %v", table, err)
	}
	return success(count)
}

// Delete removes rows matched by the reference columns of each filter.
func (g *Gateway) Delete(ctx context.Context, table string, filters []map[string]any, refCols []string) Result {
	if len(filters) == 0 {
		return Result{Indicator: true, Message: "nothing to delete"}
	}
	if len(refCols) == 0 {
		return failure("table %s: no reference columns", table)
	}
	decl, err := g.declaration(table)
	if err != nil {
		return failure("%v", err)
	}

	argSets := make([][]any, 0, len(filters))
	for _, filter := range filters {
		args := make([]any, 0, len(refCols))
		for _, col := range refCols {
			v, present := filter[col]
			if !present {
				return failure("table %s: filter is missing reference column %q", table, col)
			}
			arg, err := g.outbound(decl, table, col, v)
			if err != nil {
				return failure("%v", err)
			}
			args = append(args, arg)
		}
		argSets = append(argSets, args)
	}

	sql := deleteSQL(g.exec, table, refCols)
	count, err := g.exec.ExecMany(ctx, sql, argSets)
	if err != nil {
		return failure("table %s: %v", table, err)
	}
	return success(count)
}

// outbound converts one value for storage. Enum-typed columns are checked
// against the owning set and substituted with their stored representation;
// other columns pass through unchanged.
func (g *Gateway) outbound(decl *model.Declaration, table, col string, v any) (any, error) {
	spec, ok := decl.Field(col)
	if !ok {
		return nil, fmt.Errorf("table %s: unknown column %q", table, col)
	}
	if spec.Enum == nil {
		return v, nil
	}
	set := spec.Enum

	if m, ok := v.(enumset.Member); ok {
		if !set.Contains(m) {
			return nil, fmt.Errorf("%w: table %s column %s: member of %s is not a member of %s",
				ErrValidation, table, col, m.Namespace(), set.TypeName())
		}
		return m.Stored(), nil
	}

	text := valueText(v)
	m, ok := set.ByValue(text)
	if !ok {
		return nil, fmt.Errorf("%w: table %s column %s: value %q is not a member of %s%s",
			ErrValidation, table, col, text, set.TypeName(), suggest(text, set))
	}
	return m.Stored(), nil
}

// ---------------------------------------------------------------------------
// Read path
// ---------------------------------------------------------------------------

// Get selects rows and restores enum columns. Raw rows land in Data; in
// FormattedData every enum-typed column carries the matching set member
// instead of the stored value. A stored value with no member is a
// data-integrity failure and is reported, never passed through.
func (g *Gateway) Get(ctx context.Context, table string, opts GetOptions) Result {
	decl, err := g.declaration(table)
	if err != nil {
		return failure("%v", err)
	}

	sql, args := selectSQL(g.exec, table, opts)
	rows, err := g.exec.Query(ctx, sql, args...)
	if err != nil {
		return failure("table %s: %v", table, err)
	}

	formatted := make([]map[string]any, 0, len(rows.Values))
	for _, raw := range rows.Values {
		rowMap := make(map[string]any, len(rows.Columns))
		for i, col := range rows.Columns {
			if i >= len(raw) {
				break
			}
			restored, err := g.inbound(decl, table, col, raw[i])
			if err != nil {
				res := failure("%v", err)
				res.Header = rows.Columns
				res.Data = rows.Values
				return res
			}
			rowMap[col] = restored
		}
		formatted = append(formatted, rowMap)
	}

	return Result{
		Indicator:     true,
		Message:       "operation succeeded",
		Header:        rows.Columns,
		Data:          rows.Values,
		FormattedData: formatted,
	}
}

// inbound restores one stored value. It is the inverse of outbound: an
// enum column's stored text is replaced with the owning set's member.
func (g *Gateway) inbound(decl *model.Declaration, table, col string, v any) (any, error) {
	spec, ok := decl.Field(col)
	if !ok || spec.Enum == nil {
		return v, nil
	}
	if v == nil {
		return nil, nil
	}
	set := spec.Enum

	text := valueText(v)
	m, ok := set.ByStored(text)
	if !ok {
		return nil, fmt.Errorf("%w: table %s column %s: stored value %q has no member in %s",
			ErrIntegrity, table, col, text, set.TypeName())
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// SQL construction
// ---------------------------------------------------------------------------

func insertColumns(decl *model.Declaration) []string {
	fields := decl.Fields()
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Spec.Serial && f.Spec.PrimaryKey {
			continue
		}
		out = append(out, f.Name)
	}
	return out
}

// presentColumns returns the declared fields present in the row, minus
// the reference columns, in declaration order so generated SQL is
// deterministic.
func presentColumns(decl *model.Declaration, row map[string]any, refCols []string) []string {
	skip := make(map[string]bool, len(refCols))
	for _, c := range refCols {
		skip[c] = true
	}
	var out []string
	for _, f := range decl.Fields() {
		if skip[f.Name] {
			continue
		}
		if _, ok := row[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	return out
}

func insertSQL(exec executor.Executor, table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = exec.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

func updateSQL(exec executor.Executor, table string, setCols, refCols []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", table)
	n := 0
	for i, col := range setCols {
		if i > 0 {
			b.WriteString(", ")
		}
		n++
		fmt.Fprintf(&b, "%s=%s", col, exec.Placeholder(n))
	}
	b.WriteString(" WHERE ")
	for i, col := range refCols {
		if i > 0 {
			b.WriteString(" AND ")
		}
		n++
		fmt.Fprintf(&b, "%s=%s", col, exec.Placeholder(n))
	}
	b.WriteString(";")
	return b.String()
}

func deleteSQL(exec executor.Executor, table string, refCols []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s WHERE ", table)
	for i, col := range refCols {
		if i > 0 {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s=%s", col, exec.Placeholder(i+1))
	}
	b.WriteString(";")
	return b.String()
}

func selectSQL(exec executor.Executor, table string, opts GetOptions) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(opts.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(opts.Columns, ", "))
	}
	fmt.Fprintf(&b, " FROM %s", table)

	var args []any
	if len(opts.Conditions) > 0 {
		b.WriteString(" WHERE ")
		for i, c := range opts.Conditions {
			if i > 0 {
				b.WriteString(" AND ")
			}
			fmt.Fprintf(&b, "%s %s", c.Clause, exec.Placeholder(i+1))
			args = append(args, c.Value)
		}
	}
	if len(opts.OrderBy) > 0 {
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(opts.OrderBy, ", "))
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	}
	b.WriteString(";")
	return b.String(), args
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// valueText renders a candidate value the way stored enum text is
// compared: strings as-is, everything else through fmt.
func valueText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// suggest returns a hint naming the closest declared value, when one is
// anywhere near the rejected input.
func suggest(input string, set *enumset.Set) string {
	candidates := append(set.Values(), set.Labels()...)
	matches := fuzzy.Find(input, candidates)
	if len(matches) == 0 {
		return ""
	}
	return fmt.Sprintf(" (closest match %q)", matches[0].Str)
}
