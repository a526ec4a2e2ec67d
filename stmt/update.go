package stmt

import (
	"fmt"
	"strings"

	"github.com/cqlforge/cqlforge/cql"
	"github.com/cqlforge/cqlforge/meta"
)

// Update compiles UPDATE statements for one table. Assigning a primary-key
// column goes through Replace: the store forbids in-place key mutation, so a
// key replacement compiles to DELETE (old key) followed by a full INSERT of
// the current state. A plain Set on a key column fails at compile time
// rather than guessing which row to delete.
type Update struct {
	core
	ctx   *Context
	table *meta.Table

	assignments []assignment
	keyed       map[string]any // explicit key predicate values
	replaced    map[string]keySwap
	badKeySet   []string

	ifExists  bool
	condition string
	condErr   error
	ttl       int
	hasTTL    bool
	timestamp int64
	hasTS     bool
}

type assignment struct {
	column  string
	value   any
	delta   int64 // counter increment; valid when counter is true
	counter bool
}

type keySwap struct{ old, new any }

// NewUpdate creates an update builder for the entity's primary table.
func NewUpdate(ctx *Context) *Update {
	return NewUpdateOf(ctx, ctx.Entity.PrimaryTable())
}

// NewUpdateOf creates an update builder for a specific table.
func NewUpdateOf(ctx *Context, table *meta.Table) *Update {
	u := &Update{
		ctx:      ctx,
		table:    table,
		keyed:    make(map[string]any),
		replaced: make(map[string]keySwap),
	}
	u.bump()
	return u
}

// Set assigns a non-key column. Assigning a key column this way is recorded
// and rejected at Compile with ErrKeyChangeWithoutOld.
func (b *Update) Set(column string, value any) *Update {
	if f := b.table.Column(column); f != nil && f.Key != meta.KeyNone {
		b.badKeySet = append(b.badKeySet, column)
		b.bump()
		return b
	}
	b.assignments = append(b.assignments, assignment{column: column, value: value})
	b.bump()
	return b
}

// Replace reassigns a primary-key column, supplying the old value so the
// compiler can delete the old row and reinsert the full current state.
func (b *Update) Replace(column string, oldValue, newValue any) *Update {
	b.replaced[column] = keySwap{old: oldValue, new: newValue}
	b.bump()
	return b
}

// Key binds an explicit primary-key predicate value, overriding the
// instance-bound value.
func (b *Update) Key(column string, value any) *Update {
	b.keyed[column] = value
	b.bump()
	return b
}

// Add increments a counter column.
func (b *Update) Add(column string, delta int64) *Update {
	b.assignments = append(b.assignments, assignment{column: column, delta: delta, counter: true})
	b.bump()
	return b
}

// IfExists adds the optimistic existence condition.
func (b *Update) IfExists() *Update {
	b.ifExists = true
	b.bump()
	return b
}

// If adds a custom optimistic condition, e.g. If("version", "=", 3). A value
// with no literal form is reported by the next Compile.
func (b *Update) If(column, op string, value any) *Update {
	f := b.table.Column(column)
	var spec *meta.TypeSpec
	if f != nil {
		spec = f.Type
	}
	lit, err := cql.FormatTyped(value, spec)
	if err != nil {
		b.condErr = fmt.Errorf("condition on column %s: %w", column, err)
	} else {
		b.condition = fmt.Sprintf("%s %s %s", cql.Ident(column), op, lit)
	}
	b.bump()
	return b
}

// UsingTTL sets the write's time-to-live in seconds.
func (b *Update) UsingTTL(seconds int) *Update {
	b.ttl = seconds
	b.hasTTL = true
	b.bump()
	return b
}

// UsingTimestamp sets the write's timestamp in microseconds.
func (b *Update) UsingTimestamp(micros int64) *Update {
	b.timestamp = micros
	b.hasTS = true
	b.bump()
	return b
}

// BindKeyspaceKey binds a keyspace key through the builder.
func (b *Update) BindKeyspaceKey(name, value string) *Update {
	b.ctx.BindKeyspaceKey(name, value)
	b.bump()
	return b
}

// WithOption forwards an opaque execution option to the session.
func (b *Update) WithOption(key string, value any) *Update {
	b.setOption(key, value)
	return b
}

// Compile returns the wire text, memoized by the version stamp.
func (b *Update) Compile() ([]string, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return nil, err
	}
	return c.Statements, nil
}

// Count returns the elementary-statement count.
func (b *Update) Count() (int, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

func (b *Update) compile() ([]string, error) {
	if b.table == nil {
		return nil, fmt.Errorf("entity %s: no primary table to update", b.ctx.Entity.Name)
	}
	if len(b.badKeySet) > 0 {
		return nil, fmt.Errorf("column(s) %s of table %s: %w",
			strings.Join(b.badKeySet, ", "), b.table.Name, ErrKeyChangeWithoutOld)
	}
	if b.condErr != nil {
		return nil, b.condErr
	}
	ks, err := b.ctx.KeyspaceName()
	if err != nil {
		return nil, err
	}

	keys, err := b.resolveKeys(true)
	if err != nil {
		return nil, err
	}

	if b.keyChanged() {
		return b.compileReassignment(ks, keys)
	}

	expansions, missing, err := expandMultiKeys(b.table.MultiKeys, keys)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &MissingKeyError{Entity: b.ctx.Entity.Name, Table: b.table.Name, Columns: missing}
	}

	setClause, err := b.renderAssignments()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(expansions))
	for _, exp := range expansions {
		where, err := renderWhere(b.table, keys, exp)
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		sb.WriteString("UPDATE ")
		sb.WriteString(cql.Qualified(ks, b.table.Name))
		writeUsing(&sb, b.hasTTL, b.ttl, b.hasTS, b.timestamp)
		sb.WriteString(" SET ")
		sb.WriteString(setClause)
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		if b.ifExists {
			sb.WriteString(" IF EXISTS")
		} else if b.condition != "" {
			sb.WriteString(" IF ")
			sb.WriteString(b.condition)
		}
		out = append(out, sb.String())
	}
	return out, nil
}

// keyChanged reports whether any Replace actually changes a key value.
func (b *Update) keyChanged() bool {
	for _, swap := range b.replaced {
		if !equalValue(swap.old, swap.new) {
			return true
		}
	}
	return false
}

// compileReassignment synthesizes DELETE (old key) + INSERT (current full
// state) for a primary-key replacement.
func (b *Update) compileReassignment(ks string, keys map[string]any) ([]string, error) {
	oldKeys := make(map[string]any, len(keys))
	newKeys := make(map[string]any, len(keys))
	for k, v := range keys {
		oldKeys[k], newKeys[k] = v, v
	}
	for col, swap := range b.replaced {
		oldKeys[col] = swap.old
		newKeys[col] = swap.new
	}

	del := NewDeleteFrom(b.ctx, b.table)
	for col, v := range oldKeys {
		del.Key(col, v)
	}
	delText, err := del.Compile()
	if err != nil {
		return nil, err
	}

	ins := NewInsertInto(b.ctx, b.table)
	for col, v := range newKeys {
		ins.Set(col, v)
	}
	for _, a := range b.assignments {
		if a.counter {
			return nil, fmt.Errorf("table %s: counter update cannot ride a key reassignment", b.table.Name)
		}
		ins.Set(a.column, a.value)
	}
	if b.hasTTL {
		ins.UsingTTL(b.ttl)
	}
	if b.hasTS {
		ins.UsingTimestamp(b.timestamp)
	}
	insText, err := ins.Compile()
	if err != nil {
		return nil, err
	}

	return append(delText, insText...), nil
}

// resolveKeys collects primary-key values from explicit Key calls and the
// instance, failing with the proper key error when one is missing.
func (b *Update) resolveKeys(includeClustering bool) (map[string]any, error) {
	return resolveTableKeys(b.ctx, b.table, b.keyed, includeClustering)
}

func (b *Update) renderAssignments() (string, error) {
	if len(b.assignments) == 0 {
		return "", fmt.Errorf("table %s: update with no assignments", b.table.Name)
	}
	parts := make([]string, 0, len(b.assignments))
	for _, a := range b.assignments {
		f := b.table.Column(a.column)
		if f == nil {
			return "", fmt.Errorf("table %s has no column %s", b.table.Name, a.column)
		}
		if a.counter {
			if !f.Counter {
				return "", fmt.Errorf("column %s is not a counter", a.column)
			}
			op := "+"
			delta := a.delta
			if delta < 0 {
				op, delta = "-", -delta
			}
			id := cql.Ident(f.Name)
			parts = append(parts, fmt.Sprintf("%s = %s %s %d", id, id, op, delta))
			continue
		}
		lit, err := cql.FormatTyped(a.value, f.Type)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", a.column, err)
		}
		parts = append(parts, cql.Ident(f.Name)+" = "+lit)
		if f.CaseInsensitive {
			s, isStr := a.value.(string)
			if !isStr {
				return "", fmt.Errorf("case-insensitive column %s holds %T, not a string", f.Name, a.value)
			}
			parts = append(parts, cql.Ident(f.ShadowName())+" = '"+
				strings.ReplaceAll(strings.ToLower(s), "'", "''")+"'")
		}
	}
	return strings.Join(parts, ", "), nil
}

// resolveTableKeys collects the primary-key values for a table from explicit
// bindings and the context instance.
func resolveTableKeys(ctx *Context, table *meta.Table, explicit map[string]any, includeClustering bool) (map[string]any, error) {
	keys := make(map[string]any)
	var missing []string
	fields := append([]*meta.Field(nil), table.PartitionKeys...)
	if includeClustering {
		fields = append(fields, table.ClusteringKeys...)
	}
	instance := ctx.Instance()
	for _, f := range fields {
		if v, ok := explicit[f.Name]; ok && v != nil {
			keys[f.Name] = v
			continue
		}
		if v, ok := f.Value(instance); ok && v != nil {
			keys[f.Name] = v
			continue
		}
		if f.OptionalKey {
			return nil, &EmptyOptionalKeyError{Entity: ctx.Entity.Name, Table: table.Name, Column: f.Name}
		}
		missing = append(missing, f.Name)
	}
	if len(missing) > 0 {
		return nil, &MissingKeyError{Entity: ctx.Entity.Name, Table: table.Name, Columns: missing}
	}
	return keys, nil
}

// renderWhere renders the primary-key predicate, substituting shadow names
// for multi-key and case-insensitive columns.
func renderWhere(table *meta.Table, keys map[string]any, exp expansion) (string, error) {
	var parts []string
	fields := append(append([]*meta.Field(nil), table.PartitionKeys...), table.ClusteringKeys...)
	for _, f := range fields {
		v, ok := keys[f.Name]
		if f.MultiKey {
			if ev, eok := exp[f.Name]; eok {
				v, ok = ev, true
			}
		}
		if !ok {
			continue
		}
		name := f.Name
		spec := f.Type
		switch {
		case f.MultiKey:
			name = f.PhysicalName()
			spec = f.PhysicalType()
		case f.CaseInsensitive:
			s, isStr := v.(string)
			if !isStr {
				return "", fmt.Errorf("case-insensitive key %s holds %T, not a string", f.Name, v)
			}
			name = f.ShadowName()
			v = strings.ToLower(s)
		}
		lit, err := cql.FormatTyped(v, spec)
		if err != nil {
			return "", fmt.Errorf("key column %s: %w", f.Name, err)
		}
		parts = append(parts, cql.Ident(name)+" = "+lit)
	}
	return strings.Join(parts, " AND "), nil
}

func equalValue(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
