package stmt

import (
	"fmt"
	"strings"

	"github.com/cqlforge/cqlforge/cql"
	"github.com/cqlforge/cqlforge/meta"
)

// Insert compiles INSERT statements for one table. Values come from the
// context's live instance through each column's accessor binding, overlaid
// by explicit Set calls. Tables with multi-key columns expand to the
// cartesian product of the bound element sets.
type Insert struct {
	core
	ctx   *Context
	table *meta.Table

	values      map[string]any
	ifNotExists bool
	ttl         int
	hasTTL      bool
	timestamp   int64
	hasTS       bool
}

// NewInsert creates an insert builder for the entity's primary table.
func NewInsert(ctx *Context) *Insert {
	return NewInsertInto(ctx, ctx.Entity.PrimaryTable())
}

// NewInsertInto creates an insert builder for a specific table.
func NewInsertInto(ctx *Context, table *meta.Table) *Insert {
	ins := &Insert{ctx: ctx, table: table, values: make(map[string]any)}
	ins.bump()
	return ins
}

// Set assigns a column value, overriding the instance-bound value.
func (b *Insert) Set(column string, value any) *Insert {
	b.values[column] = value
	b.bump()
	return b
}

// IfNotExists adds the optimistic existence condition.
func (b *Insert) IfNotExists() *Insert {
	b.ifNotExists = true
	b.bump()
	return b
}

// UsingTTL sets the write's time-to-live in seconds.
func (b *Insert) UsingTTL(seconds int) *Insert {
	b.ttl = seconds
	b.hasTTL = true
	b.bump()
	return b
}

// UsingTimestamp sets the write's timestamp in microseconds.
func (b *Insert) UsingTimestamp(micros int64) *Insert {
	b.timestamp = micros
	b.hasTS = true
	b.bump()
	return b
}

// BindKeyspaceKey binds a keyspace key through the builder so the cache is
// invalidated along with the context's keyspace name.
func (b *Insert) BindKeyspaceKey(name, value string) *Insert {
	b.ctx.BindKeyspaceKey(name, value)
	b.bump()
	return b
}

// WithOption forwards an opaque execution option to the session.
func (b *Insert) WithOption(key string, value any) *Insert {
	b.setOption(key, value)
	return b
}

// Compile returns the wire text, memoized by the version stamp.
func (b *Insert) Compile() ([]string, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return nil, err
	}
	return c.Statements, nil
}

// Count returns the elementary-statement count.
func (b *Insert) Count() (int, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

func (b *Insert) compile() ([]string, error) {
	if b.table == nil {
		return nil, fmt.Errorf("entity %s: no primary table to insert into", b.ctx.Entity.Name)
	}
	ks, err := b.ctx.KeyspaceName()
	if err != nil {
		return nil, err
	}

	values := b.resolveValues()
	if err := b.checkKeys(values); err != nil {
		return nil, err
	}

	expansions, missing, err := expandMultiKeys(b.table.MultiKeys, values)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &MissingKeyError{Entity: b.ctx.Entity.Name, Table: b.table.Name, Columns: missing}
	}

	out := make([]string, 0, len(expansions))
	for _, exp := range expansions {
		text, err := b.render(ks, values, exp)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

// resolveValues merges instance-bound values with explicit assignments.
func (b *Insert) resolveValues() map[string]any {
	values := make(map[string]any)
	instance := b.ctx.Instance()
	for _, f := range b.table.AllColumns() {
		if f.Counter {
			continue
		}
		if v, ok := f.Value(instance); ok {
			values[f.Name] = v
		}
	}
	for k, v := range b.values {
		values[k] = v
	}
	return values
}

func (b *Insert) checkKeys(values map[string]any) error {
	var required []string
	keys := append(append([]*meta.Field(nil), b.table.PartitionKeys...), b.table.ClusteringKeys...)
	for _, f := range keys {
		if v, ok := values[f.Name]; ok && v != nil {
			continue
		}
		if f.OptionalKey {
			return &EmptyOptionalKeyError{Entity: b.ctx.Entity.Name, Table: b.table.Name, Column: f.Name}
		}
		required = append(required, f.Name)
	}
	if len(required) > 0 {
		return &MissingKeyError{Entity: b.ctx.Entity.Name, Table: b.table.Name, Columns: required}
	}
	return nil
}

func (b *Insert) render(ks string, values map[string]any, exp expansion) (string, error) {
	var names, literals []string
	for _, f := range b.table.AllColumns() {
		v, ok := values[f.Name]
		if f.MultiKey {
			v, ok = exp[f.Name], true
		}
		if !ok {
			continue
		}
		lit, err := cql.FormatTyped(v, f.PhysicalType())
		if err != nil {
			return "", fmt.Errorf("column %s: %w", f.Name, err)
		}
		names = append(names, cql.Ident(f.PhysicalName()))
		literals = append(literals, lit)

		if f.CaseInsensitive {
			s, isStr := v.(string)
			if !isStr {
				return "", fmt.Errorf("case-insensitive column %s holds %T, not a string", f.Name, v)
			}
			names = append(names, cql.Ident(f.ShadowName()))
			literals = append(literals, "'"+strings.ReplaceAll(strings.ToLower(s), "'", "''")+"'")
		}
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(cql.Qualified(ks, b.table.Name))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(literals, ", "))
	sb.WriteString(")")
	if b.ifNotExists {
		sb.WriteString(" IF NOT EXISTS")
	}
	writeUsing(&sb, b.hasTTL, b.ttl, b.hasTS, b.timestamp)
	return sb.String(), nil
}

func writeUsing(sb *strings.Builder, hasTTL bool, ttl int, hasTS bool, ts int64) {
	if !hasTTL && !hasTS {
		return
	}
	sb.WriteString(" USING ")
	if hasTTL {
		fmt.Fprintf(sb, "TTL %d", ttl)
		if hasTS {
			sb.WriteString(" AND ")
		}
	}
	if hasTS {
		fmt.Fprintf(sb, "TIMESTAMP %d", ts)
	}
}
