package stmt

import (
	"fmt"
	"strings"

	"github.com/cqlforge/cqlforge/cql"
	"github.com/cqlforge/cqlforge/meta"
)

// Delete compiles DELETE statements for one table, keyed from explicit
// bindings or the context instance. Multi-key columns expand to one DELETE
// per element combination.
type Delete struct {
	core
	ctx   *Context
	table *meta.Table

	columns   []string // specific columns to delete; empty deletes the row
	keyed     map[string]any
	ifExists  bool
	condition string
	condErr   error
	timestamp int64
	hasTS     bool
}

// NewDelete creates a delete builder for the entity's primary table.
func NewDelete(ctx *Context) *Delete {
	return NewDeleteFrom(ctx, ctx.Entity.PrimaryTable())
}

// NewDeleteFrom creates a delete builder for a specific table.
func NewDeleteFrom(ctx *Context, table *meta.Table) *Delete {
	d := &Delete{ctx: ctx, table: table, keyed: make(map[string]any)}
	d.bump()
	return d
}

// Column restricts the delete to specific columns instead of the whole row.
func (b *Delete) Column(names ...string) *Delete {
	b.columns = append(b.columns, names...)
	b.bump()
	return b
}

// Key binds an explicit primary-key predicate value.
func (b *Delete) Key(column string, value any) *Delete {
	b.keyed[column] = value
	b.bump()
	return b
}

// IfExists adds the optimistic existence condition.
func (b *Delete) IfExists() *Delete {
	b.ifExists = true
	b.bump()
	return b
}

// If adds a custom optimistic condition. A value with no literal form is
// reported by the next Compile.
func (b *Delete) If(column, op string, value any) *Delete {
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

// UsingTimestamp sets the delete's timestamp in microseconds.
func (b *Delete) UsingTimestamp(micros int64) *Delete {
	b.timestamp = micros
	b.hasTS = true
	b.bump()
	return b
}

// BindKeyspaceKey binds a keyspace key through the builder.
func (b *Delete) BindKeyspaceKey(name, value string) *Delete {
	b.ctx.BindKeyspaceKey(name, value)
	b.bump()
	return b
}

// WithOption forwards an opaque execution option to the session.
func (b *Delete) WithOption(key string, value any) *Delete {
	b.setOption(key, value)
	return b
}

// Compile returns the wire text, memoized by the version stamp.
func (b *Delete) Compile() ([]string, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return nil, err
	}
	return c.Statements, nil
}

// Count returns the elementary-statement count.
func (b *Delete) Count() (int, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

func (b *Delete) compile() ([]string, error) {
	if b.table == nil {
		return nil, fmt.Errorf("entity %s: no primary table to delete from", b.ctx.Entity.Name)
	}
	if b.condErr != nil {
		return nil, b.condErr
	}
	ks, err := b.ctx.KeyspaceName()
	if err != nil {
		return nil, err
	}
	keys, err := resolveTableKeys(b.ctx, b.table, b.keyed, true)
	if err != nil {
		return nil, err
	}

	expansions, missing, err := expandMultiKeys(b.table.MultiKeys, keys)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &MissingKeyError{Entity: b.ctx.Entity.Name, Table: b.table.Name, Columns: missing}
	}

	var cols string
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = cql.Ident(c)
		}
		cols = strings.Join(quoted, ", ") + " "
	}

	out := make([]string, 0, len(expansions))
	for _, exp := range expansions {
		where, err := renderWhere(b.table, keys, exp)
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		sb.WriteString("DELETE ")
		sb.WriteString(cols)
		sb.WriteString("FROM ")
		sb.WriteString(cql.Qualified(ks, b.table.Name))
		if b.hasTS {
			fmt.Fprintf(&sb, " USING TIMESTAMP %d", b.timestamp)
		}
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
