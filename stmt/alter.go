package stmt

import (
	"context"
	"fmt"

	"github.com/cqlforge/cqlforge/catalog"
	"github.com/cqlforge/cqlforge/diff"
	"github.com/cqlforge/cqlforge/meta"
)

// AlterTable compiles the statements that converge a live table on its
// declared metadata. The live snapshot is read once, at construction, and
// cached for the builder's lifetime; an absent table compiles to full
// creation instead.
type AlterTable struct {
	core
	ctx    *Context
	table  *meta.Table
	differ *diff.Differ
}

// NewAlterTable resolves the keyspace name and performs the single blocking
// catalog read for the target table.
func NewAlterTable(ctx context.Context, sctx *Context, reader catalog.Reader, table *meta.Table) (*AlterTable, error) {
	if table == nil {
		return nil, fmt.Errorf("entity %s: no table to alter", sctx.Entity.Name)
	}
	ks, err := sctx.KeyspaceName()
	if err != nil {
		return nil, err
	}
	differ, err := diff.New(ctx, reader, ks, table)
	if err != nil {
		return nil, err
	}
	at := &AlterTable{ctx: sctx, table: table, differ: differ}
	at.bump()
	return at, nil
}

// TableAbsent reports whether the live table is missing entirely.
func (b *AlterTable) TableAbsent() bool { return b.differ.TableAbsent() }

// WithOption forwards an opaque execution option to the session.
func (b *AlterTable) WithOption(key string, value any) *AlterTable {
	b.setOption(key, value)
	return b
}

// Compile returns the convergence statements, or the full creation sequence
// when the table is absent. No drift yields no statements.
func (b *AlterTable) Compile() ([]string, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return nil, err
	}
	return c.Statements, nil
}

// Count returns the elementary-statement count.
func (b *AlterTable) Count() (int, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

func (b *AlterTable) compile() ([]string, error) {
	ks, err := b.ctx.KeyspaceName()
	if err != nil {
		return nil, err
	}
	if b.differ.TableAbsent() {
		out := []string{RenderCreateTable(ks, b.table, false)}
		for _, f := range b.table.Indexed {
			out = append(out, renderCreateIndex(ks, b.table, f, false))
		}
		return out, nil
	}
	return b.differ.Statements()
}
