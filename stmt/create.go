package stmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cqlforge/cqlforge/cql"
	"github.com/cqlforge/cqlforge/meta"
)

// CreateKeyspace compiles a CREATE KEYSPACE statement with replication
// options forwarded opaquely.
type CreateKeyspace struct {
	core
	ctx         *Context
	ifNotExists bool
	replication map[string]any
}

// NewCreateKeyspace creates the builder with a SimpleStrategy default.
func NewCreateKeyspace(ctx *Context) *CreateKeyspace {
	ck := &CreateKeyspace{
		ctx:         ctx,
		replication: map[string]any{"class": "SimpleStrategy", "replication_factor": 1},
	}
	ck.bump()
	return ck
}

// IfNotExists makes creation a no-op for an existing keyspace.
func (b *CreateKeyspace) IfNotExists() *CreateKeyspace {
	b.ifNotExists = true
	b.bump()
	return b
}

// WithReplication replaces the replication options.
func (b *CreateKeyspace) WithReplication(options map[string]any) *CreateKeyspace {
	b.replication = options
	b.bump()
	return b
}

// BindKeyspaceKey binds a keyspace key through the builder.
func (b *CreateKeyspace) BindKeyspaceKey(name, value string) *CreateKeyspace {
	b.ctx.BindKeyspaceKey(name, value)
	b.bump()
	return b
}

// WithOption forwards an opaque execution option to the session.
func (b *CreateKeyspace) WithOption(key string, value any) *CreateKeyspace {
	b.setOption(key, value)
	return b
}

// Compile returns the wire text, memoized by the version stamp.
func (b *CreateKeyspace) Compile() ([]string, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return nil, err
	}
	return c.Statements, nil
}

// Count returns the elementary-statement count.
func (b *CreateKeyspace) Count() (int, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

func (b *CreateKeyspace) compile() ([]string, error) {
	ks, err := b.ctx.KeyspaceName()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(b.replication))
	for k := range b.replication {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := cql.Format(b.replication[k])
		if err != nil {
			return nil, fmt.Errorf("replication option %s: %w", k, err)
		}
		parts = append(parts, "'"+k+"': "+v)
	}
	var sb strings.Builder
	sb.WriteString("CREATE KEYSPACE ")
	if b.ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(cql.Ident(ks))
	sb.WriteString(" WITH replication = {")
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString("}")
	return []string{sb.String()}, nil
}

// CreateSchema compiles the full creation sequence for one entity:
// composite types in dependency order, tables, secondary indexes, then seed
// inserts from the entity's initial-objects factory.
type CreateSchema struct {
	core
	ctx         *Context
	ifNotExists bool
}

// NewCreateSchema creates the builder.
func NewCreateSchema(ctx *Context) *CreateSchema {
	cs := &CreateSchema{ctx: ctx}
	cs.bump()
	return cs
}

// IfNotExists guards every DDL statement in the sequence.
func (b *CreateSchema) IfNotExists() *CreateSchema {
	b.ifNotExists = true
	b.bump()
	return b
}

// BindKeyspaceKey binds a keyspace key through the builder.
func (b *CreateSchema) BindKeyspaceKey(name, value string) *CreateSchema {
	b.ctx.BindKeyspaceKey(name, value)
	b.bump()
	return b
}

// WithOption forwards an opaque execution option to the session.
func (b *CreateSchema) WithOption(key string, value any) *CreateSchema {
	b.setOption(key, value)
	return b
}

// Compile returns the wire text, memoized by the version stamp.
func (b *CreateSchema) Compile() ([]string, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return nil, err
	}
	return c.Statements, nil
}

// Count returns the elementary-statement count.
func (b *CreateSchema) Count() (int, error) {
	c, err := b.build(b.compile)
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

func (b *CreateSchema) compile() ([]string, error) {
	ks, err := b.ctx.KeyspaceName()
	if err != nil {
		return nil, err
	}
	entity := b.ctx.Entity

	var out []string

	types, err := embeddedTypes(entity)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		out = append(out, renderCreateType(ks, t, b.ifNotExists))
	}

	if entity.UDT {
		out = append(out, renderCreateType(ks, entity, b.ifNotExists))
		return out, nil
	}

	for _, t := range entity.Tables {
		out = append(out, RenderCreateTable(ks, t, b.ifNotExists))
		for _, f := range t.Indexed {
			out = append(out, renderCreateIndex(ks, t, f, b.ifNotExists))
		}
	}

	for _, seed := range entity.InitialObjects() {
		ins := NewInsertInto(b.ctx.cloneWithInstance(seed), entity.PrimaryTable())
		texts, err := ins.Compile()
		if err != nil {
			// Seed rows with an absent optional key skip, like any
			// composite member.
			if IsEmptyOptionalKey(err) {
				continue
			}
			return nil, err
		}
		out = append(out, texts...)
	}

	return out, nil
}

// embeddedTypes resolves every composite the entity transitively embeds and
// returns them in creation order.
func embeddedTypes(entity *meta.Entity) ([]*meta.Entity, error) {
	collected := make(map[string]*meta.Entity)
	var walk func(e *meta.Entity) error
	walk = func(e *meta.Entity) error {
		for _, t := range e.Tables {
			for _, f := range t.AllColumns() {
				for _, decl := range meta.EmbeddedDecls(f.Type) {
					sub, err := meta.Resolve(decl)
					if err != nil {
						return err
					}
					if _, ok := collected[sub.Name]; ok {
						continue
					}
					collected[sub.Name] = sub
					if err := walk(sub); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
	if err := walk(entity); err != nil {
		return nil, err
	}
	if len(collected) == 0 {
		return nil, nil
	}

	list := make([]*meta.Entity, 0, len(collected))
	for _, e := range collected {
		list = append(list, e)
	}
	graph := meta.BuildTypeGraph(entity.Keyspace.Template, list)
	return graph.CreationOrder()
}

func renderCreateType(ks string, entity *meta.Entity, ifNotExists bool) string {
	var sb strings.Builder
	sb.WriteString("CREATE TYPE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(cql.Qualified(ks, entity.Name))
	sb.WriteString(" (")
	var parts []string
	for _, f := range entity.Tables[0].AllColumns() {
		parts = append(parts, cql.Ident(f.Name)+" "+f.Type.CQLName())
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(")")
	return sb.String()
}

// RenderCreateTable renders the CREATE TABLE statement for derived table
// metadata, substituting physical and shadow columns for multi-key and
// case-insensitive declarations.
func RenderCreateTable(ks string, t *meta.Table, ifNotExists bool) string {
	var cols []string
	for _, f := range t.AllColumns() {
		cols = append(cols, cql.Ident(f.PhysicalName())+" "+f.PhysicalType().CQLName())
		if f.CaseInsensitive {
			cols = append(cols, cql.Ident(f.ShadowName())+" "+f.PhysicalType().CQLName())
		}
	}

	pk := make([]string, 0, len(t.PartitionKeys))
	for _, f := range t.PartitionKeys {
		pk = append(pk, cql.Ident(f.KeyName()))
	}
	key := "(" + strings.Join(pk, ", ") + ")"
	for _, f := range t.ClusteringKeys {
		key += ", " + cql.Ident(f.KeyName())
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(cql.Qualified(ks, t.Name))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(", PRIMARY KEY (")
	sb.WriteString(key)
	sb.WriteString("))")

	if len(t.ClusteringKeys) > 0 {
		var orders []string
		for _, f := range t.ClusteringKeys {
			orders = append(orders, cql.Ident(f.KeyName())+" "+f.Order.String())
		}
		sb.WriteString(" WITH CLUSTERING ORDER BY (")
		sb.WriteString(strings.Join(orders, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

func renderCreateIndex(ks string, t *meta.Table, f *meta.Field, ifNotExists bool) string {
	var sb strings.Builder
	sb.WriteString("CREATE INDEX ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(cql.Ident(t.Name + "_" + f.PhysicalName() + "_idx"))
	sb.WriteString(" ON ")
	sb.WriteString(cql.Qualified(ks, t.Name))
	sb.WriteString(" (")
	sb.WriteString(cql.Ident(f.PhysicalName()))
	sb.WriteString(")")
	return sb.String()
}

// cloneWithInstance copies the context with a different live instance,
// sharing the bound keyspace keys.
func (c *Context) cloneWithInstance(record map[string]any) *Context {
	clone := NewContext(c.Entity)
	for k, v := range c.keys {
		clone.keys[k] = v
	}
	clone.instance = record
	return clone
}
