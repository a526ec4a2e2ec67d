package meta

import (
	"strings"
	"sync"
)

// Registry memoizes derived entity metadata by declaration identity.
// Resolution of two different types never serializes on one lock: the map
// mutex is held only to install an entry, the build itself runs outside it.
type Registry struct {
	mu      sync.Mutex
	entries map[*EntityDecl]*regEntry
}

type regEntry struct {
	done   chan struct{}
	entity *Entity
	err    error
}

// NewRegistry creates an empty registry. Most callers use the process-wide
// one through the package-level Resolve.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[*EntityDecl]*regEntry)}
}

var global = NewRegistry()

// Resolve derives metadata for decl in the process-wide registry.
func Resolve(decl *EntityDecl) (*Entity, error) {
	return global.Resolve(decl)
}

// Resolve derives metadata for decl, memoized by declaration identity and
// safe for concurrent first use. A declaration that transitively resolves
// itself is rejected as a configuration error.
func (r *Registry) Resolve(decl *EntityDecl) (*Entity, error) {
	return r.resolve(decl, make(map[*EntityDecl]bool))
}

func (r *Registry) resolve(decl *EntityDecl, building map[*EntityDecl]bool) (*Entity, error) {
	// Declaration cycles are rejected before an entry is installed. Blocking
	// on an in-flight entry whose build is itself waiting on this declaration
	// would deadlock, so the walk happens on the raw declarations, without
	// touching registry state.
	if err := checkEmbedding(decl, building); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if e, ok := r.entries[decl]; ok {
		r.mu.Unlock()
		<-e.done
		return e.entity, e.err
	}
	entry := &regEntry{done: make(chan struct{})}
	r.entries[decl] = entry
	r.mu.Unlock()

	building[decl] = true
	entry.entity, entry.err = r.build(decl, building)
	delete(building, decl)
	close(entry.done)

	if entry.err != nil {
		// Failed builds are not cached; a corrected declaration object is a
		// different key anyway, but keeping the poisoned entry would pin the
		// error for the process lifetime.
		r.mu.Lock()
		delete(r.entries, decl)
		r.mu.Unlock()
	}
	return entry.entity, entry.err
}

func (r *Registry) build(decl *EntityDecl, building map[*EntityDecl]bool) (*Entity, error) {
	if err := validateKeyspaceDecl(decl); err != nil {
		return nil, err
	}
	if len(decl.Tables) == 0 {
		return nil, configErrf(decl.Name, "no tables declared")
	}

	entity := &Entity{
		Name:           decl.Name,
		Keyspace:       Keyspace{Template: decl.Keyspace.Template, Keys: append([]string(nil), decl.Keyspace.Keys...)},
		Columns:        make(map[string]*Field),
		UDT:            decl.UDT,
		decl:           decl,
		newInstance:    decl.NewInstance,
		initialObjects: decl.InitialObjects,
	}
	if entity.newInstance == nil {
		entity.newInstance = func() map[string]any { return map[string]any{} }
	}

	primaries := 0
	for _, td := range decl.Tables {
		table, err := buildTable(entity, td)
		if err != nil {
			return nil, err
		}
		if table.Primary {
			primaries++
		}
		entity.Tables = append(entity.Tables, table)
	}
	if primaries > 1 {
		return nil, configErrf(decl.Name, "more than one table flagged primary")
	}

	if len(decl.Variants) > 0 {
		if err := mergeVariants(entity, decl); err != nil {
			return nil, err
		}
	}

	for _, t := range entity.Tables {
		for _, f := range t.columns {
			entity.Columns[f.Name] = f
		}
	}

	// Embedded composites resolve eagerly so configuration errors surface at
	// first use of the embedding type, and so the dependency graph can be
	// built from fully derived entities.
	if err := r.resolveEmbedded(entity, building); err != nil {
		return nil, err
	}

	return entity, nil
}

func (r *Registry) resolveEmbedded(entity *Entity, building map[*EntityDecl]bool) error {
	for _, t := range entity.Tables {
		for _, f := range t.columns {
			for _, ud := range udtDecls(f.Type) {
				if _, err := r.resolve(ud, building); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// checkEmbedding walks the declaration embedding graph and rejects a
// declaration that transitively embeds itself. The stack is seeded with the
// declarations already building on this call path.
func checkEmbedding(decl *EntityDecl, stack map[*EntityDecl]bool) error {
	if stack[decl] {
		return configErrf(decl.Name, "type resolves itself transitively through an embedded composite")
	}
	stack[decl] = true
	defer delete(stack, decl)
	for _, td := range embeddingTables(decl) {
		for _, cd := range td.Columns {
			for _, ud := range udtDecls(cd.Type) {
				if err := checkEmbedding(ud, stack); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// embeddingTables lists the declaration's own tables plus every variant's,
// since variant columns fold into the root and carry embeddings of their own.
func embeddingTables(decl *EntityDecl) []TableDecl {
	tables := append([]TableDecl(nil), decl.Tables...)
	for _, sub := range decl.Variants {
		tables = append(tables, sub.Tables...)
	}
	return tables
}

// udtDecls collects every entity declaration a type spec transitively
// references.
func udtDecls(t *TypeSpec) []*EntityDecl {
	if t == nil {
		return nil
	}
	var out []*EntityDecl
	if t.Base == TypeUDT && t.UDT != nil {
		out = append(out, t.UDT)
	}
	out = append(out, udtDecls(t.Elem)...)
	out = append(out, udtDecls(t.Key)...)
	out = append(out, udtDecls(t.Value)...)
	return out
}

func validateKeyspaceDecl(decl *EntityDecl) error {
	ks := decl.Keyspace
	if ks.Template == "" {
		return configErrf(decl.Name, "no keyspace descriptor declared")
	}
	for _, key := range ks.Keys {
		if !strings.Contains(ks.Template, "{"+key+"}") {
			return configErrf(decl.Name, "keyspace key %q has no matching descriptor entry in template %q", key, ks.Template)
		}
	}
	// Every placeholder in the template must be a declared key, otherwise the
	// name can never be computed.
	rest := ks.Template
	for {
		i := strings.IndexByte(rest, '{')
		if i < 0 {
			break
		}
		j := strings.IndexByte(rest[i:], '}')
		if j < 0 {
			return configErrf(decl.Name, "unterminated placeholder in keyspace template %q", ks.Template)
		}
		name := rest[i+1 : i+j]
		found := false
		for _, key := range ks.Keys {
			if key == name {
				found = true
				break
			}
		}
		if !found {
			return configErrf(decl.Name, "keyspace template placeholder %q is not a declared keyspace key", name)
		}
		rest = rest[i+j+1:]
	}
	return nil
}

func buildTable(entity *Entity, td TableDecl) (*Table, error) {
	if td.Name == "" {
		return nil, configErrf(entity.Name, "table with empty name")
	}
	table := &Table{
		Entity:  entity,
		Name:    td.Name,
		Primary: td.Primary,
		byName:  make(map[string]*Field),
	}

	for _, cd := range td.Columns {
		f, err := buildField(table, cd)
		if err != nil {
			return nil, err
		}
		if _, dup := table.byName[f.Name]; dup {
			return nil, configErrf(entity.Name, "table %s declares column %s twice", td.Name, f.Name)
		}
		if err := addField(table, f); err != nil {
			return nil, err
		}
	}

	if !entity.UDT && len(table.PartitionKeys) == 0 {
		return nil, configErrf(entity.Name, "table %s has no partition key", td.Name)
	}
	return table, nil
}

func buildField(table *Table, cd ColumnDecl) (*Field, error) {
	entity := table.Entity.Name
	if cd.Name == "" {
		return nil, configErrf(entity, "table %s declares a column with empty name", table.Name)
	}
	if cd.Type == nil {
		return nil, configErrf(entity, "column %s.%s has no type", table.Name, cd.Name)
	}
	if cd.MultiKey && cd.Type.Base != TypeSet && cd.Type.Base != TypeList {
		return nil, configErrf(entity, "multi-key column %s.%s must be set- or list-valued", table.Name, cd.Name)
	}
	if cd.MultiKey && cd.Key == KeyNone {
		return nil, configErrf(entity, "multi-key column %s.%s must be part of the primary key", table.Name, cd.Name)
	}
	if cd.CaseInsensitive && cd.Type.ElementType().Base != TypeText &&
		cd.Type.ElementType().Base != TypeAscii && cd.Type.ElementType().Base != TypeVarchar {
		return nil, configErrf(entity, "case-insensitive column %s.%s must be text-typed", table.Name, cd.Name)
	}
	if cd.Counter && cd.Key != KeyNone {
		return nil, configErrf(entity, "counter column %s.%s cannot be a key column", table.Name, cd.Name)
	}

	f := &Field{
		Table:           table,
		Name:            cd.Name,
		Type:            cd.Type,
		Mandatory:       cd.Mandatory,
		Key:             cd.Key,
		OptionalKey:     cd.OptionalKey,
		Order:           cd.Order,
		MultiKey:        cd.MultiKey,
		CaseInsensitive: cd.CaseInsensitive,
		IsTypeKey:       cd.TypeKey,
		Counter:         cd.Counter,
		Indexed:         cd.Indexed,
		get:             cd.Get,
	}
	if cd.Final {
		f.FinalDefault = cd.Default
		f.HasDefault = true
	}
	return f, nil
}

func addField(table *Table, f *Field) error {
	table.columns = append(table.columns, f)
	table.byName[f.Name] = f
	switch f.Key {
	case KeyPartition:
		table.PartitionKeys = append(table.PartitionKeys, f)
	case KeyClustering:
		table.ClusteringKeys = append(table.ClusteringKeys, f)
	}
	if f.MultiKey {
		table.MultiKeys = append(table.MultiKeys, f)
	}
	if f.Indexed {
		table.Indexed = append(table.Indexed, f)
	}
	if f.IsTypeKey {
		if table.TypeKey != nil {
			return configErrf(table.Entity.Name, "table %s declares more than one type-discriminator column", table.Name)
		}
		table.TypeKey = f
	}
	return nil
}

// mergeVariants folds subtype columns into the root tables. Shared metadata
// lives once on the root; variants reference the folded fields.
func mergeVariants(entity *Entity, decl *EntityDecl) error {
	typeKeyed := false
	for _, t := range entity.Tables {
		if t.TypeKey != nil {
			typeKeyed = true
		}
	}
	if !typeKeyed {
		return configErrf(decl.Name, "polymorphic hierarchy has no type-discriminator column")
	}

	entity.Variants = make(map[string]*Variant, len(decl.Variants))
	for tag, sub := range decl.Variants {
		variant := &Variant{Tag: tag, Name: sub.Name, decl: sub}
		for _, std := range sub.Tables {
			root := entity.Table(std.Name)
			if root == nil {
				return configErrf(decl.Name, "variant %s declares unknown table %s", sub.Name, std.Name)
			}
			for _, cd := range std.Columns {
				existing := root.Column(cd.Name)
				if existing == nil {
					folded, err := buildField(root, cd)
					if err != nil {
						return err
					}
					// Leaf-only columns are optional in the merged root: not
					// every variant stores them.
					folded.Mandatory = false
					folded.foldedFrom = sub.Name
					if err := addField(root, folded); err != nil {
						return err
					}
					variant.OwnColumns = append(variant.OwnColumns, folded)
					continue
				}
				if !existing.Type.Equal(cd.Type) {
					return configErrf(decl.Name,
						"variant %s redefines column %s.%s with wire type %s, root declares %s",
						sub.Name, std.Name, cd.Name, cd.Type.CQLName(), existing.Type.CQLName())
				}
				if existing.Mandatory && !cd.Mandatory {
					return configErrf(decl.Name,
						"variant %s narrows mandatory column %s.%s to optional", sub.Name, std.Name, cd.Name)
				}
				variant.OwnColumns = append(variant.OwnColumns, existing)
			}
		}
		entity.Variants[tag] = variant
	}
	return nil
}
