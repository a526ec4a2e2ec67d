package meta

import (
	"sort"
	"strings"
)

// Entity is the derived, immutable metadata for a declared record type.
type Entity struct {
	Name     string
	Keyspace Keyspace
	Tables   []*Table

	// Columns is the union of declared column names across all tables.
	Columns map[string]*Field

	// UDT marks embeddable composite types.
	UDT bool

	// Variants maps discriminator values to subtype metadata for a
	// polymorphic root. Shared table metadata lives once on the root.
	Variants map[string]*Variant

	decl           *EntityDecl
	newInstance    func() map[string]any
	initialObjects func() []map[string]any
}

// Variant is one concrete subtype of a polymorphic root. Its columns are
// already folded into the root tables; OwnColumns lists the fields the
// variant contributed.
type Variant struct {
	Tag        string
	Name       string
	OwnColumns []*Field
	decl       *EntityDecl
}

// Decl returns the declaration this metadata was derived from.
func (e *Entity) Decl() *EntityDecl { return e.decl }

// PrimaryTable returns the table flagged primary, or the sole table when
// only one is declared.
func (e *Entity) PrimaryTable() *Table {
	for _, t := range e.Tables {
		if t.Primary {
			return t
		}
	}
	if len(e.Tables) == 1 {
		return e.Tables[0]
	}
	return nil
}

// Table returns the named table, or nil.
func (e *Entity) Table(name string) *Table {
	for _, t := range e.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// NewInstance materializes a blank record with every final-column default
// applied. The factory contract holds for every entity: no input, valid
// default instance out.
func (e *Entity) NewInstance() map[string]any {
	rec := e.newInstance()
	for _, t := range e.Tables {
		for _, f := range t.columns {
			if f.HasDefault {
				if _, ok := rec[f.Name]; !ok {
					rec[f.Name] = f.FinalDefault
				}
			}
		}
	}
	return rec
}

// InitialObjects returns the declared seed records, or nil.
func (e *Entity) InitialObjects() []map[string]any {
	if e.initialObjects == nil {
		return nil
	}
	return e.initialObjects()
}

// ColumnNames returns the sorted union of declared column names.
func (e *Entity) ColumnNames() []string {
	names := make([]string, 0, len(e.Columns))
	for name := range e.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keyspace is the derived keyspace descriptor: a name template plus the
// ordered keyspace-key names it consumes.
type Keyspace struct {
	Template string
	Keys     []string
}

// Fixed reports whether the keyspace name needs no runtime keys.
func (k Keyspace) Fixed() bool { return len(k.Keys) == 0 }

// Unbound returns the declared keyspace-key names missing from values.
func (k Keyspace) Unbound(values map[string]string) []string {
	var missing []string
	for _, key := range k.Keys {
		if _, ok := values[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Format substitutes bound keyspace-key values into the template. Callers
// must check Unbound first; unbound placeholders are left intact.
func (k Keyspace) Format(values map[string]string) string {
	name := k.Template
	for _, key := range k.Keys {
		if v, ok := values[key]; ok {
			name = strings.ReplaceAll(name, "{"+key+"}", v)
		}
	}
	return strings.ToLower(name)
}

// Table is the derived metadata for one table of an entity.
type Table struct {
	Entity  *Entity
	Name    string
	Primary bool

	// columns holds declaration order, variant columns folded in after.
	columns []*Field
	byName  map[string]*Field

	PartitionKeys  []*Field
	ClusteringKeys []*Field
	MultiKeys      []*Field
	Indexed        []*Field
	TypeKey        *Field
}

// AllColumns returns the columns in declared order.
func (t *Table) AllColumns() []*Field { return t.columns }

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Field { return t.byName[name] }

// Field is the derived metadata for one column.
type Field struct {
	Table *Table
	Name  string
	Type  *TypeSpec

	Mandatory   bool
	Key         KeyKind
	OptionalKey bool
	Order       Order

	MultiKey        bool
	CaseInsensitive bool
	IsTypeKey       bool
	Counter         bool
	Indexed         bool

	FinalDefault any
	HasDefault   bool

	// foldedFrom names the variant that contributed this leaf-only column;
	// empty for columns the root declares itself.
	foldedFrom string

	get func(record map[string]any) (any, bool)
}

// PhysicalName is the column name as stored. Multi-key columns store one
// element per row under a shadow name; the logical set column has no
// physical counterpart.
func (f *Field) PhysicalName() string {
	if f.MultiKey {
		return f.Name + "_entry"
	}
	return f.Name
}

// ShadowName is the synthetic lower-cased companion of a case-insensitive
// key column. The shadow carries the key role; the declared column keeps the
// original casing as a regular column.
func (f *Field) ShadowName() string {
	return f.Name + "_lower"
}

// KeyName is the column name that participates in the primary key layout.
func (f *Field) KeyName() string {
	if f.CaseInsensitive {
		return f.ShadowName()
	}
	return f.PhysicalName()
}

// PhysicalType is the stored wire type: the element type for multi-key
// columns, the declared type otherwise.
func (f *Field) PhysicalType() *TypeSpec {
	if f.MultiKey {
		return f.Type.ElementType()
	}
	return f.Type
}

// Value reads this column's value from a record through the accessor
// binding.
func (f *Field) Value(record map[string]any) (any, bool) {
	if record == nil {
		return nil, false
	}
	if f.get != nil {
		return f.get(record)
	}
	v, ok := record[f.Name]
	return v, ok
}
