package meta

// EntityDecl is the immutable, already-parsed declaration of a record type.
// Producing these from whatever declaration syntax an application uses is the
// caller's concern; the registry only derives metadata from them.
type EntityDecl struct {
	Name     string
	Keyspace KeyspaceDecl
	Tables   []TableDecl

	// UDT marks the entity as an embeddable composite type rather than a
	// free-standing table owner.
	UDT bool

	// Variants maps discriminator values to subtype declarations for
	// polymorphic hierarchies. Variant tables are matched to root tables
	// by name and their columns folded into the root metadata.
	Variants map[string]*EntityDecl

	// NewInstance produces a blank record. Optional; the registry supplies
	// a map-backed factory when nil. Final-column defaults are applied on
	// top of whatever the factory returns.
	NewInstance func() map[string]any

	// InitialObjects produces seed records inserted right after table
	// creation. Optional.
	InitialObjects func() []map[string]any
}

// KeyspaceDecl describes how the concrete keyspace name is computed. The
// template may embed {key} placeholders; Keys lists the placeholder names in
// order. A template without placeholders names a fixed keyspace.
type KeyspaceDecl struct {
	Template string
	Keys     []string
}

// TableDecl declares one table of an entity.
type TableDecl struct {
	Name    string
	Primary bool
	Columns []ColumnDecl
}

// ColumnDecl declares one column. Column order is preserved into the derived
// metadata; partition and clustering key order follow declaration order.
type ColumnDecl struct {
	Name string
	Type *TypeSpec

	Mandatory   bool
	Key         KeyKind
	OptionalKey bool // explicitly-optional primary key member
	Order       Order

	MultiKey        bool // set-valued, one physical row per element
	CaseInsensitive bool // keyed through a synthetic lower-cased shadow
	TypeKey         bool // discriminator column
	Counter         bool
	Indexed         bool

	// Final pins Default at registry-build time; the default is reapplied
	// whenever a blank instance is materialized.
	Final   bool
	Default any

	// Get overrides the default map-lookup accessor for this column.
	Get func(record map[string]any) (any, bool)
}
