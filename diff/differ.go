// Package diff reconciles a live table's structure with its declared
// metadata, emitting the ALTER statements that converge the live table, or
// signalling that the table is absent and needs full creation.
package diff

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cqlforge/cqlforge/catalog"
	"github.com/cqlforge/cqlforge/cql"
	"github.com/cqlforge/cqlforge/meta"
)

// targetColumn is one physical column the declared metadata expects.
type targetColumn struct {
	name string
	spec *meta.TypeSpec
}

// Differ holds one table's declared metadata and the live snapshot read at
// construction. The snapshot is read exactly once and cached for the
// differ's lifetime.
type Differ struct {
	keyspace string
	table    *meta.Table
	live     []catalog.Column
	found    bool
}

// New reads the live snapshot for the target table. This is the single
// blocking catalog read the engine performs. The snapshot is sorted here by
// kind then position; the key sequences must not depend on whatever order
// the reader returned its rows in.
func New(ctx context.Context, reader catalog.Reader, keyspace string, table *meta.Table) (*Differ, error) {
	live, found, err := reader.Columns(ctx, keyspace, table.Name)
	if err != nil {
		return nil, err
	}
	cols := append([]catalog.Column(nil), live...)
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Kind != cols[j].Kind {
			return cols[i].Kind < cols[j].Kind
		}
		if cols[i].Position != cols[j].Position {
			return cols[i].Position < cols[j].Position
		}
		return cols[i].Name < cols[j].Name
	})
	return &Differ{keyspace: keyspace, table: table, live: cols, found: found}, nil
}

// TableAbsent reports that the live table does not exist; callers fall back
// to full creation instead of convergence.
func (d *Differ) TableAbsent() bool { return !d.found }

// Statements computes the convergence statements: DROP for live columns the
// declaration no longer has, ALTER TYPE for permitted type widenings, ADD
// for declared columns missing live. An incompatible type or key-layout
// change is a fatal SchemaDriftError. No difference yields no statements.
func (d *Differ) Statements() ([]string, error) {
	if !d.found {
		return nil, &SchemaDriftError{Keyspace: d.keyspace, Table: d.table.Name,
			Reason: "table absent; full creation required"}
	}

	targets, targetPK, targetCK := d.targetLayout()

	var drops, alters, adds []string
	matched := make(map[string]bool)
	var livePK []string
	var liveCK []catalog.Column

	for _, col := range d.live {
		switch col.Kind {
		case catalog.KindPartitionKey:
			livePK = append(livePK, col.Name)
		case catalog.KindClustering:
			liveCK = append(liveCK, col)
		}

		target, ok := targets[col.Name]
		if !ok {
			if col.Kind == catalog.KindPartitionKey || col.Kind == catalog.KindClustering {
				// Key columns are handled by the layout check below; dropping
				// them is never possible.
				continue
			}
			drops = append(drops, fmt.Sprintf("ALTER TABLE %s DROP %s",
				cql.Qualified(d.keyspace, d.table.Name), cql.Ident(col.Name)))
			continue
		}
		matched[col.Name] = true

		targetType := target.spec.CQLName()
		if normalizeType(col.TypeName) == normalizeType(targetType) {
			continue
		}
		if !widens(col.TypeName, targetType) {
			return nil, &SchemaDriftError{
				Keyspace: d.keyspace, Table: d.table.Name, Column: col.Name,
				Reason: fmt.Sprintf("live type %s cannot widen to declared type %s", col.TypeName, targetType),
			}
		}
		alters = append(alters, fmt.Sprintf("ALTER TABLE %s ALTER %s TYPE %s",
			cql.Qualified(d.keyspace, d.table.Name), cql.Ident(col.Name), targetType))
	}

	if err := d.checkKeyLayout(livePK, liveCK, targetPK, targetCK); err != nil {
		return nil, err
	}

	for _, t := range d.targetOrder() {
		if matched[t.name] {
			continue
		}
		if isKeyName(t.name, targetPK, targetCK) {
			continue
		}
		adds = append(adds, fmt.Sprintf("ALTER TABLE %s ADD %s %s",
			cql.Qualified(d.keyspace, d.table.Name), cql.Ident(t.name), t.spec.CQLName()))
	}

	out := make([]string, 0, len(drops)+len(alters)+len(adds))
	out = append(out, drops...)
	out = append(out, alters...)
	out = append(out, adds...)
	return out, nil
}

type clusteringTarget struct {
	name  string
	order string
}

// targetLayout builds the physical target column map and the ordered key
// name sequences, substituting shadow names for multi-key and
// case-insensitive columns.
func (d *Differ) targetLayout() (map[string]targetColumn, []string, []clusteringTarget) {
	targets := make(map[string]targetColumn)
	for _, t := range d.targetOrder() {
		targets[t.name] = t
	}
	var pk []string
	for _, f := range d.table.PartitionKeys {
		pk = append(pk, f.KeyName())
	}
	var ck []clusteringTarget
	for _, f := range d.table.ClusteringKeys {
		ck = append(ck, clusteringTarget{name: f.KeyName(), order: strings.ToLower(f.Order.String())})
	}
	return targets, pk, ck
}

// targetOrder lists physical target columns in declared order, shadows
// right after their declaring column.
func (d *Differ) targetOrder() []targetColumn {
	var out []targetColumn
	for _, f := range d.table.AllColumns() {
		out = append(out, targetColumn{name: f.PhysicalName(), spec: f.PhysicalType()})
		if f.CaseInsensitive {
			out = append(out, targetColumn{name: f.ShadowName(), spec: f.PhysicalType()})
		}
	}
	return out
}

func (d *Differ) checkKeyLayout(livePK []string, liveCK []catalog.Column, targetPK []string, targetCK []clusteringTarget) error {
	if len(livePK) != len(targetPK) {
		return &SchemaDriftError{Keyspace: d.keyspace, Table: d.table.Name,
			Reason: fmt.Sprintf("live partition key [%s] does not match declared [%s]",
				strings.Join(livePK, ", "), strings.Join(targetPK, ", "))}
	}
	for i := range livePK {
		if livePK[i] != targetPK[i] {
			return &SchemaDriftError{Keyspace: d.keyspace, Table: d.table.Name,
				Reason: fmt.Sprintf("live partition key [%s] does not match declared [%s]",
					strings.Join(livePK, ", "), strings.Join(targetPK, ", "))}
		}
	}

	if len(liveCK) != len(targetCK) {
		return &SchemaDriftError{Keyspace: d.keyspace, Table: d.table.Name,
			Reason: fmt.Sprintf("live clustering key has %d column(s), declared has %d",
				len(liveCK), len(targetCK))}
	}
	for i, col := range liveCK {
		want := targetCK[i]
		if col.Name != want.name {
			return &SchemaDriftError{Keyspace: d.keyspace, Table: d.table.Name, Column: col.Name,
				Reason: fmt.Sprintf("clustering position %d is %s live, %s declared", i, col.Name, want.name)}
		}
		liveOrder := strings.ToLower(col.ClusteringOrder)
		if liveOrder == "" || liveOrder == "none" {
			liveOrder = "asc"
		}
		if liveOrder != want.order {
			return &SchemaDriftError{Keyspace: d.keyspace, Table: d.table.Name, Column: col.Name,
				Reason: fmt.Sprintf("clustering order is %s live, %s declared", liveOrder, want.order)}
		}
	}
	return nil
}

func isKeyName(name string, pk []string, ck []clusteringTarget) bool {
	for _, n := range pk {
		if n == name {
			return true
		}
	}
	for _, c := range ck {
		if c.name == name {
			return true
		}
	}
	return false
}

func normalizeType(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	s = strings.TrimPrefix(s, "frozen<")
	return strings.TrimSuffix(s, ">")
}

// widenings lists the in-place column type changes the store permits.
var widenings = map[string]map[string]bool{
	"ascii":    {"text": true, "varchar": true},
	"text":     {"varchar": true},
	"varchar":  {"text": true},
	"int":      {"varint": true},
	"bigint":   {"varint": true},
	"timeuuid": {"uuid": true},
}

func widens(from, to string) bool {
	return widenings[normalizeType(from)][normalizeType(to)]
}
