// Package catalog defines the collaborator contract for reading a live
// table's structure from the store's schema catalog. Only the schema diff
// engine consumes it.
package catalog

import "context"

// ColumnKind classifies a live column the way the catalog reports it.
type ColumnKind int

const (
	KindRegular ColumnKind = iota
	KindPartitionKey
	KindClustering
	KindStatic
)

// String returns the catalog's name for the kind.
func (k ColumnKind) String() string {
	switch k {
	case KindPartitionKey:
		return "partition_key"
	case KindClustering:
		return "clustering"
	case KindStatic:
		return "static"
	default:
		return "regular"
	}
}

// ParseColumnKind converts a catalog-reported kind string.
func ParseColumnKind(s string) ColumnKind {
	switch s {
	case "partition_key":
		return KindPartitionKey
	case "clustering":
		return KindClustering
	case "static":
		return KindStatic
	default:
		return KindRegular
	}
}

// Column is one live column row as reported by the catalog.
type Column struct {
	Name string
	Kind ColumnKind
	// TypeName is the wire-type descriptor, e.g. "int" or "set<text>".
	TypeName string
	// Position orders columns within their kind; -1 for regular columns.
	Position int
	// ClusteringOrder is "asc", "desc", or "none".
	ClusteringOrder string
}

// Reader reads a table's live column rows. The boolean result reports
// whether the table exists at all.
type Reader interface {
	Columns(ctx context.Context, keyspace, table string) ([]Column, bool, error)
}
