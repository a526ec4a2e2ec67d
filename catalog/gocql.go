package catalog

import (
	"context"
	"fmt"
	"sort"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
)

// SessionReader reads the live catalog through a driver session by querying
// system_schema.columns.
type SessionReader struct {
	session *gocql.Session
}

// NewSessionReader wraps a connected session.
func NewSessionReader(session *gocql.Session) *SessionReader {
	return &SessionReader{session: session}
}

// KeyspaceExists reports whether the keyspace is present in the live
// catalog.
func (r *SessionReader) KeyspaceExists(ctx context.Context, keyspace string) (bool, error) {
	var name string
	err := r.session.Query(
		`SELECT keyspace_name FROM system_schema.keyspaces WHERE keyspace_name = ?`,
		keyspace,
	).WithContext(ctx).Scan(&name)
	if err == gocql.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog read for keyspace %s: %w", keyspace, err)
	}
	return true, nil
}

// Columns implements Reader.
func (r *SessionReader) Columns(ctx context.Context, keyspace, table string) ([]Column, bool, error) {
	iter := r.session.Query(
		`SELECT column_name, kind, type, position, clustering_order
		 FROM system_schema.columns
		 WHERE keyspace_name = ? AND table_name = ?`,
		keyspace, table,
	).WithContext(ctx).Iter()

	var cols []Column
	var name, kind, typeName, order string
	var position int
	for iter.Scan(&name, &kind, &typeName, &position, &order) {
		cols = append(cols, Column{
			Name:            name,
			Kind:            ParseColumnKind(kind),
			TypeName:        typeName,
			Position:        position,
			ClusteringOrder: order,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, false, fmt.Errorf("catalog read for %s.%s: %w", keyspace, table, err)
	}
	if len(cols) == 0 {
		return nil, false, nil
	}
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Kind != cols[j].Kind {
			return cols[i].Kind < cols[j].Kind
		}
		if cols[i].Position != cols[j].Position {
			return cols[i].Position < cols[j].Position
		}
		return cols[i].Name < cols[j].Name
	})
	return cols, true, nil
}
