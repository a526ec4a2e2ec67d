package diff

import "fmt"

// SchemaDriftError reports a live table whose structure cannot be converged
// in place: an incompatible column type or a changed key layout. Fatal;
// manual migration required.
type SchemaDriftError struct {
	Keyspace string
	Table    string
	Column   string
	Reason   string
}

// Error implements the error interface.
func (e *SchemaDriftError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %s.%s column %s: %s", e.Keyspace, e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("table %s.%s: %s", e.Keyspace, e.Table, e.Reason)
}
