package stmt

import (
	"errors"
	"fmt"
	"strings"
)

// MissingKeyError reports that a required primary-key or keyspace-key value
// could not be resolved from the statement context.
type MissingKeyError struct {
	Entity   string
	Table    string
	Columns  []string
	Keyspace bool
}

// Error implements the error interface.
func (e *MissingKeyError) Error() string {
	if e.Keyspace {
		return fmt.Sprintf("entity %s: unresolved keyspace key(s) %s", e.Entity, strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("entity %s table %s: unresolved primary key column(s) %s",
		e.Entity, e.Table, strings.Join(e.Columns, ", "))
}

// EmptyOptionalKeyError reports that an explicitly-optional primary key has
// no value. Unlike MissingKeyError this is locally recoverable: composite
// callers skip just the affected table or member.
type EmptyOptionalKeyError struct {
	Entity string
	Table  string
	Column string
}

// Error implements the error interface.
func (e *EmptyOptionalKeyError) Error() string {
	return fmt.Sprintf("entity %s table %s: optional key column %s has no value",
		e.Entity, e.Table, e.Column)
}

// IsEmptyOptionalKey reports whether err is, or wraps, an
// EmptyOptionalKeyError.
func IsEmptyOptionalKey(err error) bool {
	var e *EmptyOptionalKeyError
	return errors.As(err, &e)
}

// ErrKeyChangeWithoutOld is returned when a mutator assigns a new value to a
// primary-key column without supplying the old value through Replace. The
// store forbids in-place key mutation and the compiler will not guess which
// row to delete.
var ErrKeyChangeWithoutOld = errors.New("primary key column assigned without old value; use Replace")
