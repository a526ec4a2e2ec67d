package meta

import (
	"fmt"
	"strings"
)

// ConfigurationError reports malformed entity metadata. It is fatal and not
// retryable: the declaration itself must change.
type ConfigurationError struct {
	Entity string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("entity %s: %s", e.Entity, e.Reason)
}

func configErrf(entity, format string, args ...any) error {
	return &ConfigurationError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

// CycleError reports a dependency cycle between composite types in one
// keyspace. Fatal: the embedding structure must change.
type CycleError struct {
	Keyspace string
	Types    []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("keyspace %s: composite type dependency cycle involving %s",
		e.Keyspace, strings.Join(e.Types, ", "))
}
