// Package cql implements the wire-text contract: identifier quoting, literal
// rendering, and the composite-type codec. The contract is bit-exact; the
// statement builders assemble fragments produced here and never hand-format
// text themselves.
package cql

import "strings"

// Ident renders an identifier, double-quoting it only when required: when it
// contains characters outside [A-Za-z0-9_] or collides with a reserved word.
// Identifiers carrying array-index or function-call syntax ("col[2]",
// "token(a)") are emitted verbatim, quoting would change their meaning.
func Ident(name string) string {
	if strings.ContainsAny(name, "([") {
		return name
	}
	if plainIdentifier(name) && !Reserved(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func plainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// Qualified renders keyspace.name with each part quoted as needed.
func Qualified(keyspace, name string) string {
	if keyspace == "" {
		return Ident(name)
	}
	return Ident(keyspace) + "." + Ident(name)
}
