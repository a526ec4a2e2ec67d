package cql

// reservedWords is the CQL reserved keyword set. Identifiers colliding with
// one of these must be double-quoted on the wire.
var reservedWords = map[string]bool{
	"add": true, "allow": true, "alter": true, "and": true, "apply": true,
	"asc": true, "authorize": true, "batch": true, "begin": true, "by": true,
	"columnfamily": true, "create": true, "delete": true, "desc": true,
	"describe": true, "drop": true, "entries": true, "execute": true,
	"from": true, "full": true, "grant": true, "if": true, "in": true,
	"index": true, "infinity": true, "insert": true, "into": true,
	"is": true, "keyspace": true, "limit": true, "materialized": true,
	"modify": true, "nan": true, "norecursive": true, "not": true,
	"null": true, "of": true, "on": true, "or": true, "order": true,
	"primary": true, "rename": true, "replace": true, "revoke": true,
	"schema": true, "select": true, "set": true, "table": true, "to": true,
	"token": true, "truncate": true, "unlogged": true, "update": true,
	"use": true, "using": true, "view": true, "where": true, "with": true,
}

// Reserved reports whether name collides with a CQL reserved word.
func Reserved(name string) bool {
	return reservedWords[lower(name)]
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
