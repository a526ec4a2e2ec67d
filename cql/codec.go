package cql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cqlforge/cqlforge/meta"
)

// Codec formats a composite (user-defined type) value as its wire literal
// and parses the literal back into a field map. Format then Parse reproduces
// a field-equal value for every field with a defined scalar codec.
type Codec interface {
	Format(value map[string]any) (string, error)
	Parse(text string) (map[string]any, error)
}

// CodecFor returns the registry-driven codec for a composite entity
// declaration.
func CodecFor(decl *meta.EntityDecl) (Codec, error) {
	entity, err := meta.Resolve(decl)
	if err != nil {
		return nil, err
	}
	return NewCodec(entity)
}

// NewCodec builds a codec from resolved composite metadata.
func NewCodec(entity *meta.Entity) (Codec, error) {
	if !entity.UDT {
		return nil, fmt.Errorf("cql: entity %s is not a composite type", entity.Name)
	}
	if len(entity.Tables) != 1 {
		return nil, fmt.Errorf("cql: composite %s must declare exactly one field table", entity.Name)
	}
	return &entityCodec{entity: entity}, nil
}

type entityCodec struct {
	entity *meta.Entity
}

// Format renders `{field: literal, ...}` in declared field order, skipping
// absent fields.
func (c *entityCodec) Format(value map[string]any) (string, error) {
	var parts []string
	for _, f := range c.entity.Tables[0].AllColumns() {
		v, ok := f.Value(value)
		if !ok {
			continue
		}
		s, err := FormatTyped(v, f.Type)
		if err != nil {
			return "", fmt.Errorf("composite %s field %s: %w", c.entity.Name, f.Name, err)
		}
		parts = append(parts, Ident(f.Name)+": "+s)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// Parse reads a composite literal back into a field map with each field
// decoded through its declared type.
func (c *entityCodec) Parse(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return nil, fmt.Errorf("cql: composite literal must be brace-delimited, got %q", text)
	}
	body := strings.TrimSpace(text[1 : len(text)-1])
	out := make(map[string]any)
	if body == "" {
		return out, nil
	}
	table := c.entity.Tables[0]
	for _, part := range splitTop(body, ',') {
		name, lit, ok := cutTop(part, ':')
		if !ok {
			return nil, fmt.Errorf("cql: malformed composite field %q", part)
		}
		name = unquoteIdent(strings.TrimSpace(name))
		f := table.Column(name)
		if f == nil {
			return nil, fmt.Errorf("cql: composite %s has no field %s", c.entity.Name, name)
		}
		v, err := ParseTyped(strings.TrimSpace(lit), f.Type)
		if err != nil {
			return nil, fmt.Errorf("composite %s field %s: %w", c.entity.Name, name, err)
		}
		out[name] = v
	}
	return out, nil
}

// ParseTyped decodes a single literal using its declared type.
func ParseTyped(text string, t *meta.TypeSpec) (any, error) {
	text = strings.TrimSpace(text)
	if text == "null" {
		return nil, nil
	}
	switch t.Base {
	case meta.TypeList, meta.TypeSet:
		open, shut := "[", "]"
		if t.Base == meta.TypeSet {
			open, shut = "{", "}"
		}
		if !strings.HasPrefix(text, open) || !strings.HasSuffix(text, shut) {
			return nil, fmt.Errorf("cql: collection literal %q not delimited by %s%s", text, open, shut)
		}
		body := strings.TrimSpace(text[1 : len(text)-1])
		var out []any
		if body == "" {
			return out, nil
		}
		for _, part := range splitTop(body, ',') {
			v, err := ParseTyped(strings.TrimSpace(part), t.Elem)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case meta.TypeMap:
		if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
			return nil, fmt.Errorf("cql: map literal %q not brace-delimited", text)
		}
		body := strings.TrimSpace(text[1 : len(text)-1])
		out := make(map[any]any)
		if body == "" {
			return out, nil
		}
		for _, part := range splitTop(body, ',') {
			ks, vs, ok := cutTop(part, ':')
			if !ok {
				return nil, fmt.Errorf("cql: malformed map entry %q", part)
			}
			k, err := ParseTyped(strings.TrimSpace(ks), t.Key)
			if err != nil {
				return nil, err
			}
			v, err := ParseTyped(strings.TrimSpace(vs), t.Value)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case meta.TypeUDT:
		codec, err := CodecFor(t.UDT)
		if err != nil {
			return nil, err
		}
		return codec.Parse(text)
	default:
		return parseScalar(text, t.Base)
	}
}

func parseScalar(text string, d meta.DataType) (any, error) {
	switch d {
	case meta.TypeAscii, meta.TypeText, meta.TypeVarchar:
		return unquoteString(text)
	case meta.TypeBoolean:
		return strconv.ParseBool(text)
	case meta.TypeTinyInt, meta.TypeSmallInt, meta.TypeInt, meta.TypeBigInt,
		meta.TypeVarInt, meta.TypeCounter:
		return strconv.ParseInt(text, 10, 64)
	case meta.TypeFloat, meta.TypeDouble, meta.TypeDecimal:
		return strconv.ParseFloat(text, 64)
	case meta.TypeUUID, meta.TypeTimeUUID:
		return uuid.Parse(text)
	case meta.TypeTimestamp:
		ms, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cql: timestamp literal %q: %w", text, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	case meta.TypeBlob:
		if !strings.HasPrefix(text, "0x") {
			return nil, fmt.Errorf("cql: blob literal %q missing 0x prefix", text)
		}
		return hexDecode(text[2:])
	default:
		return nil, fmt.Errorf("cql: no codec defined for %s", d)
	}
}

func unquoteString(text string) (string, error) {
	if len(text) < 2 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return "", fmt.Errorf("cql: string literal %q not single-quoted", text)
	}
	return strings.ReplaceAll(text[1:len(text)-1], "''", "'"), nil
}

func unquoteIdent(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("cql: odd-length hex literal")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		n, err := strconv.ParseUint(s[2*i:2*i+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(n)
	}
	return out, nil
}

// splitTop splits s at sep occurrences outside quotes, braces, and brackets.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth := 0
	inStr := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\'' {
				// doubled quote stays inside the string
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inStr = false
			}
			continue
		}
		switch c {
		case '\'':
			inStr = true
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// cutTop splits s at the first top-level sep.
func cutTop(s string, sep byte) (string, string, bool) {
	depth := 0
	inStr := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inStr = false
			}
			continue
		}
		switch c {
		case '\'':
			inStr = true
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case sep:
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}
