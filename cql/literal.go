package cql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cqlforge/cqlforge/meta"
)

// Format renders a Go value as a CQL literal without type guidance. String
// literals double embedded single quotes; collections use bracket/brace
// forms with comma separators and no trailing separator.
func Format(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case string:
		return quoteString(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case uuid.UUID:
		return x.String(), nil
	case time.Time:
		return strconv.FormatInt(x.UnixMilli(), 10), nil
	case []byte:
		return "0x" + strings.ToUpper(fmt.Sprintf("%x", x)), nil
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			s, err := Format(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(x))
		for _, k := range keys {
			s, err := Format(x[k])
			if err != nil {
				return "", err
			}
			parts = append(parts, quoteString(k)+": "+s)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	default:
		return "", fmt.Errorf("cql: cannot format %T as a literal", v)
	}
}

// FormatTyped renders a value with its declared type: sets use braces, maps
// brace pairs, lists brackets, user-defined types the codec form.
func FormatTyped(v any, t *meta.TypeSpec) (string, error) {
	if v == nil {
		return "null", nil
	}
	if t == nil {
		return Format(v)
	}
	switch t.Base {
	case meta.TypeList:
		elems, err := elementSlice(v)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(elems))
		for _, e := range elems {
			s, err := FormatTyped(e, t.Elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case meta.TypeSet:
		elems, err := elementSlice(v)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(elems))
		for _, e := range elems {
			s, err := FormatTyped(e, t.Elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case meta.TypeMap:
		m, ok := v.(map[any]any)
		if !ok {
			if sm, sok := v.(map[string]any); sok {
				m = make(map[any]any, len(sm))
				for k, mv := range sm {
					m[k] = mv
				}
			} else {
				return "", fmt.Errorf("cql: map column value is %T, not a map", v)
			}
		}
		type pair struct{ k, v string }
		pairs := make([]pair, 0, len(m))
		for k, mv := range m {
			ks, err := FormatTyped(k, t.Key)
			if err != nil {
				return "", err
			}
			vs, err := FormatTyped(mv, t.Value)
			if err != nil {
				return "", err
			}
			pairs = append(pairs, pair{ks, vs})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })
		parts := make([]string, 0, len(pairs))
		for _, p := range pairs {
			parts = append(parts, p.k+": "+p.v)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case meta.TypeUDT:
		rec, ok := v.(map[string]any)
		if !ok {
			return "", fmt.Errorf("cql: composite column value is %T, not a record", v)
		}
		codec, err := CodecFor(t.UDT)
		if err != nil {
			return "", err
		}
		return codec.Format(rec)
	default:
		return Format(v)
	}
}

// ElementValues normalizes a multi-key column value into its element slice
// in natural iteration order.
func ElementValues(v any) ([]any, error) {
	return elementSlice(v)
}

func elementSlice(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []int:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []int64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []uuid.UUID:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cql: %T is not a collection value", v)
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
