package stmt

import (
	"github.com/cqlforge/cqlforge/cql"
	"github.com/cqlforge/cqlforge/meta"
)

// expansion is one assignment of a single element to every multi-key column
// of a table.
type expansion map[string]any // multi-key column name -> element value

// expandMultiKeys builds the cartesian product of the multi-key columns'
// value sets: k columns with sizes n1..nk yield n1*...*nk expansions,
// ordered by declared-column order then each set's natural iteration order.
// Columns without a bound value are reported by name so the caller can fail
// with the right key error.
func expandMultiKeys(columns []*meta.Field, values map[string]any) ([]expansion, []string, error) {
	if len(columns) == 0 {
		return []expansion{{}}, nil, nil
	}

	sets := make([][]any, len(columns))
	var missing []string
	for i, f := range columns {
		v, ok := values[f.Name]
		if !ok || v == nil {
			missing = append(missing, f.Name)
			continue
		}
		elems, err := cql.ElementValues(v)
		if err != nil {
			// A single element stands for a one-element set.
			elems = []any{v}
		}
		sets[i] = elems
	}
	if len(missing) > 0 {
		return nil, missing, nil
	}

	out := []expansion{{}}
	// First declared column varies slowest: column-major enumeration.
	for i, f := range columns {
		next := make([]expansion, 0, len(out)*len(sets[i]))
		for _, base := range out {
			for _, elem := range sets[i] {
				e := make(expansion, len(base)+1)
				for k, v := range base {
					e[k] = v
				}
				e[f.Name] = elem
				next = append(next, e)
			}
		}
		out = next
	}
	return out, nil, nil
}
