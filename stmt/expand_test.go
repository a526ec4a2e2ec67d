package stmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqlforge/cqlforge/meta"
)

func multiKeyTable(t *testing.T) *meta.Table {
	t.Helper()
	decl := &meta.EntityDecl{
		Name:     "membership",
		Keyspace: meta.KeyspaceDecl{Template: "app"},
		Tables: []meta.TableDecl{{
			Name:    "memberships",
			Primary: true,
			Columns: []meta.ColumnDecl{
				{Name: "groups", Type: meta.SetOf(meta.Scalar(meta.TypeText)), Key: meta.KeyPartition, MultiKey: true},
				{Name: "roles", Type: meta.SetOf(meta.Scalar(meta.TypeText)), Key: meta.KeyClustering, MultiKey: true},
				{Name: "member_id", Type: meta.Scalar(meta.TypeUUID), Key: meta.KeyClustering},
			},
		}},
	}
	entity, err := meta.Resolve(decl)
	require.NoError(t, err)
	return entity.PrimaryTable()
}

func TestExpandCartesianColumnMajor(t *testing.T) {
	table := multiKeyTable(t)
	values := map[string]any{
		"groups": []string{"g1", "g2"},
		"roles":  []string{"r1", "r2", "r3"},
	}
	expansions, missing, err := expandMultiKeys(table.MultiKeys, values)
	require.NoError(t, err)
	require.Empty(t, missing)
	require.Len(t, expansions, 6)

	// First declared column varies slowest.
	want := []expansion{
		{"groups": "g1", "roles": "r1"},
		{"groups": "g1", "roles": "r2"},
		{"groups": "g1", "roles": "r3"},
		{"groups": "g2", "roles": "r1"},
		{"groups": "g2", "roles": "r2"},
		{"groups": "g2", "roles": "r3"},
	}
	for i, e := range expansions {
		assert.Equal(t, want[i], e, "expansion %d", i)
	}
}

func TestExpandSingleValueActsAsOneElementSet(t *testing.T) {
	table := multiKeyTable(t)
	values := map[string]any{
		"groups": "g1",
		"roles":  []string{"r1", "r2"},
	}
	expansions, missing, err := expandMultiKeys(table.MultiKeys, values)
	require.NoError(t, err)
	require.Empty(t, missing)
	require.Len(t, expansions, 2)
	assert.Equal(t, "g1", expansions[0]["groups"])
	assert.Equal(t, "g1", expansions[1]["groups"])
}

func TestExpandReportsMissingColumns(t *testing.T) {
	table := multiKeyTable(t)
	_, missing, err := expandMultiKeys(table.MultiKeys, map[string]any{"roles": []string{"r1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"groups"}, missing)
}

func TestExpandNoMultiKeysYieldsIdentity(t *testing.T) {
	expansions, missing, err := expandMultiKeys(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, missing)
	require.Len(t, expansions, 1)
	assert.Empty(t, expansions[0])
}
