package stmt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqlforge/cqlforge/meta"
	"github.com/cqlforge/cqlforge/stmt"
)

func TestDeleteRow(t *testing.T) {
	del := stmt.NewDelete(accountContext(t)).Key("id", accountID)
	texts, err := del.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t,
		"DELETE FROM shop_acme.accounts WHERE id = 11111111-2222-3333-4444-555555555555",
		texts[0])
}

func TestDeleteColumnsWithTimestampAndCondition(t *testing.T) {
	del := stmt.NewDelete(accountContext(t)).
		Key("id", accountID).
		Column("name", "balance").
		UsingTimestamp(5000).
		IfExists()
	texts, err := del.Compile()
	require.NoError(t, err)
	assert.Equal(t,
		"DELETE name, balance FROM shop_acme.accounts USING TIMESTAMP 5000"+
			" WHERE id = 11111111-2222-3333-4444-555555555555 IF EXISTS",
		texts[0])
}

func TestDeleteCustomCondition(t *testing.T) {
	del := stmt.NewDelete(accountContext(t)).
		Key("id", accountID).
		If("balance", "=", int64(0))
	texts, err := del.Compile()
	require.NoError(t, err)
	assert.Contains(t, texts[0], " IF balance = 0")
}

func TestDeleteConditionWithUnformattableValueFails(t *testing.T) {
	del := stmt.NewDelete(accountContext(t)).
		Key("id", accountID).
		If("balance", "=", struct{}{})
	_, err := del.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition on column balance")
}

func TestDeleteMissingKey(t *testing.T) {
	del := stmt.NewDelete(accountContext(t))
	_, err := del.Compile()
	var missing *stmt.MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"id"}, missing.Columns)
}

func TestDeleteMultiKeyExpansion(t *testing.T) {
	decl := &meta.EntityDecl{
		Name:     "membership",
		Keyspace: meta.KeyspaceDecl{Template: "app"},
		Tables: []meta.TableDecl{{
			Name:    "memberships",
			Primary: true,
			Columns: []meta.ColumnDecl{
				{Name: "groups", Type: meta.SetOf(meta.Scalar(meta.TypeText)), Key: meta.KeyPartition, MultiKey: true},
				{Name: "member_id", Type: meta.Scalar(meta.TypeUUID), Key: meta.KeyClustering},
			},
		}},
	}
	entity, err := meta.Resolve(decl)
	require.NoError(t, err)

	del := stmt.NewDelete(stmt.NewContext(entity)).
		Key("groups", []string{"staff", "ops"}).
		Key("member_id", accountID)
	texts, err := del.Compile()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"DELETE FROM app.memberships WHERE groups_entry = 'staff' AND member_id = 11111111-2222-3333-4444-555555555555",
		"DELETE FROM app.memberships WHERE groups_entry = 'ops' AND member_id = 11111111-2222-3333-4444-555555555555",
	}, texts)
}
