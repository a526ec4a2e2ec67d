package stmt_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqlforge/cqlforge/meta"
	"github.com/cqlforge/cqlforge/stmt"
)

func TestUpdateCompile(t *testing.T) {
	upd := stmt.NewUpdate(accountContext(t)).
		Key("id", accountID).
		Set("name", "Grace").
		Set("balance", int64(12))

	texts, err := upd.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t,
		"UPDATE shop_acme.accounts SET name = 'Grace', balance = 12"+
			" WHERE id = 11111111-2222-3333-4444-555555555555",
		texts[0])
}

func TestUpdateConditions(t *testing.T) {
	upd := stmt.NewUpdate(accountContext(t)).
		Key("id", accountID).
		Set("name", "Grace").
		IfExists()
	texts, err := upd.Compile()
	require.NoError(t, err)
	assert.Contains(t, texts[0], " IF EXISTS")

	upd = stmt.NewUpdate(accountContext(t)).
		Key("id", accountID).
		Set("name", "Grace").
		If("balance", ">", int64(0))
	texts, err = upd.Compile()
	require.NoError(t, err)
	assert.Contains(t, texts[0], " IF balance > 0")
}

func TestUpdateConditionWithUnformattableValueFails(t *testing.T) {
	upd := stmt.NewUpdate(accountContext(t)).
		Key("id", accountID).
		Set("name", "Grace").
		If("balance", "=", struct{}{})
	_, err := upd.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition on column balance")
}

func TestUpdateUsingPrecedesSet(t *testing.T) {
	upd := stmt.NewUpdate(accountContext(t)).
		Key("id", accountID).
		Set("name", "Grace").
		UsingTTL(30)
	texts, err := upd.Compile()
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE shop_acme.accounts USING TTL 30 SET name = 'Grace'"+
			" WHERE id = 11111111-2222-3333-4444-555555555555",
		texts[0])
}

func TestUpdateKeysFromInstance(t *testing.T) {
	ctx := accountContext(t)
	ctx.SetInstance(map[string]any{"id": accountID})
	upd := stmt.NewUpdate(ctx).Set("balance", int64(5))
	texts, err := upd.Compile()
	require.NoError(t, err)
	assert.Contains(t, texts[0], "WHERE id = 11111111-2222-3333-4444-555555555555")
}

func TestUpdateSetOnKeyColumnFails(t *testing.T) {
	upd := stmt.NewUpdate(accountContext(t)).
		Key("id", accountID).
		Set("id", uuid.New())
	_, err := upd.Compile()
	require.ErrorIs(t, err, stmt.ErrKeyChangeWithoutOld)
}

func TestUpdateReplaceCompilesDeleteThenInsert(t *testing.T) {
	newID := uuid.MustParse("99999999-8888-7777-6666-555555555555")
	ctx := accountContext(t)
	ctx.SetInstance(map[string]any{"id": accountID, "name": "Ada", "balance": int64(10)})

	upd := stmt.NewUpdate(ctx).
		Replace("id", accountID, newID).
		Set("balance", int64(11))

	texts, err := upd.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 2)
	assert.Equal(t,
		"DELETE FROM shop_acme.accounts WHERE id = 11111111-2222-3333-4444-555555555555",
		texts[0])
	assert.Equal(t,
		"INSERT INTO shop_acme.accounts (id, name, balance) VALUES (99999999-8888-7777-6666-555555555555, 'Ada', 11)",
		texts[1])
}

func TestUpdateReplaceWithEqualValuesStaysUpdate(t *testing.T) {
	upd := stmt.NewUpdate(accountContext(t)).
		Key("id", accountID).
		Replace("id", accountID, accountID).
		Set("name", "Grace")
	texts, err := upd.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "UPDATE ")
}

func TestUpdateCounter(t *testing.T) {
	decl := &meta.EntityDecl{
		Name:     "stats",
		Keyspace: meta.KeyspaceDecl{Template: "app"},
		Tables: []meta.TableDecl{{
			Name:    "stats",
			Primary: true,
			Columns: []meta.ColumnDecl{
				{Name: "id", Type: meta.Scalar(meta.TypeUUID), Key: meta.KeyPartition},
				{Name: "hits", Type: meta.Scalar(meta.TypeCounter), Counter: true},
			},
		}},
	}
	entity, err := meta.Resolve(decl)
	require.NoError(t, err)

	upd := stmt.NewUpdate(stmt.NewContext(entity)).
		Key("id", accountID).
		Add("hits", 3)
	texts, err := upd.Compile()
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE app.stats SET hits = hits + 3 WHERE id = 11111111-2222-3333-4444-555555555555",
		texts[0])

	upd = stmt.NewUpdate(stmt.NewContext(entity)).
		Key("id", accountID).
		Add("hits", -2)
	texts, err = upd.Compile()
	require.NoError(t, err)
	assert.Contains(t, texts[0], "hits = hits - 2")
}

func TestUpdateCaseInsensitiveKeyUsesShadow(t *testing.T) {
	decl := &meta.EntityDecl{
		Name:     "login",
		Keyspace: meta.KeyspaceDecl{Template: "app"},
		Tables: []meta.TableDecl{{
			Name:    "users_by_login",
			Primary: true,
			Columns: []meta.ColumnDecl{
				{Name: "login", Type: meta.Scalar(meta.TypeText), Key: meta.KeyPartition, CaseInsensitive: true},
				{Name: "display", Type: meta.Scalar(meta.TypeText)},
			},
		}},
	}
	entity, err := meta.Resolve(decl)
	require.NoError(t, err)

	upd := stmt.NewUpdate(stmt.NewContext(entity)).
		Key("login", "Ada@Example.COM").
		Set("display", "Ada")
	texts, err := upd.Compile()
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE app.users_by_login SET display = 'Ada' WHERE login_lower = 'ada@example.com'",
		texts[0])
}
