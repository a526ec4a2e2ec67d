package stmt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqlforge/cqlforge/catalog"
	"github.com/cqlforge/cqlforge/meta"
	"github.com/cqlforge/cqlforge/stmt"
)

type fakeCatalog struct {
	cols  []catalog.Column
	found bool
}

func (f fakeCatalog) Columns(ctx context.Context, keyspace, table string) ([]catalog.Column, bool, error) {
	return f.cols, f.found, nil
}

func TestAlterTableAbsentCompilesCreation(t *testing.T) {
	entity, err := meta.Resolve(accountDecl())
	require.NoError(t, err)
	sctx := stmt.NewContext(entity).BindKeyspaceKey("tenant", "acme")

	at, err := stmt.NewAlterTable(context.Background(), sctx, fakeCatalog{}, entity.PrimaryTable())
	require.NoError(t, err)
	assert.True(t, at.TableAbsent())

	texts, err := at.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t,
		"CREATE TABLE shop_acme.accounts (id uuid, name text, balance bigint, PRIMARY KEY ((id)))",
		texts[0])
}

func TestAlterTableConverges(t *testing.T) {
	entity, err := meta.Resolve(accountDecl())
	require.NoError(t, err)
	sctx := stmt.NewContext(entity).BindKeyspaceKey("tenant", "acme")

	live := fakeCatalog{
		found: true,
		cols: []catalog.Column{
			{Name: "id", Kind: catalog.KindPartitionKey, TypeName: "uuid", Position: 0},
			{Name: "name", Kind: catalog.KindRegular, TypeName: "text", Position: -1},
		},
	}
	at, err := stmt.NewAlterTable(context.Background(), sctx, live, entity.PrimaryTable())
	require.NoError(t, err)
	assert.False(t, at.TableAbsent())

	texts, err := at.Compile()
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER TABLE shop_acme.accounts ADD balance bigint"}, texts)
}

func TestAlterTableUpToDateCompilesNothing(t *testing.T) {
	entity, err := meta.Resolve(accountDecl())
	require.NoError(t, err)
	sctx := stmt.NewContext(entity).BindKeyspaceKey("tenant", "acme")

	live := fakeCatalog{
		found: true,
		cols: []catalog.Column{
			{Name: "id", Kind: catalog.KindPartitionKey, TypeName: "uuid", Position: 0},
			{Name: "name", Kind: catalog.KindRegular, TypeName: "text", Position: -1},
			{Name: "balance", Kind: catalog.KindRegular, TypeName: "bigint", Position: -1},
		},
	}
	at, err := stmt.NewAlterTable(context.Background(), sctx, live, entity.PrimaryTable())
	require.NoError(t, err)

	texts, err := at.Compile()
	require.NoError(t, err)
	assert.Empty(t, texts)

	n, err := at.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}
