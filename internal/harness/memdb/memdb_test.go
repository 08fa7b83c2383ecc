package memdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetCommit_VisibleAfterCommit(t *testing.T) {
	db := New()
	ctx := context.Background()

	txn, err := db.Begin(ctx)
	require.NoError(t, err)
	txn.Set(ctx, []byte("a"), []byte("1"))
	require.NoError(t, txn.Commit(ctx))

	txn2, err := db.Begin(ctx)
	require.NoError(t, err)
	v, err := txn2.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
}

func TestUncommittedWrites_NotVisibleToOtherTransaction(t *testing.T) {
	db := New()
	ctx := context.Background()

	txn, err := db.Begin(ctx)
	require.NoError(t, err)
	txn.Set(ctx, []byte("a"), []byte("1"))

	other, err := db.Begin(ctx)
	require.NoError(t, err)
	v, err := other.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestGet_SeesOwnUncommittedWrite(t *testing.T) {
	db := New()
	ctx := context.Background()

	txn, err := db.Begin(ctx)
	require.NoError(t, err)
	txn.Set(ctx, []byte("a"), []byte("1"))
	v, err := txn.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
}

func TestClear_RemovesCommittedValue(t *testing.T) {
	db := New()
	ctx := context.Background()

	txn, err := db.Begin(ctx)
	require.NoError(t, err)
	txn.Set(ctx, []byte("a"), []byte("1"))
	require.NoError(t, txn.Commit(ctx))

	txn2, err := db.Begin(ctx)
	require.NoError(t, err)
	txn2.Clear(ctx, []byte("a"))
	require.NoError(t, txn2.Commit(ctx))

	txn3, err := db.Begin(ctx)
	require.NoError(t, err)
	v, err := txn3.Get(ctx, []byte("a"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestGetRange_OverlaysUncommittedWritesAndClears(t *testing.T) {
	db := New()
	ctx := context.Background()

	setup, err := db.Begin(ctx)
	require.NoError(t, err)
	setup.Set(ctx, []byte("a"), []byte("1"))
	setup.Set(ctx, []byte("b"), []byte("2"))
	setup.Set(ctx, []byte("c"), []byte("3"))
	require.NoError(t, setup.Commit(ctx))

	txn, err := db.Begin(ctx)
	require.NoError(t, err)
	txn.Clear(ctx, []byte("b"))
	txn.Set(ctx, []byte("d"), []byte("4"))

	rows, err := txn.GetRange(ctx, []byte("a"), []byte("z"))
	require.NoError(t, err)

	byKey := map[string]string{}
	for _, row := range rows {
		byKey[string(row.Key)] = string(row.Value)
	}
	require.Equal(t, map[string]string{"a": "1", "c": "3", "d": "4"}, byKey)
}

func TestClearRange_RemovesCommittedAndStagedKeysInBounds(t *testing.T) {
	db := New()
	ctx := context.Background()

	setup, err := db.Begin(ctx)
	require.NoError(t, err)
	setup.Set(ctx, []byte("a"), []byte("1"))
	setup.Set(ctx, []byte("b"), []byte("2"))
	require.NoError(t, setup.Commit(ctx))

	txn, err := db.Begin(ctx)
	require.NoError(t, err)
	txn.Set(ctx, []byte("c"), []byte("3"))
	txn.ClearRange(ctx, []byte("a"), []byte("z"))
	require.NoError(t, txn.Commit(ctx))

	final, err := db.Begin(ctx)
	require.NoError(t, err)
	rows, err := final.GetRange(ctx, []byte("a"), []byte("z"))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestStaticLocator_ReturnsConfiguredEndpoints(t *testing.T) {
	l := StaticLocator{"127.0.0.1:1", "127.0.0.1:2"}
	endpoints, err := l.TesterEndpoints(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"127.0.0.1:1", "127.0.0.1:2"}, endpoints)
}
