package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore_SetGet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "sess-1", "count", int64(3)))

	got, ok, err := st.Get(ctx, "sess-1", "count")
	require.NoError(t, err)
	require.True(t, ok)
	// JSON round-trips numbers as float64.
	assert.Equal(t, float64(3), got)
}

func TestStore_GetMissingKey(t *testing.T) {
	st := openTestStore(t)

	_, ok, err := st.Get(context.Background(), "sess-1", "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetOverwrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "sess-1", "name", "first"))
	require.NoError(t, st.Set(ctx, "sess-1", "name", "second"))

	got, ok, err := st.Get(ctx, "sess-1", "name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestStore_SessionsIsolated(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "sess-a", "k", "va"))
	require.NoError(t, st.Set(ctx, "sess-b", "k", "vb"))

	got, ok, err := st.Get(ctx, "sess-a", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "va", got)

	_, ok, err = st.Get(ctx, "sess-c", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Has(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	ok, err := st.Has(ctx, "sess-1", "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, "sess-1", "k", true))

	ok, err = st.Has(ctx, "sess-1", "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_KeysInWriteOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "sess-1", "zeta", 1))
	require.NoError(t, st.Set(ctx, "sess-1", "alpha", 2))

	keys, err := st.Keys(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, keys)
}

func TestStore_Clear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "sess-1", "k", "v"))
	require.NoError(t, st.Clear(ctx, "sess-1"))

	_, ok, err := st.Get(ctx, "sess-1", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_QueryPassthrough(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "sess-1", "count", int64(3)))
	require.NoError(t, st.Set(ctx, "sess-2", "count", int64(9)))

	rows, err := st.Query(ctx,
		`SELECT value FROM session_state WHERE session_id = ? AND key = ?`,
		"sess-1", "count")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var encoded string
	require.NoError(t, rows.Scan(&encoded))
	assert.Equal(t, "3", encoded)

	// Parameterized filter matched exactly one session's row.
	assert.False(t, rows.Next())
	require.NoError(t, rows.Err())
}

func TestStore_ComplexValues(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	in := map[string]any{"items": []any{"a", "b"}, "n": float64(2)}
	require.NoError(t, st.Set(ctx, "sess-1", "cart", in))

	got, ok, err := st.Get(ctx, "sess-1", "cart")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, got)
}
