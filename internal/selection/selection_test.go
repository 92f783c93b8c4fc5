package selection_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
	"github.com/dailyblend/blender/internal/selection"
	"github.com/dailyblend/blender/internal/store"
)

const (
	overrideRef = domain.LevelReference("https://codex.rhythm.cafe/override.rdzip")
	queuedRef   = domain.LevelReference("https://codex.rhythm.cafe/queued.rdzip")
	poolRef     = domain.LevelReference("https://codex.rhythm.cafe/pool.rdzip")
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "blend.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustDate(t *testing.T, s string) domain.DateKey {
	t.Helper()
	d, err := domain.ParseDateKey(s)
	require.NoError(t, err)
	return d
}

func TestSelectForToday_Priority(t *testing.T) {
	ctx := t.Context()
	st := newStore(t)
	today := mustDate(t, "03 14")

	require.NoError(t, st.SetOverride(ctx, overrideRef))
	require.NoError(t, st.Enqueue(ctx, today, queuedRef))
	_, err := st.AddToPool(ctx, poolRef)
	require.NoError(t, err)

	sel, err := selection.SelectForToday(ctx, st, today)
	require.NoError(t, err)
	assert.Equal(t, domain.Selection{Ref: overrideRef, Source: domain.SourceOverride}, sel)

	// Override consumed; queue and pool untouched.
	_, ok, err := st.Peek(ctx, today)
	require.NoError(t, err)
	assert.True(t, ok)
	pool, err := st.ListPool(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 1)

	sel, err = selection.SelectForToday(ctx, st, today)
	require.NoError(t, err)
	assert.Equal(t, domain.Selection{Ref: queuedRef, Source: domain.SourceQueue}, sel)

	pool, err = st.ListPool(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 1)

	sel, err = selection.SelectForToday(ctx, st, today)
	require.NoError(t, err)
	assert.Equal(t, domain.Selection{Ref: poolRef, Source: domain.SourcePool}, sel)
}

func TestSelectForToday_QueueOnlyMatchesToday(t *testing.T) {
	ctx := t.Context()
	st := newStore(t)

	require.NoError(t, st.Enqueue(ctx, mustDate(t, "03 15"), queuedRef))
	_, err := st.AddToPool(ctx, poolRef)
	require.NoError(t, err)

	sel, err := selection.SelectForToday(ctx, st, mustDate(t, "03 14"))
	require.NoError(t, err)
	assert.Equal(t, domain.SourcePool, sel.Source)

	entries, err := st.ListQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "tomorrow's entry must survive")
}

func TestSelectForToday_NothingToBlend(t *testing.T) {
	ctx := t.Context()
	st := newStore(t)
	require.NoError(t, st.Enqueue(ctx, mustDate(t, "12 25"), queuedRef))

	_, err := selection.SelectForToday(ctx, st, mustDate(t, "03 14"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNothingToBlend))
	assert.True(t, errors.Is(err, errors.ErrPoolEmpty))
	assert.Equal(t, errors.CodeNothingToBlend, errors.CodeOf(err))

	entries, err := st.ListQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSelectForToday_PoolShrinksByOne(t *testing.T) {
	ctx := t.Context()
	st := newStore(t)
	for range 4 {
		_, err := st.AddToPool(ctx, poolRef)
		require.NoError(t, err)
	}

	_, err := selection.SelectForToday(ctx, st, mustDate(t, "01 01"))
	require.NoError(t, err)

	pool, err := st.ListPool(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 3)
}
