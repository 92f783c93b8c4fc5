// Package storetest is the behavioural contract every SelectionStore backend
// must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
	"github.com/dailyblend/blender/internal/store"
)

// Factory opens a fresh, empty store. reopen closes st and returns a new
// handle over the same durable state.
type Factory func(t *testing.T) (st store.SelectionStore, reopen func() store.SelectionStore)

// RandomSetter is implemented by backends that accept an injected random source.
type RandomSetter interface {
	SetRandomIndex(store.RandomIndex)
}

const (
	levelA = domain.LevelReference("https://codex.rhythm.cafe/aaaa.rdzip")
	levelB = domain.LevelReference("https://codex.rhythm.cafe/bbbb.rdzip")
	levelC = domain.LevelReference("https://codex.rhythm.cafe/cccc.rdzip")
)

func date(t *testing.T, s string) domain.DateKey {
	t.Helper()
	d, err := domain.ParseDateKey(s)
	require.NoError(t, err)
	return d
}

// Run executes the contract suite against open.
func Run(t *testing.T, open Factory) {
	t.Run("OverrideTakeClears", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		_, ok, err := st.TakeOverride(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, st.SetOverride(ctx, levelA))

		ref, ok, err := st.PeekOverride(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, levelA, ref)

		ref, ok, err = st.TakeOverride(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, levelA, ref)

		_, ok, err = st.TakeOverride(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "override must be one-shot")
	})

	t.Run("OverrideLatestWins", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		require.NoError(t, st.SetOverride(ctx, levelA))
		require.NoError(t, st.SetOverride(ctx, levelB))

		ref, ok, err := st.TakeOverride(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, levelB, ref)
	})

	t.Run("EnqueueReplacesExisting", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()
		d := date(t, "03 14")

		require.NoError(t, st.Enqueue(ctx, d, levelA))
		require.NoError(t, st.Enqueue(ctx, d, levelB))

		ref, ok, err := st.Peek(ctx, d)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, levelB, ref)

		entries, err := st.ListQueue(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("ConsumeLeavesOtherDates", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		require.NoError(t, st.Enqueue(ctx, date(t, "03 14"), levelA))
		require.NoError(t, st.Enqueue(ctx, date(t, "03 15"), levelB))

		ref, ok, err := st.Consume(ctx, date(t, "03 14"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, levelA, ref)

		_, ok, err = st.Peek(ctx, date(t, "03 14"))
		require.NoError(t, err)
		assert.False(t, ok)

		ref, ok, err = st.Peek(ctx, date(t, "03 15"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, levelB, ref)
	})

	t.Run("ConsumeMissingDate", func(t *testing.T) {
		st, _ := open(t)

		_, ok, err := st.Consume(t.Context(), date(t, "07 04"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Unschedule", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()
		d := date(t, "12 25")

		require.NoError(t, st.Enqueue(ctx, d, levelA))
		require.NoError(t, st.Unschedule(ctx, d))

		_, ok, err := st.Peek(ctx, d)
		require.NoError(t, err)
		assert.False(t, ok)

		err = st.Unschedule(ctx, d)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("ListQueueCalendarOrder", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		require.NoError(t, st.Enqueue(ctx, date(t, "12 25"), levelC))
		require.NoError(t, st.Enqueue(ctx, date(t, "01 02"), levelA))
		require.NoError(t, st.Enqueue(ctx, date(t, "03 14"), levelB))

		entries, err := st.ListQueue(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "01 02", entries[0].Date.String())
		assert.Equal(t, levelA, entries[0].Ref)
		assert.Equal(t, "03 14", entries[1].Date.String())
		assert.Equal(t, "12 25", entries[2].Date.String())
		assert.Equal(t, levelC, entries[2].Ref)
	})

	t.Run("PoolInsertionOrderWithDuplicates", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		a, err := st.AddToPool(ctx, levelA)
		require.NoError(t, err)
		b, err := st.AddToPool(ctx, levelB)
		require.NoError(t, err)
		dup, err := st.AddToPool(ctx, levelA)
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, dup.ID)
		assert.False(t, a.AddedAt.IsZero())

		entries, err := st.ListPool(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, []string{a.ID, b.ID, dup.ID}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
		assert.Equal(t, levelA, entries[2].Ref)
	})

	t.Run("TakeRandomRemovesExactlyOne", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		for _, ref := range []domain.LevelReference{levelA, levelB, levelC} {
			_, err := st.AddToPool(ctx, ref)
			require.NoError(t, err)
		}

		taken, err := st.TakeRandom(ctx)
		require.NoError(t, err)

		entries, err := st.ListPool(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.NotEqual(t, taken.ID, e.ID)
		}
	})

	t.Run("TakeRandomEmptyPool", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		_, err := st.TakeRandom(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrPoolEmpty))

		entries, err := st.ListPool(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)

		_, err = st.TakeRandom(ctx)
		assert.True(t, errors.Is(err, store.ErrPoolEmpty))
	})

	t.Run("TakeRandomUsesInjectedSource", func(t *testing.T) {
		st, _ := open(t)
		setter, ok := st.(RandomSetter)
		if !ok {
			t.Skip("backend does not accept a random source")
		}
		ctx := t.Context()

		for _, ref := range []domain.LevelReference{levelA, levelB, levelC} {
			_, err := st.AddToPool(ctx, ref)
			require.NoError(t, err)
		}
		setter.SetRandomIndex(func(n int) int { return n - 1 })

		taken, err := st.TakeRandom(ctx)
		require.NoError(t, err)
		assert.Equal(t, levelC, taken.Ref)
	})

	t.Run("TakeRandomIsRoughlyUniform", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()
		refs := []domain.LevelReference{levelA, levelB, levelC}
		for _, ref := range refs {
			_, err := st.AddToPool(ctx, ref)
			require.NoError(t, err)
		}

		const trials = 600
		counts := make(map[domain.LevelReference]int)
		for range trials {
			taken, err := st.TakeRandom(ctx)
			require.NoError(t, err)
			counts[taken.Ref]++
			_, err = st.AddToPool(ctx, taken.Ref)
			require.NoError(t, err)
		}

		// Expected 200 each, standard deviation about 11.5.
		for _, ref := range refs {
			assert.InDelta(t, trials/len(refs), counts[ref], 80, "ref %s", ref)
		}
	})

	t.Run("ConcurrentTakesNeverRepeat", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		const n = 16
		for range n {
			_, err := st.AddToPool(ctx, levelA)
			require.NoError(t, err)
		}

		var (
			mu   sync.Mutex
			seen = make(map[string]bool)
			wg   sync.WaitGroup
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				taken, err := st.TakeRandom(ctx)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				assert.False(t, seen[taken.ID], "entry %s taken twice", taken.ID)
				seen[taken.ID] = true
			}()
		}
		wg.Wait()

		assert.Len(t, seen, n)
		_, err := st.TakeRandom(ctx)
		assert.True(t, errors.Is(err, store.ErrPoolEmpty))
	})

	t.Run("RemoveFromPool", func(t *testing.T) {
		st, _ := open(t)
		ctx := t.Context()

		a, err := st.AddToPool(ctx, levelA)
		require.NoError(t, err)
		b, err := st.AddToPool(ctx, levelB)
		require.NoError(t, err)

		require.NoError(t, st.RemoveFromPool(ctx, a.ID))

		entries, err := st.ListPool(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, b.ID, entries[0].ID)

		err = st.RemoveFromPool(ctx, a.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("StateSurvivesReopen", func(t *testing.T) {
		st, reopen := open(t)
		ctx := context.Background()

		require.NoError(t, st.SetOverride(ctx, levelA))
		require.NoError(t, st.Enqueue(ctx, date(t, "02 29"), levelB))
		entry, err := st.AddToPool(ctx, levelC)
		require.NoError(t, err)

		// Consumption must persist too.
		_, _, err = st.TakeOverride(ctx)
		require.NoError(t, err)

		st = reopen()

		_, ok, err := st.PeekOverride(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		ref, ok, err := st.Peek(ctx, date(t, "02 29"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, levelB, ref)

		entries, err := st.ListPool(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)

		next, err := st.AddToPool(ctx, levelA)
		require.NoError(t, err)
		entries, err = st.ListPool(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, next.ID, entries[1].ID, "insertion order must continue after reopen")
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		st, _ := open(t)

		require.NoError(t, st.Close())
		require.NoError(t, st.Close())

		assert.Error(t, st.SetOverride(context.Background(), levelA))
	})

	t.Run("CanceledContext", func(t *testing.T) {
		st, _ := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := st.SetOverride(ctx, levelA)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
