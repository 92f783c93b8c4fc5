package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/validation"
)

func TestCommandService_SetOverride(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	ref, err := f.commands.SetOverride(ctx, "  "+string(refGood)+"  ")
	require.NoError(t, err)
	assert.Equal(t, refGood, ref, "reference is trimmed before storing")

	got, ok, err := f.commands.Override(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, refGood, got)
}

func TestCommandService_ClearOverride(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	_, ok, err := f.commands.ClearOverride(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.commands.SetOverride(ctx, string(refGood))
	require.NoError(t, err)

	got, ok, err := f.commands.ClearOverride(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, refGood, got)

	_, ok, err = f.commands.Override(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommandService_RejectsForeignHostImmediately(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	_, err := f.commands.SetOverride(ctx, "https://example.com/level.rdzip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSource))
	assert.Contains(t, err.Error(), "unknown hostname: 'example.com', expected 'codex.rhythm.cafe'")

	_, err = f.commands.AddToPool(ctx, "https://example.com/level.rdzip")
	assert.True(t, errors.Is(err, errors.ErrInvalidSource))

	pool, err := f.commands.ListPool(ctx)
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestCommandService_EmptyLevel(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.commands.SetOverride(t.Context(), "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestCommandService_Schedule(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	entry, err := f.commands.Schedule(ctx, "3/14", string(refGood))
	require.NoError(t, err)
	assert.Equal(t, "03 14", entry.Date.String())

	_, err = f.commands.Schedule(ctx, "03 14", string(refMissing))
	require.NoError(t, err)

	entries, err := f.commands.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, refMissing, entries[0].Ref, "re-queueing a date replaces it")

	require.NoError(t, f.commands.Unschedule(ctx, "03-14"))
	err = f.commands.Unschedule(ctx, "03 14")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCommandService_ScheduleBadDate(t *testing.T) {
	f := newFixture(t, nil)

	for _, date := range []string{"", "13 01", "02 30", "tomorrow"} {
		t.Run(date, func(t *testing.T) {
			_, err := f.commands.Schedule(t.Context(), date, string(refGood))
			require.Error(t, err)
			assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
			assert.Contains(t, err.Error(), "date")
		})
	}
}

func TestCommandService_PoolRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	first, err := f.commands.AddToPool(ctx, string(refGood))
	require.NoError(t, err)
	_, err = f.commands.AddToPool(ctx, string(refGood))
	require.NoError(t, err)

	require.NoError(t, f.commands.RemoveFromPool(ctx, first.ID))

	pool, err := f.commands.ListPool(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 1)
}

func TestCommandService_StatusWithoutRunner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	_, err := f.commands.SetOverride(ctx, string(refGood))
	require.NoError(t, err)
	_, err = f.commands.AddToPool(ctx, string(refGood))
	require.NoError(t, err)

	st, err := f.commands.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, refGood, st.Override)
	assert.Equal(t, 0, st.QueueSize)
	assert.Equal(t, 1, st.PoolSize)
	assert.True(t, st.NextFire.IsZero())
	assert.Contains(t, st.Text(), "Random pool: 1")
}

type fakeRunner struct {
	busy  bool
	calls int
	next  time.Time
}

func (r *fakeRunner) Force(ctx context.Context, job func(context.Context) error) error {
	r.calls++
	if r.busy {
		return errors.ErrBusy
	}
	return job(ctx)
}

func (r *fakeRunner) Running() bool       { return r.busy }
func (r *fakeRunner) NextFire() time.Time { return r.next }

func TestCommandService_ForceGoesThroughRunner(t *testing.T) {
	f := newFixture(t, map[string]string{"good-one": levelJSON("good-one", 0, 1, 1)})
	runner := &fakeRunner{next: fixedNow.Add(24 * time.Hour)}
	commands := service.NewCommandService(f.store, f.blend, runner, validation.New(), testLogger())

	res, err := commands.Force(t.Context(), string(refGood))
	require.NoError(t, err)
	assert.Equal(t, domain.SourceForce, res.Selection.Source)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, f.publisher.count())

	runner.busy = true
	_, err = commands.Force(t.Context(), string(refGood))
	assert.True(t, errors.Is(err, errors.ErrBusy))
	assert.Equal(t, 1, f.publisher.count())

	st, err := commands.Status(t.Context())
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, fixedNow.Add(24*time.Hour), st.NextFire)
}

func TestCommandService_ForceInvalidSourceSkipsRunner(t *testing.T) {
	f := newFixture(t, nil)
	runner := &fakeRunner{}
	commands := service.NewCommandService(f.store, f.blend, runner, validation.New(), testLogger())

	_, err := commands.Force(t.Context(), "https://example.com/x.rdzip")
	assert.True(t, errors.Is(err, errors.ErrInvalidSource))
	assert.Zero(t, runner.calls)
}

func TestRenderQueue(t *testing.T) {
	assert.Equal(t, "Queue is empty.", service.RenderQueue(nil))

	d1, _ := domain.NewDateKey(1, 2)
	d2, _ := domain.NewDateKey(12, 25)
	got := service.RenderQueue([]domain.ScheduledEntry{
		{Date: d1, Ref: "https://codex.rhythm.cafe/a.rdzip"},
		{Date: d2, Ref: "https://codex.rhythm.cafe/b.rdzip"},
	})
	assert.Equal(t, "01 02: https://codex.rhythm.cafe/a.rdzip\n12 25: https://codex.rhythm.cafe/b.rdzip", got)
}

func TestRenderPool(t *testing.T) {
	assert.Equal(t, "Pool is empty.", service.RenderPool(nil))
	assert.Equal(t, "https://codex.rhythm.cafe/a.rdzip", service.RenderPool([]domain.PoolEntry{
		{ID: "pool-1", Ref: "https://codex.rhythm.cafe/a.rdzip"},
	}))
}
