package discord

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
	"github.com/dailyblend/blender/internal/service"
)

const levelA = "https://codex.rhythm.cafe/abc.rdzip"

// fakeCommands records calls and returns canned results.
type fakeCommands struct {
	calls []string
	err   error
	queue []domain.ScheduledEntry
	pool  []domain.PoolEntry
}

func (f *fakeCommands) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeCommands) SetOverride(_ context.Context, raw string) (domain.LevelReference, error) {
	return domain.LevelReference(strings.TrimSpace(raw)), f.record("override")
}

func (f *fakeCommands) AddToPool(_ context.Context, raw string) (domain.PoolEntry, error) {
	return domain.PoolEntry{ID: "pool-1", Ref: domain.LevelReference(raw)}, f.record("pool")
}

func (f *fakeCommands) Schedule(_ context.Context, rawDate, raw string) (domain.ScheduledEntry, error) {
	if err := f.record("schedule"); err != nil {
		return domain.ScheduledEntry{}, err
	}
	date, err := domain.ParseDateKey(rawDate)
	return domain.ScheduledEntry{Date: date, Ref: domain.LevelReference(raw)}, err
}

func (f *fakeCommands) Force(_ context.Context, raw string) (*service.Result, error) {
	return &service.Result{Selection: domain.Selection{Ref: domain.LevelReference(raw), Source: domain.SourceForce}}, f.record("force")
}

func (f *fakeCommands) ListQueue(context.Context) ([]domain.ScheduledEntry, error) {
	return f.queue, f.record("queue")
}

func (f *fakeCommands) ListPool(context.Context) ([]domain.PoolEntry, error) {
	return f.pool, f.record("random")
}

func (f *fakeCommands) Status(context.Context) (*service.Status, error) {
	return &service.Status{QueueSize: 2, PoolSize: 3}, f.record("status")
}

func newTestDispatcher(cmds Commands) *Dispatcher {
	return NewDispatcher(cmds, []string{"blender"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func request(command string, options map[string]string) Request {
	return Request{Command: command, Options: options, User: "alice", Roles: []string{"member", "blender"}}
}

func TestDispatch_Replies(t *testing.T) {
	d := newTestDispatcher(&fakeCommands{})

	tests := []struct {
		command string
		options map[string]string
		want    string
	}{
		{commandBlend, map[string]string{"level": levelA}, "Blending " + levelA + " today."},
		{commandRandomBlend, map[string]string{"level": levelA}, "Blending " + levelA + " randomly."},
		{commandQueueBlend, map[string]string{"level": levelA, "date": "3 14"}, "Blending " + levelA + " on 03 14."},
		{commandForceBlend, map[string]string{"level": levelA}, "Blending!"},
		{commandViewQueue, nil, "Queue is empty."},
		{commandViewRandom, nil, "Pool is empty."},
		{commandStatus, nil, "Override: none\nQueued: 2\nRandom pool: 3"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			reply := d.Dispatch(t.Context(), request(tt.command, tt.options))
			assert.Equal(t, tt.want, reply.Content)
			assert.False(t, reply.Ephemeral)
		})
	}
}

func TestDispatch_RoleGate(t *testing.T) {
	cmds := &fakeCommands{}
	d := newTestDispatcher(cmds)

	req := request(commandBlend, map[string]string{"level": levelA})
	req.Roles = []string{"member"}

	reply := d.Dispatch(t.Context(), req)

	assert.Equal(t, "You are not allowed to use this command.", reply.Content)
	assert.True(t, reply.Ephemeral)
	assert.Empty(t, cmds.calls, "core must not be invoked")
}

func TestDispatch_NoRolesConfiguredDeniesEveryone(t *testing.T) {
	cmds := &fakeCommands{}
	d := NewDispatcher(cmds, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	reply := d.Dispatch(t.Context(), request(commandViewQueue, nil))

	assert.Equal(t, deniedMessage, reply.Content)
	assert.Empty(t, cmds.calls)
}

func TestDispatch_FailureRepliesWithMessage(t *testing.T) {
	cmds := &fakeCommands{err: errors.InvalidSourcef("unknown hostname: 'example.com', expected 'codex.rhythm.cafe'")}
	d := newTestDispatcher(cmds)

	reply := d.Dispatch(t.Context(), request(commandBlend, map[string]string{"level": "https://example.com/x.rdzip"}))

	assert.Equal(t, "unknown hostname: 'example.com', expected 'codex.rhythm.cafe'", reply.Content)
	assert.True(t, reply.Ephemeral)
}

func TestDispatch_ForceBusy(t *testing.T) {
	d := newTestDispatcher(&fakeCommands{err: errors.ErrBusy})

	reply := d.Dispatch(t.Context(), request(commandForceBlend, map[string]string{"level": levelA}))

	assert.Equal(t, "a blend is already running", reply.Content)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d := newTestDispatcher(&fakeCommands{})

	reply := d.Dispatch(t.Context(), request("coffee", nil))

	assert.Contains(t, reply.Content, `unknown command "coffee"`)
}

func TestDispatch_ListsAreRendered(t *testing.T) {
	d := newTestDispatcher(&fakeCommands{
		queue: []domain.ScheduledEntry{{Date: domain.DateKey{Month: 3, Day: 14}, Ref: levelA}},
		pool:  []domain.PoolEntry{{ID: "pool-1", Ref: levelA}, {ID: "pool-2", Ref: levelA}},
	})

	assert.Equal(t, "03 14: "+levelA, d.Dispatch(t.Context(), request(commandViewQueue, nil)).Content)
	assert.Equal(t, levelA+"\n"+levelA, d.Dispatch(t.Context(), request(commandViewRandom, nil)).Content)
}

func TestClip(t *testing.T) {
	short := "03 14: " + levelA
	assert.Equal(t, short, clip(short))

	line := strings.Repeat("x", 99)
	long := strings.TrimSuffix(strings.Repeat(line+"\n", 30), "\n")
	got := clip(long)

	assert.LessOrEqual(t, len([]rune(got)), maxContentRunes)
	assert.True(t, strings.HasSuffix(got, "\n…"))
	for l := range strings.SplitSeq(strings.TrimSuffix(got, "\n…"), "\n") {
		assert.Equal(t, line, l, "only whole lines are kept")
	}
}
