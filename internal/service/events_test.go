package service_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/sse"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (e *recordingEmitter) Emit(event sse.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) types() []sse.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sse.EventType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

func (e *recordingEmitter) last() sse.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[len(e.events)-1]
}

func TestBlendService_EmitsPublished(t *testing.T) {
	f := newFixture(t, map[string]string{"good-one": levelJSON("good-one", 1, 1, 0)})
	events := &recordingEmitter{}
	f.blend.SetEmitter(events)
	require.NoError(t, f.store.SetOverride(t.Context(), refGood))

	res, err := f.blend.RunDaily(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []sse.EventType{sse.EventBlendStarted, sse.EventBlendPublished}, events.types())
	data, ok := events.last().Data.(sse.BlendPublishedEventData)
	require.True(t, ok)
	assert.Equal(t, res.RunID, data.RunID)
	assert.Equal(t, domain.SourceOverride, data.Source)
	assert.Equal(t, domain.LevelID("good-one"), data.LevelID)
}

func TestBlendService_EmitsFailureWithStage(t *testing.T) {
	f := newFixture(t, nil)
	events := &recordingEmitter{}
	f.blend.SetEmitter(events)

	_, err := f.blend.Force(t.Context(), refMissing)
	require.Error(t, err)

	assert.Equal(t, []sse.EventType{sse.EventBlendStarted, sse.EventBlendFailed}, events.types())
	data, ok := events.last().Data.(sse.BlendFailedEventData)
	require.True(t, ok)
	assert.Equal(t, service.StageResolve, data.Stage)
	assert.Equal(t, "LEVEL_NOT_FOUND", data.Code)
	assert.Equal(t, refMissing, data.Level)
}

func TestBlendService_EmitsSelectFailure(t *testing.T) {
	f := newFixture(t, nil)
	events := &recordingEmitter{}
	f.blend.SetEmitter(events)

	_, err := f.blend.RunDaily(t.Context())
	require.Error(t, err)

	data, ok := events.last().Data.(sse.BlendFailedEventData)
	require.True(t, ok)
	assert.Equal(t, service.StageSelect, data.Stage)
	assert.Equal(t, "NOTHING_TO_BLEND", data.Code)
}

func TestCommandService_EmitsSelectionChanges(t *testing.T) {
	f := newFixture(t, nil)
	events := &recordingEmitter{}
	f.commands.SetEmitter(events)
	ctx := t.Context()

	_, err := f.commands.Schedule(ctx, "3-14", string(refGood))
	require.NoError(t, err)
	data, ok := events.last().Data.(sse.SelectionChangedEventData)
	require.True(t, ok)
	assert.Equal(t, sse.SelectionChangedEventData{
		Target: sse.TargetQueue,
		Action: sse.ActionAdded,
		Level:  refGood,
		Date:   "03 14",
	}, data)

	entry, err := f.commands.AddToPool(ctx, string(refGood))
	require.NoError(t, err)
	require.NoError(t, f.commands.RemoveFromPool(ctx, entry.ID))
	data, ok = events.last().Data.(sse.SelectionChangedEventData)
	require.True(t, ok)
	assert.Equal(t, sse.ActionRemoved, data.Action)
	assert.Equal(t, entry.ID, data.EntryID)

	// Rejected edits emit nothing.
	before := len(events.types())
	_, err = f.commands.SetOverride(ctx, "https://example.com/x.rdzip")
	require.Error(t, err)
	assert.Len(t, events.types(), before)
}
