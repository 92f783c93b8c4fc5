// Package sse streams blend activity to admin API clients as Server-Sent Events.
package sse

import (
	"time"

	"github.com/dailyblend/blender/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBlendStarted is sent when a scheduled or forced cycle begins.
	EventBlendStarted EventType = "blend.started"
	// EventBlendPublished is sent after the announcement was delivered.
	EventBlendPublished EventType = "blend.published"
	// EventBlendFailed is sent when a cycle stops at any stage.
	EventBlendFailed EventType = "blend.failed"

	// EventSelectionChanged is sent after an override, queue or pool edit.
	EventSelectionChanged EventType = "selection.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// BlendStartedEventData is the data payload for blend start events.
type BlendStartedEventData struct {
	RunID  string `json:"run_id"`
	Forced bool   `json:"forced"`
}

// BlendPublishedEventData is the data payload for blend publish events.
type BlendPublishedEventData struct {
	RunID   string                 `json:"run_id"`
	Level   domain.LevelReference  `json:"level"`
	LevelID domain.LevelID         `json:"level_id"`
	Source  domain.SelectionSource `json:"source"`
	Title   string                 `json:"title"`
}

// BlendFailedEventData is the data payload for blend failure events.
type BlendFailedEventData struct {
	RunID   string                `json:"run_id"`
	Stage   string                `json:"stage"`
	Level   domain.LevelReference `json:"level,omitempty"`
	Code    string                `json:"code"`
	Message string                `json:"message"`
}

// Selection targets.
const (
	TargetOverride = "override"
	TargetQueue    = "queue"
	TargetPool     = "pool"
)

// Selection actions.
const (
	ActionSet     = "set"
	ActionCleared = "cleared"
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// SelectionChangedEventData is the data payload for selection edits.
// Date is set for queue edits and EntryID for pool edits.
type SelectionChangedEventData struct {
	Target  string                `json:"target"`
	Action  string                `json:"action"`
	Level   domain.LevelReference `json:"level,omitempty"`
	Date    string                `json:"date,omitempty"`
	EntryID string                `json:"entry_id,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// NewBlendStartedEvent creates a blend.started event.
func NewBlendStartedEvent(runID string, forced bool) Event {
	return newEvent(EventBlendStarted, BlendStartedEventData{RunID: runID, Forced: forced})
}

// NewBlendPublishedEvent creates a blend.published event.
func NewBlendPublishedEvent(data BlendPublishedEventData) Event {
	return newEvent(EventBlendPublished, data)
}

// NewBlendFailedEvent creates a blend.failed event.
func NewBlendFailedEvent(data BlendFailedEventData) Event {
	return newEvent(EventBlendFailed, data)
}

// NewSelectionChangedEvent creates a selection.changed event.
func NewSelectionChangedEvent(data SelectionChangedEventData) Event {
	return newEvent(EventSelectionChanged, data)
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{Type: EventHeartbeat, Data: HeartbeatEventData{ServerTime: now}, Timestamp: now}
}
