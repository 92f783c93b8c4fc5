package domain

import "time"

// ScheduledEntry is a level queued for a specific calendar day.
type ScheduledEntry struct {
	Date DateKey        `json:"date" yaml:"date"`
	Ref  LevelReference `json:"level" yaml:"level"`
}

// PoolEntry is one member of the random pool. Entries carry their own ID so
// duplicate references can be consumed independently.
type PoolEntry struct {
	ID      string         `json:"id" yaml:"id"`
	Ref     LevelReference `json:"level" yaml:"level"`
	AddedAt time.Time      `json:"added_at" yaml:"added_at"`
}

// SelectionSource records which tier of the daily policy produced a level.
type SelectionSource string

// Selection sources in priority order, plus the manual force path.
const (
	SourceOverride SelectionSource = "override"
	SourceQueue    SelectionSource = "queue"
	SourcePool     SelectionSource = "pool"
	SourceForce    SelectionSource = "force"
)

// Selection is the outcome of the daily selection policy.
type Selection struct {
	Ref    LevelReference  `json:"level"`
	Source SelectionSource `json:"source"`
}
