// Package store persists the daily blend selection state: the one-shot
// override, the date-keyed queue and the random pool.
package store

import (
	"context"
	"math/rand/v2"

	"github.com/dailyblend/blender/internal/domain"
)

// SelectionStore is the durable selection state. Every method is a single
// atomic read-modify-write; there are no multi-call transactions.
type SelectionStore interface {
	// SetOverride replaces the override for the next firing.
	SetOverride(ctx context.Context, ref domain.LevelReference) error
	// PeekOverride reads the override without clearing it.
	PeekOverride(ctx context.Context) (domain.LevelReference, bool, error)
	// TakeOverride reads and clears the override.
	TakeOverride(ctx context.Context) (domain.LevelReference, bool, error)

	// Enqueue schedules ref for date, replacing any existing entry.
	Enqueue(ctx context.Context, date domain.DateKey, ref domain.LevelReference) error
	// Peek returns the entry for date without removing it.
	Peek(ctx context.Context, date domain.DateKey) (domain.LevelReference, bool, error)
	// Consume removes and returns the entry for date.
	Consume(ctx context.Context, date domain.DateKey) (domain.LevelReference, bool, error)
	// Unschedule deletes the entry for date; ErrNotFound when absent.
	Unschedule(ctx context.Context, date domain.DateKey) error
	// ListQueue returns all entries in calendar order.
	ListQueue(ctx context.Context) ([]domain.ScheduledEntry, error)

	// AddToPool appends ref to the random pool.
	AddToPool(ctx context.Context, ref domain.LevelReference) (domain.PoolEntry, error)
	// TakeRandom removes one uniformly chosen member; ErrPoolEmpty when empty.
	TakeRandom(ctx context.Context) (domain.PoolEntry, error)
	// RemoveFromPool deletes a member by entry ID; ErrNotFound when absent.
	RemoveFromPool(ctx context.Context, entryID string) error
	// ListPool returns members in insertion order.
	ListPool(ctx context.Context) ([]domain.PoolEntry, error)

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// RandomIndex returns a uniformly distributed index in [0, n).
type RandomIndex func(n int) int

// DefaultRandomIndex draws from math/rand/v2.
var DefaultRandomIndex RandomIndex = rand.IntN
