// Package redisstore is the Redis SelectionStore backend.
//
// Layout under the key prefix (default "blend:"):
//
//	blend:override   string, the pending override
//	blend:queue      hash, "MM DD" -> level reference
//	blend:pool       list of JSON-encoded pool entries, insertion order
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/id"
	"github.com/dailyblend/blender/internal/store"
)

// DefaultPrefix namespaces every key the store touches.
const DefaultPrefix = "blend:"

// maxTakeAttempts bounds TakeRandom's optimistic retries when another client
// edits the pool between the length read and the removal.
const maxTakeAttempts = 8

// Store is the Redis-backed SelectionStore.
type Store struct {
	rdb    *redis.Client
	logger *slog.Logger
	prefix string

	mu     sync.Mutex
	pick   store.RandomIndex
	closed bool
}

var _ store.SelectionStore = (*Store)(nil)

// Open connects to the Redis server at url (redis://...) and verifies it
// answers PING.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if logger != nil {
		logger.Info("Redis store connected", "addr", opt.Addr, "db", opt.DB)
	}
	return New(rdb, logger), nil
}

// New wraps an existing client. The store owns rdb and closes it on Close.
func New(rdb *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		rdb:    rdb,
		logger: logger,
		prefix: DefaultPrefix,
		pick:   store.DefaultRandomIndex,
	}
}

// SetRandomIndex replaces the random source used by TakeRandom.
func (s *Store) SetRandomIndex(pick store.RandomIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pick = pick
}

func (s *Store) key(name string) string { return s.prefix + name }

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Ping implements store.SelectionStore.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.rdb.Ping(ctx).Err()
}

// Close closes the client. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rdb.Close()
}

// SetOverride implements store.SelectionStore.
func (s *Store) SetOverride(ctx context.Context, ref domain.LevelReference) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key("override"), string(ref), 0).Err(); err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

// PeekOverride implements store.SelectionStore.
func (s *Store) PeekOverride(ctx context.Context) (domain.LevelReference, bool, error) {
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	return refResult(s.rdb.Get(ctx, s.key("override")).Result())
}

// TakeOverride implements store.SelectionStore.
func (s *Store) TakeOverride(ctx context.Context) (domain.LevelReference, bool, error) {
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	ref, ok, err := refResult(s.rdb.GetDel(ctx, s.key("override")).Result())
	if err != nil {
		return "", false, fmt.Errorf("take override: %w", err)
	}
	return ref, ok, nil
}

// Enqueue implements store.SelectionStore.
func (s *Store) Enqueue(ctx context.Context, date domain.DateKey, ref domain.LevelReference) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, s.key("queue"), date.String(), string(ref)).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", date, err)
	}
	return nil
}

// Peek implements store.SelectionStore.
func (s *Store) Peek(ctx context.Context, date domain.DateKey) (domain.LevelReference, bool, error) {
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	return refResult(s.rdb.HGet(ctx, s.key("queue"), date.String()).Result())
}

// Consume implements store.SelectionStore. HGET and HDEL run in one
// MULTI/EXEC block.
func (s *Store) Consume(ctx context.Context, date domain.DateKey) (domain.LevelReference, bool, error) {
	if err := s.check(ctx); err != nil {
		return "", false, err
	}

	var get *redis.StringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, s.key("queue"), date.String())
		pipe.HDel(ctx, s.key("queue"), date.String())
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", false, fmt.Errorf("consume %s: %w", date, err)
	}
	return refResult(get.Result())
}

// Unschedule implements store.SelectionStore.
func (s *Store) Unschedule(ctx context.Context, date domain.DateKey) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	n, err := s.rdb.HDel(ctx, s.key("queue"), date.String()).Result()
	if err != nil {
		return fmt.Errorf("unschedule %s: %w", date, err)
	}
	if n == 0 {
		return store.ErrNotFound.WithDetails(map[string]string{"date": date.String()})
	}
	return nil
}

// ListQueue implements store.SelectionStore.
func (s *Store) ListQueue(ctx context.Context) ([]domain.ScheduledEntry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	all, err := s.rdb.HGetAll(ctx, s.key("queue")).Result()
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}

	entries := make([]domain.ScheduledEntry, 0, len(all))
	for k, v := range all {
		date, err := domain.ParseDateKey(k)
		if err != nil {
			return nil, fmt.Errorf("corrupt queue field %q: %w", k, err)
		}
		entries = append(entries, domain.ScheduledEntry{Date: date, Ref: domain.LevelReference(v)})
	}
	slices.SortFunc(entries, func(a, b domain.ScheduledEntry) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case b.Date.Before(a.Date):
			return 1
		}
		return 0
	})
	return entries, nil
}

// AddToPool implements store.SelectionStore.
func (s *Store) AddToPool(ctx context.Context, ref domain.LevelReference) (domain.PoolEntry, error) {
	if err := s.check(ctx); err != nil {
		return domain.PoolEntry{}, err
	}
	entryID, err := id.Generate(id.PrefixPoolEntry)
	if err != nil {
		return domain.PoolEntry{}, err
	}
	entry := domain.PoolEntry{ID: entryID, Ref: ref, AddedAt: time.Now().UTC()}

	data, err := json.Marshal(entry)
	if err != nil {
		return domain.PoolEntry{}, fmt.Errorf("failed to marshal pool entry: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.key("pool"), data).Err(); err != nil {
		return domain.PoolEntry{}, fmt.Errorf("add to pool: %w", err)
	}
	return entry, nil
}

// TakeRandom implements store.SelectionStore. The pool key is watched from
// LLEN to removal, so the drawn index always refers to the list it was
// drawn for.
func (s *Store) TakeRandom(ctx context.Context) (domain.PoolEntry, error) {
	if err := s.check(ctx); err != nil {
		return domain.PoolEntry{}, err
	}

	key := s.key("pool")
	var raw string
	take := func(tx *redis.Tx) error {
		n, err := tx.LLen(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrPoolEmpty
		}

		s.mu.Lock()
		idx := int64(s.pick(int(n)))
		s.mu.Unlock()

		raw, err = tx.LIndex(ctx, key, idx).Result()
		if err != nil {
			return err
		}

		// Overwrite the slot with a unique tombstone so LREM cannot hit an
		// equal-valued neighbour.
		tombstone := "tombstone:" + id.NewRunID()
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LSet(ctx, key, idx, tombstone)
			pipe.LRem(ctx, key, 1, tombstone)
			return nil
		})
		return err
	}

	for range maxTakeAttempts {
		err := s.rdb.Watch(ctx, take, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, store.ErrPoolEmpty) {
			return domain.PoolEntry{}, store.ErrPoolEmpty
		}
		if err != nil {
			return domain.PoolEntry{}, fmt.Errorf("take random: %w", err)
		}

		var entry domain.PoolEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return domain.PoolEntry{}, fmt.Errorf("corrupt pool entry: %w", err)
		}
		return entry, nil
	}
	return domain.PoolEntry{}, fmt.Errorf("take random: pool kept changing after %d attempts", maxTakeAttempts)
}

// RemoveFromPool implements store.SelectionStore. Entries are unique by ID, so
// removing the exact encoded value is safe against concurrent takes.
func (s *Store) RemoveFromPool(ctx context.Context, entryID string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	raws, err := s.rdb.LRange(ctx, s.key("pool"), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("remove from pool: %w", err)
	}

	for _, raw := range raws {
		var entry domain.PoolEntry
		if json.Unmarshal([]byte(raw), &entry) != nil || entry.ID != entryID {
			continue
		}
		n, err := s.rdb.LRem(ctx, s.key("pool"), 1, raw).Result()
		if err != nil {
			return fmt.Errorf("remove from pool: %w", err)
		}
		if n > 0 {
			return nil
		}
		break
	}
	return store.ErrNotFound.WithDetails(map[string]string{"entry_id": entryID})
}

// ListPool implements store.SelectionStore.
func (s *Store) ListPool(ctx context.Context) ([]domain.PoolEntry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	raws, err := s.rdb.LRange(ctx, s.key("pool"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list pool: %w", err)
	}

	entries := make([]domain.PoolEntry, 0, len(raws))
	for _, raw := range raws {
		var entry domain.PoolEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("corrupt pool entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func refResult(v string, err error) (domain.LevelReference, bool, error) {
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.LevelReference(v), true, nil
}
