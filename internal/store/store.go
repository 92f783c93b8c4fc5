package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/id"
)

// Store is the Badger-backed SelectionStore.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
	pick   RandomIndex

	// mu serialises read-modify-write sections so concurrent callers never
	// see badger.ErrConflict.
	mu     sync.Mutex
	closed bool
}

var _ SelectionStore = (*Store)(nil)

// New opens (or creates) the Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // A consumed entry must stay consumed after a crash
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte(keyPoolSeq), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open pool sequence: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return &Store{
		db:     db,
		seq:    seq,
		logger: logger,
		pick:   DefaultRandomIndex,
	}, nil
}

// SetRandomIndex replaces the random source used by TakeRandom.
func (s *Store) SetRandomIndex(pick RandomIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pick = pick
}

// Close releases the pool sequence and closes the database. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	if err := s.seq.Release(); err != nil && s.logger != nil {
		s.logger.Warn("failed to release pool sequence", "error", err)
	}
	return s.db.Close()
}

// Ping performs a read transaction.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyOverride))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// begin acquires the store lock. The caller must unlock on success.
func (s *Store) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// SetOverride implements SelectionStore.
func (s *Store) SetOverride(ctx context.Context, ref domain.LevelReference) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyOverride), []byte(ref))
	}); err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

// PeekOverride implements SelectionStore.
func (s *Store) PeekOverride(ctx context.Context) (domain.LevelReference, bool, error) {
	if err := s.begin(ctx); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	var ref domain.LevelReference
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		v, ok, err := getString(txn, []byte(keyOverride))
		ref, found = domain.LevelReference(v), ok
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("peek override: %w", err)
	}
	return ref, found, nil
}

// TakeOverride implements SelectionStore.
func (s *Store) TakeOverride(ctx context.Context) (domain.LevelReference, bool, error) {
	if err := s.begin(ctx); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	ref, found, err := s.takeKey([]byte(keyOverride))
	if err != nil {
		return "", false, fmt.Errorf("take override: %w", err)
	}
	return ref, found, nil
}

// Enqueue implements SelectionStore.
func (s *Store) Enqueue(ctx context.Context, date domain.DateKey, ref domain.LevelReference) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(queueKey(date), []byte(ref))
	}); err != nil {
		return fmt.Errorf("enqueue %s: %w", date, err)
	}
	return nil
}

// Peek implements SelectionStore.
func (s *Store) Peek(ctx context.Context, date domain.DateKey) (domain.LevelReference, bool, error) {
	if err := s.begin(ctx); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	var ref domain.LevelReference
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		v, ok, err := getString(txn, queueKey(date))
		ref, found = domain.LevelReference(v), ok
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("peek %s: %w", date, err)
	}
	return ref, found, nil
}

// Consume implements SelectionStore.
func (s *Store) Consume(ctx context.Context, date domain.DateKey) (domain.LevelReference, bool, error) {
	if err := s.begin(ctx); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	ref, found, err := s.takeKey(queueKey(date))
	if err != nil {
		return "", false, fmt.Errorf("consume %s: %w", date, err)
	}
	return ref, found, nil
}

// Unschedule implements SelectionStore.
func (s *Store) Unschedule(ctx context.Context, date domain.DateKey) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	_, found, err := s.takeKey(queueKey(date))
	if err != nil {
		return fmt.Errorf("unschedule %s: %w", date, err)
	}
	if !found {
		return ErrNotFound.WithDetails(map[string]string{"date": date.String()})
	}
	return nil
}

// ListQueue implements SelectionStore. Badger iterates in key order and
// canonical date keys sort chronologically, so no extra sort is needed.
func (s *Store) ListQueue(ctx context.Context) ([]domain.ScheduledEntry, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var entries []domain.ScheduledEntry
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixQueue)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			date, err := domain.ParseDateKey(string(item.Key()[len(prefix):]))
			if err != nil {
				return fmt.Errorf("corrupt queue key %q: %w", item.Key(), err)
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, domain.ScheduledEntry{Date: date, Ref: domain.LevelReference(val)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return entries, nil
}

// AddToPool implements SelectionStore.
func (s *Store) AddToPool(ctx context.Context, ref domain.LevelReference) (domain.PoolEntry, error) {
	if err := s.begin(ctx); err != nil {
		return domain.PoolEntry{}, err
	}
	defer s.mu.Unlock()

	n, err := s.seq.Next()
	if err != nil {
		return domain.PoolEntry{}, fmt.Errorf("next pool sequence: %w", err)
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

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(poolKey(n, entryID), data)
	}); err != nil {
		return domain.PoolEntry{}, fmt.Errorf("add to pool: %w", err)
	}
	return entry, nil
}

// TakeRandom implements SelectionStore.
func (s *Store) TakeRandom(ctx context.Context) (domain.PoolEntry, error) {
	if err := s.begin(ctx); err != nil {
		return domain.PoolEntry{}, err
	}
	defer s.mu.Unlock()

	var entry domain.PoolEntry
	err := s.db.Update(func(txn *badger.Txn) error {
		keys := poolKeys(txn)
		if len(keys) == 0 {
			return ErrPoolEmpty
		}

		key := keys[s.pick(len(keys))]
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("corrupt pool entry %q: %w", key, err)
		}
		return txn.Delete(key)
	})
	if err != nil {
		return domain.PoolEntry{}, fmt.Errorf("take random: %w", err)
	}
	return entry, nil
}

// RemoveFromPool implements SelectionStore.
func (s *Store) RemoveFromPool(ctx context.Context, entryID string) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	suffix := ":" + entryID
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range poolKeys(txn) {
			if len(key) > len(suffix) && string(key[len(key)-len(suffix):]) == suffix {
				return txn.Delete(key)
			}
		}
		return ErrNotFound.WithDetails(map[string]string{"entry_id": entryID})
	})
	if err != nil {
		return fmt.Errorf("remove from pool: %w", err)
	}
	return nil
}

// ListPool implements SelectionStore.
func (s *Store) ListPool(ctx context.Context) ([]domain.PoolEntry, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var entries []domain.PoolEntry
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixPool)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry domain.PoolEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("corrupt pool entry %q: %w", it.Item().Key(), err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pool: %w", err)
	}
	return entries, nil
}

// takeKey reads and deletes key in one transaction.
func (s *Store) takeKey(key []byte) (domain.LevelReference, bool, error) {
	var ref domain.LevelReference
	var found bool
	err := s.db.Update(func(txn *badger.Txn) error {
		v, ok, err := getString(txn, key)
		if err != nil || !ok {
			return err
		}
		ref, found = domain.LevelReference(v), true
		return txn.Delete(key)
	})
	return ref, found, err
}

func getString(txn *badger.Txn, key []byte) (string, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", false, err
	}
	return string(val), true, nil
}

// poolKeys lists pool keys in insertion order without fetching values.
func poolKeys(txn *badger.Txn) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	prefix := []byte(prefixPool)

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}
