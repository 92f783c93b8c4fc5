package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/id"
	"github.com/dailyblend/blender/internal/store"
)

var _ store.SelectionStore = (*Store)(nil)

// SetOverride implements store.SelectionStore.
func (s *Store) SetOverride(ctx context.Context, ref domain.LevelReference) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO override (id, ref) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET ref = excluded.ref`, string(ref))
	if err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

// PeekOverride implements store.SelectionStore.
func (s *Store) PeekOverride(ctx context.Context) (domain.LevelReference, bool, error) {
	if err := s.begin(ctx); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	return scanRef(s.db.QueryRowContext(ctx, `SELECT ref FROM override WHERE id = 1`))
}

// TakeOverride implements store.SelectionStore.
func (s *Store) TakeOverride(ctx context.Context) (domain.LevelReference, bool, error) {
	if err := s.begin(ctx); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	ref, ok, err := s.take(ctx,
		`SELECT ref FROM override WHERE id = 1`,
		`DELETE FROM override WHERE id = 1`)
	if err != nil {
		return "", false, fmt.Errorf("take override: %w", err)
	}
	return ref, ok, nil
}

// Enqueue implements store.SelectionStore.
func (s *Store) Enqueue(ctx context.Context, date domain.DateKey, ref domain.LevelReference) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queue (date_key, ref) VALUES (?, ?)
		ON CONFLICT(date_key) DO UPDATE SET ref = excluded.ref`,
		date.String(), string(ref))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", date, err)
	}
	return nil
}

// Peek implements store.SelectionStore.
func (s *Store) Peek(ctx context.Context, date domain.DateKey) (domain.LevelReference, bool, error) {
	if err := s.begin(ctx); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	return scanRef(s.db.QueryRowContext(ctx, `SELECT ref FROM queue WHERE date_key = ?`, date.String()))
}

// Consume implements store.SelectionStore.
func (s *Store) Consume(ctx context.Context, date domain.DateKey) (domain.LevelReference, bool, error) {
	if err := s.begin(ctx); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	ref, ok, err := s.take(ctx,
		`SELECT ref FROM queue WHERE date_key = ?`,
		`DELETE FROM queue WHERE date_key = ?`,
		date.String())
	if err != nil {
		return "", false, fmt.Errorf("consume %s: %w", date, err)
	}
	return ref, ok, nil
}

// Unschedule implements store.SelectionStore.
func (s *Store) Unschedule(ctx context.Context, date domain.DateKey) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE date_key = ?`, date.String())
	if err != nil {
		return fmt.Errorf("unschedule %s: %w", date, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound.WithDetails(map[string]string{"date": date.String()})
	}
	return nil
}

// ListQueue implements store.SelectionStore.
func (s *Store) ListQueue(ctx context.Context) ([]domain.ScheduledEntry, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT date_key, ref FROM queue ORDER BY date_key`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var entries []domain.ScheduledEntry
	for rows.Next() {
		var key, ref string
		if err := rows.Scan(&key, &ref); err != nil {
			return nil, err
		}
		date, err := domain.ParseDateKey(key)
		if err != nil {
			return nil, fmt.Errorf("corrupt queue key %q: %w", key, err)
		}
		entries = append(entries, domain.ScheduledEntry{Date: date, Ref: domain.LevelReference(ref)})
	}
	return entries, rows.Err()
}

// AddToPool implements store.SelectionStore.
func (s *Store) AddToPool(ctx context.Context, ref domain.LevelReference) (domain.PoolEntry, error) {
	if err := s.begin(ctx); err != nil {
		return domain.PoolEntry{}, err
	}
	defer s.mu.Unlock()

	entryID, err := id.Generate(id.PrefixPoolEntry)
	if err != nil {
		return domain.PoolEntry{}, err
	}
	entry := domain.PoolEntry{ID: entryID, Ref: ref, AddedAt: time.Now().UTC()}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pool (id, ref, added_at) VALUES (?, ?, ?)`,
		entry.ID, string(entry.Ref), formatTime(entry.AddedAt))
	if err != nil {
		return domain.PoolEntry{}, fmt.Errorf("add to pool: %w", err)
	}
	return entry, nil
}

// TakeRandom implements store.SelectionStore.
func (s *Store) TakeRandom(ctx context.Context) (domain.PoolEntry, error) {
	if err := s.begin(ctx); err != nil {
		return domain.PoolEntry{}, err
	}
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PoolEntry{}, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM pool`).Scan(&n); err != nil {
		return domain.PoolEntry{}, fmt.Errorf("count pool: %w", err)
	}
	if n == 0 {
		return domain.PoolEntry{}, store.ErrPoolEmpty
	}

	var (
		seq     int64
		entry   domain.PoolEntry
		ref     string
		addedAt string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT seq, id, ref, added_at FROM pool ORDER BY seq LIMIT 1 OFFSET ?`, s.pick(n),
	).Scan(&seq, &entry.ID, &ref, &addedAt)
	if err != nil {
		return domain.PoolEntry{}, fmt.Errorf("pick pool entry: %w", err)
	}
	entry.Ref = domain.LevelReference(ref)
	if entry.AddedAt, err = parseTime(addedAt); err != nil {
		return domain.PoolEntry{}, fmt.Errorf("corrupt pool entry %s: %w", entry.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pool WHERE seq = ?`, seq); err != nil {
		return domain.PoolEntry{}, fmt.Errorf("take random: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.PoolEntry{}, err
	}
	return entry, nil
}

// RemoveFromPool implements store.SelectionStore.
func (s *Store) RemoveFromPool(ctx context.Context, entryID string) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM pool WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("remove from pool: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound.WithDetails(map[string]string{"entry_id": entryID})
	}
	return nil
}

// ListPool implements store.SelectionStore.
func (s *Store) ListPool(ctx context.Context) ([]domain.PoolEntry, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, ref, added_at FROM pool ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list pool: %w", err)
	}
	defer rows.Close()

	var entries []domain.PoolEntry
	for rows.Next() {
		var (
			entry   domain.PoolEntry
			ref     string
			addedAt string
		)
		if err := rows.Scan(&entry.ID, &ref, &addedAt); err != nil {
			return nil, err
		}
		entry.Ref = domain.LevelReference(ref)
		if entry.AddedAt, err = parseTime(addedAt); err != nil {
			return nil, fmt.Errorf("corrupt pool entry %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// take reads one ref and deletes it in a single transaction.
func (s *Store) take(ctx context.Context, query, del string, args ...any) (domain.LevelReference, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	ref, ok, err := scanRef(tx.QueryRowContext(ctx, query, args...))
	if err != nil || !ok {
		return "", false, err
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	return ref, true, nil
}

func scanRef(row *sql.Row) (domain.LevelReference, bool, error) {
	var ref string
	err := row.Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.LevelReference(ref), true, nil
}
