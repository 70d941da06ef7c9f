// Package cached wraps a sheets.Store with a fixed-TTL read cache.
//
// Every mutating call runs against the inner store and then drops the cached
// tables before returning, whatever the outcome, so a read issued after a
// write always reaches the store. Concurrent misses for the same table are
// collapsed into a single upstream read.
package cached

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hostel/internal/cache"
	"hostel/internal/sheets"

	"golang.org/x/sync/singleflight"
)

type Store struct {
	inner  sheets.Store
	rows   *cache.LRUCache[[]sheets.Row]
	group  singleflight.Group
	logger *slog.Logger

	mu  sync.Mutex
	gen uint64 // bumped on every invalidation
}

var (
	_ sheets.Store = (*Store)(nil)
	_ sheets.Cache = (*Store)(nil)
)

// New wraps inner. A non-positive ttl disables caching but keeps the
// invalidate-on-write contract.
func New(inner sheets.Store, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		inner:  inner,
		rows:   cache.NewLRUCache[[]sheets.Row](8, ttl),
		logger: logger,
	}
}

// Cleaner exposes the underlying cache for periodic expiry sweeps.
func (s *Store) Cleaner() cache.Cleaner {
	return s.rows
}

func (s *Store) ReadAll(ctx context.Context, table sheets.Table) ([]sheets.Row, error) {
	key := string(table)
	if s.rows.TTL() > 0 {
		if rows, ok := s.rows.Get(key); ok {
			s.logger.DebugContext(ctx, "Table cache hit", "table", key, "rows", len(rows))
			return copyRows(rows), nil
		}
	}

	// The shared read outlives any one caller; each caller still stops
	// waiting when its own context ends.
	ch := s.group.DoChan(key, func() (any, error) {
		s.mu.Lock()
		gen := s.gen
		s.mu.Unlock()

		rows, err := s.inner.ReadAll(context.WithoutCancel(ctx), table)
		if err != nil {
			return nil, err
		}
		s.store(key, gen, rows)
		return rows, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyRows(res.Val.([]sheets.Row)), nil
	}
}

func (s *Store) Append(ctx context.Context, table sheets.Table, values []any) error {
	defer s.invalidate(ctx, "append", table)
	return s.inner.Append(ctx, table, values)
}

func (s *Store) Update(ctx context.Context, table sheets.Table, id int64, values []any) error {
	defer s.invalidate(ctx, "update", table)
	return s.inner.Update(ctx, table, id, values)
}

func (s *Store) Delete(ctx context.Context, table sheets.Table, id int64) error {
	defer s.invalidate(ctx, "delete", table)
	return s.inner.Delete(ctx, table, id)
}

// store caches rows unless an invalidation happened since gen was read; a
// fill that raced a write must not repopulate the cache with pre-write rows.
func (s *Store) store(key string, gen uint64, rows []sheets.Row) {
	if s.rows.TTL() <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.rows.Set(key, rows)
	}
}

// InvalidateCache drops every cached table.
func (s *Store) InvalidateCache() {
	s.mu.Lock()
	s.gen++
	s.rows.Purge()
	s.mu.Unlock()
	// Readers arriving after this point start a fresh fill rather than
	// joining one that began before the write.
	s.group.Forget(string(sheets.Reservations))
	s.group.Forget(string(sheets.Expenses))
}

func (s *Store) invalidate(ctx context.Context, op string, table sheets.Table) {
	s.InvalidateCache()
	s.logger.DebugContext(ctx, "Table cache invalidated", "operation", op, "table", string(table))
}

// copyRows returns a copy so callers cannot mutate cached rows.
func copyRows(in []sheets.Row) []sheets.Row {
	out := make([]sheets.Row, len(in))
	for i, r := range in {
		row := make(sheets.Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		out[i] = row
	}
	return out
}
