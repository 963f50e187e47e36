package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nrmkhd/namewatch/internal/domain"
	"github.com/nrmkhd/namewatch/internal/repo"
	"github.com/nrmkhd/namewatch/internal/store"
)

var _ repo.WatchStore = (*Store)(nil)
var _ repo.CheckLogStore = (*Store)(nil)

//go:embed migrations.sql
var migrations string

// Store persists watch entries and check logs, each behind its own generic
// table. Watch entries are partitioned by watcher; check logs by username
// with the check date as sort key.
type Store struct {
	pool    *pgxpool.Pool
	watches *store.Table[domain.WatchedUsername]
	checks  *store.Table[domain.CheckLogEntry]
	log     *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{
		pool: pool,
		watches: store.NewTable(pool, "watched_usernames", func(w domain.WatchedUsername) store.Key {
			return store.Key{Partition: w.Watcher}
		}, log),
		checks: store.NewTable(pool, "check_logs", func(e domain.CheckLogEntry) store.Key {
			date := e.Date
			return store.Key{Partition: e.Username, Sort: &date}
		}, log),
		log: log,
	}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- WatchStore ----

func (s *Store) Add(ctx context.Context, w domain.WatchedUsername) error {
	if unprocessed := s.watches.BatchPut(ctx, []domain.WatchedUsername{w}); len(unprocessed) > 0 {
		return errors.New("watch entry not persisted")
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.WatchedUsername, error) {
	return s.watches.Scan(ctx)
}

func (s *Store) ByWatcher(ctx context.Context, watcher string) ([]domain.WatchedUsername, error) {
	return s.watches.Query(ctx, store.Condition{Partition: watcher})
}

// ---- CheckLogStore ----

func (s *Store) AppendBatch(ctx context.Context, entries []domain.CheckLogEntry) []domain.CheckLogEntry {
	return s.checks.BatchPut(ctx, entries)
}

func (s *Store) ByUsername(ctx context.Context, username string) ([]domain.CheckLogEntry, error) {
	return s.checks.Query(ctx, store.Condition{Partition: username})
}

func (s *Store) ByUsernameSince(ctx context.Context, username string, since int64) ([]domain.CheckLogEntry, error) {
	return s.checks.Query(ctx, store.Condition{
		Partition:   username,
		SortSince:   &since,
		NewestFirst: true,
	})
}
