package repo

import (
	"context"

	"github.com/nrmkhd/namewatch/internal/domain"
)

// Ports (interfaces) — swap in any store adapter later.

type WatchStore interface {
	Add(ctx context.Context, w domain.WatchedUsername) error
	List(ctx context.Context) ([]domain.WatchedUsername, error)
	ByWatcher(ctx context.Context, watcher string) ([]domain.WatchedUsername, error)
}

type CheckLogStore interface {
	// AppendBatch persists a cycle's entries. Entries the store failed to
	// accept come back for the caller to log; batch persistence is
	// best-effort, never raised.
	AppendBatch(ctx context.Context, entries []domain.CheckLogEntry) []domain.CheckLogEntry
	// ByUsername returns all entries for one username, oldest first.
	ByUsername(ctx context.Context, username string) ([]domain.CheckLogEntry, error)
	// ByUsernameSince returns entries with date >= since, newest first.
	ByUsernameSince(ctx context.Context, username string, since int64) ([]domain.CheckLogEntry, error)
}
