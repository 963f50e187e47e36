// Package query serves on-demand check-log retrieval for the HTTP API.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nrmkhd/namewatch/internal/domain"
	"github.com/nrmkhd/namewatch/internal/repo"
)

// ErrNoUsernames means the watcher has nothing registered; the API answers
// 400 for it rather than an empty list.
var ErrNoUsernames = errors.New("no usernames found")

const recentWindow = 24 * time.Hour

type Service struct {
	Watches    repo.WatchStore
	Checks     repo.CheckLogStore
	Configured []string // static-list deployment variant; empty otherwise
	Logger     *zap.Logger
}

func NewService(watches repo.WatchStore, checks repo.CheckLogStore, configured []string, logger *zap.Logger) *Service {
	return &Service{
		Watches:    watches,
		Checks:     checks,
		Configured: configured,
		Logger:     logger,
	}
}

// HasConfigured reports whether the static-list query path is usable.
func (s *Service) HasConfigured() bool {
	return len(s.Configured) > 0
}

// ForWatcher returns all check logs for the watcher's registered username.
func (s *Service) ForWatcher(ctx context.Context, watcher string) ([]domain.CheckLogEntry, error) {
	watches, err := s.Watches.ByWatcher(ctx, watcher)
	if err != nil {
		return nil, fmt.Errorf("lookup watcher %q: %w", watcher, err)
	}
	if len(watches) == 0 {
		return nil, fmt.Errorf("%w for watcher %q", ErrNoUsernames, watcher)
	}

	// TODO: a watcher with several registered usernames only ever sees logs
	// for the first one; decide whether to merge across all of them.
	username := watches[0].Username

	logs, err := s.Checks.ByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("logs for %q: %w", username, err)
	}
	return logs, nil
}

// Recent returns the last 24h of logs for every configured username, newest
// first per username, concatenated in configured-list order.
func (s *Service) Recent(ctx context.Context) ([]domain.CheckLogEntry, error) {
	since := time.Now().Add(-recentWindow).UnixMilli()
	out := make([]domain.CheckLogEntry, 0, len(s.Configured))
	for _, username := range s.Configured {
		logs, err := s.Checks.ByUsernameSince(ctx, username, since)
		if err != nil {
			return nil, fmt.Errorf("recent logs for %q: %w", username, err)
		}
		out = append(out, logs...)
	}
	return out, nil
}
