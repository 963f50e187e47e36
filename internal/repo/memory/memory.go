package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nrmkhd/namewatch/internal/domain"
)

type Store struct {
	mu      sync.RWMutex
	watches []domain.WatchedUsername
	logs    map[string][]domain.CheckLogEntry
}

func New() *Store {
	return &Store{
		logs: make(map[string][]domain.CheckLogEntry),
	}
}

func (m *Store) Add(ctx context.Context, w domain.WatchedUsername) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watches = append(m.watches, w)
	return nil
}

func (m *Store) List(ctx context.Context) ([]domain.WatchedUsername, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.WatchedUsername, len(m.watches))
	copy(out, m.watches)
	return out, nil
}

func (m *Store) ByWatcher(ctx context.Context, watcher string) ([]domain.WatchedUsername, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.WatchedUsername
	for _, w := range m.watches {
		if w.Watcher == watcher {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *Store) AppendBatch(ctx context.Context, entries []domain.CheckLogEntry) []domain.CheckLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.logs[e.Username] = append(m.logs[e.Username], e)
	}
	return nil
}

func (m *Store) ByUsername(ctx context.Context, username string) ([]domain.CheckLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CheckLogEntry, len(m.logs[username]))
	copy(out, m.logs[username])
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *Store) ByUsernameSince(ctx context.Context, username string, since int64) ([]domain.CheckLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CheckLogEntry
	for _, e := range m.logs[username] {
		if e.Date >= since {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}
