package monitor

import (
	"context"

	"github.com/nrmkhd/namewatch/internal/repo"
)

// Source resolves the username set for one cycle.
type Source interface {
	Usernames(ctx context.Context) ([]string, error)
}

// WatchListSource reads every registered watch entry from the store.
type WatchListSource struct {
	Watches repo.WatchStore
}

func (s WatchListSource) Usernames(ctx context.Context) ([]string, error) {
	ws, err := s.Watches.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ws))
	for _, w := range ws {
		names = append(names, w.Username)
	}
	return names, nil
}

// StaticSource is the fixed-list deployment variant.
type StaticSource []string

func (s StaticSource) Usernames(ctx context.Context) ([]string, error) {
	return s, nil
}

// dedupe keeps the first occurrence of each username. Several watchers may
// register the same name; it is checked once per cycle.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
