package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nrmkhd/namewatch/internal/domain"
	"github.com/nrmkhd/namewatch/internal/repo/memory"
)

func TestForWatcher_NoUsernames(t *testing.T) {
	s := NewService(memory.New(), memory.New(), nil, zap.NewNop())

	_, err := s.ForWatcher(context.Background(), "nobody")
	if !errors.Is(err, ErrNoUsernames) {
		t.Fatalf("want ErrNoUsernames, got %v", err)
	}
}

func TestForWatcher_UsesFirstRegisteredUsername(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.Add(ctx, domain.WatchedUsername{Username: "alice", Watcher: "w1"})
	_ = store.Add(ctx, domain.WatchedUsername{Username: "carol", Watcher: "w1"})
	store.AppendBatch(ctx, []domain.CheckLogEntry{
		{Username: "alice", Date: 1, Result: false},
		{Username: "alice", Date: 2, Result: true},
		{Username: "carol", Date: 3, Result: false},
	})

	s := NewService(store, store, nil, zap.NewNop())
	logs, err := s.ForWatcher(ctx, "w1")
	if err != nil {
		t.Fatalf("ForWatcher: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries (first username only), got %d", len(logs))
	}
	for _, e := range logs {
		if e.Username != "alice" {
			t.Fatalf("unexpected username in results: %+v", e)
		}
	}
}

func TestRecent_WindowOrderAndConcatenation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Now().UnixMilli()
	old := time.Now().Add(-48 * time.Hour).UnixMilli()
	store.AppendBatch(ctx, []domain.CheckLogEntry{
		{Username: "alice", Date: now - 1000, Result: false},
		{Username: "alice", Date: now - 500, Result: true},
		{Username: "alice", Date: old, Result: false}, // outside the 24h window
		{Username: "bob", Date: now - 100, Result: false},
	})

	s := NewService(memory.New(), store, []string{"alice", "bob"}, zap.NewNop())
	logs, err := s.Recent(ctx)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 entries within 24h, got %d: %+v", len(logs), logs)
	}
	// alice's block first (configured order), newest first inside the block
	if logs[0].Username != "alice" || logs[0].Date != now-500 {
		t.Fatalf("wrong leading entry: %+v", logs[0])
	}
	if logs[1].Username != "alice" || logs[1].Date != now-1000 {
		t.Fatalf("wrong second entry: %+v", logs[1])
	}
	if logs[2].Username != "bob" {
		t.Fatalf("bob's block must follow alice's: %+v", logs[2])
	}
}
