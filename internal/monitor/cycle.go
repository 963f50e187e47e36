// Package monitor runs the scheduled availability cycle: resolve the
// username set, check each name against the account service, notify, claim
// freed names opportunistically, and persist one batch of check logs.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nrmkhd/namewatch/internal/account"
	"github.com/nrmkhd/namewatch/internal/domain"
	"github.com/nrmkhd/namewatch/internal/repo"
)

type Cycle struct {
	Logger  *zap.Logger
	Account account.Dialer
	Source  Source
	Logs    repo.CheckLogStore
}

func NewCycle(logger *zap.Logger, dialer account.Dialer, source Source, logs repo.CheckLogStore) *Cycle {
	return &Cycle{
		Logger:  logger,
		Account: dialer,
		Source:  source,
		Logs:    logs,
	}
}

// Run executes one full cycle. Each invocation is independent: no state
// survives between cycles except the appended log entries. A failure of one
// username never aborts the others; only resolution and session
// establishment are fatal to the cycle.
func (c *Cycle) Run(ctx context.Context) error {
	names, err := c.Source.Usernames(ctx)
	if err != nil {
		return fmt.Errorf("resolve usernames: %w", err)
	}
	names = dedupe(names)
	if len(names) == 0 {
		c.Logger.Info("cycle_skipped_no_usernames")
		return nil
	}

	sess, err := c.Account.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	// Released exactly once, whatever happens during checking or persisting.
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			c.Logger.Warn("session_close_failed", zap.Error(cerr))
		}
	}()

	entries := make([]domain.CheckLogEntry, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			entries[i] = c.checkOne(ctx, sess, name)
		}(i, name)
	}
	wg.Wait()

	if unprocessed := c.Logs.AppendBatch(ctx, entries); len(unprocessed) > 0 {
		c.Logger.Warn("check_logs_unprocessed", zap.Int("count", len(unprocessed)))
	}

	c.Logger.Info("cycle_done", zap.Int("usernames", len(names)))
	return nil
}

// checkOne produces the log entry for a single username. Any failure while
// checking or notifying lands in the entry's error field and nowhere else.
func (c *Cycle) checkOne(ctx context.Context, sess account.Session, name string) domain.CheckLogEntry {
	entry := domain.CheckLogEntry{
		Username: name,
		Date:     time.Now().UnixMilli(),
	}

	available, err := sess.CheckAvailable(ctx, name)
	if err != nil {
		c.Logger.Warn("check_failed", zap.String("username", name), zap.Error(err))
		entry.Error = ptr(err.Error())
		return entry
	}
	entry.Result = available

	// The availability notification is deferred when the name is free so it
	// cannot race the claim attempt below.
	if err := c.notifyResult(ctx, sess, name, available); err != nil {
		c.Logger.Warn("notify_failed", zap.String("username", name), zap.Error(err))
		entry.Result = false
		entry.Error = ptr(err.Error())
		return entry
	}

	if available {
		c.claim(ctx, sess, name)
	}
	return entry
}

func (c *Cycle) notifyResult(ctx context.Context, sess account.Session, name string, available bool) error {
	msg := fmt.Sprintf("Username @%s is not available yet.", name)
	if available {
		msg = fmt.Sprintf("Username @%s is available!", name)
	}
	return sess.Notify(ctx, msg, available)
}

// claim tries to occupy a freed username. Losing the race is expected; the
// check entry stays successful and the owner just gets a failure note.
func (c *Cycle) claim(ctx context.Context, sess account.Session, name string) {
	if err := sess.Claim(ctx, name, "Occupied"); err != nil {
		c.Logger.Warn("claim_failed", zap.String("username", name), zap.Error(err))
		if nerr := sess.Notify(ctx, fmt.Sprintf("Error while creating channel @%s.", name), false); nerr != nil {
			c.Logger.Warn("claim_failure_notify_failed", zap.String("username", name), zap.Error(nerr))
		}
		return
	}
	c.Logger.Info("username_claimed", zap.String("username", name))
	if err := sess.Notify(ctx, fmt.Sprintf("Channel @%s created.", name), false); err != nil {
		c.Logger.Warn("claim_success_notify_failed", zap.String("username", name), zap.Error(err))
	}
}

func ptr(s string) *string { return &s }
