// Package account adapts the external Telegram capabilities the monitor
// needs: availability checks, owner notifications, and opportunistic claims.
package account

import (
	"context"
	"errors"
)

var (
	// ErrAuth means the session could not be established; the whole cycle
	// aborts before any checks run.
	ErrAuth = errors.New("account: authentication failed")
	// ErrTransient marks network or rate-limit trouble on a single call.
	// Distinct from a definitive "not available", which is false with no
	// error.
	ErrTransient = errors.New("account: transient service error")
	// ErrClaimConflict means somebody took the username between the check
	// and the claim attempt. Expected race, never fatal to the cycle.
	ErrClaimConflict = errors.New("account: username already claimed")
)

// Session is one connected account session, scoped to a single monitor
// cycle. Callers may issue operations concurrently; the implementation
// serializes traffic toward the platform itself.
type Session interface {
	// CheckAvailable reports whether username is currently unclaimed.
	CheckAvailable(ctx context.Context, username string) (bool, error)
	// Notify sends a message to the session owner. With deferred set, the
	// delivery is scheduled ~30s out, best-effort.
	Notify(ctx context.Context, message string, deferred bool) error
	// Claim creates a channel under username with the given title.
	Claim(ctx context.Context, username, title string) error
	// Close releases the session. Safe to call on every exit path.
	Close() error
}

// Dialer establishes sessions. One Connect per cycle.
type Dialer interface {
	Connect(ctx context.Context) (Session, error)
}
