package account

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// deferDelay is how far out a deferred notification is scheduled. Delivery
// is best-effort: a timer that has not fired when the process exits is lost.
const deferDelay = 30 * time.Second

type Config struct {
	Token        string // bot token, used for notifications
	OwnerChatID  int64  // notification target
	UserAPIURL   string // user-session gateway
	UserAPIToken string
}

// Telegram dials one account session per cycle: the notification bot plus
// the user-session gateway that can check and claim usernames.
type Telegram struct {
	cfg Config
	log *zap.Logger
}

func NewTelegram(cfg Config, log *zap.Logger) *Telegram {
	return &Telegram{cfg: cfg, log: log}
}

func (t *Telegram) Connect(ctx context.Context) (Session, error) {
	// NewBot verifies the token against getMe, so a bad token fails here
	// rather than on the first notification.
	bot, err := tele.NewBot(tele.Settings{
		Token:  t.cfg.Token,
		Client: &http.Client{Timeout: 15 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	api := newUserAPI(t.cfg.UserAPIURL, t.cfg.UserAPIToken)
	if err := api.ping(ctx); err != nil {
		return nil, fmt.Errorf("verify user session: %w", err)
	}

	return &session{
		bot:   bot,
		owner: tele.ChatID(t.cfg.OwnerChatID),
		api:   api,
		log:   t.log,
		// The platform throttles aggressively; one outbound call at a time,
		// spaced out, regardless of how many checks run concurrently.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		delay:   deferDelay,
	}, nil
}

// sender is the subset of *tele.Bot the session uses; faked in tests.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type session struct {
	bot     sender
	owner   tele.Recipient
	api     *userAPI
	log     *zap.Logger
	limiter *rate.Limiter
	delay   time.Duration

	closed  atomic.Bool
	pending atomic.Int64
}

func (s *session) CheckAvailable(ctx context.Context, username string) (bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}
	return s.api.checkUsername(ctx, username)
}

func (s *session) Notify(ctx context.Context, message string, deferred bool) error {
	if !deferred {
		return s.send(ctx, message)
	}

	s.pending.Add(1)
	time.AfterFunc(s.delay, func() {
		defer s.pending.Add(-1)
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.send(sctx, message); err != nil {
			s.log.Warn("deferred_notify_failed", zap.Error(err))
		}
	})
	return nil
}

func (s *session) send(ctx context.Context, message string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := s.bot.Send(s.owner, message); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (s *session) Claim(ctx context.Context, username, title string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	id, err := s.api.createChannel(ctx, title)
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	if err := s.api.assignUsername(ctx, id, username); err != nil {
		return fmt.Errorf("assign username @%s: %w", username, err)
	}
	return nil
}

func (s *session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	// Deferred notifications keep their timers; they fire if the process is
	// still around.
	if n := s.pending.Load(); n > 0 {
		s.log.Info("session_closed_with_pending_notifications", zap.Int64("pending", n))
	}
	return nil
}
