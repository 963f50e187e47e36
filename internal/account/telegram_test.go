package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// --- fakes ---

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, what.(string))
	return &tele.Message{}, nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestSession(bot *fakeSender, api *userAPI) *session {
	return &session{
		bot:     bot,
		owner:   tele.ChatID(1),
		api:     api,
		log:     zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		delay:   10 * time.Millisecond,
	}
}

// --- tests ---

func TestUserAPI_CheckUsername(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/usernames/alice" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"available": true})
	}))
	defer ts.Close()

	api := newUserAPI(ts.URL, "tok")
	ok, err := api.checkUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("checkUsername: %v", err)
	}
	if !ok {
		t.Fatal("expected available=true")
	}
}

func TestUserAPI_ErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrTransient},
		{http.StatusInternalServerError, ErrTransient},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusConflict, ErrClaimConflict},
	}
	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		api := newUserAPI(ts.URL, "tok")
		_, err := api.checkUsername(context.Background(), "alice")
		ts.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: want %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestSession_ClaimCreatesChannelThenAssignsName(t *testing.T) {
	var gotTitle, gotUsername string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels":
			var in struct {
				Title string `json:"title"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			gotTitle = in.Title
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "ch42"})
		case "/channels/ch42/username":
			var in struct {
				Username string `json:"username"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			gotUsername = in.Username
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	s := newTestSession(&fakeSender{}, newUserAPI(ts.URL, "tok"))
	if err := s.Claim(context.Background(), "alice", "Occupied"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if gotTitle != "Occupied" || gotUsername != "alice" {
		t.Fatalf("claim flow wrong: title=%q username=%q", gotTitle, gotUsername)
	}
}

func TestSession_ClaimConflict(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "ch42"})
		default:
			w.WriteHeader(http.StatusConflict)
		}
	}))
	defer ts.Close()

	s := newTestSession(&fakeSender{}, newUserAPI(ts.URL, "tok"))
	err := s.Claim(context.Background(), "alice", "Occupied")
	if !errors.Is(err, ErrClaimConflict) {
		t.Fatalf("want ErrClaimConflict, got %v", err)
	}
}

func TestSession_NotifyImmediate(t *testing.T) {
	bot := &fakeSender{}
	s := newTestSession(bot, nil)

	if err := s.Notify(context.Background(), "hi", false); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got := bot.messages(); len(got) != 1 || got[0] != "hi" {
		t.Fatalf("unexpected sends: %v", got)
	}
}

func TestSession_NotifyDeferredFiresLater(t *testing.T) {
	bot := &fakeSender{}
	s := newTestSession(bot, nil)

	if err := s.Notify(context.Background(), "later", true); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got := bot.messages(); len(got) != 0 {
		t.Fatalf("deferred message sent immediately: %v", got)
	}

	deadline := time.After(2 * time.Second)
	for {
		if got := bot.messages(); len(got) == 1 && got[0] == "later" {
			return
		}
		select {
		case <-deadline:
			t.Fatal("deferred message never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := newTestSession(&fakeSender{}, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
