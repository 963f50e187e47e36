package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// userAPI talks to the pre-provisioned user-session gateway. The Bot API
// cannot check or claim usernames, so those operations run through the
// gateway holding the persisted user session.
type userAPI struct {
	base   string
	token  string
	client *http.Client
}

func newUserAPI(base, token string) *userAPI {
	return &userAPI{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// ping verifies the stored session is still accepted.
func (u *userAPI) ping(ctx context.Context) error {
	return u.do(ctx, http.MethodGet, "/session", nil, nil)
}

func (u *userAPI) checkUsername(ctx context.Context, username string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	if err := u.do(ctx, http.MethodGet, "/usernames/"+username, nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// createChannel makes a new broadcast channel and returns its id.
func (u *userAPI) createChannel(ctx context.Context, title string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	in := map[string]any{"title": title, "broadcast": true}
	if err := u.do(ctx, http.MethodPost, "/channels", in, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("channel id not found")
	}
	return out.ID, nil
}

// assignUsername puts the public username on a channel. The gateway answers
// 409 when the name got taken in the meantime.
func (u *userAPI) assignUsername(ctx context.Context, channelID, username string) error {
	in := map[string]any{"username": username}
	return u.do(ctx, http.MethodPost, "/channels/"+channelID+"/username", in, nil)
}

func (u *userAPI) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fallthrough to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s: %s", ErrAuth, method, path, resp.Status)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s %s", ErrClaimConflict, method, path)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: %s", ErrTransient, method, path, resp.Status)
	default:
		return fmt.Errorf("userapi: %s %s: %s", method, path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("userapi: decode %s %s: %w", method, path, err)
	}
	return nil
}
