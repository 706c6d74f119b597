package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/VtGoodgame/Chat-service/internal/model"
)

// ErrUserNotFound is returned when the user-service has no user with the
// requested username.
var ErrUserNotFound = errors.New("user not found")

// UserClient talks to the user-service: profile lookup by username and the
// blacklist check.
type UserClient struct {
	baseURL string
	client  *http.Client
}

func NewUserClient(backendURL, userPrefix string, timeout time.Duration) *UserClient {
	return &UserClient{
		baseURL: backendURL + userPrefix,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *UserClient) LookupByUsername(ctx context.Context, username string) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/user/?username="+url.QueryEscape(username), nil)
	if err != nil {
		return nil, fmt.Errorf("build user lookup request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user lookup for %q: %w", username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUserNotFound
	}

	var user model.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user lookup response: %w", err)
	}
	return &user, nil
}

// CheckBlocked asks the user-service whether a block exists in either
// direction between the cookie's owner and the named user. Any transport or
// status failure is surfaced as an error; callers decide how conservative to
// be with it.
func (c *UserClient) CheckBlocked(ctx context.Context, cookieHeader, username string) (model.BlockStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/blacklist/check?username="+url.QueryEscape(username), nil)
	if err != nil {
		return model.BlockStatus{}, fmt.Errorf("build blacklist request: %w", err)
	}
	req.Header.Set("Cookie", cookieHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.BlockStatus{}, fmt.Errorf("blacklist check for %q: %w", username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.BlockStatus{}, fmt.Errorf("blacklist check for %q returned %d", username, resp.StatusCode)
	}

	var status model.BlockStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return model.BlockStatus{}, fmt.Errorf("decode blacklist response: %w", err)
	}
	return status, nil
}
