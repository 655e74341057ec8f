// Package remote holds the thin request wrappers for the external HTTP
// backend. The client core only depends on the small interfaces the
// containers declare; this package provides the real implementation plus
// a simulated-latency mock.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/config"
	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/pkg/util"
)

// AuthResult is the identity provider's answer to login/signup.
type AuthResult struct {
	User  domain.User
	Token string
}

// KeySubmission is the payload of POST /keys.
type KeySubmission struct {
	Exchange  string `json:"exchange"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// Client wraps the external backend endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a client from remote configuration.
func NewClient(cfg config.RemoteConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authResponse struct {
	User struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		Role      string `json:"role"`
		IsBanned  bool   `json:"isBanned"`
		CreatedAt string `json:"createdAt"`
	} `json:"user"`
	Token string `json:"token"`
}

// Login authenticates against POST /login. A non-2xx status is reported
// as invalid credentials; transport errors as remote failure.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	return c.authCall(ctx, "/login", authRequest{Email: email, Password: password})
}

// Signup registers via POST /signup with the same contract as Login.
func (c *Client) Signup(ctx context.Context, email, password, name string) (AuthResult, error) {
	return c.authCall(ctx, "/signup", authRequest{Email: email, Password: password, Name: name})
}

func (c *Client) authCall(ctx context.Context, path string, req authRequest) (AuthResult, error) {
	status, body, err := c.post(ctx, path, "", req)
	if err != nil {
		return AuthResult{}, util.NewRemoteFailure(err)
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("identity provider rejected request",
			zap.String("path", path), zap.Int("status", status))
		return AuthResult{}, util.NewInvalidCredentials()
	}

	var parsed authResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return AuthResult{}, util.NewRemoteFailure(fmt.Errorf("decode %s response: %w", path, err))
	}
	user := domain.User{
		ID:       parsed.User.ID,
		Email:    parsed.User.Email,
		Name:     parsed.User.Name,
		Role:     domain.Role(parsed.User.Role),
		IsBanned: parsed.User.IsBanned,
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if parsed.User.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, parsed.User.CreatedAt); err == nil {
			user.CreatedAt = ts
		}
	}
	return AuthResult{User: user, Token: parsed.Token}, nil
}

// SubmitKey posts an exchange API key to POST /keys with the session's
// bearer token. Any failure is a remote failure; the vault decides what
// to do with it.
func (c *Client) SubmitKey(ctx context.Context, token string, sub KeySubmission) error {
	status, _, err := c.post(ctx, "/keys", token, sub)
	if err != nil {
		return util.NewRemoteFailure(err)
	}
	if status < 200 || status >= 300 {
		return util.NewRemoteFailure(fmt.Errorf("key submission returned status %d", status))
	}
	return nil
}

// TestConnection probes GET /test to check backend reachability.
func (c *Client) TestConnection(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/test", nil)
	if err != nil {
		return util.NewRemoteFailure(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return util.NewRemoteFailure(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return util.NewRemoteFailure(fmt.Errorf("test endpoint returned status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, token string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
