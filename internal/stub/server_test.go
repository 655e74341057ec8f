package stub

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/config"
)

func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "stub-test", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            4,
			MinPasswordLength:     6,
			AdminDomainSuffix:     "@admin.com",
		},
	}
	server := NewServer(cfg, zap.NewNop())
	app := fiber.New()
	server.Router(app)
	return server, app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestSignupLoginAndKeys(t *testing.T) {
	server, app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/signup", "", SignupRequest{
		Email:    "alice@example.com",
		Password: "password1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["name"])
	assert.Equal(t, "user", user["role"])
	require.NotEmpty(t, body["token"])

	// Duplicate signup conflicts.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/signup", "", SignupRequest{
		Email:    "alice@example.com",
		Password: "password1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "password1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)

	// Wrong password rejected.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Key submission requires a bearer token.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/keys", "", KeysRequest{
		Exchange: "binance", APIKey: "k", APISecret: "s",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/keys", token, KeysRequest{
		Exchange: "binance", APIKey: "k", APISecret: "s",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "received", body["status"])

	keys := server.SubmittedKeys()
	require.Len(t, keys, 1)
	assert.Equal(t, "binance", keys[0].Exchange)

	resp, body = doJSON(t, app, http.MethodGet, "/api/test", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestSeededAdminRole(t *testing.T) {
	server, app := newTestServer(t)
	require.NoError(t, server.Seed("support@admin.com", "password1", "Support"))

	resp, body := doJSON(t, app, http.MethodPost, "/api/login", "", LoginRequest{
		Email:    "support@admin.com",
		Password: "password1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin", user["role"])
}

func TestHealthLive(t *testing.T) {
	_, app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])
}
