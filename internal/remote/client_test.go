package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/config"
	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/pkg/util"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.RemoteConfig{BaseURL: baseURL, TimeoutSeconds: 5}, zap.NewNop())
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["password"] != "password1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{
				"id":        "user-1",
				"email":     req["email"],
				"name":      "alice",
				"role":      "user",
				"createdAt": "2026-08-01T12:30:00Z",
			},
			"token": "signed-token",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.Login(context.Background(), "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)
	assert.Equal(t, domain.RoleUser, result.User.Role)
	assert.Equal(t, "signed-token", result.Token)
	assert.True(t, result.User.CreatedAt.Equal(time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)))

	_, err = client.Login(context.Background(), "alice@example.com", "wrong-password")
	require.Error(t, err)
	assert.True(t, util.HasCode(err, util.CodeInvalidCredentials))
}

func TestSubmitKeyCarriesBearer(t *testing.T) {
	var gotAuth string
	var gotBody KeySubmission
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/keys", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.SubmitKey(context.Background(), "bearer-token", KeySubmission{
		Exchange:  "binance",
		APIKey:    "key",
		APISecret: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer bearer-token", gotAuth)
	assert.Equal(t, "binance", gotBody.Exchange)
}

func TestSubmitKeyMapsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	client := newTestClient(server.URL)

	err := client.SubmitKey(context.Background(), "t", KeySubmission{Exchange: "x"})
	require.Error(t, err)
	assert.True(t, util.HasCode(err, util.CodeRemoteFailure))

	// Unreachable backend: transport error, same classification.
	server.Close()
	err = client.SubmitKey(context.Background(), "t", KeySubmission{Exchange: "x"})
	require.Error(t, err)
	assert.True(t, util.HasCode(err, util.CodeRemoteFailure))
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/test", r.URL.Path)
		require.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.NoError(t, client.TestConnection(context.Background(), "t"))
}

func TestMockSubmitterScriptedFailure(t *testing.T) {
	submitter := NewMockSubmitter(0)
	require.NoError(t, submitter.SubmitKey(context.Background(), "t", KeySubmission{}))

	submitter.Fail(assert.AnError)
	require.Error(t, submitter.SubmitKey(context.Background(), "t", KeySubmission{}))

	submitter.Restore()
	require.NoError(t, submitter.SubmitKey(context.Background(), "t", KeySubmission{}))
}
