package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/config"
	"github.com/spec-kit/trade-companion/internal/domain"
)

func newTestConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "trade-companion", Env: "test"},
		Storage: config.StorageConfig{Driver: "memory"},
		Remote:  config.RemoteConfig{UseMock: true, MockLatencyMS: 0},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			MinPasswordLength:     6,
			AdminDomainSuffix:     "@admin.com",
		},
		Policy: config.PolicyConfig{OfflineTrust: true},
		Logger: config.LoggerConfig{Level: "error"},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(newTestConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// Mirrors the end-to-end support flow: user logs in, opens a ticket, an
// admin replies, the user reads it.
func TestSupportFlow(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	user, err := a.Session.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	assert.True(t, a.Session.IsAuthenticated())
	assert.Equal(t, domain.RoleUser, user.Role)

	ticket, err := a.Tickets.CreateTicket(ctx, a.Identity(), "Help", "Can't connect", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusActive, ticket.Status)
	require.Len(t, ticket.Messages, 1)

	adminIdent := domain.Identity{UserID: "staff-1", Email: "support@admin.com", Role: domain.RoleAdmin}
	_, err = a.Tickets.SendMessage(ctx, adminIdent, ticket.ID, "Try again", "")
	require.NoError(t, err)

	list := a.Tickets.FetchTickets(ctx, a.Identity())
	require.Len(t, list, 1)
	assert.Equal(t, domain.TicketStatusActive, list[0].Status)
	assert.Len(t, list[0].Messages, 2)
	assert.True(t, a.Tickets.HasUnreadMessages())

	viewed, err := a.Tickets.MarkTicketAsRead(ctx, a.Identity(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusViewed, viewed.Status)
	assert.False(t, a.Tickets.HasUnreadMessages())
}

func TestConnectFlow(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)

	cred, err := a.Vault.AddCredential(ctx, a.Identity(), "binance", "key", "secret", false)
	require.NoError(t, err)
	assert.Equal(t, domain.CredentialStatusConnected, cred.Status)
	assert.Equal(t, a.Identity().UserID, cred.UserID)
}

func TestVaultRescopedOnUserChange(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	_, err = a.Vault.AddCredential(ctx, a.Identity(), "binance", "key", "secret", false)
	require.NoError(t, err)
	require.Len(t, a.Vault.Credentials(), 1)

	// Same user logging in again keeps the collection.
	_, err = a.Session.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Len(t, a.Vault.Credentials(), 1)

	a.Session.Logout(ctx)
	_, err = a.Session.Login(ctx, "bob@example.com", "password1")
	require.NoError(t, err)
	assert.Empty(t, a.Vault.Credentials(), "another user's keys must not leak")
}

func TestVaultRescopedAcrossRestart(t *testing.T) {
	cfg := newTestConfig()
	cfg.Storage = config.StorageConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "state.db"),
	}
	ctx := context.Background()

	a1, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	_, err = a1.Session.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	_, err = a1.Vault.AddCredential(ctx, a1.Identity(), "binance", "key", "secret", false)
	require.NoError(t, err)
	a1.Session.Logout(ctx)
	require.NoError(t, a1.Close())

	a2, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a2.Close() })
	require.Len(t, a2.Vault.Credentials(), 1, "collection survives restart")

	_, err = a2.Session.Login(ctx, "bob@example.com", "password1")
	require.NoError(t, err)
	assert.Empty(t, a2.Vault.Credentials(), "bob must not see alice's keys after restart")
}

func TestLocaleWiring(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, domain.DefaultLanguage, a.Locale.Language())
	require.NoError(t, a.Locale.SetLanguage(context.Background(), domain.LanguageRussian))
	assert.Equal(t, domain.LanguageRussian, a.Locale.Language())
}
