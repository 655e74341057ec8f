// Package app composes the four state containers and their collaborators
// at startup. The embedding GUI keeps one App per process and calls into
// the containers directly; nothing here is a global.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/auth"
	"github.com/spec-kit/trade-companion/internal/config"
	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/internal/events"
	"github.com/spec-kit/trade-companion/internal/locale"
	"github.com/spec-kit/trade-companion/internal/observability"
	"github.com/spec-kit/trade-companion/internal/remote"
	"github.com/spec-kit/trade-companion/internal/session"
	"github.com/spec-kit/trade-companion/internal/storage"
	"github.com/spec-kit/trade-companion/internal/tickets"
	"github.com/spec-kit/trade-companion/internal/vault"
)

// App bundles the wired containers.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      storage.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics

	Session *session.Manager
	Vault   *vault.Vault
	Tickets *tickets.Engine
	Locale  *locale.Selector
}

// New wires the client core from configuration: store, dispatcher,
// identity/key collaborators (mocked or HTTP per config) and the four
// containers, each rehydrating its own persisted snapshot.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	var provider session.Provider
	var submitter vault.Submitter
	if cfg.Remote.UseMock {
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
		provider = session.NewMockProvider(cfg.Auth, cfg.Remote.MockLatency(), tokens)
		submitter = remote.NewMockSubmitter(cfg.Remote.MockLatency())
	} else {
		client := remote.NewClient(cfg.Remote, logger)
		provider = session.NewRemoteProvider(client)
		submitter = client
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	}
	a.Session = session.NewManager(session.Dependencies{
		Provider:   provider,
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	a.Vault = vault.NewVault(vault.Dependencies{
		Submitter:  submitter,
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Policy:     cfg.Policy,
	})
	a.Tickets = tickets.NewEngine(tickets.Dependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	a.Locale = locale.NewSelector(locale.Dependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	registerBadgeNotifier(a)
	registerScopeGuard(a)

	return a, nil
}

// Identity returns the acting session snapshot for stamping new records.
func (a *App) Identity() domain.Identity {
	return a.Session.Identity()
}

// Close releases the durable store.
func (a *App) Close() error {
	return a.Store.Close()
}

// registerScopeGuard clears the credential collection when the
// authenticated user changes, so one user's keys never leak into the
// next session on a shared device. Ownership is checked against the
// stored records themselves, which also covers a collection rehydrated
// from a previous process.
func registerScopeGuard(a *App) {
	a.Dispatcher.Subscribe(events.EventSessionLoggedIn, func(ctx context.Context, ev events.Event) error {
		payload, ok := ev.Payload.(events.SessionPayload)
		if !ok {
			return nil
		}
		if owner := a.Vault.OwnerID(); owner != "" && owner != payload.UserID {
			a.Vault.Reset(ctx)
			a.Logger.Info("credential vault re-scoped for new user")
		}
		return nil
	})
}
