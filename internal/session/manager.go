// Package session owns the authentication lifecycle: login, signup,
// logout and the ban flag of the current user. The other containers read
// identity from here as a point-in-time snapshot.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/internal/events"
	"github.com/spec-kit/trade-companion/internal/observability"
	"github.com/spec-kit/trade-companion/internal/storage"
	"github.com/spec-kit/trade-companion/pkg/util"
)

const (
	containerName = "session"
	snapshotKey   = "session"
)

type snapshot struct {
	User            *domain.User `json:"user"`
	Token           string       `json:"token,omitempty"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

// Dependencies bundles collaborators for the session manager.
type Dependencies struct {
	Provider   Provider
	Store      storage.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// Manager is the session state container. Mutating operations replace the
// state wholesale after the provider call resolves; two overlapping calls
// race on isLoading/lastError, last writer wins (no single-flight guard,
// matching the event-loop semantics of the app shell).
type Manager struct {
	mu         sync.Mutex
	provider   Provider
	store      storage.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	state     snapshot
	isLoading bool
	lastError string
}

// NewManager builds the container and rehydrates any persisted session.
func NewManager(deps Dependencies) *Manager {
	m := &Manager{
		provider:   deps.Provider,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	m.rehydrate()
	return m
}

func (m *Manager) rehydrate() {
	data, err := m.store.Load(context.Background(), snapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		m.logger.Warn("load session snapshot", zap.Error(err))
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.logger.Warn("corrupt session snapshot, starting clean", zap.Error(err))
		return
	}
	m.state = snap
}

// Login validates credentials against the identity provider and replaces
// the session on success. On failure the session stays unauthenticated
// and lastError is set; the error is also returned.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return m.authenticate(ctx, "login", func() (domain.User, string, error) {
		return m.provider.Authenticate(ctx, email, password)
	})
}

// Signup registers a new account with the same success/failure contract
// as Login. An empty name defaults to the email local part (provider
// side).
func (m *Manager) Signup(ctx context.Context, email, password, name string) (*domain.User, error) {
	return m.authenticate(ctx, "signup", func() (domain.User, string, error) {
		return m.provider.Register(ctx, email, password, name)
	})
}

func (m *Manager) authenticate(ctx context.Context, op string, call func() (domain.User, string, error)) (*domain.User, error) {
	m.setLoading(true)

	user, token, err := call()

	m.mu.Lock()
	m.isLoading = false
	if err != nil {
		m.recordFailureLocked(op, err)
		m.mu.Unlock()
		return nil, err
	}
	m.state = snapshot{User: &user, Token: token, IsAuthenticated: true}
	m.lastError = ""
	m.persistLocked(ctx)
	m.mu.Unlock()

	m.metrics.RecordOperation(containerName, op)
	_ = m.dispatcher.Publish(ctx, events.Event{
		Type:    events.EventSessionLoggedIn,
		Payload: events.SessionPayload{UserID: user.ID, Email: user.Email, Role: user.Role},
	})

	out := user
	return &out, nil
}

// Logout clears the session. Idempotent; never fails.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	wasAuthenticated := m.state.IsAuthenticated
	m.state = snapshot{}
	m.isLoading = false
	m.persistLocked(ctx)
	m.mu.Unlock()

	m.metrics.RecordOperation(containerName, "logout")
	if wasAuthenticated {
		_ = m.dispatcher.Publish(ctx, events.Event{Type: events.EventSessionLoggedOut})
	}
}

// BanUser flags the targeted account as banned. Banning the acting
// session's own account is forbidden. Role enforcement for this admin
// capability is layered on top by the presentation code.
func (m *Manager) BanUser(ctx context.Context, targetID string) error {
	m.mu.Lock()
	if m.state.User != nil && m.state.User.ID == targetID {
		err := util.NewSelfBanForbidden()
		m.recordFailureLocked("ban_user", err)
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	return m.setBanned(ctx, "ban_user", targetID, true)
}

// UnbanUser clears the ban flag. Unbanning your own account is allowed.
func (m *Manager) UnbanUser(ctx context.Context, targetID string) error {
	return m.setBanned(ctx, "unban_user", targetID, false)
}

func (m *Manager) setBanned(ctx context.Context, op, targetID string, banned bool) error {
	if err := m.provider.SetBanned(ctx, targetID, banned); err != nil {
		m.mu.Lock()
		m.recordFailureLocked(op, err)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.state.User != nil && m.state.User.ID == targetID {
		m.state.User.IsBanned = banned
		m.persistLocked(ctx)
	}
	m.lastError = ""
	m.mu.Unlock()

	m.metrics.RecordOperation(containerName, op)
	_ = m.dispatcher.Publish(ctx, events.Event{
		Type:    events.EventUserBanChanged,
		Payload: events.BanChangedPayload{UserID: targetID, Banned: banned},
	})
	return nil
}

// ClearError resets lastError. No other side effect.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = ""
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (m *Manager) CurrentUser() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.User == nil {
		return nil
	}
	out := *m.state.User
	return &out
}

// IsAuthenticated reports whether a session is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.IsAuthenticated
}

// IsLoading reports whether an operation is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLoading
}

// LastError returns the stored human-readable error message, empty when
// none.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Identity returns the point-in-time snapshot the other containers stamp
// onto new records. Zero identity when logged out.
func (m *Manager) Identity() domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.IsAuthenticated || m.state.User == nil {
		return domain.Identity{}
	}
	return domain.Identity{
		UserID: m.state.User.ID,
		Email:  m.state.User.Email,
		Role:   m.state.User.Role,
		Token:  m.state.Token,
	}
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isLoading = v
}

func (m *Manager) recordFailureLocked(op string, err error) {
	de := util.ToDomainError(err)
	m.lastError = de.Message
	m.metrics.RecordError(containerName, op, de.Code)
	m.logger.Warn("session operation failed", zap.String("op", op), zap.Error(err))
}

func (m *Manager) persistLocked(ctx context.Context) {
	data, err := json.Marshal(m.state)
	if err != nil {
		m.logger.Error("marshal session snapshot", zap.Error(err))
		return
	}
	if err := m.store.Save(ctx, snapshotKey, data); err != nil {
		m.logger.Warn("persist session snapshot", zap.Error(err))
	}
}
