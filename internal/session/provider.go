package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/trade-companion/internal/auth"
	"github.com/spec-kit/trade-companion/internal/config"
	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/internal/remote"
	"github.com/spec-kit/trade-companion/pkg/util"
)

// Provider is the identity collaborator the session manager validates
// against. Implementations: the simulated provider below and the HTTP
// backend wrapper.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (domain.User, string, error)
	Register(ctx context.Context, email, password, name string) (domain.User, string, error)
	SetBanned(ctx context.Context, userID string, banned bool) error
}

// MockProvider simulates the identity backend client-side: fixed latency,
// local validation rules, role derived from a privileged email-domain
// suffix. Accounts are kept in memory so a user keeps a stable id and ban
// flag across logins within one process.
type MockProvider struct {
	mu       sync.Mutex
	cfg      config.AuthConfig
	latency  time.Duration
	tokens   *auth.TokenManager
	accounts map[string]*domain.User // keyed by lowercased email
}

// NewMockProvider builds the simulated identity provider.
func NewMockProvider(cfg config.AuthConfig, latency time.Duration, tokens *auth.TokenManager) *MockProvider {
	return &MockProvider{
		cfg:      cfg,
		latency:  latency,
		tokens:   tokens,
		accounts: make(map[string]*domain.User),
	}
}

// Authenticate validates credentials and returns the user plus a bearer
// token. Validation: non-empty email, password of at least the configured
// minimum length.
func (p *MockProvider) Authenticate(ctx context.Context, email, password string) (domain.User, string, error) {
	if err := p.wait(ctx); err != nil {
		return domain.User{}, "", util.NewRemoteFailure(err)
	}
	if err := p.validate(email, password); err != nil {
		return domain.User{}, "", err
	}
	user := p.account(email, "")
	return p.issue(user)
}

// Register creates (or reuses) an account, defaulting the display name to
// the email local part.
func (p *MockProvider) Register(ctx context.Context, email, password, name string) (domain.User, string, error) {
	if err := p.wait(ctx); err != nil {
		return domain.User{}, "", util.NewRemoteFailure(err)
	}
	if err := p.validate(email, password); err != nil {
		return domain.User{}, "", err
	}
	user := p.account(email, name)
	return p.issue(user)
}

// SetBanned toggles the ban flag on a known account.
func (p *MockProvider) SetBanned(_ context.Context, userID string, banned bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, user := range p.accounts {
		if user.ID == userID {
			user.IsBanned = banned
			return nil
		}
	}
	return util.NewNotFound("user", map[string]any{"userId": userID})
}

func (p *MockProvider) validate(email, password string) error {
	minLen := p.cfg.MinPasswordLength
	if minLen <= 0 {
		minLen = 6
	}
	if strings.TrimSpace(email) == "" || len(password) < minLen {
		return util.NewInvalidCredentials()
	}
	return nil
}

func (p *MockProvider) account(email, name string) domain.User {
	key := strings.ToLower(strings.TrimSpace(email))

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.accounts[key]; ok {
		if name != "" {
			existing.Name = name
		}
		return *existing
	}

	if name == "" {
		name = domain.DisplayNameFromEmail(email)
	}
	role := domain.RoleUser
	if p.cfg.AdminDomainSuffix != "" && strings.HasSuffix(key, strings.ToLower(p.cfg.AdminDomainSuffix)) {
		role = domain.RoleAdmin
	}
	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	p.accounts[key] = user
	return *user
}

func (p *MockProvider) issue(user domain.User) (domain.User, string, error) {
	token, _, err := p.tokens.GenerateToken(user)
	if err != nil {
		return domain.User{}, "", util.NewInternalError(err)
	}
	return user, token, nil
}

func (p *MockProvider) wait(ctx context.Context) error {
	if p.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(p.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// remoteProvider delegates to the HTTP identity endpoints.
type remoteProvider struct {
	api *remote.Client
}

// NewRemoteProvider wraps the HTTP backend as an identity provider.
func NewRemoteProvider(api *remote.Client) Provider {
	return &remoteProvider{api: api}
}

func (p *remoteProvider) Authenticate(ctx context.Context, email, password string) (domain.User, string, error) {
	result, err := p.api.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}
	return result.User, result.Token, nil
}

func (p *remoteProvider) Register(ctx context.Context, email, password, name string) (domain.User, string, error) {
	result, err := p.api.Signup(ctx, email, password, name)
	if err != nil {
		return domain.User{}, "", err
	}
	return result.User, result.Token, nil
}

// SetBanned has no remote endpoint in the backend contract; ban management
// stays a client-side capability of the simulated provider.
func (p *remoteProvider) SetBanned(context.Context, string, bool) error {
	return util.NewValidationError("remote identity provider does not support ban management", nil)
}
