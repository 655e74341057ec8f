// Package stub is the in-memory development backend: the minimal HTTP
// surface the client core's remote wrappers talk to. It exists so the
// core can be exercised end-to-end without the production backend; no
// state survives a restart.
package stub

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/auth"
	"github.com/spec-kit/trade-companion/internal/config"
	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/pkg/util"
)

type account struct {
	user domain.User
	hash string
}

// Server holds the stub backend state.
type Server struct {
	mu       sync.Mutex
	cfg      *config.Config
	logger   *zap.Logger
	tokens   *auth.TokenManager
	accounts map[string]account
	keys     []KeysRequest
}

// NewServer builds an empty stub backend.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		tokens:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		accounts: make(map[string]account),
	}
}

// Seed registers an account with a bcrypt-hashed password. The role
// follows the privileged email-domain suffix.
func (s *Server) Seed(email, password, name string) error {
	hash, err := auth.HashPassword(password, s.cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	if name == "" {
		name = domain.DisplayNameFromEmail(email)
	}
	key := strings.ToLower(email)
	role := domain.RoleUser
	if s.cfg.Auth.AdminDomainSuffix != "" && strings.HasSuffix(key, strings.ToLower(s.cfg.Auth.AdminDomainSuffix)) {
		role = domain.RoleAdmin
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[key] = account{
		user: domain.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      name,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		},
		hash: hash,
	}
	return nil
}

// SubmittedKeys returns a copy of the key submissions received so far.
func (s *Server) SubmittedKeys() []KeysRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]KeysRequest, len(s.keys))
	copy(out, s.keys)
	return out
}

// Router wires middlewares and routes onto a fiber app.
func (s *Server) Router(app *fiber.App) {
	app.Use(errorHandlingMiddleware(s.logger))
	app.Use(requestLogger(s.logger))

	app.Get("/health/live", s.handleLive)

	api := app.Group("/api")
	api.Post("/login", s.handleLogin)
	api.Post("/signup", s.handleSignup)
	api.Post("/keys", s.requireBearer, s.handleKeys)
	api.Get("/test", s.requireBearer, s.handleTest)
}

func (s *Server) handleLive(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return util.NewInvalidCredentials()
	}

	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok {
		return util.NewInvalidCredentials()
	}
	if err := auth.ComparePassword(acct.hash, req.Password); err != nil {
		return util.NewInvalidCredentials()
	}

	return s.respondAuth(c, fiber.StatusOK, acct.user)
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	minLen := s.cfg.Auth.MinPasswordLength
	if minLen <= 0 {
		minLen = 6
	}
	if strings.TrimSpace(req.Email) == "" || len(req.Password) < minLen {
		return util.NewInvalidCredentials()
	}

	key := strings.ToLower(req.Email)
	s.mu.Lock()
	if _, exists := s.accounts[key]; exists {
		s.mu.Unlock()
		return util.NewConflict("email already registered", nil)
	}
	s.mu.Unlock()

	if err := s.Seed(req.Email, req.Password, req.Name); err != nil {
		return util.NewInternalError(err)
	}

	s.mu.Lock()
	acct := s.accounts[key]
	s.mu.Unlock()
	return s.respondAuth(c, fiber.StatusCreated, acct.user)
}

func (s *Server) handleKeys(c *fiber.Ctx) error {
	var req KeysRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Exchange == "" || req.APIKey == "" || req.APISecret == "" {
		return util.NewValidationError("exchange, apiKey and apiSecret required", nil)
	}

	s.mu.Lock()
	s.keys = append(s.keys, req)
	s.mu.Unlock()

	s.logger.Info("key submission received", zap.String("exchange", req.Exchange))
	return c.JSON(fiber.Map{"status": "received"})
}

func (s *Server) handleTest(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) respondAuth(c *fiber.Ctx, status int, user domain.User) error {
	token, _, err := s.tokens.GenerateToken(user)
	if err != nil {
		return util.NewInternalError(err)
	}
	return c.Status(status).JSON(AuthResponse{
		User: UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      string(user.Role),
			IsBanned:  user.IsBanned,
			CreatedAt: user.CreatedAt,
		},
		Token: token,
	})
}

func (s *Server) requireBearer(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return util.NewNotAuthenticated()
	}
	claims, err := s.tokens.ParseToken(strings.TrimPrefix(header, prefix))
	if err != nil {
		return util.NewNotAuthenticated()
	}
	c.Locals("claims", claims)
	return c.Next()
}
