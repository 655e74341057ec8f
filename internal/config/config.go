package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the client core and the dev
// stub backend.
type Config struct {
	App     AppConfig
	Storage StorageConfig
	Remote  RemoteConfig
	Auth    AuthConfig
	Policy  PolicyConfig
	Logger  LoggerConfig
}

// AppConfig identifies the application and the stub backend bind address.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// StorageConfig selects the durable snapshot store backend.
type StorageConfig struct {
	Driver        string // memory, sqlite or redis
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// RemoteConfig configures the external backend wrappers. With UseMock set
// the app wires simulated collaborators instead of HTTP calls.
type RemoteConfig struct {
	BaseURL        string
	TimeoutSeconds int
	UseMock        bool
	MockLatencyMS  int
}

// AuthConfig defines identity-provider parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	MinPasswordLength     int
	AdminDomainSuffix     string
}

// PolicyConfig holds per-deployment product policy switches.
type PolicyConfig struct {
	// OfflineTrust allows the credential vault to mark a record connected
	// without server confirmation when the caller retries in offline mode.
	OfflineTrust bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "trade-companion"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "sqlite"),
			SQLitePath:    getEnv("STORAGE_SQLITE_PATH", "trade-companion.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       redisDB,
			KeyPrefix:     getEnv("STORAGE_KEY_PREFIX", "trade-companion"),
		},
		Remote: RemoteConfig{
			BaseURL:        getEnv("REMOTE_BASE_URL", "http://127.0.0.1:8080/api"),
			TimeoutSeconds: getEnvAsInt("REMOTE_TIMEOUT_SECONDS", 15),
			UseMock:        getEnvAsBool("REMOTE_USE_MOCK", true),
			MockLatencyMS:  getEnvAsInt("REMOTE_MOCK_LATENCY_MS", 500),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			MinPasswordLength:     getEnvAsInt("AUTH_MIN_PASSWORD_LENGTH", 6),
			AdminDomainSuffix:     getEnv("AUTH_ADMIN_DOMAIN_SUFFIX", "@admin.com"),
		},
		Policy: PolicyConfig{
			OfflineTrust: getEnvAsBool("POLICY_OFFLINE_TRUST", true),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Addr returns the stub backend bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Timeout returns the remote request timeout duration.
func (r RemoteConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// MockLatency returns the artificial delay applied by mocked collaborators.
func (r RemoteConfig) MockLatency() time.Duration {
	if r.MockLatencyMS <= 0 {
		return 0
	}
	return time.Duration(r.MockLatencyMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
