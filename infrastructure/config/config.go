package config

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Enabled bool

	IdentityBaseURL  string
	LoginPath        string
	RefreshPath      string
	LogoutPath       string
	HTTPTimeout      time.Duration

	SessionFile string
	SessionKey  []byte

	BroadcastBackend string
	BroadcastChannel string
	RedisURL         string
	DatabaseURL      string

	TokenLeeway   time.Duration
	TokenJitter   time.Duration
	TokenMinDelay time.Duration

	InactivityLimit          time.Duration
	InactivityWarningWindow  time.Duration
	VisibilityPauseThreshold time.Duration

	LogLevel  string
	LogFormat string
}

var (
	ErrMissingIdentityURL  = errors.New("IDENTITY_BASE_URL is required when sessions are enabled")
	ErrMissingRedisURL     = errors.New("REDIS_URL is required for the redis broadcast backend")
	ErrMissingDatabaseURL  = errors.New("DATABASE_URL is required for the postgres broadcast backend")
	ErrInvalidBackend      = errors.New("invalid broadcast backend")
	ErrInvalidSessionKey   = errors.New("SESSION_KEY must be 32 bytes, base64-encoded")
	ErrInvalidWindow       = errors.New("INACTIVITY_WARNING_WINDOW must be shorter than INACTIVITY_LIMIT")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Enabled:          getEnvOrDefaultBool("SESSION_ENABLED", true),
		IdentityBaseURL:  os.Getenv("IDENTITY_BASE_URL"),
		LoginPath:        getEnvOrDefault("IDENTITY_LOGIN_PATH", "/v1/auth/login"),
		RefreshPath:      getEnvOrDefault("IDENTITY_REFRESH_PATH", "/v1/auth/refresh"),
		LogoutPath:       getEnvOrDefault("IDENTITY_LOGOUT_PATH", "/v1/auth/logout"),
		SessionFile:      getEnvOrDefault("SESSION_FILE", defaultSessionFile()),
		BroadcastBackend: getEnvOrDefault("BROADCAST_BACKEND", "memory"),
		BroadcastChannel: getEnvOrDefault("BROADCAST_CHANNEL", "sessionkit_events"),
		RedisURL:         getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:      getEnvOrDefault("DATABASE_URL", ""),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvOrDefault("LOG_FORMAT", "json"),
	}

	cfg.HTTPTimeout = getEnvOrDefaultSeconds("IDENTITY_HTTP_TIMEOUT", 10*time.Second)
	cfg.TokenLeeway = getEnvOrDefaultSeconds("TOKEN_LEEWAY", 60*time.Second)
	cfg.TokenJitter = getEnvOrDefaultSeconds("TOKEN_JITTER", 30*time.Second)
	cfg.TokenMinDelay = getEnvOrDefaultSeconds("TOKEN_MIN_DELAY", 5*time.Second)
	cfg.InactivityLimit = getEnvOrDefaultSeconds("INACTIVITY_LIMIT", 30*time.Minute)
	cfg.InactivityWarningWindow = getEnvOrDefaultSeconds("INACTIVITY_WARNING_WINDOW", 60*time.Second)
	cfg.VisibilityPauseThreshold = getEnvOrDefaultSeconds("VISIBILITY_PAUSE_THRESHOLD", 10*time.Minute)

	if key := os.Getenv("SESSION_KEY"); key != "" {
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err != nil || len(decoded) != 32 {
			return nil, ErrInvalidSessionKey
		}
		cfg.SessionKey = decoded
	}

	// Validate required fields
	if cfg.Enabled && cfg.IdentityBaseURL == "" {
		return nil, ErrMissingIdentityURL
	}

	switch cfg.BroadcastBackend {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, ErrMissingRedisURL
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, ErrMissingDatabaseURL
		}
	default:
		return nil, ErrInvalidBackend
	}

	if cfg.InactivityWarningWindow >= cfg.InactivityLimit {
		return nil, ErrInvalidWindow
	}

	return cfg, nil
}

func defaultSessionFile() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sessionkit", "session.json")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// interpret as seconds if numeric, else parse like Go duration
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}
