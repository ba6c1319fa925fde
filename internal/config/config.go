// Package config loads the console's own settings: where the admin API
// lives and how the client behaves. Priority, highest to lowest: environment
// variables, a local .env file, defaults. The server-side configuration this
// console edits is a different thing entirely and lives in the panel store.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"yumeadmin/internal/logger"
)

// Defaults for the console settings. The server URL default matches the
// service's stock admin port.
const (
	DefaultServerURL      = "http://127.0.0.1:8088"
	DefaultRequestTimeout = 30 * time.Second
	DefaultInitialLines   = 200
	DefaultBufferLimit    = 300000
	DefaultRedialDelay    = 3 * time.Second
)

// Settings holds the resolved console configuration.
type Settings struct {
	ServerURL      string
	RequestTimeout time.Duration
	InitialLines   int
	BufferLimit    int
	RedialDelay    time.Duration
	LogLevel       string
	LogFile        string
}

// Service loads and exposes console settings, following the service
// lifecycle so it can initialize alongside the other services.
type Service struct {
	initialized bool
	settings    Settings
}

// NewService creates an uninitialized configuration service.
func NewService() *Service {
	return &Service{}
}

// Name returns the service name "config" for registration.
func (s *Service) Name() string {
	return "config"
}

// Initialize loads the local .env file if one exists, then resolves settings
// from the environment with defaults.
func (s *Service) Initialize() error {
	if s.initialized {
		return nil
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	s.settings = Settings{
		ServerURL:      envString("YUME_ADMIN_URL", DefaultServerURL),
		RequestTimeout: envDuration("YUME_ADMIN_TIMEOUT", DefaultRequestTimeout),
		InitialLines:   envInt("YUME_ADMIN_LOG_LINES", DefaultInitialLines),
		BufferLimit:    envInt("YUME_ADMIN_BUFFER_LIMIT", DefaultBufferLimit),
		RedialDelay:    envDuration("YUME_ADMIN_REDIAL_DELAY", DefaultRedialDelay),
		LogLevel:       strings.ToLower(envString("YUME_LOG_LEVEL", "")),
		LogFile:        envString("YUME_LOG_FILE", ""),
	}
	s.initialized = true

	logger.Debug("console settings loaded", "server", s.settings.ServerURL)
	return nil
}

// Settings returns the resolved settings.
func (s *Service) Settings() (Settings, error) {
	if !s.initialized {
		return Settings{}, fmt.Errorf("config service not initialized")
	}
	return s.settings, nil
}

// Override replaces individual settings after initialization; empty or
// non-positive values keep the loaded ones. CLI flags use this so they take
// precedence over the environment.
func (s *Service) Override(serverURL string, timeout time.Duration, lines int) error {
	if !s.initialized {
		return fmt.Errorf("config service not initialized")
	}
	if strings.TrimSpace(serverURL) != "" {
		s.settings.ServerURL = strings.TrimSpace(serverURL)
	}
	if timeout > 0 {
		s.settings.RequestTimeout = timeout
	}
	if lines > 0 {
		s.settings.InitialLines = lines
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := envString(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := envString(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
