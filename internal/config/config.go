package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultStreamPath         = "/agentic/stream"
	defaultRetryMaxRetries    = 3
	defaultRetryBaseDelay     = "300ms"
	defaultRetryMaxDelay      = "5s"
	defaultTUITheme           = "dark"
	defaultTUIShowEvidence    = true
	defaultLogLevel           = "warn"
	defaultConfigRelativePath = ".config/arc/config.toml"
	envBackendBaseURL         = "ARC_BACKEND_BASE_URL"
	envBackendStreamPath      = "ARC_BACKEND_STREAM_PATH"
	envTenant                 = "ARC_TENANT"
	envRetryMaxRetries        = "ARC_BACKEND_RETRY_MAX_RETRIES"
	envRetryBaseDelay         = "ARC_BACKEND_RETRY_BASE_DELAY"
	envRetryMaxDelay          = "ARC_BACKEND_RETRY_MAX_DELAY"
	envTUITheme               = "ARC_TUI_THEME"
	envLogLevel               = "ARC_LOG_LEVEL"
	envLogFile                = "ARC_LOG_FILE"
)

var (
	// ErrInvalidConfig indicates malformed configuration input.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the application configuration root.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	TUI     TUIConfig     `toml:"tui"`
	Log     LogConfig     `toml:"log"`
}

// BackendConfig configures the agent backend connection.
type BackendConfig struct {
	BaseURL    string      `toml:"base_url"`
	StreamPath string      `toml:"stream_path"`
	Tenant     string      `toml:"tenant"`
	Retry      RetryConfig `toml:"retry"`
}

// RetryConfig stores connection retry policy as config-friendly values.
type RetryConfig struct {
	MaxRetries int    `toml:"max_retries"`
	BaseDelay  string `toml:"base_delay"`
	MaxDelay   string `toml:"max_delay"`
}

// TUIConfig configures terminal UI defaults.
type TUIConfig struct {
	Theme        string `toml:"theme"`
	ShowEvidence bool   `toml:"show_evidence"`
}

// LogConfig configures diagnostics output. A file path is required for
// logging in TUI mode; without one diagnostics are discarded rather than
// drawn over the interface.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadOptions controls config loading behavior.
type LoadOptions struct {
	Path string
}

// BackendSettings is a validated backend connection snapshot.
type BackendSettings struct {
	BaseURL    string
	StreamPath string
	Tenant     string
	Retry      RetrySettings
}

// RetrySettings is the parsed connection retry policy.
type RetrySettings struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Default returns application defaults.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			StreamPath: defaultStreamPath,
			Retry: RetryConfig{
				MaxRetries: defaultRetryMaxRetries,
				BaseDelay:  defaultRetryBaseDelay,
				MaxDelay:   defaultRetryMaxDelay,
			},
		},
		TUI: TUIConfig{
			Theme:        defaultTUITheme,
			ShowEvidence: defaultTUIShowEvidence,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
	}
}

// Load reads the config file then applies environment variable overrides.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = defaultConfigPath()
	}

	if err := mergeConfigFile(&cfg, path); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BackendSettings returns validated settings suitable for runtime wiring.
func (c Config) BackendSettings() (BackendSettings, error) {
	baseDelay, err := time.ParseDuration(strings.TrimSpace(c.Backend.Retry.BaseDelay))
	if err != nil {
		return BackendSettings{}, fmt.Errorf("%w: parse backend retry base_delay: %v", ErrInvalidConfig, err)
	}
	maxDelay, err := time.ParseDuration(strings.TrimSpace(c.Backend.Retry.MaxDelay))
	if err != nil {
		return BackendSettings{}, fmt.Errorf("%w: parse backend retry max_delay: %v", ErrInvalidConfig, err)
	}
	if c.Backend.Retry.MaxRetries < 0 {
		return BackendSettings{}, fmt.Errorf("%w: backend retry max_retries must be >= 0", ErrInvalidConfig)
	}

	return BackendSettings{
		BaseURL:    strings.TrimSpace(c.Backend.BaseURL),
		StreamPath: strings.TrimSpace(c.Backend.StreamPath),
		Tenant:     strings.TrimSpace(c.Backend.Tenant),
		Retry: RetrySettings{
			MaxRetries: c.Backend.Retry.MaxRetries,
			BaseDelay:  baseDelay,
			MaxDelay:   maxDelay,
		},
	}, nil
}

func mergeConfigFile(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if value, ok := lookupEnv(envBackendBaseURL); ok {
		cfg.Backend.BaseURL = value
	}
	if value, ok := lookupEnv(envBackendStreamPath); ok {
		cfg.Backend.StreamPath = value
	}
	if value, ok := lookupEnv(envTenant); ok {
		cfg.Backend.Tenant = value
	}
	if value, ok := lookupEnv(envRetryMaxRetries); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, envRetryMaxRetries, err)
		}
		cfg.Backend.Retry.MaxRetries = parsed
	}
	if value, ok := lookupEnv(envRetryBaseDelay); ok {
		cfg.Backend.Retry.BaseDelay = value
	}
	if value, ok := lookupEnv(envRetryMaxDelay); ok {
		cfg.Backend.Retry.MaxDelay = value
	}
	if value, ok := lookupEnv(envTUITheme); ok {
		cfg.TUI.Theme = value
	}
	if value, ok := lookupEnv(envLogLevel); ok {
		cfg.Log.Level = value
	}
	if value, ok := lookupEnv(envLogFile); ok {
		cfg.Log.File = value
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Backend.BaseURL) == "" {
		return fmt.Errorf("%w: backend.base_url is required", ErrInvalidConfig)
	}
	if _, err := cfg.BackendSettings(); err != nil {
		return err
	}
	return nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultConfigRelativePath)
}
