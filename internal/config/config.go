// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/folio/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete folio configuration.
type Config struct {
	Widget  WidgetConfig  `toml:"widget" json:"widget"`
	Server  ServerConfig  `toml:"server" json:"server"`
	LLM     LLMConfig     `toml:"llm" json:"llm"`
	Log     LogConfig     `toml:"log" json:"log"`
	Profile ProfileConfig `toml:"profile" json:"profile"`
}

// WidgetConfig configures the chat widget client.
type WidgetConfig struct {
	// BackendURL is the base URL of the chat backend.
	BackendURL string `toml:"backend_url" json:"backend_url"`

	// TimeoutSeconds bounds one chat request. 0 disables the bound.
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`

	// IDPolicy selects the message ID generator: clock, uuid or counter.
	IDPolicy string `toml:"id_policy" json:"id_policy"`

	// Greeting replaces the seed assistant message when non-empty.
	Greeting string `toml:"greeting,omitempty" json:"greeting,omitempty"`

	// StartOpen shows the widget panel on launch.
	StartOpen bool `toml:"start_open" json:"start_open"`
}

// ServerConfig configures `folio serve`.
type ServerConfig struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`

	// DatabasePath is the sqlite file holding chat history.
	DatabasePath string `toml:"database_path" json:"database_path"`

	// HistoryLimit is how many stored messages are sent upstream as context.
	HistoryLimit int `toml:"history_limit" json:"history_limit"`

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`

	// RateLimitPerMinute and RateBurst bound requests per client IP.
	RateLimitPerMinute int `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	RateBurst          int `toml:"rate_burst" json:"rate_burst"`

	// DailyQuota caps chat requests per client IP per UTC day. 0 disables it.
	DailyQuota int `toml:"daily_quota" json:"daily_quota"`

	// RedisURL stores quota counters in Redis when set; memory otherwise.
	RedisURL string `toml:"redis_url,omitempty" json:"redis_url,omitempty"`

	// TrustedProxies may set X-Forwarded-For / X-Real-IP.
	TrustedProxies []string `toml:"trusted_proxies,omitempty" json:"trusted_proxies,omitempty"`

	MetricsEnabled         bool `toml:"metrics_enabled" json:"metrics_enabled"`
	ShutdownTimeoutSeconds int  `toml:"shutdown_timeout_seconds" json:"shutdown_timeout_seconds"`
}

// LLMConfig configures the upstream model provider.
type LLMConfig struct {
	APIKey         string  `toml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL        string  `toml:"base_url" json:"base_url"`
	Model          string  `toml:"model" json:"model"`
	Temperature    float32 `toml:"temperature" json:"temperature"`
	MaxTokens      int     `toml:"max_tokens" json:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds" json:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries" json:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Pretty bool   `toml:"pretty" json:"pretty"`

	// File receives TUI logs. Empty means ~/.folio/folio.log.
	File string `toml:"file,omitempty" json:"file,omitempty"`
}

// ProfileConfig points at an optional profile override.
type ProfileConfig struct {
	// Path to a TOML profile replacing the built-in one.
	Path string `toml:"path,omitempty" json:"path,omitempty"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Defaults used by Default and SetDefaults.
const (
	DefaultBackendURL     = "http://127.0.0.1:8000"
	DefaultWidgetTimeout  = 30
	DefaultIDPolicy       = "clock"
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 8000
	DefaultHistoryLimit   = 10
	DefaultRatePerMinute  = 20
	DefaultRateBurst      = 5
	DefaultDailyQuota     = 50
	DefaultShutdown       = 10
	DefaultLLMBaseURL     = "https://api.mistral.ai/v1"
	DefaultModel          = "mistral-small-latest"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 500
	DefaultLLMTimeout     = 60
	DefaultLLMMaxRetries  = 1
	DefaultLogLevel       = "info"
	configDirName         = ".folio"
	configFileName        = "config.toml"
	dotenvFileName        = ".env"
	redactedPlaceholder   = "[REDACTED]"
	maxHistoryLimit       = 100
	maxTokensUpperBound   = 8192
	maxTemperatureAllowed = 2.0
)

// DefaultAllowedOrigins are the local dev front-end origins.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Default returns a configuration populated with defaults.
func Default() *Config {
	return &Config{
		Widget: WidgetConfig{
			BackendURL:     DefaultBackendURL,
			TimeoutSeconds: DefaultWidgetTimeout,
			IDPolicy:       DefaultIDPolicy,
		},
		Server: ServerConfig{
			Host:                   DefaultHost,
			Port:                   DefaultPort,
			DatabasePath:           "",
			HistoryLimit:           DefaultHistoryLimit,
			AllowedOrigins:         append([]string(nil), DefaultAllowedOrigins...),
			RateLimitPerMinute:     DefaultRatePerMinute,
			RateBurst:              DefaultRateBurst,
			DailyQuota:             DefaultDailyQuota,
			MetricsEnabled:         true,
			ShutdownTimeoutSeconds: DefaultShutdown,
		},
		LLM: LLMConfig{
			BaseURL:        DefaultLLMBaseURL,
			Model:          DefaultModel,
			Temperature:    DefaultTemperature,
			MaxTokens:      DefaultMaxTokens,
			TimeoutSeconds: DefaultLLMTimeout,
			MaxRetries:     DefaultLLMMaxRetries,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	if c.Widget.BackendURL == "" {
		c.Widget.BackendURL = DefaultBackendURL
	}
	if c.Widget.IDPolicy == "" {
		c.Widget.IDPolicy = DefaultIDPolicy
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.HistoryLimit == 0 {
		c.Server.HistoryLimit = DefaultHistoryLimit
	}
	if c.Server.AllowedOrigins == nil {
		c.Server.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = DefaultRatePerMinute
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = DefaultRateBurst
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = DefaultShutdown
	}
	if c.Server.DatabasePath == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Server.DatabasePath = filepath.Join(dir, "chat.db")
		} else {
			c.Server.DatabasePath = "chat.db"
		}
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = DefaultLLMBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = DefaultMaxTokens
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = DefaultLLMTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// WidgetTimeout returns the widget request timeout as a duration.
func (c *Config) WidgetTimeout() time.Duration {
	return time.Duration(c.Widget.TimeoutSeconds) * time.Second
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the folio configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("FOLIO_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LogPath returns the TUI log file path.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "folio.log")
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: the file may hold the upstream API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.folio/config.toml if present, then .env files, then
// environment overrides, and validates the result.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		return finish(cfg)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes path over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory and the config
// directory. Variables already in the environment win.
func LoadDotEnv() {
	candidates := []string{dotenvFileName}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, dotenvFileName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# folio configuration file\n")
	buf.WriteString("# Secrets are better kept in .env (MISTRAL_API_KEY).\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - FOLIO_BACKEND_URL: widget.backend_url
//   - FOLIO_TIMEOUT: widget.timeout_seconds
//   - FOLIO_HOST, FOLIO_PORT: server listen address
//   - FOLIO_DB_PATH: server.database_path
//   - FOLIO_ALLOWED_ORIGINS: comma-separated server.allowed_origins
//   - FOLIO_DAILY_QUOTA: server.daily_quota
//   - FOLIO_REDIS_URL or REDIS_URL: server.redis_url
//   - MISTRAL_API_KEY: llm.api_key
//   - FOLIO_LLM_BASE_URL, FOLIO_MODEL: llm.base_url, llm.model
//   - FOLIO_LOG_LEVEL: log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FOLIO_BACKEND_URL"); v != "" {
		c.Widget.BackendURL = v
	}
	if v, ok := envInt("FOLIO_TIMEOUT"); ok {
		c.Widget.TimeoutSeconds = v
	}
	if v := os.Getenv("FOLIO_HOST"); v != "" {
		c.Server.Host = v
	}
	if v, ok := envInt("FOLIO_PORT"); ok {
		c.Server.Port = v
	}
	if v := os.Getenv("FOLIO_DB_PATH"); v != "" {
		c.Server.DatabasePath = v
	}
	if v := os.Getenv("FOLIO_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	if v, ok := envInt("FOLIO_DAILY_QUOTA"); ok {
		c.Server.DailyQuota = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Server.RedisURL = v
	}
	if v := os.Getenv("FOLIO_REDIS_URL"); v != "" {
		c.Server.RedisURL = v
	}
	if v := os.Getenv("MISTRAL_API_KEY"); v != "" {
		c.LLM.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("FOLIO_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("FOLIO_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("FOLIO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring %s=%q: not an integer\n", key, raw)
		return 0, false
	}
	return v, true
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := validateHTTPURL(c.Widget.BackendURL); err != nil {
		add("widget.backend_url", "%v", err)
	}
	if c.Widget.TimeoutSeconds < 0 {
		add("widget.timeout_seconds", "must be >= 0, got %d", c.Widget.TimeoutSeconds)
	}
	switch c.Widget.IDPolicy {
	case "clock", "uuid", "counter":
	default:
		add("widget.id_policy", "invalid policy %q, must be one of: clock, uuid, counter", c.Widget.IDPolicy)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.HistoryLimit < 1 || c.Server.HistoryLimit > maxHistoryLimit {
		add("server.history_limit", "must be between 1 and %d, got %d", maxHistoryLimit, c.Server.HistoryLimit)
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin); err != nil {
			add("server.allowed_origins", "%q: %v", origin, err)
		}
	}
	if c.Server.RateLimitPerMinute < 0 {
		add("server.rate_limit_per_minute", "must be >= 0, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Server.RateBurst < 0 {
		add("server.rate_burst", "must be >= 0, got %d", c.Server.RateBurst)
	}
	if c.Server.DailyQuota < 0 {
		add("server.daily_quota", "must be >= 0, got %d", c.Server.DailyQuota)
	}
	if c.Server.RedisURL != "" {
		u, err := url.Parse(c.Server.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			add("server.redis_url", "must be a redis:// or rediss:// URL")
		}
	}

	if err := validateHTTPURL(c.LLM.BaseURL); err != nil {
		add("llm.base_url", "%v", err)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > maxTemperatureAllowed {
		add("llm.temperature", "must be between 0 and %.1f, got %.2f", maxTemperatureAllowed, c.LLM.Temperature)
	}
	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > maxTokensUpperBound {
		add("llm.max_tokens", "must be between 1 and %d, got %d", maxTokensUpperBound, c.LLM.MaxTokens)
	}
	if c.LLM.MaxRetries < 0 {
		add("llm.max_retries", "must be >= 0, got %d", c.LLM.MaxRetries)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "off", "disabled":
	default:
		add("log.level", "invalid level %q", c.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

var errNotHTTP = errors.New("must be an http:// or https:// URL with a host")

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errNotHTTP
	}
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	clone.Server.TrustedProxies = append([]string(nil), c.Server.TrustedProxies...)
	return &clone
}

// Redacted returns a copy safe to print.
// SECURITY: secrets never reach logs or terminal output.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.LLM.APIKey != "" {
		safe.LLM.APIKey = redactedPlaceholder
	}
	if safe.Server.RedisURL != "" {
		if u, err := url.Parse(safe.Server.RedisURL); err == nil && u.User != nil {
			u.User = url.User(redactedPlaceholder)
			safe.Server.RedisURL = u.String()
		}
	}
	return safe
}

// String renders the redacted config as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	_ = toml.NewEncoder(&buf).Encode(c.Redacted())
	return buf.String()
}
