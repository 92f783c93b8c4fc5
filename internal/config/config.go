// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Store backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Discord DiscordConfig
	Blend   BlendConfig
	Store   StoreConfig
	Catalog CatalogConfig
	API     APIConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DiscordConfig holds the bot session configuration.
type DiscordConfig struct {
	Token        string
	GuildID      string   // Optional; empty registers commands globally
	AllowedRoles []string // Role IDs allowed to run commands; empty denies everyone
}

// BlendConfig holds the daily cycle configuration.
type BlendConfig struct {
	WebhookURL    string
	OpsWebhookURL string // Optional operator channel
	Time          string // HH:MM[:SS] (default: 05:00)
	Timezone      string // IANA name (default: UTC)
	Location      *time.Location

	WebhookTimeout time.Duration // one webhook delivery (default: 30s)
}

// StoreConfig selects and locates the selection store.
type StoreConfig struct {
	Backend  string // badger, sqlite or redis (default: badger)
	DataPath string // default: ~/.dailyblend
	RedisURL string
}

// BadgerPath is the Badger database directory.
func (s StoreConfig) BadgerPath() string { return filepath.Join(s.DataPath, "badger") }

// SQLitePath is the SQLite database file.
func (s StoreConfig) SQLitePath() string { return filepath.Join(s.DataPath, "blend.db") }

// CatalogConfig holds the orchard API client configuration.
type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// APIConfig holds admin API configuration.
type APIConfig struct {
	Enabled      bool
	Port         string        // default: 8080
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: ForceBudget, a forced blend answers in-request
	IdleTimeout  time.Duration // default: 60s
	KeyPath      string        // PASETO key file (default: {data}/api.key)
	CORSOrigins  []string      // browser origins allowed to call the API
}

// MissingVariableError reports a required setting that is not configured.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return "Missing variable in .env: " + e.Name
}

// Flags are the command-line overrides. Empty values fall through to the
// environment.
type Flags struct {
	EnvFile       string
	Env           string
	LogLevel      string
	Token         string
	WebhookURL    string
	DataPath      string
	StoreBackend  string
	RedisURL      string
	BlendTime     string
	BlendTimezone string
	CatalogURL    string
	APIEnabled    string
	APIPort       string
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to .env file")
	fs.StringVar(&f.Env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.Token, "token", "", "Discord bot token")
	fs.StringVar(&f.WebhookURL, "webhook-url", "", "Webhook the daily blend is posted to")
	fs.StringVar(&f.DataPath, "data-path", "", "Directory for persistent state (default: ~/.dailyblend)")
	fs.StringVar(&f.StoreBackend, "store", "", "Selection store backend: badger, sqlite or redis")
	fs.StringVar(&f.RedisURL, "redis-url", "", "Redis URL for the redis backend")
	fs.StringVar(&f.BlendTime, "blend-time", "", "Time of day to blend, HH:MM (default: 05:00)")
	fs.StringVar(&f.BlendTimezone, "blend-timezone", "", "IANA timezone of the blend time (default: UTC)")
	fs.StringVar(&f.CatalogURL, "catalog-url", "", "Orchard API base URL")
	fs.StringVar(&f.APIEnabled, "api-enabled", "", "Serve the admin API (default: false)")
	fs.StringVar(&f.APIPort, "api-port", "", "Admin API port (default: 8080)")
	return f
}

// LoadConfig loads the bot configuration from the process arguments with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig over explicit arguments.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("blender", flag.ContinueOnError)
	f := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f.build(true)
}

// LoadToolConfig resolves configuration for operator tooling, which needs the
// store but not the Discord credentials.
func LoadToolConfig(f *Flags) (*Config, error) {
	return f.build(false)
}

func (f *Flags) build(requireBot bool) (*Config, error) {
	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(f.EnvFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(f.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(f.LogLevel, "LOG_LEVEL", "info"),
		},
		Discord: DiscordConfig{
			Token:        getConfigValue(f.Token, "TOKEN", ""),
			GuildID:      getConfigValue("", "GUILD_ID", ""),
			AllowedRoles: splitList(getConfigValue("", "ALLOWED_ROLES", "")),
		},
		Blend: BlendConfig{
			WebhookURL:    getConfigValue(f.WebhookURL, "BLEND_WEBHOOK_URL", ""),
			OpsWebhookURL: getConfigValue("", "OPS_WEBHOOK_URL", ""),
			Time:          getConfigValue(f.BlendTime, "BLEND_TIME", "05:00"),
			Timezone:      getConfigValue(f.BlendTimezone, "BLEND_TIMEZONE", "UTC"),
		},
		Store: StoreConfig{
			Backend:  strings.ToLower(getConfigValue(f.StoreBackend, "STORE_BACKEND", BackendBadger)),
			DataPath: getConfigValue(f.DataPath, "DATA_PATH", ""),
			RedisURL: getConfigValue(f.RedisURL, "REDIS_URL", ""),
		},
		Catalog: CatalogConfig{
			BaseURL: getConfigValue(f.CatalogURL, "CATALOG_BASE_URL", "https://api.rhythm.cafe"),
		},
		API: APIConfig{
			Enabled:     getBoolConfigValue(f.APIEnabled, "API_ENABLED", false),
			Port:        getConfigValue(f.APIPort, "API_PORT", "8080"),
			KeyPath:     getConfigValue("", "API_KEY_PATH", ""),
			CORSOrigins: splitList(getConfigValue("", "API_CORS_ORIGINS", "")),
		},
	}

	if requireBot {
		// Checked in the order the bot reads them.
		if cfg.Discord.Token == "" {
			return nil, &MissingVariableError{Name: "TOKEN"}
		}
		if cfg.Blend.WebhookURL == "" {
			return nil, &MissingVariableError{Name: "BLEND_WEBHOOK_URL"}
		}
	}

	durations := []struct {
		target *time.Duration
		key    string
		def    string
	}{
		{&cfg.Catalog.Timeout, "CATALOG_TIMEOUT", "30s"},
		{&cfg.Blend.WebhookTimeout, "BLEND_WEBHOOK_TIMEOUT", "30s"},
		{&cfg.API.ReadTimeout, "API_READ_TIMEOUT", "15s"},
		{&cfg.API.WriteTimeout, "API_WRITE_TIMEOUT", "-1s"},
		{&cfg.API.IdleTimeout, "API_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		raw := getConfigValue("", d.key, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.key, raw, err)
		}
		*d.target = parsed
	}
	if cfg.API.WriteTimeout < 0 {
		cfg.API.WriteTimeout = cfg.ForceBudget()
	}

	loc, err := time.LoadLocation(cfg.Blend.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BLEND_TIMEZONE %q: %w", cfg.Blend.Timezone, err)
	}
	cfg.Blend.Location = loc

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	if !slices.Contains(validEnvs, c.App.Environment) {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Store.Backend {
	case BackendBadger, BackendSQLite:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis store backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be badger, sqlite, or redis)", c.Store.Backend)
	}

	if c.Store.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Catalog.Timeout <= 0 {
		return errors.New("CATALOG_TIMEOUT must be positive")
	}
	if c.Blend.WebhookTimeout <= 0 {
		return errors.New("BLEND_WEBHOOK_TIMEOUT must be positive")
	}

	// Zero disables the write deadline.
	if c.API.WriteTimeout != 0 && c.API.WriteTimeout < c.ForceBudget() {
		return fmt.Errorf("API_WRITE_TIMEOUT %s is shorter than a forced blend may take (%s)",
			c.API.WriteTimeout, c.ForceBudget())
	}

	return nil
}

// forceSlack covers the catalog rate limiter wait and formatting around the
// two network calls of a forced blend.
const forceSlack = 30 * time.Second

// ForceBudget is the longest a forced blend can take: one catalog fetch, one
// webhook delivery and forceSlack.
func (c *Config) ForceBudget() time.Duration {
	return c.Catalog.Timeout + c.Blend.WebhookTimeout + forceSlack
}

// IsProduction reports whether the bot runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath resolves the data directory and the paths derived from it.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Store.DataPath, filepath.Join(homeDir, ".dailyblend"))
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded

	keyPath, err := expandPath(c.API.KeyPath, filepath.Join(expanded, "api.key"))
	if err != nil {
		return err
	}
	c.API.KeyPath = keyPath
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// splitList splits a comma separated value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
