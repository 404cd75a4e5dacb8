package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values read from the config file.
const (
	EnvBackendURL   = "BOTANICA_BACKEND_URL"
	EnvClientID     = "BOTANICA_CLIENT_ID"
	EnvClientSecret = "BOTANICA_CLIENT_SECRET"
	EnvDatabasePath = "BOTANICA_DB_PATH"
	EnvLogLevel     = "BOTANICA_LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Identity IdentityConfig `toml:"identity"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	MainData MainDataConfig `toml:"main_data"`
	Logging  LoggingConfig  `toml:"logging"`
}

// BackendConfig describes the remote API the client syncs with.
type BackendConfig struct {
	URL               string       `toml:"url"`
	TimeoutSeconds    int          `toml:"timeout_seconds"`
	RequestsPerSecond float64      `toml:"requests_per_second"`
	Burst             int          `toml:"burst"`
	Paths             BackendPaths `toml:"paths"`
}

// Timeout returns the per-request timeout. Zero means no timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// BackendPaths holds the endpoint paths, which differ slightly between backend deployments.
type BackendPaths struct {
	Login         string `toml:"login"`
	Logout        string `toml:"logout"`
	LoadData      string `toml:"load_data"`
	SaveData      string `toml:"save_data"`
	Subcategories string `toml:"subcategories"`
}

// WithDefaults fills empty paths with the values used by the production backend.
func (p BackendPaths) WithDefaults() BackendPaths {
	if p.Login == "" {
		p.Login = "/verify-google-login"
	}
	if p.Logout == "" {
		p.Logout = "/logout"
	}
	if p.LoadData == "" {
		p.LoadData = "/load-data"
	}
	if p.SaveData == "" {
		p.SaveData = "/save-data"
	}
	if p.Subcategories == "" {
		p.Subcategories = "/subcategories"
	}
	return p
}

// IdentityConfig contains the Google OAuth client credentials.
type IdentityConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the form expected by services.NewIdentityService.
func (c IdentityConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local sign-in callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MainDataConfig holds constraints on the main data record.
type MainDataConfig struct {
	DropdownOptions []string `toml:"dropdown_options"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads the config at path when it exists and falls back to the defaults otherwise.
// Environment overrides apply in both cases.
func ResolveConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		config := DefaultConfig()
		config.ApplyEnv()
		return config, nil
	}
	return LoadConfig(path)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads a .env file from the working directory when present and overrides
// config values with any BOTANICA_* variables that are set.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv(EnvClientID); v != "" {
		c.Identity.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Identity.ClientSecret = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports configuration values the client cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("%w: backend.url is required", ErrInvalidConfig)
	}
	if c.Backend.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: backend.requests_per_second must not be negative", ErrInvalidConfig)
	}
	if c.Backend.RequestsPerSecond > 0 && c.Backend.Burst <= 0 {
		return fmt.Errorf("%w: backend.burst must be positive when rate limiting is enabled", ErrInvalidConfig)
	}
	if c.Backend.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: backend.timeout_seconds must not be negative", ErrInvalidConfig)
	}
	return nil
}
