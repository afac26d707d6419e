// ABOUTME: Configuration loading and parsing for coven-settings
// ABOUTME: Supports YAML or TOML files with environment variable expansion and XDG defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides config discovery.
const EnvConfigPath = "COVEN_SETTINGS_CONFIG"

const appName = "coven-settings"

// Config represents the complete coven-settings configuration
type Config struct {
	DataDir  string         `yaml:"data_dir" toml:"data_dir"`
	Files    FilesConfig    `yaml:"files" toml:"files"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// FilesConfig names the JSON settings files. Relative names live under DataDir.
type FilesConfig struct {
	Servers string `yaml:"servers" toml:"servers"`
	Tokens  string `yaml:"tokens" toml:"tokens"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path   string `yaml:"path" toml:"path"`
	Driver string `yaml:"driver" toml:"driver"`

	BusyTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	BusyTimeoutRaw string `yaml:"busy_timeout" toml:"busy_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Files: FilesConfig{
			Servers: "servers.json",
			Tokens:  "tokens.json",
		},
		Database: DatabaseConfig{
			Path:        "settings.db",
			Driver:      "sqlite",
			BusyTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultDataDir returns $XDG_DATA_HOME/coven-settings, falling back to
// ~/.local/share/coven-settings.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

// Locate returns the config file to load, or "" when none exists.
//
// Order: $COVEN_SETTINGS_CONFIG, ./coven-settings.yaml, then config.yaml or
// config.toml under $XDG_CONFIG_HOME/coven-settings (default ~/.config).
func Locate() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	candidates := []string{appName + ".yaml"}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		candidates = append(candidates,
			filepath.Join(configHome, appName, "config.yaml"),
			filepath.Join(configHome, appName, "config.toml"),
		)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Keys missing from the file keep their Default values. Files ending in .toml
// are parsed as TOML, everything else as YAML. Environment variables in the
// format ${VAR_NAME} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Files.Servers == "" {
		return fmt.Errorf("files.servers is required")
	}
	if c.Files.Tokens == "" {
		return fmt.Errorf("files.tokens is required")
	}
	if c.Files.Servers == c.Files.Tokens {
		return fmt.Errorf("files.servers and files.tokens must differ")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver %q is not supported (want sqlite or sqlite3)", c.Database.Driver)
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// ServersPath returns the servers file path.
func (c *Config) ServersPath() string {
	return c.resolve(c.Files.Servers)
}

// TokensPath returns the access tokens file path.
func (c *Config) TokensPath() string {
	return c.resolve(c.Files.Tokens)
}

// DatabasePath returns the SQLite database path. ":memory:" is passed through.
func (c *Config) DatabasePath() string {
	if c.Database.Path == ":memory:" {
		return c.Database.Path
	}
	return c.resolve(c.Database.Path)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Database.BusyTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Database.BusyTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing busy_timeout %q: %w", cfg.Database.BusyTimeoutRaw, err)
		}
		cfg.Database.BusyTimeout = d
	}
	return nil
}
