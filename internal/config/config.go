package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 1

// Config represents the complete symtrack configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Scope   string `json:"scope" mapstructure:"scope"`

	Store   StoreConfig   `json:"store" mapstructure:"store"`
	Source  SourceConfig  `json:"source" mapstructure:"source"`
	Watcher WatcherConfig `json:"watcher" mapstructure:"watcher"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// StoreConfig selects the persistence backend for the registry
type StoreConfig struct {
	Backend  string `json:"backend" mapstructure:"backend"` // sqlite or file
	Format   string `json:"format" mapstructure:"format"`   // json, yaml or toml (file backend)
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// SourceConfig configures the filesystem symbol source
type SourceConfig struct {
	Roots                []string `json:"roots" mapstructure:"roots"`
	Extensions           []string `json:"extensions" mapstructure:"extensions"`
	Ignore               []string `json:"ignore" mapstructure:"ignore"`
	MetaExtension        string   `json:"metaExtension" mapstructure:"metaExtension"`
	CreateMissingMeta    bool     `json:"createMissingMeta" mapstructure:"createMissingMeta"`
	RequireFileNameMatch bool     `json:"requireFileNameMatch" mapstructure:"requireFileNameMatch"`
	CacheTtlSeconds      int      `json:"cacheTtlSeconds" mapstructure:"cacheTtlSeconds"`
}

// WatcherConfig contains file watcher configuration
type WatcherConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	DebounceMs int  `json:"debounceMs" mapstructure:"debounceMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scope:   "project",
		Store: StoreConfig{
			Backend:  "sqlite",
			Format:   "json",
			Compress: false,
		},
		Source: SourceConfig{
			Roots:                []string{"."},
			Extensions:           []string{".cs", ".go", ".java"},
			Ignore:               []string{".git", ".symtrack", "node_modules", "vendor", "Library", "Temp"},
			MetaExtension:        ".meta",
			CreateMissingMeta:    false,
			RequireFileNameMatch: true,
			CacheTtlSeconds:      300,
		},
		Watcher: WatcherConfig{
			Enabled:    false,
			DebounceMs: 500,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// setDefaults mirrors DefaultConfig so partial files and env overrides
// layer on top of it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("scope", d.Scope)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.format", d.Store.Format)
	v.SetDefault("store.compress", d.Store.Compress)
	v.SetDefault("source.roots", d.Source.Roots)
	v.SetDefault("source.extensions", d.Source.Extensions)
	v.SetDefault("source.ignore", d.Source.Ignore)
	v.SetDefault("source.metaExtension", d.Source.MetaExtension)
	v.SetDefault("source.createMissingMeta", d.Source.CreateMissingMeta)
	v.SetDefault("source.requireFileNameMatch", d.Source.RequireFileNameMatch)
	v.SetDefault("source.cacheTtlSeconds", d.Source.CacheTtlSeconds)
	v.SetDefault("watcher.enabled", d.Watcher.Enabled)
	v.SetDefault("watcher.debounceMs", d.Watcher.DebounceMs)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// LoadConfig loads configuration from <root>/.symtrack/config.json.
// SYMTRACK_* environment variables override file values, e.g.
// SYMTRACK_STORE_BACKEND=file or SYMTRACK_LOGGING_LEVEL=debug.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".symtrack"))

	v.SetEnvPrefix("SYMTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <root>/.symtrack/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".symtrack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	switch c.Scope {
	case "project", "user":
	default:
		return &ConfigError{Field: "scope", Message: "must be project or user"}
	}

	switch c.Store.Backend {
	case "sqlite", "file":
	default:
		return &ConfigError{Field: "store.backend", Message: "must be sqlite or file"}
	}

	switch c.Store.Format {
	case "json", "yaml", "toml":
	default:
		return &ConfigError{Field: "store.format", Message: "must be json, yaml or toml"}
	}

	if len(c.Source.Roots) == 0 {
		return &ConfigError{Field: "source.roots", Message: "at least one root is required"}
	}

	if !strings.HasPrefix(c.Source.MetaExtension, ".") {
		return &ConfigError{Field: "source.metaExtension", Message: "must start with a dot"}
	}

	if c.Source.CacheTtlSeconds < 0 {
		return &ConfigError{Field: "source.cacheTtlSeconds", Message: "cannot be negative"}
	}

	if c.Watcher.DebounceMs < 0 {
		return &ConfigError{Field: "watcher.debounceMs", Message: "cannot be negative"}
	}

	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
