package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Scope != "project" {
		t.Errorf("Scope = %q, want project", cfg.Scope)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Store.Backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.Source.MetaExtension != ".meta" {
		t.Errorf("Source.MetaExtension = %q, want .meta", cfg.Source.MetaExtension)
	}
	if !cfg.Source.RequireFileNameMatch {
		t.Error("RequireFileNameMatch should be on by default")
	}
	if cfg.Watcher.Enabled {
		t.Error("Watcher should be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad version", func(c *Config) { c.Version = 99 }, "version"},
		{"bad scope", func(c *Config) { c.Scope = "team" }, "scope"},
		{"bad backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"bad format", func(c *Config) { c.Store.Format = "xml" }, "store.format"},
		{"no roots", func(c *Config) { c.Source.Roots = nil }, "source.roots"},
		{"meta without dot", func(c *Config) { c.Source.MetaExtension = "meta" }, "source.metaExtension"},
		{"negative ttl", func(c *Config) { c.Source.CacheTtlSeconds = -1 }, "source.cacheTtlSeconds"},
		{"negative debounce", func(c *Config) { c.Watcher.DebounceMs = -5 }, "watcher.debounceMs"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"file backend yaml", func(c *Config) { c.Store.Backend = "file"; c.Store.Format = "yaml" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Store.Backend = %q, want default sqlite", cfg.Store.Backend)
	}
	if cfg.Watcher.DebounceMs != 500 {
		t.Errorf("Watcher.DebounceMs = %d, want 500", cfg.Watcher.DebounceMs)
	}
}

func TestLoadConfig_PartialFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".symtrack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	content := `{
  "version": 1,
  "store": {"backend": "file", "format": "yaml"},
  "source": {"extensions": [".cs"]}
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Store.Backend != "file" || cfg.Store.Format != "yaml" {
		t.Errorf("Store = %+v, want file/yaml", cfg.Store)
	}
	if len(cfg.Source.Extensions) != 1 || cfg.Source.Extensions[0] != ".cs" {
		t.Errorf("Source.Extensions = %v, want [.cs]", cfg.Source.Extensions)
	}
	if cfg.Source.MetaExtension != ".meta" {
		t.Errorf("unset keys should keep defaults, got MetaExtension = %q", cfg.Source.MetaExtension)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SYMTRACK_LOGGING_LEVEL", "debug")
	t.Setenv("SYMTRACK_SCOPE", "user")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Scope != "user" {
		t.Errorf("Scope = %q, want user", cfg.Scope)
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".symtrack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(root); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Store.Backend = "file"
	cfg.Store.Format = "toml"
	cfg.Store.Compress = true

	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Store != cfg.Store {
		t.Errorf("Store = %+v, want %+v", loaded.Store, cfg.Store)
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "scope", Message: "must be project or user"}
	want := "config error in field 'scope': must be project or user"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
