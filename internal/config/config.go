// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete dojoquest configuration.
type Config struct {
	Version string `toml:"version"`

	// API configuration (upstream chat completion provider)
	API APIConfig `toml:"api"`

	// Sync configuration (debounced snapshot push to the local backend)
	Sync SyncConfig `toml:"sync"`

	// Server configuration (local backend save sink + static hosting)
	Server ServerConfig `toml:"server"`

	// Storage configuration (local durable database)
	Storage StorageConfig `toml:"storage"`
}

// APIConfig contains upstream provider configuration.
type APIConfig struct {
	// URL is the chat completions endpoint.
	URL string `toml:"url"`
	// Model is the model identifier sent with each request.
	Model string `toml:"model"`
	// Temperature is the sampling temperature. The default runs hot so the
	// game characters stay in voice.
	Temperature float64 `toml:"temperature"`
	// Key is an optional API key. A key saved on the player profile takes
	// precedence; this exists for shared or scripted setups.
	Key string `toml:"key"`
}

// SyncConfig contains snapshot sync configuration.
type SyncConfig struct {
	// Enabled toggles remote sync; local persistence always happens.
	Enabled bool `toml:"enabled"`
	// URL is the save sink endpoint.
	URL string `toml:"url"`
	// DebounceMs is the sync debounce window in milliseconds.
	DebounceMs int `toml:"debounce_ms"`
}

// ServerConfig contains local backend configuration.
type ServerConfig struct {
	// Port is the listen port for `dojoquest serve`.
	Port int `toml:"port"`
	// DataDir is where collection snapshots are written. Empty means
	// ~/.dojoquest/data.
	DataDir string `toml:"data_dir"`
	// WebRoot optionally enables static hosting of the browser client.
	WebRoot string `toml:"web_root"`
}

// StorageConfig contains local database configuration.
type StorageConfig struct {
	// Path is the SQLite database file. Empty means ~/.dojoquest/dojoquest.db.
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			URL:         "https://api.deepseek.com/chat/completions",
			Model:       "deepseek-chat",
			Temperature: 1.3,
		},

		Sync: SyncConfig{
			Enabled:    true,
			URL:        "http://localhost:8000/api/save",
			DebounceMs: 500,
		},

		Server: ServerConfig{
			Port: 8000,
		},

		Storage: StorageConfig{},
	}
}

// fillDefaults replaces zero values left by a sparse config file. The
// decode metadata distinguishes an absent sync.enabled from an explicit
// false, so a sparse file does not silently disable sync.
func fillDefaults(cfg *Config, md toml.MetaData) {
	def := Default()
	if !md.IsDefined("sync", "enabled") {
		cfg.Sync.Enabled = def.Sync.Enabled
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.API.URL == "" {
		cfg.API.URL = def.API.URL
	}
	if cfg.API.Model == "" {
		cfg.API.Model = def.API.Model
	}
	if cfg.API.Temperature == 0 {
		cfg.API.Temperature = def.API.Temperature
	}
	if cfg.Sync.URL == "" {
		cfg.Sync.URL = def.Sync.URL
	}
	if cfg.Sync.DebounceMs == 0 {
		cfg.Sync.DebounceMs = def.Sync.DebounceMs
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the dojoquest configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".dojoquest"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DatabasePath resolves the storage path, defaulting under the config dir.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dojoquest.db"), nil
}

// DataDir resolves the server snapshot directory, defaulting under the
// config dir.
func (c *Config) DataDir() (string, error) {
	if c.Server.DataDir != "" {
		return c.Server.DataDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// ensureSecurePermissions fixes permissions on the config file.
// SECURITY: The file may hold an API key, so it should be 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions: %w", err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.dojoquest/config.toml, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	fillDefaults(cfg, md)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to ~/.dojoquest/config.toml.
// SECURITY: Creates the file with 0600 permissions (owner read/write only).
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to the given path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# dojoquest configuration file")
	fmt.Fprintln(file, "# Generated by dojoquest - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := url.ParseRequestURI(c.API.URL); err != nil {
		errs = append(errs, ValidationError{"api.url", "not a valid URL"})
	}
	if c.API.Model == "" {
		errs = append(errs, ValidationError{"api.model", "must not be empty"})
	}
	if c.API.Temperature < 0 || c.API.Temperature > 2 {
		errs = append(errs, ValidationError{"api.temperature", "must be between 0 and 2"})
	}

	if _, err := url.ParseRequestURI(c.Sync.URL); err != nil {
		errs = append(errs, ValidationError{"sync.url", "not a valid URL"})
	}
	if c.Sync.DebounceMs < 0 {
		errs = append(errs, ValidationError{"sync.debounce_ms", "must not be negative"})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{"server.port", "must be between 1 and 65535"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DOJOQUEST_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	// DOJOQUEST_API_URL
	if v := os.Getenv("DOJOQUEST_API_URL"); v != "" {
		c.API.URL = v
	}

	// DOJOQUEST_MODEL
	if v := os.Getenv("DOJOQUEST_MODEL"); v != "" {
		c.API.Model = v
	}

	// DOJOQUEST_API_KEY
	if v := os.Getenv("DOJOQUEST_API_KEY"); v != "" {
		c.API.Key = v
	}

	// DOJOQUEST_SYNC_URL
	if v := os.Getenv("DOJOQUEST_SYNC_URL"); v != "" {
		c.Sync.URL = v
	}

	// DOJOQUEST_SYNC (0/false disables)
	if v := os.Getenv("DOJOQUEST_SYNC"); v != "" {
		c.Sync.Enabled = v == "1" || strings.EqualFold(v, "true")
	}

	// DOJOQUEST_PORT
	if v := os.Getenv("DOJOQUEST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	// DOJOQUEST_DB
	if v := os.Getenv("DOJOQUEST_DB"); v != "" {
		c.Storage.Path = v
	}
}
