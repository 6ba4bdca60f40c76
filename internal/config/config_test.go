// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.URL != "https://api.deepseek.com/chat/completions" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.Model != "deepseek-chat" {
		t.Errorf("API.Model = %q", cfg.API.Model)
	}
	if cfg.API.Temperature != 1.3 {
		t.Errorf("API.Temperature = %v", cfg.API.Temperature)
	}
	if cfg.Sync.URL != "http://localhost:8000/api/save" {
		t.Errorf("Sync.URL = %q", cfg.Sync.URL)
	}
	if cfg.Sync.DebounceMs != 500 {
		t.Errorf("Sync.DebounceMs = %d", cfg.Sync.DebounceMs)
	}
	if !cfg.Sync.Enabled {
		t.Error("Sync.Enabled should default to true")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoadFromPath_SparseFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
model = "deepseek-reasoner"

[server]
port = 9000
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.API.Model != "deepseek-reasoner" {
		t.Errorf("API.Model = %q", cfg.API.Model)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	// Unspecified fields fall back to defaults.
	if cfg.API.URL != Default().API.URL {
		t.Errorf("API.URL = %q, want default", cfg.API.URL)
	}
	if cfg.Sync.DebounceMs != 500 {
		t.Errorf("Sync.DebounceMs = %d, want default", cfg.Sync.DebounceMs)
	}
	if !cfg.Sync.Enabled {
		t.Error("absent sync.enabled should default to true")
	}
}

func TestLoadFromPath_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
temperature = 5.0

[server]
port = 99999
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "temperature") || !strings.Contains(err.Error(), "port") {
		t.Errorf("error should name both bad fields: %v", err)
	}
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.API.Model = "deepseek-reasoner"
	cfg.Sync.Enabled = false
	cfg.Server.WebRoot = "/srv/dojo"

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.API.Model != "deepseek-reasoner" {
		t.Errorf("API.Model = %q", loaded.API.Model)
	}
	if loaded.Sync.Enabled {
		t.Error("Sync.Enabled should survive as false")
	}
	if loaded.Server.WebRoot != "/srv/dojo" {
		t.Errorf("Server.WebRoot = %q", loaded.Server.WebRoot)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DOJOQUEST_MODEL", "env-model")
	t.Setenv("DOJOQUEST_API_KEY", "sk-env")
	t.Setenv("DOJOQUEST_PORT", "9100")
	t.Setenv("DOJOQUEST_SYNC", "false")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.Model != "env-model" {
		t.Errorf("API.Model = %q", cfg.API.Model)
	}
	if cfg.API.Key != "sk-env" {
		t.Errorf("API.Key = %q", cfg.API.Key)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Sync.Enabled {
		t.Error("Sync.Enabled should be overridden to false")
	}
}

func TestApplyEnvOverrides_IgnoresBadPort(t *testing.T) {
	t.Setenv("DOJOQUEST_PORT", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default kept", cfg.Server.Port)
	}
}

func TestDatabasePath_ExplicitWins(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = "/tmp/custom.db"

	got, err := cfg.DatabasePath()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/custom.db" {
		t.Errorf("DatabasePath = %q", got)
	}
}

func TestValidate_NegativeDebounce(t *testing.T) {
	cfg := Default()
	cfg.Sync.DebounceMs = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative debounce")
	}
}
