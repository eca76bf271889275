package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8686" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Queue.SettleWindow != 5*time.Second {
		t.Errorf("settle window = %v, want 5s", cfg.Queue.SettleWindow)
	}
	if cfg.Directory.Mode != "static" {
		t.Errorf("directory mode = %q, want static", cfg.Directory.Mode)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
listen_addr = ":9999"

[auth]
access_token = "file-token"

[queue]
settle_window = "30s"
max_attempts = 5

[[directory.static]]
username = "alice"
email = "alice@example.org"
phone = "+49151"
groups = ["admins"]

[worker.substitutions]
"icinga.internal" = "icinga.example.org"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Auth.AccessToken != "file-token" {
		t.Errorf("access token = %q", cfg.Auth.AccessToken)
	}
	if cfg.Queue.SettleWindow != 30*time.Second {
		t.Errorf("settle window = %v", cfg.Queue.SettleWindow)
	}
	if cfg.Queue.MaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Queue.MaxAttempts)
	}
	if len(cfg.Directory.Static) != 1 || cfg.Directory.Static[0].Username != "alice" {
		t.Errorf("static users = %+v", cfg.Directory.Static)
	}
	if cfg.Worker.Substitutions["icinga.internal"] != "icinga.example.org" {
		t.Errorf("substitutions = %+v", cfg.Worker.Substitutions)
	}
	// Unset sections keep their defaults.
	if cfg.Worker.PollInterval != 30*time.Second {
		t.Errorf("poll interval = %v, want default", cfg.Worker.PollInterval)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DISPATCHD_SERVER__LISTEN_ADDR", ":7777")
	t.Setenv("DISPATCHD_AUTH__ACCESS_TOKEN", "env-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("listen addr = %q, want env override", cfg.Server.ListenAddr)
	}
	if cfg.Auth.AccessToken != "env-token" {
		t.Errorf("access token = %q, want env override", cfg.Auth.AccessToken)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"empty sqlite path", func(c *Config) { c.SQLite.Path = "" }, true},
		{"negative settle window", func(c *Config) { c.Queue.SettleWindow = -time.Second }, true},
		{"negative max attempts", func(c *Config) { c.Queue.MaxAttempts = -1 }, true},
		{"bogus directory mode", func(c *Config) { c.Directory.Mode = "carrier-pigeon" }, true},
		{"ldap without url", func(c *Config) { c.Directory.Mode = "ldap" }, true},
		{"ldap with url", func(c *Config) {
			c.Directory.Mode = "ldap"
			c.Directory.LDAP.URL = "ldap://localhost:389"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
