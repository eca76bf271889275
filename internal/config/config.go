// Package config provides configuration management for dispatchd.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full dispatchd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	SQLite    SQLiteConfig    `koanf:"sqlite"`
	Auth      AuthConfig      `koanf:"auth"`
	Queue     QueueConfig     `koanf:"queue"`
	Directory DirectoryConfig `koanf:"directory"`
	Worker    WorkerConfig    `koanf:"worker"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr   string        `koanf:"listen_addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// SQLiteConfig holds database settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// AuthConfig holds the static tokens guarding the API boundary.
// AccessToken guards submission and settings endpoints; DispatchToken guards
// the worker pull endpoint.
type AuthConfig struct {
	AccessToken   string `koanf:"access_token"`
	DispatchToken string `koanf:"dispatch_token"`
}

// QueueConfig tunes dispatch queue behavior.
type QueueConfig struct {
	// SettleWindow is the flood-suppression debounce: entries younger than
	// this are invisible to pulls so alert bursts can coalesce.
	SettleWindow time.Duration `koanf:"settle_window"`
	// MaxAttempts caps delivery retries; at the cap an entry moves to the
	// dead state. Zero keeps entries retryable forever.
	MaxAttempts int `koanf:"max_attempts"`
	// LeaseDuration, when set, hides pulled entries from subsequent pulls
	// until the lease expires, so concurrent workers do not double-deliver.
	// Zero disables leasing and every pull sees every due entry.
	LeaseDuration time.Duration `koanf:"lease_duration"`
}

// DirectoryConfig selects and configures the recipient directory.
type DirectoryConfig struct {
	// Mode is "ldap" or "static".
	Mode       string       `koanf:"mode"`
	AdminGroup string       `koanf:"admin_group"`
	LDAP       LDAPConfig   `koanf:"ldap"`
	Static     []StaticUser `koanf:"static"`
}

// LDAPConfig holds directory server connection settings.
type LDAPConfig struct {
	URL          string `koanf:"url"`
	BindDN       string `koanf:"bind_dn"`
	BindPassword string `koanf:"bind_password"`
	BaseDN       string `koanf:"base_dn"`
}

// StaticUser is one directory entry for the static resolver.
type StaticUser struct {
	Username string   `koanf:"username"`
	Email    string   `koanf:"email"`
	Phone    string   `koanf:"phone"`
	Groups   []string `koanf:"groups"`
}

// WorkerConfig configures the delivery worker subcommand.
type WorkerConfig struct {
	ServerURL    string        `koanf:"server_url"`
	Token        string        `koanf:"token"`
	PollInterval time.Duration `koanf:"poll_interval"`
	Timeout      time.Duration `koanf:"timeout"`
	// Substitutions is applied to outgoing titles and messages before
	// delivery (literal old -> new replacements).
	Substitutions map[string]string `koanf:"substitutions"`
	Signal        SignalConfig      `koanf:"signal"`
	SMTP          SMTPConfig        `koanf:"smtp"`
	Ntfy          NtfyConfig        `koanf:"ntfy"`
}

// SignalConfig configures signal-cli invocation.
type SignalConfig struct {
	CLIPath string `koanf:"cli_path"`
	Account string `koanf:"account"`
}

// SMTPConfig configures outbound email delivery.
type SMTPConfig struct {
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	From          string        `koanf:"from"`
	Subject       string        `koanf:"subject"`
	Security      string        `koanf:"security"`
	Timeout       time.Duration `koanf:"timeout"`
	SkipTLSVerify bool          `koanf:"skip_tls_verify"`
}

// NtfyConfig configures push delivery via an ntfy server.
type NtfyConfig struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// Topic overrides the per-user default topic (the recipient username).
	Topic string `koanf:"topic"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:   ":8686",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "dispatchd.db",
		},
		Queue: QueueConfig{
			SettleWindow: 5 * time.Second,
		},
		Directory: DirectoryConfig{
			Mode:       "static",
			AdminGroup: "admins",
		},
		Worker: WorkerConfig{
			ServerURL:    "http://localhost:8686",
			PollInterval: 30 * time.Second,
			Timeout:      10 * time.Second,
			Signal: SignalConfig{
				CLIPath: "signal-cli",
			},
			SMTP: SMTPConfig{
				Port:     25,
				Subject:  "Atlantis Dispatch",
				Security: "starttls",
				Timeout:  5 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given TOML file (optional) and applies
// DISPATCHD_* environment overrides (e.g. DISPATCHD_SERVER__LISTEN_ADDR).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("DISPATCHD_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "DISPATCHD_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at an awkward moment.
func (c *Config) Validate() error {
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	if c.Queue.SettleWindow < 0 {
		return fmt.Errorf("queue.settle_window must not be negative")
	}
	if c.Queue.MaxAttempts < 0 {
		return fmt.Errorf("queue.max_attempts must not be negative")
	}
	switch c.Directory.Mode {
	case "ldap", "static":
	default:
		return fmt.Errorf("directory.mode must be \"ldap\" or \"static\", got %q", c.Directory.Mode)
	}
	if c.Directory.Mode == "ldap" && c.Directory.LDAP.URL == "" {
		return fmt.Errorf("directory.ldap.url is required in ldap mode")
	}
	return nil
}
