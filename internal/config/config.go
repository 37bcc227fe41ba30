// Package config provides YAML-based configuration loading for Skiff.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Skiff configuration, loaded from skiff.yaml.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Alist     AlistConfig     `yaml:"alist"`
	Stream    StreamConfig    `yaml:"stream"`
	Aria2     Aria2Config     `yaml:"aria2"`
	Tunnel    TunnelConfig    `yaml:"tunnel"`
	Probe     ProbeConfig     `yaml:"probe"`
	DB        DBConfig        `yaml:"db"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// BridgeConfig selects and configures the chat platform adapter.
type BridgeConfig struct {
	Platform string        `yaml:"platform"` // "discord" or "slack"
	AdminID  string        `yaml:"admin_id"` // empty = no gating
	Discord  DiscordConfig `yaml:"discord"`
	Slack    SlackConfig   `yaml:"slack"`
}

// DiscordConfig holds Discord gateway credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken  string `yaml:"app_token"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// AlistConfig holds connection settings for the alist file index.
type AlistConfig struct {
	BaseURL      string `yaml:"base_url"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Token        string `yaml:"token"`         // override token; wins over password login
	PublicDomain string `yaml:"public_domain"` // external domain, wins over tunnel discovery
}

// StreamConfig configures streaming job dispatch.
type StreamConfig struct {
	// BaseURL is the push base address; the stored key suffix is appended.
	BaseURL string `yaml:"base_url"`
	// Accounts is the delimited "owner/repo|token" pool string.
	Accounts string `yaml:"accounts"`
}

// Aria2Config holds the download daemon RPC endpoint.
type Aria2Config struct {
	RPCURL string `yaml:"rpc_url"`
	Secret string `yaml:"secret"`
}

// TunnelConfig controls public URL discovery.
type TunnelConfig struct {
	Mode   string `yaml:"mode"`    // "quick" scans cloudflared logs
	LogDir string `yaml:"log_dir"` // defaults to ~/.pm2/logs
}

// ProbeConfig controls the service health monitor.
type ProbeConfig struct {
	Cron string `yaml:"cron"` // cron spec or @every duration
}

// DBConfig selects the gorm backend.
type DBConfig struct {
	Driver string `yaml:"driver"` // "sqlite" (default) or "mysql"
	DSN    string `yaml:"dsn"`    // sqlite file path or mysql DSN
}

// DashboardConfig controls the local JSON status API.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
// Environment variables override file values for secrets (see applyEnv).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays environment variables onto the file values. The names
// are kept compatible with the original deployment's .env file.
func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Bridge.Discord.BotToken, "BOT_TOKEN")
	set(&c.Bridge.AdminID, "ADMIN_ID")
	set(&c.Stream.BaseURL, "TG_RTMP_URL")
	set(&c.Stream.Accounts, "GITHUB_ACCOUNTS_LIST")
	set(&c.Alist.PublicDomain, "ALIST_DOMAIN")
	set(&c.Alist.Password, "ALIST_PASSWORD")
	set(&c.Alist.Token, "ALIST_TOKEN")
	set(&c.Aria2.Secret, "ARIA2_RPC_SECRET")
	set(&c.Tunnel.Mode, "TUNNEL_MODE")
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Alist.BaseURL == "" {
		c.Alist.BaseURL = "http://127.0.0.1:5244"
	}
	if c.Alist.Username == "" {
		c.Alist.Username = "admin"
	}
	if c.Aria2.RPCURL == "" {
		c.Aria2.RPCURL = "http://127.0.0.1:6800/jsonrpc"
	}
	if c.Tunnel.Mode == "" {
		c.Tunnel.Mode = "quick"
	}
	if c.Tunnel.LogDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Tunnel.LogDir = filepath.Join(home, ".pm2", "logs")
		}
	}
	if c.Probe.Cron == "" {
		c.Probe.Cron = "@every 2m"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.DSN == "" && c.DB.Driver == "sqlite" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DB.DSN = filepath.Join(home, ".skiff", "skiff.db")
		} else {
			c.DB.DSN = "skiff.db"
		}
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8321
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Bridge.Platform {
	case "":
		errs = append(errs, "bridge.platform is required")
	case "discord":
		if c.Bridge.Discord.BotToken == "" {
			errs = append(errs, "bridge.discord.bot_token is required (or BOT_TOKEN)")
		}
	case "slack":
		if c.Bridge.Slack.BotToken == "" {
			errs = append(errs, "bridge.slack.bot_token is required")
		}
		if c.Bridge.Slack.AppToken == "" {
			errs = append(errs, "bridge.slack.app_token is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("bridge.platform %q is not supported", c.Bridge.Platform))
	}
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q is not supported", c.DB.Driver))
	}
	if c.DB.Driver == "mysql" && c.DB.DSN == "" {
		errs = append(errs, "db.dsn is required for mysql")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
