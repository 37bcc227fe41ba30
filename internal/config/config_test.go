package config

import (
	"strings"
	"testing"
)

const minimalYAML = `
bridge:
  platform: discord
  discord:
    bot_token: tok
`

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Alist.BaseURL != "http://127.0.0.1:5244" {
		t.Errorf("alist base url default = %q", cfg.Alist.BaseURL)
	}
	if cfg.Alist.Username != "admin" {
		t.Errorf("alist username default = %q", cfg.Alist.Username)
	}
	if cfg.Aria2.RPCURL != "http://127.0.0.1:6800/jsonrpc" {
		t.Errorf("aria2 rpc default = %q", cfg.Aria2.RPCURL)
	}
	if cfg.Probe.Cron != "@every 2m" {
		t.Errorf("probe cron default = %q", cfg.Probe.Cron)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("db driver default = %q", cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		t.Error("expected sqlite DSN default")
	}
}

func TestParse_MissingPlatform(t *testing.T) {
	_, err := Parse([]byte("alist:\n  base_url: http://x\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "bridge.platform") {
		t.Errorf("error should mention platform: %v", err)
	}
}

func TestParse_UnsupportedPlatform(t *testing.T) {
	_, err := Parse([]byte("bridge:\n  platform: irc\n"))
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("expected unsupported platform error, got %v", err)
	}
}

func TestParse_SlackRequiresBothTokens(t *testing.T) {
	yml := `
bridge:
  platform: slack
  slack:
    bot_token: xoxb-1
`
	_, err := Parse([]byte(yml))
	if err == nil || !strings.Contains(err.Error(), "app_token") {
		t.Fatalf("expected app_token error, got %v", err)
	}
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("GITHUB_ACCOUNTS_LIST", "o/r|secrettoken1")
	t.Setenv("ADMIN_ID", "42")
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Stream.Accounts != "o/r|secrettoken1" {
		t.Errorf("env accounts override not applied: %q", cfg.Stream.Accounts)
	}
	if cfg.Bridge.AdminID != "42" {
		t.Errorf("env admin override not applied: %q", cfg.Bridge.AdminID)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":\nnot yaml"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}
