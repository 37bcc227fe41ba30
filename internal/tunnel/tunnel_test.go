package tunnel

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestPublicURL_DomainOverride(t *testing.T) {
	cases := []struct{ in, want string }{
		{"files.example.com", "https://files.example.com"},
		{"https://files.example.com", "https://files.example.com"},
		{"http://files.example.com", "https://files.example.com"},
		{"files.example.com/", "https://files.example.com"},
	}
	for _, c := range cases {
		r := NewResolver(ResolverOpts{Domain: c.in})
		got, err := r.PublicURL()
		if err != nil {
			t.Errorf("PublicURL(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("PublicURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPublicURL_LogScrape(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "cloudflared-out.log",
		"INF +--------------------------+\n"+
			"INF |  https://old-words-here.trycloudflare.com  |\n"+
			"some reconnect noise\n"+
			"INF |  https://new-words-here.trycloudflare.com  |\n")

	r := NewResolver(ResolverOpts{LogDir: dir})
	got, err := r.PublicURL()
	if err != nil {
		t.Fatalf("PublicURL: %v", err)
	}
	if got != "https://new-words-here.trycloudflare.com" {
		t.Errorf("url = %q, want the newest one", got)
	}
}

func TestPublicURL_ScansOnlyTail(t *testing.T) {
	dir := t.TempDir()
	old := "https://buried-long-ago.trycloudflare.com\n"
	padding := strings.Repeat("x", tailBytes)
	writeLog(t, dir, "cloudflared-out.log", old+padding)

	r := NewResolver(ResolverOpts{LogDir: dir})
	if _, err := r.PublicURL(); !errors.Is(err, ErrNoTunnel) {
		t.Errorf("err = %v, want ErrNoTunnel for a URL outside the tail", err)
	}
}

func TestPublicURL_NoLogs(t *testing.T) {
	r := NewResolver(ResolverOpts{LogDir: t.TempDir()})
	if _, err := r.PublicURL(); !errors.Is(err, ErrNoTunnel) {
		t.Errorf("err = %v, want ErrNoTunnel", err)
	}
}

func TestPublicURL_LogWithoutURL(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "cloudflared-error.log", "connection refused\nretrying\n")

	r := NewResolver(ResolverOpts{LogDir: dir})
	if _, err := r.PublicURL(); !errors.Is(err, ErrNoTunnel) {
		t.Errorf("err = %v, want ErrNoTunnel", err)
	}
}
