// Package tunnel resolves the public address of the local file index.
package tunnel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// tailBytes bounds how much of a tunnel log is scanned; quick-tunnel
// URLs are printed near startup and reprinted on reconnect, so the
// tail is enough.
const tailBytes = 4096

// ErrNoTunnel means no public URL could be resolved.
var ErrNoTunnel = errors.New("tunnel: not up (no public url found)")

var quickURLPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)

// Resolver finds the public base URL for the file index.
type Resolver struct {
	domain string
	logDir string
}

// ResolverOpts holds parameters for creating a Resolver.
type ResolverOpts struct {
	// Domain is a fixed public domain; when set, log scanning is
	// skipped entirely.
	Domain string
	// LogDir is where pm2 writes the cloudflared output logs.
	LogDir string
}

// NewResolver creates a Resolver.
func NewResolver(opts ResolverOpts) *Resolver {
	return &Resolver{domain: opts.Domain, logDir: opts.LogDir}
}

// PublicURL returns the public base URL without a trailing slash.
// A configured domain wins; otherwise the newest quick-tunnel URL is
// scraped from the cloudflared logs.
func (r *Resolver) PublicURL() (string, error) {
	if r.domain != "" {
		return normalizeDomain(r.domain), nil
	}

	logs, err := filepath.Glob(filepath.Join(r.logDir, "*cloudflared*"))
	if err != nil || len(logs) == 0 {
		return "", ErrNoTunnel
	}
	for _, path := range logs {
		if url := lastQuickURL(path); url != "" {
			return url, nil
		}
	}
	return "", ErrNoTunnel
}

// lastQuickURL returns the last quick-tunnel URL in the tail of one
// log file, or empty.
func lastQuickURL(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ""
	}
	if info.Size() > tailBytes {
		if _, err := f.Seek(-tailBytes, io.SeekEnd); err != nil {
			return ""
		}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return ""
	}

	matches := quickURLPattern.FindAll(data, -1)
	if len(matches) == 0 {
		return ""
	}
	return string(matches[len(matches)-1])
}

// normalizeDomain turns a bare or http domain into an https base URL.
func normalizeDomain(domain string) string {
	domain = strings.TrimRight(domain, "/")
	switch {
	case strings.HasPrefix(domain, "https://"):
		return domain
	case strings.HasPrefix(domain, "http://"):
		return "https://" + strings.TrimPrefix(domain, "http://")
	default:
		return "https://" + domain
	}
}

// String describes the resolver mode for status output.
func (r *Resolver) String() string {
	if r.domain != "" {
		return fmt.Sprintf("fixed domain %s", normalizeDomain(r.domain))
	}
	return "quick tunnel (log scrape)"
}
