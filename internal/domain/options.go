package domain

import (
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// EnvDSNVar supplies the lowest-priority DSN.
	EnvDSNVar = "SENTRY_DSN"
	// EnvURLVar supplies a self-hosted instance URL. When set, host
	// validation switches from SaaS-suffix matching to exact matching.
	EnvURLVar = "SENTRY_URL"

	// SaaSDomain is the hosted domain family DSN hosts must belong to when
	// no self-hosted host is configured.
	SaaSDomain = "sentry.io"
)

// Options is the explicit configuration of the detection engine. Ambient
// environment state is captured once at construction so tests can inject
// arbitrary values without process-wide mutation.
type Options struct {
	// EnvDSN is the value of the well-known DSN environment variable.
	EnvDSN string
	// SelfHostedHost, when non-empty, is the exact host DSNs must carry.
	SelfHostedHost string
	// ConfigDSN is an explicitly configured DSN (source "config"). It
	// outranks all scanned sources.
	ConfigDSN string

	// MaxDepth limits how far below the project root the code scanner
	// descends. The scan is a heuristic, not an exhaustive search.
	MaxDepth int
	// MaxFileSize excludes files above this byte count from content scans.
	MaxFileSize int64
	// Concurrency bounds parallel file reads during scanning.
	Concurrency int
	// CacheTTL bounds how long a full-detection record may be trusted.
	CacheTTL time.Duration
	// ExtraIgnoreDirs extends the built-in directory deny-list.
	ExtraIgnoreDirs []string
	// HomeDir is the upward-walk stop boundary (inclusive).
	HomeDir string
}

// DefaultOptions captures the process environment and returns the engine
// defaults.
func DefaultOptions() Options {
	opts := Options{
		EnvDSN:      os.Getenv(EnvDSNVar),
		MaxDepth:    4,
		MaxFileSize: 1 << 20,
		Concurrency: 16,
		CacheTTL:    24 * time.Hour,
	}
	if raw := os.Getenv(EnvURLVar); raw != "" {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			opts.SelfHostedHost = u.Host
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		opts.HomeDir = home
	}
	return opts
}

// HostAllowed is the host-validity predicate applied to parsed DSNs: exact
// match against a configured self-hosted host, or membership in the default
// SaaS domain family.
func (o Options) HostAllowed(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	if o.SelfHostedHost != "" {
		want := strings.ToLower(o.SelfHostedHost)
		if i := strings.LastIndex(want, ":"); i > 0 {
			want = want[:i]
		}
		return host == want
	}
	return host == SaaSDomain || strings.HasSuffix(host, "."+SaaSDomain)
}
