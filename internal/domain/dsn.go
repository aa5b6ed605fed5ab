package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// DSNSource identifies where a DSN was discovered.
type DSNSource string

const (
	SourceEnv     DSNSource = "env"      // process environment variable
	SourceEnvFile DSNSource = "env_file" // .env-style file
	SourceCode    DSNSource = "code"     // source/config file content
	SourceConfig  DSNSource = "config"   // explicit tool configuration
)

// DSN is a parsed, immutable project identity token.
// Two DSNs are considered the same iff their Raw strings are equal.
type DSN struct {
	Raw       string    `json:"raw"`
	Protocol  string    `json:"protocol"`
	PublicKey string    `json:"public_key"`
	Host      string    `json:"host"`
	ProjectID string    `json:"project_id"`
	OrgID     string    `json:"org_id,omitempty"` // empty for self-hosted instances
	Source    DSNSource `json:"source"`
	// SourcePath is the path of the backing file, relative to the project
	// root. Empty for non-file sources.
	SourcePath string `json:"source_path,omitempty"`
}

// dsnShape matches the full DSN shape: scheme://key@host[:port]/numeric-id.
var dsnShape = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*)://([a-zA-Z0-9]+)@([a-zA-Z0-9][a-zA-Z0-9.-]*(?::\d+)?)/(\d+)$`)

// DSNPattern finds DSN-shaped substrings inside arbitrary text. It is
// deliberately looser on boundaries than dsnShape; candidates it yields are
// re-validated with ParseDSN.
var DSNPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[a-zA-Z0-9]+@[a-zA-Z0-9][a-zA-Z0-9.-]*(?::\d+)?/\d+`)

// orgLabel extracts the numeric org id from a host label like "o123".
var orgLabel = regexp.MustCompile(`^o(\d+)\.`)

// ParseDSN parses raw into a DSN, returning false if it does not have the
// expected shape. Parsing is shape-only: host identity is checked separately
// by the caller (see Options.HostAllowed).
func ParseDSN(raw string) (*DSN, bool) {
	m := dsnShape.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, false
	}
	d := &DSN{
		Raw:       m[0],
		Protocol:  m[1],
		PublicKey: m[2],
		Host:      m[3],
		ProjectID: m[4],
	}
	if om := orgLabel.FindStringSubmatch(d.Host); om != nil {
		d.OrgID = om[1]
	}
	return d, true
}

// HostWithoutPort strips an optional :port suffix from the DSN host.
func (d *DSN) HostWithoutPort() string {
	if i := strings.LastIndex(d.Host, ":"); i > 0 {
		return d.Host[:i]
	}
	return d.Host
}

// SourceDescription returns a human-readable description of where the DSN
// came from, for display code.
func (d *DSN) SourceDescription() string {
	switch d.Source {
	case SourceEnv:
		return "environment variable " + EnvDSNVar
	case SourceEnvFile:
		if d.SourcePath != "" {
			return fmt.Sprintf("env file %s", d.SourcePath)
		}
		return "env file"
	case SourceCode:
		if d.SourcePath != "" {
			return fmt.Sprintf("source file %s", d.SourcePath)
		}
		return "source file"
	case SourceConfig:
		return "project configuration"
	default:
		return string(d.Source)
	}
}

// DedupeDSNs removes entries with duplicate Raw strings, keeping the first
// occurrence so priority order is preserved.
func DedupeDSNs(dsns []DSN) []DSN {
	seen := make(map[string]bool, len(dsns))
	out := dsns[:0:0]
	for _, d := range dsns {
		if seen[d.Raw] {
			continue
		}
		seen[d.Raw] = true
		out = append(out, d)
	}
	return out
}
