package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// ResolvedProject holds org/project names looked up over the network by a
// collaborator. This engine reads it through but never computes it.
type ResolvedProject struct {
	OrgSlug     string `json:"org_slug,omitempty"`
	OrgName     string `json:"org_name,omitempty"`
	ProjectSlug string `json:"project_slug,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
}

// CachedDsnEntry is the lightweight per-project-root cache record holding the
// winning DSN of the last single-DSN resolution.
type CachedDsnEntry struct {
	DSN          DSN              `json:"dsn"`
	Resolved     *ResolvedProject `json:"resolved,omitempty"`
	CachedAt     time.Time        `json:"cached_at"`
	LastAccessed time.Time        `json:"last_accessed"`
}

// CachedDetection is the richer record for all-DSNs (monorepo) resolution.
// It is trusted only after TTL and mtime validation; any failed check makes
// the next lookup treat it as absent.
type CachedDetection struct {
	Fingerprint string `json:"fingerprint"`
	// AllDsns is in priority order and contains no two entries with equal
	// Raw strings.
	AllDsns []DSN `json:"all_dsns"`
	// SourceMtimes maps root-relative paths to mtimes (UnixNano) captured
	// when the record was written. A key with a trailing "/" tracks a
	// directory's own mtime, which changes when entries are added or
	// removed without enumerating them.
	SourceMtimes map[string]int64 `json:"source_mtimes"`
	RootDirMtime int64            `json:"root_dir_mtime"`
	TTLExpiresAt time.Time        `json:"ttl_expires_at"`
}

// Expired reports whether the record's TTL has passed at the given instant.
func (d *CachedDetection) Expired(now time.Time) bool {
	return now.After(d.TTLExpiresAt)
}

// DirMtimeKey marks a root-relative directory path as a tracked container in
// a CachedDetection.SourceMtimes map.
func DirMtimeKey(rel string) string {
	return strings.TrimSuffix(rel, "/") + "/"
}

// IsDirMtimeKey reports whether a SourceMtimes key names a directory.
func IsDirMtimeKey(key string) bool {
	return strings.HasSuffix(key, "/")
}

// Fingerprint computes an order-independent content hash over a DSN set.
// Raws are sorted before hashing so filesystem readdir order cannot change
// the fingerprint between runs that discover the same set.
func Fingerprint(dsns []DSN) string {
	raws := make([]string, 0, len(dsns))
	for _, d := range dsns {
		raws = append(raws, d.Raw)
	}
	sort.Strings(raws)
	h := sha256.New()
	for _, r := range raws {
		h.Write([]byte(r))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Detection is the result shape exposed to consumers.
type Detection struct {
	Primary     *DSN   `json:"primary,omitempty"`
	All         []DSN  `json:"all"`
	HasMultiple bool   `json:"has_multiple"`
	Fingerprint string `json:"fingerprint"`
}
