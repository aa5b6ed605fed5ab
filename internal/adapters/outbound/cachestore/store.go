// Package cachestore persists per-project-root detection records: an
// in-memory LRU tier in front of one JSON file per root under the user cache
// directory.
//
// No cross-process locking is attempted. Concurrent invocations may lose an
// update; that is acceptable because every read is re-verified before being
// trusted.
package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/getsentry/cli-sub002/internal/domain"
)

const (
	appDirName = "sentry-detect"

	memEntries = 128

	// sweepOneIn is the probability denominator of the lazy sweep: roughly
	// one in this many writes also removes expired records, decoupled from
	// any single read.
	sweepOneIn = 16

	// entryRetention is how long an untouched lightweight entry survives
	// the sweep.
	entryRetention = 30 * 24 * time.Hour
)

// record is the on-disk schema for one project root. Older records missing
// newer optional fields unmarshal cleanly and simply lack them.
type record struct {
	Root      string                  `json:"root"`
	Entry     *domain.CachedDsnEntry  `json:"entry,omitempty"`
	Detection *domain.CachedDetection `json:"detection,omitempty"`
}

// Store implements domain.CacheStore.
type Store struct {
	dir string
	mem *lru.Cache[string, *record]
}

// New creates a store rooted at dir, defaulting to the per-user cache
// directory.
func New(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolving user cache dir: %w", err)
		}
		dir = filepath.Join(base, appDirName, "detections")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	mem, err := lru.New[string, *record](memEntries)
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir, mem: mem}
	s.sweep()
	return s, nil
}

// LoadEntry returns the lightweight entry for root, refreshing its
// last-accessed timestamp. Missing or malformed records are (nil, nil).
func (s *Store) LoadEntry(root string) (*domain.CachedDsnEntry, error) {
	rec := s.load(root)
	if rec == nil || rec.Entry == nil {
		return nil, nil
	}
	rec.Entry.LastAccessed = time.Now()
	_ = s.persist(rec) // touch is best-effort
	return rec.Entry, nil
}

// SaveEntry overwrites the lightweight entry for root.
func (s *Store) SaveEntry(root string, entry *domain.CachedDsnEntry) error {
	rec := s.load(root)
	if rec == nil {
		rec = &record{Root: root}
	}
	rec.Entry = entry
	return s.save(rec)
}

// LoadDetection returns the full-detection record for root, if any.
// Validation (TTL, mtimes) is the caller's responsibility.
func (s *Store) LoadDetection(root string) (*domain.CachedDetection, error) {
	rec := s.load(root)
	if rec == nil {
		return nil, nil
	}
	return rec.Detection, nil
}

// SaveDetection overwrites the full-detection record for root.
func (s *Store) SaveDetection(root string, det *domain.CachedDetection) error {
	rec := s.load(root)
	if rec == nil {
		rec = &record{Root: root}
	}
	rec.Detection = det
	return s.save(rec)
}

// Clear removes the record for a single project root.
func (s *Store) Clear(root string) error {
	s.mem.Remove(root)
	if err := os.Remove(s.path(root)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearAll removes every persisted record.
func (s *Store) ClearAll() error {
	s.mem.Purge()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			_ = os.Remove(filepath.Join(s.dir, e.Name()))
		}
	}
	return nil
}

func (s *Store) load(root string) *record {
	if rec, ok := s.mem.Get(root); ok {
		return rec
	}
	data, err := os.ReadFile(s.path(root))
	if err != nil {
		return nil // missing cache is not an error
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil // malformed records are cache misses
	}
	s.mem.Add(root, &rec)
	return &rec
}

func (s *Store) save(rec *record) error {
	if err := s.persist(rec); err != nil {
		return err
	}
	if rand.Intn(sweepOneIn) == 0 {
		s.sweep()
	}
	return nil
}

// persist writes through a temp-file rename so concurrent readers never see
// a torn record.
func (s *Store) persist(rec *record) error {
	s.mem.Add(rec.Root, rec)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	path := s.path(rec.Root)
	tmp, err := os.CreateTemp(s.dir, ".write-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// sweep removes records whose detection TTL has passed and whose entry has
// not been touched within the retention window.
func (s *Store) sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	now := time.Now()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			_ = os.Remove(path) // unreadable records have no value
			continue
		}
		if rec.Detection != nil && !rec.Detection.Expired(now) {
			continue
		}
		if rec.Entry != nil && now.Sub(rec.Entry.LastAccessed) < entryRetention {
			continue
		}
		s.mem.Remove(rec.Root)
		_ = os.Remove(path)
	}
}

func (s *Store) path(root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}
