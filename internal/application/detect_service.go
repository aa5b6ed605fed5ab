// Package application wires the detection pipeline:
// locate root -> consult cache -> verify -> staged scans -> persist.
package application

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/getsentry/cli-sub002/internal/domain"
)

// DetectService orchestrates DSN resolution for a working directory.
type DetectService struct {
	locator domain.RootLocator
	code    domain.CodeScanner
	envf    domain.EnvFileScanner
	envv    domain.EnvReader
	cache   domain.CacheStore
	opts    domain.Options
	logger  *log.Logger
}

func NewDetectService(
	locator domain.RootLocator,
	code domain.CodeScanner,
	envf domain.EnvFileScanner,
	envv domain.EnvReader,
	cache domain.CacheStore,
	opts domain.Options,
	logger *log.Logger,
) *DetectService {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DetectService{
		locator: locator,
		code:    code,
		envf:    envf,
		envv:    envv,
		cache:   cache,
		opts:    opts,
		logger:  logger,
	}
}

// strategy is one priority stage of the ordered scan. Stages run
// sequentially; concurrency lives inside each scanner.
type strategy struct {
	source domain.DSNSource
	scan   func(ctx context.Context, root string) (*domain.DSN, error)
}

// strategies returns the scan stages in priority order:
// code > env-file > env-var.
func (s *DetectService) strategies() []strategy {
	return []strategy{
		{domain.SourceCode, s.code.ScanFirst},
		{domain.SourceEnvFile, s.envf.ScanRoot},
		{domain.SourceEnv, func(context.Context, string) (*domain.DSN, error) {
			return s.envv.Read(), nil
		}},
	}
}

// Resolve is the single-DSN fast path: locate the root, trust the cache only
// after verification, otherwise run the ordered scan and persist the winner.
// A nil DSN with a nil error means no source produced anything, which is a
// valid outcome.
func (s *DetectService) Resolve(ctx context.Context, startDir string) (*domain.DSN, *domain.ProjectRootResult, error) {
	rootRes, err := s.locator.Locate(ctx, startDir)
	if err != nil {
		return nil, nil, err
	}
	root := rootRes.ProjectRoot

	if dsn := s.configDSN(); dsn != nil {
		return dsn, rootRes, nil
	}

	if entry, err := s.cache.LoadEntry(root); err == nil && entry != nil {
		if dsn := s.verifyEntry(ctx, root, entry); dsn != nil {
			s.logger.Debug("cache hit", "root", root, "source", dsn.Source)
			return dsn, rootRes, nil
		}
		s.logger.Debug("cache entry invalidated", "root", root)
	}

	// A DSN found while locating the root says where the root is, not which
	// DSN wins: the full priority order still applies.
	dsn := s.firstMatch(ctx, root)
	if dsn == nil {
		return nil, rootRes, nil
	}
	s.persistEntry(root, dsn)
	return dsn, rootRes, nil
}

// ResolveAll is the monorepo-aware path: every scanner runs unconditionally,
// results are merged in priority order and fingerprinted, and the record is
// persisted with the mtimes needed to detect mutation on later runs.
func (s *DetectService) ResolveAll(ctx context.Context, startDir string) (*domain.Detection, *domain.ProjectRootResult, error) {
	rootRes, err := s.locator.Locate(ctx, startDir)
	if err != nil {
		return nil, nil, err
	}
	root := rootRes.ProjectRoot

	if det, err := s.cache.LoadDetection(root); err == nil && det != nil {
		if s.detectionValid(root, det) {
			s.logger.Debug("detection cache hit", "root", root, "dsns", len(det.AllDsns))
			return toDetection(det), rootRes, nil
		}
		// Failed validation is a silent miss; the rescan overwrites it.
		s.logger.Debug("detection cache invalidated", "root", root)
	}

	var all []domain.DSN
	if dsn := s.configDSN(); dsn != nil {
		all = append(all, *dsn)
	}

	codeDsns, codePaths, err := s.code.ScanAll(ctx, root)
	if err != nil {
		s.logger.Debug("code scan produced nothing", "err", err)
	}
	all = append(all, codeDsns...)

	envDsns, envPaths, err := s.envf.ScanTree(ctx, root)
	if err != nil {
		s.logger.Debug("env scan produced nothing", "err", err)
	}
	all = append(all, envDsns...)

	if dsn := s.envv.Read(); dsn != nil {
		all = append(all, *dsn)
	}

	// A cancelled walk leaves the scanners' results partial; persisting them
	// would serve a wrong record as a valid cache hit until the TTL passes.
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	all = domain.DedupeDSNs(all)

	det := &domain.CachedDetection{
		Fingerprint:  domain.Fingerprint(all),
		AllDsns:      all,
		SourceMtimes: captureMtimes(root, append(codePaths, envPaths...)),
		RootDirMtime: mtimeOf(root),
		TTLExpiresAt: time.Now().Add(s.opts.CacheTTL),
	}
	if err := s.cache.SaveDetection(root, det); err != nil {
		s.logger.Debug("persisting detection failed", "err", err)
	}
	return toDetection(det), rootRes, nil
}

// configDSN surfaces an explicitly configured DSN (source "config"). It
// outranks every scanned source and is never cached.
func (s *DetectService) configDSN() *domain.DSN {
	if s.opts.ConfigDSN == "" {
		return nil
	}
	dsn, ok := domain.ParseDSN(s.opts.ConfigDSN)
	if !ok || !s.opts.HostAllowed(dsn.Host) {
		return nil
	}
	dsn.Source = domain.SourceConfig
	return dsn
}

// firstMatch evaluates the ordered strategies and returns the first success.
// Scanner errors mean "this source produced nothing", never a failure.
func (s *DetectService) firstMatch(ctx context.Context, root string) *domain.DSN {
	for _, st := range s.strategies() {
		dsn, err := st.scan(ctx, root)
		if err != nil {
			s.logger.Debug("scan stage produced nothing", "source", st.source, "err", err)
			continue
		}
		if dsn != nil {
			s.logger.Debug("scan stage matched", "source", st.source)
			return dsn
		}
	}
	return nil
}

// verifyEntry re-checks a cached single-DSN entry before trusting it,
// without a full rescan:
//
//   - entries from the lower-priority tiers (env, env_file) lose to a code
//     DSN that has since been introduced, found via the cheap
//     stop-on-first-match scan;
//   - file-backed entries are verified by re-reading only their backing
//     file: a changed value wins and replaces the entry, a removed value
//     invalidates it.
//
// Returns nil when the entry can no longer be trusted.
func (s *DetectService) verifyEntry(ctx context.Context, root string, entry *domain.CachedDsnEntry) *domain.DSN {
	cached := entry.DSN

	if cached.Source == domain.SourceEnv || cached.Source == domain.SourceEnvFile {
		if fresh, err := s.code.ScanFirst(ctx, root); err == nil && fresh != nil {
			s.logger.Debug("code DSN supersedes cached entry", "was", cached.Source)
			s.persistEntry(root, fresh)
			return fresh
		}
	}

	switch {
	case cached.SourcePath != "":
		abs := filepath.Join(root, filepath.FromSlash(cached.SourcePath))
		var (
			fresh *domain.DSN
			err   error
		)
		if cached.Source == domain.SourceEnvFile {
			fresh, err = s.envf.ExtractFile(abs, cached.SourcePath)
		} else {
			fresh, err = s.code.ExtractFile(abs, cached.SourcePath)
		}
		if err != nil || fresh == nil {
			return nil // removed: absence wins
		}
		if fresh.Raw != cached.Raw {
			s.persistEntry(root, fresh)
			return fresh // changed: the fresh value wins
		}
		return &cached

	case cached.Source == domain.SourceEnv:
		cur := s.envv.Read()
		if cur == nil || cur.Raw != cached.Raw {
			return nil
		}
		return &cached

	default:
		return &cached
	}
}

// detectionValid applies every invalidation check to a full-detection
// record: TTL, the root directory's mtime, and the mtime of every tracked
// file and directory.
func (s *DetectService) detectionValid(root string, det *domain.CachedDetection) bool {
	if det.Expired(time.Now()) {
		return false
	}
	if mtimeOf(root) != det.RootDirMtime {
		return false
	}
	for key, want := range det.SourceMtimes {
		p := filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(key, "/")))
		fi, err := os.Stat(p)
		if err != nil {
			return false
		}
		if fi.IsDir() != domain.IsDirMtimeKey(key) {
			return false
		}
		if fi.ModTime().UnixNano() != want {
			return false
		}
	}
	return true
}

func (s *DetectService) persistEntry(root string, dsn *domain.DSN) {
	now := time.Now()
	entry := &domain.CachedDsnEntry{
		DSN:          *dsn,
		CachedAt:     now,
		LastAccessed: now,
	}
	if err := s.cache.SaveEntry(root, entry); err != nil {
		s.logger.Debug("persisting entry failed", "err", err)
	}
}

// captureMtimes stats every consulted path relative to root. Paths that
// vanished between scan and capture are simply dropped; the next validation
// pass re-scans anyway.
func captureMtimes(root string, paths []string) map[string]int64 {
	out := make(map[string]int64, len(paths))
	for _, key := range paths {
		if _, dup := out[key]; dup {
			continue
		}
		p := filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(key, "/")))
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		out[key] = fi.ModTime().UnixNano()
	}
	return out
}

func mtimeOf(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.ModTime().UnixNano()
}

func toDetection(det *domain.CachedDetection) *domain.Detection {
	out := &domain.Detection{
		All:         det.AllDsns,
		HasMultiple: len(det.AllDsns) > 1,
		Fingerprint: det.Fingerprint,
	}
	if len(det.AllDsns) > 0 {
		out.Primary = &det.AllDsns[0]
	}
	return out
}
