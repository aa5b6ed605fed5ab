// Package envscan discovers DSNs in .env-style files and in the process
// environment.
package envscan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/getsentry/cli-sub002/internal/domain"
)

// FileNames is the fixed, priority-ordered list of env-file names consulted
// at each directory.
var FileNames = []string{
	".env",
	".env.local",
	".env.development",
	".env.production",
	".env.staging",
	".env.test",
	".env.sentry-build-plugin",
}

// treeDepth bounds how far below the root the recursive (monorepo) mode
// looks for sub-package env files.
const treeDepth = 3

// skipDirs are never descended into when walking for env files.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".hg":          true,
	".svn":         true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	"coverage":     true,
	"venv":         true,
	".venv":        true,
}

// Scanner implements domain.EnvFileScanner.
type Scanner struct {
	opts domain.Options
}

func New(opts domain.Options) *Scanner {
	return &Scanner{opts: opts}
}

// ScanRoot checks the priority-ordered env-file names at the root and
// returns the first file that yields a DSN. Unreadable or DSN-less files
// produce nothing.
func (s *Scanner) ScanRoot(_ context.Context, root string) (*domain.DSN, error) {
	for _, name := range FileNames {
		dsn, err := s.ExtractFile(filepath.Join(root, name), name)
		if err != nil {
			continue
		}
		if dsn != nil {
			return dsn, nil
		}
	}
	return nil, nil
}

// ScanTree collects every env-file DSN at the root and across likely
// sub-package directories, in directory-walk then file-priority order. The
// returned paths are the consulted files plus walked directories (with a
// trailing "/"), for cache mutation tracking.
func (s *Scanner) ScanTree(ctx context.Context, root string) ([]domain.DSN, []string, error) {
	var (
		dsns      []domain.DSN
		consulted []string
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries produce nothing
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if skipDirs[d.Name()] || depthOf(rel) > treeDepth {
				return filepath.SkipDir
			}
			consulted = append(consulted, domain.DirMtimeKey(rel))
			return nil
		}

		if !isEnvFileName(d.Name()) {
			return nil
		}
		consulted = append(consulted, rel)
		if dsn, err := s.ExtractFile(path, rel); err == nil && dsn != nil {
			dsns = append(dsns, *dsn)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Order by containing directory, then by the fixed name priority within
	// it. The root's "." sorts first, so root-level env files keep their
	// precedence over sub-package ones.
	sort.SliceStable(dsns, func(i, j int) bool {
		di, dj := filepath.Dir(dsns[i].SourcePath), filepath.Dir(dsns[j].SourcePath)
		if di != dj {
			return di < dj
		}
		return namePriority(filepath.Base(dsns[i].SourcePath)) < namePriority(filepath.Base(dsns[j].SourcePath))
	})

	return domain.DedupeDSNs(dsns), consulted, nil
}

// ExtractFile parses a single env file and returns its DSN, preferring
// SENTRY_DSN-named keys. Missing or unparseable files yield (nil, nil).
func (s *Scanner) ExtractFile(path, rel string) (*domain.DSN, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, nil // malformed env files produce nothing
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := keyPriority(keys[i]), keyPriority(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		dsn, ok := domain.ParseDSN(values[k])
		if !ok || !s.opts.HostAllowed(dsn.Host) {
			continue
		}
		dsn.Source = domain.SourceEnvFile
		dsn.SourcePath = rel
		return dsn, nil
	}
	return nil, nil
}

func isEnvFileName(name string) bool {
	for _, n := range FileNames {
		if name == n {
			return true
		}
	}
	return false
}

func namePriority(name string) int {
	for i, n := range FileNames {
		if name == n {
			return i
		}
	}
	return len(FileNames)
}

// keyPriority ranks env keys: the canonical variable first, then
// framework-prefixed variants (NEXT_PUBLIC_SENTRY_DSN and friends), then
// anything else whose value happens to parse.
func keyPriority(key string) int {
	switch {
	case key == domain.EnvDSNVar:
		return 0
	case strings.HasSuffix(key, "_"+domain.EnvDSNVar):
		return 1
	default:
		return 2
	}
}

func depthOf(rel string) int {
	if rel == "." || rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

// EnvReader implements domain.EnvReader over the captured environment value.
type EnvReader struct {
	opts domain.Options
}

func NewEnvReader(opts domain.Options) *EnvReader {
	return &EnvReader{opts: opts}
}

// Read returns the environment-supplied DSN, or nil when unset or invalid.
func (r *EnvReader) Read() *domain.DSN {
	if r.opts.EnvDSN == "" {
		return nil
	}
	dsn, ok := domain.ParseDSN(r.opts.EnvDSN)
	if !ok || !r.opts.HostAllowed(dsn.Host) {
		return nil
	}
	dsn.Source = domain.SourceEnv
	return dsn
}
