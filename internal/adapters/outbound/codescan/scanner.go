// Package codescan discovers DSNs embedded in source and config files by
// walking a project tree and pattern-matching file contents under a bounded
// concurrency limit.
package codescan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/getsentry/cli-sub002/internal/domain"
)

// denyDirs are dependency/build/VCS directories never worth scanning.
var denyDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".hg":          true,
	".svn":         true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".next":        true,
	".nuxt":        true,
	"coverage":     true,
	"venv":         true,
	".venv":        true,
	".tox":         true,
	".idea":        true,
	".vscode":      true,
}

// scanExts are the source/config extensions eligible for content scanning.
// Hand-written configuration overwhelmingly lives in these.
var scanExts = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true,
	".cjs": true, ".py": true, ".rb": true, ".php": true, ".java": true,
	".go": true, ".cs": true, ".kt": true, ".swift": true, ".dart": true,
	".vue": true, ".svelte": true, ".astro": true, ".json": true,
	".yml": true, ".yaml": true, ".toml": true, ".properties": true,
	".xml": true, ".config": true, ".conf": true,
}

// commentMarkers are line prefixes that mark a match as commented-out in any
// of the supported languages.
var commentMarkers = []string{"//", "#", "/*", "*", "<!--", "--", ";", `"""`, "'''"}

// Scanner implements domain.CodeScanner.
type Scanner struct {
	opts domain.Options
}

func New(opts domain.Options) *Scanner {
	return &Scanner{opts: opts}
}

type candidate struct {
	abs string
	rel string
}

// ScanFirst scans until any file yields a valid DSN, then drops
// queued-but-not-started reads. In-flight reads finish but their results are
// discarded.
func (s *Scanner) ScanFirst(ctx context.Context, root string) (*domain.DSN, error) {
	candidates, _, err := s.collect(root)
	if err != nil {
		return nil, err
	}
	matches := s.scanFiles(ctx, candidates, true)
	for _, m := range matches {
		if len(m) > 0 {
			return &m[0], nil
		}
	}
	return nil, nil
}

// ScanAll scans every candidate file and returns all valid DSNs in walk
// order, de-duplicated by raw string, plus the consulted paths for mutation
// tracking (files, and walked directories with a trailing "/").
func (s *Scanner) ScanAll(ctx context.Context, root string) ([]domain.DSN, []string, error) {
	candidates, consulted, err := s.collect(root)
	if err != nil {
		return nil, nil, err
	}
	matches := s.scanFiles(ctx, candidates, false)

	var dsns []domain.DSN
	for _, m := range matches {
		dsns = append(dsns, m...)
	}
	return domain.DedupeDSNs(dsns), consulted, nil
}

// ExtractFile re-scans a single file and returns its first valid DSN.
func (s *Scanner) ExtractFile(path, rel string) (*domain.DSN, error) {
	matches := s.scanFile(candidate{abs: path, rel: rel})
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// collect enumerates eligible files: allowed extension, at or below the
// depth limit, under the size threshold, outside the deny-list and the
// project's ignore rules.
func (s *Scanner) collect(root string) ([]candidate, []string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	if fi, err := os.Stat(absRoot); err != nil || !fi.IsDir() {
		return nil, nil, nil // nothing to scan is not an error
	}

	ignore := loadIgnoreRules(filepath.Join(absRoot, ".gitignore"))

	extraDeny := make(map[string]bool, len(s.opts.ExtraIgnoreDirs))
	for _, d := range s.opts.ExtraIgnoreDirs {
		extraDeny[strings.TrimSuffix(d, "/")] = true
	}

	var (
		candidates []candidate
		consulted  []string
	)
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries produce nothing
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if denyDirs[d.Name()] || extraDeny[d.Name()] || ignore.Ignored(rel, true) {
				return filepath.SkipDir
			}
			if depthOf(rel) >= s.opts.MaxDepth {
				return filepath.SkipDir
			}
			consulted = append(consulted, domain.DirMtimeKey(rel))
			return nil
		}

		if !scanExts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		if ignore.Ignored(rel, false) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > s.opts.MaxFileSize {
			return nil
		}

		candidates = append(candidates, candidate{abs: path, rel: rel})
		consulted = append(consulted, rel)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return candidates, consulted, nil
}

// scanFiles reads candidates under the bounded pool. Results are
// index-aligned with candidates so the caller sees walk order regardless of
// completion order. With stopFirst set, a shared done flag is checked before
// each dispatch; work queued after the flag flips is dropped and in-flight
// results arriving after it are discarded.
func (s *Scanner) scanFiles(ctx context.Context, candidates []candidate, stopFirst bool) [][]domain.DSN {
	limit := s.opts.Concurrency
	if limit <= 0 {
		limit = 1
	}

	results := make([][]domain.DSN, len(candidates))
	sem := make(chan struct{}, limit)
	var (
		wg   sync.WaitGroup
		done atomic.Bool
	)

	for i, c := range candidates {
		if done.Load() || ctx.Err() != nil {
			break
		}
		sem <- struct{}{} // acquire semaphore slot
		wg.Add(1)
		go func(i int, c candidate) {
			defer wg.Done()
			defer func() { <-sem }() // release semaphore slot

			matches := s.scanFile(c)
			if stopFirst && done.Load() {
				return // a winner already exists; discard
			}
			results[i] = matches
			if stopFirst && len(matches) > 0 {
				done.Store(true)
			}
		}(i, c)
	}
	wg.Wait()
	return results
}

// scanFile reads one file and returns its valid, host-checked DSNs.
// Matches on commented-out lines are discarded.
func (s *Scanner) scanFile(c candidate) []domain.DSN {
	data, err := os.ReadFile(c.abs)
	if err != nil {
		return nil
	}

	var dsns []domain.DSN
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if isComment(trimmed) {
			continue
		}
		for _, raw := range domain.DSNPattern.FindAllString(trimmed, -1) {
			dsn, ok := domain.ParseDSN(raw)
			if !ok || !s.opts.HostAllowed(dsn.Host) {
				continue
			}
			dsn.Source = domain.SourceCode
			dsn.SourcePath = c.rel
			dsns = append(dsns, *dsn)
		}
	}
	return dsns
}

func isComment(trimmed string) bool {
	for _, m := range commentMarkers {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	return false
}

func depthOf(rel string) int {
	return strings.Count(rel, "/") + 1
}
