// Package rootfind determines the directory that represents "the project"
// for a starting directory by walking upward toward the home directory,
// applying a fixed boundary priority.
package rootfind

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	git "github.com/go-git/go-git/v5"

	"github.com/getsentry/cli-sub002/internal/adapters/outbound/envscan"
	"github.com/getsentry/cli-sub002/internal/domain"
)

// vcsMarkers identify a repository root.
var vcsMarkers = []string{".git", ".hg", ".svn"}

// ciMarkers identify CI configuration kept at a repository root.
var ciMarkers = []string{
	".github/workflows",
	".gitlab-ci.yml",
	".circleci",
	"Jenkinsfile",
	"azure-pipelines.yml",
	"bitbucket-pipelines.yml",
}

// languageMarkers are manifest files identifying a source ecosystem.
// Checked by exact name, plus the csproj glob below.
var languageMarkers = []string{
	"package.json",
	"pyproject.toml",
	"setup.py",
	"requirements.txt",
	"go.mod",
	"Cargo.toml",
	"composer.json",
	"Gemfile",
	"pom.xml",
	"build.gradle",
	"build.gradle.kts",
	"mix.exs",
}

const languageMarkerGlob = "*.csproj"

// buildMarkers are build-system files, tracked independently of language
// manifests.
var buildMarkers = []string{
	"Makefile",
	"CMakeLists.txt",
	"justfile",
	"Taskfile.yml",
	"BUILD.bazel",
	"WORKSPACE",
	"meson.build",
}

// Locator implements domain.RootLocator.
type Locator struct {
	opts domain.Options
	env  *envscan.Scanner
}

func New(opts domain.Options) *Locator {
	return &Locator{opts: opts, env: envscan.New(opts)}
}

// levelResult is the outcome of the concurrent checks at one directory.
type levelResult struct {
	envDSN     *domain.DSN       // env file containing a DSN (highest)
	repoReason domain.RootReason // vcs / ci / editorconfig, empty if none
	language   bool
	build      bool
}

// Locate walks upward from startDir to the stop boundary (home directory or
// filesystem root, inclusive). Checks within a level run concurrently;
// levels are strictly sequential so a decisive hit at level N prevents
// evaluating level N+1.
func (l *Locator) Locate(ctx context.Context, startDir string) (*domain.ProjectRootResult, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving start directory: %w", err)
	}
	if fi, err := os.Stat(start); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("start directory %s is not a directory", startDir)
	}

	var (
		dir      = start
		levels   = 0
		langDir  string
		buildDir string
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		levels++

		res := l.checkLevel(dir)
		if res.envDSN != nil {
			return l.finish(dir, res.envDSN, domain.ReasonEnvDSN, levels), nil
		}
		if res.repoReason != "" {
			return l.finish(dir, nil, res.repoReason, levels), nil
		}
		// Closest-to-start candidate wins; once set, never overwritten.
		if langDir == "" && res.language {
			langDir = dir
		}
		if buildDir == "" && res.build {
			buildDir = dir
		}

		parent := filepath.Dir(dir)
		if l.isStopBoundary(dir) || parent == dir {
			break
		}
		dir = parent
	}

	switch {
	case langDir != "":
		return l.finish(langDir, nil, domain.ReasonLanguage, levels), nil
	case buildDir != "":
		return l.finish(buildDir, nil, domain.ReasonBuildSystem, levels), nil
	default:
		return l.finish(start, nil, domain.ReasonFallback, levels), nil
	}
}

// checkLevel runs the four per-level checks concurrently. Existence checks
// at a level are independent of each other.
func (l *Locator) checkLevel(dir string) levelResult {
	var (
		res levelResult
		wg  sync.WaitGroup
	)
	wg.Add(4)

	go func() {
		defer wg.Done()
		res.envDSN = l.probeEnvDSN(dir)
	}()
	go func() {
		defer wg.Done()
		res.repoReason = repoRootReason(dir)
	}()
	go func() {
		defer wg.Done()
		res.language = hasLanguageMarker(dir)
	}()
	go func() {
		defer wg.Done()
		res.build = hasAnyFile(dir, buildMarkers)
	}()

	wg.Wait()
	return res
}

// probeEnvDSN looks for a DSN in any known env-file name at this level.
func (l *Locator) probeEnvDSN(dir string) *domain.DSN {
	for _, name := range envscan.FileNames {
		dsn, err := l.env.ExtractFile(filepath.Join(dir, name), name)
		if err == nil && dsn != nil {
			return dsn
		}
	}
	return nil
}

// repoRootReason reports the decisive repo-root marker at dir, honoring the
// vcs > ci > editorconfig order within the level.
func repoRootReason(dir string) domain.RootReason {
	for _, m := range vcsMarkers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return domain.ReasonVCS
		}
	}
	// go-git additionally recognizes .git files pointing at detached
	// worktree gitdirs, which a plain stat of ".git" already covers; it is
	// consulted for linked worktrees resolved through the parent repo.
	if _, err := git.PlainOpen(dir); err == nil {
		return domain.ReasonVCS
	}
	if hasAnyFile(dir, ciMarkers) {
		return domain.ReasonCI
	}
	if editorconfigIsRoot(filepath.Join(dir, ".editorconfig")) {
		return domain.ReasonEditorconfig
	}
	return ""
}

func hasLanguageMarker(dir string) bool {
	if hasAnyFile(dir, languageMarkers) {
		return true
	}
	matches, err := filepath.Glob(filepath.Join(dir, languageMarkerGlob))
	return err == nil && len(matches) > 0
}

func hasAnyFile(dir string, names []string) bool {
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(dir, n)); err == nil {
			return true
		}
	}
	return false
}

// editorconfigIsRoot reports whether the .editorconfig preamble (before the
// first section header) declares root = true.
func editorconfigIsRoot(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			break
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(strings.ToLower(key)) == "root" &&
			strings.TrimSpace(strings.ToLower(val)) == "true" {
			return true
		}
	}
	return false
}

func (l *Locator) isStopBoundary(dir string) bool {
	return l.opts.HomeDir != "" && dir == l.opts.HomeDir
}

// finish assembles the result, attaching the HEAD commit when the root is a
// readable git repository.
func (l *Locator) finish(root string, found *domain.DSN, reason domain.RootReason, levels int) *domain.ProjectRootResult {
	res := &domain.ProjectRootResult{
		ProjectRoot:     root,
		FoundDSN:        found,
		Reason:          reason,
		LevelsTraversed: levels,
	}
	if repo, err := git.PlainOpen(root); err == nil {
		if head, err := repo.Head(); err == nil {
			res.VcsCommit = head.Hash().String()
		}
	}
	return res
}
