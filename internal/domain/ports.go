package domain

import "context"

// RootLocator finds the project boundary for a starting directory.
type RootLocator interface {
	Locate(ctx context.Context, startDir string) (*ProjectRootResult, error)
}

// CodeScanner discovers DSNs embedded in source and config files under a
// project root.
type CodeScanner interface {
	// ScanFirst stops at the first valid match; queued reads are dropped
	// once a match is found. Returns (nil, nil) when nothing is found.
	ScanFirst(ctx context.Context, root string) (*DSN, error)
	// ScanAll returns every valid match in walk order, de-duplicated by
	// raw string, plus the root-relative paths consulted (directories
	// carry a trailing "/").
	ScanAll(ctx context.Context, root string) ([]DSN, []string, error)
	// ExtractFile re-scans a single file, for cache verification.
	ExtractFile(path, rel string) (*DSN, error)
}

// EnvFileScanner discovers DSNs in .env-style files.
type EnvFileScanner interface {
	// ScanRoot checks the fixed, priority-ordered env-file names at the
	// root and returns the first hit.
	ScanRoot(ctx context.Context, root string) (*DSN, error)
	// ScanTree additionally walks likely sub-package directories,
	// returning every env-file DSN plus the consulted paths.
	ScanTree(ctx context.Context, root string) ([]DSN, []string, error)
	// ExtractFile re-extracts from a single env file, for cache
	// verification.
	ExtractFile(path, rel string) (*DSN, error)
}

// EnvReader reports the DSN supplied by the process environment. It is the
// lowest-priority source and is never found incidentally.
type EnvReader interface {
	Read() *DSN
}

// CacheStore owns the persisted per-project-root records. Missing records
// are (nil, nil), never errors.
type CacheStore interface {
	LoadEntry(root string) (*CachedDsnEntry, error)
	SaveEntry(root string, entry *CachedDsnEntry) error
	LoadDetection(root string) (*CachedDetection, error)
	SaveDetection(root string, det *CachedDetection) error
	Clear(root string) error
	ClearAll() error
}
