package codescan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getsentry/cli-sub002/internal/adapters/outbound/codescan"
)

func TestScanAll_GitignoreNegation(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".gitignore", "*.js\n!app.js\n")
	write(t, root, "skip.js", "dsn = \""+dsnB+"\"\n")
	write(t, root, "app.js", "dsn = \""+dsnA+"\"\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)
	assert.Equal(t, dsnA, dsns[0].Raw, "later negation rules override earlier ignores")
}

func TestScanAll_GitignoreAnchoredPatterns(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".gitignore", "/gen\nsrc/generated\n")
	write(t, root, "gen/a.js", "dsn = \""+dsnA+"\"\n")
	write(t, root, "src/generated/b.js", "dsn = \""+dsnA+"\"\n")
	write(t, root, "nested/gen/c.js", "dsn = \""+dsnB+"\"\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)
	assert.Equal(t, dsnB, dsns[0].Raw,
		"anchored patterns match from the root, covering their subtree only")
}

func TestScanAll_GitignoreDirOnlyPattern(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".gitignore", "out/\napp.js/\n")
	write(t, root, "out/a.js", "dsn = \""+dsnB+"\"\n")
	write(t, root, "app.js", "dsn = \""+dsnA+"\"\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)
	assert.Equal(t, dsnA, dsns[0].Raw, "dir-only patterns never exclude a file of the same name")
}

func TestScanAll_GitignoreCommentsAndBlanks(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".gitignore", "# generated output\n\nskipped/\n")
	write(t, root, "skipped/a.js", "dsn = \""+dsnB+"\"\n")
	write(t, root, "kept.js", "dsn = \""+dsnA+"\"\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)
	assert.Equal(t, dsnA, dsns[0].Raw)
}
