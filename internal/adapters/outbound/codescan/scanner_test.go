package codescan_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getsentry/cli-sub002/internal/adapters/outbound/codescan"
	"github.com/getsentry/cli-sub002/internal/domain"
)

const (
	dsnA = "https://abcd1234@o111.ingest.us.sentry.io/222"
	dsnB = "https://zzzz@o999.ingest.us.sentry.io/888"
)

func testOpts() domain.Options {
	return domain.Options{
		MaxDepth:    4,
		MaxFileSize: 1 << 20,
		Concurrency: 4,
	}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanAll_FindsDSNInSource(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/config.ts", "const dsn = \""+dsnA+"\";\n")

	dsns, consulted, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)

	assert.Equal(t, dsnA, dsns[0].Raw)
	assert.Equal(t, domain.SourceCode, dsns[0].Source)
	assert.Equal(t, "src/config.ts", dsns[0].SourcePath)
	assert.Equal(t, "222", dsns[0].ProjectID)
	assert.Equal(t, "111", dsns[0].OrgID)

	assert.Contains(t, consulted, "src/config.ts")
	assert.Contains(t, consulted, "src/", "walked directories are tracked as containers")
}

func TestScanAll_SkipsCommentedLines(t *testing.T) {
	root := t.TempDir()
	write(t, root, "app.js", strings.Join([]string{
		"// const old = \"" + dsnA + "\";",
		"# " + dsnA,
		"  /* " + dsnA + " */",
		" * " + dsnA,
		"<!-- " + dsnA + " -->",
		"-- " + dsnA,
	}, "\n"))

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, dsns)
}

func TestScanAll_SkipsDenyListedDirs(t *testing.T) {
	root := t.TempDir()
	write(t, root, "node_modules/pkg/index.js", "dsn: \""+dsnA+"\"\n")
	write(t, root, "vendor/lib.go", "dsn := \""+dsnA+"\"\n")
	write(t, root, ".git/config.json", "{\"dsn\": \""+dsnA+"\"}\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, dsns)
}

func TestScanAll_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".gitignore", "secrets/\n*.generated.js\n")
	write(t, root, "secrets/conf.js", "dsn = \""+dsnA+"\"\n")
	write(t, root, "bundle.generated.js", "dsn = \""+dsnA+"\"\n")
	write(t, root, "app.js", "dsn = \""+dsnB+"\"\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)
	assert.Equal(t, dsnB, dsns[0].Raw)
}

func TestScanAll_RespectsExtraIgnoreDirs(t *testing.T) {
	root := t.TempDir()
	write(t, root, "generated/conf.js", "dsn = \""+dsnA+"\"\n")

	opts := testOpts()
	opts.ExtraIgnoreDirs = []string{"generated"}
	dsns, _, err := codescan.New(opts).ScanAll(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, dsns)
}

func TestScanAll_DeduplicatesByRaw(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.js", "dsn = \""+dsnA+"\"\n")
	write(t, root, "b.js", "dsn = \""+dsnA+"\"\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, dsns, 1)
}

func TestScanAll_DepthLimit(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a/b/c/deep.js", "dsn = \""+dsnA+"\"\n")     // depth 4: in
	write(t, root, "a/b/c/d/deeper.js", "dsn = \""+dsnB+"\"\n") // depth 5: out

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)
	assert.Equal(t, dsnA, dsns[0].Raw)
}

func TestScanAll_SizeThreshold(t *testing.T) {
	root := t.TempDir()
	padding := strings.Repeat("x", 4096)
	write(t, root, "big.js", "// "+padding+"\ndsn = \""+dsnA+"\"\n")
	write(t, root, "small.js", "dsn = \""+dsnB+"\"\n")

	opts := testOpts()
	opts.MaxFileSize = 1024
	dsns, _, err := codescan.New(opts).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)
	assert.Equal(t, dsnB, dsns[0].Raw)
}

func TestScanAll_SkipsUnknownExtensions(t *testing.T) {
	root := t.TempDir()
	write(t, root, "notes.txt", "dsn = \""+dsnA+"\"\n")
	write(t, root, "README.md", dsnA+"\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, dsns)
}

func TestScanAll_RejectsForeignHosts(t *testing.T) {
	root := t.TempDir()
	write(t, root, "app.js", "dsn = \"https://key@errors.example.com/1\"\n")

	dsns, _, err := codescan.New(testOpts()).ScanAll(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, dsns)
}

func TestScanAll_SelfHostedHostValidation(t *testing.T) {
	root := t.TempDir()
	write(t, root, "app.js", strings.Join([]string{
		"selfHosted = \"https://key@sentry.example.com/1\"",
		"saas = \"" + dsnA + "\"",
	}, "\n"))

	opts := testOpts()
	opts.SelfHostedHost = "sentry.example.com"
	dsns, _, err := codescan.New(opts).ScanAll(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dsns, 1)
	assert.Equal(t, "https://key@sentry.example.com/1", dsns[0].Raw,
		"self-hosted override replaces the SaaS suffix rule")
}

func TestScanFirst_FindsAMatch(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/config.ts", "dsn = \""+dsnA+"\"\n")

	dsn, err := codescan.New(testOpts()).ScanFirst(context.Background(), root)
	require.NoError(t, err)
	require.NotNil(t, dsn)
	assert.Equal(t, dsnA, dsn.Raw)
}

func TestScanFirst_NothingFoundIsNil(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/app.js", "console.log(\"hello\");\n")

	dsn, err := codescan.New(testOpts()).ScanFirst(context.Background(), root)
	require.NoError(t, err)
	assert.Nil(t, dsn)
}

func TestScanFirst_MissingRootProducesNothing(t *testing.T) {
	dsn, err := codescan.New(testOpts()).ScanFirst(context.Background(), "/does/not/exist")
	assert.NoError(t, err, "absence of a signal is a valid outcome")
	assert.Nil(t, dsn)
}

func TestScanFirst_CancelledContext(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		write(t, root, filepath.Join("src", string(rune('a'+i))+".js"), "dsn = \""+dsnA+"\"\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dsn, err := codescan.New(testOpts()).ScanFirst(ctx, root)
	require.NoError(t, err)
	assert.Nil(t, dsn, "no reads are dispatched after cancellation")
}

func TestExtractFile(t *testing.T) {
	root := t.TempDir()
	write(t, root, "app.js", "dsn = \""+dsnA+"\"\n")

	s := codescan.New(testOpts())
	dsn, err := s.ExtractFile(filepath.Join(root, "app.js"), "app.js")
	require.NoError(t, err)
	require.NotNil(t, dsn)
	assert.Equal(t, dsnA, dsn.Raw)
	assert.Equal(t, "app.js", dsn.SourcePath)

	gone, err := s.ExtractFile(filepath.Join(root, "missing.js"), "missing.js")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
