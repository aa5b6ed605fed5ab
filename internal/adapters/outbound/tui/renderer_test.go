package tui_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getsentry/cli-sub002/internal/adapters/outbound/tui"
	"github.com/getsentry/cli-sub002/internal/domain"
)

func mustParse(t *testing.T, raw string, source domain.DSNSource, path string) domain.DSN {
	t.Helper()
	dsn, ok := domain.ParseDSN(raw)
	if !ok {
		t.Fatalf("bad test dsn: %s", raw)
	}
	dsn.Source = source
	dsn.SourcePath = path
	return *dsn
}

func TestRenderDSN(t *testing.T) {
	dsn := mustParse(t, "https://abcd@o111.ingest.us.sentry.io/222", domain.SourceCode, "src/config.ts")
	root := &domain.ProjectRootResult{
		ProjectRoot: "/home/dev/proj",
		Reason:      domain.ReasonVCS,
		VcsCommit:   "0123456789abcdef0123456789abcdef01234567",
	}

	out := tui.RenderDSN(&dsn, root)
	assert.Contains(t, out, dsn.Raw)
	assert.Contains(t, out, "source file src/config.ts")
	assert.Contains(t, out, "/home/dev/proj")
	assert.Contains(t, out, "org 111")
	assert.Contains(t, out, "project 222")
	assert.Contains(t, out, "0123456789ab", "commit hashes are shortened")
	assert.NotContains(t, out, "0123456789abc")
}

func TestRenderDSN_NoResult(t *testing.T) {
	out := tui.RenderDSN(nil, &domain.ProjectRootResult{
		ProjectRoot: "/p",
		Reason:      domain.ReasonFallback,
	})
	assert.Contains(t, out, "no DSN found")
}

func TestRenderDetection(t *testing.T) {
	dsns := []domain.DSN{
		mustParse(t, "https://abcd@o111.ingest.us.sentry.io/222", domain.SourceCode, "src/a.js"),
		mustParse(t, "https://efgh@o333.ingest.us.sentry.io/444", domain.SourceEnvFile, ".env"),
	}
	det := &domain.Detection{
		Primary:     &dsns[0],
		All:         dsns,
		HasMultiple: true,
		Fingerprint: domain.Fingerprint(dsns),
	}

	out := tui.RenderDetection(det, &domain.ProjectRootResult{ProjectRoot: "/p", Reason: domain.ReasonVCS})
	assert.Contains(t, out, "2 DSNs found")
	assert.Contains(t, out, dsns[0].Raw)
	assert.Contains(t, out, dsns[1].Raw)
	assert.Contains(t, out, "fingerprint "+det.Fingerprint[:12])
	assert.Equal(t, 1, strings.Count(out, "env file .env"))
}

func TestRenderDetection_Empty(t *testing.T) {
	det := &domain.Detection{Fingerprint: domain.Fingerprint(nil)}
	out := tui.RenderDetection(det, nil)
	assert.Contains(t, out, "no DSN found")
}
