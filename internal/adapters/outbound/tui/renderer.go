package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/getsentry/cli-sub002/internal/domain"
)

var (
	accent  = lipgloss.Color("#7B61FF") // sentry violet
	fg      = lipgloss.Color("#E8E6E3")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	warning = lipgloss.Color("#F59E0B")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(fg)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	dsnStyle    = lipgloss.NewStyle().Foreground(success)
	warnStyle   = lipgloss.NewStyle().Foreground(warning)
)

// RenderDetection renders an all-DSNs result for humans.
func RenderDetection(det *domain.Detection, root *domain.ProjectRootResult) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("sentry-detect"))
	b.WriteString("\n")
	b.WriteString(renderRoot(root))
	b.WriteString("\n")

	if len(det.All) == 0 {
		b.WriteString(dimStyle.Render("no DSN found"))
		b.WriteString("\n")
		return b.String()
	}

	if det.HasMultiple {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d DSNs found (monorepo?)", len(det.All))))
		b.WriteString("\n")
	}
	for i, d := range det.All {
		marker := "  "
		if i == 0 {
			marker = titleStyle.Render("→ ")
		}
		b.WriteString(fmt.Sprintf("%s%s\n", marker, dsnStyle.Render(d.Raw)))
		b.WriteString(fmt.Sprintf("    %s\n", dimStyle.Render(d.SourceDescription())))
	}
	b.WriteString(dimStyle.Render("fingerprint " + shortHash(det.Fingerprint)))
	b.WriteString("\n")
	return b.String()
}

// RenderDSN renders a single-DSN result for humans.
func RenderDSN(dsn *domain.DSN, root *domain.ProjectRootResult) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("sentry-detect"))
	b.WriteString("\n")
	b.WriteString(renderRoot(root))
	b.WriteString("\n")

	if dsn == nil {
		b.WriteString(dimStyle.Render("no DSN found"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(dsnStyle.Render(dsn.Raw))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(dsn.SourceDescription()))
	b.WriteString("\n")
	if dsn.OrgID != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("org %s · project %s", dsn.OrgID, dsn.ProjectID)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRoot(root *domain.ProjectRootResult) string {
	if root == nil {
		return ""
	}
	line := fmt.Sprintf("project root %s (%s)", root.ProjectRoot, root.Reason)
	if root.VcsCommit != "" {
		line += " @ " + shortHash(root.VcsCommit)
	}
	return dimStyle.Render(line)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
