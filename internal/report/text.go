package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/pkg/issuecorrelation"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

const DefaultTop = 10

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	fairStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")).Bold(true)
	poorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	pillarStyle  = lipgloss.NewStyle().Width(14)

	severityStyles = map[findings.Severity]lipgloss.Style{
		findings.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		findings.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("red")),
		findings.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")),
		findings.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")),
		findings.SeverityInfo:     mutedStyle,
	}
)

// WriteText prints a terminal summary: scores, compound findings, the most severe findings
// and registry warnings.
func WriteText(w io.Writer, result *pipeline.ScanResult, opts Options) error {
	var b strings.Builder
	meta := result.Metadata
	stats := result.Score.Stats

	b.WriteString(headerStyle.Render("brakit scan") + " " + meta.RootDir + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d files, %d analyzed, %d ms", stats.TotalFiles, stats.AnalyzedFiles, meta.DurationMS)) + "\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n", pillarStyle.Render("Overall"), scoreStyle(result.Score.Overall).Render(fmt.Sprintf("%d/100", result.Score.Overall))))
	for _, p := range findings.Pillars {
		score := result.Score.Pillars[p]
		b.WriteString(fmt.Sprintf("  %s %s\n", pillarStyle.Render(string(p)), scoreStyle(score).Render(fmt.Sprintf("%d", score))))
	}

	counts := make([]string, 0, len(findings.Severities))
	for _, s := range findings.Severities {
		counts = append(counts, fmt.Sprintf("%s %d", s, stats.BySeverity[s]))
	}
	b.WriteString(fmt.Sprintf("\nFindings: %d (%s)\n", stats.TotalFindings, strings.Join(counts, ", ")))
	if opts.Baseline != nil {
		b.WriteString(fmt.Sprintf("Baseline: %d new, %d known, %d fixed\n", opts.Baseline.New, opts.Baseline.Known, opts.Baseline.Fixed))
	}

	if len(result.CompoundFindings) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Compound findings") + "\n")
		for _, c := range result.CompoundFindings {
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", severityLabel(c.Severity), c.RuleID, c.Message))
			for _, f := range c.Findings {
				b.WriteString(mutedStyle.Render(fmt.Sprintf("    - %s %s", location(f), f.PatternID)) + "\n")
			}
		}
	}

	top := topFindings(result.Findings, opts.Top)
	if len(top) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Top findings") + "\n")
		for _, f := range top {
			line := fmt.Sprintf("  %s %s  %s  %s", severityLabel(f.Severity), f.PatternID, location(f), firstNonEmpty(f.Message, f.Title))
			if status, ok := f.Metadata[issuecorrelation.MetadataKey].(string); ok {
				line += " " + mutedStyle.Render("["+status+"]")
			}
			b.WriteString(line + "\n")
		}
		if rest := len(result.Findings) - len(top); rest > 0 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  ... and %d more", rest)) + "\n")
		}
	}

	if len(meta.Warnings) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Warnings") + "\n")
		for _, warning := range meta.Warnings {
			b.WriteString("  - " + warning + "\n")
		}
	}
	for _, a := range meta.Analyzers {
		if !a.Ran {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  analyzer %s skipped: %s", a.Name, a.Reason)) + "\n")
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// topFindings orders by severity then confidence, keeping scan order among equals.
func topFindings(all []findings.Finding, n int) []findings.Finding {
	if n <= 0 {
		n = DefaultTop
	}
	sorted := append([]findings.Finding(nil), all...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if a, b := sorted[i].Severity.Rank(), sorted[j].Severity.Rank(); a != b {
			return a > b
		}
		return sorted[i].Confidence.Rank() > sorted[j].Confidence.Rank()
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return goodStyle
	case score >= 50:
		return fairStyle
	default:
		return poorStyle
	}
}

func severityLabel(s findings.Severity) string {
	style, ok := severityStyles[s]
	if !ok {
		style = mutedStyle
	}
	return style.Width(9).Render(strings.ToUpper(string(s)))
}

func location(f findings.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.FilePath, f.Line)
	}
	return f.FilePath
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
