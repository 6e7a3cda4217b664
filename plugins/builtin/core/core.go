// Package core holds framework independent rules and the compound rules that tie the
// framework plugins together.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
	"github.com/scan-io-git/brakit/plugins/builtin/nextjs"
	"github.com/scan-io-git/brakit/plugins/builtin/prisma"
)

const (
	Name    = "core"
	Version = "1.0.0"
)

// RouteToQueryHops bounds how far apart a handler and the query it reaches may be in the
// import graph.
const RouteToQueryHops = 2

const sourceFiles = "**/*.{ts,tsx,js,jsx,mjs,cjs,mts,cts}"

var (
	consoleCall = regexp.MustCompile(`console\.(log|info|debug|warn|error)\s*\(([^)]*)\)`)
	secretWord  = regexp.MustCompile(`(?i)(password|passwd|secret|token|api_?key|private_?key|credential)`)
	emptyCatch  = regexp.MustCompile(`catch\s*(\([^)]*\))?\s*\{\s*\}`)
	evalCall    = regexp.MustCompile(`(^|[^.\w$])(eval|new\s+Function)\s*\(`)
)

func Plugin() plugin.Plugin {
	return plugin.Plugin{
		Name:    Name,
		Version: Version,
		Patterns: []plugin.Pattern{
			{
				ID:             "console-log-secret",
				Title:          "Secret written to the console",
				Description:    "Console output ends up in hosting provider logs that are readable by more people than the secret's owner.",
				Recommendation: "Remove the log statement or redact the value.",
				Pillar:         findings.PillarPrivacy,
				Severity:       findings.SeverityMedium,
				Confidence:     findings.ConfidenceFirm,
				Files:          sourceFiles,
				Detect:         detectConsoleSecret,
			},
			{
				ID:             "empty-catch",
				Title:          "Empty catch block",
				Description:    "Swallowed errors hide failures and leave callers with partial state.",
				Recommendation: "Log the error or rethrow it.",
				Pillar:         findings.PillarReliability,
				Severity:       findings.SeverityLow,
				Confidence:     findings.ConfidenceCertain,
				Files:          sourceFiles,
				Detect:         plugin.RegexDetector(emptyCatch, nil),
			},
			{
				ID:             "eval-usage",
				Title:          "Dynamic code evaluation",
				Description:    "eval and new Function execute strings as code.",
				Recommendation: "Replace dynamic evaluation with a lookup table or a parser.",
				Pillar:         findings.PillarSecurity,
				Severity:       findings.SeverityHigh,
				Confidence:     findings.ConfidenceFirm,
				Files:          sourceFiles,
				Detect: plugin.RegexDetector(evalCall, func(occ plugin.Occurrence) string {
					return strings.Join(strings.Fields(occ.Groups[1]), " ") + " evaluates a string as code"
				}),
			},
		},
		CompoundRules: []plugin.CompoundRule{
			{
				ID:          "unguarded-raw-query",
				Title:       "Unauthenticated handler reaches raw SQL",
				Description: "A handler without a session check imports code running a raw SQL query, so any caller can reach it.",
				Requires:    []string{nextjs.MissingSessionCheck, prisma.RawQuery},
				Severity:    findings.SeverityCritical,
				Confidence:  findings.ConfidenceFirm,
				Pillars:     []findings.Pillar{findings.PillarSecurity, findings.PillarPrivacy},
				Correlate:   plugin.CorrelateByImport(nextjs.MissingSessionCheck, prisma.RawQuery, RouteToQueryHops, describe("raw SQL")),
			},
			{
				ID:          "unguarded-unsafe-query",
				Title:       "Unauthenticated handler reaches unsafe SQL",
				Description: "A handler without a session check imports code building SQL from strings, an injection path open to anyone.",
				Requires:    []string{nextjs.MissingSessionCheck, prisma.UnsafeRawQuery},
				Severity:    findings.SeverityCritical,
				Confidence:  findings.ConfidenceCertain,
				Pillars:     []findings.Pillar{findings.PillarSecurity, findings.PillarPrivacy},
				Correlate:   plugin.CorrelateByImport(nextjs.MissingSessionCheck, prisma.UnsafeRawQuery, RouteToQueryHops, describe("unsafe SQL")),
			},
		},
	}
}

func describe(what string) func(a, b findings.Finding) (string, string) {
	return func(route, query findings.Finding) (string, string) {
		message := fmt.Sprintf("%s has no session check and reaches %s in %s", route.FilePath, what, query.FilePath)
		if route.FilePath == query.FilePath {
			message = fmt.Sprintf("%s has no session check and runs %s", route.FilePath, what)
		}
		rationale := fmt.Sprintf("%s (line %d) is connected to %s (line %d) within %d imports",
			route.FilePath, route.Line, query.FilePath, query.Line, RouteToQueryHops)
		return message, rationale
	}
}

func detectConsoleSecret(ctx plugin.PatternContext) ([]findings.Match, error) {
	var out []findings.Match
	for _, occ := range plugin.Occurrences(consoleCall, ctx.Content) {
		word := secretWord.FindString(occ.Groups[1])
		if word == "" {
			continue
		}
		out = append(out, findings.Match{
			Message:  fmt.Sprintf("console.%s prints what looks like a %s", occ.Groups[0], strings.ToLower(word)),
			Line:     occ.Line,
			Column:   occ.Column,
			Snippet:  occ.Snippet,
			Metadata: map[string]any{"keyword": strings.ToLower(word)},
		})
	}
	return out, nil
}
