// Package prisma holds the rules for projects using the Prisma ORM.
package prisma

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

const (
	Name    = "prisma"
	Version = "1.0.0"
)

const RoleDBQuery = "db-query"

// Qualified pattern ids, for compound rules of other plugins.
const (
	RawQuery          = Name + ":raw-query"
	UnsafeRawQuery    = Name + ":unsafe-raw-query"
	SelectStar        = Name + ":select-star"
	FindManyUnbounded = Name + ":findmany-unbounded"
)

const sourceFiles = "**/*.{ts,tsx,js,jsx,mjs,cjs,mts,cts}"

var (
	rawQuery       = regexp.MustCompile(`\$(queryRaw|executeRaw)\s*\(`)
	unsafeRawQuery = regexp.MustCompile(`\$(queryRawUnsafe|executeRawUnsafe)\s*\(`)
	selectStar     = regexp.MustCompile(`(?i)\bselect\s+\*\s+from\b`)
	findMany       = regexp.MustCompile(`\.findMany\s*\(`)
)

// dbModules are import basenames treated as the project's database client.
var dbModules = map[string]bool{"db": true, "prisma": true, "database": true}

func Plugin() plugin.Plugin {
	return plugin.Plugin{
		Name:    Name,
		Version: Version,
		FileRoles: []plugin.FileRoleRule{{
			ID:          "db-clients",
			Description: "Files importing the Prisma client or the project's db module",
			Files:       sourceFiles,
			Classify:    classifyDBQuery,
		}},
		Patterns: []plugin.Pattern{
			{
				ID:             "raw-query",
				Title:          "Raw SQL query",
				Description:    "$queryRaw and $executeRaw called as functions take a plain string, so interpolated values are not parameterised.",
				Recommendation: "Use the tagged template form $queryRaw`...` or Prisma.sql so values become bind parameters.",
				Pillar:         findings.PillarSecurity,
				Severity:       findings.SeverityHigh,
				Confidence:     findings.ConfidenceCertain,
				Files:          sourceFiles,
				Detect: plugin.RegexDetector(rawQuery, func(occ plugin.Occurrence) string {
					return fmt.Sprintf("$%s called with a query string", occ.Groups[0])
				}),
			},
			{
				ID:             "unsafe-raw-query",
				Title:          "Unsafe raw SQL query",
				Description:    "The Unsafe raw query variants never parameterise their input.",
				Recommendation: "Replace with $queryRaw`...` and Prisma.sql fragments.",
				Pillar:         findings.PillarSecurity,
				Severity:       findings.SeverityCritical,
				Confidence:     findings.ConfidenceCertain,
				Files:          sourceFiles,
				Detect: plugin.RegexDetector(unsafeRawQuery, func(occ plugin.Occurrence) string {
					return fmt.Sprintf("$%s builds SQL from a string", occ.Groups[0])
				}),
			},
			{
				ID:             "select-star",
				Title:          "SELECT * in raw SQL",
				Description:    "Selecting every column transfers data the caller does not use and may expose new columns automatically.",
				Recommendation: "List the columns the caller needs.",
				Pillar:         findings.PillarPerformance,
				Severity:       findings.SeverityMedium,
				Confidence:     findings.ConfidenceFirm,
				Files:          sourceFiles,
				Roles:          []string{RoleDBQuery},
				Detect:         plugin.RegexDetector(selectStar, nil),
			},
			{
				ID:             "findmany-unbounded",
				Title:          "Unbounded findMany",
				Description:    "findMany without take returns every matching row.",
				Recommendation: "Paginate with take and skip, or a cursor.",
				Pillar:         findings.PillarPerformance,
				Severity:       findings.SeverityMedium,
				Confidence:     findings.ConfidenceTentative,
				Files:          sourceFiles,
				Roles:          []string{RoleDBQuery},
				Detect:         detectUnboundedFindMany,
			},
		},
	}
}

func classifyDBQuery(f plugin.FileContext) []string {
	if f.AST.ImportsFrom("@prisma/client") {
		return []string{RoleDBQuery}
	}
	for _, imp := range f.AST.Imports {
		if strings.HasPrefix(imp.Source, "@prisma/client/") {
			return []string{RoleDBQuery}
		}
		base := strings.TrimSuffix(path.Base(imp.Source), path.Ext(imp.Source))
		if dbModules[base] && isLocal(imp.Source) {
			return []string{RoleDBQuery}
		}
	}
	return nil
}

func isLocal(source string) bool {
	return strings.HasPrefix(source, ".") || strings.HasPrefix(source, "@/") || strings.HasPrefix(source, "~/")
}

func detectUnboundedFindMany(ctx plugin.PatternContext) ([]findings.Match, error) {
	var out []findings.Match
	for _, occ := range plugin.Occurrences(findMany, ctx.Content) {
		args, ok := callArguments(ctx.Content, occ.Offset+len(occ.Text))
		if ok && strings.Contains(args, "take") {
			continue
		}
		out = append(out, findings.Match{
			Message: "findMany has no take limit",
			Line:    occ.Line,
			Column:  occ.Column,
			Snippet: occ.Snippet,
		})
	}
	return out, nil
}

// callArguments returns the source between the opening parenthesis just before start and
// its matching close. Parentheses inside string literals are not special-cased.
func callArguments(content string, start int) (string, bool) {
	depth := 1
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return content[start:i], true
			}
		}
	}
	return "", false
}
