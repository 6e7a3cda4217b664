package pipeline

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

var rawQuery = regexp.MustCompile(`\$queryRaw\(`)

func webPlugin() plugin.Plugin {
	return plugin.Plugin{
		Name:    "web",
		Version: "1.0.0",
		FileRoles: []plugin.FileRoleRule{{
			ID:    "api-route",
			Files: "routes/**",
			Classify: func(f plugin.FileContext) []string {
				for _, fn := range f.AST.Functions {
					if fn.IsExported {
						return []string{"api-route"}
					}
				}
				return nil
			},
		}},
		Patterns: []plugin.Pattern{{
			ID:         "missing-session-check",
			Title:      "Route without session check",
			Pillar:     findings.PillarSecurity,
			Severity:   findings.SeverityHigh,
			Confidence: findings.ConfidenceFirm,
			Roles:      []string{"api-route"},
			Detect: func(ctx plugin.PatternContext) ([]findings.Match, error) {
				if strings.Contains(ctx.Content, "getSession(") {
					return nil, nil
				}
				var out []findings.Match
				for _, fn := range ctx.AST.Functions {
					if fn.IsExported {
						out = append(out, findings.Match{Message: fn.Name + " has no session check", Line: fn.Line})
					}
				}
				return out, nil
			},
		}},
	}
}

func dbPlugin() plugin.Plugin {
	return plugin.Plugin{
		Name: "db",
		Patterns: []plugin.Pattern{{
			ID:         "raw-query",
			Title:      "Raw SQL query",
			Pillar:     findings.PillarSecurity,
			Severity:   findings.SeverityHigh,
			Confidence: findings.ConfidenceCertain,
			Files:      "**/*.ts",
			Detect: func(ctx plugin.PatternContext) ([]findings.Match, error) {
				var out []findings.Match
				for _, occ := range plugin.Occurrences(rawQuery, ctx.Content) {
					out = append(out, findings.Match{Line: occ.Line, Column: occ.Column, Snippet: occ.Snippet})
				}
				return out, nil
			},
		}},
	}
}

func corePlugin() plugin.Plugin {
	return plugin.Plugin{
		Name: "core",
		CompoundRules: []plugin.CompoundRule{{
			ID:         "unguarded-raw-query",
			Title:      "Unauthenticated route reaches raw SQL",
			Requires:   []string{"web:missing-session-check", "db:raw-query"},
			Severity:   findings.SeverityCritical,
			Confidence: findings.ConfidenceFirm,
			Pillars:    []findings.Pillar{findings.PillarSecurity, findings.PillarPrivacy},
			Correlate:  plugin.CorrelateByImport("web:missing-session-check", "db:raw-query", 2, nil),
		}},
	}
}

func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	reg, err := registry.Resolve(webPlugin(), dbPlugin(), corePlugin())
	require.NoError(t, err)
	return New(hclog.NewNullLogger(), reg, opts)
}

func scanInput() ScanInput {
	contents := map[string]string{
		"routes/users.ts": `import { listUsers } from "../db/users";

export async function GET(req) {
  return Response.json(await listUsers());
}
`,
		"db/users.ts": `import { prisma } from "@/lib/prisma";

export async function listUsers() {
  return prisma.$queryRaw(` + "`SELECT * FROM users`" + `);
}
`,
		"src/lib/prisma.ts": `export const prisma = {};
`,
		"styles/site.css": "body { margin: 0 }\n",
	}
	input := ScanInput{RootDir: "", FileContents: contents, Config: &config.Config{}}
	for p := range contents {
		input.FilePaths = append(input.FilePaths, p)
	}
	return input
}

func TestRunRouteReachingRawQuery(t *testing.T) {
	p := newPipeline(t, Options{Version: "test", Workers: 2})

	result, err := p.Run(context.Background(), scanInput())
	require.NoError(t, err)

	require.Len(t, result.Findings, 2)
	assert.Equal(t, "db:raw-query", result.Findings[0].PatternID)
	assert.Equal(t, "db/users.ts", result.Findings[0].FilePath)
	assert.Equal(t, 4, result.Findings[0].Line)
	assert.Equal(t, "web:missing-session-check", result.Findings[1].PatternID)
	assert.Equal(t, "routes/users.ts", result.Findings[1].FilePath)

	require.Len(t, result.CompoundFindings, 1)
	compound := result.CompoundFindings[0]
	assert.Equal(t, "core:unguarded-raw-query", compound.RuleID)
	assert.Equal(t, findings.SeverityCritical, compound.Severity)
	assert.Len(t, compound.Findings, 2)

	assert.Equal(t, []string{"api-route"}, result.FileAnalyses["routes/users.ts"].Roles)
	assert.Equal(t, []string{"web:api-route"}, result.FileAnalyses["routes/users.ts"].ClassifiedBy)
	assert.Empty(t, result.FileAnalyses["db/users.ts"].Roles)
	assert.True(t, result.FileAnalyses["db/users.ts"].Parsed)
	assert.False(t, result.FileAnalyses["styles/site.css"].Parsed)

	assert.Equal(t, 4, result.Score.Stats.TotalFiles)
	assert.Equal(t, 3, result.Score.Stats.AnalyzedFiles)
	assert.Less(t, result.Score.Overall, 100)

	md := result.Metadata
	assert.Equal(t, "test", md.Version)
	assert.NotEmpty(t, md.ScanID)
	assert.Empty(t, md.Warnings)
	// routes/users.ts -> db/users.ts, db/users.ts -> src/lib/prisma.ts through "@/"
	assert.Equal(t, 2, md.ImportEdges)
	assert.Equal(t, []AnalyzerStatus{
		{Name: "core", Ran: true},
		{Name: "db", Ran: true},
		{Name: "web", Version: "1.0.0", Ran: true},
	}, md.Analyzers)
}

func TestRunWithoutImportEdgeHasNoCompound(t *testing.T) {
	p := newPipeline(t, Options{})
	input := scanInput()
	input.FileContents["routes/users.ts"] = strings.Replace(input.FileContents["routes/users.ts"], `"../db/users"`, `"users-sdk"`, 1)

	result, err := p.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Len(t, result.Findings, 2)
	assert.Empty(t, result.CompoundFindings)
	assert.NotNil(t, result.CompoundFindings)
}

func TestRunIsIdempotent(t *testing.T) {
	p := newPipeline(t, Options{Workers: 4})

	first, err := p.Run(context.Background(), scanInput())
	require.NoError(t, err)
	second, err := p.Run(context.Background(), scanInput())
	require.NoError(t, err)

	assert.Equal(t, first.Findings, second.Findings)
	assert.Equal(t, first.CompoundFindings, second.CompoundFindings)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.FileAnalyses, second.FileAnalyses)
	assert.NotEqual(t, first.Metadata.ScanID, second.Metadata.ScanID)
}

func TestRunReportsSkippedAnalyzersAndWarnings(t *testing.T) {
	broken := plugin.Plugin{
		Name: "broken",
		CompoundRules: []plugin.CompoundRule{{
			ID:         "needs-missing",
			Requires:   []string{"nope:pattern"},
			Severity:   findings.SeverityLow,
			Confidence: findings.ConfidenceFirm,
		}},
	}
	reg, err := registry.Resolve(webPlugin(), broken)
	require.NoError(t, err)

	skipped := AnalyzerStatus{Name: "secrets", Ran: false, Reason: "failed to start"}
	p := New(hclog.NewNullLogger(), reg, Options{Skipped: []AnalyzerStatus{skipped}})

	result, err := p.Run(context.Background(), ScanInput{})
	require.NoError(t, err)

	assert.Equal(t, []string{`Compound rule "broken:needs-missing" skipped: requires [nope:pattern]`}, result.Metadata.Warnings)
	assert.Contains(t, result.Metadata.Analyzers, skipped)
	assert.Empty(t, result.Findings)
	assert.Equal(t, 100, result.Score.Overall)
}

func TestRunUsesConfiguredAliases(t *testing.T) {
	aliasFS := fstest.MapFS{
		"tsconfig.app.json": {Data: []byte(`{
  // app aliases
  "compilerOptions": { "baseUrl": ".", "paths": { "#db/*": ["db/*"], } },
}`)},
	}
	p := newPipeline(t, Options{AliasFS: aliasFS})
	input := scanInput()
	input.Config.Scan.Tsconfig = "tsconfig.app.json"
	input.FileContents["routes/users.ts"] = strings.Replace(input.FileContents["routes/users.ts"], `"../db/users"`, `"#db/users"`, 1)

	result, err := p.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, result.CompoundFindings, 1)
}

func TestRunHonoursCancellation(t *testing.T) {
	p := newPipeline(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx, scanInput())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}
