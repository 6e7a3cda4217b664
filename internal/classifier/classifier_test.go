package classifier

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/pkg/shared/ast"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

func newClassifier(t *testing.T, rules ...plugin.FileRoleRule) *Classifier {
	t.Helper()
	reg, err := registry.Resolve(plugin.Plugin{Name: "web", FileRoles: rules})
	require.NoError(t, err)
	return New(hclog.NewNullLogger(), reg)
}

func TestClassifyUnionsRoles(t *testing.T) {
	c := newClassifier(t,
		plugin.FileRoleRule{
			ID:    "route",
			Files: "app/**/route.{ts,js}",
			Classify: func(ctx plugin.FileContext) []string {
				if _, ok := ctx.AST.Export("GET"); ok {
					return []string{"api-route"}
				}
				return nil
			},
		},
		plugin.FileRoleRule{
			ID: "server",
			Classify: func(ctx plugin.FileContext) []string {
				if ctx.AST.HasDirective("use client") {
					return nil
				}
				return []string{"server-component", "api-route"}
			},
		},
		plugin.FileRoleRule{
			ID:       "never",
			Classify: func(plugin.FileContext) []string { return []string{""} },
		},
	)

	file := plugin.FileContext{
		Path: "app/api/users/route.ts",
		AST:  ast.Summary{Exports: []ast.ExportInfo{{Name: "GET", Kind: ast.ExportFunction}}},
	}
	roles, by := c.Classify(file)

	assert.Equal(t, []string{"api-route", "server-component"}, roles)
	assert.Equal(t, []string{"web:route", "web:server"}, by)
}

func TestClassifyGlobScopesRules(t *testing.T) {
	called := false
	c := newClassifier(t, plugin.FileRoleRule{
		ID:    "mw",
		Files: "middleware.{ts,js}",
		Classify: func(plugin.FileContext) []string {
			called = true
			return []string{"middleware"}
		},
	})

	roles, by := c.Classify(plugin.FileContext{Path: "src/lib/middleware.ts"})
	assert.False(t, called)
	assert.Empty(t, roles)
	assert.Empty(t, by)

	roles, _ = c.Classify(plugin.FileContext{Path: "middleware.ts"})
	assert.Equal(t, []string{"middleware"}, roles)
}

func TestClassifyIsolatesPanics(t *testing.T) {
	c := newClassifier(t,
		plugin.FileRoleRule{ID: "boom", Classify: func(plugin.FileContext) []string { panic("boom") }},
		plugin.FileRoleRule{ID: "ok", Classify: func(plugin.FileContext) []string { return []string{"db-query"} }},
	)

	roles, by := c.Classify(plugin.FileContext{Path: "db/users.ts"})
	assert.Equal(t, []string{"db-query"}, roles)
	assert.Equal(t, []string{"web:ok"}, by)
}

func TestClassifyFillsExtension(t *testing.T) {
	var got string
	c := newClassifier(t, plugin.FileRoleRule{ID: "ext", Classify: func(ctx plugin.FileContext) []string {
		got = ctx.Extension
		return nil
	}})

	c.Classify(plugin.FileContext{Path: "pages/Index.TSX"})
	assert.Equal(t, ".tsx", got)
}

func TestMatchGlob(t *testing.T) {
	assert.True(t, MatchGlob("", "anything/at/all.ts"))
	assert.True(t, MatchGlob("**/*.ts", "a/b/c.ts"))
	assert.True(t, MatchGlob("**/*.ts", "c.ts"))
	assert.False(t, MatchGlob("src/**", "lib/a.ts"))
	assert.False(t, MatchGlob("[", "a"))
}

func TestClassifyRulesCannotAlterTheSummary(t *testing.T) {
	tamper := func(id string) plugin.FileRoleRule {
		return plugin.FileRoleRule{
			ID: id,
			Classify: func(ctx plugin.FileContext) []string {
				pristine := ctx.AST.Imports[0].Source == "@prisma/client"
				ctx.AST.Imports[0].Source = "tampered"
				if pristine {
					return []string{id}
				}
				return nil
			},
		}
	}
	c := newClassifier(t, tamper("first"), tamper("second"))

	file := plugin.FileContext{
		Path: "lib/db.ts",
		AST:  ast.Summary{Imports: []ast.ImportInfo{{Source: "@prisma/client", Line: 1}}},
	}
	roles, _ := c.Classify(file)

	assert.Equal(t, []string{"first", "second"}, roles)
	assert.Equal(t, "@prisma/client", file.AST.Imports[0].Source)
}
