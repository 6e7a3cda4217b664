// Package nextjs holds the rules for Next.js App Router and Pages Router projects.
package nextjs

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

const (
	Name    = "nextjs"
	Version = "1.0.0"
)

// File roles.
const (
	RoleAPIRoute        = "api-route"
	RoleServerComponent = "server-component"
	RoleClientComponent = "client-component"
	RoleServerAction    = "server-action"
	RoleMiddleware      = "middleware"
)

// Qualified pattern ids, for compound rules of other plugins.
const (
	MissingSessionCheck = Name + ":missing-session-check"
	ClientEnvLeak       = Name + ":client-env-leak"
)

// HTTPMethods are the handler names a route file may export.
var HTTPMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

var (
	sessionCall = regexp.MustCompile(`\b(getServerSession|getSession|auth|currentUser|getToken|getUser|requireAuth|requireUser|withAuth|verifySession|validateRequest)\s*\(`)
	processEnv  = regexp.MustCompile(`process\.env\.([A-Za-z_][A-Za-z0-9_]*)|process\.env\[\s*["']([A-Za-z_][A-Za-z0-9_]*)["']\s*\]`)
)

// publicEnv are readable from client bundles.
var publicEnv = map[string]bool{"NODE_ENV": true}

func Plugin() plugin.Plugin {
	return plugin.Plugin{
		Name:    Name,
		Version: Version,
		FileRoles: []plugin.FileRoleRule{
			{
				ID:          "route-handlers",
				Description: "App Router route handlers and Pages Router API routes",
				Files:       "**/*.{ts,js,mts,mjs}",
				Classify:    classifyRoute,
			},
			{
				ID:          "components",
				Description: "React components and server actions under app/",
				Files:       "**/*.{tsx,jsx,ts,js}",
				Classify:    classifyComponent,
			},
			{
				ID:          "middleware",
				Description: "Edge middleware at the project or src root",
				Files:       "{middleware,src/middleware}.{ts,js}",
				Classify: func(plugin.FileContext) []string {
					return []string{RoleMiddleware}
				},
			},
		},
		Patterns: []plugin.Pattern{
			{
				ID:             "missing-session-check",
				Title:          "Handler without session check",
				Description:    "A route handler or server action runs without verifying the caller's session.",
				Recommendation: "Resolve the session at the top of the handler and return 401 when it is missing.",
				Pillar:         findings.PillarSecurity,
				Severity:       findings.SeverityHigh,
				Confidence:     findings.ConfidenceFirm,
				Roles:          []string{RoleAPIRoute, RoleServerAction},
				Detect:         detectMissingSessionCheck,
			},
			{
				ID:             "client-env-leak",
				Title:          "Server environment variable in client component",
				Description:    "Only NEXT_PUBLIC_ variables are inlined into client bundles; anything else is either undefined or leaks a secret.",
				Recommendation: "Read the value on the server and pass only what the client needs, or prefix it with NEXT_PUBLIC_ if it is not secret.",
				Pillar:         findings.PillarPrivacy,
				Severity:       findings.SeverityHigh,
				Confidence:     findings.ConfidenceCertain,
				Roles:          []string{RoleClientComponent},
				Detect:         detectClientEnvLeak,
			},
		},
	}
}

func classifyRoute(f plugin.FileContext) []string {
	base := strings.TrimSuffix(path.Base(f.Path), f.Extension)
	isAppRoute := base == "route" && underDir(f.Path, "app")
	isPagesAPI := underDir(f.Path, "pages/api")
	if !isAppRoute && !isPagesAPI {
		return nil
	}
	if isPagesAPI && f.AST.HasDefaultExport() {
		return []string{RoleAPIRoute}
	}
	for _, method := range HTTPMethods {
		if _, ok := f.AST.Export(method); ok {
			return []string{RoleAPIRoute}
		}
	}
	return nil
}

func classifyComponent(f plugin.FileContext) []string {
	if f.AST.HasDirective("use server") {
		return []string{RoleServerAction}
	}
	if f.AST.HasDirective("use client") {
		return []string{RoleClientComponent}
	}
	if !underDir(f.Path, "app") || (f.Extension != ".tsx" && f.Extension != ".jsx") {
		return nil
	}
	if f.AST.HasDefaultExport() {
		return []string{RoleServerComponent}
	}
	return nil
}

// underDir reports whether p lies in a directory named dir at the root, under src/, or in
// a monorepo package.
func underDir(p, dir string) bool {
	return strings.HasPrefix(p, dir+"/") || strings.Contains(p, "/"+dir+"/")
}

func detectMissingSessionCheck(ctx plugin.PatternContext) ([]findings.Match, error) {
	if sessionCall.MatchString(ctx.Content) {
		return nil, nil
	}

	var out []findings.Match
	for _, fn := range ctx.AST.Functions {
		if !fn.IsExported || !handlerName(ctx, fn.Name) {
			continue
		}
		out = append(out, findings.Match{
			Message: fmt.Sprintf("%s in %s does not check the session", displayName(fn.Name), ctx.Path),
			Line:    fn.Line,
		})
	}
	if exp, ok := ctx.AST.DefaultExport(); ok && len(out) == 0 && underDir(ctx.Path, "pages/api") {
		out = append(out, findings.Match{
			Message: fmt.Sprintf("default handler in %s does not check the session", ctx.Path),
			Line:    exp.Line,
		})
	}
	return out, nil
}

// handlerName reports whether an exported function is an entry point the framework calls.
func handlerName(ctx plugin.PatternContext, name string) bool {
	if ctx.HasRole(RoleServerAction) {
		return true
	}
	if name == "" || name == "default" {
		return ctx.HasRole(RoleAPIRoute) && underDir(ctx.Path, "pages/api")
	}
	for _, method := range HTTPMethods {
		if name == method {
			return true
		}
	}
	return false
}

func displayName(name string) string {
	if name == "" {
		return "default export"
	}
	return name
}

func detectClientEnvLeak(ctx plugin.PatternContext) ([]findings.Match, error) {
	var out []findings.Match
	for _, occ := range plugin.Occurrences(processEnv, ctx.Content) {
		name := occ.Groups[0]
		if name == "" {
			name = occ.Groups[1]
		}
		if strings.HasPrefix(name, "NEXT_PUBLIC_") || publicEnv[name] {
			continue
		}
		out = append(out, findings.Match{
			Message:  fmt.Sprintf("client component reads process.env.%s", name),
			Line:     occ.Line,
			Column:   occ.Column,
			Snippet:  occ.Snippet,
			Metadata: map[string]any{"variable": name},
		})
	}
	return out, nil
}
