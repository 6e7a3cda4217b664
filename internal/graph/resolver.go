package graph

import (
	"path"
	"sort"
	"strings"

	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

// Extensions tried, in order, when an import specifier omits or changes the file extension.
var Extensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// conventionPrefix is mapped to conventionTarget when no configured alias resolves.
const (
	conventionPrefix = "@/"
	conventionTarget = "src/"
)

// Alias maps an import prefix to directories under the project root. Exact aliases match the
// whole specifier only, the way a tsconfig paths key without "*" does.
type Alias struct {
	Prefix  string
	Targets []string
	Exact   bool
}

// Resolver turns import specifiers into known project files.
type Resolver struct {
	known   map[string]bool
	aliases []Alias
}

// NewResolver creates a Resolver over the known root-relative paths. Aliases are tried exact
// ones first, then longest prefix first.
func NewResolver(knownPaths []string, aliases []Alias) *Resolver {
	known := make(map[string]bool, len(knownPaths))
	for _, p := range knownPaths {
		known[p] = true
	}

	sorted := append([]Alias(nil), aliases...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Exact != sorted[j].Exact {
			return sorted[i].Exact
		}
		if len(sorted[i].Prefix) != len(sorted[j].Prefix) {
			return len(sorted[i].Prefix) > len(sorted[j].Prefix)
		}
		return sorted[i].Prefix < sorted[j].Prefix
	})
	return &Resolver{known: known, aliases: sorted}
}

// Resolve returns the known file the specifier imported from fromFile refers to. External
// packages and unknown targets resolve to nothing.
func (r *Resolver) Resolve(fromFile, specifier string) (string, bool) {
	if isRelative(specifier) {
		return r.candidates(path.Join(path.Dir(fromFile), specifier))
	}

	for _, alias := range r.aliases {
		rest, ok := alias.match(specifier)
		if !ok {
			continue
		}
		for _, target := range alias.Targets {
			if found, ok := r.candidates(path.Join(target, rest)); ok {
				return found, true
			}
		}
	}

	if strings.HasPrefix(specifier, conventionPrefix) {
		return r.candidates(path.Join(conventionTarget, strings.TrimPrefix(specifier, conventionPrefix)))
	}
	return "", false
}

func (a Alias) match(specifier string) (string, bool) {
	if a.Exact {
		return "", specifier == a.Prefix
	}
	if !strings.HasPrefix(specifier, a.Prefix) {
		return "", false
	}
	return strings.TrimPrefix(specifier, a.Prefix), true
}

// candidates tries target as is, with an extension added, with its script extension
// replaced and as a directory index, returning the first known file.
func (r *Resolver) candidates(target string) (string, bool) {
	target = path.Clean(target)
	if target == "." || target == ".." || strings.HasPrefix(target, "../") {
		return "", false
	}
	if r.known[target] {
		return target, true
	}

	for _, e := range Extensions {
		if r.known[target+e] {
			return target + e, true
		}
	}
	if ext := path.Ext(target); isScriptExtension(ext) {
		stripped := strings.TrimSuffix(target, ext)
		for _, e := range Extensions {
			if r.known[stripped+e] {
				return stripped + e, true
			}
		}
	}
	for _, e := range Extensions {
		index := target + "/index" + e
		if r.known[index] {
			return index, true
		}
	}
	return "", false
}

// isScriptExtension reports whether ext is one of Extensions. Other dotted suffixes such as
// ".config" are part of the file name.
func isScriptExtension(ext string) bool {
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// Build resolves every import of every file and freezes the resulting graph.
func Build(files map[string]plugin.FileAnalysis, knownPaths []string, aliases []Alias) *Graph {
	resolver := NewResolver(knownPaths, aliases)

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	b := NewBuilder()
	for _, from := range paths {
		for _, imp := range files[from].AST.Imports {
			if to, ok := resolver.Resolve(from, imp.Source); ok && to != from {
				b.AddEdge(from, to)
			}
		}
	}
	return b.Freeze()
}
