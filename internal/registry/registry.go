// Package registry merges plugin declarations into one validated, read-only registry.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scan-io-git/brakit/pkg/shared/errors"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

// DefaultWeight is recorded for plugins that declare no scoring block.
const DefaultWeight = 1.0

// PluginInfo identifies a resolved plugin.
type PluginInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// FileRole is a file-role rule under its qualified id.
type FileRole struct {
	ID     string
	Plugin string
	Def    plugin.FileRoleRule
}

// Pattern is a pattern under its qualified id.
type Pattern struct {
	ID     string
	Plugin string
	Def    plugin.Pattern
}

// CompoundRule is a compound rule under its qualified id.
type CompoundRule struct {
	ID     string
	Plugin string
	Def    plugin.CompoundRule
}

// Registry is built once per scan by Resolve and never modified afterwards.
// Accessors return copies in qualified id order.
type Registry struct {
	plugins   []PluginInfo
	fileRoles map[string]FileRole
	patterns  map[string]Pattern
	compounds map[string]CompoundRule
	weights   map[string]float64
	warnings  []string
}

// Resolve validates the plugins and merges their capabilities. A duplicate plugin name or a
// malformed declaration fails resolution. A compound rule requiring an unknown pattern is
// dropped and recorded as a warning.
func Resolve(plugins ...plugin.Plugin) (*Registry, error) {
	r := &Registry{
		fileRoles: make(map[string]FileRole),
		patterns:  make(map[string]Pattern),
		compounds: make(map[string]CompoundRule),
		weights:   make(map[string]float64),
	}

	seen := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		if seen[p.Name] {
			return nil, &errors.DuplicatePluginError{Name: p.Name}
		}
		seen[p.Name] = true

		if err := p.Validate(); err != nil {
			return nil, &errors.InvalidPluginError{Plugin: p.Name, Reason: err}
		}
	}

	// pass 1: namespace rules and patterns, collect weights
	for _, p := range plugins {
		r.plugins = append(r.plugins, PluginInfo{Name: p.Name, Version: p.Version})

		for _, rule := range p.FileRoles {
			id := findings.Qualify(p.Name, rule.ID)
			r.fileRoles[id] = FileRole{ID: id, Plugin: p.Name, Def: rule}
		}
		for _, pattern := range p.Patterns {
			id := findings.Qualify(p.Name, pattern.ID)
			r.patterns[id] = Pattern{ID: id, Plugin: p.Name, Def: pattern}
		}

		weight := DefaultWeight
		if p.Scoring != nil {
			weight = p.Scoring.Weight
		}
		r.weights[p.Name] = weight
	}

	// pass 2: compound rules whose requirements all exist
	for _, p := range plugins {
		for _, rule := range p.CompoundRules {
			id := findings.Qualify(p.Name, rule.ID)

			if missing := r.missingPatterns(rule.Requires); len(missing) > 0 {
				r.warnings = append(r.warnings,
					fmt.Sprintf("Compound rule %q skipped: requires [%s]", id, strings.Join(missing, ", ")))
				continue
			}

			if rule.Correlate == nil {
				rule.Correlate = plugin.CorrelateAll(rule.Requires)
			}
			rule.Requires = append([]string(nil), rule.Requires...)
			r.compounds[id] = CompoundRule{ID: id, Plugin: p.Name, Def: rule}
		}
	}

	return r, nil
}

func (r *Registry) missingPatterns(requires []string) []string {
	var missing []string
	reported := make(map[string]bool)
	for _, id := range requires {
		if _, ok := r.patterns[id]; ok || reported[id] {
			continue
		}
		reported[id] = true
		missing = append(missing, id)
	}
	return missing
}

// Plugins returns the resolved plugins in resolution order.
func (r *Registry) Plugins() []PluginInfo {
	return append([]PluginInfo(nil), r.plugins...)
}

// FileRoles returns every file-role rule.
func (r *Registry) FileRoles() []FileRole {
	out := make([]FileRole, 0, len(r.fileRoles))
	for _, id := range sortedKeys(r.fileRoles) {
		out = append(out, r.fileRoles[id])
	}
	return out
}

// Patterns returns every pattern.
func (r *Registry) Patterns() []Pattern {
	out := make([]Pattern, 0, len(r.patterns))
	for _, id := range sortedKeys(r.patterns) {
		out = append(out, r.patterns[id])
	}
	return out
}

// Pattern looks a pattern up by qualified id.
func (r *Registry) Pattern(id string) (Pattern, bool) {
	p, ok := r.patterns[id]
	return p, ok
}

// CompoundRules returns every compound rule that survived resolution.
func (r *Registry) CompoundRules() []CompoundRule {
	out := make([]CompoundRule, 0, len(r.compounds))
	for _, id := range sortedKeys(r.compounds) {
		out = append(out, r.compounds[id])
	}
	return out
}

// CompoundRule looks a compound rule up by qualified id.
func (r *Registry) CompoundRule(id string) (CompoundRule, bool) {
	c, ok := r.compounds[id]
	return c, ok
}

// Weight returns the scoring weight of a plugin, or false for unknown plugins.
func (r *Registry) Weight(pluginName string) (float64, bool) {
	w, ok := r.weights[pluginName]
	return w, ok
}

// Warnings returns the resolution warnings in the order they were raised.
func (r *Registry) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
