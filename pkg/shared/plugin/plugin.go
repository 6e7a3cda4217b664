// Package plugin defines the contract between the scan pipeline and rule plugins.
//
// A plugin is a closed set of capability records: file-role rules, patterns and compound
// rules. Each record carries a pure function over a narrow, read-only context. Plugins refer
// to each other's patterns only through qualified "plugin:pattern" ids.
package plugin

import (
	"fmt"
	"maps"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/scan-io-git/brakit/pkg/shared/ast"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

// Plugin bundles everything one rule provider contributes to a scan.
type Plugin struct {
	Name          string
	Version       string
	FileRoles     []FileRoleRule
	Patterns      []Pattern
	CompoundRules []CompoundRule
	Scoring       *Scoring
}

// Scoring carries the plugin-level weight recorded in the registry.
type Scoring struct {
	Weight float64
}

// FileRoleRule tags files with semantic roles such as "api-route".
type FileRoleRule struct {
	ID          string
	Description string
	Files       string // glob over the root-relative path, empty matches every file
	Classify    func(ctx FileContext) []string
}

// Pattern detects one issue shape in the files it applies to.
type Pattern struct {
	ID             string
	Title          string
	Description    string
	Recommendation string
	Pillar         findings.Pillar
	Severity       findings.Severity
	Confidence     findings.Confidence
	Files          string   // glob over the root-relative path, empty matches every file
	Roles          []string // when set, the file must carry at least one of these roles
	Detect         func(ctx PatternContext) ([]findings.Match, error)
}

// CompoundRule correlates findings of several patterns into one compound finding.
type CompoundRule struct {
	ID          string
	Title       string
	Description string
	Requires    []string // qualified pattern ids
	Severity    findings.Severity
	Confidence  findings.Confidence
	Pillars     []findings.Pillar
	// Correlate may be nil, in which case every required finding is folded into one compound.
	Correlate func(in CorrelationInput) ([]CompoundMatch, error)
}

// CompoundMatch is what a correlation function reports. Empty fields fall back to the rule.
type CompoundMatch struct {
	ID         string
	Message    string
	Rationale  string
	Severity   findings.Severity
	Confidence findings.Confidence
	Pillars    []findings.Pillar
	Findings   []findings.Finding
}

// ProjectContext is what the loader learned about the project as a whole.
type ProjectContext struct {
	Name            string            `json:"name,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"dev_dependencies,omitempty"`
	TypeScript      bool              `json:"typescript"`
}

// Clone returns a copy that shares no maps with p.
func (p ProjectContext) Clone() ProjectContext {
	p.Dependencies = maps.Clone(p.Dependencies)
	p.DevDependencies = maps.Clone(p.DevDependencies)
	return p
}

// HasDependency reports whether the package is a runtime or development dependency.
func (p ProjectContext) HasDependency(name string) bool {
	if _, ok := p.Dependencies[name]; ok {
		return true
	}
	_, ok := p.DevDependencies[name]
	return ok
}

// FileAnalysis is the per-file output of parsing and classification.
type FileAnalysis struct {
	Path         string      `json:"path"`
	Roles        []string    `json:"roles"`
	ClassifiedBy []string    `json:"classified_by"`
	AST          ast.Summary `json:"ast"`
	Parsed       bool        `json:"parsed"`
}

// HasRole reports whether the file carries the role.
func (f FileAnalysis) HasRole(role string) bool {
	for _, r := range f.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with f.
func (f FileAnalysis) Clone() FileAnalysis {
	f.Roles = append([]string(nil), f.Roles...)
	f.ClassifiedBy = append([]string(nil), f.ClassifiedBy...)
	f.AST = f.AST.Clone()
	return f
}

// FileContext is the read-only view handed to file-role rules.
type FileContext struct {
	Path      string
	Content   string
	Extension string
	AST       ast.Summary
	Project   ProjectContext
}

// PatternContext is the read-only view handed to pattern detectors.
type PatternContext struct {
	FileContext
	Roles []string
	File  FileAnalysis
}

// HasRole reports whether the file under inspection carries the role.
func (c PatternContext) HasRole(role string) bool {
	return c.File.HasRole(role)
}

// GraphView is the read-only import graph handed to compound rules.
type GraphView interface {
	ImportsOf(path string) []string
	ImportersOf(path string) []string
	AreConnected(a, b string, maxHops int) bool
}

// CorrelationInput is what a compound rule's correlation function receives.
// Groups is keyed by required pattern id.
type CorrelationInput struct {
	Groups map[string][]findings.Finding
	Files  map[string]FileAnalysis
	Graph  GraphView
}

// Validate checks a plugin declaration for mistakes that make it unusable.
func (p Plugin) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("plugin name is empty")
	}
	if strings.Contains(p.Name, ":") {
		return fmt.Errorf("plugin name %q must not contain ':'", p.Name)
	}

	seen := make(map[string]bool)
	for _, rule := range p.FileRoles {
		if err := checkLocalID("file role rule", rule.ID, seen); err != nil {
			return err
		}
		if rule.Classify == nil {
			return fmt.Errorf("file role rule %q has no classify function", rule.ID)
		}
		if err := checkGlob(rule.Files); err != nil {
			return fmt.Errorf("file role rule %q: %w", rule.ID, err)
		}
	}

	seen = make(map[string]bool)
	for _, pattern := range p.Patterns {
		if err := checkLocalID("pattern", pattern.ID, seen); err != nil {
			return err
		}
		if pattern.Detect == nil {
			return fmt.Errorf("pattern %q has no detect function", pattern.ID)
		}
		if !pattern.Pillar.Valid() {
			return fmt.Errorf("pattern %q has unknown pillar %q", pattern.ID, pattern.Pillar)
		}
		if !pattern.Severity.Valid() {
			return fmt.Errorf("pattern %q has unknown severity %q", pattern.ID, pattern.Severity)
		}
		if !pattern.Confidence.Valid() {
			return fmt.Errorf("pattern %q has unknown confidence %q", pattern.ID, pattern.Confidence)
		}
		if err := checkGlob(pattern.Files); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern.ID, err)
		}
	}

	seen = make(map[string]bool)
	for _, rule := range p.CompoundRules {
		if err := checkLocalID("compound rule", rule.ID, seen); err != nil {
			return err
		}
		if len(rule.Requires) == 0 {
			return fmt.Errorf("compound rule %q requires no patterns", rule.ID)
		}
		for _, req := range rule.Requires {
			if findings.PluginOf(req) == "" {
				return fmt.Errorf("compound rule %q: required pattern %q is not qualified", rule.ID, req)
			}
		}
		if !rule.Severity.Valid() {
			return fmt.Errorf("compound rule %q has unknown severity %q", rule.ID, rule.Severity)
		}
		if !rule.Confidence.Valid() {
			return fmt.Errorf("compound rule %q has unknown confidence %q", rule.ID, rule.Confidence)
		}
		for _, pillar := range rule.Pillars {
			if !pillar.Valid() {
				return fmt.Errorf("compound rule %q has unknown pillar %q", rule.ID, pillar)
			}
		}
	}
	return nil
}

func checkLocalID(kind, id string, seen map[string]bool) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s with empty id", kind)
	}
	if strings.Contains(id, ":") {
		return fmt.Errorf("%s id %q must not contain ':'", kind, id)
	}
	if seen[id] {
		return fmt.Errorf("%s %q declared twice", kind, id)
	}
	seen[id] = true
	return nil
}

func checkGlob(glob string) error {
	if glob == "" {
		return nil
	}
	if !doublestar.ValidatePattern(glob) {
		return fmt.Errorf("invalid glob %q", glob)
	}
	return nil
}
