// Package correlator evaluates compound rules over the findings of a scan.
package correlator

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/sourcegraph/conc/panics"

	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/pkg/shared/errors"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

type Correlator struct {
	logger hclog.Logger
	rules  []registry.CompoundRule
}

func New(logger hclog.Logger, reg *registry.Registry) *Correlator {
	return &Correlator{logger: logger, rules: reg.CompoundRules()}
}

// Correlate runs every compound rule whose required patterns all have at least one finding.
// A failing rule contributes nothing. Compound ids without a rule-supplied id are numbered
// from one counter shared by every rule of the run.
func (c *Correlator) Correlate(all []findings.Finding, files map[string]plugin.FileAnalysis, graph plugin.GraphView) []findings.CompoundFinding {
	byPattern := make(map[string][]findings.Finding)
	for _, f := range all {
		byPattern[f.PatternID] = append(byPattern[f.PatternID], f)
	}

	var out []findings.CompoundFinding
	counter := 0
	for _, rule := range c.rules {
		groups, ok := groupsFor(rule.Def.Requires, byPattern)
		if !ok {
			continue
		}

		matches, err := c.invoke(rule, plugin.CorrelationInput{Groups: groups, Files: cloneFiles(files), Graph: graph})
		if err != nil {
			c.logger.Warn("compound rule failed, skipping", "rule", rule.ID, "error", err)
			continue
		}

		for _, m := range matches {
			compound, ok := build(rule, m)
			if !ok {
				c.logger.Debug("compound match has no required constituents, dropping", "rule", rule.ID)
				continue
			}
			if compound.ID == "" {
				counter++
				compound.ID = fmt.Sprintf("%s:%d", rule.ID, counter)
			}
			out = append(out, compound)
		}
	}
	return out
}

// groupsFor returns the findings of every required pattern, or false when one has none.
func groupsFor(requires []string, byPattern map[string][]findings.Finding) (map[string][]findings.Finding, bool) {
	groups := make(map[string][]findings.Finding, len(requires))
	for _, id := range requires {
		found := byPattern[id]
		if len(found) == 0 {
			return nil, false
		}
		group := make([]findings.Finding, len(found))
		for i, f := range found {
			group[i] = f.Clone()
		}
		groups[id] = group
	}
	return groups, true
}

// cloneFiles gives each rule its own copy of the file analyses.
func cloneFiles(files map[string]plugin.FileAnalysis) map[string]plugin.FileAnalysis {
	if files == nil {
		return nil
	}
	out := make(map[string]plugin.FileAnalysis, len(files))
	for p, f := range files {
		out[p] = f.Clone()
	}
	return out
}

func (c *Correlator) invoke(rule registry.CompoundRule, in plugin.CorrelationInput) (matches []plugin.CompoundMatch, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		matches, err = rule.Def.Correlate(in)
	})
	if r := pc.Recovered(); r != nil {
		return nil, errors.NewRuleError(rule.ID, "", fmt.Errorf("panic: %v", r.Value))
	}
	if err != nil {
		return nil, errors.NewRuleError(rule.ID, "", err)
	}
	return matches, nil
}

// build turns a match into a compound finding, keeping only constituents of required
// patterns and filling unset fields from the rule.
func build(rule registry.CompoundRule, m plugin.CompoundMatch) (findings.CompoundFinding, bool) {
	required := make(map[string]bool, len(rule.Def.Requires))
	for _, id := range rule.Def.Requires {
		required[id] = true
	}

	var constituents []findings.Finding
	for _, f := range m.Findings {
		if required[f.PatternID] {
			constituents = append(constituents, f)
		}
	}
	if len(constituents) == 0 {
		return findings.CompoundFinding{}, false
	}

	compound := findings.CompoundFinding{
		ID:         m.ID,
		RuleID:     rule.ID,
		Severity:   rule.Def.Severity,
		Confidence: rule.Def.Confidence,
		Message:    m.Message,
		Rationale:  m.Rationale,
		Findings:   constituents,
		Pillars:    m.Pillars,
	}
	if m.Severity.Valid() {
		compound.Severity = m.Severity
	}
	if m.Confidence.Valid() {
		compound.Confidence = m.Confidence
	}
	if compound.Message == "" {
		compound.Message = firstNonEmpty(rule.Def.Title, rule.Def.Description, rule.ID)
	}
	if compound.Rationale == "" {
		compound.Rationale = rule.Def.Description
	}
	if len(compound.Pillars) == 0 {
		compound.Pillars = rule.Def.Pillars
	}
	if len(compound.Pillars) == 0 {
		compound.Pillars = pillarsOf(constituents)
	}
	compound.Pillars = validPillars(compound.Pillars)
	return compound, true
}

// pillarsOf returns the pillars of the findings in the fixed pillar order.
func pillarsOf(fs []findings.Finding) []findings.Pillar {
	present := make(map[findings.Pillar]bool)
	for _, f := range fs {
		present[f.Pillar] = true
	}
	var out []findings.Pillar
	for _, p := range findings.Pillars {
		if present[p] {
			out = append(out, p)
		}
	}
	return out
}

func validPillars(in []findings.Pillar) []findings.Pillar {
	seen := make(map[findings.Pillar]bool, len(in))
	out := make([]findings.Pillar, 0, len(in))
	for _, p := range in {
		if p.Valid() && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
