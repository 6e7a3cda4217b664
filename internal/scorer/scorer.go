// Package scorer reduces findings to per-pillar and overall health scores.
package scorer

import (
	"math"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

// Deduction points per severity.
var SeverityWeights = map[findings.Severity]float64{
	findings.SeverityCritical: 15,
	findings.SeverityHigh:     8,
	findings.SeverityMedium:   3,
	findings.SeverityLow:      1,
	findings.SeverityInfo:     0,
}

var ConfidenceMultipliers = map[findings.Confidence]float64{
	findings.ConfidenceCertain:   1.0,
	findings.ConfidenceFirm:      0.8,
	findings.ConfidenceTentative: 0.5,
}

// PillarWeights sum to 1.
var PillarWeights = map[findings.Pillar]float64{
	findings.PillarSecurity:    0.35,
	findings.PillarReliability: 0.25,
	findings.PillarPerformance: 0.20,
	findings.PillarPrivacy:     0.20,
}

// CompoundMultiplier scales a compound finding's deduction, applied to each of its pillars.
const CompoundMultiplier = 1.5

type Stats struct {
	TotalFiles     int                       `json:"total_files"`
	AnalyzedFiles  int                       `json:"analyzed_files"`
	TotalFindings  int                       `json:"total_findings"`
	TotalCompounds int                       `json:"total_compounds"`
	BySeverity     map[findings.Severity]int `json:"by_severity"`
	ByPillar       map[findings.Pillar]int   `json:"by_pillar"`
	ByPlugin       map[string]int            `json:"by_plugin"`
}

// Score is recomputed from scratch for every scan.
type Score struct {
	Overall int                     `json:"overall"`
	Pillars map[findings.Pillar]int `json:"pillars"`
	Stats   Stats                   `json:"stats"`
}

// Compute scores a scan. Every pillar score and the overall score lie in [0, 100].
func Compute(fs []findings.Finding, compounds []findings.CompoundFinding, files map[string]plugin.FileAnalysis) Score {
	deductions := make(map[findings.Pillar]float64, len(findings.Pillars))
	for _, f := range fs {
		deductions[f.Pillar] += deduction(f.Severity, f.Confidence)
	}
	for _, c := range compounds {
		d := deduction(c.Severity, c.Confidence) * CompoundMultiplier
		for _, p := range c.Pillars {
			deductions[p] += d
		}
	}

	score := Score{Pillars: make(map[findings.Pillar]int, len(findings.Pillars))}
	overall := 0.0
	for _, p := range findings.Pillars {
		pillar := clamp(int(math.Round(100-deductions[p])), 0, 100)
		score.Pillars[p] = pillar
		overall += PillarWeights[p] * float64(pillar)
	}
	score.Overall = clamp(int(math.Round(overall)), 0, 100)
	score.Stats = stats(fs, compounds, files)
	return score
}

func deduction(s findings.Severity, c findings.Confidence) float64 {
	return SeverityWeights[s] * ConfidenceMultipliers[c]
}

func stats(fs []findings.Finding, compounds []findings.CompoundFinding, files map[string]plugin.FileAnalysis) Stats {
	st := Stats{
		TotalFiles:     len(files),
		TotalFindings:  len(fs),
		TotalCompounds: len(compounds),
		BySeverity:     make(map[findings.Severity]int, len(findings.Severities)),
		ByPillar:       make(map[findings.Pillar]int, len(findings.Pillars)),
		ByPlugin:       make(map[string]int),
	}
	for _, s := range findings.Severities {
		st.BySeverity[s] = 0
	}
	for _, p := range findings.Pillars {
		st.ByPillar[p] = 0
	}
	for _, f := range files {
		if f.Parsed {
			st.AnalyzedFiles++
		}
	}
	for _, f := range fs {
		st.BySeverity[f.Severity]++
		st.ByPillar[f.Pillar]++
		st.ByPlugin[f.Plugin]++
	}
	return st
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
