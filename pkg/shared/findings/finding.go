package findings

import (
	"fmt"
	"maps"
	"strings"
)

// Severity is the ordinal impact of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from the most to the least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Rank orders severities; higher is more severe. Unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// Confidence is the ordinal certainty of a finding, independent of severity.
type Confidence string

const (
	ConfidenceCertain   Confidence = "certain"
	ConfidenceFirm      Confidence = "firm"
	ConfidenceTentative Confidence = "tentative"
)

// Rank orders confidences; certain > firm > tentative. Unknown values rank 0.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceCertain:
		return 3
	case ConfidenceFirm:
		return 2
	case ConfidenceTentative:
		return 1
	default:
		return 0
	}
}

// Valid reports whether c is one of the known confidences.
func (c Confidence) Valid() bool { return c.Rank() > 0 }

// Pillar is the quality category a finding affects.
type Pillar string

const (
	PillarSecurity    Pillar = "security"
	PillarReliability Pillar = "reliability"
	PillarPerformance Pillar = "performance"
	PillarPrivacy     Pillar = "privacy"
)

// Pillars lists the fixed pillar set in reporting order.
var Pillars = []Pillar{PillarSecurity, PillarReliability, PillarPerformance, PillarPrivacy}

// Valid reports whether p is one of the fixed pillars.
func (p Pillar) Valid() bool {
	for _, known := range Pillars {
		if p == known {
			return true
		}
	}
	return false
}

// ParseSeverity converts a case-insensitive string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Finding is a single detection of one pattern in one file.
type Finding struct {
	ID             string         `json:"id"`
	PatternID      string         `json:"pattern_id"`
	Plugin         string         `json:"plugin"`
	Pillar         Pillar         `json:"pillar"`
	Severity       Severity       `json:"severity"`
	Confidence     Confidence     `json:"confidence"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Recommendation string         `json:"recommendation,omitempty"`
	FilePath       string         `json:"file_path"`
	Line           int            `json:"line,omitempty"`
	Column         int            `json:"column,omitempty"`
	Snippet        string         `json:"snippet,omitempty"`
	Fingerprint    string         `json:"fingerprint,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Clone returns a copy that shares no metadata with f.
func (f Finding) Clone() Finding {
	f.Metadata = maps.Clone(f.Metadata)
	return f
}

// LineKey returns the line as a string, or "global" when the finding has no line.
func (f Finding) LineKey() string {
	if f.Line <= 0 {
		return "global"
	}
	return fmt.Sprintf("%d", f.Line)
}

// Match is what a pattern detector reports for one occurrence.
// Zero values of Severity and Confidence mean "use the pattern's default".
type Match struct {
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Line           int            `json:"line,omitempty"`
	Column         int            `json:"column,omitempty"`
	Snippet        string         `json:"snippet,omitempty"`
	Severity       Severity       `json:"severity,omitempty"`
	Confidence     Confidence     `json:"confidence,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CompoundFinding correlates two or more findings into one higher-level finding.
type CompoundFinding struct {
	ID         string     `json:"id"`
	RuleID     string     `json:"rule_id"`
	Severity   Severity   `json:"severity"`
	Confidence Confidence `json:"confidence"`
	Message    string     `json:"message"`
	Rationale  string     `json:"rationale,omitempty"`
	Findings   []Finding  `json:"findings"`
	Pillars    []Pillar   `json:"pillars"`
}

// PluginOf returns the plugin part of a qualified "plugin:local" id.
func PluginOf(qualifiedID string) string {
	if i := strings.Index(qualifiedID, ":"); i >= 0 {
		return qualifiedID[:i]
	}
	return ""
}

// Qualify builds a "plugin:local" id.
func Qualify(pluginName, localID string) string {
	return pluginName + ":" + localID
}
