// Package sarif renders scan results as a SARIF 2.1.0 log.
package sarif

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/pkg/issuecorrelation"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

const (
	ToolName           = "brakit"
	ToolInformationURI = "https://github.com/scan-io-git/brakit"
)

type Report struct {
	*sarif.Report
	logger hclog.Logger
}

// FromScanResult builds a single-run report. Every registered pattern and compound rule
// becomes a rule of the run, every finding and compound finding a result of its rule.
func FromScanResult(logger hclog.Logger, result *pipeline.ScanResult, reg *registry.Registry) (*Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(ToolName, ToolInformationURI)
	if v := result.Metadata.Version; v != "" {
		run.Tool.Driver.SemanticVersion = &v
	}

	for _, p := range reg.Patterns() {
		rule := run.AddRule(p.ID).
			WithDescription(firstNonEmpty(p.Def.Description, p.Def.Title, p.ID)).
			WithShortDescription(sarif.NewMultiformatMessageString(firstNonEmpty(p.Def.Title, p.ID))).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: Level(p.Def.Severity)}).
			WithProperties(sarif.Properties{
				"pillar":     string(p.Def.Pillar),
				"severity":   string(p.Def.Severity),
				"confidence": string(p.Def.Confidence),
			})
		if p.Def.Recommendation != "" {
			rule.Help = sarif.NewMultiformatMessageString(p.Def.Recommendation)
		}
	}
	for _, c := range reg.CompoundRules() {
		run.AddRule(c.ID).
			WithDescription(firstNonEmpty(c.Def.Description, c.Def.Title, c.ID)).
			WithShortDescription(sarif.NewMultiformatMessageString(firstNonEmpty(c.Def.Title, c.ID))).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: Level(c.Def.Severity)}).
			WithProperties(sarif.Properties{
				"compound":   true,
				"requires":   c.Def.Requires,
				"severity":   string(c.Def.Severity),
				"confidence": string(c.Def.Confidence),
			})
	}

	for _, f := range result.Findings {
		run.AddResult(findingResult(f))
	}
	for _, c := range result.CompoundFindings {
		if len(c.Findings) == 0 {
			logger.Debug("compound finding without constituents, skipping", "id", c.ID)
			continue
		}
		run.AddResult(compoundResult(c))
	}

	report.AddRun(run)
	return &Report{Report: report, logger: logger}, nil
}

// Write encodes the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	if err := r.PrettyWrite(w); err != nil {
		return fmt.Errorf("failed to write SARIF report: %w", err)
	}
	return nil
}

func findingResult(f findings.Finding) *sarif.Result {
	result := sarif.NewRuleResult(f.PatternID).
		WithMessage(sarif.NewTextMessage(firstNonEmpty(f.Message, f.Title, f.PatternID))).
		WithLevel(Level(f.Severity)).
		WithLocations([]*sarif.Location{location(f)})

	result.Properties = sarif.Properties{
		"id":         f.ID,
		"pillar":     string(f.Pillar),
		"severity":   string(f.Severity),
		"confidence": string(f.Confidence),
	}
	if f.Fingerprint != "" {
		result.Properties["fingerprint"] = f.Fingerprint
	}
	if state, ok := baselineState(f); ok {
		result.BaselineState = &state
	}
	return result
}

// compoundResult anchors a compound finding at its first constituent and lists every
// constituent as a related location.
func compoundResult(c findings.CompoundFinding) *sarif.Result {
	message := c.Message
	if c.Rationale != "" {
		message += "\n\n" + c.Rationale
	}

	result := sarif.NewRuleResult(c.RuleID).
		WithMessage(sarif.NewTextMessage(message)).
		WithLevel(Level(c.Severity)).
		WithLocations([]*sarif.Location{location(c.Findings[0])})

	for _, f := range c.Findings {
		related := location(f)
		related.Message = sarif.NewTextMessage(fmt.Sprintf("%s: %s", f.PatternID, firstNonEmpty(f.Message, f.Title)))
		result.RelatedLocations = append(result.RelatedLocations, related)
	}

	pillars := make([]string, len(c.Pillars))
	for i, p := range c.Pillars {
		pillars[i] = string(p)
	}
	result.Properties = sarif.Properties{
		"id":         c.ID,
		"pillars":    pillars,
		"severity":   string(c.Severity),
		"confidence": string(c.Confidence),
	}
	return result
}

// location points at the finding's line, or at the whole file for file-level findings.
func location(f findings.Finding) *sarif.Location {
	physical := sarif.NewPhysicalLocation().
		WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.FilePath))
	if f.Line > 0 {
		region := sarif.NewRegion().WithStartLine(f.Line)
		if f.Column > 0 {
			region.WithStartColumn(f.Column)
		}
		if f.Snippet != "" {
			snippet := f.Snippet
			region.Snippet = &sarif.ArtifactContent{Text: &snippet}
		}
		physical.WithRegion(region)
	}
	return sarif.NewLocation().WithPhysicalLocation(physical)
}

func baselineState(f findings.Finding) (string, bool) {
	switch f.Metadata[issuecorrelation.MetadataKey] {
	case issuecorrelation.StatusNew:
		return "new", true
	case issuecorrelation.StatusKnown:
		return "unchanged", true
	default:
		return "", false
	}
}

// Level maps a severity onto a SARIF result level.
func Level(s findings.Severity) string {
	switch s {
	case findings.SeverityCritical, findings.SeverityHigh:
		return "error"
	case findings.SeverityMedium:
		return "warning"
	case findings.SeverityLow:
		return "note"
	default:
		return "none"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
