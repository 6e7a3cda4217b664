package issuecorrelation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

// Baseline status recorded in a finding's metadata.
const (
	MetadataKey = "baseline"
	StatusNew   = "new"
	StatusKnown = "known"

	// MatchedKey holds the id a known finding had in the baseline report.
	MatchedKey = "baseline_id"
)

// Summary counts the outcome of a baseline comparison.
type Summary struct {
	New   int `json:"new"`
	Known int `json:"known"`
	Fixed int `json:"fixed"`
}

// report is the subset of a JSON scan report a baseline needs.
type report struct {
	Findings []findings.Finding `json:"findings"`
}

// LoadBaseline reads the findings of an earlier JSON report.
func LoadBaseline(path string) ([]findings.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline %q: %w", path, err)
	}
	var r report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse baseline %q: %w", path, err)
	}
	return r.Findings, nil
}

// Annotate returns copies of current with Metadata[MetadataKey] set to StatusNew or
// StatusKnown. Known findings also get Metadata[MatchedKey], the id of the first baseline
// finding they correlate to. The inputs are not modified.
func Annotate(current, baseline []findings.Finding) ([]findings.Finding, Summary) {
	newIssues := make([]Issue, len(current))
	for i, f := range current {
		newIssues[i] = FromFinding(f)
	}
	knownIssues := make([]Issue, len(baseline))
	for i, f := range baseline {
		knownIssues[i] = FromFinding(f)
	}

	c := NewCorrelator(newIssues, knownIssues)
	matchedBy := make(map[string]string)
	for _, m := range c.Matches() {
		for _, n := range m.New {
			if _, ok := matchedBy[n.ID]; !ok {
				matchedBy[n.ID] = m.Known.ID
			}
		}
	}

	summary := Summary{
		New:   len(c.UnmatchedNew()),
		Fixed: len(c.UnmatchedKnown()),
	}
	summary.Known = len(current) - summary.New

	out := make([]findings.Finding, len(current))
	for i, f := range current {
		md := make(map[string]any, len(f.Metadata)+2)
		for k, v := range f.Metadata {
			md[k] = v
		}
		md[MetadataKey] = StatusNew
		if c.IsKnown(i) {
			md[MetadataKey] = StatusKnown
			if id := matchedBy[f.ID]; id != "" {
				md[MatchedKey] = id
			}
		}
		f.Metadata = md
		out[i] = f
	}
	return out, summary
}
