// Package issuecorrelation matches the findings of a scan against an earlier scan.
package issuecorrelation

import (
	"sort"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

// Issue is the part of a finding that stays comparable between scans.
// Fields:
//   - ID: the finding id in its own report, not used by correlation logic.
//   - PatternID, FilePath: identify what was found and where; both are required.
//   - Line: 0 when the finding has no line.
//   - Fingerprint: content fingerprint used for matching across moved lines.
type Issue struct {
	ID          string
	PatternID   string
	FilePath    string
	Line        int
	Fingerprint string
}

// FromFinding extracts the correlation metadata of a finding.
func FromFinding(f findings.Finding) Issue {
	return Issue{
		ID:          f.ID,
		PatternID:   f.PatternID,
		FilePath:    f.FilePath,
		Line:        f.Line,
		Fingerprint: f.Fingerprint,
	}
}

// Match groups a single known issue with the new issues correlated to it. A new issue may
// appear in multiple Match.New slices if it correlates to multiple known issues.
type Match struct {
	Known Issue
	New   []Issue
}

// Correlator computes correlations between the issues of the current scan (new) and those
// of a baseline (known). Use NewCorrelator and then Matches, UnmatchedNew and
// UnmatchedKnown; Process runs on first use.
type Correlator struct {
	NewIssues   []Issue
	KnownIssues []Issue

	knownToNew map[int][]int // known index -> list of new indices
	newToKnown map[int][]int // new index -> list of known indices

	processed bool
}

func NewCorrelator(newIssues, knownIssues []Issue) *Correlator {
	return &Correlator{
		NewIssues:   newIssues,
		KnownIssues: knownIssues,
	}
}

// Process correlates every known with every new issue in three ordered stages. An issue
// matched in one stage is excluded from later stages, while several matches within the same
// stage are kept. The stages are:
// 1) pattern+file+line+fingerprint
// 2) pattern+file+fingerprint
// 3) pattern+file+line
// Process is idempotent.
func (c *Correlator) Process() {
	if c.processed {
		return
	}
	c.knownToNew = make(map[int][]int)
	c.newToKnown = make(map[int][]int)

	matchedKnown := make(map[int]bool)
	matchedNew := make(map[int]bool)

	for _, stage := range []int{1, 2, 3} {
		matchedKnownThis := make(map[int]bool)
		matchedNewThis := make(map[int]bool)

		for ki, k := range c.KnownIssues {
			if matchedKnown[ki] {
				continue
			}
			for ni, n := range c.NewIssues {
				if matchedNew[ni] {
					continue
				}
				if matchStage(k, n, stage) {
					c.knownToNew[ki] = append(c.knownToNew[ki], ni)
					c.newToKnown[ni] = append(c.newToKnown[ni], ki)
					matchedKnownThis[ki] = true
					matchedNewThis[ni] = true
				}
			}
		}

		for ki := range matchedKnownThis {
			matchedKnown[ki] = true
		}
		for ni := range matchedNewThis {
			matchedNew[ni] = true
		}
	}

	c.processed = true
}

// matchStage requires pattern and file on both sides for every stage. Fingerprint stages
// never match on an empty fingerprint.
func matchStage(a, b Issue, stage int) bool {
	if a.PatternID == "" || b.PatternID == "" || a.PatternID != b.PatternID {
		return false
	}
	if a.FilePath != b.FilePath {
		return false
	}

	sameFingerprint := a.Fingerprint != "" && a.Fingerprint == b.Fingerprint
	switch stage {
	case 1:
		return a.Line == b.Line && sameFingerprint
	case 2:
		return sameFingerprint
	case 3:
		return a.Line == b.Line
	default:
		return false
	}
}

// UnmatchedNew returns the new issues not correlated to any known issue.
func (c *Correlator) UnmatchedNew() []Issue {
	c.Process()

	var out []Issue
	for ni, n := range c.NewIssues {
		if len(c.newToKnown[ni]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// UnmatchedKnown returns the known issues not correlated to any new issue, i.e. the ones
// fixed since the baseline.
func (c *Correlator) UnmatchedKnown() []Issue {
	c.Process()

	var out []Issue
	for ki, k := range c.KnownIssues {
		if len(c.knownToNew[ki]) == 0 {
			out = append(out, k)
		}
	}
	return out
}

// Matches returns one entry per known issue with at least one correlated new issue, in
// known issue order.
func (c *Correlator) Matches() []Match {
	c.Process()

	known := make([]int, 0, len(c.knownToNew))
	for ki := range c.knownToNew {
		known = append(known, ki)
	}
	sort.Ints(known)

	var out []Match
	for _, ki := range known {
		newIdxs := c.knownToNew[ki]
		m := Match{Known: c.KnownIssues[ki], New: make([]Issue, 0, len(newIdxs))}
		for _, ni := range newIdxs {
			m.New = append(m.New, c.NewIssues[ni])
		}
		out = append(out, m)
	}
	return out
}

// IsKnown reports whether the new issue at index ni correlates to any known issue.
func (c *Correlator) IsKnown(ni int) bool {
	c.Process()
	return len(c.newToKnown[ni]) > 0
}
