package correlator

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/brakit/internal/graph"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

const (
	sessionID = "web:missing-session-check"
	rawID     = "db:raw-query"
	starID    = "db:select-star"
)

func pattern(id string, pillar findings.Pillar) plugin.Pattern {
	return plugin.Pattern{
		ID:         id,
		Pillar:     pillar,
		Severity:   findings.SeverityHigh,
		Confidence: findings.ConfidenceFirm,
		Detect:     func(plugin.PatternContext) ([]findings.Match, error) { return nil, nil },
	}
}

func newCorrelator(t *testing.T, rules ...plugin.CompoundRule) *Correlator {
	t.Helper()
	reg, err := registry.Resolve(
		plugin.Plugin{Name: "web", Patterns: []plugin.Pattern{pattern("missing-session-check", findings.PillarSecurity)}},
		plugin.Plugin{Name: "db", Patterns: []plugin.Pattern{
			pattern("raw-query", findings.PillarSecurity),
			pattern("select-star", findings.PillarPerformance),
		}},
		plugin.Plugin{Name: "core", CompoundRules: rules},
	)
	require.NoError(t, err)
	require.Empty(t, reg.Warnings())
	return New(hclog.NewNullLogger(), reg)
}

func unguarded() plugin.CompoundRule {
	return plugin.CompoundRule{
		ID:         "unguarded-raw-query",
		Title:      "Unauthenticated route reaches raw SQL",
		Requires:   []string{sessionID, rawID},
		Severity:   findings.SeverityCritical,
		Confidence: findings.ConfidenceFirm,
		Pillars:    []findings.Pillar{findings.PillarSecurity, findings.PillarPrivacy},
		Correlate:  plugin.CorrelateByImport(sessionID, rawID, 2, nil),
	}
}

var (
	routeFinding = findings.Finding{ID: "f1", PatternID: sessionID, FilePath: "routes/users.ts", Pillar: findings.PillarSecurity}
	rawFinding   = findings.Finding{ID: "f2", PatternID: rawID, FilePath: "db/users.ts", Pillar: findings.PillarSecurity}
	starFinding  = findings.Finding{ID: "f3", PatternID: starID, FilePath: "db/users.ts", Pillar: findings.PillarPerformance}
)

func importGraph(edges ...[2]string) *graph.Graph {
	b := graph.NewBuilder()
	for _, e := range edges {
		b.AddEdge(e[0], e[1])
	}
	return b.Freeze()
}

func TestCorrelateRouteReachesRawQuery(t *testing.T) {
	c := newCorrelator(t, unguarded())
	g := importGraph([2]string{"routes/users.ts", "db/users.ts"})

	got := c.Correlate([]findings.Finding{routeFinding, rawFinding, starFinding}, nil, g)

	require.Len(t, got, 1)
	assert.Equal(t, "core:unguarded-raw-query:1", got[0].ID)
	assert.Equal(t, "core:unguarded-raw-query", got[0].RuleID)
	assert.Equal(t, findings.SeverityCritical, got[0].Severity)
	assert.Equal(t, []findings.Finding{routeFinding, rawFinding}, got[0].Findings)
	assert.Equal(t, []findings.Pillar{findings.PillarSecurity, findings.PillarPrivacy}, got[0].Pillars)
}

func TestCorrelateRespectsHopBudget(t *testing.T) {
	c := newCorrelator(t, unguarded())
	far := importGraph(
		[2]string{"routes/users.ts", "lib/a.ts"},
		[2]string{"lib/a.ts", "lib/b.ts"},
		[2]string{"lib/b.ts", "db/users.ts"},
	)
	assert.Empty(t, c.Correlate([]findings.Finding{routeFinding, rawFinding}, nil, far))
}

func TestCorrelateRequiresEveryPattern(t *testing.T) {
	c := newCorrelator(t, unguarded())
	g := importGraph([2]string{"routes/users.ts", "db/users.ts"})

	full := []findings.Finding{routeFinding, rawFinding}
	require.Len(t, c.Correlate(full, nil, g), 1)

	for i := range full {
		partial := append(append([]findings.Finding(nil), full[:i]...), full[i+1:]...)
		assert.Empty(t, c.Correlate(partial, nil, g), "without %s", full[i].PatternID)
	}
}

func TestCorrelateDropsForeignConstituentsAndDefaultsPillars(t *testing.T) {
	rule := plugin.CompoundRule{
		ID:         "everything",
		Requires:   []string{rawID, starID},
		Severity:   findings.SeverityHigh,
		Confidence: findings.ConfidenceTentative,
		Correlate: func(in plugin.CorrelationInput) ([]plugin.CompoundMatch, error) {
			return []plugin.CompoundMatch{
				{Findings: []findings.Finding{routeFinding, rawFinding, starFinding}, Confidence: findings.ConfidenceCertain},
				{ID: "custom", Findings: []findings.Finding{routeFinding}},
			}, nil
		},
	}
	c := newCorrelator(t, rule)

	got := c.Correlate([]findings.Finding{routeFinding, rawFinding, starFinding}, nil, importGraph())

	require.Len(t, got, 1)
	assert.Equal(t, []findings.Finding{rawFinding, starFinding}, got[0].Findings)
	assert.Equal(t, []findings.Pillar{findings.PillarSecurity, findings.PillarPerformance}, got[0].Pillars)
	assert.Equal(t, findings.ConfidenceCertain, got[0].Confidence)
	assert.Equal(t, "core:everything", got[0].Message)
}

func TestCorrelateIsolatesFailingRules(t *testing.T) {
	panicking := plugin.CompoundRule{
		ID: "panics", Requires: []string{rawID}, Severity: findings.SeverityLow, Confidence: findings.ConfidenceFirm,
		Correlate: func(plugin.CorrelationInput) ([]plugin.CompoundMatch, error) { panic("boom") },
	}
	failing := plugin.CompoundRule{
		ID: "fails", Requires: []string{rawID}, Severity: findings.SeverityLow, Confidence: findings.ConfidenceFirm,
		Correlate: func(plugin.CorrelationInput) ([]plugin.CompoundMatch, error) { return nil, errors.New("nope") },
	}
	c := newCorrelator(t, panicking, failing, unguarded())
	g := importGraph([2]string{"routes/users.ts", "db/users.ts"})

	got := c.Correlate([]findings.Finding{routeFinding, rawFinding}, nil, g)
	require.Len(t, got, 1)
	assert.Equal(t, "core:unguarded-raw-query", got[0].RuleID)
}

func TestCorrelateCounterIsRunWide(t *testing.T) {
	all := plugin.CompoundRule{
		ID: "a-all", Requires: []string{rawID, starID}, Severity: findings.SeverityLow, Confidence: findings.ConfidenceFirm,
	}
	c := newCorrelator(t, all, unguarded())
	g := importGraph([2]string{"routes/users.ts", "db/users.ts"})

	got := c.Correlate([]findings.Finding{routeFinding, rawFinding, starFinding}, nil, g)
	require.Len(t, got, 2)
	assert.Equal(t, "core:a-all:1", got[0].ID)
	assert.Equal(t, "core:unguarded-raw-query:2", got[1].ID)
}

func TestCorrelateKeepsCallerStateIntact(t *testing.T) {
	tampering := plugin.CompoundRule{
		ID: "tampers", Requires: []string{rawID}, Severity: findings.SeverityLow, Confidence: findings.ConfidenceFirm,
		Correlate: func(in plugin.CorrelationInput) ([]plugin.CompoundMatch, error) {
			in.Files["routes/users.ts"] = plugin.FileAnalysis{Path: "hijacked"}
			in.Files["db/users.ts"].Roles[0] = "tampered"
			in.Groups[rawID][0].Metadata["tampered"] = true
			return nil, nil
		},
	}
	c := newCorrelator(t, tampering, unguarded())
	g := importGraph([2]string{"routes/users.ts", "db/users.ts"})

	files := map[string]plugin.FileAnalysis{
		"routes/users.ts": {Path: "routes/users.ts", Roles: []string{"api-route"}},
		"db/users.ts":     {Path: "db/users.ts", Roles: []string{"db"}},
	}
	raw := rawFinding
	raw.Metadata = map[string]any{"query": "raw"}

	got := c.Correlate([]findings.Finding{routeFinding, raw}, files, g)

	require.Len(t, got, 1)
	assert.Equal(t, "routes/users.ts", files["routes/users.ts"].Path)
	assert.Equal(t, []string{"db"}, files["db/users.ts"].Roles)
	assert.Equal(t, map[string]any{"query": "raw"}, raw.Metadata)
	assert.Equal(t, map[string]any{"query": "raw"}, got[0].Findings[1].Metadata)
}
