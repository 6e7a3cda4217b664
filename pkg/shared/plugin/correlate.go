package plugin

import (
	"fmt"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

// CorrelateByImport returns a correlation function pairing every finding of pattern from with
// every finding of pattern to whose files are connected within maxHops of the import graph.
// Each connected pair becomes one compound match. describe may be nil.
func CorrelateByImport(from, to string, maxHops int, describe func(a, b findings.Finding) (message, rationale string)) func(CorrelationInput) ([]CompoundMatch, error) {
	return func(in CorrelationInput) ([]CompoundMatch, error) {
		if in.Graph == nil {
			return nil, fmt.Errorf("import graph is not available")
		}

		var matches []CompoundMatch
		for _, a := range in.Groups[from] {
			for _, b := range in.Groups[to] {
				if !in.Graph.AreConnected(a.FilePath, b.FilePath, maxHops) {
					continue
				}
				m := CompoundMatch{Findings: []findings.Finding{a, b}}
				if describe != nil {
					m.Message, m.Rationale = describe(a, b)
				} else {
					m.Message = fmt.Sprintf("%s in %s reaches %s in %s", a.Title, a.FilePath, b.Title, b.FilePath)
					m.Rationale = fmt.Sprintf("%s imports %s within %d hops", a.FilePath, b.FilePath, maxHops)
				}
				matches = append(matches, m)
			}
		}
		return matches, nil
	}
}

// CorrelateAll folds every finding of every group into a single compound match.
func CorrelateAll(requires []string) func(CorrelationInput) ([]CompoundMatch, error) {
	return func(in CorrelationInput) ([]CompoundMatch, error) {
		var all []findings.Finding
		for _, id := range requires {
			all = append(all, in.Groups[id]...)
		}
		if len(all) == 0 {
			return nil, nil
		}
		return []CompoundMatch{{
			Message:  fmt.Sprintf("%d related findings across %d patterns", len(all), len(requires)),
			Findings: all,
		}}, nil
	}
}
