package analyzer

import (
	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

type dedupKey struct {
	patternID string
	filePath  string
	line      string
}

// Deduplicate keeps one finding per (pattern, file, line) group: the one with the highest
// confidence, the first seen on ties. Groups keep the order in which they were first seen.
// Findings of different patterns on the same line are independent.
func Deduplicate(in []findings.Finding) []findings.Finding {
	index := make(map[dedupKey]int, len(in))
	out := make([]findings.Finding, 0, len(in))

	for _, f := range in {
		key := dedupKey{patternID: f.PatternID, filePath: f.FilePath, line: f.LineKey()}
		if i, ok := index[key]; ok {
			if f.Confidence.Rank() > out[i].Confidence.Rank() {
				out[i] = f
			}
			continue
		}
		index[key] = len(out)
		out = append(out, f)
	}
	return out
}
