package findings

import (
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the parts of a finding that survive unrelated edits to the file:
// the pattern, the file and the whitespace-normalised snippet. Line numbers are left out.
func Fingerprint(patternID, filePath, snippet string) string {
	normalized := strings.Join(strings.Fields(snippet), " ")
	h := xxh3.New()
	_, _ = h.WriteString(patternID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(filePath)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(normalized)
	return strconv.FormatUint(h.Sum64(), 16)
}
