package plugin

import (
	"regexp"
	"strings"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

// Occurrence is one regular expression match located in a file.
type Occurrence struct {
	Offset  int
	Line    int
	Column  int
	Text    string
	Groups  []string
	Snippet string // the whole source line, trimmed
}

// Occurrences returns every non-overlapping match of re in content. The scan always starts
// from the beginning of content, so a compiled expression can be shared between goroutines.
func Occurrences(re *regexp.Regexp, content string) []Occurrence {
	locs := re.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}

	out := make([]Occurrence, 0, len(locs))
	for _, loc := range locs {
		occ := Occurrence{
			Offset:  loc[0],
			Line:    LineAt(content, loc[0]),
			Column:  ColumnAt(content, loc[0]),
			Text:    content[loc[0]:loc[1]],
			Snippet: LineText(content, loc[0]),
		}
		for i := 2; i+1 < len(loc); i += 2 {
			if loc[i] < 0 {
				occ.Groups = append(occ.Groups, "")
				continue
			}
			occ.Groups = append(occ.Groups, content[loc[i]:loc[i+1]])
		}
		out = append(out, occ)
	}
	return out
}

// LineAt returns the 1-indexed line of the byte offset.
func LineAt(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	if offset < 0 {
		offset = 0
	}
	return strings.Count(content[:offset], "\n") + 1
}

// ColumnAt returns the 1-indexed byte column of the offset within its line.
func ColumnAt(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	if offset < 0 {
		offset = 0
	}
	return offset - strings.LastIndexByte(content[:offset], '\n')
}

// LineText returns the trimmed source line containing the offset.
func LineText(content string, offset int) string {
	if offset > len(content) {
		offset = len(content)
	}
	if offset < 0 {
		offset = 0
	}
	start := strings.LastIndexByte(content[:offset], '\n') + 1
	end := strings.IndexByte(content[offset:], '\n')
	if end < 0 {
		end = len(content)
	} else {
		end += offset
	}
	return strings.TrimSpace(content[start:end])
}

// RegexDetector returns a detector reporting every occurrence of re. message may be nil, in
// which case the pattern title is used.
func RegexDetector(re *regexp.Regexp, message func(Occurrence) string) func(PatternContext) ([]findings.Match, error) {
	return func(ctx PatternContext) ([]findings.Match, error) {
		var out []findings.Match
		for _, occ := range Occurrences(re, ctx.Content) {
			m := findings.Match{Line: occ.Line, Column: occ.Column, Snippet: occ.Snippet}
			if message != nil {
				m.Message = message(occ)
			}
			out = append(out, m)
		}
		return out, nil
	}
}
