package git

import (
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreMatcher answers whether a project-relative path is excluded by .gitignore files.
// The zero value and a nil pointer ignore nothing.
type IgnoreMatcher struct {
	matcher gitignore.Matcher
}

// LoadIgnoreMatcher reads every .gitignore below root.
func LoadIgnoreMatcher(root string) (*IgnoreMatcher, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read gitignore patterns in %q: %w", root, err)
	}
	return &IgnoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// Ignored takes a slash separated path relative to the matcher's root.
func (m *IgnoreMatcher) Ignored(rel string, isDir bool) bool {
	if m == nil || m.matcher == nil || rel == "" || rel == "." {
		return false
	}
	return m.matcher.Match(strings.Split(rel, "/"), isDir)
}
