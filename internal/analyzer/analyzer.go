// Package analyzer runs registered patterns over classified files and deduplicates the
// resulting findings.
package analyzer

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/scan-io-git/brakit/internal/classifier"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/pkg/shared/errors"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

type Analyzer struct {
	logger   hclog.Logger
	patterns []registry.Pattern
	workers  int
}

// New creates an Analyzer over the registry's patterns. workers <= 0 uses one worker per CPU.
func New(logger hclog.Logger, reg *registry.Registry, workers int) *Analyzer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Analyzer{logger: logger, patterns: reg.Patterns(), workers: workers}
}

// Analyze runs every applicable pattern on every file and returns the raw findings ordered
// by file, line and pattern. Detector failures are logged and contribute nothing.
// The only error is cancellation of ctx.
func (a *Analyzer) Analyze(ctx context.Context, files map[string]plugin.FileAnalysis, contents map[string]string, project plugin.ProjectContext) ([]findings.Finding, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	perFile := make([][]findings.Finding, len(paths))
	p := pool.New().WithMaxGoroutines(a.workers)
	for i, filePath := range paths {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			perFile[i] = a.analyzeFile(files[filePath], contents[filePath], project)
		})
	}
	p.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []findings.Finding
	for _, fs := range perFile {
		out = append(out, fs...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].PatternID < out[j].PatternID
	})

	// ids are assigned from one run-wide counter after ordering, so reruns agree
	for n := range out {
		out[n].ID = fmt.Sprintf("%s:%d", out[n].PatternID, n+1)
	}
	return out, nil
}

func (a *Analyzer) analyzeFile(file plugin.FileAnalysis, content string, project plugin.ProjectContext) []findings.Finding {
	var out []findings.Finding
	for _, pattern := range a.patterns {
		if !applies(pattern, file) {
			continue
		}
		matches, err := a.detect(pattern, patternContext(file, content, project))
		if err != nil {
			a.logger.Warn("pattern failed, skipping", "pattern", pattern.ID, "file", file.Path, "error", err)
			continue
		}
		for _, m := range matches {
			out = append(out, a.newFinding(pattern, file.Path, m))
		}
	}
	return out
}

// patternContext builds a fresh view per pattern, so one detector cannot change what the
// next one sees.
func patternContext(file plugin.FileAnalysis, content string, project plugin.ProjectContext) plugin.PatternContext {
	view := file.Clone()
	return plugin.PatternContext{
		FileContext: plugin.FileContext{
			Path:      view.Path,
			Content:   content,
			Extension: strings.ToLower(path.Ext(view.Path)),
			AST:       view.AST,
			Project:   project.Clone(),
		},
		Roles: append([]string(nil), view.Roles...),
		File:  view,
	}
}

func applies(pattern registry.Pattern, file plugin.FileAnalysis) bool {
	if !classifier.MatchGlob(pattern.Def.Files, file.Path) {
		return false
	}
	if len(pattern.Def.Roles) == 0 {
		return true
	}
	for _, role := range pattern.Def.Roles {
		if file.HasRole(role) {
			return true
		}
	}
	return false
}

func (a *Analyzer) detect(pattern registry.Pattern, ctx plugin.PatternContext) (matches []findings.Match, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		matches, err = pattern.Def.Detect(ctx)
	})
	if r := pc.Recovered(); r != nil {
		return nil, errors.NewRuleError(pattern.ID, ctx.Path, fmt.Errorf("panic: %v", r.Value))
	}
	if err != nil {
		return nil, errors.NewRuleError(pattern.ID, ctx.Path, err)
	}
	return matches, nil
}

func (a *Analyzer) newFinding(pattern registry.Pattern, filePath string, m findings.Match) findings.Finding {
	def := pattern.Def

	f := findings.Finding{
		PatternID:      pattern.ID,
		Plugin:         pattern.Plugin,
		Pillar:         def.Pillar,
		Severity:       def.Severity,
		Confidence:     def.Confidence,
		Title:          firstNonEmpty(m.Title, def.Title, pattern.ID),
		Message:        firstNonEmpty(m.Message, def.Description, m.Title, def.Title),
		Recommendation: firstNonEmpty(m.Recommendation, def.Recommendation),
		FilePath:       filePath,
		Line:           m.Line,
		Column:         m.Column,
		Snippet:        m.Snippet,
		Metadata:       copyMetadata(m.Metadata),
	}
	if m.Line < 0 {
		f.Line = 0
	}
	if m.Severity.Valid() {
		f.Severity = m.Severity
	} else if m.Severity != "" {
		a.logger.Debug("ignoring unknown severity override", "pattern", pattern.ID, "file", filePath, "severity", m.Severity)
	}
	if m.Confidence.Valid() {
		f.Confidence = m.Confidence
	} else if m.Confidence != "" {
		a.logger.Debug("ignoring unknown confidence override", "pattern", pattern.ID, "file", filePath, "confidence", m.Confidence)
	}

	evidence := m.Snippet
	if evidence == "" {
		evidence = f.Message
	}
	f.Fingerprint = findings.Fingerprint(pattern.ID, filePath, evidence)
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func copyMetadata(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
