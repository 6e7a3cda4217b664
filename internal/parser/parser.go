// Package parser extracts structural summaries from JavaScript and TypeScript sources.
package parser

import (
	"context"
	"path"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/sourcegraph/conc/panics"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	"golang.org/x/sync/errgroup"

	"github.com/scan-io-git/brakit/pkg/shared/ast"
)

type dialect int

const (
	dialectNone dialect = iota
	dialectJavaScript
	dialectTypeScript
	dialectTSX
)

var (
	languageJavaScript = tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	languageTypeScript = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	languageTSX        = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
)

var extensions = map[string]dialect{
	".js":  dialectJavaScript,
	".jsx": dialectJavaScript,
	".mjs": dialectJavaScript,
	".cjs": dialectJavaScript,
	".ts":  dialectTypeScript,
	".mts": dialectTypeScript,
	".cts": dialectTypeScript,
	".tsx": dialectTSX,
}

// Supported reports whether files with the path's extension are parsed.
func Supported(filePath string) bool {
	return dialectOf(filePath) != dialectNone
}

func dialectOf(filePath string) dialect {
	return extensions[strings.ToLower(path.Ext(filePath))]
}

func (d dialect) language() *tree_sitter.Language {
	switch d {
	case dialectJavaScript:
		return languageJavaScript
	case dialectTypeScript:
		return languageTypeScript
	case dialectTSX:
		return languageTSX
	default:
		return nil
	}
}

// Parse returns the structural summary of one file. Unsupported extensions and sources that
// fail to parse yield the empty summary.
func Parse(filePath string, contents []byte) ast.Summary {
	summary, _ := parse(filePath, contents)
	return summary
}

// parse also reports whether a syntax tree was produced and accepted.
func parse(filePath string, contents []byte) (summary ast.Summary, parsed bool) {
	lang := dialectOf(filePath).language()
	if lang == nil {
		return ast.Summary{}, false
	}

	var pc panics.Catcher
	pc.Try(func() {
		p := tree_sitter.NewParser()
		defer p.Close()
		if err := p.SetLanguage(lang); err != nil {
			return
		}

		tree := p.Parse(contents, nil)
		if tree == nil {
			return
		}
		defer tree.Close()

		root := tree.RootNode()
		if root == nil || root.HasError() {
			return
		}
		summary = extract(root, contents)
		parsed = true
	})
	if pc.Recovered() != nil {
		return ast.Summary{}, false
	}
	return summary, parsed
}

// Result is the outcome of parsing one file.
type Result struct {
	Summary ast.Summary
	Parsed  bool
}

// Parser parses a file set concurrently.
type Parser struct {
	logger  hclog.Logger
	workers int
}

// New creates a Parser. workers <= 0 uses one worker per CPU.
func New(logger hclog.Logger, workers int) *Parser {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Parser{logger: logger, workers: workers}
}

// ParseAll parses every path in paths, reading sources from contents. Files missing from
// contents are summarised as empty. The only error is cancellation of ctx.
func (p *Parser) ParseAll(ctx context.Context, paths []string, contents map[string]string) (map[string]Result, error) {
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, filePath := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, ok := contents[filePath]
			if !ok {
				return nil
			}
			summary, parsed := parse(filePath, []byte(src))
			if !parsed && Supported(filePath) {
				p.logger.Debug("file could not be parsed, using an empty summary", "file", filePath)
			}
			results[i] = Result{Summary: summary, Parsed: parsed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]Result, len(paths))
	for i, filePath := range paths {
		out[filePath] = results[i]
	}
	return out, nil
}
