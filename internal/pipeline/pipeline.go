// Package pipeline runs the analysis stages of a scan in order over one resolved registry.
package pipeline

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/brakit/internal/analyzer"
	"github.com/scan-io-git/brakit/internal/classifier"
	"github.com/scan-io-git/brakit/internal/correlator"
	"github.com/scan-io-git/brakit/internal/git"
	"github.com/scan-io-git/brakit/internal/graph"
	"github.com/scan-io-git/brakit/internal/parser"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/internal/scorer"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

// Options tune a Pipeline. The zero value is usable.
type Options struct {
	Version           string           // Version reported in the scan metadata
	Workers           int              // Concurrency of the parse and pattern stages, <= 0 means one per CPU
	Skipped           []AnalyzerStatus // Analyzers that could not be started, reported as not run
	AliasFS           fs.FS            // Where tsconfig.json is looked up, defaults to the scan root
	CollectRepository bool             // Record git metadata of the scan root
}

// Pipeline holds the stages built over one registry. It can run any number of scans.
type Pipeline struct {
	logger     hclog.Logger
	reg        *registry.Registry
	opts       Options
	parser     *parser.Parser
	classifier *classifier.Classifier
	analyzer   *analyzer.Analyzer
	correlator *correlator.Correlator
}

func New(logger hclog.Logger, reg *registry.Registry, opts Options) *Pipeline {
	return &Pipeline{
		logger:     logger,
		reg:        reg,
		opts:       opts,
		parser:     parser.New(logger.Named("parser"), opts.Workers),
		classifier: classifier.New(logger.Named("classifier"), reg),
		analyzer:   analyzer.New(logger.Named("analyzer"), reg, opts.Workers),
		correlator: correlator.New(logger.Named("correlator"), reg),
	}
}

// Run scans input. A result is always well formed; the only error is cancellation of ctx.
func (p *Pipeline) Run(ctx context.Context, input ScanInput) (*ScanResult, error) {
	started := time.Now()
	scanID := uuid.NewString()
	logger := p.logger.With("scan_id", scanID)

	paths := uniqueSorted(input.FilePaths)
	logger.Debug("scan started", "root", input.RootDir, "files", len(paths))

	parsed, err := p.parser.ParseAll(ctx, paths, input.FileContents)
	if err != nil {
		return nil, err
	}

	files := make(map[string]plugin.FileAnalysis, len(paths))
	for _, filePath := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := parsed[filePath]
		roles, classifiedBy := p.classifier.Classify(plugin.FileContext{
			Path:    filePath,
			Content: input.FileContents[filePath],
			AST:     res.Summary,
			Project: input.Project,
		})
		files[filePath] = plugin.FileAnalysis{
			Path:         filePath,
			Roles:        roles,
			ClassifiedBy: classifiedBy,
			AST:          res.Summary,
			Parsed:       res.Parsed,
		}
	}

	raw, err := p.analyzer.Analyze(ctx, files, input.FileContents, input.Project)
	if err != nil {
		return nil, err
	}
	found := analyzer.Deduplicate(raw)
	logger.Debug("patterns evaluated", "raw", len(raw), "deduplicated", len(found))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	importGraph := graph.Build(files, paths, p.aliases(input))
	logger.Debug("import graph built", "files", len(importGraph.Nodes()), "edges", importGraph.EdgeCount())
	compounds := p.correlator.Correlate(found, files, importGraph)

	score := scorer.Compute(found, compounds, files)

	if compounds == nil {
		compounds = []findings.CompoundFinding{}
	}

	md := Metadata{
		Version:     p.opts.Version,
		ScanID:      scanID,
		RootDir:     input.RootDir,
		StartedAt:   started.UTC(),
		Analyzers:   p.analyzers(),
		Plugins:     p.reg.Plugins(),
		Warnings:    append([]string{}, p.reg.Warnings()...),
		ImportEdges: importGraph.EdgeCount(),
		Project:     input.Project,
	}
	if p.opts.CollectRepository && input.RootDir != "" {
		repo, err := git.CollectRepositoryMetadata(input.RootDir)
		if err != nil {
			logger.Debug("repository metadata is incomplete", "error", err)
		}
		md.Repository = repo
	}
	md.DurationMS = time.Since(started).Milliseconds()

	logger.Info("scan finished",
		"files", len(files),
		"findings", len(found),
		"compound_findings", len(compounds),
		"score", score.Overall,
		"duration_ms", md.DurationMS,
	)

	return &ScanResult{
		Findings:         found,
		CompoundFindings: compounds,
		FileAnalyses:     files,
		Score:            score,
		Metadata:         md,
	}, nil
}

// aliases loads tsconfig path aliases. The scan config may name the file to read.
func (p *Pipeline) aliases(input ScanInput) []graph.Alias {
	fsys := p.opts.AliasFS
	if fsys == nil {
		if input.RootDir == "" {
			return nil
		}
		fsys = os.DirFS(input.RootDir)
	}

	var names []string
	if input.Config != nil && input.Config.Scan.Tsconfig != "" {
		names = []string{input.Config.Scan.Tsconfig}
	}
	return graph.LoadAliases(fsys, names...)
}

func (p *Pipeline) analyzers() []AnalyzerStatus {
	plugins := p.reg.Plugins()
	out := make([]AnalyzerStatus, 0, len(plugins)+len(p.opts.Skipped))
	for _, info := range plugins {
		out = append(out, AnalyzerStatus{Name: info.Name, Version: info.Version, Ran: true})
	}
	out = append(out, p.opts.Skipped...)
	return out
}

func uniqueSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
