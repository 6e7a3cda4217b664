package scan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/brakit/internal/loader"
	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/internal/report"
	"github.com/scan-io-git/brakit/internal/rulepack"
	"github.com/scan-io-git/brakit/pkg/issuecorrelation"
	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/files"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
	"github.com/scan-io-git/brakit/plugins/builtin"
)

// reportNames maps a format to the file name used when --output is a directory.
var reportNames = map[string]string{
	config.FormatText:  "brakit-report.txt",
	config.FormatJSON:  "brakit-report.json",
	config.FormatSarif: "brakit-report.sarif",
}

// Outcome is everything a finished scan hands to the report writers.
type Outcome struct {
	Result   *pipeline.ScanResult
	Registry *registry.Registry
	Baseline *issuecorrelation.Summary
}

// prepareConfig layers the command line over the loaded configuration. A brakit.yml in the
// scanned directory is used when the root command found no configuration file. flags tells
// an explicit --min-score 0 apart from an unset one.
func prepareConfig(base *config.Config, configPath string, options *RunOptionsScan, target string, flags *pflag.FlagSet) (*config.Config, error) {
	cfg := &config.Config{}
	local := filepath.Join(target, config.DefaultConfigFile)
	switch {
	case configPath == "" && fileExists(local):
		loaded, err := config.NewConfig(local)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case base != nil:
		*cfg = *base
	}

	if options.Format != "" {
		cfg.Output.Format = options.Format
	}
	if options.OutputPath != "" {
		cfg.Output.Path = options.OutputPath
	}
	if flags != nil && flags.Changed("min-score") {
		cfg.Output.MinScore = options.MinScore
	}
	if options.Threads > 0 {
		cfg.Scan.Workers = options.Threads
	}
	if len(options.Plugins) > 0 {
		cfg.Plugins.Enabled = append([]string(nil), options.Plugins...)
		cfg.Plugins.Disabled = without(cfg.Plugins.Disabled, options.Plugins)
	}
	cfg.Plugins.RulePacks = append(append([]string(nil), cfg.Plugins.RulePacks...), options.RulePacks...)

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runScan loads the project, resolves the plugins and rule packs, and runs the pipeline.
// Rule pack processes live until the pipeline has finished.
func runScan(ctx context.Context, cfg *config.Config, logger hclog.Logger, target, baselinePath, version string) (*Outcome, error) {
	input, err := loader.New(logger.Named("loader"), cfg).Load(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	builtins, err := builtin.Select(builtin.All(), cfg.Plugins)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}
	err = rulepack.WithRulePacks(cfg, logger.Named("rulepack"), func(packs []plugin.Plugin, skipped []pipeline.AnalyzerStatus) error {
		reg, err := registry.Resolve(append(builtins, packs...)...)
		if err != nil {
			return fmt.Errorf("failed to resolve plugins: %w", err)
		}
		for _, warning := range reg.Warnings() {
			logger.Warn(warning)
		}

		p := pipeline.New(logger.Named("pipeline"), reg, pipeline.Options{
			Version:           version,
			Workers:           cfg.Scan.Workers,
			Skipped:           skipped,
			CollectRepository: true,
		})
		result, err := p.Run(ctx, input)
		if err != nil {
			return err
		}
		outcome.Result = result
		outcome.Registry = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	if baselinePath != "" {
		known, err := issuecorrelation.LoadBaseline(baselinePath)
		if err != nil {
			return nil, err
		}
		annotated, summary := issuecorrelation.Annotate(outcome.Result.Findings, known)
		outcome.Result.Findings = annotated
		outcome.Baseline = &summary
		logger.Info("baseline compared", "new", summary.New, "known", summary.Known, "fixed", summary.Fixed)
	}
	return outcome, nil
}

// writeReport renders the outcome to the configured output path, or to w when none is set.
func writeReport(w io.Writer, cfg *config.Config, logger hclog.Logger, outcome *Outcome) error {
	var buf bytes.Buffer
	opts := report.Options{Format: cfg.Output.Format, Baseline: outcome.Baseline}
	if err := report.Write(&buf, logger, outcome.Result, outcome.Registry, opts); err != nil {
		return err
	}

	if cfg.Output.Path == "" {
		_, err := w.Write(buf.Bytes())
		return err
	}

	path, folder, err := files.DetermineFileFullPath(cfg.Output.Path, reportNames[cfg.Output.Format])
	if err != nil {
		return err
	}
	if err := files.CreateFolderIfNotExists(folder); err != nil {
		return err
	}
	if err := files.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write report to %q: %w", path, err)
	}
	logger.Info("report written", "path", path, "format", cfg.Output.Format)
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func without(values, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[r] = true
	}
	var out []string
	for _, v := range values {
		if !drop[v] {
			out = append(out, v)
		}
	}
	return out
}
