package scan

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/errors"
)

// RunOptionsScan holds the arguments for the scan command.
type RunOptionsScan struct {
	Format     string
	OutputPath string
	Threads    int
	Plugins    []string
	RulePacks  []string
	Baseline   string
	MinScore   int
}

// Global variables for configuration and command arguments
var (
	AppConfig   *config.Config
	configPath  string
	logger      hclog.Logger
	Version     = "unknown"
	scanOptions RunOptionsScan

	exampleScanUsage = `  # Scan the current directory and print a summary
  brakit scan

  # Scan a project with only the Next.js and Prisma plugins
  brakit scan -p nextjs -p prisma /path/to/project

  # Write a SARIF report and fail when the overall score drops below 80
  brakit scan --format sarif --output brakit.sarif --min-score 80 /path/to/project

  # Compare against a previous JSON report
  brakit scan --format json --baseline previous.json -o current.json /path/to/project

  # Add an external rule pack
  brakit scan --rule-pack ~/.brakit/rulepacks/secrets /path/to/project`
)

// ScanCmd represents the scan command.
var ScanCmd = &cobra.Command{
	Use:                   "scan [--config PATH] [--format/-f FORMAT] [--output/-o PATH] [-j THREADS] [--plugin/-p NAME ...] [--rule-pack PATH ...] [--baseline PATH] [--min-score SCORE] [PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Scan a JavaScript or TypeScript project and score its health",
	Long: `Scan walks a project, runs every enabled plugin and rule pack over its files,
correlates findings across the import graph and scores the project per pillar
(security, reliability, performance, privacy).

Exit codes: 0 on success, 1 on failure, 2 when the overall score is below --min-score.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanCommand,
}

// Init initializes the global configuration variable. path is the configuration file the
// root command loaded, empty when it fell back to defaults.
func Init(cfg *config.Config, path string, l hclog.Logger, version string) {
	AppConfig = cfg
	configPath = path
	logger = l
	Version = version
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	target, err := validateScanArgs(&scanOptions, args)
	if err != nil {
		logger.Error("invalid scan arguments", "error", err)
		return errors.NewCommandError(fmt.Errorf("invalid scan arguments: %w", err), errors.ExitFailure)
	}

	cfg, err := prepareConfig(AppConfig, configPath, &scanOptions, target, cmd.Flags())
	if err != nil {
		logger.Error("failed to prepare scan configuration", "error", err)
		return errors.NewCommandError(err, errors.ExitFailure)
	}

	outcome, err := runScan(cmd.Context(), cfg, logger, target, scanOptions.Baseline, Version)
	if err != nil {
		logger.Error("scan failed", "error", err)
		return errors.NewCommandError(fmt.Errorf("scan failed: %w", err), errors.ExitFailure)
	}

	if err := writeReport(cmd.OutOrStdout(), cfg, logger, outcome); err != nil {
		logger.Error("failed to write report", "error", err)
		return errors.NewCommandError(err, errors.ExitFailure)
	}

	if err := checkScore(outcome.Result.Score.Overall, cfg.Output.MinScore); err != nil {
		logger.Warn("score gate failed", "score", outcome.Result.Score.Overall, "min_score", cfg.Output.MinScore)
		return errors.NewCommandError(err, errors.ExitScoreGated)
	}

	logger.Info("scan command completed successfully", "score", outcome.Result.Score.Overall)
	return nil
}

// Initialize flags for the scan command.
func init() {
	ScanCmd.Flags().StringVarP(&scanOptions.Format, "format", "f", "", "Report format: text, json or sarif. Overrides output.format.")
	ScanCmd.Flags().BoolP("help", "h", false, "Show help for the scan command.")
	ScanCmd.Flags().StringVarP(&scanOptions.OutputPath, "output", "o", "", "Path to the report file or directory. The report goes to stdout when empty.")
	ScanCmd.Flags().IntVarP(&scanOptions.Threads, "threads", "j", 0, "Number of concurrent workers. 0 means one per CPU.")
	ScanCmd.Flags().StringSliceVarP(&scanOptions.Plugins, "plugin", "p", nil, "Built-in plugin to enable. Can be repeated. Overrides plugins.enabled.")
	ScanCmd.Flags().StringSliceVar(&scanOptions.RulePacks, "rule-pack", nil, "Rule pack binary to load in addition to plugins.rule_packs. Can be repeated.")
	ScanCmd.Flags().StringVar(&scanOptions.Baseline, "baseline", "", "Previous JSON report to mark findings as new or known.")
	ScanCmd.Flags().IntVar(&scanOptions.MinScore, "min-score", 0, "Fail with exit code 2 when the overall score is below this value. Overrides output.min_score.")
}
