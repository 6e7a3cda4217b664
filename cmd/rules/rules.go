package rules

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/internal/report"
	"github.com/scan-io-git/brakit/internal/rulepack"
	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/errors"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
	"github.com/scan-io-git/brakit/plugins/builtin"
)

// RunOptionsRules holds the arguments for the rules command.
type RunOptionsRules struct {
	Plugins   []string
	RulePacks []string
}

var (
	AppConfig    *config.Config
	logger       hclog.Logger
	rulesOptions RunOptionsRules

	exampleRulesUsage = `  # List everything the built-in plugins provide
  brakit rules

  # List the rules of selected plugins and a rule pack
  brakit rules -p nextjs -p prisma --rule-pack ~/.brakit/rulepacks/secrets`
)

// RulesCmd represents the rules command.
var RulesCmd = &cobra.Command{
	Use:                   "rules [--plugin/-p NAME ...] [--rule-pack PATH ...]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRulesUsage,
	Short:                 "Print the resolved file roles, patterns and compound rules",
	Args:                  cobra.NoArgs,
	RunE:                  runRulesCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config, l hclog.Logger) {
	AppConfig = cfg
	logger = l
}

func runRulesCommand(cmd *cobra.Command, args []string) error {
	cfg := &config.Config{}
	if AppConfig != nil {
		*cfg = *AppConfig
	}
	if len(rulesOptions.Plugins) > 0 {
		cfg.Plugins.Enabled = rulesOptions.Plugins
		cfg.Plugins.Disabled = nil
	}
	cfg.Plugins.RulePacks = append(append([]string(nil), cfg.Plugins.RulePacks...), rulesOptions.RulePacks...)
	if err := config.ValidateConfig(cfg); err != nil {
		return errors.NewCommandError(err, errors.ExitFailure)
	}

	builtins, err := builtin.Select(builtin.All(), cfg.Plugins)
	if err != nil {
		logger.Error("invalid plugin selection", "error", err)
		return errors.NewCommandError(err, errors.ExitFailure)
	}

	err = rulepack.WithRulePacks(cfg, logger.Named("rulepack"), func(packs []plugin.Plugin, skipped []pipeline.AnalyzerStatus) error {
		for _, s := range skipped {
			logger.Warn("rule pack unavailable", "name", s.Name, "reason", s.Reason)
		}
		reg, err := registry.Resolve(append(builtins, packs...)...)
		if err != nil {
			return fmt.Errorf("failed to resolve plugins: %w", err)
		}
		return report.WriteRules(cmd.OutOrStdout(), reg)
	})
	if err != nil {
		logger.Error("rules command failed", "error", err)
		return errors.NewCommandError(err, errors.ExitFailure)
	}
	return nil
}

// Initialize flags for the rules command.
func init() {
	RulesCmd.Flags().BoolP("help", "h", false, "Show help for the rules command.")
	RulesCmd.Flags().StringSliceVarP(&rulesOptions.Plugins, "plugin", "p", nil, "Built-in plugin to list. Can be repeated.")
	RulesCmd.Flags().StringSliceVar(&rulesOptions.RulePacks, "rule-pack", nil, "Rule pack binary to list in addition to plugins.rule_packs. Can be repeated.")
}
