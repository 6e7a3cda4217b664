package version

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/internal/rulepack"
	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
	"github.com/scan-io-git/brakit/plugins/builtin"
)

var (
	AppConfig     *config.Config
	logger        hclog.Logger
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// Versions holds version information for the core application.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// CoreVersions adds the versions of built-in plugins and configured rule packs.
type CoreVersions struct {
	Versions  Versions                  `json:"versions"`
	Plugins   map[string]string         `json:"plugins"`
	RulePacks map[string]string         `json:"rule_packs"`
	Skipped   []pipeline.AnalyzerStatus `json:"skipped,omitempty"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config, l hclog.Logger) {
	AppConfig = cfg
	logger = l
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application, built-in plugins and rule packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := collectVersions(AppConfig, logger)
			if err != nil {
				return err
			}
			printVersionInfo(cmd.OutOrStdout(), versions)
			return nil
		},
	}
}

// collectVersions starts the configured rule packs to read their manifests.
func collectVersions(cfg *config.Config, l hclog.Logger) (*CoreVersions, error) {
	versions := &CoreVersions{
		Versions: Versions{
			Version:       CoreVersion,
			GolangVersion: GolangVersion,
			BuildTime:     BuildTime,
		},
		Plugins:   make(map[string]string),
		RulePacks: make(map[string]string),
	}
	for _, p := range builtin.All() {
		versions.Plugins[p.Name] = p.Version
	}

	err := rulepack.WithRulePacks(cfg, l, func(packs []plugin.Plugin, skipped []pipeline.AnalyzerStatus) error {
		for _, p := range packs {
			versions.RulePacks[p.Name] = p.Version
		}
		versions.Skipped = skipped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// printVersionInfo prints the version information for the core application and plugins.
func printVersionInfo(w io.Writer, versions *CoreVersions) {
	fmt.Fprintf(w, "Core Version: v%s\n", versions.Versions.Version)
	fmt.Fprintln(w, "Built-in Plugins:")
	for _, name := range sortedKeys(versions.Plugins) {
		fmt.Fprintf(w, "  %s: v%s\n", name, versions.Plugins[name])
	}
	if len(versions.RulePacks) > 0 || len(versions.Skipped) > 0 {
		fmt.Fprintln(w, "Rule Packs:")
		for _, name := range sortedKeys(versions.RulePacks) {
			fmt.Fprintf(w, "  %s: v%s\n", name, versions.RulePacks[name])
		}
		for _, s := range versions.Skipped {
			fmt.Fprintf(w, "  %s: unavailable (%s)\n", s.Name, s.Reason)
		}
	}
	fmt.Fprintf(w, "Go Version: %s\n", versions.Versions.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", versions.Versions.BuildTime)
}
