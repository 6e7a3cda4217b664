package cmd

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/brakit/cmd/rules"
	"github.com/scan-io-git/brakit/cmd/scan"
	"github.com/scan-io-git/brakit/cmd/version"
	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/errors"
	"github.com/scan-io-git/brakit/pkg/shared/logger"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "brakit [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "brakit is a health scanner for JavaScript and TypeScript projects.",
		Long: `brakit parses a JavaScript or TypeScript project, runs framework-aware rules
over every file, correlates findings across the import graph and scores the
project on security, reliability, performance and privacy.
	`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./brakit.yml, then brakit.yml in the scanned directory)")
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(rules.RulesCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		var cmdErr *errors.CommandError
		if goerrors.As(err, &cmdErr) {
			return cmdErr.ExitCode
		}
		return errors.ExitFailure
	}
	return errors.ExitOK
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigFile); err == nil {
			path = config.DefaultConfigFile
		}
	}

	var err error
	AppConfig, err = config.NewConfig(path)
	if err != nil {
		return fmt.Errorf("initializing config file function is crashed - %w", err)
	}

	log := logger.NewLogger(AppConfig, "core")
	scan.Init(AppConfig, path, log.Named("scan"), version.CoreVersion)
	rules.Init(AppConfig, log.Named("rules"))
	version.Init(AppConfig, log.Named("version"))
	return nil
}
