package scan

import (
	"fmt"

	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/files"
)

// validateScanArgs validates the arguments provided to the scan command and returns the
// directory to scan.
func validateScanArgs(options *RunOptionsScan, args []string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("invalid argument(s) received, only one positional argument is allowed")
	}

	target := "."
	if len(args) == 1 {
		expanded, err := files.ExpandPath(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to expand target path %q: %w", args[0], err)
		}
		target = expanded
	}
	if err := files.ValidateDir(target); err != nil {
		return "", fmt.Errorf("the target path is not a directory: %w", err)
	}

	if options.Threads < 0 || options.Threads > config.MaxWorkers {
		return "", fmt.Errorf("the 'threads' flag must be between 0 and %d", config.MaxWorkers)
	}
	if options.MinScore < 0 || options.MinScore > 100 {
		return "", fmt.Errorf("the 'min-score' flag must be between 0 and 100")
	}

	if options.Baseline != "" {
		if err := files.ValidatePath(options.Baseline); err != nil {
			return "", fmt.Errorf("the baseline report is not readable: %w", err)
		}
	}
	return target, nil
}

// checkScore fails when a minimum score is set and the overall score is below it.
func checkScore(overall, minScore int) error {
	if minScore > 0 && overall < minScore {
		return fmt.Errorf("overall score %d is below the minimum of %d", overall, minScore)
	}
	return nil
}
