package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/scan-io-git/brakit/pkg/shared/files"
)

const (
	DefaultMaxFileSize = 1 << 20
	MaxWorkers         = 256
)

// Output formats understood by the report writers.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSarif = "sarif"
)

// DefaultIgnoreDirs are never walked by the loader unless ignore_dirs is set explicitly.
var DefaultIgnoreDirs = []string{
	"node_modules", ".git", ".next", ".nuxt", ".turbo", ".vercel", ".svelte-kit",
	"dist", "build", "out", "coverage",
}

// ValidateConfig checks if the global configurations have valid values and fills in defaults.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateScanConfig(&cfg.Scan); err != nil {
		return fmt.Errorf("YAML global config: scan directive is invalid: %w", err)
	}
	if err := ValidatePluginsConfig(&cfg.Plugins); err != nil {
		return fmt.Errorf("YAML global config: plugins directive is invalid: %w", err)
	}
	if err := ValidateOutputConfig(&cfg.Output); err != nil {
		return fmt.Errorf("YAML global config: output directive is invalid: %w", err)
	}
	return nil
}

// ValidateScanConfig checks the scan directive.
func ValidateScanConfig(scan *Scan) error {
	if scan == nil {
		return fmt.Errorf("scan configuration is nil")
	}
	if scan.Workers < 0 || scan.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 0 and %d: %d", MaxWorkers, scan.Workers)
	}
	if scan.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size cannot be negative: %d", scan.MaxFileSize)
	}
	scan.MaxFileSize = SetThen(scan.MaxFileSize, int64(DefaultMaxFileSize))
	if scan.IgnoreDirs == nil {
		scan.IgnoreDirs = append([]string(nil), DefaultIgnoreDirs...)
	}

	if err := validateGlobs("include", scan.Include); err != nil {
		return err
	}
	if err := validateGlobs("exclude", scan.Exclude); err != nil {
		return err
	}
	return nil
}

// ValidatePluginsConfig checks the plugins directive and resolves the rule packs folder.
func ValidatePluginsConfig(plugins *Plugins) error {
	if plugins == nil {
		return fmt.Errorf("plugins configuration is nil")
	}

	for _, name := range plugins.Enabled {
		for _, disabled := range plugins.Disabled {
			if name == disabled {
				return fmt.Errorf("plugin %q is both enabled and disabled", name)
			}
		}
	}

	if envValue := os.Getenv("BRAKIT_RULE_PACKS_FOLDER"); envValue != "" {
		plugins.RulePacksFolder = envValue
	}
	if plugins.RulePacksFolder != "" {
		expanded, err := files.ExpandPath(plugins.RulePacksFolder)
		if err != nil {
			return fmt.Errorf("failed to expand rule packs folder %q: %w", plugins.RulePacksFolder, err)
		}
		plugins.RulePacksFolder = expanded
	}

	for i, pack := range plugins.RulePacks {
		expanded, err := files.ExpandPath(pack)
		if err != nil {
			return fmt.Errorf("failed to expand rule pack path %q: %w", pack, err)
		}
		plugins.RulePacks[i] = expanded
	}
	return nil
}

// ValidateOutputConfig checks the output directive.
func ValidateOutputConfig(output *Output) error {
	if output == nil {
		return fmt.Errorf("output configuration is nil")
	}

	output.Format = strings.ToLower(SetThen(output.Format, FormatText))
	switch output.Format {
	case FormatText, FormatJSON, FormatSarif:
	default:
		return fmt.Errorf("unknown format %q, expected one of %s, %s, %s", output.Format, FormatText, FormatJSON, FormatSarif)
	}

	if output.MinScore < 0 || output.MinScore > 100 {
		return fmt.Errorf("min_score must be between 0 and 100: %d", output.MinScore)
	}
	return nil
}

func validateGlobs(name string, globs []string) error {
	for _, glob := range globs {
		if !doublestar.ValidatePattern(glob) {
			return fmt.Errorf("%s glob %q is invalid", name, glob)
		}
	}
	return nil
}
