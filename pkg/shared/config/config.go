package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// DefaultConfigFile is looked up in the scanned directory when no --config is given.
const DefaultConfigFile = "brakit.yml"

type Config struct {
	Logger  Logger  `yaml:"logger"`
	Scan    Scan    `yaml:"scan"`
	Plugins Plugins `yaml:"plugins"`
	Output  Output  `yaml:"output"`
}

type Logger struct {
	Level           string `yaml:"level"`
	JSONFormat      *bool  `yaml:"json_format"`
	DisableTime     *bool  `yaml:"disable_time"`
	IncludeLocation *bool  `yaml:"include_location"`
}

type Scan struct {
	Workers          int      `yaml:"workers"`
	Include          []string `yaml:"include"`
	Exclude          []string `yaml:"exclude"`
	IgnoreDirs       []string `yaml:"ignore_dirs"`
	RespectGitignore *bool    `yaml:"respect_gitignore"`
	MaxFileSize      int64    `yaml:"max_file_size"`
	Tsconfig         string   `yaml:"tsconfig"`
}

type Plugins struct {
	Enabled         []string `yaml:"enabled"`
	Disabled        []string `yaml:"disabled"`
	RulePacks       []string `yaml:"rule_packs"`
	RulePacksFolder string   `yaml:"rule_packs_folder"`
}

type Output struct {
	Format   string `yaml:"format"`
	Path     string `yaml:"path"`
	MinScore int    `yaml:"min_score"`
}

func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// NewConfig reads the configuration file and fills every unset value with its default.
// An empty path yields the defaults.
func NewConfig(configPath string) (*Config, error) {
	config := &Config{}

	if configPath != "" {
		if err := LoadYAML(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
		}
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}
