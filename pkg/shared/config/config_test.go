package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, FormatText, cfg.Output.Format)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Scan.MaxFileSize)
	assert.Equal(t, DefaultIgnoreDirs, cfg.Scan.IgnoreDirs)
	assert.True(t, GetBoolValue(cfg, "Scan.RespectGitignore", true))
}

func TestNewConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json_format: true
scan:
  workers: 4
  exclude: ["**/*.test.ts"]
  ignore_dirs: [vendor]
  respect_gitignore: false
plugins:
  enabled: [nextjs, prisma]
output:
  format: SARIF
  min_score: 70
`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, GetBoolValue(cfg, "Logger.JSONFormat", false))
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, []string{"vendor"}, cfg.Scan.IgnoreDirs)
	assert.False(t, GetBoolValue(cfg, "Scan.RespectGitignore", true))
	assert.Equal(t, FormatSarif, cfg.Output.Format)
	assert.Equal(t, 70, cfg.Output.MinScore)
	assert.True(t, cfg.Plugins.PluginEnabled("nextjs"))
	assert.False(t, cfg.Plugins.PluginEnabled("core"))
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"workers", "scan:\n  workers: 1000\n", "workers must be between"},
		{"format", "output:\n  format: html\n", "unknown format"},
		{"min score", "output:\n  min_score: 101\n", "min_score must be between"},
		{"glob", "scan:\n  include: ['src/[']\n", "include glob"},
		{"enabled and disabled", "plugins:\n  enabled: [core]\n  disabled: [core]\n", "both enabled and disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRulePacksFolderFromEnv(t *testing.T) {
	t.Setenv("BRAKIT_RULE_PACKS_FOLDER", "/opt/brakit/packs")

	cfg, err := NewConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/opt/brakit/packs", cfg.Plugins.RulePacksFolder)
}

func TestPluginEnabled(t *testing.T) {
	all := Plugins{}
	assert.True(t, all.PluginEnabled("core"))

	some := Plugins{Disabled: []string{"prisma"}}
	assert.True(t, some.PluginEnabled("core"))
	assert.False(t, some.PluginEnabled("prisma"))
}

func TestSetThen(t *testing.T) {
	assert.Equal(t, "x", SetThen("", "x"))
	assert.Equal(t, "y", SetThen("y", "x"))
	assert.Equal(t, 3, SetThen(0, 3))
}
