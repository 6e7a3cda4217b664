// Package shared holds the contracts between brakit and its rule pack binaries.
package shared

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-plugin"
)

const PluginTypeRulePack string = "rulepack"

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "BRAKIT",
	MagicCookieValue: "5b1f0c2e9a7d4c38b6e1f4a29d0c7e85a3b6d9f1",
}

var PluginMap = map[string]plugin.Plugin{
	PluginTypeRulePack: &RulePackPlugin{},
}

// GetBrakitHome returns BRAKIT_HOME, or ~/.brakit.
func GetBrakitHome() string {
	if envHome := os.Getenv("BRAKIT_HOME"); envHome != "" {
		return envHome
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".brakit"
	}
	return filepath.Join(home, ".brakit")
}

// GetRulePacksFolder is where rule pack binaries named without a path are looked up.
func GetRulePacksFolder(configured string) string {
	if configured != "" {
		return configured
	}
	return filepath.Join(GetBrakitHome(), "rulepacks")
}
