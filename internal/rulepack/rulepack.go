// Package rulepack launches rule pack binaries and adapts them into plugins.
package rulepack

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/pkg/shared"
	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

// Resolve turns a configured rule pack into a binary path. Bare names are looked up in the
// rule packs folder.
func Resolve(cfg *config.Config, pack string) string {
	if filepath.IsAbs(pack) || strings.ContainsRune(pack, filepath.Separator) || strings.Contains(pack, "/") {
		return pack
	}
	return filepath.Join(shared.GetRulePacksFolder(cfg.Plugins.RulePacksFolder), pack)
}

// WithRulePacks starts every configured rule pack, calls f with the packs adapted into
// plugins, and stops the processes when f returns. A pack that fails to start is reported
// in skipped instead of failing the scan.
func WithRulePacks(cfg *config.Config, logger hclog.Logger, f func(plugins []plugin.Plugin, skipped []pipeline.AnalyzerStatus) error) error {
	var (
		plugins []plugin.Plugin
		skipped []pipeline.AnalyzerStatus
	)

	for _, pack := range cfg.Plugins.RulePacks {
		pluginPath := Resolve(cfg, pack)
		client := goplugin.NewClient(&goplugin.ClientConfig{
			HandshakeConfig:  shared.HandshakeConfig,
			Plugins:          shared.PluginMap,
			Cmd:              exec.Command(pluginPath),
			Logger:           logger.Named(filepath.Base(pluginPath)),
			AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		})
		defer client.Kill()

		p, err := dispense(client)
		if err != nil {
			logger.Warn("rule pack could not be started, skipping", "path", pluginPath, "error", err)
			skipped = append(skipped, pipeline.AnalyzerStatus{Name: filepath.Base(pluginPath), Reason: err.Error()})
			continue
		}
		logger.Debug("rule pack started", "path", pluginPath, "name", p.Name, "patterns", len(p.Patterns))
		plugins = append(plugins, p)
	}

	return f(plugins, skipped)
}

func dispense(client *goplugin.Client) (plugin.Plugin, error) {
	rpcClient, err := client.Client()
	if err != nil {
		return plugin.Plugin{}, fmt.Errorf("failed to connect: %w", err)
	}
	raw, err := rpcClient.Dispense(shared.PluginTypeRulePack)
	if err != nil {
		return plugin.Plugin{}, fmt.Errorf("failed to dispense rule pack: %w", err)
	}
	pack, ok := raw.(shared.RulePack)
	if !ok {
		return plugin.Plugin{}, fmt.Errorf("unexpected rule pack type %T", raw)
	}
	return Adapt(pack)
}

// Adapt reads the pack's manifest and wraps every declared pattern in a detector that
// calls back into the pack.
func Adapt(pack shared.RulePack) (plugin.Plugin, error) {
	manifest, err := pack.Manifest()
	if err != nil {
		return plugin.Plugin{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	p := plugin.Plugin{Name: manifest.Name, Version: manifest.Version}
	for _, decl := range manifest.Patterns {
		// packs built outside this module may send "HIGH" or "High"
		severity, err := findings.ParseSeverity(string(decl.Severity))
		if err != nil {
			return plugin.Plugin{}, fmt.Errorf("rule pack %q pattern %q: %w", manifest.Name, decl.ID, err)
		}
		p.Patterns = append(p.Patterns, plugin.Pattern{
			ID:             decl.ID,
			Title:          decl.Title,
			Description:    decl.Description,
			Recommendation: decl.Recommendation,
			Pillar:         decl.Pillar,
			Severity:       severity,
			Confidence:     decl.Confidence,
			Files:          decl.Files,
			Roles:          decl.Roles,
			Detect:         remoteDetector(pack, decl.ID),
		})
	}
	if err := p.Validate(); err != nil {
		return plugin.Plugin{}, fmt.Errorf("rule pack %q is invalid: %w", manifest.Name, err)
	}
	return p, nil
}

func remoteDetector(pack shared.RulePack, patternID string) func(plugin.PatternContext) ([]findings.Match, error) {
	return func(ctx plugin.PatternContext) ([]findings.Match, error) {
		resp, err := pack.Detect(shared.RulePackDetectRequest{
			PatternID: patternID,
			Path:      ctx.Path,
			Content:   ctx.Content,
			Roles:     ctx.Roles,
			AST:       ctx.AST,
		})
		if err != nil {
			return nil, err
		}
		return resp.Matches, nil
	}
}
