package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/scan-io-git/brakit/pkg/shared"
)

var (
	Version       = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// RulePackSecrets finds credentials committed to source files.
type RulePackSecrets struct {
	logger hclog.Logger
}

func (s *RulePackSecrets) Manifest() (shared.RulePackManifest, error) {
	manifest := shared.RulePackManifest{Name: "secrets", Version: Version}
	for _, r := range rules {
		manifest.Patterns = append(manifest.Patterns, r.pattern)
	}
	s.logger.Debug("manifest requested", "patterns", len(manifest.Patterns))
	return manifest, nil
}

func (s *RulePackSecrets) Detect(req shared.RulePackDetectRequest) (shared.RulePackDetectResponse, error) {
	r, ok := ruleByID(req.PatternID)
	if !ok {
		return shared.RulePackDetectResponse{}, fmt.Errorf("unknown pattern %q", req.PatternID)
	}
	matches := r.detect(req.Content)
	if len(matches) > 0 {
		s.logger.Debug("secrets found", "pattern", req.PatternID, "file", req.Path, "count", len(matches))
	}
	return shared.RulePackDetectResponse{Matches: matches}, nil
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Level:      hclog.Trace,
		Output:     os.Stderr,
		JSONFormat: true,
	})

	pack := &RulePackSecrets{
		logger: logger,
	}

	var pluginMap = map[string]plugin.Plugin{
		shared.PluginTypeRulePack: &shared.RulePackPlugin{Impl: pack},
	}

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: shared.HandshakeConfig,
		Plugins:         pluginMap,
	})
}
