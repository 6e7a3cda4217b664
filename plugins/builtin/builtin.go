// Package builtin lists the plugins compiled into brakit.
package builtin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
	"github.com/scan-io-git/brakit/plugins/builtin/core"
	"github.com/scan-io-git/brakit/plugins/builtin/nextjs"
	"github.com/scan-io-git/brakit/plugins/builtin/prisma"
)

// All returns a fresh copy of every built-in plugin.
func All() []plugin.Plugin {
	return []plugin.Plugin{
		core.Plugin(),
		nextjs.Plugin(),
		prisma.Plugin(),
	}
}

// Select keeps the plugins the directive enables. Naming a plugin that is not available in
// the enabled list is an error; unknown disabled names are ignored.
func Select(available []plugin.Plugin, cfg config.Plugins) ([]plugin.Plugin, error) {
	known := make(map[string]bool, len(available))
	for _, p := range available {
		known[p.Name] = true
	}

	var unknown []string
	for _, name := range cfg.Enabled {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown plugins enabled: %s", strings.Join(unknown, ", "))
	}

	var out []plugin.Plugin
	for _, p := range available {
		if cfg.PluginEnabled(p.Name) {
			out = append(out, p)
		}
	}
	return out, nil
}
