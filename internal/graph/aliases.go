package graph

import (
	"encoding/json"
	"io/fs"
	"path"
	"strings"

	"github.com/tailscale/hujson"
)

// AliasConfigFiles are looked up, in order, when no alias file is configured.
var AliasConfigFiles = []string{"tsconfig.json", "jsconfig.json"}

type compilerConfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// LoadAliases reads path aliases from the first existing file among names, or among
// AliasConfigFiles when names is empty. Comments and trailing commas are accepted. A missing
// or malformed file yields no aliases.
func LoadAliases(fsys fs.FS, names ...string) []Alias {
	if len(names) == 0 {
		names = AliasConfigFiles
	}

	for _, name := range names {
		name = path.Clean(strings.TrimPrefix(name, "./"))
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			continue
		}
		return parseAliases(data, path.Dir(name))
	}
	return nil
}

func parseAliases(data []byte, configDir string) []Alias {
	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil
	}

	var cfg compilerConfig
	if err := json.Unmarshal(standard, &cfg); err != nil {
		return nil
	}

	baseDir := path.Join(configDir, cfg.CompilerOptions.BaseURL)
	var aliases []Alias
	for key, targets := range cfg.CompilerOptions.Paths {
		alias := Alias{Prefix: strings.TrimSuffix(key, "*"), Exact: !strings.HasSuffix(key, "*")}
		for _, target := range targets {
			if alias.Exact {
				alias.Targets = append(alias.Targets, path.Join(baseDir, target))
				continue
			}
			alias.Targets = append(alias.Targets, path.Join(baseDir, strings.TrimSuffix(target, "*")))
		}
		if len(alias.Targets) > 0 {
			aliases = append(aliases, alias)
		}
	}
	return aliases
}
