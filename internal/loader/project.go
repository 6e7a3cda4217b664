package loader

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

type packageJSON struct {
	Name            string            `json:"name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// readProject builds the project context from the root package.json. A missing or
// malformed manifest leaves the dependency lists empty.
func readProject(root string, paths []string, logger hclog.Logger) plugin.ProjectContext {
	var project plugin.ProjectContext

	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	switch {
	case os.IsNotExist(err):
		logger.Debug("no package.json in scan root")
	case err != nil:
		logger.Warn("failed to read package.json", "error", err)
	default:
		var manifest packageJSON
		if err := json.Unmarshal(data, &manifest); err != nil {
			logger.Warn("package.json is malformed", "error", err)
			break
		}
		project.Name = manifest.Name
		project.Dependencies = manifest.Dependencies
		project.DevDependencies = manifest.DevDependencies
	}

	project.TypeScript = project.HasDependency("typescript")
	for _, p := range paths {
		if project.TypeScript {
			break
		}
		project.TypeScript = p == "tsconfig.json" || isTypeScript(p)
	}
	return project
}
