// Package classifier tags files with the semantic roles declared by file-role rules.
package classifier

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/sourcegraph/conc/panics"

	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/pkg/shared/errors"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

type Classifier struct {
	logger hclog.Logger
	rules  []registry.FileRole
}

func New(logger hclog.Logger, reg *registry.Registry) *Classifier {
	return &Classifier{logger: logger, rules: reg.FileRoles()}
}

// Classify runs every file-role rule whose glob matches the file. It returns the sorted set
// of roles and the qualified ids of the rules that contributed at least one role.
func (c *Classifier) Classify(file plugin.FileContext) (roles []string, classifiedBy []string) {
	if file.Extension == "" {
		file.Extension = strings.ToLower(path.Ext(file.Path))
	}

	set := make(map[string]bool)
	for _, rule := range c.rules {
		if !MatchGlob(rule.Def.Files, file.Path) {
			continue
		}

		got, err := c.invoke(rule, file)
		if err != nil {
			c.logger.Warn("file role rule failed, skipping", "rule", rule.ID, "file", file.Path, "error", err)
			continue
		}

		contributed := false
		for _, role := range got {
			role = strings.TrimSpace(role)
			if role == "" {
				continue
			}
			set[role] = true
			contributed = true
		}
		if contributed {
			classifiedBy = append(classifiedBy, rule.ID)
		}
	}

	roles = make([]string, 0, len(set))
	for role := range set {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	if classifiedBy == nil {
		classifiedBy = []string{}
	}
	return roles, classifiedBy
}

func (c *Classifier) invoke(rule registry.FileRole, file plugin.FileContext) (roles []string, err error) {
	var pc panics.Catcher
	view := file
	view.AST = file.AST.Clone()
	view.Project = file.Project.Clone()
	pc.Try(func() {
		roles = rule.Def.Classify(view)
	})
	if r := pc.Recovered(); r != nil {
		return nil, errors.NewRuleError(rule.ID, file.Path, fmt.Errorf("panic: %v", r.Value))
	}
	return roles, nil
}

// MatchGlob reports whether the slash-separated path matches the glob. An empty glob matches
// every path.
func MatchGlob(glob, filePath string) bool {
	if glob == "" {
		return true
	}
	ok, err := doublestar.Match(glob, filePath)
	return err == nil && ok
}
