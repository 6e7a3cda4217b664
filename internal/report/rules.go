package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/scan-io-git/brakit/internal/registry"
)

// WriteRules lists what a resolved registry will run.
func WriteRules(w io.Writer, reg *registry.Registry) error {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("Plugins") + "\n")
	for _, p := range reg.Plugins() {
		weight, _ := reg.Weight(p.Name)
		b.WriteString(fmt.Sprintf("  %s %s\n", p.Name, mutedStyle.Render(fmt.Sprintf("v%s weight %.2g", p.Version, weight))))
	}

	if roles := reg.FileRoles(); len(roles) > 0 {
		b.WriteString("\n" + sectionStyle.Render("File roles") + "\n")
		for _, r := range roles {
			b.WriteString(fmt.Sprintf("  %s  %s\n", r.ID, mutedStyle.Render(r.Def.Description)))
		}
	}

	if patterns := reg.Patterns(); len(patterns) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Patterns") + "\n")
		for _, p := range patterns {
			b.WriteString(fmt.Sprintf("  %s %s  %s %s\n",
				severityLabel(p.Def.Severity), p.ID, p.Def.Title,
				mutedStyle.Render(fmt.Sprintf("(%s, %s)", p.Def.Pillar, p.Def.Confidence))))
		}
	}

	if compounds := reg.CompoundRules(); len(compounds) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Compound rules") + "\n")
		for _, c := range compounds {
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", severityLabel(c.Def.Severity), c.ID, c.Def.Title))
			b.WriteString(mutedStyle.Render("    requires "+strings.Join(c.Def.Requires, ", ")) + "\n")
		}
	}

	if warnings := reg.Warnings(); len(warnings) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Warnings") + "\n")
		for _, warning := range warnings {
			b.WriteString("  - " + warning + "\n")
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	return nil
}
