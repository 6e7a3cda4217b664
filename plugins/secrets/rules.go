package main

import (
	"regexp"
	"strings"

	"github.com/scan-io-git/brakit/pkg/shared"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

const allFiles = "**/*.{ts,tsx,js,jsx,mjs,cjs,mts,cts,json,env,yml,yaml}"

type rule struct {
	pattern shared.RulePackPattern
	re      *regexp.Regexp
	// group holds the secret itself; its value is masked in snippets.
	group int
}

var rules = []rule{
	{
		pattern: shared.RulePackPattern{
			ID:             "aws-access-key",
			Title:          "AWS access key id",
			Description:    "An AWS access key id is committed to the repository.",
			Recommendation: "Revoke the key and load credentials from the environment.",
			Pillar:         findings.PillarSecurity,
			Severity:       findings.SeverityCritical,
			Confidence:     findings.ConfidenceFirm,
			Files:          allFiles,
		},
		re:    regexp.MustCompile(`\b((?:AKIA|ASIA)[0-9A-Z]{16})\b`),
		group: 1,
	},
	{
		pattern: shared.RulePackPattern{
			ID:             "stripe-live-key",
			Title:          "Stripe live secret key",
			Description:    "A live Stripe secret key can move money on the account.",
			Recommendation: "Roll the key in the Stripe dashboard and read it from a server-only environment variable.",
			Pillar:         findings.PillarSecurity,
			Severity:       findings.SeverityCritical,
			Confidence:     findings.ConfidenceCertain,
			Files:          allFiles,
		},
		re:    regexp.MustCompile(`\b((?:sk|rk)_live_[0-9A-Za-z]{24,})\b`),
		group: 1,
	},
	{
		pattern: shared.RulePackPattern{
			ID:             "private-key",
			Title:          "Private key block",
			Description:    "A PEM encoded private key is committed to the repository.",
			Recommendation: "Remove the key from history and issue a new one.",
			Pillar:         findings.PillarSecurity,
			Severity:       findings.SeverityCritical,
			Confidence:     findings.ConfidenceCertain,
		},
		re: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
	},
	{
		pattern: shared.RulePackPattern{
			ID:             "hardcoded-password",
			Title:          "Hard-coded credential",
			Description:    "A password or API key is assigned a literal value.",
			Recommendation: "Read the value from the environment or a secret manager.",
			Pillar:         findings.PillarPrivacy,
			Severity:       findings.SeverityHigh,
			Confidence:     findings.ConfidenceTentative,
			Files:          allFiles,
		},
		re:    regexp.MustCompile(`(?i)\b(?:password|passwd|secret|api_?key|auth_?token)["']?\s*[:=]\s*["']([^"'\s]{8,})["']`),
		group: 1,
	},
}

func ruleByID(id string) (rule, bool) {
	for _, r := range rules {
		if r.pattern.ID == id {
			return r, true
		}
	}
	return rule{}, false
}

func (r rule) detect(content string) []findings.Match {
	var out []findings.Match
	for _, occ := range plugin.Occurrences(r.re, content) {
		snippet := occ.Snippet
		if r.group > 0 && r.group <= len(occ.Groups) {
			if secret := occ.Groups[r.group-1]; secret != "" {
				if placeholder(secret) {
					continue
				}
				snippet = strings.ReplaceAll(snippet, secret, mask(secret))
			}
		}
		out = append(out, findings.Match{
			Line:    occ.Line,
			Column:  occ.Column,
			Snippet: snippet,
		})
	}
	return out
}

// placeholder reports values that are obviously not real credentials.
func placeholder(secret string) bool {
	lower := strings.ToLower(secret)
	for _, marker := range []string{"example", "changeme", "placeholder", "xxxxxxxx", "your_", "<"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.HasPrefix(secret, "${") || strings.HasPrefix(secret, "process.env")
}

// mask keeps the first four characters of a secret.
func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
