package scan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/brakit/internal/report"
	"github.com/scan-io-git/brakit/pkg/issuecorrelation"
	"github.com/scan-io-git/brakit/pkg/shared/config"
)

var project = map[string]string{
	"package.json": `{"name": "storefront", "dependencies": {"next": "14.2.0", "@prisma/client": "5.0.0"}}`,
	"app/api/users/route.ts": `import { search } from "../../../lib/users";

export async function GET(req: Request) {
  return Response.json(await search(new URL(req.url).searchParams.get("q")));
}
`,
	"lib/users.ts": `import { prisma } from "./db";

export async function search(term: string) {
  return prisma.$queryRaw("SELECT id FROM users WHERE name = '" + term + "'");
}
`,
	"lib/db.ts": `import { PrismaClient } from "@prisma/client";

export const prisma = new PrismaClient();
`,
	"node_modules/left-pad/index.js": `eval("1")`,
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, config.ValidateConfig(cfg))
	return cfg
}

func parsedFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	flags.Int("min-score", 0, "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestValidateScanArgs(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "previous.json")
	require.NoError(t, os.WriteFile(baseline, []byte(`{"findings": []}`), 0o644))

	tests := []struct {
		name       string
		options    RunOptionsScan
		args       []string
		wantTarget string
		wantErr    string
	}{
		{name: "defaults to the working directory", args: nil, wantTarget: "."},
		{name: "explicit directory", args: []string{dir}, wantTarget: dir},
		{name: "baseline file", options: RunOptionsScan{Baseline: baseline}, args: []string{dir}, wantTarget: dir},
		{name: "too many arguments", args: []string{dir, dir}, wantErr: "only one positional argument"},
		{name: "missing directory", args: []string{filepath.Join(dir, "nope")}, wantErr: "not a directory"},
		{name: "file as target", args: []string{baseline}, wantErr: "not a directory"},
		{name: "negative threads", options: RunOptionsScan{Threads: -1}, args: []string{dir}, wantErr: "'threads'"},
		{name: "score above range", options: RunOptionsScan{MinScore: 101}, args: []string{dir}, wantErr: "'min-score'"},
		{name: "missing baseline", options: RunOptionsScan{Baseline: filepath.Join(dir, "old.json")}, args: []string{dir}, wantErr: "baseline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := validateScanArgs(&tt.options, tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, target)
		})
	}
}

func TestCheckScore(t *testing.T) {
	assert.NoError(t, checkScore(40, 0))
	assert.NoError(t, checkScore(80, 80))
	assert.ErrorContains(t, checkScore(79, 80), "overall score 79 is below the minimum of 80")
}

func TestPrepareConfigAppliesFlags(t *testing.T) {
	base := validConfig(t)
	base.Plugins.Disabled = []string{"prisma"}
	base.Plugins.RulePacks = []string{"/opt/packs/secrets"}
	base.Output.MinScore = 50

	cfg, err := prepareConfig(base, "brakit.yml", &RunOptionsScan{
		Format:    "SARIF",
		Threads:   4,
		Plugins:   []string{"prisma", "core"},
		RulePacks: []string{"/opt/packs/extra"},
		MinScore:  0,
	}, t.TempDir(), parsedFlags(t, "--min-score", "0"))
	require.NoError(t, err)

	assert.Equal(t, config.FormatSarif, cfg.Output.Format)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, []string{"prisma", "core"}, cfg.Plugins.Enabled)
	assert.Empty(t, cfg.Plugins.Disabled)
	assert.Equal(t, []string{"/opt/packs/secrets", "/opt/packs/extra"}, cfg.Plugins.RulePacks)
	assert.Equal(t, 0, cfg.Output.MinScore)

	// the loaded configuration is left alone
	assert.Equal(t, []string{"/opt/packs/secrets"}, base.Plugins.RulePacks)
	assert.Equal(t, 50, base.Output.MinScore)
}

func TestPrepareConfigReadsProjectFile(t *testing.T) {
	root := writeProject(t, map[string]string{
		config.DefaultConfigFile: "output:\n  format: json\n  min_score: 70\nplugins:\n  enabled: [core]\n",
	})

	cfg, err := prepareConfig(validConfig(t), "", &RunOptionsScan{}, root, parsedFlags(t))
	require.NoError(t, err)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format)
	assert.Equal(t, 70, cfg.Output.MinScore)
	assert.Equal(t, []string{"core"}, cfg.Plugins.Enabled)

	// an explicit configuration wins over the project file
	cfg, err = prepareConfig(validConfig(t), "custom.yml", &RunOptionsScan{}, root, parsedFlags(t))
	require.NoError(t, err)
	assert.Equal(t, config.FormatText, cfg.Output.Format)
}

func TestRunScan(t *testing.T) {
	root := writeProject(t, project)
	cfg := validConfig(t)

	outcome, err := runScan(context.Background(), cfg, hclog.NewNullLogger(), root, "", "1.2.3")
	require.NoError(t, err)

	result := outcome.Result
	assert.Equal(t, "1.2.3", result.Metadata.Version)
	assert.Equal(t, "storefront", result.Metadata.Project.Name)
	assert.NotContains(t, result.FileAnalyses, "node_modules/left-pad/index.js")
	require.Len(t, result.CompoundFindings, 1)
	assert.Equal(t, "core:unguarded-raw-query", result.CompoundFindings[0].RuleID)
	assert.Less(t, result.Score.Overall, 100)
	assert.Nil(t, outcome.Baseline)

	var previous bytes.Buffer
	require.NoError(t, report.WriteJSON(&previous, result))
	baseline := filepath.Join(t.TempDir(), "previous.json")
	require.NoError(t, os.WriteFile(baseline, previous.Bytes(), 0o644))

	again, err := runScan(context.Background(), cfg, hclog.NewNullLogger(), root, baseline, "1.2.3")
	require.NoError(t, err)
	require.NotNil(t, again.Baseline)
	assert.Equal(t, issuecorrelation.Summary{Known: len(result.Findings)}, *again.Baseline)
	for _, f := range again.Result.Findings {
		assert.Equal(t, issuecorrelation.StatusKnown, f.Metadata[issuecorrelation.MetadataKey])
	}
}

func TestRunScanUnknownPlugin(t *testing.T) {
	cfg := validConfig(t)
	cfg.Plugins.Enabled = []string{"django"}

	_, err := runScan(context.Background(), cfg, hclog.NewNullLogger(), writeProject(t, project), "", "dev")
	assert.ErrorContains(t, err, "unknown plugins enabled: django")
}

func TestRunScanSkipsBrokenRulePack(t *testing.T) {
	cfg := validConfig(t)
	cfg.Plugins.RulePacks = []string{filepath.Join(t.TempDir(), "missing-pack")}

	outcome, err := runScan(context.Background(), cfg, hclog.NewNullLogger(), writeProject(t, project), "", "dev")
	require.NoError(t, err)

	var skipped []string
	for _, a := range outcome.Result.Metadata.Analyzers {
		if !a.Ran {
			skipped = append(skipped, a.Name)
		}
	}
	assert.Equal(t, []string{"missing-pack"}, skipped)
}

func TestWriteReportToDirectory(t *testing.T) {
	cfg := validConfig(t)
	cfg.Output.Format = config.FormatSarif
	cfg.Output.Path = filepath.Join(t.TempDir(), "reports")

	outcome, err := runScan(context.Background(), validConfig(t), hclog.NewNullLogger(), writeProject(t, project), "", "dev")
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, writeReport(&stdout, cfg, hclog.NewNullLogger(), outcome))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(filepath.Join(cfg.Output.Path, "brakit-report.sarif"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"core:unguarded-raw-query"`)
}

func TestWriteReportToStdout(t *testing.T) {
	outcome, err := runScan(context.Background(), validConfig(t), hclog.NewNullLogger(), writeProject(t, project), "", "dev")
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, writeReport(&stdout, validConfig(t), hclog.NewNullLogger(), outcome))
	assert.Contains(t, stdout.String(), "Compound findings")
}
