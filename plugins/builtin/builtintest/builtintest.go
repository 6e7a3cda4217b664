// Package builtintest runs plugins over in-memory projects in tests.
package builtintest

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

// Scan resolves plugins and scans files, keyed by root-relative path.
func Scan(t testing.TB, files map[string]string, plugins ...plugin.Plugin) *pipeline.ScanResult {
	t.Helper()

	reg, err := registry.Resolve(plugins...)
	require.NoError(t, err)

	input := pipeline.ScanInput{FileContents: files}
	for p := range files {
		input.FilePaths = append(input.FilePaths, p)
	}
	result, err := pipeline.New(hclog.NewNullLogger(), reg, pipeline.Options{Workers: 2}).Run(context.Background(), input)
	require.NoError(t, err)
	return result
}

// Hit is the comparable part of a finding.
type Hit struct {
	PatternID string
	FilePath  string
	Line      int
}

func Hits(fs []findings.Finding) []Hit {
	out := make([]Hit, 0, len(fs))
	for _, f := range fs {
		out = append(out, Hit{PatternID: f.PatternID, FilePath: f.FilePath, Line: f.Line})
	}
	return out
}
