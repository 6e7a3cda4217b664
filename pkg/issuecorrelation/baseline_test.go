package issuecorrelation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

func TestAnnotate(t *testing.T) {
	baseline := []findings.Finding{
		{ID: "prisma:raw-query:1", PatternID: "prisma:raw-query", FilePath: "lib/users.ts", Line: 4, Fingerprint: "a"},
		{ID: "core:eval-usage:2", PatternID: "core:eval-usage", FilePath: "lib/misc.ts", Line: 6, Fingerprint: "b"},
	}
	current := []findings.Finding{
		{ID: "prisma:raw-query:1", PatternID: "prisma:raw-query", FilePath: "lib/users.ts", Line: 9, Fingerprint: "a", Metadata: map[string]any{"x": 1}},
		{ID: "core:empty-catch:2", PatternID: "core:empty-catch", FilePath: "lib/misc.ts", Line: 5, Fingerprint: "c"},
	}

	got, summary := Annotate(current, baseline)

	require.Len(t, got, 2)
	assert.Equal(t, StatusKnown, got[0].Metadata[MetadataKey])
	assert.Equal(t, "prisma:raw-query:1", got[0].Metadata[MatchedKey])
	assert.Equal(t, 1, got[0].Metadata["x"])
	assert.Equal(t, StatusNew, got[1].Metadata[MetadataKey])
	assert.NotContains(t, got[1].Metadata, MatchedKey)
	assert.Equal(t, Summary{New: 1, Known: 1, Fixed: 1}, summary)

	_, touched := current[0].Metadata[MetadataKey]
	assert.False(t, touched)
	assert.Nil(t, current[1].Metadata)
}

func TestAnnotateRecordsBaselineID(t *testing.T) {
	baseline := []findings.Finding{
		{ID: "core:eval-usage:7", PatternID: "core:eval-usage", FilePath: "a.ts", Line: 3, Fingerprint: "ff"},
	}
	current := []findings.Finding{
		{ID: "core:eval-usage:1", PatternID: "core:eval-usage", FilePath: "a.ts", Line: 12, Fingerprint: "ff"},
		{ID: "core:eval-usage:2", PatternID: "core:eval-usage", FilePath: "b.ts", Line: 3, Fingerprint: "ff"},
	}

	got, summary := Annotate(current, baseline)

	assert.Equal(t, "core:eval-usage:7", got[0].Metadata[MatchedKey])
	assert.Equal(t, StatusNew, got[1].Metadata[MetadataKey])
	assert.Equal(t, Summary{New: 1, Known: 1, Fixed: 0}, summary)
}

func TestLoadBaseline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "previous.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "findings": [{"id": "core:eval-usage:1", "pattern_id": "core:eval-usage", "file_path": "a.ts", "line": 3, "fingerprint": "ff"}],
  "score": {"overall": 90}
}`), 0o644))

	fs, err := LoadBaseline(path)
	require.NoError(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, Issue{ID: "core:eval-usage:1", PatternID: "core:eval-usage", FilePath: "a.ts", Line: 3, Fingerprint: "ff"}, FromFinding(fs[0]))

	_, err = LoadBaseline(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = LoadBaseline(path)
	assert.Error(t, err)
}
