package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func initRepo(t *testing.T, files map[string]string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFiles(t, dir, files)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for path := range files {
		_, err := wt.Add(path)
		require.NoError(t, err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/acme/storefront.git"},
	})
	require.NoError(t, err)
	return dir, hash.String()
}

func TestCollectRepositoryMetadata(t *testing.T) {
	dir, hash := initRepo(t, map[string]string{"web/package.json": "{}"})

	md, err := CollectRepositoryMetadata(filepath.Join(dir, "web"))
	require.NoError(t, err)

	require.NotNil(t, md.CommitHash)
	assert.Equal(t, hash, *md.CommitHash)
	require.NotNil(t, md.BranchName)
	assert.Equal(t, "master", *md.BranchName)
	require.NotNil(t, md.RepositoryFullName)
	assert.Equal(t, "acme/storefront", *md.RepositoryFullName)
	assert.Equal(t, "web", md.Subfolder)
}

func TestCollectRepositoryMetadataOutsideRepository(t *testing.T) {
	dir := t.TempDir()

	md, err := CollectRepositoryMetadata(dir)
	assert.Error(t, err)
	require.NotNil(t, md)
	assert.Nil(t, md.CommitHash)

	_, err = CollectRepositoryMetadata("")
	assert.Error(t, err)
}

func TestParseRemote(t *testing.T) {
	name, host := parseRemote("git@github.com:acme/storefront.git")
	assert.Equal(t, "acme/storefront", name)
	assert.Equal(t, "github.com", host)

	name, host = parseRemote("/srv/git/storefront.git")
	assert.Equal(t, "/srv/git/storefront", name)
	assert.Empty(t, host)
}

func TestIgnoreMatcher(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		".gitignore":       "dist/\n*.log\n",
		"app/.gitignore":   "generated.ts\n",
		"app/page.tsx":     "",
		"app/generated.ts": "",
		"dist/bundle.js":   "",
		"server/debug.log": "",
	})

	m, err := LoadIgnoreMatcher(dir)
	require.NoError(t, err)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"dist", true, true},
		{"server/debug.log", false, true},
		{"app/generated.ts", false, true},
		{"app/page.tsx", false, false},
		{"generated.ts", false, false},
		{".", true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Ignored(tt.path, tt.isDir), tt.path)
	}

	var none *IgnoreMatcher
	assert.False(t, none.Ignored("dist", true))
}
