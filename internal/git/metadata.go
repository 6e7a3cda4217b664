package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5"
)

// RepositoryMetadata describes the git checkout a scanned project lives in.
type RepositoryMetadata struct {
	BranchName         *string `json:"branch,omitempty"`
	CommitHash         *string `json:"commit,omitempty"`
	RepositoryFullName *string `json:"repository,omitempty"`
	Host               *string `json:"host,omitempty"`
	Subfolder          string  `json:"subfolder,omitempty"`
	RepoRootFolder     string  `json:"root"`
}

// CollectRepositoryMetadata inspects the repository enclosing sourceFolder.
// A partially filled value is returned together with any error so callers may still use it.
func CollectRepositoryMetadata(sourceFolder string) (*RepositoryMetadata, error) {
	if sourceFolder == "" {
		return &RepositoryMetadata{}, fmt.Errorf("source folder is not set")
	}

	if absSource, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = absSource
	}

	md := &RepositoryMetadata{
		RepoRootFolder: filepath.Clean(sourceFolder),
	}

	repoRootFolder, err := findGitRepositoryPath(sourceFolder)
	if err != nil {
		return md, err
	}
	md.RepoRootFolder = filepath.Clean(repoRootFolder)

	repo, err := git.PlainOpen(repoRootFolder)
	if err != nil {
		return md, fmt.Errorf("failed to open repository: %w", err)
	}

	if rel, err := filepath.Rel(repoRootFolder, sourceFolder); err == nil && rel != "." {
		md.Subfolder = filepath.ToSlash(rel)
	}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			branchName := head.Name().Short()
			md.BranchName = &branchName
		}
		hash := head.Hash().String()
		md.CommitHash = &hash
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			fullName, host := parseRemote(cfg.URLs[0])
			md.RepositoryFullName = &fullName
			if host != "" {
				md.Host = &host
			}
		}
	}

	return md, nil
}

// parseRemote extracts "owner/name" and the host from a remote URL. Remotes go-vcsurl
// does not understand fall back to the raw URL without its ".git" suffix.
func parseRemote(remote string) (fullName, host string) {
	info, err := vcsurl.Parse(remote)
	if err != nil || info.FullName == "" {
		return strings.TrimSuffix(remote, ".git"), ""
	}
	return info.FullName, string(info.Host)
}
