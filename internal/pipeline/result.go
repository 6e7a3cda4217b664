package pipeline

import (
	"time"

	"github.com/scan-io-git/brakit/internal/git"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/internal/scorer"
	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
	"github.com/scan-io-git/brakit/pkg/shared/plugin"
)

// ScanInput is owned by the caller and only read by the pipeline. Paths are relative to
// RootDir and slash separated.
type ScanInput struct {
	RootDir      string
	FilePaths    []string
	FileContents map[string]string
	Config       *config.Config
	Project      plugin.ProjectContext
}

// AnalyzerStatus records whether an analyzer took part in the scan.
type AnalyzerStatus struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Ran     bool   `json:"ran"`
	Reason  string `json:"reason,omitempty"`
}

type Metadata struct {
	Version     string                  `json:"version"`
	ScanID      string                  `json:"scan_id"`
	RootDir     string                  `json:"root_dir"`
	StartedAt   time.Time               `json:"started_at"`
	DurationMS  int64                   `json:"duration_ms"`
	Analyzers   []AnalyzerStatus        `json:"analyzers"`
	Plugins     []registry.PluginInfo   `json:"plugins"`
	Warnings    []string                `json:"warnings"`
	ImportEdges int                     `json:"import_edges"`
	Project     plugin.ProjectContext   `json:"project"`
	Repository  *git.RepositoryMetadata `json:"repository,omitempty"`
}

// ScanResult is what a scan hands to report writers.
type ScanResult struct {
	Findings         []findings.Finding             `json:"findings"`
	CompoundFindings []findings.CompoundFinding     `json:"compound_findings"`
	FileAnalyses     map[string]plugin.FileAnalysis `json:"file_analyses"`
	Score            scorer.Score                   `json:"score"`
	Metadata         Metadata                       `json:"metadata"`
}
