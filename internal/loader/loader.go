// Package loader turns a project directory into the input of a scan.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/brakit/internal/git"
	"github.com/scan-io-git/brakit/internal/parser"
	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/pkg/shared/config"
	"github.com/scan-io-git/brakit/pkg/shared/files"
)

// sniffSize is how much of a file is inspected for NUL bytes.
const sniffSize = 8000

// Loader collects the files of a project according to the scan directive.
type Loader struct {
	logger hclog.Logger
	cfg    *config.Config
	ignore map[string]bool
}

// New creates a Loader. cfg must have passed config.ValidateConfig.
func New(logger hclog.Logger, cfg *config.Config) *Loader {
	ignore := make(map[string]bool, len(cfg.Scan.IgnoreDirs))
	for _, dir := range cfg.Scan.IgnoreDirs {
		ignore[dir] = true
	}
	return &Loader{logger: logger, cfg: cfg, ignore: ignore}
}

// Load walks root and reads every file the scan directive selects. Binary files and files
// above max_file_size are skipped.
func (l *Loader) Load(ctx context.Context, root string) (pipeline.ScanInput, error) {
	if err := files.ValidateDir(root); err != nil {
		return pipeline.ScanInput{}, fmt.Errorf("failed to validate scan root: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return pipeline.ScanInput{}, fmt.Errorf("failed to resolve scan root %q: %w", root, err)
	}

	var matcher *git.IgnoreMatcher
	if config.GetBoolValue(l.cfg, "Scan.RespectGitignore", true) {
		matcher, err = git.LoadIgnoreMatcher(absRoot)
		if err != nil {
			l.logger.Warn("gitignore patterns could not be read, continuing without them", "error", err)
		}
	}

	input := pipeline.ScanInput{
		RootDir:      absRoot,
		FileContents: make(map[string]string),
		Config:       l.cfg,
	}

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			l.logger.Debug("skipping unreadable path", "path", p, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := files.RelSlash(absRoot, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if l.ignore[d.Name()] || matcher.Ignored(rel, true) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Ignored(rel, false) || !l.selected(rel) {
			return nil
		}

		content, ok := l.read(p, rel, d)
		if !ok {
			return nil
		}
		input.FilePaths = append(input.FilePaths, rel)
		input.FileContents[rel] = content
		return nil
	})
	if err != nil {
		return pipeline.ScanInput{}, err
	}

	sort.Strings(input.FilePaths)
	input.Project = readProject(absRoot, input.FilePaths, l.logger)
	l.logger.Debug("project loaded", "root", absRoot, "files", len(input.FilePaths))
	return input, nil
}

// selected applies the include and exclude globs. An empty include list selects everything.
func (l *Loader) selected(rel string) bool {
	for _, glob := range l.cfg.Scan.Exclude {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return false
		}
	}
	if len(l.cfg.Scan.Include) == 0 {
		return true
	}
	for _, glob := range l.cfg.Scan.Include {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

func (l *Loader) read(p, rel string, d fs.DirEntry) (string, bool) {
	info, err := d.Info()
	if err != nil {
		l.logger.Debug("skipping file without info", "file", rel, "error", err)
		return "", false
	}
	if info.Size() > l.cfg.Scan.MaxFileSize {
		l.logger.Debug("skipping large file", "file", rel, "size", info.Size())
		return "", false
	}

	data, err := os.ReadFile(p)
	if err != nil {
		l.logger.Warn("failed to read file", "file", rel, "error", err)
		return "", false
	}
	if isBinary(data) && !parser.Supported(rel) {
		return "", false
	}
	return string(data), true
}

func isBinary(data []byte) bool {
	if len(data) > sniffSize {
		data = data[:sniffSize]
	}
	return bytes.IndexByte(data, 0) >= 0
}

func isTypeScript(rel string) bool {
	switch path.Ext(rel) {
	case ".ts", ".tsx", ".mts", ".cts":
		return true
	}
	return false
}
