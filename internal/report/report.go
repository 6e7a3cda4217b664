// Package report writes scan results in the formats the CLI offers.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/brakit/internal/pipeline"
	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/internal/sarif"
	"github.com/scan-io-git/brakit/pkg/issuecorrelation"
	"github.com/scan-io-git/brakit/pkg/shared/config"
)

// Options tune the writers. Zero values are usable.
type Options struct {
	Format   string                    // text, json or sarif; empty means text
	Top      int                       // findings listed by the text summary, 0 means DefaultTop
	Baseline *issuecorrelation.Summary // printed by the text summary when set
}

// Write renders result to w in the requested format.
func Write(w io.Writer, logger hclog.Logger, result *pipeline.ScanResult, reg *registry.Registry, opts Options) error {
	switch config.SetThen(opts.Format, config.FormatText) {
	case config.FormatJSON:
		return WriteJSON(w, result)
	case config.FormatSarif:
		report, err := sarif.FromScanResult(logger, result, reg)
		if err != nil {
			return err
		}
		return report.Write(w)
	case config.FormatText:
		return WriteText(w, result, opts)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// WriteJSON encodes the whole result. The output is the input format of --baseline.
func WriteJSON(w io.Writer, result *pipeline.ScanResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scan result: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write scan result: %w", err)
	}
	return nil
}
