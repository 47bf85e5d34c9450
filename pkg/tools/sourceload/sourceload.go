// Package sourceload implements the source-loading tool, ported from
// tools/load_raw_source/src/lib.rs: it reads the configured input
// directory into a frozen RawDir tree and adds it to the IR as a
// RawSource representation.
package sourceload

import (
	"github.com/foundryrun/harvest/pkg/core"
	"github.com/foundryrun/harvest/pkg/core/fs"
	"github.com/foundryrun/harvest/pkg/repr"
)

// Tool loads Directory into the IR exactly once: its MightWrite is
// always Runnable({}), matching the original (this tool has no
// preconditions beyond the directory existing).
type Tool struct {
	Directory string
}

// New constructs a sourceload.Tool reading from cfg.Input.
func New(cfg *core.Config) core.Tool {
	return &Tool{Directory: cfg.Input}
}

func (t *Tool) Name() string { return "load_raw_source" }

func (t *Tool) MightWrite(ctx core.MightWriteContext) core.MightWriteOutcome {
	return core.OutcomeRunnable{IDs: map[core.ID]struct{}{}}
}

func (t *Tool) Run(ctx core.RunContext) error {
	dir, numDirs, numFiles, err := fs.PopulateFrom(t.Directory)
	if err != nil {
		return err
	}
	ctx.Reporter.Logf("loaded %d directories, %d files from %s", numDirs, numFiles, t.Directory)
	ctx.Edit.AddRepresentation(repr.RawSource{Dir: dir})
	return nil
}
