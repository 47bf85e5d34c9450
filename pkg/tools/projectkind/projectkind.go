// Package projectkind implements the project-kind-classification tool,
// ported from tools/identify_project_kind/src/lib.rs. The original
// scans for a CMakeLists.txt's add_executable/add_library directive;
// this module targets Go source trees, so it scans every *.go file in
// the tree, subdirectories included, for a `package main` declaration
// instead.
package projectkind

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/foundryrun/harvest/pkg/core"
	harvestfs "github.com/foundryrun/harvest/pkg/core/fs"
	"github.com/foundryrun/harvest/pkg/repr"
)

// Tool classifies the most recently loaded RawSource as Library or
// Executable, or NotRunnable if the source contains no Go files at all
// — the one shipped demonstration of the NotRunnable outcome (see
// SPEC_FULL.md §11; the original never emits it anywhere).
type Tool struct{}

// New constructs a projectkind.Tool. It takes no config.
func New(cfg *core.Config) core.Tool {
	return &Tool{}
}

func (t *Tool) Name() string { return "identify_project_kind" }

func (t *Tool) MightWrite(ctx core.MightWriteContext) core.MightWriteOutcome {
	sources := core.ByType[repr.RawSource](ctx.IR)
	if len(sources) == 0 {
		return core.OutcomeTryAgain{}
	}
	if !hasGoFile(sources[len(sources)-1].Repr.Dir.FilesRecursive()) {
		return core.OutcomeNotRunnable{}
	}
	return core.OutcomeRunnable{IDs: map[core.ID]struct{}{}}
}

func hasGoFile(files []harvestfs.FileEntry) bool {
	for _, f := range files {
		if strings.HasSuffix(f.Path, ".go") {
			return true
		}
	}
	return false
}

func (t *Tool) Run(ctx core.RunContext) error {
	sources := core.ByType[repr.RawSource](ctx.Snapshot)
	if len(sources) == 0 {
		return nil
	}
	dir := sources[len(sources)-1].Repr.Dir

	kind := repr.ProjectKindLibrary
	for _, f := range dir.FilesRecursive() {
		if !strings.HasSuffix(f.Path, ".go") {
			continue
		}
		if declaresPackageMain(f.Contents) {
			kind = repr.ProjectKindExecutable
			break
		}
	}

	ctx.Reporter.Logf("classified project as %s", kind.String())
	ctx.Edit.AddRepresentation(kind)
	return nil
}

// declaresPackageMain reports whether contents' first non-comment,
// non-blank line is "package main".
func declaresPackageMain(contents []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		return line == "package main"
	}
	return false
}
