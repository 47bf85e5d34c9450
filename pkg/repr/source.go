// Package repr holds the concrete Representation types exchanged
// between the example tools, ported from tools/full_source/src/lib.rs
// (RawSource/CargoPackage) and generalized: CargoPackage becomes
// GeneratedPackage, since this module's buildcheck tool targets `go
// build` rather than Cargo specifically (see DESIGN.md).
package repr

import (
	"github.com/foundryrun/harvest/pkg/core/fs"
)

// RawSource wraps the frozen directory tree loaded from the
// configured input path.
type RawSource struct {
	Dir *fs.RawDir
}

func (RawSource) Name() string { return "raw_source" }

func (r RawSource) String() string {
	return r.Dir.Display(0)
}

func (r RawSource) Materialize(path string) error {
	return r.Dir.Materialize(path)
}

// GeneratedPackage wraps a buildable package tree produced by a
// transformation tool (e.g. llmconvert), ready to materialize to disk
// and attempt a build.
type GeneratedPackage struct {
	Dir *fs.RawDir
}

func (GeneratedPackage) Name() string { return "generated_package" }

func (g GeneratedPackage) String() string {
	return g.Dir.Display(0)
}

func (g GeneratedPackage) Materialize(path string) error {
	return g.Dir.Materialize(path)
}

// ProjectKind classifies what kind of program the raw source
// represents, ported from tools/identify_project_kind/src/lib.rs's
// ProjectKind enum.
type ProjectKind int

const (
	ProjectKindUnknown ProjectKind = iota
	ProjectKindLibrary
	ProjectKindExecutable
)

func (k ProjectKind) Name() string { return "project_kind" }

func (k ProjectKind) String() string {
	switch k {
	case ProjectKindLibrary:
		return "library"
	case ProjectKindExecutable:
		return "executable"
	default:
		return "unknown"
	}
}

func (k ProjectKind) Materialize(path string) error {
	return writeString(path, k.String()+"\n")
}
