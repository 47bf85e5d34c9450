package repr

import (
	"fmt"
	"os"
	"strings"
)

// BuildResult records the outcome of a build attempt, ported from
// tools/try_cargo_build/src/lib.rs's CargoBuildResult: its Materialize
// is a no-op the way the original's is (the build result is
// informational, not a filesystem artifact to reproduce), and its
// String renders success/failure plus any artifact paths.
type BuildResult struct {
	OK        bool
	Artifacts []string
	Output    string
}

func (BuildResult) Name() string { return "build_result" }

func (b BuildResult) String() string {
	var sb strings.Builder
	if b.OK {
		fmt.Fprintf(&sb, "build succeeded, %d artifact(s)\n", len(b.Artifacts))
		for _, a := range b.Artifacts {
			fmt.Fprintf(&sb, "  %s\n", a)
		}
	} else {
		sb.WriteString("build failed\n")
	}
	if b.Output != "" {
		sb.WriteString(b.Output)
	}
	return sb.String()
}

func (BuildResult) Materialize(path string) error {
	return nil
}

func writeString(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
