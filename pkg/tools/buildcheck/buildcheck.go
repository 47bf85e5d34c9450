// Package buildcheck implements the build-attempt tool, ported from
// tools/try_cargo_build/src/lib.rs: it materializes the generated
// package to the configured output directory and validates that it
// builds, generalized from `cargo build --release` to `go build ./...`
// since this module targets Go source trees. Command execution follows
// pkg/orchestra/worker.go's runVerification (teacher): exec.CommandContext
// plus CombinedOutput, no shell-parsing of compiler JSON streams (there
// is no Go-toolchain equivalent of cargo's --message-format=json wired
// up here, so artifact discovery instead lists the files `go build -o`
// leaves in a temporary bin directory; subdirectories are not listed).
package buildcheck

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/foundryrun/harvest/pkg/core"
	"github.com/foundryrun/harvest/pkg/repr"
)

const toolName = "build_generated_package"

// Config configures the build attempt. Decoded from the
// tools.build_generated_package TOML table.
type Config struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BuildArgs      string `toml:"build_args"`
}

func defaultConfig() Config {
	return Config{TimeoutSeconds: 120, BuildArgs: "./..."}
}

// Tool requires exactly one GeneratedPackage representation, the way
// raw_cargo_package in the original requires exactly one CargoPackage:
// zero means TryAgain (nothing to build yet), more than one is a run
// error (ambiguous which package to build).
type Tool struct {
	cfg *core.Config
}

func New(cfg *core.Config) core.Tool {
	return &Tool{cfg: cfg}
}

func (t *Tool) Name() string { return toolName }

func (t *Tool) MightWrite(ctx core.MightWriteContext) core.MightWriteOutcome {
	packages := core.ByType[repr.GeneratedPackage](ctx.IR)
	if len(packages) == 0 {
		return core.OutcomeTryAgain{}
	}
	return core.OutcomeRunnable{IDs: map[core.ID]struct{}{}}
}

func (t *Tool) Run(ctx core.RunContext) error {
	buildCfg := defaultConfig()
	if err := t.cfg.DecodeToolConfig(toolName, &buildCfg); err != nil {
		return fmt.Errorf("buildcheck: decode tool config: %w", err)
	}

	packages := core.ByType[repr.GeneratedPackage](ctx.Snapshot)
	switch len(packages) {
	case 0:
		return fmt.Errorf("buildcheck: no generated_package representation found in IR")
	case 1:
		// expected
	default:
		return fmt.Errorf("buildcheck: found %d generated_package representations, expected exactly 1", len(packages))
	}

	pkg := packages[0].Repr
	outputPath := ctx.Config.Output
	if err := pkg.Dir.Materialize(outputPath); err != nil {
		return fmt.Errorf("buildcheck: materialize generated package: %w", err)
	}

	result, err := t.runGoBuild(outputPath, buildCfg)
	if err != nil {
		return fmt.Errorf("buildcheck: run go build: %w", err)
	}
	ctx.Reporter.Logf("build %s (%d artifact(s))", verdict(result.OK), len(result.Artifacts))
	ctx.Edit.AddRepresentation(result)
	return nil
}

func verdict(ok bool) string {
	if ok {
		return "succeeded"
	}
	return "failed"
}

func (t *Tool) runGoBuild(outputPath string, cfg Config) (repr.BuildResult, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	binDir, err := os.MkdirTemp("", "harvest-buildcheck-*")
	if err != nil {
		return repr.BuildResult{}, fmt.Errorf("make temp bin dir: %w", err)
	}
	defer os.RemoveAll(binDir)

	args := []string{"build", "-o", binDir + string(filepath.Separator)}
	if cfg.BuildArgs != "" {
		args = append(args, cfg.BuildArgs)
	} else {
		args = append(args, "./...")
	}

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = outputPath
	output, runErr := cmd.CombinedOutput()

	if runErr == nil {
		artifacts := listArtifacts(binDir)
		return repr.BuildResult{OK: true, Artifacts: artifacts, Output: string(output)}, nil
	}

	if _, isExit := runErr.(*exec.ExitError); isExit {
		return repr.BuildResult{OK: false, Output: string(output)}, nil
	}
	return repr.BuildResult{}, fmt.Errorf("invoke go build: %w", runErr)
}

func listArtifacts(binDir string) []string {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}
