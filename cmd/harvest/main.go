// Package main provides the CLI entry point for harvest.
//
// harvest runs a pipeline of tools that transform a source tree,
// coordinating through a shared, versioned intermediate representation
// until no tool has anything left to do.
//
// Usage:
//
//	harvest [flags] <input-dir>
//	harvest -output OUT -config-file harvest.toml ./src
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/ternarybob/arbor"

	"github.com/foundryrun/harvest/internal/logger"
	"github.com/foundryrun/harvest/internal/mcpsrv"
	"github.com/foundryrun/harvest/internal/status"
	"github.com/foundryrun/harvest/internal/watch"
	"github.com/foundryrun/harvest/pkg/core"
	"github.com/foundryrun/harvest/pkg/pipeline"
	"github.com/foundryrun/harvest/pkg/repr"
	"github.com/foundryrun/harvest/pkg/tools/buildcheck"
	"github.com/foundryrun/harvest/pkg/tools/llmconvert"
	"github.com/foundryrun/harvest/pkg/tools/projectkind"
	"github.com/foundryrun/harvest/pkg/tools/sourceload"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "harvest: %v\n", err)
		os.Exit(1)
	}
}

func buildRegistry() *pipeline.Registry {
	reg := pipeline.NewRegistry()
	reg.Register("load_raw_source", sourceload.New)
	reg.Register("identify_project_kind", projectkind.New)
	reg.Register("raw_source_to_generated_package", llmconvert.New)
	reg.Register("build_generated_package", buildcheck.New)
	return reg
}

func run(args []string) error {
	if len(args) > 0 && (args[0] == "-version" || args[0] == "--version" || args[0] == "version") {
		fmt.Printf("harvest version %s\n", version)
		return nil
	}

	fs := flag.NewFlagSet("harvest", flag.ContinueOnError)
	flags, err := pipeline.ParseFlags(fs, args)
	if err != nil {
		return err
	}

	if flags.PrintConfig {
		fmt.Println(pipeline.UserConfigPath())
		return nil
	}

	cfg, err := pipeline.LoadLayeredConfig(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Input == "" {
		return fmt.Errorf("no input directory given (pass -input or a positional argument)")
	}
	if cfg.Output != "" {
		if entries, err := os.ReadDir(cfg.Output); err == nil && len(entries) > 0 {
			if !cfg.Force {
				return fmt.Errorf("output directory %s is not empty (pass -force to wipe it)", cfg.Output)
			}
			for _, e := range entries {
				if err := os.RemoveAll(filepath.Join(cfg.Output, e.Name())); err != nil {
					return fmt.Errorf("wipe output directory: %w", err)
				}
			}
		}
	}

	// Harden the default file-creation mode before anything writes to
	// the output or diagnostics directories, the way a long-running
	// daemon hardens its umask before accepting external input.
	unix.Umask(0o077)

	log := logger.GetLogger()
	log.Info().Str("input", cfg.Input).Str("output", cfg.Output).Msg("starting harvest pipeline")

	reg := buildRegistry()
	view := status.NewView(cfg.DiagnosticsDir)

	var statusSrv *http.Server
	if cfg.Status.Addr != "" {
		statusSrv = &http.Server{Addr: cfg.Status.Addr, Handler: status.NewServer(cfg, view).Handler()}
		go func() {
			if err := statusSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn().Err(err).Msg("status server stopped")
			}
		}()
		log.Info().Str("addr", cfg.Status.Addr).Msg("status server listening")
	}

	if cfg.MCP.Enabled {
		mcpServer := mcpsrv.NewServer(cfg, reg, view)
		go func() {
			if err := mcpServer.ServeStdio(); err != nil {
				log.Warn().Err(err).Msg("mcp server stopped")
			}
		}()
		log.Info().Msg("mcp server listening on stdio")
	}

	runOnce := func() (pipeline.Result, error) {
		tools, err := reg.Build(cfg, reg.SortedNames())
		if err != nil {
			return pipeline.Result{}, fmt.Errorf("build tool set: %w", err)
		}
		return pipeline.Run(cfg, tools)
	}

	if cfg.Watch.Enabled {
		return runWatching(cfg, view, runOnce, log)
	}

	result, err := runOnce()
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	view.Store(result.IR, result.IRVersion)
	log.Info().Uint64("ir_version", result.IRVersion).Int("entries", result.IR.Len()).Msg("pipeline complete")

	if !buildSucceeded(result) {
		return fmt.Errorf("pipeline completed but the generated package did not build; see %s", result.Diagnostics.Dir)
	}
	return nil
}

// runWatching runs the pipeline once up front, then re-runs it every
// time the input directory settles after a change, until interrupted.
// Each run's result is published to view so the status/MCP servers
// stay current; errors are logged rather than fatal, since a bad edit
// to the input tree shouldn't kill a long-running watch session.
func runWatching(cfg *core.Config, view *status.View, runOnce func() (pipeline.Result, error), log arbor.ILogger) error {
	trigger := func() {
		result, err := runOnce()
		if err != nil {
			log.Error().Err(err).Msg("pipeline run failed")
			return
		}
		view.Store(result.IR, result.IRVersion)
		log.Info().Uint64("ir_version", result.IRVersion).Int("entries", result.IR.Len()).Msg("pipeline run complete")
	}

	trigger()

	w, err := watch.New(cfg.Input, cfg.Watch.DebounceMs, trigger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	log.Info().Str("input", cfg.Input).Msg("watching for changes (ctrl-c to stop)")
	select {}
}

// buildSucceeded implements the pipeline-level success criterion left
// to the embedder: a BuildResult representation is present and its
// build succeeded.
func buildSucceeded(result pipeline.Result) bool {
	builds := core.ByType[repr.BuildResult](result.IR)
	if len(builds) == 0 {
		return false
	}
	return builds[len(builds)-1].Repr.OK
}
