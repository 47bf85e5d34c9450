// Package diagnostics implements the engine's diagnostics collector:
// it owns the on-disk diagnostics directory, routes structured log
// events to the right per-run files, numbers tool runs, and persists
// IR snapshots. Ported from core/src/diagnostics/{mod,tool_reporter}.rs,
// using the ambient arbor logger (internal/logger) in place of the
// original's tracing Registry/Dispatch/EnvFilter machinery — Go has no
// thread-local dispatch to install, so routing to a run's own messages
// file is done by writing to it directly from ToolReporter.Logf rather
// than by swapping out a global subscriber (see design notes in
// SPEC_FULL.md §2.1).
package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/foundryrun/harvest/internal/logger"
	"github.com/foundryrun/harvest/pkg/core"
)

// ErrEmptyDir is returned by New when the requested diagnostics
// directory is non-empty and Force is false, or is not writable.
// Ported from core/src/utils.rs's EmptyDirError.
var ErrEmptyDir = errors.New("diagnostics: directory is non-empty and not forced, or not writable")

// Diagnostics is the aggregated record handed back once a Collector is
// closed. Kept intentionally small, matching the original's near-empty
// struct: on-disk artifacts are the primary record; this is a hook for
// future in-memory summaries (e.g. tool invocation results).
type Diagnostics struct {
	Dir string
}

// Collector owns the diagnostics directory for one pipeline run.
type Collector struct {
	mu             sync.Mutex
	dir            string
	tempDir        string // non-empty if dir was auto-created and should be removed on Close
	messagesFile   *os.File
	messagesMu     sync.Mutex // serializes writes to messagesFile
	toolRunCounts  map[string]uint64
	wg             sync.WaitGroup // outstanding ToolReporters
}

// New sets up a diagnostics directory for cfg and wires the ambient
// logger to also append to its global messages file. If
// cfg.DiagnosticsDir is empty, a temporary directory is created and
// will be removed by Close. If it is set, it must be empty (or Force
// must be true), matching the empty_writable_dir check in the original.
func New(cfg *core.Config) (*Collector, error) {
	dir, tempDir, err := resolveDir(cfg)
	if err != nil {
		return nil, err
	}

	for _, sub := range []string{"ir", "steps"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, err
		}
	}

	messagesPath := filepath.Join(dir, "messages")
	f, err := os.OpenFile(messagesPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	logger.Setup(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}, messagesPath)

	return &Collector{
		dir:           dir,
		tempDir:       tempDir,
		messagesFile:  f,
		toolRunCounts: map[string]uint64{},
	}, nil
}

func resolveDir(cfg *core.Config) (dir, tempDir string, err error) {
	if cfg.DiagnosticsDir == "" {
		tmp, err := os.MkdirTemp("", "harvest-diagnostics-")
		if err != nil {
			return "", "", err
		}
		return tmp, tmp, nil
	}

	if err := emptyWritableDir(cfg.DiagnosticsDir, cfg.Force); err != nil {
		return "", "", err
	}
	return cfg.DiagnosticsDir, "", nil
}

// emptyWritableDir ensures path exists, is a directory, is writable,
// and is empty — wiping its contents first if force is true. Ported
// from core/src/utils.rs::empty_writable_dir.
func emptyWritableDir(path string, force bool) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(path, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrEmptyDir, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		if !force {
			return fmt.Errorf("%w: %s is not empty", ErrEmptyDir, path)
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(path, e.Name())); err != nil {
				return err
			}
		}
	}

	probe := filepath.Join(path, ".harvest-write-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return fmt.Errorf("%w: %s", ErrEmptyDir, err)
	}
	return os.Remove(probe)
}

// Dir returns the diagnostics root directory.
func (c *Collector) Dir() string {
	return c.dir
}

// Reporter returns a handle for reporting IR versions and starting tool
// runs against this Collector.
func (c *Collector) Reporter() *Reporter {
	return &Reporter{c: c}
}

// Close waits for every outstanding ToolReporter to be closed, flushes
// the global messages file, removes the temp dir if one was created,
// and returns the aggregated Diagnostics record.
func (c *Collector) Close() Diagnostics {
	c.wg.Wait()
	_ = c.messagesFile.Close()
	logger.Stop()
	if c.tempDir != "" {
		_ = os.RemoveAll(c.tempDir)
	}
	return Diagnostics{Dir: c.dir}
}

// Reporter reports diagnostics against one Collector: IR version
// snapshots and new tool runs.
type Reporter struct {
	c *Collector
}

// ReportIRVersion materializes every representation in snapshot under
// ir/{version:03}/{id:03}, plus a sorted index file mapping each
// zero-padded id to its representation's name.
func (r *Reporter) ReportIRVersion(version uint64, snapshot *core.HarvestIR) {
	dir := filepath.Join(r.c.dir, "ir", fmt.Sprintf("%03d", version))
	if err := os.Mkdir(dir, 0o755); err != nil {
		logger.GetLogger().Error().Err(err).Uint64("version", version).Msg("failed to create IR version directory")
		return
	}

	pairs := snapshot.Iter()
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })

	var index []string
	for _, p := range pairs {
		idStr := fmt.Sprintf("%03d", uint64(p.ID))
		path := filepath.Join(dir, idStr)
		if err := p.Repr.Materialize(path); err != nil {
			logger.GetLogger().Error().Err(err).Str("id", idStr).Msg("failed to materialize representation")
		}
		index = append(index, fmt.Sprintf("%s: %s", idStr, p.Repr.Name()))
	}

	indexPath := filepath.Join(dir, "index")
	content := ""
	for _, line := range index {
		content += line + "\n"
	}
	if err := os.WriteFile(indexPath, []byte(content), 0o644); err != nil {
		logger.GetLogger().Error().Err(err).Msg("failed to write IR index")
	}
}

// StartToolRun begins a new run for tool, allocating its run number,
// creating its step directory, and returning a joiner plus the
// per-run reporter handed to the tool in its RunContext.
func (r *Reporter) StartToolRun(toolName string) (*ToolJoiner, *ToolReporter, error) {
	r.c.mu.Lock()
	r.c.toolRunCounts[toolName]++
	number := r.c.toolRunCounts[toolName]
	r.c.mu.Unlock()

	runID := fmt.Sprintf("%s_%03d", toolName, number)
	runDir := filepath.Join(r.c.dir, "steps", runID)
	if err := os.Mkdir(runDir, 0o755); err != nil {
		return nil, nil, err
	}

	runMessagesPath := filepath.Join(runDir, "messages")
	runMessages, err := os.OpenFile(runMessagesPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}

	r.c.wg.Add(1)
	tr := &ToolReporter{
		collector:   r.c,
		runID:       runID,
		runDir:      runDir,
		runMessages: runMessages,
		globalLog:   r.c.messagesFile,
	}
	return &ToolJoiner{tr: tr}, tr, nil
}
