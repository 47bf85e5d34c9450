package diagnostics

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/foundryrun/harvest/internal/logger"
)

// ToolReporter is the per-run diagnostics handle passed to a tool's Run
// via core.RunContext.Reporter. It implements core.ToolReporter.
// Ported from tool_reporter.rs's ToolReporter/RunShared, with the
// tracing Dispatch fan-out replaced by direct, mutex-serialized writes
// to this run's messages file and the collector's global messages file
// (see the package doc comment for why).
type ToolReporter struct {
	collector   *Collector
	runID       string
	runDir      string
	mu          sync.Mutex
	runMessages *os.File
	globalLog   *os.File
	closed      bool
}

// RunDir returns steps/{tool}_{run:03}/, already created.
func (t *ToolReporter) RunDir() string {
	return t.runDir
}

// Logf appends a formatted line (timestamped) to this run's messages
// file and the collector's global messages file, and echoes it through
// the ambient logger so it also reaches console/file/memory writers
// per the configured log filter — the Go realization of "fans out to
// three sinks" from spec.md §4.8.
func (t *ToolReporter) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	stamped := fmt.Sprintf("%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339Nano), t.runID, line)

	t.mu.Lock()
	_, _ = t.runMessages.WriteString(stamped)
	t.mu.Unlock()

	t.collector.messagesMu.Lock()
	_, _ = t.collector.messagesFile.WriteString(stamped)
	t.collector.messagesMu.Unlock()

	logger.GetLogger().Info().Str("tool_run", t.runID).Msg(line)
}

// close releases this reporter's resources. Idempotent. Called by the
// runner once after a tool's Run returns (successfully, with an error,
// or via a recovered panic), standing in for RunShared's Drop impl —
// Go has no destructors, so the runner must call this explicitly.
func (t *ToolReporter) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	_ = t.runMessages.Close()
	t.collector.wg.Done()
}

// ToolJoiner ends a tool run's ToolReporter. Ported from
// ToolJoiner::join, simplified: since this implementation does not hand
// out additional cloned reporters to tool-spawned goroutines (see
// SPEC_FULL.md §2.1), joining here means making sure the one
// ToolReporter the runner owns is closed; nothing is waited for.
type ToolJoiner struct {
	tr *ToolReporter
}

// Join closes the tool run's ToolReporter if it is still open. It does
// not block.
func (j *ToolJoiner) Join() {
	j.tr.mu.Lock()
	closed := j.tr.closed
	j.tr.mu.Unlock()
	if !closed {
		// The runner always calls close() synchronously right after
		// tool.Run returns and before invoking Join, so this branch is
		// unreachable in practice; it's kept defensive rather than
		// assumed away.
		j.tr.close()
	}
}

// Close is the exported trigger the runner calls after a tool's Run
// returns, before calling Join.
func (j *ToolJoiner) Close() {
	j.tr.close()
}
