package pipeline

import (
	"errors"
	"fmt"

	"github.com/foundryrun/harvest/pkg/core"
	"github.com/foundryrun/harvest/pkg/core/diagnostics"
)

// SpawnError is returned by Runner.Spawn when a tool could not be
// launched. Tool is populated (so the caller can re-queue it) when Kind
// comes from Arbiter.NewEdit (IdInUse or UnknownId); it is nil for
// diagnostics errors, mirroring translate/src/runner.rs's
// Result<(), (SpawnToolError, Box<dyn Tool>)>.
type SpawnError struct {
	Kind error // one of core.ErrIDInUse, core.ErrUnknownID, or an io error
	Tool core.Tool
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("pipeline: spawn failed: %v", e.Kind)
}

func (e *SpawnError) Unwrap() error { return e.Kind }

type invocation struct {
	edit    *core.Edit
	joiner  *diagnostics.ToolJoiner
	reporter *diagnostics.ToolReporter
	done    chan result
}

type result struct {
	edit *core.Edit // nil on tool error/panic
}

// Runner spawns runnable tools on worker goroutines, wires each to the
// diagnostics collector, gathers results, and commits successful edits.
// Ported from translate/src/runner.rs's ToolRunner.
type Runner struct {
	reporter *diagnostics.Reporter
	config   *core.Config
	inFlight []*invocation
	done     chan *invocation
}

// NewRunner constructs a Runner reporting through reporter, passing cfg
// to every tool's RunContext.
func NewRunner(reporter *diagnostics.Reporter, cfg *core.Config) *Runner {
	return &Runner{
		reporter: reporter,
		config:   cfg,
		done:     make(chan *invocation, 64),
	}
}

// Spawn asks arbiter for an Edit over mightWrite and, on success,
// launches tool.Run on a new goroutine. On ErrIDInUse the tool is
// handed back in the returned *SpawnError for the caller to re-queue.
// On ErrUnknownID the caller should drop the tool (a tool bug). Any
// other error (currently only diagnostics I/O errors from StartToolRun)
// is fatal to the driver.
func (r *Runner) Spawn(arbiter *core.Arbiter, tool core.Tool, snapshot *core.HarvestIR, mightWrite map[core.ID]struct{}) error {
	edit, err := arbiter.NewEdit(mightWrite)
	if err != nil {
		return &SpawnError{Kind: err, Tool: tool}
	}

	joiner, reporter, err := r.reporter.StartToolRun(tool.Name())
	if err != nil {
		edit.Discard()
		return &SpawnError{Kind: fmt.Errorf("start tool run: %w", err)}
	}

	inv := &invocation{edit: edit, joiner: joiner, reporter: reporter, done: make(chan result, 1)}
	r.inFlight = append(r.inFlight, inv)

	go r.runWorker(tool, inv, snapshot)
	return nil
}

func (r *Runner) runWorker(tool core.Tool, inv *invocation, snapshot *core.HarvestIR) {
	var res result
	func() {
		defer func() {
			if p := recover(); p != nil {
				inv.reporter.Logf("tool panicked: %v", p)
				res.edit = nil
				inv.edit.Discard()
			}
		}()

		err := tool.Run(core.RunContext{
			Edit:     inv.edit,
			Snapshot: snapshot,
			Config:   r.config,
			Reporter: inv.reporter,
		})
		if err != nil {
			inv.reporter.Logf("tool returned error: %v", err)
			res.edit = nil
			inv.edit.Discard()
			return
		}
		res.edit = inv.edit
	}()

	inv.joiner.Close()
	inv.joiner.Join()

	inv.done <- res
	r.done <- inv
}

// ProcessCompletions blocks until at least one in-flight invocation has
// finished, drains any others that are already ready, commits every
// successful edit to arbiter (bumping the IR version and persisting a
// snapshot on each success), and returns true. Returns false without
// blocking if there are no in-flight invocations.
func (r *Runner) ProcessCompletions(arbiter *core.Arbiter, irVersion *uint64) bool {
	if len(r.inFlight) == 0 {
		return false
	}

	finished := []*invocation{<-r.done}
drain:
	for {
		select {
		case inv := <-r.done:
			finished = append(finished, inv)
		default:
			break drain
		}
	}

	for _, inv := range finished {
		r.removeInFlight(inv)
		res := <-inv.done

		if res.edit == nil {
			continue
		}
		if err := arbiter.Apply(res.edit); err != nil {
			if !errors.Is(err, core.ErrWrongArbiter) {
				continue
			}
			continue
		}
		*irVersion++
		r.reporter.ReportIRVersion(*irVersion, arbiter.Snapshot())
	}

	return true
}

func (r *Runner) removeInFlight(inv *invocation) {
	for i, other := range r.inFlight {
		if other == inv {
			r.inFlight = append(r.inFlight[:i], r.inFlight[i+1:]...)
			return
		}
	}
}
