package pipeline

import (
	"errors"
	"fmt"

	"github.com/foundryrun/harvest/internal/logger"
	"github.com/foundryrun/harvest/pkg/core"
	"github.com/foundryrun/harvest/pkg/core/diagnostics"
)

// Result is what Run returns: the final IR, the diagnostics record, and
// the IR version reached.
type Result struct {
	IR          *core.HarvestIR
	Diagnostics diagnostics.Diagnostics
	IRVersion   uint64
}

// Run is the driver loop — "Harvest" — that glues the scheduler, the
// arbiter, and the runner together. Ported from translate/src/lib.rs's
// transpile(): snapshot, offer each queued tool to MightWrite, spawn
// runnable ones, re-queue TryAgain/IdInUse, drop UnknownId tools with a
// loud log, abort on fatal spawn errors, and loop until quiescent.
func Run(cfg *core.Config, tools []core.Tool) (Result, error) {
	collector, err := diagnostics.New(cfg)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: initialize diagnostics: %w", err)
	}

	arbiter := core.NewArbiter()
	reporter := collector.Reporter()
	runner := NewRunner(reporter, cfg)
	scheduler := NewScheduler()
	for _, t := range tools {
		scheduler.Queue(t)
	}

	var irVersion uint64
	for {
		snapshot := arbiter.Snapshot()

		loopErr := scheduler.NextInvocations(func(tool core.Tool) NextInvocationOutcome {
			switch outcome := tool.MightWrite(core.MightWriteContext{IR: snapshot}).(type) {
			case core.OutcomeNotRunnable:
				return OutcomeDontTryAgain{}
			case core.OutcomeTryAgain:
				return OutcomeTryLater{Tool: tool}
			case core.OutcomeRunnable:
				spawnErr := runner.Spawn(arbiter, tool, snapshot, outcome.IDs)
				if spawnErr == nil {
					return OutcomeDontTryAgain{}
				}
				var se *SpawnError
				if errors.As(spawnErr, &se) {
					switch {
					case errors.Is(se.Kind, core.ErrIDInUse):
						return OutcomeTryLater{Tool: se.Tool}
					case errors.Is(se.Kind, core.ErrUnknownID):
						logger.GetLogger().Error().Str("tool", tool.Name()).Msg("tool declared an unknown id in might_write; dropping tool")
						return OutcomeDontTryAgain{}
					}
				}
				return OutcomeError{Err: spawnErr}
			default:
				return OutcomeDontTryAgain{}
			}
		})
		if loopErr != nil {
			collector.Close()
			return Result{}, fmt.Errorf("pipeline: fatal error during scheduling pass: %w", loopErr)
		}

		if !runner.ProcessCompletions(arbiter, &irVersion) {
			break
		}
	}

	diag := collector.Close()
	return Result{IR: arbiter.Snapshot(), Diagnostics: diag, IRVersion: irVersion}, nil
}
