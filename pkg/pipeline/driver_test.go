package pipeline

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foundryrun/harvest/pkg/core"
)

func newTestRunConfig(t *testing.T) *core.Config {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.DiagnosticsDir = filepath.Join(t.TempDir(), "diag")
	cfg.Logging.Output = []string{"memory"}
	return cfg
}

// conditionalTool is runnable once gate(snapshot) returns true, and
// TryAgain otherwise — used to model a tool waiting on another tool's
// output, exercising the scheduler's requeue path end to end.
type conditionalTool struct {
	name string
	gate func(*core.HarvestIR) bool
	run  func(core.RunContext) error
}

func (c conditionalTool) Name() string { return c.name }
func (c conditionalTool) MightWrite(ctx core.MightWriteContext) core.MightWriteOutcome {
	if !c.gate(ctx.IR) {
		return core.OutcomeTryAgain{}
	}
	return core.OutcomeRunnable{}
}
func (c conditionalTool) Run(ctx core.RunContext) error { return c.run(ctx) }

func TestRunFullLoopUntilQuiescent(t *testing.T) {
	always := func(*core.HarvestIR) bool { return true }

	toolA := conditionalTool{
		name: "a",
		gate: always,
		run: func(ctx core.RunContext) error {
			ctx.Edit.AddRepresentation(stringRepr("A"))
			return nil
		},
	}
	// toolB only becomes runnable once something has already landed in
	// the IR — on the first pass it must be offered TryAgain and
	// requeued, then spawned on a later pass once A has committed.
	toolB := conditionalTool{
		name: "b",
		gate: func(ir *core.HarvestIR) bool { return ir.Len() > 0 },
		run: func(ctx core.RunContext) error {
			ctx.Edit.AddRepresentation(stringRepr("B"))
			return nil
		},
	}
	// notRunnableC demonstrates the permanently-unready case; the driver
	// must drop it without hanging the loop.
	notRunnableC := notRunnableTool{name: "c"}

	// toolD is runnable immediately but fails; its edit must never land.
	toolD := conditionalTool{
		name: "d",
		gate: always,
		run: func(core.RunContext) error {
			return errors.New("d always fails")
		},
	}

	cfg := newTestRunConfig(t)
	result, err := Run(cfg, []core.Tool{toolA, toolB, notRunnableC, toolD})
	require.NoError(t, err)

	require.Equal(t, uint64(2), result.IRVersion, "only A and B ever commit")
	require.Equal(t, 2, result.IR.Len())

	strs := core.ByType[stringRepr](result.IR)
	var values []string
	for _, p := range strs {
		values = append(values, string(p.Repr))
	}
	require.ElementsMatch(t, []string{"A", "B"}, values)
}

// notRunnableTool always reports OutcomeNotRunnable, the terminal
// "never becomes ready" case the scheduler must discard permanently.
type notRunnableTool struct{ name string }

func (n notRunnableTool) Name() string { return n.name }
func (n notRunnableTool) MightWrite(core.MightWriteContext) core.MightWriteOutcome {
	return core.OutcomeNotRunnable{}
}
func (n notRunnableTool) Run(core.RunContext) error {
	panic("must never run: NotRunnable tools are never spawned")
}

func TestRunEmptyToolListTerminatesImmediately(t *testing.T) {
	cfg := newTestRunConfig(t)
	result, err := Run(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), result.IRVersion)
	require.Equal(t, 0, result.IR.Len())
}

func TestRunDropsUnknownIDToolAndContinues(t *testing.T) {
	// A tool that declares it might write an id the arbiter has never
	// seen is a tool bug; the driver must log and drop it rather than
	// aborting the whole pipeline, then keep making progress on the
	// rest of the queue.
	badTool := conditionalTool{
		name: "bad",
		gate: func(*core.HarvestIR) bool { return true },
		run:  func(core.RunContext) error { return nil },
	}
	unknownID := core.ID(999999999)
	badRunnable := unknownIDTool{conditionalTool: badTool, unknownID: unknownID}

	goodTool := conditionalTool{
		name: "good",
		gate: func(*core.HarvestIR) bool { return true },
		run: func(ctx core.RunContext) error {
			ctx.Edit.AddRepresentation(stringRepr("good"))
			return nil
		},
	}

	cfg := newTestRunConfig(t)
	result, err := Run(cfg, []core.Tool{badRunnable, goodTool})
	require.NoError(t, err)
	require.Equal(t, 1, result.IR.Len())
	require.Equal(t, uint64(1), result.IRVersion)
}

// unknownIDTool declares a might-write id that was never reserved in
// the arbiter, forcing Runner.Spawn to return ErrUnknownID.
type unknownIDTool struct {
	conditionalTool
	unknownID core.ID
}

func (u unknownIDTool) MightWrite(core.MightWriteContext) core.MightWriteOutcome {
	return core.OutcomeRunnable{IDs: map[core.ID]struct{}{u.unknownID: {}}}
}
