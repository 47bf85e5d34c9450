package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foundryrun/harvest/pkg/core"
)

type namedTool struct{ name string }

func (n namedTool) Name() string                                   { return n.name }
func (n namedTool) MightWrite(core.MightWriteContext) core.MightWriteOutcome { return core.OutcomeTryAgain{} }
func (n namedTool) Run(core.RunContext) error                       { return nil }

func TestSchedulerQueueLenFIFO(t *testing.T) {
	s := NewScheduler()
	require.Equal(t, 0, s.Len())

	s.Queue(namedTool{name: "a"})
	s.Queue(namedTool{name: "b"})
	require.Equal(t, 2, s.Len())
}

func TestNextInvocationsDrainsQueueBeforeCallbacks(t *testing.T) {
	s := NewScheduler()
	s.Queue(namedTool{name: "a"})

	var seenLenDuringCallback int
	err := s.NextInvocations(func(tool core.Tool) NextInvocationOutcome {
		seenLenDuringCallback = s.Len()
		return OutcomeDontTryAgain{}
	})
	require.NoError(t, err)
	require.Equal(t, 0, seenLenDuringCallback, "taken queue must be swapped out before invoking callbacks")
	require.Equal(t, 0, s.Len())
}

func TestNextInvocationsDontTryAgainDiscards(t *testing.T) {
	s := NewScheduler()
	s.Queue(namedTool{name: "a"})

	err := s.NextInvocations(func(core.Tool) NextInvocationOutcome {
		return OutcomeDontTryAgain{}
	})
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
}

func TestNextInvocationsTryLaterRequeues(t *testing.T) {
	s := NewScheduler()
	s.Queue(namedTool{name: "a"})
	s.Queue(namedTool{name: "b"})

	var order []string
	err := s.NextInvocations(func(tool core.Tool) NextInvocationOutcome {
		order = append(order, tool.Name())
		if tool.Name() == "a" {
			return OutcomeTryLater{Tool: tool}
		}
		return OutcomeDontTryAgain{}
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, 1, s.Len())

	// requeued tool survives into the next pass.
	var secondPass []string
	err = s.NextInvocations(func(tool core.Tool) NextInvocationOutcome {
		secondPass = append(secondPass, tool.Name())
		return OutcomeDontTryAgain{}
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, secondPass)
}

func TestNextInvocationsErrorPreservesUnvisitedTools(t *testing.T) {
	s := NewScheduler()
	s.Queue(namedTool{name: "a"})
	s.Queue(namedTool{name: "b"})
	s.Queue(namedTool{name: "c"})

	sentinel := require.New(t)
	errBoom := errorString("boom")

	var visited []string
	err := s.NextInvocations(func(tool core.Tool) NextInvocationOutcome {
		visited = append(visited, tool.Name())
		if tool.Name() == "b" {
			return OutcomeError{Err: errBoom}
		}
		return OutcomeDontTryAgain{}
	})
	sentinel.ErrorIs(err, errBoom)
	require.Equal(t, []string{"a", "b"}, visited, "c must never be offered once b errors")

	// "c" (not yet visited when the error occurred) must survive in the
	// new queue; "a" (already resolved DontTryAgain) must not.
	require.Equal(t, 1, s.Len())
	var remaining []string
	err = s.NextInvocations(func(tool core.Tool) NextInvocationOutcome {
		remaining = append(remaining, tool.Name())
		return OutcomeDontTryAgain{}
	})
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, remaining)
}

type errorString string

func (e errorString) Error() string { return string(e) }
