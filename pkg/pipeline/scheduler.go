// Package pipeline implements the scheduler, runner, and driver loop
// that glue pkg/core's Tool/Edit/Arbiter primitives into a running
// pipeline. Ported from translate/src/{scheduler,runner,lib}.rs.
package pipeline

import (
	"github.com/foundryrun/harvest/pkg/core"
)

// NextInvocationOutcome is the result a caller's offer function returns
// for each tool in Scheduler.NextInvocations, ported from the closed
// NextInvocationOutcome enum in translate/src/scheduler.rs.
type NextInvocationOutcome interface {
	nextInvocationOutcome()
}

// OutcomeDontTryAgain discards the tool: either it launched
// successfully or it reported a terminal NotRunnable/UnknownId.
type OutcomeDontTryAgain struct{}

func (OutcomeDontTryAgain) nextInvocationOutcome() {}

// OutcomeTryLater re-queues the tool at the back of the new queue.
type OutcomeTryLater struct{ Tool core.Tool }

func (OutcomeTryLater) nextInvocationOutcome() {}

// OutcomeError aborts the current pass, surfacing err to the driver.
type OutcomeError struct{ Err error }

func (OutcomeError) nextInvocationOutcome() {}

// Scheduler is a FIFO queue of pending tool invocations.
type Scheduler struct {
	queue []core.Tool
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Queue pushes tool onto the back of the queue.
func (s *Scheduler) Queue(tool core.Tool) {
	s.queue = append(s.queue, tool)
}

// Len reports the number of pending invocations.
func (s *Scheduler) Len() int {
	return len(s.queue)
}

// NextInvocations takes the current queue, replaces it with a fresh
// empty one, and invokes f for each taken tool in FIFO order. Tools
// f returns OutcomeTryLater for are appended to the new queue — this
// implementation's choice for the "not-yet-visited tools on error"
// open question (SPEC_FULL.md §6.6): the tools not yet offered to f
// when it returns an error are kept in the new queue (appended after
// any already-retried ones), rather than lost.
func (s *Scheduler) NextInvocations(f func(core.Tool) NextInvocationOutcome) error {
	taken := s.queue
	s.queue = nil

	for i, tool := range taken {
		switch outcome := f(tool).(type) {
		case OutcomeDontTryAgain:
			// discarded
		case OutcomeTryLater:
			s.queue = append(s.queue, outcome.Tool)
		case OutcomeError:
			s.queue = append(s.queue, taken[i+1:]...)
			return outcome.Err
		}
	}
	return nil
}
