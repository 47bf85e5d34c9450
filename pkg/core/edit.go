package core

import (
	"errors"
	"sync"
)

// Sentinel errors for the edit arbiter, checked with errors.Is. The
// priority order of UnknownID before IDInUse in NewEdit is deliberate
// (see spec): a tool that asks for an Id that was never allocated is a
// bug and should be reported as such even if some other Id it asked for
// also happens to be contended.
var (
	ErrUnknownID    = errors.New("core: unknown id")
	ErrIDInUse      = errors.New("core: id already in use")
	ErrWrongArbiter = errors.New("core: edit issued by a different arbiter")
	ErrNotWritable  = errors.New("core: id not writable in this edit")
)

// Arbiter owns the canonical IR and arbitrates concurrent Edits over it.
// It hands out write permits (Edits) over disjoint ID sets and commits
// them atomically. The zero value is not usable; use NewArbiter.
type Arbiter struct {
	token *struct{} // pointer identity: this arbiter's token

	mu    sync.Mutex
	ir    *HarvestIR
	inUse map[ID]struct{}
}

// NewArbiter constructs an Arbiter owning an empty IR.
func NewArbiter() *Arbiter {
	return &Arbiter{
		token: new(struct{}),
		ir:    NewHarvestIR(),
		inUse: map[ID]struct{}{},
	}
}

// Snapshot returns the current IR. Cheap: the returned value is
// immutable and shares storage with the arbiter's internal state;
// readers never block the writer.
func (a *Arbiter) Snapshot() *HarvestIR {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ir
}

// NewEdit hands out a write permit over mightWrite. Errors are checked
// in spec order: ErrUnknownID before ErrIDInUse, so a caller's bug (an
// Id that was never in the IR) isn't masked by an unrelated race.
func (a *Arbiter) NewEdit(mightWrite map[ID]struct{}) (*Edit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id := range mightWrite {
		if !a.ir.Contains(id) {
			return nil, ErrUnknownID
		}
	}
	for id := range mightWrite {
		if _, busy := a.inUse[id]; busy {
			return nil, ErrIDInUse
		}
	}

	writable := make(map[ID]*Representation, len(mightWrite))
	for id := range mightWrite {
		a.inUse[id] = struct{}{}
		writable[id] = nil
	}

	return &Edit{
		arbiterToken: a.token,
		arbiter:      a,
		writable:     writable,
	}, nil
}

// Apply commits edit atomically: writable Ids with a pending write are
// inserted/replaced in the IR; Ids with no pending write are simply
// released. Rejects edits from a different arbiter.
func (a *Arbiter) Apply(edit *Edit) error {
	if edit.arbiterToken != a.token {
		return ErrWrongArbiter
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.ir
	for id, rep := range edit.writable {
		if rep != nil {
			next = next.insert(id, *rep)
		}
		delete(a.inUse, id)
	}
	a.ir = next
	edit.released = true
	return nil
}

// release frees edit's writable Ids without applying any pending
// writes. Called when a tool's run returns an error or panics, and by
// Edit.Discard for callers that construct an Edit and decide not to use
// it. Idempotent.
func (a *Arbiter) release(edit *Edit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if edit.released {
		return
	}
	for id := range edit.writable {
		delete(a.inUse, id)
	}
	edit.released = true
}

// Edit is a write permit scoped to one Arbiter and a fixed set of
// writable Ids. The zero value is not usable; Edits are only produced
// by Arbiter.NewEdit.
type Edit struct {
	arbiterToken *struct{}
	arbiter      *Arbiter
	writable     map[ID]*Representation
	released     bool
}

// NewID allocates a fresh Id and marks it writable within this Edit
// (without attaching a representation yet).
func (e *Edit) NewID() ID {
	id := NewID()
	e.writable[id] = nil
	return id
}

// AddRepresentation allocates a fresh Id, attaches rep to it, and marks
// it writable within this Edit. Returns the new Id.
func (e *Edit) AddRepresentation(rep Representation) ID {
	id := e.NewID()
	e.writable[id] = &rep
	return id
}

// WriteID writes rep to an existing writable Id. Returns ErrNotWritable
// if id is not in this Edit's writable set.
func (e *Edit) WriteID(id ID, rep Representation) error {
	if _, ok := e.writable[id]; !ok {
		return ErrNotWritable
	}
	e.writable[id] = &rep
	return nil
}

// Discard releases this Edit's writable Ids without applying any
// pending writes. Safe to call after Apply (a no-op in that case) and
// safe to call more than once; this is the explicit stand-in for Rust's
// Drop, since Go has no deterministic destructors. Callers (the runner)
// must call either Apply or Discard exactly once per Edit in practice,
// and Discard is always safe as a deferred cleanup.
func (e *Edit) Discard() {
	e.arbiter.release(e)
}
