package core

import (
	"fmt"
	"sort"
	"strings"
)

// Representation is a polymorphic, immutable value carrying some view of
// the program being transformed. Tools insert and replace Representations
// in a HarvestIR under an ID; a new value is produced to "replace" one,
// never a mutation in place.
type Representation interface {
	// Name is a stable, short, snake_case name used for diagnostics and
	// directory naming (e.g. "raw_source", "cargo_package").
	Name() string
	// String renders the representation for humans; most representations
	// also use it as their default Materialize implementation.
	fmt.Stringer
	// Materialize writes this representation to the given filesystem path.
	Materialize(path string) error
}

// HarvestIR is a snapshot-cloneable mapping from ID to Representation.
// Values of *HarvestIR are immutable once constructed: insert/replace
// return a new *HarvestIR that shares the unmodified entries with the
// original, so producing a snapshot is a cheap pointer copy and mutating
// one snapshot never affects another. This is the copy-on-write scheme
// spec'd in the original's Arc<HarvestIR>: Go has no persistent map in
// the standard library, so the backing store here is a plain map that
// is shallow-copied on every write, which is O(size) per write rather
// than O(1) but keeps snapshots themselves O(1) to obtain and immutable
// to hold.
type HarvestIR struct {
	entries map[ID]Representation
}

// NewHarvestIR returns an empty IR.
func NewHarvestIR() *HarvestIR {
	return &HarvestIR{entries: map[ID]Representation{}}
}

// Contains reports whether id is present in this snapshot.
func (ir *HarvestIR) Contains(id ID) bool {
	if ir == nil {
		return false
	}
	_, ok := ir.entries[id]
	return ok
}

// Get returns the representation stored at id, if any.
func (ir *HarvestIR) Get(id ID) (Representation, bool) {
	if ir == nil {
		return nil, false
	}
	rep, ok := ir.entries[id]
	return rep, ok
}

// Len returns the number of entries in this snapshot.
func (ir *HarvestIR) Len() int {
	if ir == nil {
		return 0
	}
	return len(ir.entries)
}

// sortedIDs recomputes ascending key order on every call rather than
// caching it on the receiver: a *HarvestIR snapshot is held concurrently
// by every tool spawned in a driver pass (see pipeline.Run), and a
// lazily-populated cache field would be a racy check-then-write across
// those goroutines despite the immutability this type otherwise
// promises.
func (ir *HarvestIR) sortedIDs() []ID {
	ids := make([]ID, 0, len(ir.entries))
	for id := range ir.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Pair is one (ID, Representation) entry yielded by Iter/ByType.
type Pair struct {
	ID   ID
	Repr Representation
}

// Iter returns every entry in ascending ID order. This ordering is a
// guarantee of this implementation (stricter than the "not guaranteed
// elsewhere" caveat in the design notes, since Iter sorts the keys on
// every call).
func (ir *HarvestIR) Iter() []Pair {
	if ir == nil {
		return nil
	}
	ids := ir.sortedIDs()
	out := make([]Pair, 0, len(ids))
	for _, id := range ids {
		out = append(out, Pair{ID: id, Repr: ir.entries[id]})
	}
	return out
}

// ByType returns every (ID, R) entry whose dynamic type matches R, in
// ascending ID order. This is the Go analogue of the original's
// get_by_type::<R>() downcast: a type assertion plays the role of
// dyn Any::downcast_ref.
func ByType[R Representation](ir *HarvestIR) []struct {
	ID   ID
	Repr R
} {
	var out []struct {
		ID   ID
		Repr R
	}
	if ir == nil {
		return out
	}
	for _, id := range ir.sortedIDs() {
		if rep, ok := ir.entries[id].(R); ok {
			out = append(out, struct {
				ID   ID
				Repr R
			}{ID: id, Repr: rep})
		}
	}
	return out
}

// insert returns a new *HarvestIR with id mapped to rep, used only by
// the arbiter when committing an Edit. The receiver is left unmodified.
func (ir *HarvestIR) insert(id ID, rep Representation) *HarvestIR {
	next := &HarvestIR{entries: make(map[ID]Representation, len(ir.entries)+1)}
	for k, v := range ir.entries {
		next.entries[k] = v
	}
	next.entries[id] = rep
	return next
}

// replace is the in-place-looking update used by the arbiter: same
// copy-on-write shape as insert, kept as a separate name to mirror the
// spec's insert/replace split even though the Go implementation is
// identical either way (the distinguishing case, "was the id already
// present", belongs to the caller).
func (ir *HarvestIR) replace(id ID, rep Representation) *HarvestIR {
	return ir.insert(id, rep)
}

// String renders every entry, one per line, in ascending ID order.
func (ir *HarvestIR) String() string {
	var b strings.Builder
	for _, p := range ir.Iter() {
		fmt.Fprintf(&b, "%s: %s\n", p.ID, p.Repr.Name())
	}
	return b.String()
}
