package core

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/foundryrun/harvest/internal/logger"
)

// ID is a process-unique, nonzero, monotonically increasing identifier.
// IDs are ordered and comparable; zero is never a valid ID.
type ID uint64

// String renders an ID for logs as "Id(n)". Diagnostics directory names
// do not use it: they format the raw number zero-padded to three digits
// themselves (see diagnostics).
func (id ID) String() string {
	return fmt.Sprintf("Id(%d)", uint64(id))
}

// counter is the single process-wide allocator backing NewID/NewIDs. A
// global counter is deliberate: embedders running multiple pipelines in
// one process share it, and only uniqueness is promised.
var counter atomic.Uint64

// NewIDs atomically reserves n contiguous, nonzero IDs and returns them
// in ascending order. Panics if n <= 0; aborts the process on counter
// overflow, since there is no safe value to return.
func NewIDs(n int) []ID {
	if n <= 0 {
		panic("core: NewIDs requires n > 0")
	}
	base := counter.Add(uint64(n))
	if base < uint64(n) {
		logger.GetLogger().Error().Int("n", n).Msg("id counter exhausted, aborting process")
		os.Exit(1)
	}
	ids := make([]ID, n)
	for i := 0; i < n; i++ {
		ids[i] = ID(base - uint64(n) + uint64(i) + 1)
	}
	return ids
}

// NewID reserves and returns a single fresh ID.
func NewID() ID {
	return NewIDs(1)[0]
}
