package engine

import (
	"fmt"
	"sync"

	"github.com/wippyai/lua-runtime/errors"
)

// Accountant tracks cooperative memory usage against the configured
// limit. It carries its own lock, independent of the engine lock, so
// callbacks running inside a locked script call can account without
// deadlocking on re-entry.
type Accountant struct {
	mu      sync.Mutex
	limit   uint64
	current uint64
}

func newAccountant(limit uint64) *Accountant {
	return &Accountant{limit: limit}
}

// TrackAllocation records n bytes. When the configured limit would be
// exceeded the call fails with a memory error and the counter is left
// unchanged.
func (a *Accountant) TrackAllocation(n uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limit > 0 && a.current+n > a.limit {
		return errors.Memory(fmt.Sprintf(
			"allocation of %d bytes exceeds limit of %d (current %d)",
			n, a.limit, a.current))
	}
	a.current += n
	return nil
}

// TrackDeallocation records n bytes freed, flooring at zero.
func (a *Accountant) TrackDeallocation(n uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n > a.current {
		a.current = 0
		return
	}
	a.current -= n
}

// Reset zeroes the counter. The limit is fixed at construction.
func (a *Accountant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = 0
}

// CurrentTotal returns the tracked byte count.
func (a *Accountant) CurrentTotal() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Limit returns the configured limit in bytes; 0 means unlimited.
func (a *Accountant) Limit() uint64 {
	return a.limit
}
