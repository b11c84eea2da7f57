package anchor

import (
	"sync"
)

// Ref is an opaque generation-checked reference into an Arena.
// Ref 0 is reserved and always invalid. The low 32 bits index the
// slot, the high 32 bits carry the slot's generation; a stale Ref from
// a released slot fails the generation check instead of resolving to
// whatever occupies the slot now.
type Ref uint64

func (r Ref) slot() uint32 { return uint32(r) }
func (r Ref) gen() uint32  { return uint32(r >> 32) }

func makeRef(slot, gen uint32) Ref {
	return Ref(uint64(gen)<<32 | uint64(slot))
}

type entry struct {
	value any
	gen   uint32
	live  bool
}

// Arena pins interpreter objects (threads, functions) so the
// interpreter's garbage collector cannot reclaim them while the host
// still holds a reference. Releasing a slot bumps its generation, so
// every Ref is single-use-after-free safe.
type Arena struct {
	mu      sync.Mutex
	entries []entry
	free    []uint32
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		entries: make([]entry, 0, 16),
	}
}

// Pin stores a value and returns its Ref.
func (a *Arena) Pin(v any) Ref {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.free) > 0 {
		slot := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		e := &a.entries[slot]
		e.value = v
		e.live = true
		return makeRef(slot, e.gen)
	}

	// Generation starts at 1 so a zero Ref can never be live.
	a.entries = append(a.entries, entry{value: v, gen: 1, live: true})
	return makeRef(uint32(len(a.entries)-1), 1)
}

// Get retrieves a pinned value. A Ref whose slot was released (or
// released and re-pinned) fails the generation check.
func (a *Arena) Get(ref Ref) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.lookup(ref)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Release unpins a value and returns it. Releasing an already-released
// or unknown Ref is a no-op returning (nil, false).
func (a *Arena) Release(ref Ref) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.lookup(ref)
	if !ok {
		return nil, false
	}

	v := e.value
	e.value = nil
	e.live = false
	e.gen++
	a.free = append(a.free, ref.slot())
	return v, true
}

// Len returns the number of live entries.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries) - len(a.free)
}

// Drain releases every live entry and returns the values, for engine
// teardown.
func (a *Arena) Drain() []any {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []any
	for i := range a.entries {
		e := &a.entries[i]
		if !e.live {
			continue
		}
		out = append(out, e.value)
		e.value = nil
		e.live = false
		e.gen++
		a.free = append(a.free, uint32(i))
	}
	return out
}

func (a *Arena) lookup(ref Ref) (*entry, bool) {
	slot := ref.slot()
	if int(slot) >= len(a.entries) {
		return nil, false
	}
	e := &a.entries[slot]
	if !e.live || e.gen != ref.gen() {
		return nil, false
	}
	return e, true
}
