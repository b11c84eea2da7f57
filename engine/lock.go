package engine

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// reentrantMutex is the engine lock. Host callbacks and data-server
// hooks run while the lock is held; when they re-enter a public engine
// operation (Eval from inside a callback, say) the call arrives on the
// same goroutine, so a plain mutex would self-deadlock. The owner's
// goroutine re-acquires by depth instead.
type reentrantMutex struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

func (m *reentrantMutex) Lock() {
	gid := goroutineID()
	if m.owner.Load() == gid {
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(gid)
	m.depth = 1
}

func (m *reentrantMutex) Unlock() {
	if m.owner.Load() != goroutineID() {
		panic("engine: unlock from a goroutine that does not hold the lock")
	}
	m.depth--
	if m.depth == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the caller's goroutine id from the stack header
// ("goroutine 123 [running]:"). The runtime exposes no cheaper stable
// identity for reentrancy tracking.
func goroutineID() int64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	header := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(header, ' '); i > 0 {
		if id, err := strconv.ParseInt(string(header[:i]), 10, 64); err == nil {
			return id
		}
	}
	panic("engine: unparseable goroutine header")
}
