package engine

import (
	"context"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/anchor"
	"github.com/wippyai/lua-runtime/errors"
)

// CoroutineID is an opaque handle to an anchored coroutine.
type CoroutineID uint64

// CoroutineState describes a coroutine as observed by the host.
type CoroutineState uint8

const (
	// CoroSuspended covers both a freshly created coroutine and one
	// stopped at a yield.
	CoroSuspended CoroutineState = iota
	CoroYielded
	CoroCompleted
	CoroDead
)

func (s CoroutineState) String() string {
	switch s {
	case CoroSuspended:
		return "suspended"
	case CoroYielded:
		return "yielded"
	case CoroCompleted:
		return "completed"
	case CoroDead:
		return "dead"
	}
	return "unknown"
}

// CoroutineResult is the outcome of one resume cycle. Exactly one of
// Value (Completed), Values (Yielded) or Err (Dead) is meaningful,
// selected by State.
type CoroutineResult struct {
	State  CoroutineState
	Value  luaruntime.Value
	Values []luaruntime.Value
	Err    *errors.Error
}

// coroutine is the anchored payload. The started/done flags make
// status exact: stack emptiness never has to stand in for "finished".
type coroutine struct {
	thread  *lua.LState
	cancel  context.CancelFunc
	fn      *lua.LFunction
	started bool
	done    bool
}

// CreateCoroutine compiles code into a fresh execution thread and
// anchors the thread against collection. Compile failure surfaces
// immediately and nothing is anchored.
func (e *Engine) CreateCoroutine(code string) (CoroutineID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, errClosed()
	}

	fn, err := e.state.LoadString(code)
	if err != nil {
		return 0, errors.FromLua(err)
	}

	thread, cancel := e.state.NewThread()
	ref := e.coros.Pin(&coroutine{thread: thread, cancel: cancel, fn: fn})
	Logger().Debug("coroutine created", zap.Uint64("id", uint64(ref)))
	return CoroutineID(ref), nil
}

// ResumeCoroutine pushes args onto the coroutine's own stack and runs
// it until it completes, yields, or dies. Resuming a destroyed handle
// or a terminal coroutine is a caller error.
func (e *Engine) ResumeCoroutine(id CoroutineID, args []luaruntime.Value) (CoroutineResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return CoroutineResult{}, errClosed()
	}

	pinned, ok := e.coros.Get(anchor.Ref(id))
	if !ok {
		return CoroutineResult{}, errors.Coroutine("coroutine not found or already destroyed")
	}
	co := pinned.(*coroutine)
	if co.done {
		return CoroutineResult{}, errors.Coroutine("cannot resume dead coroutine")
	}

	lvArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lv, err := e.mar.ToLua(e.state, a)
		if err != nil {
			return CoroutineResult{}, err
		}
		lvArgs[i] = lv
	}

	co.started = true
	e.pending = nil
	state, err, values := e.state.Resume(co.thread, co.fn, lvArgs...)
	switch state {
	case lua.ResumeYield:
		outs := make([]luaruntime.Value, len(values))
		for i, lv := range values {
			outs[i] = e.mar.FromLua(lv)
		}
		return CoroutineResult{State: CoroYielded, Values: outs}, nil

	case lua.ResumeOK:
		co.done = true
		out := luaruntime.Nil()
		if len(values) > 0 {
			out = e.mar.FromLua(values[0])
		}
		return CoroutineResult{State: CoroCompleted, Value: out}, nil

	default:
		co.done = true
		// Hooks that failed inside the coroutine left their structured
		// error in the side channel; the native resume error is its
		// flattened string form.
		if structured := e.takePending(); structured != nil {
			return CoroutineResult{State: CoroDead, Err: structured}, nil
		}
		detail := "coroutine failed"
		if err != nil {
			detail = err.Error()
		}
		return CoroutineResult{State: CoroDead, Err: errors.Coroutine(detail)}, nil
	}
}

// CoroutineStatus probes liveness. The explicit done flag recorded at
// the last resume makes the probe exact for finished coroutines.
func (e *Engine) CoroutineStatus(id CoroutineID) (CoroutineState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return CoroDead, errClosed()
	}
	pinned, ok := e.coros.Get(anchor.Ref(id))
	if !ok {
		return CoroDead, errors.Coroutine("coroutine not found or already destroyed")
	}
	if pinned.(*coroutine).done {
		return CoroDead, nil
	}
	return CoroSuspended, nil
}

// DestroyCoroutine releases the anchor, letting the interpreter
// collect the thread. Idempotent; safe on naturally completed handles.
func (e *Engine) DestroyCoroutine(id CoroutineID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	pinned, ok := e.coros.Release(anchor.Ref(id))
	if !ok {
		return
	}
	if co, ok := pinned.(*coroutine); ok && co.cancel != nil {
		co.cancel()
	}
	Logger().Debug("coroutine destroyed", zap.Uint64("id", uint64(id)))
}
