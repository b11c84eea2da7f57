package engine

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/anchor"
	"github.com/wippyai/lua-runtime/errors"
	"github.com/wippyai/lua-runtime/marshal"
)

// Engine owns one interpreter instance and everything registered into
// it. All public operations serialize behind mu; script execution,
// proxy dispatch and callback invocation therefore never overlap
// within one engine. The lock is reentrant so host hooks running under
// it can call back into public operations. The memory accountant
// carries its own lock so a callback running under mu can still
// account allocations.
type Engine struct {
	mu reentrantMutex

	state     *lua.LState
	mar       *marshal.Marshaler
	servers   map[string]luaruntime.DataServer
	callbacks map[string]Callback
	coros     *anchor.Arena
	mem       *Accountant
	proxyMeta *lua.LTable

	// pending is the side channel carrying structured errors out of
	// proxy and callback hooks, where the native error channel only
	// transports strings. Consulted before classifying any native
	// error from run/eval.
	pending *errors.Error

	// active is the call context of the callback currently on the
	// stack, nil between invocations. Cleared unconditionally when the
	// trampoline unwinds, including on raise.
	active *CallContext

	closed bool
}

// New constructs an engine, opens the interpreter stdlib, applies the
// sandbox policy and module search path, and wires proxy dispatch.
// Configuration is consumed once; there is no reconfiguration surface.
func New(cfg Config) (*Engine, error) {
	L := lua.NewState()
	e, err := setup(L, cfg)
	if err != nil {
		L.Close()
		return nil, err
	}

	Logger().Debug("engine created",
		zap.Uint64("memory_limit", cfg.MemoryLimit),
		zap.Int("sandboxed_entries", len(cfg.Sandbox)))
	return e, nil
}

// setup wires cfg into a freshly opened state, converting panics from
// interpreter construction into a structured init error so New can
// close the state instead of leaking it.
func setup(L *lua.LState, cfg Config) (e *Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			e = nil
			err = errors.Init(fmt.Errorf("%v", r))
		}
	}()

	e = &Engine{
		state:     L,
		mar:       marshal.New(),
		servers:   make(map[string]luaruntime.DataServer),
		callbacks: make(map[string]Callback),
		coros:     anchor.NewArena(),
		mem:       newAccountant(cfg.MemoryLimit),
	}

	applySandbox(L, cfg.Sandbox)
	if cfg.ModulePath != "" {
		if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
			pkg.RawSetString("path", lua.LString(cfg.ModulePath))
		}
	}

	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(e.proxyIndex))
	mt.RawSetString("__newindex", L.NewFunction(e.proxyNewIndex))
	e.proxyMeta = mt
	return e, nil
}

// Close tears down the interpreter and every anchor. Idempotent.
// Handles and proxies outliving the engine fail checked, never
// dangling.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true

	for _, pinned := range e.coros.Drain() {
		if co, ok := pinned.(*coroutine); ok && co.cancel != nil {
			co.cancel()
		}
	}
	e.state.Close()
	Logger().Debug("engine closed")
}

// Run executes code for its side effects.
func (e *Engine) Run(code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errClosed()
	}

	e.pending = nil
	if err := e.state.DoString(code); err != nil {
		return e.resolveError(err)
	}
	return nil
}

// Eval executes code and returns its result. Bare expressions are
// accepted: "1 + 1" evaluates as "return 1 + 1".
func (e *Engine) Eval(code string) (luaruntime.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return luaruntime.Nil(), errClosed()
	}

	fn, err := e.state.LoadString("return " + code)
	if err != nil {
		fn, err = e.state.LoadString(code)
		if err != nil {
			return luaruntime.Nil(), errors.FromLua(err)
		}
	}

	base := e.state.GetTop()
	e.pending = nil
	e.state.Push(fn)
	if err := e.state.PCall(0, lua.MultRet, nil); err != nil {
		e.state.SetTop(base)
		return luaruntime.Nil(), e.resolveError(err)
	}

	out := luaruntime.Nil()
	if e.state.GetTop() > base {
		out = e.mar.Pull(e.state, base+1)
	}
	e.state.SetTop(base)
	return out, nil
}

// Global reads an interpreter global as a Value. The second return is
// false when the global is unset.
func (e *Engine) Global(name string) (luaruntime.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return luaruntime.Nil(), false
	}
	lv := e.state.GetGlobal(name)
	if lv == lua.LNil {
		return luaruntime.Nil(), false
	}
	return e.mar.FromLua(lv), true
}

// SetGlobal binds a Value as an interpreter global.
func (e *Engine) SetGlobal(name string, v luaruntime.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errClosed()
	}
	lv, err := e.mar.ToLua(e.state, v)
	if err != nil {
		return err
	}
	e.state.SetGlobal(name, lv)
	return nil
}

// Memory exposes the accounting hook used by domain modules.
func (e *Engine) Memory() *Accountant {
	return e.mem
}

// ReleaseFunction drops the anchor behind a FuncRef obtained from a
// pulled value.
func (e *Engine) ReleaseFunction(ref luaruntime.FuncRef) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mar.ReleaseFunction(ref)
}

// CallFunction invokes an anchored script function with args and
// returns its single result.
func (e *Engine) CallFunction(ref luaruntime.FuncRef, args []luaruntime.Value) (luaruntime.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return luaruntime.Nil(), errClosed()
	}
	fn, ok := e.mar.Function(ref)
	if !ok {
		return luaruntime.Nil(), errors.Runtime("function handle is no longer anchored")
	}

	lvArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lv, err := e.mar.ToLua(e.state, a)
		if err != nil {
			return luaruntime.Nil(), err
		}
		lvArgs[i] = lv
	}

	e.pending = nil
	if err := e.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lvArgs...); err != nil {
		return luaruntime.Nil(), e.resolveError(err)
	}
	out := e.mar.Pull(e.state, -1)
	e.state.Pop(1)
	return out, nil
}

// resolveError prefers the side channel over the lossy native message:
// structured errors captured inside hooks win over their generic
// string form. Callers must hold mu.
func (e *Engine) resolveError(err error) error {
	if structured := e.takePending(); structured != nil {
		return structured
	}
	return errors.FromLua(err)
}

// takePending drains the side channel. Callers must hold mu.
func (e *Engine) takePending() *errors.Error {
	structured := e.pending
	e.pending = nil
	return structured
}

// capture records a structured error in the side channel just before
// the hook raises natively.
func (e *Engine) capture(err *errors.Error) {
	e.pending = err
}

func errClosed() *errors.Error {
	return errors.Runtime("engine is closed")
}
