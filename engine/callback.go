package engine

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/errors"
)

// Callback is a host closure callable from scripts. Arity is not
// enforced by the engine; closures validate their own arguments and
// return an error on mismatch.
type Callback func(ctx *CallContext, args []luaruntime.Value) (luaruntime.Value, error)

// CallContext is passed explicitly as the first parameter of every
// callback so nested domain-module code can reach the active engine
// without any global state.
type CallContext struct {
	engine *Engine
	name   string
}

// Name returns the name the callback was registered under.
func (c *CallContext) Name() string { return c.name }

// Memory returns the active engine's accounting hook. It is safe to
// use inside a callback: the accountant has its own lock, independent
// of the engine lock already held around the running script.
func (c *CallContext) Memory() *Accountant { return c.engine.mem }

// RegisterCallback binds a host closure as a script-callable global.
// Registering an existing name replaces the closure. The trampoline
// captures (engine, name) as closure state, so multiple engines never
// collide.
func (e *Engine) RegisterCallback(name string, cb Callback) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errClosed()
	}
	if name == "" {
		return errors.Callback("callback name cannot be empty")
	}
	if cb == nil {
		return errors.Callback("callback cannot be nil")
	}

	e.callbacks[name] = cb
	e.state.SetGlobal(name, e.state.NewFunction(e.trampoline(name)))
	Logger().Debug("callback registered", zap.String("name", name))
	return nil
}

// UnregisterCallback removes the closure and the interpreter-visible
// global. Calling the name afterwards fails with the interpreter's own
// "attempt to call a nil value".
func (e *Engine) UnregisterCallback(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if _, ok := e.callbacks[name]; !ok {
		return
	}
	delete(e.callbacks, name)
	e.state.SetGlobal(name, lua.LNil)
	Logger().Debug("callback unregistered", zap.String("name", name))
}

// trampoline is the fixed native entry point the interpreter calls.
// L is the calling execution thread, which may be a coroutine rather
// than the main state; all stack traffic goes through it.
func (e *Engine) trampoline(name string) lua.LGFunction {
	return func(L *lua.LState) int {
		cb, ok := e.callbacks[name]
		if !ok {
			L.RaiseError("no callback registered for %q", name)
			return 0
		}

		top := L.GetTop()
		args := make([]luaruntime.Value, 0, top)
		for i := 1; i <= top; i++ {
			args = append(args, e.mar.Pull(L, i))
		}

		ctx := &CallContext{engine: e, name: name}
		prev := e.active
		e.active = ctx
		// The active context must restore on every exit path, including
		// the panic RaiseError uses to unwind into the interpreter.
		// Restoring (not clearing) keeps the outer context intact when a
		// callback re-enters the engine and lands in another callback.
		defer func() { e.active = prev }()

		out, err := cb(ctx, args)
		if err != nil {
			structured, ok := errors.As(err)
			if !ok {
				structured = errors.Callback(err.Error())
			}
			e.capture(structured)
			L.RaiseError("%s", err.Error())
			return 0
		}

		if err := e.mar.Push(L, out); err != nil {
			e.capture(errors.Callback(err.Error()))
			L.RaiseError("%s", err.Error())
			return 0
		}
		return 1
	}
}

// activeCall exposes the in-flight call context for tests.
func (e *Engine) activeCall() *CallContext { return e.active }
