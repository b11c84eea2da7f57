package engine

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/errors"
)

// proxyNode is the ephemeral placeholder handed to scripts for an
// unresolved intermediate path segment. It carries everything the next
// dispatch needs: the owning engine, the namespace, and the
// accumulated path. Nodes are never cached or interned; every
// traversal allocates fresh ones, and path slices are copied so
// sibling accesses cannot interfere.
type proxyNode struct {
	eng  *Engine
	ns   string
	path luaruntime.Path
}

// RegisterServer binds srv's namespace as an interpreter global backed
// by lazy path resolution. Registering an existing namespace replaces
// the previous server entirely; old proxies re-resolve against the new
// one.
func (e *Engine) RegisterServer(srv luaruntime.DataServer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errClosed()
	}
	ns := srv.Namespace()
	if ns == "" {
		return errors.Runtime("data server namespace cannot be empty")
	}

	e.servers[ns] = srv
	e.state.SetGlobal(ns, e.newProxy(ns, nil))
	Logger().Debug("data server registered", zap.String("namespace", ns))
	return nil
}

// UnregisterServer removes a namespace binding. Reads under it then
// see nil; writes fail with a path-resolution error.
func (e *Engine) UnregisterServer(namespace string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if _, ok := e.servers[namespace]; !ok {
		return
	}
	delete(e.servers, namespace)
	e.state.SetGlobal(namespace, lua.LNil)
	Logger().Debug("data server unregistered", zap.String("namespace", namespace))
}

func (e *Engine) newProxy(ns string, path luaruntime.Path) *lua.LUserData {
	ud := e.state.NewUserData()
	ud.Value = &proxyNode{eng: e, ns: ns, path: path}
	e.state.SetMetatable(ud, e.proxyMeta)
	return ud
}

// proxyIndex handles nested reads: each access extends the accumulated
// path by one segment and re-resolves. A leaf ends traversal with a
// marshaled value; an intermediate hands back a fresh, longer proxy,
// so "a.b.c" costs exactly three dispatches.
func (e *Engine) proxyIndex(L *lua.LState) int {
	ud := L.CheckUserData(1)
	key := L.CheckString(2)

	node, ok := ud.Value.(*proxyNode)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	if node.eng.closed {
		L.RaiseError("engine is closed")
		return 0
	}

	srv, ok := node.eng.servers[node.ns]
	if !ok {
		L.Push(lua.LNil)
		return 1
	}

	path := node.path.Child(key)
	res := srv.Resolve(path)
	if !res.Leaf {
		L.Push(node.eng.newProxy(node.ns, path))
		return 1
	}

	if err := node.eng.mar.Push(L, res.Value); err != nil {
		node.eng.capture(errors.New(errors.CodeRuntime).
			Path(path.String()).
			Detail("leaf value could not be marshaled").
			Cause(err).
			Build())
		L.RaiseError("cannot marshal value at %s: %s", path, err)
	}
	return 1
}

// proxyNewIndex handles writes. Every failure is captured in the side
// channel before raising, so the facade can re-surface the structured
// error once the enclosing run/eval unwinds.
func (e *Engine) proxyNewIndex(L *lua.LState) int {
	ud := L.CheckUserData(1)
	key := L.CheckString(2)
	raw := L.Get(3)

	node, ok := ud.Value.(*proxyNode)
	if !ok {
		L.RaiseError("write through a detached proxy")
		return 0
	}
	eng := node.eng
	if eng.closed {
		L.RaiseError("engine is closed")
		return 0
	}
	path := node.path.Child(key)

	srv, ok := eng.servers[node.ns]
	if !ok {
		eng.capture(errors.PathResolution(path.String()))
		L.RaiseError("no data server registered for namespace %q (path %s)", node.ns, path)
		return 0
	}

	ws, writable := srv.(luaruntime.WritableServer)
	if !writable || !ws.CanWrite(path) {
		eng.capture(errors.ReadOnly(path.String()))
		L.RaiseError("cannot write read-only path %s", path)
		return 0
	}

	if err := ws.Write(path, eng.mar.FromLua(raw)); err != nil {
		structured, ok := errors.As(err)
		if !ok {
			structured = errors.New(errors.CodeRuntime).
				Path(path.String()).
				Detail(err.Error()).
				Cause(err).
				Build()
		}
		eng.capture(structured)
		L.RaiseError("write to %s failed: %s", path, err)
		return 0
	}

	Logger().Debug("path written", zap.String("path", path.String()))
	return 0
}
