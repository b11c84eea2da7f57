package marshal

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/anchor"
	"github.com/wippyai/lua-runtime/errors"
)

// Marshaler converts Values to and from interpreter stack slots.
// Function values are not copied: they are pinned in the anchor arena
// and surfaced as opaque handles, so resolving a handle re-pushes the
// identical function object.
type Marshaler struct {
	anchors *anchor.Arena
}

// New creates a marshaler with its own anchor arena.
func New() *Marshaler {
	return &Marshaler{anchors: anchor.NewArena()}
}

// Push writes v as one stack slot, recursing depth-first through
// composites.
func (m *Marshaler) Push(L *lua.LState, v luaruntime.Value) error {
	lv, err := m.ToLua(L, v)
	if err != nil {
		return err
	}
	L.Push(lv)
	return nil
}

// Pull reads the stack slot at idx as a Value. Unsupported runtime
// types (threads, channels, foreign userdata) pull as Nil, never
// raise.
func (m *Marshaler) Pull(L *lua.LState, idx int) luaruntime.Value {
	return m.FromLua(L.Get(idx))
}

// ToLua converts a Value to its interpreter representation without
// touching the stack.
func (m *Marshaler) ToLua(L *lua.LState, v luaruntime.Value) (lua.LValue, error) {
	switch v.Kind {
	case luaruntime.KindNil:
		return lua.LNil, nil
	case luaruntime.KindBool:
		return lua.LBool(v.Bool), nil
	case luaruntime.KindNumber:
		return lua.LNumber(v.Number), nil
	case luaruntime.KindString:
		return lua.LString(v.Str), nil
	case luaruntime.KindArray:
		tbl := L.CreateTable(len(v.Array), 0)
		for i, el := range v.Array {
			lv, err := m.ToLua(L, el)
			if err != nil {
				return nil, err
			}
			tbl.RawSetInt(i+1, lv)
		}
		return tbl, nil
	case luaruntime.KindMap:
		tbl := L.CreateTable(0, len(v.Map))
		for k, el := range v.Map {
			lv, err := m.ToLua(L, el)
			if err != nil {
				return nil, err
			}
			tbl.RawSetString(k, lv)
		}
		return tbl, nil
	case luaruntime.KindFunction:
		pinned, ok := m.anchors.Get(anchor.Ref(v.Fn))
		if !ok {
			return nil, errors.Runtime("function handle is no longer anchored")
		}
		fn, ok := pinned.(*lua.LFunction)
		if !ok {
			return nil, errors.Runtime("function handle resolves to a non-function anchor")
		}
		return fn, nil
	case luaruntime.KindComplex:
		ud := L.NewUserData()
		ud.Value = v
		return ud, nil
	}
	return nil, errors.Runtime("unsupported value kind")
}

// FromLua converts an interpreter value to a fresh Value.
func (m *Marshaler) FromLua(lv lua.LValue) luaruntime.Value {
	switch v := lv.(type) {
	case *lua.LNilType:
		return luaruntime.Nil()
	case lua.LBool:
		return luaruntime.Bool(bool(v))
	case lua.LNumber:
		return luaruntime.Number(float64(v))
	case lua.LString:
		return luaruntime.String(string(v))
	case *lua.LTable:
		return m.fromTable(v)
	case *lua.LFunction:
		ref := m.anchors.Pin(v)
		return luaruntime.Function(luaruntime.FuncRef(ref))
	case *lua.LUserData:
		if inner, ok := v.Value.(luaruntime.Value); ok && inner.Kind == luaruntime.KindComplex {
			return inner
		}
		return luaruntime.Nil()
	default:
		// Threads, channels and anything else the host has no use for.
		return luaruntime.Nil()
	}
}

// ReleaseFunction drops the anchor behind a function handle so the
// interpreter may collect the function. Idempotent.
func (m *Marshaler) ReleaseFunction(ref luaruntime.FuncRef) {
	m.anchors.Release(anchor.Ref(ref))
}

// Anchored returns the number of live function anchors, for tests and
// diagnostics.
func (m *Marshaler) Anchored() int {
	return m.anchors.Len()
}

// Function resolves a handle back to the anchored function object.
func (m *Marshaler) Function(ref luaruntime.FuncRef) (*lua.LFunction, bool) {
	pinned, ok := m.anchors.Get(anchor.Ref(ref))
	if !ok {
		return nil, false
	}
	fn, ok := pinned.(*lua.LFunction)
	return fn, ok
}

// fromTable classifies a table in one linear pass: if every key is a
// positive integer, only min and max are tracked; the table is an
// Array iff the keys are exactly the contiguous run 1..count. An empty
// table is the vacuous run 1..0 and classifies as Array. Any gap,
// non-positive or fractional number, or non-numeric key forces Map,
// with numeric keys coerced to their string form.
func (m *Marshaler) fromTable(tbl *lua.LTable) luaruntime.Value {
	type pair struct {
		k lua.LValue
		v lua.LValue
	}
	var entries []pair
	tbl.ForEach(func(k, v lua.LValue) {
		entries = append(entries, pair{k, v})
	})

	allInt := true
	var minKey, maxKey float64
	for i, e := range entries {
		n, ok := e.k.(lua.LNumber)
		f := float64(n)
		if !ok || f < 1 || f != math.Trunc(f) {
			allInt = false
			break
		}
		if i == 0 || f < minKey {
			minKey = f
		}
		if i == 0 || f > maxKey {
			maxKey = f
		}
	}

	if allInt && (len(entries) == 0 || (minKey == 1 && maxKey == float64(len(entries)))) {
		arr := make([]luaruntime.Value, len(entries))
		for _, e := range entries {
			arr[int(e.k.(lua.LNumber))-1] = m.FromLua(e.v)
		}
		return luaruntime.Array(arr...)
	}

	out := make(map[string]luaruntime.Value, len(entries))
	for _, e := range entries {
		out[e.k.String()] = m.FromLua(e.v)
	}
	return luaruntime.Map(out)
}
