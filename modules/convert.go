package modules

import (
	"github.com/spf13/cast"

	luaruntime "github.com/wippyai/lua-runtime"
)

// fromAny converts a decoded document tree into a Value. Codec
// libraries disagree on number widths and map key types; cast smooths
// both over.
func fromAny(v any) luaruntime.Value {
	switch x := v.(type) {
	case nil:
		return luaruntime.Nil()
	case bool:
		return luaruntime.Bool(x)
	case string:
		return luaruntime.String(x)
	case []any:
		elems := make([]luaruntime.Value, len(x))
		for i, el := range x {
			elems[i] = fromAny(el)
		}
		return luaruntime.Array(elems...)
	case map[string]any:
		out := make(map[string]luaruntime.Value, len(x))
		for k, el := range x {
			out[k] = fromAny(el)
		}
		return luaruntime.Map(out)
	case map[any]any:
		out := make(map[string]luaruntime.Value, len(x))
		for k, el := range x {
			out[cast.ToString(k)] = fromAny(el)
		}
		return luaruntime.Map(out)
	default:
		if n, err := cast.ToFloat64E(v); err == nil {
			return luaruntime.Number(n)
		}
		return luaruntime.String(cast.ToString(v))
	}
}

// toAny converts a Value into the plain tree codec libraries expect.
// Function handles have no document form and encode as null; the
// complex extension encodes as its two fields.
func toAny(v luaruntime.Value) any {
	switch v.Kind {
	case luaruntime.KindNil:
		return nil
	case luaruntime.KindBool:
		return v.Bool
	case luaruntime.KindNumber:
		return v.Number
	case luaruntime.KindString:
		return v.Str
	case luaruntime.KindArray:
		out := make([]any, len(v.Array))
		for i, el := range v.Array {
			out[i] = toAny(el)
		}
		return out
	case luaruntime.KindMap:
		out := make(map[string]any, len(v.Map))
		for k, el := range v.Map {
			out[k] = toAny(el)
		}
		return out
	case luaruntime.KindComplex:
		return map[string]any{"re": v.Re, "im": v.Im}
	default:
		return nil
	}
}
