package modules

import (
	"bytes"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/engine"
	"github.com/wippyai/lua-runtime/errors"
)

// RegisterAll installs every codec shim into e.
func RegisterAll(e *engine.Engine) error {
	if err := RegisterJSON(e); err != nil {
		return err
	}
	if err := RegisterYAML(e); err != nil {
		return err
	}
	return RegisterTOML(e)
}

// RegisterJSON installs json_encode and json_decode.
func RegisterJSON(e *engine.Engine) error {
	if err := e.RegisterCallback("json_encode", encodeWith("json_encode", func(v any) ([]byte, error) {
		return json.Marshal(v)
	})); err != nil {
		return err
	}
	return e.RegisterCallback("json_decode", decodeWith("json_decode", func(data []byte) (any, error) {
		var out any
		err := json.Unmarshal(data, &out)
		return out, err
	}))
}

// RegisterYAML installs yaml_encode and yaml_decode.
func RegisterYAML(e *engine.Engine) error {
	if err := e.RegisterCallback("yaml_encode", encodeWith("yaml_encode", func(v any) ([]byte, error) {
		return yaml.Marshal(v)
	})); err != nil {
		return err
	}
	return e.RegisterCallback("yaml_decode", decodeWith("yaml_decode", func(data []byte) (any, error) {
		var out any
		err := yaml.Unmarshal(data, &out)
		return out, err
	}))
}

// RegisterTOML installs toml_encode and toml_decode. TOML documents
// are tables at the top level; encoding anything else fails.
func RegisterTOML(e *engine.Engine) error {
	if err := e.RegisterCallback("toml_encode", encodeWith("toml_encode", func(v any) ([]byte, error) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})); err != nil {
		return err
	}
	return e.RegisterCallback("toml_decode", decodeWith("toml_decode", func(data []byte) (any, error) {
		out := map[string]any{}
		err := toml.Unmarshal(data, &out)
		return out, err
	}))
}

// encodeWith wraps a marshal function as a callback taking one Value
// and returning the encoded text. The encoded size is charged to the
// engine's memory accountant through the explicit call context.
func encodeWith(name string, marshal func(any) ([]byte, error)) engine.Callback {
	return func(ctx *engine.CallContext, args []luaruntime.Value) (luaruntime.Value, error) {
		if len(args) != 1 {
			return luaruntime.Nil(), errors.Callback(name + " expects exactly one argument")
		}
		data, err := marshal(toAny(args[0]))
		if err != nil {
			return luaruntime.Nil(), errors.Callback(err.Error())
		}
		if err := ctx.Memory().TrackAllocation(uint64(len(data))); err != nil {
			return luaruntime.Nil(), err
		}
		return luaruntime.String(string(data)), nil
	}
}

// decodeWith wraps an unmarshal function as a callback taking the
// encoded text and returning the decoded Value.
func decodeWith(name string, unmarshal func([]byte) (any, error)) engine.Callback {
	return func(ctx *engine.CallContext, args []luaruntime.Value) (luaruntime.Value, error) {
		if len(args) != 1 || args[0].Kind != luaruntime.KindString {
			return luaruntime.Nil(), errors.Callback(name + " expects one string argument")
		}
		if err := ctx.Memory().TrackAllocation(uint64(len(args[0].Str))); err != nil {
			return luaruntime.Nil(), err
		}
		tree, err := unmarshal([]byte(args[0].Str))
		if err != nil {
			return luaruntime.Nil(), errors.Callback(err.Error())
		}
		return fromAny(tree), nil
	}
}
