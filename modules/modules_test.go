package modules

import (
	"strings"
	"testing"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/engine"
	"github.com/wippyai/lua-runtime/errors"
)

func newEngine(t *testing.T, cfg engine.Config) *engine.Engine {
	t.Helper()
	e, err := engine.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	if err := RegisterAll(e); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestJSONDecode(t *testing.T) {
	e := newEngine(t, engine.Config{})

	got, err := e.Eval(`json_decode([[{"name":"deep","items":[1,2,3]}]])`)
	if err != nil {
		t.Fatal(err)
	}
	want := luaruntime.Map(map[string]luaruntime.Value{
		"name": luaruntime.String("deep"),
		"items": luaruntime.Array(
			luaruntime.Number(1),
			luaruntime.Number(2),
			luaruntime.Number(3),
		),
	})
	if !got.Equal(want) {
		t.Errorf("json_decode = %v, want %v", got, want)
	}
}

func TestJSONEncode(t *testing.T) {
	e := newEngine(t, engine.Config{})

	got, err := e.Eval(`json_encode({1, 2, 3})`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.String("[1,2,3]")) {
		t.Errorf("json_encode = %v, want [1,2,3]", got)
	}
}

func TestJSONRoundTripInScript(t *testing.T) {
	e := newEngine(t, engine.Config{})

	got, err := e.Eval(`json_decode(json_encode({a = 1, b = {true, "x"}})).b[2]`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.String("x")) {
		t.Errorf("round trip = %v, want x", got)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	e := newEngine(t, engine.Config{})

	got, err := e.Eval(`yaml_decode(yaml_encode({host = "db1", port = 5432})).port`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.Number(5432)) {
		t.Errorf("yaml round trip = %v, want 5432", got)
	}
}

func TestYAMLDecode(t *testing.T) {
	e := newEngine(t, engine.Config{})

	got, err := e.Eval(`yaml_decode([[
servers:
  - alpha
  - beta
]]).servers[1]`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.String("alpha")) {
		t.Errorf("yaml_decode = %v, want alpha", got)
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	e := newEngine(t, engine.Config{})

	got, err := e.Eval(`toml_decode(toml_encode({title = "demo", count = 4})).count`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.Number(4)) {
		t.Errorf("toml round trip = %v, want 4", got)
	}
}

func TestTOMLEncodeRejectsNonTable(t *testing.T) {
	e := newEngine(t, engine.Config{})

	_, err := e.Eval(`toml_encode("just a string")`)
	if err == nil {
		t.Fatal("encoding a bare string as TOML should fail")
	}
	structured, ok := errors.As(err)
	if !ok || structured.Code != errors.CodeCallback {
		t.Errorf("error = %v, want callback code", err)
	}
}

func TestDecodeArgumentValidation(t *testing.T) {
	e := newEngine(t, engine.Config{})

	_, err := e.Eval(`json_decode(42)`)
	if err == nil {
		t.Fatal("expected argument error")
	}
	structured, ok := errors.As(err)
	if !ok || structured.Code != errors.CodeCallback {
		t.Errorf("error = %v, want callback code", err)
	}
	if !strings.Contains(structured.Detail, "string") {
		t.Errorf("Detail = %q", structured.Detail)
	}
}

func TestDecodeMalformedInput(t *testing.T) {
	e := newEngine(t, engine.Config{})

	for _, expr := range []string{
		`json_decode("{bad")`,
		`toml_decode("= nope")`,
	} {
		if _, err := e.Eval(expr); err == nil {
			t.Errorf("Eval(%q) should fail", expr)
		}
	}
}

func TestCodecMemoryAccounting(t *testing.T) {
	e := newEngine(t, engine.Config{MemoryLimit: 8})

	// The encoded output is larger than the limit, so the shim's
	// allocation charge fails and the script observes a memory error.
	_, err := e.Eval(`json_encode({aaaaaaaa = "bbbbbbbb"})`)
	if err == nil {
		t.Fatal("expected memory error")
	}
	structured, ok := errors.As(err)
	if !ok || structured.Code != errors.CodeMemory {
		t.Errorf("error = %v, want memory code", err)
	}
}
