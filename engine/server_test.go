package engine

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"testing"

	luaruntime "github.com/wippyai/lua-runtime"
	"github.com/wippyai/lua-runtime/errors"
)

// treeServer answers from a flat path->value table and records every
// resolution and write it sees.
type treeServer struct {
	ns       string
	leaves   map[string]luaruntime.Value
	writable map[string]bool
	writeErr error

	resolved   []string
	writes     map[string]luaruntime.Value
	writeCalls int
}

func newTreeServer(ns string, leaves map[string]luaruntime.Value) *treeServer {
	return &treeServer{
		ns:       ns,
		leaves:   leaves,
		writable: map[string]bool{},
		writes:   map[string]luaruntime.Value{},
	}
}

func (s *treeServer) Namespace() string { return s.ns }

func (s *treeServer) Resolve(p luaruntime.Path) luaruntime.Resolution {
	s.resolved = append(s.resolved, p.String())
	if v, ok := s.leaves[p.String()]; ok {
		return luaruntime.Leaf(v)
	}
	return luaruntime.Intermediate()
}

func (s *treeServer) CanWrite(p luaruntime.Path) bool { return s.writable[p.String()] }

func (s *treeServer) Write(p luaruntime.Path, v luaruntime.Value) error {
	s.writeCalls++
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes[p.String()] = v
	return nil
}

func TestLazyResolutionDepth(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", map[string]luaruntime.Value{
		"net.http.port": luaruntime.Number(8080),
	})
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	got, err := e.Eval(`conf.net.http.port`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.Number(8080)) {
		t.Errorf("Eval = %v, want 8080", got)
	}

	// A depth-3 leaf costs exactly three hook firings with strictly
	// growing paths.
	want := []string{"net", "net.http", "net.http.port"}
	if !reflect.DeepEqual(srv.resolved, want) {
		t.Errorf("resolved paths = %v, want %v", srv.resolved, want)
	}
}

func TestUnresolvedPathReadsNil(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", nil)
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	// Every segment is intermediate, so the expression's value is a
	// proxy, which pulls as nil.
	got, err := e.Eval(`conf.does.not.exist`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsNil() {
		t.Errorf("unresolved path = %v, want nil", got)
	}
}

func TestSiblingPathsDoNotShareState(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", map[string]luaruntime.Value{
		"a.x": luaruntime.Number(1),
		"a.y": luaruntime.Number(2),
	})
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	got, err := e.Eval(`local n = conf.a; return n.x + n.y`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.Number(3)) {
		t.Errorf("Eval = %v, want 3", got)
	}
	want := []string{"a", "a.x", "a.y"}
	if !reflect.DeepEqual(srv.resolved, want) {
		t.Errorf("resolved paths = %v, want %v", srv.resolved, want)
	}
}

func TestWriteReadOnlyPath(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", nil)
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	err := e.Run(`conf.net.port = 9090`)
	if err == nil {
		t.Fatal("expected read-only error")
	}
	structured, ok := errors.As(err)
	if !ok || structured.Code != errors.CodeReadOnly {
		t.Fatalf("error = %v, want read-only code", err)
	}
	if structured.Path != "net.port" {
		t.Errorf("Path = %q, want net.port", structured.Path)
	}
	if srv.writeCalls != 0 {
		t.Errorf("Write called %d times on a rejected path", srv.writeCalls)
	}
}

func TestWriteAllowedPath(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", nil)
	srv.writable["net.port"] = true
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	if err := e.Run(`conf.net.port = 9090`); err != nil {
		t.Fatal(err)
	}
	got, ok := srv.writes["net.port"]
	if !ok {
		t.Fatal("Write never reached the server")
	}
	if !got.Equal(luaruntime.Number(9090)) {
		t.Errorf("written value = %v, want 9090", got)
	}
}

func TestWriteServerErrorSurfacesVerbatim(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", nil)
	srv.writable["net.port"] = true
	srv.writeErr = fmt.Errorf("backing store offline")
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	err := e.Run(`conf.net.port = 9090`)
	if err == nil {
		t.Fatal("expected write error")
	}
	structured, ok := errors.As(err)
	if !ok {
		t.Fatalf("error %v is not structured", err)
	}
	if structured.Detail != "backing store offline" {
		t.Errorf("Detail = %q, want the server's message", structured.Detail)
	}
	if !stderrors.Is(structured, srv.writeErr) {
		t.Error("server error should be in the cause chain")
	}
}

func TestWriteStructuredServerErrorKeepsCode(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", nil)
	srv.writable["quota"] = true
	srv.writeErr = errors.Memory("quota exhausted")
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	err := e.Run(`conf.quota = 10`)
	structured, ok := errors.As(err)
	if !ok || structured.Code != errors.CodeMemory {
		t.Fatalf("error = %v, want the server's memory code", err)
	}
}

func TestWriteUnregisteredNamespace(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", nil)
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	// Keep a proxy alive, then pull the server out from under it.
	if err := e.Run(`stale = conf.net`); err != nil {
		t.Fatal(err)
	}
	e.UnregisterServer("conf")

	err := e.Run(`stale.port = 1`)
	if err == nil {
		t.Fatal("expected path resolution error")
	}
	structured, ok := errors.As(err)
	if !ok || structured.Code != errors.CodePathResolution {
		t.Errorf("error = %v, want path resolution code", err)
	}

	// Reads through the stale proxy degrade to nil.
	got, evalErr := e.Eval(`stale.port`)
	if evalErr != nil {
		t.Fatal(evalErr)
	}
	if !got.IsNil() {
		t.Errorf("stale read = %v, want nil", got)
	}
}

func TestServerReplacement(t *testing.T) {
	e := newEngine(t, Config{})
	first := newTreeServer("conf", map[string]luaruntime.Value{
		"version": luaruntime.Number(1),
	})
	second := newTreeServer("conf", map[string]luaruntime.Value{
		"version": luaruntime.Number(2),
	})
	if err := e.RegisterServer(first); err != nil {
		t.Fatal(err)
	}

	// Hold a proxy resolved against the first server.
	if err := e.Run(`held = conf`); err != nil {
		t.Fatal(err)
	}

	if err := e.RegisterServer(second); err != nil {
		t.Fatal(err)
	}

	got, err := e.Eval(`conf.version`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.Number(2)) {
		t.Errorf("conf.version = %v, want the replacement's value", got)
	}

	// Even proxies created before the swap re-resolve against the new
	// server; the old one is unreachable.
	got, err = e.Eval(`held.version`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.Number(2)) {
		t.Errorf("held.version = %v, want 2", got)
	}
	if len(first.resolved) != 0 {
		t.Errorf("replaced server still resolved paths: %v", first.resolved)
	}
}

func TestLeafAtIntermediateBlocksDeeper(t *testing.T) {
	e := newEngine(t, Config{})
	srv := newTreeServer("conf", map[string]luaruntime.Value{
		"limit": luaruntime.Number(10),
	})
	if err := e.RegisterServer(srv); err != nil {
		t.Fatal(err)
	}

	// "limit" resolves to a number, so deeper traversal indexes a
	// number and fails in the interpreter. Authoring contract, not a
	// special case.
	if _, err := e.Eval(`conf.limit.deeper`); err == nil {
		t.Error("indexing through a leaf should fail")
	}
}

func TestRegisterServerEmptyNamespace(t *testing.T) {
	e := newEngine(t, Config{})
	if err := e.RegisterServer(newTreeServer("", nil)); err == nil {
		t.Error("empty namespace must be rejected")
	}
}

func TestReadOnlyServerWithoutWriteSupport(t *testing.T) {
	e := newEngine(t, Config{})
	// A server that implements only DataServer, not WritableServer.
	if err := e.RegisterServer(readOnlyServer{}); err != nil {
		t.Fatal(err)
	}

	err := e.Run(`fixed.anything = 1`)
	structured, ok := errors.As(err)
	if !ok || structured.Code != errors.CodeReadOnly {
		t.Errorf("error = %v, want read-only code", err)
	}
}

// computedServer derives its one leaf by evaluating an expression,
// re-entering the engine from inside the resolution hook.
type computedServer struct {
	e *Engine
}

func (s *computedServer) Namespace() string { return "calc" }

func (s *computedServer) Resolve(p luaruntime.Path) luaruntime.Resolution {
	if p.String() != "answer" {
		return luaruntime.Intermediate()
	}
	v, err := s.e.Eval(`6 * 7`)
	if err != nil {
		return luaruntime.Intermediate()
	}
	return luaruntime.Leaf(v)
}

func TestResolveHookReentersEngine(t *testing.T) {
	e := newEngine(t, Config{})
	if err := e.RegisterServer(&computedServer{e: e}); err != nil {
		t.Fatal(err)
	}

	got, err := e.Eval(`calc.answer`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(luaruntime.Number(42)) {
		t.Errorf("calc.answer = %v, want 42", got)
	}
}

type readOnlyServer struct{}

func (readOnlyServer) Namespace() string { return "fixed" }
func (readOnlyServer) Resolve(luaruntime.Path) luaruntime.Resolution {
	return luaruntime.Intermediate()
}
