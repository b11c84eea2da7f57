// Package luaruntime embeds a Lua interpreter inside a Go host and
// bridges values, hierarchical data namespaces, host functions, and
// coroutines across the boundary.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	luaruntime/      Root package with the Value model and DataServer interfaces
//	├── engine/      Engine facade: execution, registries, proxy dispatch,
//	│                callbacks, coroutines, sandboxing, memory accounting
//	├── marshal/     Stack marshaler between Value and Lua stack slots
//	├── anchor/      Generation-checked arena pinning interpreter objects
//	│                against garbage collection
//	├── errors/      Structured error taxonomy
//	└── modules/     Thin codec shims (JSON, YAML, TOML) registered as
//	                 host callbacks
//
// # Quick Start
//
// Create an engine, expose a data server, run a script:
//
//	eng, err := engine.New(engine.Config{Sandbox: engine.DefaultSandbox})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	eng.RegisterServer(myServer) // scripts see myServer.Namespace() as a global
//
//	result, err := eng.Eval(`config.network.port + 1`)
//
// # Path Resolution
//
// A DataServer answers for arbitrarily deep dotted paths without
// materializing the tree. Each nested access under its namespace fires
// one resolution hook with a path one segment longer than the last;
// intermediate segments hand the script an ephemeral proxy node,
// leaves hand it a marshaled Value. Writes go through the same path
// machinery gated by CanWrite.
//
// # Thread Safety
//
// One Engine serializes all of its public operations behind a single
// lock, including script execution and everything scripts trigger
// (resolution hooks, host callbacks). Under heavy host concurrency use
// a pool of engines, one per goroutine, rather than sharing one.
//
// # Memory Model
//
// The interpreter has no allocator hook, so accounting is cooperative:
// domain modules report sizes through the engine's memory accountant,
// which enforces the configured limit. The accountant carries its own
// lock so callbacks already running under the engine lock can use it.
package luaruntime
