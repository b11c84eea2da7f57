// Package modules provides the bundled codec shims: thin delegations
// from script-callable functions to JSON, YAML and TOML libraries.
//
// Each shim is an ordinary host callback registered through the
// engine; encoded and decoded byte sizes are charged to the engine's
// memory accountant via the explicit call context, so scripts hit the
// configured limit instead of growing unbounded.
package modules
