// Package errors provides structured error types for the lua-runtime
// library.
//
// Errors are categorized by Code and may carry the data-server path
// they refer to plus a cause chain. Use the Builder for structured
// construction:
//
//	err := errors.New(errors.CodeReadOnly).
//		Path("config.network.port").
//		Detail("port is fixed at startup").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ReadOnly("config.network.port")
//	err := errors.Coroutine("cannot resume dead coroutine")
//
// FromLua classifies raw interpreter errors into the taxonomy; the
// native error channel only carries strings, so structured errors that
// originate host-side are transported around the interpreter through
// the engine's side channel instead (see the engine package).
//
// All errors implement the standard error interface and support
// errors.Is/As.
package errors
