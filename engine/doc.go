// Package engine owns the interpreter instance and composes the
// bridging layers into the public embedding surface.
//
// One Engine serializes every public operation behind a single lock:
// run/eval, server and callback registration, and the coroutine
// lifecycle. Everything a script triggers while running (path
// resolution hooks, host callbacks) executes under that same lock, so
// per-engine state needs no further synchronization. The lock is
// reentrant on the owning goroutine: a callback or data-server hook
// may call back into Eval, Run, CallFunction or the registration
// methods, and the nested call joins the operation in flight rather
// than deadlocking. Calls from other goroutines still block until the
// outermost operation returns. The memory accountant is the one
// exception to the single lock: it has an independent lock so callback
// code already inside a locked call can account allocations without
// deadlocking.
//
// Errors raised inside proxy writes and callbacks cannot cross the
// interpreter's native error channel with structure intact, so hooks
// record the structured error in an engine-local side channel and
// raise natively; run/eval consults the side channel before falling
// back to classifying the native message.
//
// For heavy host concurrency, prefer a pool of engines (one per
// goroutine) over sharing a single engine across threads.
package engine
