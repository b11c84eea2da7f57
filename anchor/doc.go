// Package anchor provides a generation-checked arena for pinning
// interpreter objects against garbage collection.
//
// The engine must keep coroutine threads and function values reachable
// while the host holds handles to them; the arena is that strong
// reference. Refs embed a generation so that a handle outliving its
// entry fails a cheap check instead of dereferencing a recycled slot.
package anchor
