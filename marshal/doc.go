// Package marshal converts between host Values and interpreter stack
// slots.
//
// Composite values recurse depth-first. Tables are disambiguated by a
// single O(n) pass over their keys: a table whose keys are exactly the
// contiguous run 1..count is an Array, anything else is a Map with
// keys coerced to string form. Function slots are never copied by
// value; they are pinned in an anchor arena and travel as opaque
// handles.
package marshal
