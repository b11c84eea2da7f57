package luaruntime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindMap
	KindFunction
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindFunction:
		return "function"
	case KindComplex:
		return "complex"
	}
	return "unknown"
}

// FuncRef is an opaque handle to a script function anchored by the engine.
// It is identity-preserving, not value-preserving: pushing it back onto
// the stack re-uses the anchored function object.
type FuncRef uint64

// Value is the closed tagged union crossing the host/script boundary.
// Only the field selected by Kind is meaningful. Values are constructed
// fresh on every pull and never alias interpreter state.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Array  []Value
	Map    map[string]Value
	Fn     FuncRef
	Re     float64
	Im     float64
}

// Nil returns the nil Value.
func Nil() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Array returns an ordered sequence Value.
func Array(elems ...Value) Value {
	return Value{Kind: KindArray, Array: elems}
}

// Map returns a string-keyed Value. Insertion order is not preserved.
func Map(m map[string]Value) Value {
	return Value{Kind: KindMap, Map: m}
}

// Function wraps an anchored function handle.
func Function(ref FuncRef) Value { return Value{Kind: KindFunction, Fn: ref} }

// Complex returns the structured extension Value carrying two numeric
// fields.
func Complex(re, im float64) Value {
	return Value{Kind: KindComplex, Re: re, Im: im}
}

// IsNil reports whether v is the nil Value.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// Equal performs deep comparison. Function values compare by handle
// identity.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindNumber:
		return v.Number == o.Number
	case KindString:
		return v.Str == o.Str
	case KindArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, el := range v.Map {
			other, ok := o.Map[k]
			if !ok || !el.Equal(other) {
				return false
			}
		}
		return true
	case KindFunction:
		return v.Fn == o.Fn
	case KindComplex:
		return v.Re == o.Re && v.Im == o.Im
	}
	return false
}

// String renders a human-readable form, primarily for logs and the REPL.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindArray:
		parts := make([]string, len(v.Array))
		for i, el := range v.Array {
			parts[i] = el.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + v.Map[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindFunction:
		return fmt.Sprintf("function<%d>", uint64(v.Fn))
	case KindComplex:
		if v.Im < 0 {
			return fmt.Sprintf("%g%gi", v.Re, v.Im)
		}
		return fmt.Sprintf("%g+%gi", v.Re, v.Im)
	}
	return "?"
}

// Path is a dotted access path under a data server namespace, one
// element per segment.
type Path []string

// Child returns a new Path extended by one segment. The receiver is
// never mutated; proxy nodes share path prefixes.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

func (p Path) String() string { return strings.Join(p, ".") }

// Resolution is the explicit tagged outcome of a path lookup. A Leaf
// ends traversal with a concrete value; an Intermediate tells the
// engine to hand the script a lazy proxy for the next segment.
type Resolution struct {
	Value Value
	Leaf  bool
}

// Leaf marks path as fully resolved to v.
func Leaf(v Value) Resolution { return Resolution{Value: v, Leaf: true} }

// Intermediate marks path as a non-leaf segment; deeper access will
// re-resolve with a longer path.
func Intermediate() Resolution { return Resolution{} }

// DataServer exposes a hierarchical read-only namespace to scripts.
// Resolve must be total: unknown and intermediate paths return
// Intermediate, never an error. A server that returns a Leaf for an
// intermediate segment permanently blocks deeper traversal down that
// branch; that is an authoring contract, not checked at runtime.
//
// The engine serializes all calls into one server instance per engine.
// A server registered with several engines running on different host
// threads must handle its own synchronization.
type DataServer interface {
	// Namespace is the global name scripts use to reach this server.
	Namespace() string

	// Resolve answers for one accumulated path.
	Resolve(path Path) Resolution
}

// WritableServer is the optional write extension of DataServer.
// CanWrite is consulted before every Write; when it returns false the
// engine rejects the assignment without calling Write.
type WritableServer interface {
	DataServer

	CanWrite(path Path) bool
	Write(path Path, v Value) error
}
