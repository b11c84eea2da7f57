package engine

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Config is consumed once at engine construction.
type Config struct {
	// Sandbox lists interpreter entry points to disable, in order.
	// Entries are dotted names: "os.execute" clears one function,
	// "io" clears the whole library table.
	Sandbox []string

	// ModulePath overrides the interpreter's module search path
	// (package.path). Empty keeps the default.
	ModulePath string

	// MemoryLimit is the accounting limit in bytes; 0 means unlimited.
	MemoryLimit uint64
}

// DefaultSandbox disables the entry points that reach outside the
// process. The list is ordered; later entries may assume earlier ones
// already applied.
var DefaultSandbox = []string{
	"os.execute",
	"os.exit",
	"os.remove",
	"os.rename",
	"os.tmpname",
	"os.setlocale",
	"io",
	"loadfile",
	"dofile",
	"package.loadlib",
}

// applySandbox clears each listed entry point. Missing intermediates
// are skipped silently; the policy is declarative, not a probe.
func applySandbox(L *lua.LState, entries []string) {
	for _, entry := range entries {
		segs := strings.Split(entry, ".")
		if len(segs) == 1 {
			L.SetGlobal(segs[0], lua.LNil)
			continue
		}

		container, ok := L.GetGlobal(segs[0]).(*lua.LTable)
		if !ok {
			continue
		}
		for _, seg := range segs[1 : len(segs)-1] {
			container, ok = container.RawGetString(seg).(*lua.LTable)
			if !ok {
				break
			}
		}
		if ok {
			container.RawSetString(segs[len(segs)-1], lua.LNil)
		}
	}
}
