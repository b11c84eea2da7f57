package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/wippyai/lua-runtime/engine"
	"github.com/wippyai/lua-runtime/modules"
)

func main() {
	var (
		script      = flag.String("script", "", "Path to script file")
		expr        = flag.String("e", "", "Expression to evaluate")
		interactive = flag.Bool("i", false, "Interactive REPL")
		memLimit    = flag.Uint64("mem", 0, "Memory accounting limit in bytes (0 = unlimited)")
		modulePath  = flag.String("path", "", "Module search path (package.path)")
		unsafe      = flag.Bool("unsafe", false, "Disable the default sandbox")
	)
	flag.Parse()

	if *script == "" && *expr == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: run -script <file.lua> [-mem N] [-path P]")
		fmt.Fprintln(os.Stderr, "       run -e <expression>")
		fmt.Fprintln(os.Stderr, "       run -i  (interactive REPL)")
		os.Exit(1)
	}

	cfg := engine.Config{
		ModulePath:  *modulePath,
		MemoryLimit: *memLimit,
	}
	if !*unsafe {
		cfg.Sandbox = engine.DefaultSandbox
	}

	eng, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	if err := modules.RegisterAll(eng); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(eng); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *expr != "" {
		result, err := eng.Eval(*expr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(result)
		return
	}

	code, err := os.ReadFile(*script)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read file: %v\n", err)
		os.Exit(1)
	}
	if err := eng.Run(string(code)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
