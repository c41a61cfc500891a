package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"loxvm/internal/chunk"
	"loxvm/internal/compiler"
	"loxvm/internal/statestore"
	"loxvm/internal/value"
	"loxvm/internal/vm"
)

const Version = "v1.0.0"

// Exit codes follow spec.md §6/§7's driver contract.
const (
	exitOk           = 0
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOFailure    = 74
	exitUsageError   = 64
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "panic:", r)
			debug.PrintStack()
			os.Exit(exitRuntimeError)
		}
	}()

	showDisassembly := flag.Bool("disassembly", false, "Show bytecode disassembly")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help message")
	showStats := flag.Bool("stats", false, "Print compile/run timing and bytecode size")
	stateBackend := flag.String("state-backend", "memory", "Global-state backend: memory, sqlite, dynamodb")
	statePath := flag.String("state-path", "loxvm.db", "sqlite database path (with -state-backend=sqlite)")
	stateTable := flag.String("state-table", "loxvm-globals", "DynamoDB table name (with -state-backend=dynamodb)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loxvm [options] [file]\n\nOptions:\n")
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  --%s\n\t%s\n", f.Name, f.Usage)
		})
	}
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(exitOk)
	}
	if *showVersion {
		fmt.Printf("loxvm %s\n", Version)
		os.Exit(exitOk)
	}

	cfg := config{
		disassembly:  *showDisassembly,
		stats:        *showStats,
		stateBackend: *stateBackend,
		statePath:    *statePath,
		stateTable:   *stateTable,
	}

	args := flag.Args()
	if len(args) < 1 {
		os.Exit(runREPL(cfg))
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(exitIOFailure)
	}
	os.Exit(runSource(cfg, string(content)))
}

type config struct {
	disassembly  bool
	stats        bool
	stateBackend string
	statePath    string
	stateTable   string
}

// openStore selects the statestore.Store named by cfg.stateBackend, wired
// the way SPEC_FULL.md §3.1 describes. It is opened against machine's own
// string table so globals restored from storage are interned the same way
// live execution interns them — otherwise a restored "hi" and a literal
// "hi" compiled afterward would compare unequal under spec.md's
// identity-after-interning rule.
func openStore(cfg config, machine *vm.VM) (statestore.Store, error) {
	switch cfg.stateBackend {
	case "memory", "":
		return statestore.Memory{}, nil
	case "sqlite":
		return statestore.OpenSQLite(cfg.statePath, machine.Strings())
	case "dynamodb":
		return statestore.OpenDynamoDB(context.Background(), cfg.stateTable, machine.Strings())
	default:
		return nil, fmt.Errorf("unknown -state-backend %q", cfg.stateBackend)
	}
}

func runSource(cfg config, source string) int {
	start := time.Now()
	machine := vm.New()
	store, err := openStore(cfg, machine)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}
	restoreGlobals(store, machine)
	bytecodeSize := 0

	if cfg.disassembly || cfg.stats {
		fn, errs := compiler.Compile(source, machine.Strings())
		if fn == nil {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			return exitCompileError
		}
		c := fn.Chunk.(*chunk.Chunk)
		bytecodeSize = len(c.Code)
		if cfg.disassembly {
			c.Disassemble("main")
			fmt.Println()
		}
	}

	compileStart := time.Now()
	result := machine.Interpret(source)
	runDuration := time.Since(compileStart)

	if cfg.stats {
		printStats(machine, time.Since(start), runDuration, bytecodeSize)
	}

	saveGlobals(store, machine)

	switch result {
	case vm.Ok:
		return exitOk
	case vm.CompileErr:
		return exitCompileError
	case vm.RuntimeErr:
		return exitRuntimeError
	default:
		return exitRuntimeError
	}
}

func runREPL(cfg config) int {
	interactive := isatty.IsTerminal(os.Stdin.Fd())
	if interactive {
		fmt.Printf("loxvm REPL %s\n", Version)
		fmt.Println("Type 'exit' to quit.")
	}

	machine := vm.New()
	store, err := openStore(cfg, machine)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}
	restoreGlobals(store, machine)

	in := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !in.Scan() {
			break
		}
		line := in.Text()
		if line == "exit" {
			break
		}
		if line == "" {
			continue
		}

		result := machine.Interpret(line)
		if result == vm.RuntimeErr {
			saveGlobals(store, machine)
			return exitRuntimeError
		}
	}

	saveGlobals(store, machine)
	return exitOk
}

func printStats(machine *vm.VM, total, run time.Duration, bytecodeSize int) {
	fmt.Fprintf(os.Stderr, "compile+run: %s (run: %s)\n",
		humanize.RelTime(time.Now().Add(-total), time.Now(), "", ""),
		humanize.RelTime(time.Now().Add(-run), time.Now(), "", ""))
	fmt.Fprintf(os.Stderr, "bytecode size: %s\n", humanize.Bytes(uint64(bytecodeSize)))
	fmt.Fprintf(os.Stderr, "globals defined: %s\n", humanize.Comma(int64(machine.GlobalCount())))
}

func saveGlobals(store statestore.Store, machine *vm.VM) {
	snap := statestore.Snapshot{}
	machine.WalkGlobals(func(name string, v value.Value) {
		if statestore.Scalar(v) {
			snap[name] = v
		}
	})
	if err := store.Save(context.Background(), snap); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not persist globals:", err)
	}
}

func restoreGlobals(store statestore.Store, machine *vm.VM) {
	snap, err := store.Load(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not restore globals:", err)
		return
	}
	for name, v := range snap {
		machine.SetGlobal(name, v)
	}
}
