// cmd/vesper/main.go
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"vesper/internal/bytecode"
	"vesper/internal/compiler"
	"vesper/internal/dispatch"
	"vesper/internal/fixtures"
	"vesper/internal/types"
	"vesper/internal/vm"
)

const version = "0.1.0"

// commandAliases mirrors the teacher's single-letter alias table
// (cmd/sentra/main.go's commandAliases + switch cmd dispatch) rather than
// pulling in a flag/CLI framework.
var commandAliases = map[string]string{
	"c": "compile",
	"r": "run",
	"d": "disasm",
	"t": "test",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("vesper", version)
	case "compile":
		if err := compileCommand(args[1:]); err != nil {
			log.Fatalf("compile: %v", err)
		}
	case "run":
		if err := runCommand(args[1:]); err != nil {
			log.Fatalf("run: %v", err)
		}
	case "disasm":
		if err := disasmCommand(args[1:]); err != nil {
			log.Fatalf("disasm: %v", err)
		}
	case "test":
		if err := testCommand(args[1:]); err != nil {
			log.Fatalf("test: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`vesper - AOT compiler and bytecode VM

Usage:
  vesper compile <fixture> -o <out.json>   compile a built-in IR fixture to a CompiledProgram
  vesper run <program.json>                run a compiled program
  vesper disasm <program.json>             print a disassembly listing
  vesper test <fixture>                    compile and run a fixture, report pass/fail

Fixtures (parsing/lowering is out of scope, so these stand in for source
files): ` + fmt.Sprint(fixtures.Names))
}

func compileCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vesper compile <fixture> [-o out.json]")
	}
	prog, ok := fixtures.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown fixture %q (have %v)", args[0], fixtures.Names)
	}
	out, _, _, err := compiler.Compile(prog) // (program, *types.Registry, *dispatch.Registry, error)
	if err != nil {
		return err
	}

	outPath := ""
	for i := 1; i < len(args)-1; i++ {
		if args[i] == "-o" {
			outPath = args[i+1]
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0644)
}

// runCommand accepts either a path to a previously compiled program.json, or
// a fixture name compiled on the fly — a program only needs the dispatch and
// type registries compile produced alongside it, so compiling in-process
// skips the lossy round trip through JSON for ad hoc runs.
func runCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vesper run <fixture|program.json>")
	}
	program, methods, typeReg, err := loadRunnable(args[0])
	if err != nil {
		return err
	}
	machine := vm.New(program, methods, typeReg)
	result, runErr := machine.Run()
	if runErr != nil {
		return runErr
	}
	fmt.Println(result.String())
	return nil
}

func disasmCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vesper disasm <fixture|program.json>")
	}
	program, _, _, err := loadRunnable(args[0])
	if err != nil {
		return err
	}
	fmt.Print(compiler.Disassemble(program))
	return nil
}

func testCommand(args []string) error {
	if len(args) < 1 {
		names := fixtures.Names
		for _, n := range names {
			if err := runFixtureTest(n); err != nil {
				fmt.Printf("FAIL %s: %v\n", n, err)
				continue
			}
			fmt.Printf("PASS %s\n", n)
		}
		return nil
	}
	return runFixtureTest(args[0])
}

func runFixtureTest(name string) error {
	prog, ok := fixtures.Get(name)
	if !ok {
		return fmt.Errorf("unknown fixture %q", name)
	}
	out, typeReg, methods, err := compiler.Compile(prog)
	if err != nil {
		return err
	}
	machine := vm.New(out, methods, typeReg)
	_, runErr := machine.Run()
	return runErr
}

func loadRunnable(arg string) (*bytecode.CompiledProgram, *dispatch.Registry, *types.Registry, error) {
	if prog, ok := fixtures.Get(arg); ok {
		out, typeReg, methods, err := compiler.Compile(prog)
		return out, methods, typeReg, err
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("neither a known fixture nor a readable file: %w", err)
	}
	out := new(bytecode.CompiledProgram)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, nil, nil, err
	}
	// A bare CompiledProgram.json has no dispatch/type registries attached
	// (those aren't part of the wire format, see DESIGN.md); runs of such a
	// file are limited to programs with no runtime dispatch.
	return out, dispatch.NewRegistry(), types.NewRegistry(), nil
}
