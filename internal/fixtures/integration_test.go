package fixtures_test

import (
	"io"
	"os"
	"strings"
	"testing"

	"vesper/internal/compiler"
	"vesper/internal/fixtures"
	"vesper/internal/vm"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it — println/print (spec §5, §6 builtins) write
// straight to os.Stdout, so this is the only way to observe a fixture's
// actual output from outside the vm package.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	return string(out)
}

func runFixture(t *testing.T, name string) (string, error) {
	t.Helper()
	prog, ok := fixtures.Get(name)
	if !ok {
		t.Fatalf("unknown fixture %q", name)
	}
	compiled, typeReg, methods, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("Compile(%s): %v", name, err)
	}
	var runErr error
	out := captureStdout(t, func() {
		machine := vm.New(compiled, methods, typeReg)
		_, runErr = machine.Run()
	})
	return out, runErr
}

func TestFibFixturePrintsExpectedValue(t *testing.T) {
	out, err := runFixture(t, "fib")
	if err != nil {
		t.Fatalf("fib fixture errored: %v", err)
	}
	if got, want := strings.TrimSpace(out), "55"; got != want {
		t.Errorf("fib(10) printed %q, want %q", got, want)
	}
}

// TestDispatchDemoResolvesByRuntimeType exercises spec §8 scenario S2: two
// same-name methods on disjoint concrete types, called through a generic
// Any-typed caller, must resolve by the argument's actual runtime type via
// OpCallDynamic — not always pick the same (e.g. last-registered) method.
func TestDispatchDemoResolvesByRuntimeType(t *testing.T) {
	out, err := runFixture(t, "dispatch_demo")
	if err != nil {
		t.Fatalf("dispatch_demo fixture errored: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 printed lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "an integer" {
		t.Errorf("describe(7) dispatched to %q, want %q", lines[0], "an integer")
	}
	if lines[1] != "a float" {
		t.Errorf("describe(2.5) dispatched to %q, want %q", lines[1], "a float")
	}
}

func TestTryCatchDemoRunsCatchAndFinally(t *testing.T) {
	out, err := runFixture(t, "trycatch_demo")
	if err != nil {
		t.Fatalf("trycatch_demo fixture errored: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 printed lines (caught message + cleanup), got %d: %q", len(lines), out)
	}
	if lines[0] != "boom" {
		t.Errorf("caught exception message = %q, want %q", lines[0], "boom")
	}
	if lines[1] != "cleanup" {
		t.Errorf("finally block output = %q, want %q", lines[1], "cleanup")
	}
}

func TestAllFixturesCompileAndRunCleanly(t *testing.T) {
	for _, name := range fixtures.Names {
		name := name
		t.Run(name, func(t *testing.T) {
			if _, err := runFixture(t, name); err != nil {
				t.Errorf("%s: %v", name, err)
			}
		})
	}
}
