package bytecode

import "testing"

func TestNewCompiledProgramAssignsUniqueBuildIDs(t *testing.T) {
	a := NewCompiledProgram()
	b := NewCompiledProgram()
	if a.BuildID == "" || b.BuildID == "" {
		t.Fatal("BuildID should never be empty")
	}
	if a.BuildID == b.BuildID {
		t.Error("two independently-created programs should get distinct BuildIDs")
	}
	if a.Code == nil {
		t.Error("NewCompiledProgram should allocate an empty Code chunk")
	}
	if a.ShowMethods == nil {
		t.Error("NewCompiledProgram should allocate the ShowMethods map")
	}
}

func TestAppendFunctionReturnsGlobalIndexInOrder(t *testing.T) {
	p := NewCompiledProgram()
	i0 := p.AppendFunction(FunctionInfo{Name: "fib"})
	i1 := p.AppendFunction(FunctionInfo{Name: "main"})
	if i0 != 0 || i1 != 1 {
		t.Fatalf("AppendFunction indices = %d, %d, want 0, 1", i0, i1)
	}
	if p.Functions[i0].Name != "fib" || p.Functions[i1].Name != "main" {
		t.Error("AppendFunction should preserve insertion order")
	}
}

func TestValidCallTarget(t *testing.T) {
	p := NewCompiledProgram()
	p.AppendFunction(FunctionInfo{Name: "f"})
	tests := []struct {
		idx  int
		want bool
	}{
		{0, true},
		{1, false},
		{-1, false},
	}
	for _, tt := range tests {
		if got := p.ValidCallTarget(tt.idx); got != tt.want {
			t.Errorf("ValidCallTarget(%d) = %v, want %v", tt.idx, got, tt.want)
		}
	}
}

func TestCachePrefixCompatible(t *testing.T) {
	p := NewCompiledProgram()
	p.AppendFunction(FunctionInfo{Name: "a"})
	p.AppendFunction(FunctionInfo{Name: "b"})

	if p.CachePrefixCompatible("some-base-id") {
		t.Error("a program with BaseFunctionCount 0 should never be cache-prefix compatible")
	}

	p.BaseFunctionCount = 2
	if !p.CachePrefixCompatible("some-base-id") {
		t.Error("a program whose Functions cover the declared base segment should be compatible")
	}

	p.BaseFunctionCount = 5
	if p.CachePrefixCompatible("some-base-id") {
		t.Error("a program with fewer functions than its declared base count should not be compatible")
	}

	p.BaseFunctionCount = 2
	if p.CachePrefixCompatible("") {
		t.Error("an empty candidate base build id should never be compatible")
	}
}
