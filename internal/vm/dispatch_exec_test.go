package vm

import (
	"testing"

	"vesper/internal/bytecode"
	"vesper/internal/dispatch"
	"vesper/internal/types"
)

func newTestVMWithFunctions(fns ...bytecode.FunctionInfo) *VM {
	prog := bytecode.NewCompiledProgram()
	for _, fn := range fns {
		prog.AppendFunction(fn)
	}
	return New(prog, dispatch.NewRegistry(), types.NewRegistry())
}

func TestSelectDynamicCandidatePicksExactTypeMatch(t *testing.T) {
	v := newTestVMWithFunctions(
		bytecode.FunctionInfo{Name: "describe", ParamJuliaTypes: []string{types.Int64}},
		bytecode.FunctionInfo{Name: "describe", ParamJuliaTypes: []string{types.Float64}},
	)
	cands := []bytecode.DispatchCandidate{{GlobalIndex: 0}, {GlobalIndex: 1}}

	idx, ok := v.selectDynamicCandidate(cands, []Value{Int64(7)})
	if !ok || idx != 0 {
		t.Errorf("Int64 arg should select candidate 0, got idx=%d ok=%v", idx, ok)
	}

	idx, ok = v.selectDynamicCandidate(cands, []Value{Float64(2.5)})
	if !ok || idx != 1 {
		t.Errorf("Float64 arg should select candidate 1, got idx=%d ok=%v", idx, ok)
	}
}

func TestSelectDynamicCandidateNoMatchReturnsFalse(t *testing.T) {
	v := newTestVMWithFunctions(
		bytecode.FunctionInfo{Name: "describe", ParamJuliaTypes: []string{types.Int64}},
	)
	cands := []bytecode.DispatchCandidate{{GlobalIndex: 0}}
	if _, ok := v.selectDynamicCandidate(cands, []Value{Str("nope")}); ok {
		t.Error("a String argument against an Int64-only candidate should not match")
	}
}

func TestSelectDynamicCandidateArityMismatchSkipsCandidate(t *testing.T) {
	v := newTestVMWithFunctions(
		bytecode.FunctionInfo{Name: "f", ParamJuliaTypes: []string{types.Int64, types.Int64}},
		bytecode.FunctionInfo{Name: "f", ParamJuliaTypes: []string{types.Int64}},
	)
	cands := []bytecode.DispatchCandidate{{GlobalIndex: 0}, {GlobalIndex: 1}}
	idx, ok := v.selectDynamicCandidate(cands, []Value{Int64(1)})
	if !ok || idx != 1 {
		t.Errorf("only the 1-arg candidate should match a single argument, got idx=%d ok=%v", idx, ok)
	}
}

func TestSelectDynamicCandidatePrefersMoreSpecificOverAbstract(t *testing.T) {
	v := newTestVMWithFunctions(
		bytecode.FunctionInfo{Name: "f", ParamJuliaTypes: []string{types.NumberName}},
		bytecode.FunctionInfo{Name: "f", ParamJuliaTypes: []string{types.Int64}},
	)
	cands := []bytecode.DispatchCandidate{{GlobalIndex: 0}, {GlobalIndex: 1}}
	idx, ok := v.selectDynamicCandidate(cands, []Value{Int64(3)})
	if !ok || idx != 1 {
		t.Errorf("the exact Int64 overload should outscore the abstract Number overload, got idx=%d ok=%v", idx, ok)
	}
}

func TestSelectDynamicCandidateOutOfRangeGlobalIndexIsSkipped(t *testing.T) {
	v := newTestVMWithFunctions(
		bytecode.FunctionInfo{Name: "f", ParamJuliaTypes: []string{types.Int64}},
	)
	cands := []bytecode.DispatchCandidate{{GlobalIndex: 99}, {GlobalIndex: 0}}
	idx, ok := v.selectDynamicCandidate(cands, []Value{Int64(1)})
	if !ok || idx != 0 {
		t.Errorf("an out-of-range candidate should be skipped, not crash; got idx=%d ok=%v", idx, ok)
	}
}
