package compiler

import (
	"strings"
	"testing"

	"vesper/internal/ir"
	"vesper/internal/types"
)

func simpleProgram() *ir.Program {
	i64 := types.Primitive(types.Int64)
	fn := ir.Function{
		Name:       "double",
		Params:     []ir.Param{{Name: "n", TypeAnnotation: &i64}},
		Body:       ir.Block{&ir.ReturnStmt{Value: &ir.BinaryOp{Op: "+", Left: &ir.Var{Name: "n"}, Right: &ir.Var{Name: "n"}}}},
		ReturnType: &i64,
	}
	main := ir.Block{
		&ir.ExprStmt{Value: &ir.Call{Name: "double", Args: []ir.Expr{&ir.IntLit{Value: 21}}}},
	}
	return &ir.Program{Functions: []ir.Function{fn}, Main: main}
}

func TestDisassembleIncludesBuildIDAndFunctionNames(t *testing.T) {
	prog, _, _, err := Compile(simpleProgram())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := Disassemble(prog)
	if !strings.Contains(out, prog.BuildID) {
		t.Error("Disassemble output should include the program's BuildID")
	}
	if !strings.Contains(out, "fn double") {
		t.Error("Disassemble output should list the double function by name")
	}
	if !strings.Contains(out, "fn main") {
		t.Error("Disassemble output should list the synthetic main function")
	}
}

func TestDisassembleRendersConstAndSlotOperands(t *testing.T) {
	prog, _, _, err := Compile(simpleProgram())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := Disassemble(prog)
	if !strings.Contains(out, "const[0]=21") {
		t.Errorf("expected the literal 21 to be rendered inline, got:\n%s", out)
	}
	if !strings.Contains(out, "slot=") {
		t.Errorf("expected at least one slot-based load/store to be rendered, got:\n%s", out)
	}
}
