// Package fixtures holds small, hand-built ir.Program values the CLI and
// tests compile and run directly. The surface parser/lowering stage is out
// of scope (spec §1), so there is no source text to feed `vesper compile` —
// these play the role the teacher's `sentra init` scaffold plays for its own
// CLI (cmd/sentra/commands/build.go's InitCommand writes a canned main.sn):
// a known-good, runnable program to exercise the pipeline end to end.
package fixtures

import (
	"vesper/internal/ir"
	"vesper/internal/types"
)

// Names lists every fixture the CLI's `compile`/`run`/`test` subcommands can
// address by name.
var Names = []string{"fib", "dispatch_demo", "trycatch_demo"}

func Get(name string) (*ir.Program, bool) {
	switch name {
	case "fib":
		return fib(), true
	case "dispatch_demo":
		return dispatchDemo(), true
	case "trycatch_demo":
		return tryCatchDemo(), true
	}
	return nil, false
}

// fib: recursive Fibonacci over Int64, run from main and printed. Exercises
// Call (self-recursion via global_index), IfStmt, BinaryOp arithmetic,
// ReturnStmt.
func fib() *ir.Program {
	i64 := types.Primitive(types.Int64)
	body := ir.Block{
		&ir.IfStmt{
			Cond: &ir.BinaryOp{Op: "<=", Left: &ir.Var{Name: "n"}, Right: &ir.IntLit{Value: 1}},
			Then: ir.Block{&ir.ReturnStmt{Value: &ir.Var{Name: "n"}}},
		},
		&ir.ReturnStmt{Value: &ir.BinaryOp{
			Op: "+",
			Left: &ir.Call{Name: "fib", Args: []ir.Expr{
				&ir.BinaryOp{Op: "-", Left: &ir.Var{Name: "n"}, Right: &ir.IntLit{Value: 1}},
			}},
			Right: &ir.Call{Name: "fib", Args: []ir.Expr{
				&ir.BinaryOp{Op: "-", Left: &ir.Var{Name: "n"}, Right: &ir.IntLit{Value: 2}},
			}},
		}},
	}
	fn := ir.Function{
		Name:       "fib",
		Params:     []ir.Param{{Name: "n", TypeAnnotation: &i64}},
		Body:       body,
		ReturnType: &i64,
	}
	main := ir.Block{
		&ir.ExprStmt{Value: &ir.Builtin{Name: "println", Args: []ir.Expr{
			&ir.Call{Name: "fib", Args: []ir.Expr{&ir.IntLit{Value: 10}}},
		}}},
	}
	return &ir.Program{Functions: []ir.Function{fn}, Main: main}
}

// dispatchDemo: two methods named "describe" on disjoint concrete types
// (Int64, Float64) plus a generic `Any`-typed caller, so the describe(x)
// call inside show must resolve at runtime via CallDynamic's scored
// candidate table rather than statically (spec §4.1).
func dispatchDemo() *ir.Program {
	i64 := types.Primitive(types.Int64)
	f64 := types.Primitive(types.Float64)
	any := types.Any()

	describeInt := ir.Function{
		Name:       "describe",
		Params:     []ir.Param{{Name: "x", TypeAnnotation: &i64}},
		Body:       ir.Block{&ir.ReturnStmt{Value: &ir.StringLit{Value: "an integer"}}},
		ReturnType: &types.JuliaType{Kind: types.KindPrimitive, Name: types.String},
	}
	describeFloat := ir.Function{
		Name:       "describe",
		Params:     []ir.Param{{Name: "x", TypeAnnotation: &f64}},
		Body:       ir.Block{&ir.ReturnStmt{Value: &ir.StringLit{Value: "a float"}}},
		ReturnType: &types.JuliaType{Kind: types.KindPrimitive, Name: types.String},
	}
	show := ir.Function{
		Name:   "show_describe",
		Params: []ir.Param{{Name: "x", TypeAnnotation: &any}},
		Body: ir.Block{
			&ir.ExprStmt{Value: &ir.Builtin{Name: "println", Args: []ir.Expr{
				&ir.Call{Name: "describe", Args: []ir.Expr{&ir.Var{Name: "x"}}},
			}}},
		},
	}
	main := ir.Block{
		&ir.ExprStmt{Value: &ir.Call{Name: "show_describe", Args: []ir.Expr{&ir.IntLit{Value: 7}}}},
		&ir.ExprStmt{Value: &ir.Call{Name: "show_describe", Args: []ir.Expr{&ir.FloatLit{Value: 2.5}}}},
	}
	return &ir.Program{
		Functions: []ir.Function{describeInt, describeFloat, show},
		Main:      main,
	}
}

// tryCatchDemo: a function that raises, caught by the caller's try/catch/
// finally, exercising OpPushHandler/OpRaise and the compiler's finally-replay
// path on both the normal and the exceptional edge.
func tryCatchDemo() *ir.Program {
	boom := ir.Function{
		Name: "boom",
		Body: ir.Block{
			&ir.ExprStmt{Value: &ir.Builtin{Name: "error", Args: []ir.Expr{&ir.StringLit{Value: "boom"}}}},
		},
	}
	main := ir.Block{
		&ir.TryStmt{
			Body:     ir.Block{&ir.ExprStmt{Value: &ir.Call{Name: "boom"}}},
			CatchVar: "e",
			CatchBody: ir.Block{
				&ir.ExprStmt{Value: &ir.Builtin{Name: "println", Args: []ir.Expr{&ir.Var{Name: "e"}}}},
			},
			FinallyBody: ir.Block{
				&ir.ExprStmt{Value: &ir.Builtin{Name: "println", Args: []ir.Expr{&ir.StringLit{Value: "cleanup"}}}},
			},
		},
	}
	return &ir.Program{Functions: []ir.Function{boom}, Main: main}
}
