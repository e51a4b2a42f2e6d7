package compiler

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"vesper/internal/bytecode"
)

// Disassemble renders a CompiledProgram as a human-readable listing: one
// section per function, one line per instruction, with operator/operand
// names resolved rather than left as raw integers. Grounded in the teacher's
// build report (cmd/sentra/commands/build.go's "Build complete: %s (%d
// bytes)" summary line) — this is the same kind of operator-facing artifact,
// scaled up to per-instruction granularity since there's no linked binary to
// report a single size for.
func Disassemble(prog *bytecode.CompiledProgram) string {
	var b strings.Builder

	fmt.Fprintf(&b, "build %s\n", prog.BuildID)
	fmt.Fprintf(&b, "functions: %s, instructions: %s, constants: %s\n\n",
		humanize.Comma(int64(len(prog.Functions))),
		humanize.Comma(int64(prog.Code.Len())),
		humanize.Comma(int64(len(prog.Code.Constants))))

	for idx, fn := range prog.Functions {
		fmt.Fprintf(&b, "fn %s  ; global_index=%d entry=%d [%d,%d) slots=%d\n",
			fn.Name, idx, fn.Entry, fn.CodeStart, fn.CodeEnd, fn.LocalSlotCount)
		for ip := fn.CodeStart; ip < fn.CodeEnd && ip < prog.Code.Len(); ip++ {
			fmt.Fprintf(&b, "  %6d  %s\n", ip, disasmInstr(prog, prog.Code.Code[ip]))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "struct heap layout: %d struct types, %s of field pointers (estimate, 8 bytes per field)\n",
		len(prog.StructDefs), humanize.Bytes(uint64(totalFieldCount(prog)*8)))

	return b.String()
}

func totalFieldCount(prog *bytecode.CompiledProgram) int {
	n := 0
	for _, s := range prog.StructDefs {
		n += len(s.Fields)
	}
	return n
}

func disasmInstr(prog *bytecode.CompiledProgram, instr bytecode.Instr) string {
	switch instr.Op {
	case bytecode.OpPushConst:
		return fmt.Sprintf("%-22s const[%d]=%v", instr.Op, instr.ConstIndex, constAt(prog, instr.ConstIndex))
	case bytecode.OpLoadSlot, bytecode.OpStoreSlot:
		return fmt.Sprintf("%-22s slot=%d", instr.Op, instr.A)
	case bytecode.OpLoadGlobal, bytecode.OpStoreGlobal, bytecode.OpDefineGlobal:
		return fmt.Sprintf("%-22s %s", instr.Op, instr.Name)
	case bytecode.OpJump, bytecode.OpJumpIfZero, bytecode.OpJumpIfNotZero:
		return fmt.Sprintf("%-22s -> %d", instr.Op, instr.A)
	case bytecode.OpCall:
		return fmt.Sprintf("%-22s target=%d argc=%d", instr.Op, instr.A, instr.B)
	case bytecode.OpCallBuiltin, bytecode.OpCallIntrinsic:
		return fmt.Sprintf("%-22s %s argc=%d", instr.Op, instr.Name, instr.A)
	case bytecode.OpCallDynamicBinaryBoth, bytecode.OpCallDynamicUnary:
		return fmt.Sprintf("%-22s candidates=%d fallback=%s shadows=%v",
			instr.Op, len(instr.Candidates), instr.FallbackOp, instr.ShadowsPrimitives)
	case bytecode.OpCallDynamic:
		return fmt.Sprintf("%-22s candidates=%d argc=%d", instr.Op, len(instr.Candidates), instr.B)
	case bytecode.OpGetField, bytecode.OpSetField, bytecode.OpSetFieldByName:
		return fmt.Sprintf("%-22s .%s", instr.Op, instr.Name)
	case bytecode.OpPushHandler:
		return fmt.Sprintf("%-22s catch=%d var=%q", instr.Op, instr.A, instr.Name)
	case bytecode.OpCreateClosure:
		return fmt.Sprintf("%-22s %s captures=%v", instr.Op, instr.Name, instr.Captures)
	case bytecode.OpNewArray, bytecode.OpNewTuple, bytecode.OpNewDict, bytecode.OpNewSet:
		return fmt.Sprintf("%-22s n=%d", instr.Op, instr.A)
	default:
		return instr.Op.String()
	}
}

func constAt(prog *bytecode.CompiledProgram, idx int) interface{} {
	if idx < 0 || idx >= len(prog.Code.Constants) {
		return nil
	}
	return prog.Code.Constants[idx]
}
