package compiler

import (
	"testing"

	"vesper/internal/bytecode"
)

func TestPeepholePreservesInstructionCount(t *testing.T) {
	chunk := bytecode.NewChunk()
	ci := chunk.AddConstant(int64(42))
	chunk.Emit(bytecode.Instr{Op: bytecode.OpPushConst, ConstIndex: ci})
	chunk.Emit(bytecode.Instr{Op: bytecode.OpReturn})
	chunk.Emit(bytecode.Instr{Op: bytecode.OpJump, A: 0})

	before := chunk.Len()
	Peephole(chunk)
	if chunk.Len() != before {
		t.Fatalf("Peephole must be length-preserving: before=%d after=%d", before, chunk.Len())
	}
}

func TestFuseReturnImmRewritesPushConstReturn(t *testing.T) {
	chunk := bytecode.NewChunk()
	ci := chunk.AddConstant(int64(7))
	chunk.Emit(bytecode.Instr{Op: bytecode.OpPushConst, ConstIndex: ci})
	chunk.Emit(bytecode.Instr{Op: bytecode.OpReturn})

	fuseReturnImm(chunk)

	if chunk.Code[0].Op != bytecode.OpReturnImm {
		t.Errorf("Code[0].Op = %v, want OpReturnImm", chunk.Code[0].Op)
	}
	if chunk.Code[0].ConstIndex != ci {
		t.Errorf("Code[0].ConstIndex = %d, want %d", chunk.Code[0].ConstIndex, ci)
	}
	if chunk.Code[1].Op != bytecode.OpReturnNil {
		t.Errorf("Code[1].Op = %v, want OpReturnNil (dead filler)", chunk.Code[1].Op)
	}
}

func TestFuseReturnImmLeavesOtherPatternsAlone(t *testing.T) {
	chunk := bytecode.NewChunk()
	chunk.Emit(bytecode.Instr{Op: bytecode.OpPushNil})
	chunk.Emit(bytecode.Instr{Op: bytecode.OpReturn})
	fuseReturnImm(chunk)
	if chunk.Code[0].Op != bytecode.OpPushNil {
		t.Error("PushNil;Return should not be rewritten — only PushConst;Return is fused")
	}
	if chunk.Code[1].Op != bytecode.OpReturn {
		t.Error("the trailing Return should be left as-is when the preceding op isn't PushConst")
	}
}

func TestCollapseJumpChainsRetargetsToFinalDestination(t *testing.T) {
	chunk := bytecode.NewChunk()
	// 0: Jump -> 1 (a chain link)
	// 1: Jump -> 2 (another chain link)
	// 2: PushNil (the real final destination)
	chunk.Emit(bytecode.Instr{Op: bytecode.OpJump, A: 1})
	chunk.Emit(bytecode.Instr{Op: bytecode.OpJump, A: 2})
	chunk.Emit(bytecode.Instr{Op: bytecode.OpPushNil})

	collapseJumpChains(chunk)

	if chunk.Code[0].A != 2 {
		t.Errorf("Code[0].A = %d, want 2 (collapsed through the chain)", chunk.Code[0].A)
	}
	if chunk.Code[1].A != 2 {
		t.Errorf("Code[1].A = %d, want 2 (already pointed at the final destination)", chunk.Code[1].A)
	}
}

func TestCollapseJumpChainsHandlesCycleWithoutHanging(t *testing.T) {
	chunk := bytecode.NewChunk()
	chunk.Emit(bytecode.Instr{Op: bytecode.OpJump, A: 1})
	chunk.Emit(bytecode.Instr{Op: bytecode.OpJump, A: 0})

	// A cyclic jump chain (malformed input, should never occur from a real
	// compile) must not loop forever; the cycle guard leaves the target as-is
	// once it revisits an instruction.
	collapseJumpChains(chunk)
}

func TestCollapseJumpChainsLeavesConditionalJumpTargetAlone(t *testing.T) {
	chunk := bytecode.NewChunk()
	chunk.Emit(bytecode.Instr{Op: bytecode.OpJumpIfZero, A: 1})
	chunk.Emit(bytecode.Instr{Op: bytecode.OpPushNil})
	collapseJumpChains(chunk)
	if chunk.Code[0].A != 1 {
		t.Errorf("a conditional jump targeting a non-Jump instruction should be left alone, got A=%d", chunk.Code[0].A)
	}
}
