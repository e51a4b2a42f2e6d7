package compiler

import (
	"vesper/internal/bytecode"
	"vesper/internal/ir"
)

// compileBlock compiles every statement in a Block in order.
func (c *Compiler) compileBlock(b ir.Block) {
	for _, s := range b {
		c.compileStmt(s)
	}
}

// compileStmt lowers one ir.Stmt. Unlike compileExpr, statements leave the
// operand stack exactly as they found it.
func (c *Compiler) compileStmt(s ir.Stmt) {
	switch x := s.(type) {
	case *ir.AssignStmt:
		c.compileExpr(x.Value)
		c.compileStore(x.Name)
	case *ir.AddAssignStmt:
		c.compileCompoundAssign(x)
	case *ir.ForStmt:
		c.compileForStmt(x)
	case *ir.ForEachStmt:
		c.compileForEachStmt(x)
	case *ir.ForEachTupleStmt:
		c.compileForEachTupleStmt(x)
	case *ir.WhileStmt:
		c.compileWhileStmt(x)
	case *ir.IfStmt:
		c.compileIfStmt(x)
	case *ir.ReturnStmt:
		c.compileReturnStmt(x)
	case *ir.ExprStmt:
		c.compileExpr(x.Value)
		c.emit(bytecode.Instr{Op: bytecode.OpPop})
	case *ir.BreakStmt:
		c.compileBreakStmt()
	case *ir.ContinueStmt:
		c.compileContinueStmt()
	case *ir.TestStmt:
		// Test assertions are a harness concern layered over ordinary
		// evaluation (spec §6.5's `test` subcommand): lower `@test cond` as
		// `if !cond; error("test failed"); end` so a failing assertion
		// raises like any other runtime error.
		c.compileExpr(x.Cond)
		c.emit(bytecode.Instr{Op: bytecode.OpCallBuiltin, Name: "!", A: 1})
		jf := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})
		c.emitConst("test assertion failed")
		c.emit(bytecode.Instr{Op: bytecode.OpCallBuiltin, Name: "error", A: 1})
		c.emit(bytecode.Instr{Op: bytecode.OpPop})
		c.out.Code.Patch(jf, c.out.Code.Len())
	case *ir.TestSetStmt:
		c.compileBlock(x.Tests)
	case *ir.TestThrowsStmt:
		c.compileTestThrowsStmt(x)
	case *ir.IndexAssignStmt:
		c.compileIndexAssignStmt(x)
	case *ir.FieldAssignStmt:
		c.compileExpr(x.Target)
		c.compileExpr(x.Value)
		c.emit(bytecode.Instr{Op: bytecode.OpSetField, Name: x.Field})
	case *ir.TryStmt:
		c.compileTryStmt(x)
	case *ir.DestructuringAssignStmt:
		c.compileDestructuringAssignStmt(x)
	case *ir.DictAssignStmt:
		c.compileExpr(x.Target)
		c.compileExpr(x.Key)
		c.compileExpr(x.Value)
		c.emit(bytecode.Instr{Op: bytecode.OpDictSet})
	case *ir.UsingStmt:
		// Module resolution is an external collaborator's concern (spec
		// §6.1's Usings field is carried for completeness); nothing to emit.
	case *ir.ExportStmt:
		// Visibility bookkeeping with no runtime effect.
	case *ir.FunctionDefStmt:
		// Nested function definitions are predeclared/compiled alongside
		// top-level functions in Compile; a FunctionDefStmt reaching here
		// mid-body is a no-op marker.
	case *ir.LabelStmt:
		c.bindLabel(x.Name)
	case *ir.GotoStmt:
		c.emitGoto(x.Label)
	case *ir.EnumDefStmt:
		c.compileEnumDef(x)
	case *ir.BlockStmt:
		c.compileBlock(x.Body)
	default:
		c.addError("compiler: unhandled statement type %T", s)
	}
}

func (c *Compiler) compileStore(name string) {
	if slot, ok := c.resolveVarSlotOrGlobal(name); ok {
		c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: slot})
		return
	}
	if c.cur == nil {
		c.emit(bytecode.Instr{Op: bytecode.OpStoreGlobal, Name: name})
		return
	}
	// First assignment to an unseen name inside a function body creates a
	// local (Julia's implicit-local-on-first-assignment rule), mirroring
	// the SlotAllocator's allocate-on-first-use behavior.
	slot := c.cur.slots.Slot(name)
	c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: slot})
}

func (c *Compiler) compileCompoundAssign(x *ir.AddAssignStmt) {
	op := x.Op[:len(x.Op)-1] // "+=" -> "+"
	c.compileExpr(&ir.BinaryOp{Op: op, Left: &ir.Var{Name: x.Name}, Right: x.Value})
	c.compileStore(x.Name)
}

func (c *Compiler) compileIfStmt(x *ir.IfStmt) {
	c.compileExpr(x.Cond)
	jf := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})
	c.compileBlock(x.Then)
	var endJumps []int
	endJumps = append(endJumps, c.emit(bytecode.Instr{Op: bytecode.OpJump}))
	c.out.Code.Patch(jf, c.out.Code.Len())

	for _, ei := range x.ElseIfs {
		c.compileExpr(ei.Cond)
		jfNext := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})
		c.compileBlock(ei.Body)
		endJumps = append(endJumps, c.emit(bytecode.Instr{Op: bytecode.OpJump}))
		c.out.Code.Patch(jfNext, c.out.Code.Len())
	}

	if x.Else != nil {
		c.compileBlock(x.Else)
	}
	end := c.out.Code.Len()
	for _, j := range endJumps {
		c.out.Code.Patch(j, end)
	}
}

func (c *Compiler) pushLoop() {
	if c.cur == nil {
		return
	}
	c.cur.loops = append(c.cur.loops, loopCtx{finallyDepthAtEntry: len(c.cur.finallyStack)})
}

func (c *Compiler) popLoop() loopCtx {
	n := len(c.cur.loops)
	lp := c.cur.loops[n-1]
	c.cur.loops = c.cur.loops[:n-1]
	return lp
}

func (c *Compiler) setContinueTarget(target int) {
	c.cur.loops[len(c.cur.loops)-1].continueTarget = target
}

func (c *Compiler) compileWhileStmt(x *ir.WhileStmt) {
	c.pushLoop()
	loopStart := c.out.Code.Len()
	c.setContinueTarget(loopStart)
	c.compileExpr(x.Cond)
	jExit := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})
	c.compileBlock(x.Body)
	c.emit(bytecode.Instr{Op: bytecode.OpJump, A: loopStart})
	end := c.out.Code.Len()
	c.out.Code.Patch(jExit, end)
	lp := c.popLoop()
	for _, bj := range lp.breakJumps {
		c.out.Code.Patch(bj, end)
	}
}

// compileForStmt lowers a numeric `for i = start:step:stop` loop directly
// over integer/float arithmetic rather than materializing a Range value, so
// tight counting loops don't pay an iterator-protocol dispatch per step.
func (c *Compiler) compileForStmt(x *ir.ForStmt) {
	slot := c.cur.slots.Slot(x.Var)
	c.compileExpr(x.Start)
	c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: slot})

	c.pushLoop()
	loopStart := c.out.Code.Len()
	c.emit(bytecode.Instr{Op: bytecode.OpLoadSlot, A: slot})
	c.compileExpr(x.Stop)
	c.emit(bytecode.Instr{Op: bytecode.OpCallDynamicBinaryBoth, FallbackOp: bytecode.OpLeFloat})
	jExit := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})

	c.compileBlock(x.Body)

	contTarget := c.out.Code.Len()
	c.setContinueTarget(contTarget)
	c.emit(bytecode.Instr{Op: bytecode.OpLoadSlot, A: slot})
	if x.Step != nil {
		c.compileExpr(x.Step)
	} else {
		c.emitConst(int64(1))
	}
	c.emit(bytecode.Instr{Op: bytecode.OpCallDynamicBinaryBoth, FallbackOp: bytecode.OpAddFloat})
	c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: slot})
	c.emit(bytecode.Instr{Op: bytecode.OpJump, A: loopStart})

	end := c.out.Code.Len()
	c.out.Code.Patch(jExit, end)
	lp := c.popLoop()
	for _, bj := range lp.breakJumps {
		c.out.Code.Patch(bj, end)
	}
}

// compileForEachStmt lowers `for x in collection` via the IterateFirst/
// IterateNext fast path (spec §4.4, §6.1).
func (c *Compiler) compileForEachStmt(x *ir.ForEachStmt) {
	varSlot := c.cur.slots.Slot(x.Var)
	stateSlot := c.cur.slots.Slot("#iter_state_" + x.Var)

	c.compileExpr(x.Collection)
	c.emit(bytecode.Instr{Op: bytecode.OpIterateFirst, A: stateSlot})
	c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: varSlot})
	jExit := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})

	c.pushLoop()
	loopStart := c.out.Code.Len()
	c.compileBlock(x.Body)

	contTarget := c.out.Code.Len()
	c.setContinueTarget(contTarget)
	c.emit(bytecode.Instr{Op: bytecode.OpIterateNext, A: stateSlot})
	c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: varSlot})
	jExit2 := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})
	c.emit(bytecode.Instr{Op: bytecode.OpJump, A: loopStart})

	end := c.out.Code.Len()
	c.out.Code.Patch(jExit, end)
	c.out.Code.Patch(jExit2, end)
	lp := c.popLoop()
	for _, bj := range lp.breakJumps {
		c.out.Code.Patch(bj, end)
	}
}

// compileForEachTupleStmt lowers `for (a, b) in pairs` by destructuring the
// per-iteration tuple into each named variable.
func (c *Compiler) compileForEachTupleStmt(x *ir.ForEachTupleStmt) {
	tmp := c.cur.slots.Slot("#iter_tuple_" + x.Vars[0])
	stateSlot := c.cur.slots.Slot("#iter_state_" + x.Vars[0])

	c.compileExpr(x.Collection)
	c.emit(bytecode.Instr{Op: bytecode.OpIterateFirst, A: stateSlot})
	c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: tmp})
	jExit := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})

	c.pushLoop()
	loopStart := c.out.Code.Len()
	c.destructureTupleSlot(tmp, x.Vars)
	c.compileBlock(x.Body)

	contTarget := c.out.Code.Len()
	c.setContinueTarget(contTarget)
	c.emit(bytecode.Instr{Op: bytecode.OpIterateNext, A: stateSlot})
	c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: tmp})
	jExit2 := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})
	c.emit(bytecode.Instr{Op: bytecode.OpJump, A: loopStart})

	end := c.out.Code.Len()
	c.out.Code.Patch(jExit, end)
	c.out.Code.Patch(jExit2, end)
	lp := c.popLoop()
	for _, bj := range lp.breakJumps {
		c.out.Code.Patch(bj, end)
	}
}

func (c *Compiler) destructureTupleSlot(tupleSlot int, names []string) {
	for i, name := range names {
		slot := c.cur.slots.Slot(name)
		c.emit(bytecode.Instr{Op: bytecode.OpLoadSlot, A: tupleSlot})
		c.emitConst(int64(i + 1))
		c.emit(bytecode.Instr{Op: bytecode.OpIndexLoad})
		c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: slot})
	}
}

func (c *Compiler) compileDestructuringAssignStmt(x *ir.DestructuringAssignStmt) {
	tmp := c.cur.slots.Slot("#destructure_tmp")
	c.compileExpr(x.Value)
	c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: tmp})
	c.destructureTupleSlot(tmp, x.Names)
}

func (c *Compiler) compileReturnStmt(x *ir.ReturnStmt) {
	c.replayAllFinally()
	if x.Value != nil {
		c.compileExpr(x.Value)
		c.emit(bytecode.Instr{Op: bytecode.OpReturn})
		return
	}
	c.emit(bytecode.Instr{Op: bytecode.OpReturnNil})
}

func (c *Compiler) compileBreakStmt() {
	if c.cur == nil || len(c.cur.loops) == 0 {
		c.addError("compiler: break outside a loop")
		return
	}
	c.replayFinallySinceLoopEntry()
	n := len(c.cur.loops) - 1
	j := c.emit(bytecode.Instr{Op: bytecode.OpJump})
	c.cur.loops[n].breakJumps = append(c.cur.loops[n].breakJumps, j)
}

func (c *Compiler) compileContinueStmt() {
	if c.cur == nil || len(c.cur.loops) == 0 {
		c.addError("compiler: continue outside a loop")
		return
	}
	c.replayFinallySinceLoopEntry()
	target := c.cur.loops[len(c.cur.loops)-1].continueTarget
	c.emit(bytecode.Instr{Op: bytecode.OpJump, A: target})
}

// replayAllFinally/replayFinallySinceLoopEntry re-emit the body of every
// active try/finally block a control-transfer statement is jumping past, in
// LIFO (innermost-first) order (spec §4.6 "finally replay on
// return/break/continue").
func (c *Compiler) replayAllFinally() {
	if c.cur == nil {
		return
	}
	c.replayFinallyFrom(0)
}

func (c *Compiler) replayFinallySinceLoopEntry() {
	depth := c.cur.loops[len(c.cur.loops)-1].finallyDepthAtEntry
	c.replayFinallyFrom(depth)
}

func (c *Compiler) replayFinallyFrom(depth int) {
	for i := len(c.cur.finallyStack) - 1; i >= depth; i-- {
		c.compileBlock(c.cur.finallyStack[i])
	}
}

// compileTryStmt pushes a catch handler over Body, then on the fallthrough
// (no-exception) path runs FinallyBody and jumps past the catch block; on
// the exception path the VM's tryHandleRaise resumes execution at the catch
// target with the exception value already on the stack (spec §4.6).
func (c *Compiler) compileTryStmt(x *ir.TryStmt) {
	hasCatch := x.CatchBody != nil
	catchVar := x.CatchVar
	if !hasCatch {
		// No catch clause: still install a handler so finally runs, but
		// force the exception value onto the stack so it can be re-raised
		// once finally has run (spec §4.6: finally always runs, even when
		// nothing catches).
		catchVar = "#rethrow"
	}
	pushInstr := c.emit(bytecode.Instr{Op: bytecode.OpPushHandler, Name: catchVar})

	if x.FinallyBody != nil {
		c.cur.finallyStack = append(c.cur.finallyStack, x.FinallyBody)
	}
	c.compileBlock(x.Body)
	if x.FinallyBody != nil {
		c.cur.finallyStack = c.cur.finallyStack[:len(c.cur.finallyStack)-1]
	}
	c.emit(bytecode.Instr{Op: bytecode.OpPopHandler})
	if x.FinallyBody != nil {
		c.compileBlock(x.FinallyBody)
	}
	jEnd := c.emit(bytecode.Instr{Op: bytecode.OpJump})

	catchTarget := c.out.Code.Len()
	c.out.Code.Patch(pushInstr, catchTarget)
	if !hasCatch {
		if x.FinallyBody != nil {
			c.compileBlock(x.FinallyBody)
		}
		c.emit(bytecode.Instr{Op: bytecode.OpRaise})
		c.out.Code.Patch(jEnd, c.out.Code.Len())
		return
	}
	if x.CatchVar != "" {
		slot := c.cur.slots.Slot(x.CatchVar)
		c.emit(bytecode.Instr{Op: bytecode.OpStoreSlot, A: slot})
	}
	c.compileBlock(x.CatchBody)
	if x.FinallyBody != nil {
		c.compileBlock(x.FinallyBody)
	}
	c.out.Code.Patch(jEnd, c.out.Code.Len())
}

func (c *Compiler) compileTestThrowsStmt(x *ir.TestThrowsStmt) {
	pushInstr := c.emit(bytecode.Instr{Op: bytecode.OpPushHandler})
	c.compileExpr(x.Expr)
	c.emit(bytecode.Instr{Op: bytecode.OpPop})
	c.emit(bytecode.Instr{Op: bytecode.OpPopHandler})
	c.emitConst("expected " + x.ExpectedType + " to be thrown")
	c.emit(bytecode.Instr{Op: bytecode.OpCallBuiltin, Name: "error", A: 1})
	c.emit(bytecode.Instr{Op: bytecode.OpPop})
	jEnd := c.emit(bytecode.Instr{Op: bytecode.OpJump})
	c.out.Code.Patch(pushInstr, c.out.Code.Len())
	// CatchVar is empty, so tryHandleRaise did not push the exception value.
	c.out.Code.Patch(jEnd, c.out.Code.Len())
}

func (c *Compiler) compileIndexAssignStmt(x *ir.IndexAssignStmt) {
	c.compileExpr(x.Target)
	for i, idx := range x.Indices {
		if i < len(x.Indices)-1 {
			c.compileExpr(idx)
			c.emit(bytecode.Instr{Op: bytecode.OpIndexLoad})
			continue
		}
		c.compileExpr(idx)
		c.compileExpr(x.Value)
		c.emit(bytecode.Instr{Op: bytecode.OpIndexStore})
	}
}

// bindLabel/emitGoto implement named labels (spec §6.1 LabelStmt/GotoStmt).
// Forward gotos are patched once the label is bound; backward gotos resolve
// immediately since the label's position is already known.
func (c *Compiler) bindLabel(name string) {
	pos := c.out.Code.Len()
	if c.cur.labels == nil {
		c.cur.labels = map[string]int{}
	}
	c.cur.labels[name] = pos
	for _, pending := range c.cur.pendingGotos[name] {
		c.out.Code.Patch(pending, pos)
	}
	delete(c.cur.pendingGotos, name)
}

func (c *Compiler) emitGoto(label string) {
	if target, ok := c.cur.labels[label]; ok {
		c.emit(bytecode.Instr{Op: bytecode.OpJump, A: target})
		return
	}
	j := c.emit(bytecode.Instr{Op: bytecode.OpJump})
	if c.cur.pendingGotos == nil {
		c.cur.pendingGotos = map[string][]int{}
	}
	c.cur.pendingGotos[label] = append(c.cur.pendingGotos[label], j)
}

// compileEnumDef materializes each variant as its 0-based Int64 ordinal
// constant, emitted as a StoreGlobal named Enum.Variant, since the VM has no
// dedicated enum value kind (spec §8 supplemental feature, not in the
// distilled spec's numeric tower).
func (c *Compiler) compileEnumDef(x *ir.EnumDefStmt) {
	for i, variant := range x.Def.Variants {
		name := x.Def.Name + "." + variant
		idx := c.out.Code.AddConstant(int64(i))
		c.emit(bytecode.Instr{Op: bytecode.OpPushConst, ConstIndex: idx})
		c.emit(bytecode.Instr{Op: bytecode.OpStoreGlobal, Name: name})
	}
}
