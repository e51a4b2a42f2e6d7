package vm

import (
	"fmt"

	"vesper/internal/bytecode"
	"vesper/internal/dispatch"
	"vesper/internal/types"
)

// DefaultMaxFrames bounds call-stack depth (spec §7 StackOverflow); the
// teacher's interpreter loop carries an equivalent recursion guard so a
// runaway user program raises a catchable error instead of crashing the
// host process.
const DefaultMaxFrames = 4096

// VM is the stack-based bytecode interpreter (spec §4.4). One VM instance
// runs exactly one CompiledProgram to completion; it is not reused across
// runs and is not safe for concurrent Run calls (spec §5: single-threaded,
// cooperative, no preemption).
type VM struct {
	Program    *bytecode.CompiledProgram
	Globals    []Value
	GlobalIdx  map[string]int
	StructHeap *StructHeap
	Methods    *dispatch.Registry
	Types      *types.Registry

	stack  []Value
	frames []*Frame

	MaxFrames int
}

func New(prog *bytecode.CompiledProgram, methods *dispatch.Registry, typeReg *types.Registry) *VM {
	v := &VM{
		Program:    prog,
		Globals:    make([]Value, prog.GlobalSlotCount),
		GlobalIdx:  make(map[string]int, len(prog.GlobalSlotNames)),
		StructHeap: NewStructHeap(),
		Methods:    methods,
		Types:      typeReg,
		MaxFrames:  DefaultMaxFrames,
	}
	for i, name := range prog.GlobalSlotNames {
		v.GlobalIdx[name] = i
	}
	return v
}

func (v *VM) push(val Value) { v.stack = append(v.stack, val) }

func (v *VM) pop() (Value, *VmError) {
	if len(v.stack) == 0 {
		return Value{}, internalError("operand stack underflow")
	}
	n := len(v.stack) - 1
	val := v.stack[n]
	v.stack = v.stack[:n]
	return val, nil
}

func (v *VM) peek() (Value, *VmError) {
	if len(v.stack) == 0 {
		return Value{}, internalError("operand stack underflow on peek")
	}
	return v.stack[len(v.stack)-1], nil
}

func (v *VM) currentFrame() *Frame { return v.frames[len(v.frames)-1] }

// Run executes the program starting at Program.Entry and returns the
// final Nothing/Value result of main, or the first uncaught VmError (spec
// §4.4, §7).
func (v *VM) Run() (Value, error) {
	entryFn := v.findEntryFunction()
	if entryFn == nil {
		return Value{}, internalError("entry function not found (global_index %d)", v.Program.Entry)
	}
	return v.callFunction(entryFn, nil)
}

func (v *VM) findEntryFunction() *bytecode.FunctionInfo {
	if v.Program.Entry < 0 || v.Program.Entry >= len(v.Program.Functions) {
		return nil
	}
	return &v.Program.Functions[v.Program.Entry]
}

// callFunction pushes a new frame for fn, binds args to its leading param
// slots, runs until that frame returns, and pops it (spec §4.4, §4.5: args
// bind directly to dense slot indices, never by name).
func (v *VM) callFunction(fn *bytecode.FunctionInfo, args []Value) (Value, *VmError) {
	if len(v.frames) >= v.MaxFrames {
		return Value{}, newError(ErrStackOverflow, "maximum call depth %d exceeded in %s", v.MaxFrames, fn.Name)
	}
	frame := NewFrame(fn)
	for i, slot := range fn.ParamSlots {
		if i < len(args) {
			frame.Slots[slot] = args[i]
		}
	}
	if fn.VarargParamIndex >= 0 && len(fn.ParamSlots) > fn.VarargParamIndex {
		slot := fn.ParamSlots[fn.VarargParamIndex]
		var rest []Value
		if len(args) > fn.VarargParamIndex {
			rest = append(rest, args[fn.VarargParamIndex:]...)
		}
		frame.Slots[slot] = Value{Kind: KTuple, Tuple: rest}
	}
	v.frames = append(v.frames, frame)
	result, uw := v.execFrame(frame)
	v.frames = v.frames[:len(v.frames)-1]
	if uw != nil {
		return Value{}, uw
	}
	return result, nil
}

// CallClosure invokes a closure value, exposing its captured environment
// to the callee's frame via ClosureEnv (spec §4.4 LoadCaptured, §8 S8).
func (v *VM) CallClosure(cl *ClosureValue, args []Value) (Value, *VmError) {
	if cl.GlobalIndex < 0 || cl.GlobalIndex >= len(v.Program.Functions) {
		return Value{}, internalError("closure targets invalid global_index %d", cl.GlobalIndex)
	}
	fn := &v.Program.Functions[cl.GlobalIndex]
	if len(v.frames) >= v.MaxFrames {
		return Value{}, newError(ErrStackOverflow, "maximum call depth %d exceeded in %s", v.MaxFrames, fn.Name)
	}
	frame := NewFrame(fn)
	frame.ClosureEnv = cl.Captured
	for i, slot := range fn.ParamSlots {
		if i < len(args) {
			frame.Slots[slot] = args[i]
		}
	}
	v.frames = append(v.frames, frame)
	result, uw := v.execFrame(frame)
	v.frames = v.frames[:len(v.frames)-1]
	if uw != nil {
		return Value{}, uw
	}
	return result, nil
}

// execFrame runs frame.IP forward through the shared Program.Code vector
// until it returns, raises past its own handlers, or hits the function's
// CodeEnd boundary (spec §3.4 code_start/code_end invariant).
func (v *VM) execFrame(frame *Frame) (Value, *VmError) {
	code := v.Program.Code.Code
	baseStackLen := len(v.stack)
	for {
		if frame.IP < frame.FuncInfo.CodeStart || frame.IP >= frame.FuncInfo.CodeEnd {
			// Falling off the end of a function body with no explicit
			// return is equivalent to `return nothing`.
			v.stack = v.stack[:baseStackLen]
			return Nothing(), nil
		}
		instr := code[frame.IP]
		ipBefore := frame.IP
		result, uw := v.step(frame, instr)
		if uw != nil {
			switch uw.kind {
			case unwindReturn:
				v.stack = v.stack[:baseStackLen]
				return uw.value, nil
			case unwindRaise:
				if handled, val := v.tryHandleRaise(frame, uw.err); handled {
					frame.IP = val
					continue
				}
				v.stack = v.stack[:baseStackLen]
				return Value{}, uw.err
			default:
				// Break/continue/goto escaping the whole function body is
				// a compiler invariant violation, never a user-triggerable
				// condition (spec §7 InternalError).
				v.stack = v.stack[:baseStackLen]
				return Value{}, internalError("unwind signal %d escaped function body", uw.kind)
			}
		}
		_ = result
		if frame.IP == ipBefore {
			frame.IP++
		}
	}
}

// tryHandleRaise looks for a catch handler in frame's handler stack; if
// found it truncates handlers above that point, restores the operand
// stack to the handler's recorded depth, binds the exception value, and
// returns the catch block's target ip (spec §4.6).
func (v *VM) tryHandleRaise(frame *Frame, vmErr *VmError) (bool, int) {
	h, idx, ok := frame.TopCatchHandler()
	if !ok {
		return false, 0
	}
	frame.TruncateHandlers(idx)
	if h.StackDepth <= len(v.stack) {
		v.stack = v.stack[:h.StackDepth]
	}
	if h.CatchVar != "" {
		v.push(vmErr.Value)
	}
	return true, h.CatchTarget
}

// step executes one instruction, returning a non-nil unwind only for
// control-transfer results (return/raise/break/continue/goto); normal
// instructions return (anything, nil) and the caller advances IP by one.
func (v *VM) step(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	switch instr.Op {
	case bytecode.OpPushConst:
		v.push(constToValue(v.Program.Code.Constants[instr.ConstIndex]))
	case bytecode.OpPushNil:
		v.push(Nothing())
	case bytecode.OpPushMissing:
		v.push(Missing())
	case bytecode.OpPushTrue:
		v.push(Bool(true))
	case bytecode.OpPushFalse:
		v.push(Bool(false))
	case bytecode.OpPop:
		if _, err := v.pop(); err != nil {
			return Value{}, raiseUnwind(err)
		}
	case bytecode.OpDup:
		top, err := v.peek()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		v.push(top)
	case bytecode.OpSwap:
		a, err1 := v.pop()
		b, err2 := v.pop()
		if err1 != nil || err2 != nil {
			return Value{}, raiseUnwind(firstErr(err1, err2))
		}
		v.push(a)
		v.push(b)

	case bytecode.OpLoadSlot:
		if instr.A < 0 || instr.A >= len(frame.Slots) {
			return Value{}, raiseUnwind(internalError("slot index %d out of range", instr.A))
		}
		v.push(frame.Slots[instr.A])
	case bytecode.OpStoreSlot:
		val, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		frame.Slots[instr.A] = val
	case bytecode.OpLoadGlobal:
		if instr.A < 0 || instr.A >= len(v.Globals) {
			return Value{}, raiseUnwind(newError(ErrUndefVarError, "%s not defined", instr.Name))
		}
		v.push(v.Globals[instr.A])
	case bytecode.OpStoreGlobal, bytecode.OpDefineGlobal:
		val, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		if instr.A >= 0 && instr.A < len(v.Globals) {
			v.Globals[instr.A] = val
		}
	case bytecode.OpLoadCaptured:
		if frame.ClosureEnv == nil {
			return Value{}, raiseUnwind(internalError("LoadCaptured outside closure body"))
		}
		cell, ok := frame.ClosureEnv[instr.Name]
		if !ok {
			return Value{}, raiseUnwind(internalError("closure missing capture %q", instr.Name))
		}
		v.push(*cell)
	case bytecode.OpCreateClosure:
		return v.execCreateClosure(frame, instr)

	case bytecode.OpAddInt, bytecode.OpSubInt, bytecode.OpMulInt, bytecode.OpSdivInt, bytecode.OpSremInt,
		bytecode.OpAddFloat, bytecode.OpSubFloat, bytecode.OpMulFloat, bytecode.OpDivFloat, bytecode.OpPowFloat,
		bytecode.OpEqInt, bytecode.OpNeInt, bytecode.OpLtInt, bytecode.OpLeInt, bytecode.OpGtInt, bytecode.OpGeInt,
		bytecode.OpEqFloat, bytecode.OpNeFloat, bytecode.OpLtFloat, bytecode.OpLeFloat, bytecode.OpGtFloat, bytecode.OpGeFloat,
		bytecode.OpAddBigInt, bytecode.OpSubBigInt, bytecode.OpMulBigInt, bytecode.OpDivBigInt, bytecode.OpPowBigInt,
		bytecode.OpAddBigFloat, bytecode.OpSubBigFloat, bytecode.OpMulBigFloat, bytecode.OpDivBigFloat:
		right, err1 := v.pop()
		left, err2 := v.pop()
		if err1 != nil || err2 != nil {
			return Value{}, raiseUnwind(firstErr(err1, err2))
		}
		res, vmErr := EvalArithBoth(instr.Op, left, right)
		if vmErr != nil {
			return Value{}, raiseUnwind(vmErr)
		}
		v.push(res)
	case bytecode.OpNegInt, bytecode.OpNegFloat:
		operand, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		res, vmErr := EvalNeg(instr.Op, operand)
		if vmErr != nil {
			return Value{}, raiseUnwind(vmErr)
		}
		v.push(res)
	case bytecode.OpEgal:
		right, err1 := v.pop()
		left, err2 := v.pop()
		if err1 != nil || err2 != nil {
			return Value{}, raiseUnwind(firstErr(err1, err2))
		}
		v.push(Bool(egal(left, right)))

	case bytecode.OpDynamicToI8, bytecode.OpDynamicToI16, bytecode.OpDynamicToI32, bytecode.OpDynamicToI64,
		bytecode.OpDynamicToU8, bytecode.OpDynamicToU16, bytecode.OpDynamicToU32, bytecode.OpDynamicToU64,
		bytecode.OpDynamicToF16, bytecode.OpDynamicToF32, bytecode.OpDynamicToF64, bytecode.OpIntToChar:
		operand, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		res, vmErr := convertDynamic(instr.Op, operand)
		if vmErr != nil {
			return Value{}, raiseUnwind(vmErr)
		}
		v.push(res)

	case bytecode.OpCallDynamicBinaryBoth:
		return v.execCallDynamicBinaryBoth(frame, instr)
	case bytecode.OpCallDynamicUnary:
		return v.execCallDynamicUnary(frame, instr)
	case bytecode.OpDynamicPow:
		right, err1 := v.pop()
		left, err2 := v.pop()
		if err1 != nil || err2 != nil {
			return Value{}, raiseUnwind(firstErr(err1, err2))
		}
		res, vmErr := EvalArithBoth(bytecode.OpPowFloat, left, right)
		if vmErr != nil {
			return Value{}, raiseUnwind(vmErr)
		}
		v.push(res)

	case bytecode.OpJump:
		frame.IP = instr.A
	case bytecode.OpJumpIfZero:
		cond, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		if !cond.Truthy() {
			frame.IP = instr.A
		}
	case bytecode.OpJumpIfNotZero:
		cond, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		if cond.Truthy() {
			frame.IP = instr.A
		}

	case bytecode.OpCall:
		return v.execCall(frame, instr)
	case bytecode.OpCallDynamic:
		return v.execCallDynamic(frame, instr)
	case bytecode.OpCallBuiltin:
		return v.execCallBuiltin(frame, instr)
	case bytecode.OpReturn:
		val, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		return Value{}, &unwind{kind: unwindReturn, value: val}
	case bytecode.OpReturnNil:
		return Value{}, &unwind{kind: unwindReturn, value: Nothing()}
	case bytecode.OpReturnImm:
		val := constToValue(v.Program.Code.Constants[instr.ConstIndex])
		return Value{}, &unwind{kind: unwindReturn, value: val}

	case bytecode.OpNewArray:
		return v.execNewArray(instr)
	case bytecode.OpNewTuple:
		return v.execNewTuple(instr)
	case bytecode.OpNewDict:
		v.push(Value{Kind: KDict, Dict: NewDict()})
	case bytecode.OpNewSet:
		v.push(Value{Kind: KSet, Set: NewSet()})
	case bytecode.OpNewRange:
		return v.execNewRange()
	case bytecode.OpArrayLen:
		arr, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		if arr.Kind != KArray {
			return Value{}, raiseUnwind(newError(ErrTypeError, "length: expected Array, got %s", arr.TypeName()))
		}
		v.push(Int64(int64(arr.Array.Len())))
	case bytecode.OpIndexLoad, bytecode.OpIndexLoadTyped:
		return v.execIndexLoad(frame)
	case bytecode.OpIndexStore:
		return v.execIndexStore()
	case bytecode.OpDictGet:
		return v.execDictGet()
	case bytecode.OpDictSet:
		return v.execDictSet()
	case bytecode.OpDictDelete:
		return v.execDictDelete()
	case bytecode.OpDictKeys:
		return v.execDictKeys()

	case bytecode.OpIterateFirst:
		return v.execIterateFirst(frame, instr)
	case bytecode.OpIterateNext:
		return v.execIterateNext(frame, instr)
	case bytecode.OpIterateDynamic:
		return v.execIterateDynamic(frame, instr)

	case bytecode.OpNewStruct:
		return v.execNewStruct(frame, instr)
	case bytecode.OpGetField:
		return v.execGetField(instr)
	case bytecode.OpSetField, bytecode.OpSetFieldByName:
		return v.execSetField(instr)

	case bytecode.OpPushHandler:
		frame.PushHandler(Handler{Kind: HandlerCatch, CatchTarget: instr.A, CatchVar: instr.Name, StackDepth: len(v.stack)})
	case bytecode.OpPopHandler:
		frame.PopHandler()
	case bytecode.OpRaise:
		val, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		return Value{}, raiseUnwind(raisedFrom(val))
	case bytecode.OpClearError:
		// no persistent error register to clear; retained as a no-op for
		// bytecode produced by a compiler generation that still emits it.

	case bytecode.OpConcat:
		return v.execConcat()
	case bytecode.OpTypeOf:
		val, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		v.push(DataType(val.TypeName()))
	case bytecode.OpPrint:
		val, err := v.pop()
		if err != nil {
			return Value{}, raiseUnwind(err)
		}
		fmt.Println(val.String())

	default:
		return Value{}, raiseUnwind(internalError("unimplemented opcode %s", instr.Op))
	}
	return Value{}, nil
}

func raiseUnwind(err *VmError) *unwind { return &unwind{kind: unwindRaise, err: err} }

func firstErr(a, b *VmError) *VmError {
	if a != nil {
		return a
	}
	return b
}

func constToValue(c interface{}) Value {
	switch t := c.(type) {
	case Value:
		return t
	case int64:
		return Int64(t)
	case float64:
		return Float64(t)
	case string:
		return Str(t)
	case bool:
		return Bool(t)
	case nil:
		return Nothing()
	default:
		return Nothing()
	}
}

// egal implements `===`/`!==` identity comparison (spec §4.4 OpEgal: "not
// overloadable" — never routed through method dispatch).
func egal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KNothing, KMissing:
		return true
	case KBool, KChar, KI8, KI16, KI32, KI64:
		return a.I == b.I
	case KF16, KF32, KF64:
		return a.F == b.F
	case KString, KSymbol, KDataType:
		return a.Str == b.Str
	case KStructRef:
		return a.HeapRef == b.HeapRef
	case KArray:
		return a.Array == b.Array
	case KDict:
		return a.Dict == b.Dict
	case KSet:
		return a.Set == b.Set
	default:
		return false
	}
}
