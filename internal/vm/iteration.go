package vm

import "vesper/internal/bytecode"

// iterState is stashed in the hidden slot instr.A between IterateFirst and
// each subsequent IterateNext (spec §4.4's fast iteration path): the
// container plus a cursor index. Keeping it in Value form (rather than a
// side table keyed by ip) means it rides along with the frame's ordinary
// slot array with no extra VM state.
func iterLen(c Value) (int, bool) {
	switch c.Kind {
	case KArray:
		return c.Array.Len(), true
	case KTuple:
		return len(c.Tuple), true
	case KRange:
		return c.Range.Len(), true
	case KString:
		return len([]rune(c.Str)), true
	case KDict:
		return c.Dict.Len(), true
	case KSet:
		return c.Set.Len(), true
	}
	return 0, false
}

func iterAt(c Value, i int) Value {
	switch c.Kind {
	case KArray:
		v, _ := c.Array.Get(i)
		return v
	case KTuple:
		return c.Tuple[i]
	case KRange:
		return c.Range.At(i)
	case KString:
		r := []rune(c.Str)
		return Char(r[i])
	case KDict:
		keys := c.Dict.Keys()
		return Value{Kind: KTuple, Tuple: []Value{keys[i], mustDictGet(c.Dict, keys[i])}}
	case KSet:
		return c.Set.At(i)
	}
	return Nothing()
}

func mustDictGet(d *DictValue, k Value) Value {
	v, _ := d.Get(k)
	return v
}

// execIterateFirst pops the container, stashes (container, index=0) into
// frame.Slots[instr.A], and pushes (hasMore, element) — element is Nothing
// when hasMore is false, matching the ForEach compiler lowering's expected
// stack shape (pop hasMore first to decide whether to enter the loop body).
func (v *VM) execIterateFirst(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	container, err := v.pop()
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	n, ok := iterLen(container)
	if !ok {
		return v.execIterateDynamicStart(frame, instr, container)
	}
	frame.Slots[instr.A] = Value{Kind: KTuple, Tuple: []Value{container, Int64(0)}}
	if n == 0 {
		v.push(Nothing())
		v.push(Bool(false))
		return Value{}, nil
	}
	v.push(iterAt(container, 0))
	v.push(Bool(true))
	return Value{}, nil
}

// execIterateNext advances the cursor stashed by IterateFirst and pushes
// the next (hasMore, element) pair.
func (v *VM) execIterateNext(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	state := frame.Slots[instr.A]
	if state.Kind != KTuple || len(state.Tuple) != 2 {
		return Value{}, raiseUnwind(internalError("IterateNext: missing iterator state in slot %d", instr.A))
	}
	container := state.Tuple[0]
	idx := int(state.Tuple[1].I) + 1
	n, ok := iterLen(container)
	if !ok {
		return Value{}, raiseUnwind(internalError("IterateNext: non-fast-path container reached fast path"))
	}
	frame.Slots[instr.A] = Value{Kind: KTuple, Tuple: []Value{container, Int64(int64(idx))}}
	if idx >= n {
		v.push(Nothing())
		v.push(Bool(false))
		return Value{}, nil
	}
	v.push(iterAt(container, idx))
	v.push(Bool(true))
	return Value{}, nil
}

// execIterateDynamic handles iteration over a struct value whose type
// implements a user `iterate` method, dispatched by candidate (spec §4.4
// "IterateDynamic" dispatched path, used for for-loops over user iterables
// that are not one of the built-in container kinds).
func (v *VM) execIterateDynamic(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	state := frame.Slots[instr.A]
	if state.Kind != KTuple || len(state.Tuple) < 1 {
		return Value{}, raiseUnwind(internalError("IterateDynamic: missing iterator state in slot %d", instr.A))
	}
	container := state.Tuple[0]
	var prevState Value
	if len(state.Tuple) > 1 {
		prevState = state.Tuple[1]
	}
	return v.callIterateMethod(frame, instr, container, prevState, true)
}

func (v *VM) execIterateDynamicStart(frame *Frame, instr bytecode.Instr, container Value) (Value, *unwind) {
	frame.Slots[instr.A] = Value{Kind: KTuple, Tuple: []Value{container}}
	return v.callIterateMethod(frame, instr, container, Value{}, false)
}

func (v *VM) callIterateMethod(frame *Frame, instr bytecode.Instr, container, prevState Value, hasPrev bool) (Value, *unwind) {
	typeName := container.TypeName()
	best := -1
	for i, c := range instr.Candidates {
		if c.LeftExpected == typeName || c.LeftExpected == "Any" {
			best = i
			break
		}
	}
	if best < 0 {
		return Value{}, raiseUnwind(newError(ErrMethodError, "no iterate method for %s", typeName))
	}
	idx := instr.Candidates[best].GlobalIndex
	if idx < 0 || idx >= len(v.Program.Functions) {
		return Value{}, raiseUnwind(internalError("IterateDynamic candidate targets invalid global_index %d", idx))
	}
	args := []Value{container}
	if hasPrev {
		args = append(args, prevState)
	}
	result, vmErr := v.callFunction(&v.Program.Functions[idx], args)
	if vmErr != nil {
		return Value{}, raiseUnwind(vmErr)
	}
	// A Julia-style `iterate` returns `nothing` when exhausted, or a
	// (element, state) tuple otherwise.
	if result.Kind == KNothing {
		v.push(Nothing())
		v.push(Bool(false))
		return Value{}, nil
	}
	if result.Kind != KTuple || len(result.Tuple) != 2 {
		return Value{}, raiseUnwind(newError(ErrTypeError, "iterate must return nothing or a (value, state) tuple"))
	}
	frame.Slots[instr.A] = Value{Kind: KTuple, Tuple: []Value{container, result.Tuple[1]}}
	v.push(result.Tuple[0])
	v.push(Bool(true))
	return Value{}, nil
}
