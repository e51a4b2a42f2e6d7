package vm

import "vesper/internal/bytecode"

func (v *VM) popN(n int) ([]Value, *VmError) {
	if len(v.stack) < n {
		return nil, internalError("operand stack underflow popping %d values", n)
	}
	start := len(v.stack) - n
	args := append([]Value(nil), v.stack[start:]...)
	v.stack = v.stack[:start]
	return args, nil
}

// execCall implements a statically-resolved Call(global_index, argc) (spec
// §4.4).
func (v *VM) execCall(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	args, err := v.popN(instr.B)
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	if instr.A < 0 || instr.A >= len(v.Program.Functions) {
		return Value{}, raiseUnwind(internalError("Call targets invalid global_index %d", instr.A))
	}
	result, vmErr := v.callFunction(&v.Program.Functions[instr.A], args)
	if vmErr != nil {
		return Value{}, raiseUnwind(vmErr)
	}
	v.push(result)
	return Value{}, nil
}

func (v *VM) execNewArray(instr bytecode.Instr) (Value, *unwind) {
	args, err := v.popN(instr.A)
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	v.push(Value{Kind: KArray, Array: NewVectorAny(args)})
	return Value{}, nil
}

func (v *VM) execNewTuple(instr bytecode.Instr) (Value, *unwind) {
	args, err := v.popN(instr.A)
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	v.push(Value{Kind: KTuple, Tuple: args})
	return Value{}, nil
}

// execNewRange builds a Range from (start, stop[, step]) popped off the
// stack; the compiler always emits exactly 3 operands, defaulting step to
// 1 when the source used `a:b` rather than `a:step:b` (spec §6.1 Range
// expr).
func (v *VM) execNewRange() (Value, *unwind) {
	args, err := v.popN(3)
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	start, step, stop := args[0], args[1], args[2]
	if isFloatKind(start.Kind) || isFloatKind(step.Kind) || isFloatKind(stop.Kind) {
		fs, _ := numericToFloat64(start)
		fstep, _ := numericToFloat64(step)
		fstop, _ := numericToFloat64(stop)
		v.push(Value{Kind: KRange, Range: &RangeValue{IsFloat: true, FStart: fs, FStep: fstep, FStop: fstop}})
		return Value{}, nil
	}
	v.push(Value{Kind: KRange, Range: &RangeValue{Start: start.I, Step: step.I, Stop: stop.I}})
	return Value{}, nil
}

// execIndexLoad implements 1-based indexing for Array/Tuple/String/Range
// (spec §4.4, §8: out-of-bounds raises IndexOutOfBounds, never panics).
func (v *VM) execIndexLoad(frame *Frame) (Value, *unwind) {
	idxVal, err1 := v.pop()
	container, err2 := v.pop()
	if err1 != nil || err2 != nil {
		return Value{}, raiseUnwind(firstErr(err1, err2))
	}
	if idxVal.Kind != KI64 && idxVal.Kind != KI32 && idxVal.Kind != KI16 && idxVal.Kind != KI8 {
		return Value{}, raiseUnwind(newError(ErrTypeError, "index must be an integer, got %s", idxVal.TypeName()))
	}
	i1 := int(idxVal.I)
	switch container.Kind {
	case KArray:
		val, ok := container.Array.Get(i1 - 1)
		if !ok {
			return Value{}, raiseUnwind(newError(ErrIndexOutOfBounds, "index %d out of bounds for Array of length %d", i1, container.Array.Len()))
		}
		v.push(val)
	case KTuple:
		if i1 < 1 || i1 > len(container.Tuple) {
			return Value{}, raiseUnwind(newError(ErrIndexOutOfBounds, "index %d out of bounds for Tuple of length %d", i1, len(container.Tuple)))
		}
		v.push(container.Tuple[i1-1])
	case KString:
		r := []rune(container.Str)
		if i1 < 1 || i1 > len(r) {
			return Value{}, raiseUnwind(newError(ErrStringIndexError, "index %d out of bounds for String of length %d", i1, len(r)))
		}
		v.push(Char(r[i1-1]))
	case KRange:
		n := container.Range.Len()
		if i1 < 1 || i1 > n {
			return Value{}, raiseUnwind(newError(ErrIndexOutOfBounds, "index %d out of bounds for Range of length %d", i1, n))
		}
		v.push(container.Range.At(i1 - 1))
	default:
		return Value{}, raiseUnwind(newError(ErrMethodError, "no indexing method for %s", container.TypeName()))
	}
	return Value{}, nil
}

func (v *VM) execIndexStore() (Value, *unwind) {
	val, err1 := v.pop()
	idxVal, err2 := v.pop()
	container, err3 := v.pop()
	if err1 != nil || err2 != nil || err3 != nil {
		return Value{}, raiseUnwind(firstErr(firstErr(err1, err2), err3))
	}
	if container.Kind != KArray {
		return Value{}, raiseUnwind(newError(ErrMethodError, "no setindex! method for %s", container.TypeName()))
	}
	i1 := int(idxVal.I)
	if !container.Array.Set(i1-1, val) {
		return Value{}, raiseUnwind(newError(ErrIndexOutOfBounds, "index %d out of bounds for Array of length %d", i1, container.Array.Len()))
	}
	return Value{}, nil
}

func (v *VM) execDictGet() (Value, *unwind) {
	key, err1 := v.pop()
	d, err2 := v.pop()
	if err1 != nil || err2 != nil {
		return Value{}, raiseUnwind(firstErr(err1, err2))
	}
	if d.Kind != KDict {
		return Value{}, raiseUnwind(newError(ErrTypeError, "expected Dict, got %s", d.TypeName()))
	}
	val, ok := d.Dict.Get(key)
	if !ok {
		return Value{}, raiseUnwind(newError(ErrDictKeyNotFound, "key %s not found", key.String()))
	}
	v.push(val)
	return Value{}, nil
}

func (v *VM) execDictSet() (Value, *unwind) {
	val, err1 := v.pop()
	key, err2 := v.pop()
	d, err3 := v.pop()
	if err1 != nil || err2 != nil || err3 != nil {
		return Value{}, raiseUnwind(firstErr(firstErr(err1, err2), err3))
	}
	if d.Kind != KDict {
		return Value{}, raiseUnwind(newError(ErrTypeError, "expected Dict, got %s", d.TypeName()))
	}
	d.Dict.Set(key, val)
	return Value{}, nil
}

func (v *VM) execDictDelete() (Value, *unwind) {
	key, err1 := v.pop()
	d, err2 := v.pop()
	if err1 != nil || err2 != nil {
		return Value{}, raiseUnwind(firstErr(err1, err2))
	}
	if d.Kind != KDict {
		return Value{}, raiseUnwind(newError(ErrTypeError, "expected Dict, got %s", d.TypeName()))
	}
	d.Dict.Delete(key)
	return Value{}, nil
}

func (v *VM) execDictKeys() (Value, *unwind) {
	d, err := v.pop()
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	if d.Kind != KDict {
		return Value{}, raiseUnwind(newError(ErrTypeError, "expected Dict, got %s", d.TypeName()))
	}
	v.push(Value{Kind: KArray, Array: NewVectorAny(d.Dict.Keys())})
	return Value{}, nil
}

// execNewStruct allocates a struct instance: field values are popped in
// declared order. Mutable structs are heap-allocated (KStructRef); immutable
// ones carry their payload inline (KStruct), per spec §3.3/§9.
func (v *VM) execNewStruct(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	if instr.A < 0 || instr.A >= len(v.Program.StructDefs) {
		return Value{}, raiseUnwind(internalError("NewStruct: invalid struct type id %d", instr.A))
	}
	def := v.Program.StructDefs[instr.A]
	args, err := v.popN(len(def.Fields))
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	names := make([]string, len(def.Fields))
	for i, f := range def.Fields {
		names[i] = f.Name
	}
	inst := NewStructInstance(def.TypeID, def.Name, names, def.Mutable)
	copy(inst.Fields, args)
	if def.Mutable {
		idx := v.StructHeap.Alloc(inst)
		v.push(Value{Kind: KStructRef, HeapRef: idx})
	} else {
		v.push(Value{Kind: KStruct, Struct: inst})
	}
	return Value{}, nil
}

func (v *VM) resolveStructInstance(val Value) (*StructInstance, *VmError) {
	switch val.Kind {
	case KStruct:
		return val.Struct, nil
	case KStructRef:
		inst := v.StructHeap.Get(val.HeapRef)
		if inst == nil {
			return nil, internalError("dangling StructRef %d", val.HeapRef)
		}
		return inst, nil
	}
	return nil, newError(ErrTypeError, "expected a struct value, got %s", val.TypeName())
}

func (v *VM) execGetField(instr bytecode.Instr) (Value, *unwind) {
	recv, err := v.pop()
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	inst, vmErr := v.resolveStructInstance(recv)
	if vmErr != nil {
		return Value{}, raiseUnwind(vmErr)
	}
	val, ok := inst.Get(instr.Name)
	if !ok {
		return Value{}, raiseUnwind(newError(ErrTypeError, "type %s has no field %s", inst.TypeName, instr.Name))
	}
	v.push(val)
	return Value{}, nil
}

func (v *VM) execSetField(instr bytecode.Instr) (Value, *unwind) {
	val, err1 := v.pop()
	recv, err2 := v.pop()
	if err1 != nil || err2 != nil {
		return Value{}, raiseUnwind(firstErr(err1, err2))
	}
	inst, vmErr := v.resolveStructInstance(recv)
	if vmErr != nil {
		return Value{}, raiseUnwind(vmErr)
	}
	if !inst.Mutable {
		return Value{}, raiseUnwind(newError(ErrTypeError, "setfield!: type %s is immutable", inst.TypeName))
	}
	if !inst.Set(instr.Name, val) {
		return Value{}, raiseUnwind(newError(ErrTypeError, "type %s has no field %s", inst.TypeName, instr.Name))
	}
	return Value{}, nil
}

// execConcat implements string/char concatenation for the `*` operator on
// String/Char operands (spec §4.2 specialized path).
func (v *VM) execConcat() (Value, *unwind) {
	right, err1 := v.pop()
	left, err2 := v.pop()
	if err1 != nil || err2 != nil {
		return Value{}, raiseUnwind(firstErr(err1, err2))
	}
	if res, _, handled := trySpecializedBinary(v.StructHeap, bytecode.OpConcat, left, right); handled {
		v.push(res)
		return Value{}, nil
	}
	return Value{}, raiseUnwind(newError(ErrMethodError, "no concatenation method for (%s, %s)", left.TypeName(), right.TypeName()))
}
