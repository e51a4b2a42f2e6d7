package vm

import (
	"vesper/internal/bytecode"
	"vesper/internal/dispatch"
)

// isBuiltinNumeric mirrors the original VM's is_builtin_numeric_value guard
// (binary_both.rs): true for any primitive numeric/Bool/Char, false for
// BigInt/BigFloat (which get their own shortcut) and everything else.
func isBuiltinNumeric(v Value) bool {
	switch v.Kind {
	case KI8, KI16, KI32, KI64, KU8, KU16, KU32, KU64, KF16, KF32, KF64, KBool, KChar:
		return true
	}
	return false
}

func isBigNumeric(v Value) bool { return v.Kind == KBigInt || v.Kind == KBigFloat }

// execCallDynamicBinaryBoth implements the CallDynamicBinaryBoth protocol
// (spec §4.1): primitive/BigInt/BigFloat shortcut first (so Base-extension
// methods never shadow builtin arithmetic), then scored method-table
// dispatch among the instruction's candidates, then specialized fallbacks,
// then a MethodError. Grounded on
// original_source/subset_julia_vm/src/vm/exec/binary_both.rs.
func (v *VM) execCallDynamicBinaryBoth(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	right, err1 := v.pop()
	left, err2 := v.pop()
	if err1 != nil || err2 != nil {
		return Value{}, raiseUnwind(firstErr(err1, err2))
	}

	// Missing propagates through every operator reachable via this protocol
	// (=== / !== are not: they're compiled to OpEgal, a separate opcode that
	// never calls execCallDynamicBinaryBoth). Checked ahead of method-table
	// dispatch so a ::Any-typed user method can never intercept it.
	if left.Kind == KMissing || right.Kind == KMissing {
		v.push(Missing())
		return Value{}, nil
	}

	bothPrimitive := isBuiltinNumeric(left) && isBuiltinNumeric(right)
	bigHandles := bigIntrinsicHandles(left, right)
	skipDispatch := (bothPrimitive && !instr.ShadowsPrimitives) || bigHandles

	if !skipDispatch && len(instr.Candidates) > 0 {
		if sig, ok := v.selectBinaryCandidate(instr.Candidates, left, right); ok {
			res, vmErr := v.invokeMethod(sig, []Value{left, right})
			if vmErr != nil {
				return Value{}, raiseUnwind(vmErr)
			}
			v.push(res)
			return Value{}, nil
		}
	}

	if res, vmErr, handled := trySpecializedBinary(v.StructHeap, instr.FallbackOp, left, right); handled {
		if vmErr != nil {
			return Value{}, raiseUnwind(vmErr)
		}
		v.push(res)
		return Value{}, nil
	}

	res, vmErr := EvalArithBoth(instr.FallbackOp, left, right)
	if vmErr != nil {
		if vmErr.Kind == ErrTypeError {
			return Value{}, raiseUnwind(newError(ErrMethodError, "no method matching for (%s, %s)", left.TypeName(), right.TypeName()))
		}
		return Value{}, raiseUnwind(vmErr)
	}
	v.push(res)
	return Value{}, nil
}

// execCallDynamic implements general multi-method dispatch for plain
// (non-operator) function calls: every same-name method is carried as a
// candidate, scored against the actual argument types the same way
// CallDynamicBinaryBoth scores operator candidates (spec §4.1, exercised by
// S2's f(p::P{Int64}) vs f(p::P{Float64})).
func (v *VM) execCallDynamic(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	args, err := v.popN(instr.B)
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	idx, ok := v.selectDynamicCandidate(instr.Candidates, args)
	if !ok {
		return Value{}, raiseUnwind(newError(ErrMethodError, "no method matching for %d argument(s)", len(args)))
	}
	res, vmErr := v.callFunction(&v.Program.Functions[idx], args)
	if vmErr != nil {
		return Value{}, raiseUnwind(vmErr)
	}
	v.push(res)
	return Value{}, nil
}

func (v *VM) selectDynamicCandidate(cands []bytecode.DispatchCandidate, args []Value) (int, bool) {
	best := -1
	bestScore := -1
	for _, cand := range cands {
		if cand.GlobalIndex < 0 || cand.GlobalIndex >= len(v.Program.Functions) {
			continue
		}
		fn := v.Program.Functions[cand.GlobalIndex]
		if len(fn.ParamJuliaTypes) != len(args) {
			continue
		}
		total := 0
		matched := true
		for i, pt := range fn.ParamJuliaTypes {
			s := dispatch.ScoreTypeMatch(v.Types, pt, args[i].TypeName())
			if s == 0 {
				matched = false
				break
			}
			total += s
		}
		if !matched {
			continue
		}
		if total > bestScore {
			best = cand.GlobalIndex
			bestScore = total
		}
	}
	return best, best >= 0
}

func bigIntrinsicHandles(left, right Value) bool {
	if left.Kind == KBigInt && (right.Kind == KBigInt || right.Kind == KI64) {
		return true
	}
	if right.Kind == KBigInt && left.Kind == KI64 {
		return true
	}
	if left.Kind == KBigFloat && (right.Kind == KBigFloat || right.Kind == KF64 || right.Kind == KI64) {
		return true
	}
	if right.Kind == KBigFloat && (left.Kind == KF64 || left.Kind == KI64) {
		return true
	}
	return false
}

func (v *VM) selectBinaryCandidate(cands []bytecode.DispatchCandidate, left, right Value) (dispatch.MethodSig, bool) {
	leftType := left.TypeName()
	rightType := right.TypeName()
	best := -1
	bestScore := 0
	for i, c := range cands {
		ls := dispatch.ScoreTypeMatch(v.Types, c.LeftExpected, leftType)
		rs := dispatch.ScoreTypeMatch(v.Types, c.RightExpected, rightType)
		if ls == 0 || rs == 0 {
			continue
		}
		total := ls + rs
		if total > bestScore {
			best = i
			bestScore = total
		}
	}
	if best < 0 {
		return dispatch.MethodSig{}, false
	}
	idx := cands[best].GlobalIndex
	if idx < 0 || idx >= len(v.Program.Functions) {
		return dispatch.MethodSig{}, false
	}
	fn := v.Program.Functions[idx]
	return dispatch.MethodSig{GlobalIndex: idx, ReturnJuliaType: nil, Params: paramsFromFuncInfo(fn)}, true
}

func paramsFromFuncInfo(fn bytecode.FunctionInfo) []dispatch.Param {
	out := make([]dispatch.Param, 0, len(fn.Params))
	for _, p := range fn.Params {
		out = append(out, dispatch.Param{Name: p.Name})
	}
	return out
}

func (v *VM) invokeMethod(sig dispatch.MethodSig, args []Value) (Value, *VmError) {
	if sig.GlobalIndex < 0 || sig.GlobalIndex >= len(v.Program.Functions) {
		return Value{}, internalError("method dispatch targets invalid global_index %d", sig.GlobalIndex)
	}
	return v.callFunction(&v.Program.Functions[sig.GlobalIndex], args)
}

// trySpecializedBinary covers the binary-op fallbacks that aren't plain
// numeric-tower arithmetic: String/Char concatenation via `*`, String
// equality/ordering, struct `==`/`!=` by field-wise comparison, DataType
// equality, and the array forms of `*` (scalar-array, array-array matmul) —
// spec §4.1 step "specialized fallbacks", grounded on binary_both.rs, which
// gates each of these on the *specific* intrinsic it applies to rather than
// on operand kind alone (its `try_string_char_concat` only fires for
// `MulFloat`; its string-comparison arm is a separate `matches!` on
// Eq/Ne/Lt/Le/Gt/Ge).
func trySpecializedBinary(heap *StructHeap, op bytecode.OpCode, left, right Value) (Value, *VmError, bool) {
	if op == bytecode.OpConcat {
		if left.Kind == KString && right.Kind == KString {
			return Str(left.Str + right.Str), nil, true
		}
		if left.Kind == KString && right.Kind == KChar {
			return Str(left.Str + string(rune(right.I))), nil, true
		}
		if left.Kind == KChar && right.Kind == KString {
			return Str(string(rune(left.I)) + right.Str), nil, true
		}
	}

	if left.Kind == KString && right.Kind == KString {
		if res, ok := compareStrings(op, left.Str, right.Str); ok {
			return res, nil, true
		}
	}

	if (left.Kind == KStruct || left.Kind == KStructRef) && (right.Kind == KStruct || right.Kind == KStructRef) {
		ls := structFieldsOf(left, heap)
		rs := structFieldsOf(right, heap)
		eq := ls != nil && rs != nil && structInstancesEqual(ls, rs)
		switch op {
		case bytecode.OpEqInt, bytecode.OpEqFloat:
			return Bool(eq), nil, true
		case bytecode.OpNeInt, bytecode.OpNeFloat:
			return Bool(!eq), nil, true
		}
	}

	if left.Kind == KDataType && right.Kind == KDataType {
		switch op {
		case bytecode.OpEqInt, bytecode.OpEqFloat:
			return Bool(left.Str == right.Str), nil, true
		case bytecode.OpNeInt, bytecode.OpNeFloat:
			return Bool(left.Str != right.Str), nil, true
		}
	}

	if op == bytecode.OpMulFloat {
		if res, ok := tryScalarArrayMul(left, right); ok {
			return res, nil, true
		}
		if res, vmErr, ok := tryArrayMatmul(left, right); ok {
			return res, vmErr, true
		}
	}

	return Value{}, nil, false
}

// compareStrings implements String `==`/`!=`/`<`/`<=`/`>`/`>=` as plain Go
// lexicographic string comparison (binary_both.rs's String-comparison arm:
// "Issue #2025" in the original commit history). compileBinaryOp always
// compiles comparison operators to the *Float opcode variant regardless of
// operand type (arithFallbackOp), so only the Float forms are checked.
func compareStrings(op bytecode.OpCode, a, b string) (Value, bool) {
	switch op {
	case bytecode.OpEqInt, bytecode.OpEqFloat:
		return Bool(a == b), true
	case bytecode.OpNeInt, bytecode.OpNeFloat:
		return Bool(a != b), true
	case bytecode.OpLtInt, bytecode.OpLtFloat:
		return Bool(a < b), true
	case bytecode.OpLeInt, bytecode.OpLeFloat:
		return Bool(a <= b), true
	case bytecode.OpGtInt, bytecode.OpGtFloat:
		return Bool(a > b), true
	case bytecode.OpGeInt, bytecode.OpGeFloat:
		return Bool(a >= b), true
	}
	return Value{}, false
}

// tryScalarArrayMul implements `scalar * array` / `array * scalar`
// element-wise multiplication (binary_both.rs's "Scalar-Array Multiplication
// Dispatch", Issue #1799 — the Complex-scalar variant is out of scope here,
// see DESIGN.md's Open Question on Complex arithmetic).
func tryScalarArrayMul(left, right Value) (Value, bool) {
	scalar, arr, ok := scalarAndArray(left, right)
	if !ok {
		return Value{}, false
	}
	n := arr.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, _ := arr.Get(i)
		out[i] = asFloat(v) * scalar
	}
	return Value{Kind: KArray, Array: &ArrayValue{Data: ArrayData{Elem: ElemF64, F64: out}, Shape: append([]int(nil), arr.Shape...)}}, true
}

func scalarAndArray(left, right Value) (float64, *ArrayValue, bool) {
	if isScalarNumeric(left) && right.Kind == KArray {
		return asFloat(left), right.Array, true
	}
	if left.Kind == KArray && isScalarNumeric(right) {
		return asFloat(right), left.Array, true
	}
	return 0, nil, false
}

func isScalarNumeric(v Value) bool {
	switch v.Kind {
	case KI64, KF64, KF32:
		return true
	}
	return false
}

// tryArrayMatmul implements `array * array` as 2-D matrix multiplication
// (binary_both.rs's "Array * Array: use matrix multiplication" arm, real
// operands only — Complex arrays are out of scope here).
func tryArrayMatmul(left, right Value) (Value, *VmError, bool) {
	if left.Kind != KArray || right.Kind != KArray {
		return Value{}, nil, false
	}
	a, b := left.Array, right.Array
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return Value{}, nil, false
	}
	rows, inner := a.Shape[0], a.Shape[1]
	innerB, cols := b.Shape[0], b.Shape[1]
	if inner != innerB {
		return Value{}, newError(ErrTypeError, "matrix dimensions %dx%d and %dx%d don't match", rows, inner, innerB, cols), true
	}
	out := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum float64
			for k := 0; k < inner; k++ {
				av, _ := a.Get(r*inner + k)
				bv, _ := b.Get(k*cols + c)
				sum += asFloat(av) * asFloat(bv)
			}
			out[r*cols+c] = sum
		}
	}
	return Value{Kind: KArray, Array: &ArrayValue{Data: ArrayData{Elem: ElemF64, F64: out}, Shape: []int{rows, cols}}}, nil, true
}

func structFieldsOf(v Value, heap *StructHeap) *StructInstance {
	if v.Kind == KStruct {
		return v.Struct
	}
	if v.Kind == KStructRef {
		return heap.Get(v.HeapRef)
	}
	return nil
}

func structInstancesEqual(ls, rs *StructInstance) bool {
	if ls.TypeID != rs.TypeID || len(ls.Fields) != len(rs.Fields) {
		return false
	}
	for i := range ls.Fields {
		if !valuesEqual(ls.Fields[i], rs.Fields[i]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	res, err := EvalArithBoth(bytecode.OpEqInt, a, b)
	if err == nil {
		return res.Truthy()
	}
	return egal(a, b)
}

// execCallDynamicUnary implements CallDynamicUnary (spec §4.1): scored
// single-argument dispatch with a primitive-negation fallback.
func (v *VM) execCallDynamicUnary(frame *Frame, instr bytecode.Instr) (Value, *unwind) {
	operand, err := v.pop()
	if err != nil {
		return Value{}, raiseUnwind(err)
	}
	if !isBuiltinNumeric(operand) && !isBigNumeric(operand) && len(instr.Candidates) > 0 {
		typeName := operand.TypeName()
		best := -1
		bestScore := 0
		for i, c := range instr.Candidates {
			s := dispatch.ScoreTypeMatch(v.Types, c.LeftExpected, typeName)
			if s > bestScore {
				best = i
				bestScore = s
			}
		}
		if best >= 0 {
			idx := instr.Candidates[best].GlobalIndex
			if idx >= 0 && idx < len(v.Program.Functions) {
				res, vmErr := v.callFunction(&v.Program.Functions[idx], []Value{operand})
				if vmErr != nil {
					return Value{}, raiseUnwind(vmErr)
				}
				v.push(res)
				return Value{}, nil
			}
		}
	}
	res, vmErr := EvalNeg(instr.FallbackOp, operand)
	if vmErr != nil {
		return Value{}, raiseUnwind(vmErr)
	}
	v.push(res)
	return Value{}, nil
}

// convertDynamic implements the back-conversion opcodes (spec §4.2): a
// runtime-typed Any value is narrowed to a concrete width after a dynamic
// arithmetic result, raising OverflowError if it doesn't fit.
func convertDynamic(op bytecode.OpCode, v Value) (Value, *VmError) {
	f, isFloat := numericToFloat64(v)
	if !isFloat {
		return Value{}, newError(ErrTypeError, "cannot convert %s", v.TypeName())
	}
	switch op {
	case bytecode.OpDynamicToI8:
		return checkedInt(f, -128, 127, func(i int64) Value { return Int8(int8(i)) })
	case bytecode.OpDynamicToI16:
		return checkedInt(f, -32768, 32767, func(i int64) Value { return Int16(int16(i)) })
	case bytecode.OpDynamicToI32:
		return checkedInt(f, -2147483648, 2147483647, func(i int64) Value { return Int32(int32(i)) })
	case bytecode.OpDynamicToI64:
		return Int64(int64(f)), nil
	case bytecode.OpDynamicToU8:
		return checkedInt(f, 0, 255, func(i int64) Value { return Value{Kind: KU8, U: uint64(i)} })
	case bytecode.OpDynamicToU16:
		return checkedInt(f, 0, 65535, func(i int64) Value { return Value{Kind: KU16, U: uint64(i)} })
	case bytecode.OpDynamicToU32:
		return checkedInt(f, 0, 4294967295, func(i int64) Value { return Value{Kind: KU32, U: uint64(i)} })
	case bytecode.OpDynamicToU64:
		return Value{Kind: KU64, U: uint64(int64(f))}, nil
	case bytecode.OpDynamicToF16:
		return Float16(f), nil
	case bytecode.OpDynamicToF32:
		return Float32(float32(f)), nil
	case bytecode.OpDynamicToF64:
		return Float64(f), nil
	case bytecode.OpIntToChar:
		return Char(rune(int64(f))), nil
	}
	return Value{}, internalError("convertDynamic: unhandled opcode %s", op)
}

func checkedInt(f float64, lo, hi int64, wrap func(int64) Value) (Value, *VmError) {
	i := int64(f)
	if float64(i) != f || i < lo || i > hi {
		return Value{}, newError(ErrOverflowError, "value %g out of range", f)
	}
	return wrap(i), nil
}
