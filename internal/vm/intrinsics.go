package vm

import (
	"math"
	"math/big"

	"vesper/internal/bytecode"
)

// arithKind classifies an operator family independent of operand widths, so
// EvalArith can promote mixed-width operands to the correct family before
// computing (spec §4.3's numeric tower).
type arithKind int

const (
	arithAdd arithKind = iota
	arithSub
	arithMul
	arithDiv  // `/`, always produces Float64 for any numeric pair (spec §4.3)
	arithSdiv // `÷`, floor division, stays in the operand family
	arithSrem // `%`/mod, Julia's floor-based convention
	arithPow
	arithEq
	arithNe
	arithLt
	arithLe
	arithGt
	arithGe
)

func kindForOp(op bytecode.OpCode) (arithKind, bool) {
	switch op {
	case bytecode.OpAddInt, bytecode.OpAddFloat, bytecode.OpAddBigInt, bytecode.OpAddBigFloat:
		return arithAdd, true
	case bytecode.OpSubInt, bytecode.OpSubFloat, bytecode.OpSubBigInt, bytecode.OpSubBigFloat:
		return arithSub, true
	case bytecode.OpMulInt, bytecode.OpMulFloat, bytecode.OpMulBigInt, bytecode.OpMulBigFloat:
		return arithMul, true
	case bytecode.OpDivFloat, bytecode.OpDivBigInt, bytecode.OpDivBigFloat:
		return arithDiv, true
	case bytecode.OpSdivInt:
		return arithSdiv, true
	case bytecode.OpSremInt:
		return arithSrem, true
	case bytecode.OpPowFloat, bytecode.OpPowBigInt, bytecode.OpDynamicPow:
		return arithPow, true
	case bytecode.OpEqInt, bytecode.OpEqFloat:
		return arithEq, true
	case bytecode.OpNeInt, bytecode.OpNeFloat:
		return arithNe, true
	case bytecode.OpLtInt, bytecode.OpLtFloat:
		return arithLt, true
	case bytecode.OpLeInt, bytecode.OpLeFloat:
		return arithLe, true
	case bytecode.OpGtInt, bytecode.OpGtFloat:
		return arithGt, true
	case bytecode.OpGeInt, bytecode.OpGeFloat:
		return arithGe, true
	}
	return 0, false
}

func isIntKind(k Kind) bool {
	switch k {
	case KI8, KI16, KI32, KI64, KBool, KChar:
		return true
	}
	return false
}

func isFloatKind(k Kind) bool {
	return k == KF16 || k == KF32 || k == KF64
}

func asI128(v Value) (int64, bool) {
	switch v.Kind {
	case KI128:
		return v.I128[1], true // low half only; I128 overflow beyond 64 bits is out of scope for this subset
	case KI64, KI32, KI16, KI8, KBool, KChar:
		return v.I, true
	}
	return 0, false
}

// EvalArithBoth computes a primitive binary arithmetic/comparison op over
// two Values, applying the full numeric-tower promotion rules (spec §4.3),
// grounded in the original VM's execute_binary_both fallback path
// (`binary_both.rs`): I128/I64 integer family first, then Float16 mixed
// with F64/F32/Int widens to the widest float, F32 mixed with F64/Int
// follows suit, BigInt/BigFloat shortcut first, `/` always yields Float64,
// and `%`/mod uses Julia's floor-based convention rather than C's fmod.
func EvalArithBoth(op bytecode.OpCode, left, right Value) (Value, *VmError) {
	kind, ok := kindForOp(op)
	if !ok {
		return Value{}, internalError("EvalArithBoth: unsupported opcode %s", op)
	}

	// Missing propagates through every op reachable here (=== / !== never
	// call EvalArithBoth — those are OpEgal, handled separately).
	if left.Kind == KMissing || right.Kind == KMissing {
		return Missing(), nil
	}

	// BigInt/BigFloat shortcut (spec §4.3; mirrors binary_both.rs's
	// bigint_intrinsic_handles guard) — takes precedence over the
	// primitive tower whenever either side is already arbitrary precision.
	if left.Kind == KBigInt || right.Kind == KBigInt {
		if v, err, handled := evalBigInt(kind, left, right); handled {
			return v, err
		}
	}
	if left.Kind == KBigFloat || right.Kind == KBigFloat {
		if v, err, handled := evalBigFloat(kind, left, right); handled {
			return v, err
		}
	}

	// `/` always promotes to Float64 regardless of operand width (spec §4.3).
	if kind == arithDiv {
		lf, lok := numericToFloat64(left)
		rf, rok := numericToFloat64(right)
		if !lok || !rok {
			return Value{}, newError(ErrTypeError, "no method matching / for (%s, %s)", left.TypeName(), right.TypeName())
		}
		if rf == 0 {
			return Value{}, newError(ErrDivisionByZero, "division by zero")
		}
		return Float64(lf / rf), nil
	}

	bothInt := isIntKind(left.Kind) && isIntKind(right.Kind)
	if bothInt {
		return evalIntFamily(kind, left, right)
	}

	if left.Kind == KF16 || right.Kind == KF16 {
		return evalFloatFamily(kind, left, right, 16)
	}
	if left.Kind == KF32 || right.Kind == KF32 {
		return evalFloatFamily(kind, left, right, 32)
	}
	if isFloatKind(left.Kind) || isFloatKind(right.Kind) {
		return evalFloatFamily(kind, left, right, 64)
	}

	return Value{}, newError(ErrTypeError, "no method matching operator for (%s, %s)", left.TypeName(), right.TypeName())
}

func numericToFloat64(v Value) (float64, bool) {
	switch v.Kind {
	case KF64, KF32, KF16:
		return v.F, true
	case KI64, KI32, KI16, KI8, KBool, KChar:
		return float64(v.I), true
	case KBigInt:
		f, _ := new(big.Float).SetInt(v.Big).Float64()
		return f, true
	case KBigFloat:
		f, _ := v.BigF.Float64()
		return f, true
	}
	return 0, false
}

func evalIntFamily(kind arithKind, left, right Value) (Value, *VmError) {
	a, _ := asI128(left)
	b, _ := asI128(right)
	switch kind {
	case arithAdd:
		return Int64(a + b), nil
	case arithSub:
		return Int64(a - b), nil
	case arithMul:
		return Int64(a * b), nil
	case arithSdiv:
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, "integer division (÷) by zero")
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q-- // floor, not truncating, division
		}
		return Int64(q), nil
	case arithSrem:
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, "mod by zero")
		}
		return Int64(((a % b) + b) % b), nil // Julia's mod: always same sign as b
	case arithPow:
		return Int64(ipow(a, b)), nil
	case arithEq:
		return Bool(a == b), nil
	case arithNe:
		return Bool(a != b), nil
	case arithLt:
		return Bool(a < b), nil
	case arithLe:
		return Bool(a <= b), nil
	case arithGt:
		return Bool(a > b), nil
	case arithGe:
		return Bool(a >= b), nil
	}
	return Value{}, internalError("evalIntFamily: unhandled kind %d", kind)
}

func ipow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// evalFloatFamily promotes both operands to float64, computes, and narrows
// the result back to the requested width (16/32/64), matching the original
// VM's width-specific Float16/Float32 execution paths which still compute
// in f64/f32 and truncate at the end.
func evalFloatFamily(kind arithKind, left, right Value, width int) (Value, *VmError) {
	a, aok := numericToFloat64(left)
	b, bok := numericToFloat64(right)
	if !aok || !bok {
		return Value{}, newError(ErrTypeError, "no method matching operator for (%s, %s)", left.TypeName(), right.TypeName())
	}
	switch kind {
	case arithAdd:
		return narrowFloat(a+b, width), nil
	case arithSub:
		return narrowFloat(a-b, width), nil
	case arithMul:
		return narrowFloat(a*b, width), nil
	case arithSdiv:
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, "integer division (÷) by zero")
		}
		return narrowFloat(math.Floor(a/b), width), nil
	case arithSrem:
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, "mod by zero")
		}
		return narrowFloat(a-math.Floor(a/b)*b, width), nil // Julia's mod, not fmod
	case arithPow:
		return narrowFloat(math.Pow(a, b), width), nil
	case arithEq:
		return Bool(a == b), nil
	case arithNe:
		return Bool(a != b), nil
	case arithLt:
		return Bool(a < b), nil
	case arithLe:
		return Bool(a <= b), nil
	case arithGt:
		return Bool(a > b), nil
	case arithGe:
		return Bool(a >= b), nil
	}
	return Value{}, internalError("evalFloatFamily: unhandled kind %d", kind)
}

func narrowFloat(f float64, width int) Value {
	switch width {
	case 16:
		return Float16(f)
	case 32:
		return Float32(float32(f))
	default:
		return Float64(f)
	}
}

func toBigInt(v Value) (*big.Int, bool) {
	switch v.Kind {
	case KBigInt:
		return v.Big, true
	case KI64, KI32, KI16, KI8, KBool, KChar:
		return big.NewInt(v.I), true
	}
	return nil, false
}

func evalBigInt(kind arithKind, left, right Value) (Value, *VmError, bool) {
	a, aok := toBigInt(left)
	b, bok := toBigInt(right)
	if !aok || !bok {
		return Value{}, nil, false
	}
	switch kind {
	case arithAdd:
		return BigIntVal(new(big.Int).Add(a, b)), nil, true
	case arithSub:
		return BigIntVal(new(big.Int).Sub(a, b)), nil, true
	case arithMul:
		return BigIntVal(new(big.Int).Mul(a, b)), nil, true
	case arithSdiv, arithDiv:
		// Unlike the primitive tower, BigInt `/` does not widen to Float64:
		// the original VM routes both ÷ and / to the same BigInt floor
		// division (`DivFloat | SdivInt => DivBigInt`).
		if b.Sign() == 0 {
			return Value{}, newError(ErrDivisionByZero, "integer division (÷) by zero"), true
		}
		q, m := new(big.Int).QuoRem(a, b, new(big.Int))
		if m.Sign() != 0 && (a.Sign() < 0) != (b.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
		}
		return BigIntVal(q), nil, true
	case arithSrem:
		if b.Sign() == 0 {
			return Value{}, newError(ErrDivisionByZero, "mod by zero"), true
		}
		m := new(big.Int).Mod(a, b) // big.Int.Mod already returns a Euclidean (non-negative for b>0) result
		return BigIntVal(m), nil, true
	case arithPow:
		if b.Sign() < 0 {
			return Value{}, newError(ErrOverflowError, "negative exponent for BigInt ^"), true
		}
		return BigIntVal(new(big.Int).Exp(a, b, nil)), nil, true
	case arithEq:
		return Bool(a.Cmp(b) == 0), nil, true
	case arithNe:
		return Bool(a.Cmp(b) != 0), nil, true
	case arithLt:
		return Bool(a.Cmp(b) < 0), nil, true
	case arithLe:
		return Bool(a.Cmp(b) <= 0), nil, true
	case arithGt:
		return Bool(a.Cmp(b) > 0), nil, true
	case arithGe:
		return Bool(a.Cmp(b) >= 0), nil, true
	}
	return Value{}, internalError("evalBigInt: unhandled kind %d", kind), true
}

func toBigFloat(v Value) (*big.Float, bool) {
	switch v.Kind {
	case KBigFloat:
		return v.BigF, true
	case KBigInt:
		return new(big.Float).SetInt(v.Big), true
	case KF64, KF32, KF16:
		return big.NewFloat(v.F), true
	case KI64, KI32, KI16, KI8, KBool, KChar:
		return big.NewFloat(float64(v.I)), true
	}
	return nil, false
}

func evalBigFloat(kind arithKind, left, right Value) (Value, *VmError, bool) {
	a, aok := toBigFloat(left)
	b, bok := toBigFloat(right)
	if !aok || !bok {
		return Value{}, nil, false
	}
	switch kind {
	case arithAdd:
		return BigFloatVal(new(big.Float).Add(a, b)), nil, true
	case arithSub:
		return BigFloatVal(new(big.Float).Sub(a, b)), nil, true
	case arithMul:
		return BigFloatVal(new(big.Float).Mul(a, b)), nil, true
	case arithSdiv, arithDiv:
		if b.Sign() == 0 {
			return Value{}, newError(ErrDivisionByZero, "division by zero"), true
		}
		return BigFloatVal(new(big.Float).Quo(a, b)), nil, true
	case arithEq:
		return Bool(a.Cmp(b) == 0), nil, true
	case arithNe:
		return Bool(a.Cmp(b) != 0), nil, true
	case arithLt:
		return Bool(a.Cmp(b) < 0), nil, true
	case arithLe:
		return Bool(a.Cmp(b) <= 0), nil, true
	case arithGt:
		return Bool(a.Cmp(b) > 0), nil, true
	case arithGe:
		return Bool(a.Cmp(b) >= 0), nil, true
	}
	return Value{}, internalError("evalBigFloat: unhandled kind %d", kind), true
}

// EvalNeg handles OpNegInt/OpNegFloat, preserving the operand's width.
func EvalNeg(op bytecode.OpCode, v Value) (Value, *VmError) {
	switch v.Kind {
	case KBigInt:
		return BigIntVal(new(big.Int).Neg(v.Big)), nil
	case KBigFloat:
		return BigFloatVal(new(big.Float).Neg(v.BigF)), nil
	case KF16:
		return Float16(-v.F), nil
	case KF32:
		return Float32(float32(-v.F)), nil
	case KF64:
		return Float64(-v.F), nil
	case KI8, KI16, KI32, KI64, KBool, KChar:
		return Int64(-v.I), nil
	}
	return Value{}, newError(ErrTypeError, "no method matching unary - for %s", v.TypeName())
}
