// Package vm implements the stack-based virtual machine: the tagged-value
// runtime, call frames, the core execution loop, the numeric-tower
// intrinsics, binary-operator runtime dispatch, exception unwinding,
// iteration, and closures (spec §3.3, §4.3-§4.6).
package vm

import (
	"fmt"
	"math/big"

	"vesper/internal/types"
)

// Kind discriminates the Value sum type. Per spec §9 ("implement Value as a
// tagged union... never use raw pointers to an abstract base"), Value is a
// concrete struct with one Kind tag and the payload field(s) that tag uses —
// not a bare `interface{}`, so pattern matching on Kind is the single source
// of dispatch truth instead of a type switch over arbitrary Go types.
type Kind uint8

const (
	KNothing Kind = iota
	KMissing
	KBool
	KChar
	KI8
	KI16
	KI32
	KI64
	KI128
	KU8
	KU16
	KU32
	KU64
	KU128
	KF16
	KF32
	KF64
	KBigInt
	KBigFloat
	KString
	KSymbol
	KArray
	KTuple
	KNamedTuple
	KDict
	KSet
	KRange
	KStruct
	KStructRef
	KDataType
	KFunction
	KClosure
)

// Value is the runtime tagged value (spec §3.3). Exactly the field(s)
// matching Kind are meaningful; everything else is zero.
type Value struct {
	Kind Kind

	I   int64       // KI8..KI64, KBool(0/1), KChar(codepoint)
	I128 [2]int64   // KI128 high/low halves, avoiding a 3rd-party int128 dep
	U   uint64      // KU8..KU64
	F   float64     // KF16 (stored widened), KF32 (stored widened), KF64
	Big *big.Int    // KBigInt
	BigF *big.Float // KBigFloat
	Str string      // KString, KSymbol, KDataType (type name)

	Array   *ArrayValue
	Tuple   []Value
	Dict    *DictValue
	Set     *SetValue
	Range   *RangeValue
	Struct  *StructInstance // KStruct: inline immutable payload
	HeapRef int             // KStructRef: index into the struct heap
	Fn      *FunctionValue
	Closure *ClosureValue
}

func Nothing() Value { return Value{Kind: KNothing} }
func Missing() Value { return Value{Kind: KMissing} }
func Bool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{Kind: KBool, I: i}
}
func Char(r rune) Value     { return Value{Kind: KChar, I: int64(r)} }
func Int64(v int64) Value   { return Value{Kind: KI64, I: v} }
func Int32(v int32) Value   { return Value{Kind: KI32, I: int64(v)} }
func Int16(v int16) Value   { return Value{Kind: KI16, I: int64(v)} }
func Int8(v int8) Value     { return Value{Kind: KI8, I: int64(v)} }
func Float64(v float64) Value { return Value{Kind: KF64, F: v} }
func Float32(v float32) Value { return Value{Kind: KF32, F: float64(v)} }
func Float16(v float64) Value { return Value{Kind: KF16, F: v} }
func Str(s string) Value      { return Value{Kind: KString, Str: s} }
func Symbol(s string) Value   { return Value{Kind: KSymbol, Str: s} }
func BigIntVal(v *big.Int) Value     { return Value{Kind: KBigInt, Big: v} }
func BigFloatVal(v *big.Float) Value { return Value{Kind: KBigFloat, BigF: v} }
func DataType(name string) Value     { return Value{Kind: KDataType, Str: name} }

func (v Value) IsBool() bool { return v.Kind == KBool }
func (v Value) Truthy() bool {
	switch v.Kind {
	case KBool:
		return v.I != 0
	case KNothing:
		return false
	case KI64, KI32, KI16, KI8:
		return v.I != 0
	case KF64, KF32, KF16:
		return v.F != 0
	case KString:
		return v.Str != ""
	case KArray:
		return v.Array != nil && v.Array.Len() > 0
	default:
		return true
	}
}

// TypeName returns the runtime JuliaType name for this value, used by the
// method-dispatch scorer (spec §4.1) and by TypeOf.
func (v Value) TypeName() string {
	switch v.Kind {
	case KNothing:
		return "Nothing"
	case KMissing:
		return "Missing"
	case KBool:
		return types.Bool
	case KChar:
		return types.Char
	case KI8:
		return types.Int8
	case KI16:
		return types.Int16
	case KI32:
		return types.Int32
	case KI64:
		return types.Int64
	case KI128:
		return types.Int128
	case KU8:
		return types.UInt8
	case KU16:
		return types.UInt16
	case KU32:
		return types.UInt32
	case KU64:
		return types.UInt64
	case KU128:
		return types.UInt128
	case KF16:
		return types.Float16
	case KF32:
		return types.Float32
	case KF64:
		return types.Float64
	case KBigInt:
		return types.BigInt
	case KBigFloat:
		return types.BigFloat
	case KString:
		return types.String
	case KSymbol:
		return "Symbol"
	case KArray:
		return "Array"
	case KTuple:
		return "Tuple"
	case KNamedTuple:
		return "NamedTuple"
	case KDict:
		return "Dict"
	case KSet:
		return "Set"
	case KRange:
		return "Range"
	case KStruct:
		if v.Struct != nil {
			return v.Struct.TypeName
		}
		return "Struct"
	case KStructRef:
		return "StructRef"
	case KDataType:
		return "DataType"
	case KFunction:
		return "Function"
	case KClosure:
		return "Function"
	default:
		return "Any"
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KNothing:
		return "nothing"
	case KMissing:
		return "missing"
	case KBool:
		if v.I != 0 {
			return "true"
		}
		return "false"
	case KChar:
		return fmt.Sprintf("%q", rune(v.I))
	case KI8, KI16, KI32, KI64:
		return fmt.Sprintf("%d", v.I)
	case KU8, KU16, KU32, KU64:
		return fmt.Sprintf("%d", v.U)
	case KF16, KF32, KF64:
		return fmt.Sprintf("%g", v.F)
	case KBigInt:
		return v.Big.String()
	case KBigFloat:
		return v.BigF.String()
	case KString:
		return v.Str
	case KSymbol:
		return ":" + v.Str
	default:
		return fmt.Sprintf("<%s>", v.TypeName())
	}
}

// FunctionValue is a reference to a compiled, non-capturing function (spec
// §3.3 Value::Function).
type FunctionValue struct {
	Name        string
	GlobalIndex int
}

// ClosureValue pairs a function with its captured environment (spec §4.4
// CreateClosure/LoadCaptured, §8 S8).
type ClosureValue struct {
	FuncName    string
	GlobalIndex int
	Captured    map[string]*Value // boxed: shared mutable cells for captured mutables
}
