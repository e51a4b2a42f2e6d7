package types

// ValueType is the coarser runtime-tag lattice the compiler and slot
// allocator use: finer-grained than a single "any" but coarser than
// JuliaType (it collapses parametric tuple/vector element types except where
// the compiler specifically tracks them, spec §3.1).
type ValueType int

const (
	VTAny ValueType = iota
	VTInt8
	VTInt16
	VTInt32
	VTInt64
	VTInt128
	VTUInt8
	VTUInt16
	VTUInt32
	VTUInt64
	VTUInt128
	VTFloat16
	VTFloat32
	VTFloat64
	VTBool
	VTChar
	VTString
	VTBigInt
	VTBigFloat
	VTTuple
	VTArray
	VTDict
	VTSet
	VTStruct
	VTFunction
	VTNothing
	VTMissing
)

func (v ValueType) String() string {
	switch v {
	case VTAny:
		return "Any"
	case VTInt8:
		return Int8
	case VTInt16:
		return Int16
	case VTInt32:
		return Int32
	case VTInt64:
		return Int64
	case VTInt128:
		return Int128
	case VTUInt8:
		return UInt8
	case VTUInt16:
		return UInt16
	case VTUInt32:
		return UInt32
	case VTUInt64:
		return UInt64
	case VTUInt128:
		return UInt128
	case VTFloat16:
		return Float16
	case VTFloat32:
		return Float32
	case VTFloat64:
		return Float64
	case VTBool:
		return Bool
	case VTChar:
		return Char
	case VTString:
		return String
	case VTBigInt:
		return BigInt
	case VTBigFloat:
		return BigFloat
	case VTTuple:
		return "Tuple"
	case VTArray:
		return "Array"
	case VTDict:
		return "Dict"
	case VTSet:
		return "Set"
	case VTStruct:
		return "Struct"
	case VTFunction:
		return "Function"
	case VTNothing:
		return "Nothing"
	case VTMissing:
		return "Missing"
	default:
		return "?"
	}
}

// ValueTypeForName maps a primitive JuliaType name to its ValueType tag.
// Unknown / abstract / struct names collapse to VTAny, mirroring the
// compiler's "fall back to runtime dispatch when not known concretely
// enough" rule (spec §4.1).
func ValueTypeForName(name string) ValueType {
	switch name {
	case Int8:
		return VTInt8
	case Int16:
		return VTInt16
	case Int32:
		return VTInt32
	case Int64:
		return VTInt64
	case Int128:
		return VTInt128
	case UInt8:
		return VTUInt8
	case UInt16:
		return VTUInt16
	case UInt32:
		return VTUInt32
	case UInt64:
		return VTUInt64
	case UInt128:
		return VTUInt128
	case Float16:
		return VTFloat16
	case Float32:
		return VTFloat32
	case Float64:
		return VTFloat64
	case Bool:
		return VTBool
	case Char:
		return VTChar
	case String:
		return VTString
	case BigInt:
		return VTBigInt
	case BigFloat:
		return VTBigFloat
	default:
		return VTAny
	}
}

// FromJuliaType derives the coarse ValueType for a static JuliaType, used by
// the compiler to decide which intrinsic family (if any) applies.
func FromJuliaType(t JuliaType) ValueType {
	switch t.Kind {
	case KindPrimitive:
		return ValueTypeForName(t.Name)
	case KindTupleOf, KindTuple:
		return VTTuple
	case KindVectorOf, KindMatrixOf, KindArray:
		return VTArray
	case KindStruct:
		return VTStruct
	default:
		return VTAny
	}
}

// IsNumeric reports whether a ValueType participates in the numeric tower.
func (v ValueType) IsNumeric() bool {
	switch v {
	case VTInt8, VTInt16, VTInt32, VTInt64, VTInt128,
		VTUInt8, VTUInt16, VTUInt32, VTUInt64, VTUInt128,
		VTFloat16, VTFloat32, VTFloat64, VTBool, VTBigInt, VTBigFloat:
		return true
	}
	return false
}

func (v ValueType) IsFloat() bool {
	return v == VTFloat16 || v == VTFloat32 || v == VTFloat64 || v == VTBigFloat
}

func (v ValueType) IsInteger() bool {
	switch v {
	case VTInt8, VTInt16, VTInt32, VTInt64, VTInt128,
		VTUInt8, VTUInt16, VTUInt32, VTUInt64, VTUInt128, VTBool, VTBigInt:
		return true
	}
	return false
}
