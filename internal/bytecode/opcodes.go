// Package bytecode defines the VM's instruction set: the OpCode enum, the
// Instr encoding, and the Chunk container that holds a compiled function's
// code, constants, and per-instruction debug info (spec §4.4).
package bytecode

// OpCode identifies a VM instruction. The families below follow spec §4.4.
type OpCode byte

const (
	// Stack & locals
	OpPushConst OpCode = iota
	OpPushNil
	OpPushMissing
	OpPushTrue
	OpPushFalse
	OpLoadSlot
	OpStoreSlot
	OpLoadGlobal
	OpStoreGlobal
	OpDefineGlobal
	OpPop
	OpDup
	OpSwap

	// Arithmetic intrinsics (spec §4.3)
	OpAddInt
	OpSubInt
	OpMulInt
	OpSdivInt // integer division (÷)
	OpSremInt // integer remainder/mod
	OpNegInt
	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat
	OpPowFloat
	OpNegFloat
	OpEqInt
	OpNeInt
	OpLtInt
	OpLeInt
	OpGtInt
	OpGeInt
	OpEqFloat
	OpNeFloat
	OpLtFloat
	OpLeFloat
	OpGtFloat
	OpGeFloat
	OpAddBigInt
	OpSubBigInt
	OpMulBigInt
	OpDivBigInt
	OpPowBigInt
	OpAddBigFloat
	OpSubBigFloat
	OpMulBigFloat
	OpDivBigFloat

	// Back-conversion instructions (spec §4.2)
	OpDynamicToI8
	OpDynamicToI16
	OpDynamicToI32
	OpDynamicToI64
	OpDynamicToU8
	OpDynamicToU16
	OpDynamicToU32
	OpDynamicToU64
	OpDynamicToF16
	OpDynamicToF32
	OpDynamicToF64
	OpIntToChar

	// Runtime-typed operator protocols (spec §4.1, §4.2)
	OpEgal // === / !==, not overloadable
	OpDynamicPow
	OpCallDynamicBinaryBoth
	OpCallDynamicUnary

	// Control flow
	OpJump
	OpJumpIfZero
	OpJumpIfNotZero

	// Calls
	OpCall
	OpCallDynamic
	OpCallBuiltin
	OpCallIntrinsic
	OpCallSpecialized
	OpReturn
	OpReturnNil
	OpReturnImm // peephole fusion of PushX;Return

	// Arrays / dicts / tuples
	OpNewArray
	OpNewTuple
	OpNewDict
	OpNewSet
	OpIndexLoad
	OpIndexStore
	OpIndexSlice
	OpIndexLoadTyped
	OpArrayLen
	OpDictGet
	OpDictSet
	OpDictDelete
	OpDictKeys

	// Iteration
	OpIterateFirst
	OpIterateNext
	OpIterateDynamic

	// Structs
	OpNewStruct
	OpGetField
	OpSetField
	OpSetFieldByName

	// Exceptions
	OpPushHandler
	OpPopHandler
	OpRaise
	OpClearError

	// Closures
	OpCreateClosure
	OpLoadCaptured

	// Range / misc builtins
	OpNewRange
	OpConcat
	OpTypeOf
	OpPrint
)

var opcodeNames = map[OpCode]string{
	OpPushConst: "PushConst", OpPushNil: "PushNil", OpPushMissing: "PushMissing",
	OpPushTrue: "PushTrue", OpPushFalse: "PushFalse",
	OpLoadSlot: "LoadSlot", OpStoreSlot: "StoreSlot",
	OpLoadGlobal: "LoadGlobal", OpStoreGlobal: "StoreGlobal", OpDefineGlobal: "DefineGlobal",
	OpPop: "Pop", OpDup: "Dup", OpSwap: "Swap",
	OpAddInt: "AddInt", OpSubInt: "SubInt", OpMulInt: "MulInt",
	OpSdivInt: "SdivInt", OpSremInt: "SremInt", OpNegInt: "NegInt",
	OpAddFloat: "AddFloat", OpSubFloat: "SubFloat", OpMulFloat: "MulFloat",
	OpDivFloat: "DivFloat", OpPowFloat: "PowFloat", OpNegFloat: "NegFloat",
	OpEqInt: "EqInt", OpNeInt: "NeInt", OpLtInt: "LtInt", OpLeInt: "LeInt",
	OpGtInt: "GtInt", OpGeInt: "GeInt",
	OpEqFloat: "EqFloat", OpNeFloat: "NeFloat", OpLtFloat: "LtFloat", OpLeFloat: "LeFloat",
	OpGtFloat: "GtFloat", OpGeFloat: "GeFloat",
	OpAddBigInt: "AddBigInt", OpSubBigInt: "SubBigInt", OpMulBigInt: "MulBigInt",
	OpDivBigInt: "DivBigInt", OpPowBigInt: "PowBigInt",
	OpAddBigFloat: "AddBigFloat", OpSubBigFloat: "SubBigFloat",
	OpMulBigFloat: "MulBigFloat", OpDivBigFloat: "DivBigFloat",
	OpDynamicToI8: "DynamicToI8", OpDynamicToI16: "DynamicToI16", OpDynamicToI32: "DynamicToI32",
	OpDynamicToI64: "DynamicToI64", OpDynamicToU8: "DynamicToU8", OpDynamicToU16: "DynamicToU16",
	OpDynamicToU32: "DynamicToU32", OpDynamicToU64: "DynamicToU64",
	OpDynamicToF16: "DynamicToF16", OpDynamicToF32: "DynamicToF32", OpDynamicToF64: "DynamicToF64",
	OpIntToChar: "IntToChar",
	OpEgal:       "Egal", OpDynamicPow: "DynamicPow",
	OpCallDynamicBinaryBoth: "CallDynamicBinaryBoth", OpCallDynamicUnary: "CallDynamicUnary",
	OpJump: "Jump", OpJumpIfZero: "JumpIfZero", OpJumpIfNotZero: "JumpIfNotZero",
	OpCall: "Call", OpCallDynamic: "CallDynamic", OpCallBuiltin: "CallBuiltin",
	OpCallIntrinsic: "CallIntrinsic", OpCallSpecialized: "CallSpecialized",
	OpReturn: "Return", OpReturnNil: "ReturnNil", OpReturnImm: "ReturnImm",
	OpNewArray: "NewArray", OpNewTuple: "NewTuple", OpNewDict: "NewDict", OpNewSet: "NewSet",
	OpIndexLoad: "IndexLoad", OpIndexStore: "IndexStore", OpIndexSlice: "IndexSlice",
	OpIndexLoadTyped: "IndexLoadTyped", OpArrayLen: "ArrayLen",
	OpDictGet: "DictGet", OpDictSet: "DictSet", OpDictDelete: "DictDelete", OpDictKeys: "DictKeys",
	OpIterateFirst: "IterateFirst", OpIterateNext: "IterateNext", OpIterateDynamic: "IterateDynamic",
	OpNewStruct: "NewStruct", OpGetField: "GetField", OpSetField: "SetField",
	OpSetFieldByName: "SetFieldByName",
	OpPushHandler:    "PushHandler", OpPopHandler: "PopHandler", OpRaise: "Raise", OpClearError: "ClearError",
	OpCreateClosure: "CreateClosure", OpLoadCaptured: "LoadCaptured",
	OpNewRange: "NewRange", OpConcat: "Concat", OpTypeOf: "TypeOf", OpPrint: "Print",
}

func (op OpCode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Unknown"
}

// DebugInfo carries source-location metadata for one instruction, propagated
// from the IR's (external) source-location annotations. The surface parser
// is out of scope, but its debug info travels with the lowered IR and is
// preserved here so VmError can report file/line/column (spec §7).
type DebugInfo struct {
	Line     int
	Column   int
	File     string
	Function string
}
