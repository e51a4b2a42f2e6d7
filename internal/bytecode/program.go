package bytecode

import "github.com/google/uuid"

// FunctionInfo describes one function's region of a CompiledProgram's flat
// code vector (spec §3.4). code_start/code_end/entry are all offsets into
// the single shared Chunk, not into a per-function code slice — mirroring
// the spec's "flat byte-serializable instruction vector" rather than the
// teacher's one-Chunk-per-function layout.
type FunctionInfo struct {
	Name            string
	Params          []ParamInfo
	KwParams        []ParamInfo
	Entry           int
	CodeStart       int
	CodeEnd         int
	ReturnType      string // ValueType name
	TypeParams      []string
	ParamJuliaTypes []string
	SlotNames       []string
	LocalSlotCount  int
	ParamSlots      []int
	VarargParamIndex int // -1 if none
	VarargFixedCount int
}

type ParamInfo struct {
	Name string
	Type string // ValueType name
}

// StructDefInfo mirrors a Program StructDef plus its assigned type id, kept
// alongside the compiled output so the disassembler and runtime error
// messages can name struct types without a back-reference to the source IR.
type StructDefInfo struct {
	TypeID   int
	Name     string
	Fields   []ParamInfo
	Mutable  bool
	ParentID int // -1 if none
}

type AbstractTypeInfo struct {
	Name   string
	Parent string
}

// CompiledProgram is the compiler's sole output artifact (spec §3.4):
// a flat instruction vector (Code, embedded via *Chunk) plus the function,
// struct, and abstract-type metadata needed to run and to disassemble it.
type CompiledProgram struct {
	Code                   *Chunk
	Functions              []FunctionInfo
	StructDefs             []StructDefInfo
	AbstractTypes          []AbstractTypeInfo
	ShowMethods            map[string]int // struct/type name -> global_index of a user `show` method
	Entry                  int
	SpecializableFunctions []int
	CompileContext         string
	BaseFunctionCount      int
	GlobalSlotNames        []string
	GlobalSlotCount        int

	// BuildID stamps this artifact with a unique build identity (not part
	// of spec.md's CompiledProgram fields; see DESIGN.md for the
	// cache-prefix rationale). CachePrefixCompatible only checks that this
	// ID and the base build's ID are non-empty; it does not compare them.
	BuildID string
}

// NewCompiledProgram allocates an empty program with a fresh BuildID.
func NewCompiledProgram() *CompiledProgram {
	return &CompiledProgram{
		Code:        NewChunk(),
		ShowMethods: make(map[string]int),
		BuildID:     uuid.NewString(),
	}
}

// AppendFunction registers fn and returns its global_index (position in
// Functions), used by the compiler to resolve Call(global_index) targets
// and by lazy specialization to append new entries without disturbing
// earlier indices (spec §4.1 "append-only" invariant).
func (p *CompiledProgram) AppendFunction(fn FunctionInfo) int {
	p.Functions = append(p.Functions, fn)
	return len(p.Functions) - 1
}

// ValidCallTarget reports whether idx addresses a real function — used by
// the invariant checker in tests and by the disassembler's cross-reference
// pass (spec §3.4 invariant "all Call(global_index) targets are valid").
func (p *CompiledProgram) ValidCallTarget(idx int) bool {
	return idx >= 0 && idx < len(p.Functions)
}

// CachePrefixCompatible reports whether p's leading BaseFunctionCount
// functions can be treated as a precompiled prefix (spec §3.4 cache
// invariant). It requires a positive BaseFunctionCount, a non-empty
// p.BuildID and baseBuildID, and at least BaseFunctionCount functions in p.
// The two build IDs are not compared with each other.
func (p *CompiledProgram) CachePrefixCompatible(baseBuildID string) bool {
	return p.BaseFunctionCount > 0 && p.BuildID != "" && baseBuildID != "" &&
		len(p.Functions) >= p.BaseFunctionCount
}
