package bytecode

// DispatchCandidate is one entry of a runtime dispatch table attached to a
// CallDynamicBinaryBoth / CallDynamicUnary / IterateDynamic instruction
// (spec §4.1, §4.4). RightExpected is unused (empty) for unary/iteration
// candidates.
type DispatchCandidate struct {
	GlobalIndex   int
	LeftExpected  string
	RightExpected string
}

// Instr is one bytecode instruction. Rather than a raw byte stream (the
// teacher's legacy Chunk.Code []byte), operands are carried as typed fields:
// CompiledProgram must round-trip through encoding/json for the CLI (the
// parser/lowering and AOT emitter are both out of scope, so there is no real
// on-the-wire bytecode format to match — see DESIGN.md). A slotized, flat
// []Instr vector is still the "flat code vector" spec §3.4 calls for; it
// just isn't byte-packed.
type Instr struct {
	Op OpCode

	// A, B: primary/secondary integer operands — slot index, global_index,
	// argc, jump target, dict/array element count, depending on Op.
	A int
	B int

	// Name: symbolic operand — global variable name, struct field name,
	// closure function name.
	Name string

	// ConstIndex: for OpPushConst and OpReturnImm, the index of the literal
	// value in Chunk.Constants (kept for parity with the teacher's constant pool
	// idiom, which other tooling such as Disassemble relies on).
	ConstIndex int

	// Candidates: the scored dispatch table for CallDynamicBinaryBoth /
	// CallDynamicUnary / IterateDynamic (spec §4.1).
	Candidates []DispatchCandidate

	// FallbackOp: the primitive intrinsic opcode to fall back to when no
	// dispatch candidate matches and both operands are primitive (spec
	// §4.1 step 2).
	FallbackOp OpCode

	// Captures: names captured by a CreateClosure instruction.
	Captures []string

	// ShadowsPrimitives: true when Candidates were built from a method
	// table with at least one regular (non-Base-extension) user method.
	// Such a table shadows the builtin even for two primitive operands
	// (spec §4.2 step 6); a table of only Base-extension methods never
	// does (spec §8 property 5).
	ShadowsPrimitives bool
}

// Chunk holds one function's compiled code, its constant pool, and parallel
// per-instruction debug info (spec §4.4, mirroring the teacher's
// bytecode.Chunk).
type Chunk struct {
	Code      []Instr
	Constants []interface{}
	Debug     []DebugInfo
}

func NewChunk() *Chunk {
	return &Chunk{
		Code:      []Instr{},
		Constants: []interface{}{},
		Debug:     []DebugInfo{},
	}
}

// Emit appends an instruction with no associated debug info and returns its
// index (used as a jump target / patch point by the compiler).
func (c *Chunk) Emit(instr Instr) int {
	c.Code = append(c.Code, instr)
	c.Debug = append(c.Debug, DebugInfo{})
	return len(c.Code) - 1
}

// EmitWithDebug appends an instruction carrying source location info.
func (c *Chunk) EmitWithDebug(instr Instr, debug DebugInfo) int {
	c.Code = append(c.Code, instr)
	c.Debug = append(c.Debug, debug)
	return len(c.Code) - 1
}

// Patch rewrites the operand of an already-emitted instruction (used to
// back-patch forward jump targets once the target offset is known).
func (c *Chunk) Patch(at int, a int) {
	c.Code[at].A = a
}

func (c *Chunk) AddConstant(val interface{}) int {
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}

func (c *Chunk) GetDebugInfo(ip int) DebugInfo {
	if ip >= 0 && ip < len(c.Debug) {
		return c.Debug[ip]
	}
	return DebugInfo{}
}

// Len returns the number of instructions in the chunk — used as the current
// "write position" for code-range bookkeeping (spec §3.4).
func (c *Chunk) Len() int { return len(c.Code) }
