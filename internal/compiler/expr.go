package compiler

import (
	"math/big"

	"vesper/internal/bytecode"
	"vesper/internal/dispatch"
	"vesper/internal/ir"
	"vesper/internal/types"
)

// compileExpr lowers one ir.Expr, leaving exactly one value on the stack.
func (c *Compiler) compileExpr(e ir.Expr) {
	switch x := e.(type) {
	case *ir.IntLit:
		c.emitConst(x.Value)
	case *ir.Int128Lit:
		c.emitConst(x.Value) // decimal text; VM widens on load (see builtins)
	case *ir.FloatLit:
		c.emitConst(x.Value)
	case *ir.Float32Lit:
		c.emitConst(x.Value)
	case *ir.BoolLit:
		if x.Value {
			c.emit(bytecode.Instr{Op: bytecode.OpPushTrue})
		} else {
			c.emit(bytecode.Instr{Op: bytecode.OpPushFalse})
		}
	case *ir.CharLit:
		c.emitConst(x.Value)
	case *ir.StringLit:
		c.emitConst(x.Value)
	case *ir.BigIntLit:
		bi, _ := new(big.Int).SetString(x.Value, 10)
		c.emitConst(bi)
	case *ir.BigFloatLit:
		bf, _, _ := big.ParseFloat(x.Value, 10, 200, big.ToNearestEven)
		c.emitConst(bf)
	case *ir.NothingLit:
		c.emit(bytecode.Instr{Op: bytecode.OpPushNil})
	case *ir.MissingLit:
		c.emit(bytecode.Instr{Op: bytecode.OpPushMissing})
	case *ir.Var:
		c.compileVarRead(x.Name)
	case *ir.BinaryOp:
		c.compileBinaryOp(x)
	case *ir.UnaryOp:
		c.compileUnaryOp(x)
	case *ir.Call:
		c.compileCall(x)
	case *ir.Builtin:
		for _, a := range x.Args {
			c.compileExpr(a)
		}
		c.emit(bytecode.Instr{Op: bytecode.OpCallBuiltin, Name: x.Name, A: len(x.Args)})
	case *ir.Index:
		c.compileExpr(x.Target)
		for _, idx := range x.Indices {
			c.compileExpr(idx)
			c.emit(bytecode.Instr{Op: bytecode.OpIndexLoad})
		}
	case *ir.RangeExpr:
		c.compileExpr(x.Start)
		if x.Step != nil {
			c.compileExpr(x.Step)
		} else {
			c.emitConst(int64(1))
		}
		c.compileExpr(x.Stop)
		c.emit(bytecode.Instr{Op: bytecode.OpNewRange})
	case *ir.ArrayLit:
		c.compileArrayLit(x)
	case *ir.TupleLit:
		for _, el := range x.Elements {
			c.compileExpr(el)
		}
		c.emit(bytecode.Instr{Op: bytecode.OpNewTuple, A: len(x.Elements)})
	case *ir.DictLit:
		for i := range x.Keys {
			c.compileExpr(x.Keys[i])
			c.compileExpr(x.Values[i])
		}
		c.emit(bytecode.Instr{Op: bytecode.OpNewDict, A: len(x.Keys)})
	case *ir.StructNew:
		c.compileStructNew(x)
	case *ir.FieldAccess:
		c.compileExpr(x.Target)
		c.emit(bytecode.Instr{Op: bytecode.OpGetField, Name: x.Field})
	case *ir.Ternary:
		c.compileTernary(x)
	case *ir.Lambda:
		c.compileLambda(x)
	case *ir.Convert:
		c.compileConvert(x)
	case *ir.Box:
		c.compileExpr(x.Value)
	case *ir.Unbox:
		c.compileExpr(x.Value)
	case *ir.FunctionRef:
		idxs := c.funcIndexByName[x.Name]
		idx := -1
		if len(idxs) > 0 {
			idx = idxs[0]
		}
		c.emitConst(idx)
	default:
		c.addError("compiler: unhandled expression type %T", e)
		c.emit(bytecode.Instr{Op: bytecode.OpPushNil})
	}
}

func (c *Compiler) emitConst(v interface{}) {
	idx := c.out.Code.AddConstant(v)
	c.emit(bytecode.Instr{Op: bytecode.OpPushConst, ConstIndex: idx})
}

func (c *Compiler) compileVarRead(name string) {
	if slot, ok := c.resolveVarSlotOrGlobal(name); ok {
		c.emit(bytecode.Instr{Op: bytecode.OpLoadSlot, A: slot})
		return
	}
	if c.cur != nil && c.cur.closureEnv[name] {
		c.emit(bytecode.Instr{Op: bytecode.OpLoadCaptured, Name: name})
		return
	}
	c.emit(bytecode.Instr{Op: bytecode.OpLoadGlobal, Name: name})
}

func (c *Compiler) compileArrayLit(x *ir.ArrayLit) {
	if len(x.Rows) == 1 {
		for _, el := range x.Rows[0] {
			c.compileExpr(el)
		}
		c.emit(bytecode.Instr{Op: bytecode.OpNewArray, A: len(x.Rows[0])})
		return
	}
	// Column-major matrix literal `[1 3; 2 4]` (spec §8 S3): lower as an
	// array-of-row-arrays; a richer Matrix value type is out of scope.
	for _, row := range x.Rows {
		for _, el := range row {
			c.compileExpr(el)
		}
		c.emit(bytecode.Instr{Op: bytecode.OpNewArray, A: len(row)})
	}
	c.emit(bytecode.Instr{Op: bytecode.OpNewArray, A: len(x.Rows)})
}

func (c *Compiler) compileStructNew(x *ir.StructNew) {
	name := x.TypeName
	if len(x.TypeArgs) > 0 {
		if inst, err := c.types.Instantiate(x.TypeName, x.TypeArgs); err == nil {
			name = inst.Name
			if _, ok := c.structTypeID[name]; !ok {
				c.structTypeID[name] = inst.TypeID
				c.out.StructDefs = append(c.out.StructDefs, bytecode.StructDefInfo{
					TypeID: inst.TypeID, Name: name, Mutable: inst.IsMutable, ParentID: -1,
					Fields: fieldInfosFromRegistry(inst.Fields),
				})
			}
		} else {
			c.addError("compiler: %v", err)
		}
	}
	for _, a := range x.Args {
		c.compileExpr(a)
	}
	typeID, ok := c.structTypeID[name]
	if !ok {
		c.addError("compiler: unknown struct type %q", name)
		typeID = -1
	}
	c.emit(bytecode.Instr{Op: bytecode.OpNewStruct, A: typeID})
}

func fieldInfosFromRegistry(fields []types.FieldInfo) []bytecode.ParamInfo {
	out := make([]bytecode.ParamInfo, len(fields))
	for i, f := range fields {
		out[i] = bytecode.ParamInfo{Name: f.Name, Type: f.JuliaType.String()}
	}
	return out
}

func (c *Compiler) compileTernary(x *ir.Ternary) {
	c.compileExpr(x.Cond)
	jf := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})
	c.compileExpr(x.Then)
	jend := c.emit(bytecode.Instr{Op: bytecode.OpJump})
	c.out.Code.Patch(jf, c.out.Code.Len())
	c.compileExpr(x.Else)
	c.out.Code.Patch(jend, c.out.Code.Len())
}

// compileLambda compiles a closure body as a fresh synthetic function and
// emits a CreateClosure capturing its free variables. Capture-by-value at
// creation time, not a live slot reference (spec §8 S8; see
// internal/vm/closures.go's execCreateClosure for the runtime counterpart).
func (c *Compiler) compileLambda(x *ir.Lambda) {
	name := SyntheticLambdaName(c.out)
	slots := NewSlotAllocator()
	for _, p := range x.Params {
		slots.Slot(p)
	}
	free := freeVarsOf(x, x.Params)

	outer := c.cur
	c.cur = &funcCtx{name: name, slots: slots, closureEnv: map[string]bool{}}
	for _, f := range free {
		c.cur.closureEnv[f] = true
	}

	codeStart := c.out.Code.Len()
	c.compileExpr(x.Body)
	c.emit(bytecode.Instr{Op: bytecode.OpReturn})
	codeEnd := c.out.Code.Len()

	paramSlots := make([]int, len(x.Params))
	paramInfos := make([]bytecode.ParamInfo, len(x.Params))
	for i, p := range x.Params {
		paramSlots[i], _ = slots.Lookup(p)
		paramInfos[i] = bytecode.ParamInfo{Name: p, Type: types.AnyName}
	}
	info := bytecode.FunctionInfo{
		Name: name, Params: paramInfos, Entry: codeStart, CodeStart: codeStart, CodeEnd: codeEnd,
		ReturnType: types.AnyName, SlotNames: slots.Names(), LocalSlotCount: slots.Count(),
		ParamSlots: paramSlots, VarargParamIndex: -1,
	}
	idx := c.out.AppendFunction(info)
	c.funcIndexByName[name] = append(c.funcIndexByName[name], idx)

	c.cur = outer
	c.emit(bytecode.Instr{Op: bytecode.OpCreateClosure, A: idx, Name: name, Captures: free})
}

// SyntheticLambdaName generates a stable, unique name for an anonymous
// function, grounded on the teacher's "<lambda>" placeholder but
// disambiguated since every closure needs its own FunctionInfo entry.
func SyntheticLambdaName(p *bytecode.CompiledProgram) string {
	n := 0
	for _, fn := range p.Functions {
		if len(fn.Name) > 7 && fn.Name[:7] == "#lambda" {
			n++
		}
	}
	return lambdaNameFor(n)
}

func lambdaNameFor(n int) string {
	digits := []byte{}
	if n == 0 {
		digits = []byte{'0'}
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return "#lambda" + string(digits)
}

// freeVarsOf collects identifiers referenced in body that aren't bound
// params — a conservative over-approximation (it doesn't track nested
// shadowing) sufficient for CreateClosure's capture list.
func freeVarsOf(x *ir.Lambda, bound []string) []string {
	boundSet := map[string]bool{}
	for _, b := range bound {
		boundSet[b] = true
	}
	seen := map[string]bool{}
	var out []string
	var walk func(ir.Expr)
	walk = func(e ir.Expr) {
		switch v := e.(type) {
		case *ir.Var:
			if !boundSet[v.Name] && !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case *ir.BinaryOp:
			walk(v.Left)
			walk(v.Right)
		case *ir.UnaryOp:
			walk(v.Operand)
		case *ir.Call:
			for _, a := range v.Args {
				walk(a)
			}
		case *ir.Index:
			walk(v.Target)
			for _, idx := range v.Indices {
				walk(idx)
			}
		case *ir.FieldAccess:
			walk(v.Target)
		case *ir.Ternary:
			walk(v.Cond)
			walk(v.Then)
			walk(v.Else)
		case *ir.TupleLit:
			for _, el := range v.Elements {
				walk(el)
			}
		}
	}
	walk(x.Body)
	return out
}

func (c *Compiler) compileConvert(x *ir.Convert) {
	c.compileExpr(x.Value)
	op, ok := dynamicConvertOp(x.TargetType)
	if !ok {
		c.addError("compiler: no conversion op for type %s", x.TargetType.String())
		return
	}
	c.emit(bytecode.Instr{Op: op})
}

func dynamicConvertOp(t types.JuliaType) (bytecode.OpCode, bool) {
	switch t.Name {
	case types.Int8:
		return bytecode.OpDynamicToI8, true
	case types.Int16:
		return bytecode.OpDynamicToI16, true
	case types.Int32:
		return bytecode.OpDynamicToI32, true
	case types.Int64:
		return bytecode.OpDynamicToI64, true
	case types.UInt8:
		return bytecode.OpDynamicToU8, true
	case types.UInt16:
		return bytecode.OpDynamicToU16, true
	case types.UInt32:
		return bytecode.OpDynamicToU32, true
	case types.UInt64:
		return bytecode.OpDynamicToU64, true
	case types.Float16:
		return bytecode.OpDynamicToF16, true
	case types.Float32:
		return bytecode.OpDynamicToF32, true
	case types.Float64:
		return bytecode.OpDynamicToF64, true
	case types.Char:
		return bytecode.OpIntToChar, true
	}
	return 0, false
}

func (c *Compiler) compileUnaryOp(x *ir.UnaryOp) {
	c.compileExpr(x.Operand)
	switch x.Op {
	case "-":
		mt, ok := c.methods.Lookup("-")
		c.emit(bytecode.Instr{Op: bytecode.OpCallDynamicUnary, FallbackOp: bytecode.OpNegFloat, Candidates: unaryCandidates(mt, ok)})
	case "!":
		c.emit(bytecode.Instr{Op: bytecode.OpCallBuiltin, Name: "!", A: 1})
	default:
		c.addError("compiler: unknown unary operator %q", x.Op)
	}
}

func unaryCandidates(mt *dispatch.MethodTable, ok bool) []bytecode.DispatchCandidate {
	if !ok {
		return nil
	}
	var out []bytecode.DispatchCandidate
	for _, m := range dispatch.RuntimeDispatchCandidates(mt) {
		left := types.AnyName
		if len(m.Params) > 0 {
			left = m.Params[0].Type.String()
		}
		out = append(out, bytecode.DispatchCandidate{GlobalIndex: m.GlobalIndex, LeftExpected: left})
	}
	return out
}

// compileBinaryOp implements spec §4.2's operator compilation decision
// order: short-circuit logical, identity, power special cases, then
// runtime-dispatch arithmetic/comparison with a primitive fallback.
func (c *Compiler) compileBinaryOp(x *ir.BinaryOp) {
	switch x.Op {
	case "&&":
		c.compileShortCircuitAnd(x)
		return
	case "||":
		c.compileShortCircuitOr(x)
		return
	case "===":
		c.compileExpr(x.Left)
		c.compileExpr(x.Right)
		c.emit(bytecode.Instr{Op: bytecode.OpEgal})
		return
	case "!==":
		c.compileExpr(x.Left)
		c.compileExpr(x.Right)
		c.emit(bytecode.Instr{Op: bytecode.OpEgal})
		c.emit(bytecode.Instr{Op: bytecode.OpCallBuiltin, Name: "!", A: 1})
		return
	case "^":
		c.compileExpr(x.Left)
		c.compileExpr(x.Right)
		c.emit(bytecode.Instr{Op: bytecode.OpDynamicPow})
		return
	case "*":
		if isStringLike(x.Left) || isStringLike(x.Right) {
			c.compileExpr(x.Left)
			c.compileExpr(x.Right)
			c.emit(bytecode.Instr{Op: bytecode.OpConcat})
			return
		}
	}

	fallback, isArith := arithFallbackOp(x.Op)
	if !isArith {
		c.addError("compiler: unknown binary operator %q", x.Op)
		return
	}
	c.compileExpr(x.Left)
	c.compileExpr(x.Right)

	if ok, shadows, cands := c.binaryDispatchPlan(x.Op); ok {
		c.emit(bytecode.Instr{Op: bytecode.OpCallDynamicBinaryBoth, FallbackOp: fallback, Candidates: cands, ShadowsPrimitives: shadows})
		return
	}
	c.emit(bytecode.Instr{Op: bytecode.OpCallDynamicBinaryBoth, FallbackOp: fallback})
}

// binaryDispatchPlan reports the operator's dispatch candidates and whether
// a regular user method among them shadows even primitive operands (spec
// §4.2 step 6).
func (c *Compiler) binaryDispatchPlan(op string) (ok bool, shadows bool, cands []bytecode.DispatchCandidate) {
	mt, found := c.methods.Lookup(op)
	if !found {
		return false, false, nil
	}
	if mt.HasUserOverload() {
		return true, true, binaryCandidatesAll(mt)
	}
	return true, false, binaryCandidates(mt)
}

func isStringLike(e ir.Expr) bool {
	switch e.(type) {
	case *ir.StringLit, *ir.CharLit:
		return true
	}
	return false
}

func binaryCandidates(mt *dispatch.MethodTable) []bytecode.DispatchCandidate {
	var out []bytecode.DispatchCandidate
	for _, m := range dispatch.RuntimeDispatchCandidates(mt) {
		out = append(out, candidateFromSig(m))
	}
	return out
}

func binaryCandidatesAll(mt *dispatch.MethodTable) []bytecode.DispatchCandidate {
	var out []bytecode.DispatchCandidate
	for _, m := range mt.Methods {
		out = append(out, candidateFromSig(m))
	}
	return out
}

func candidateFromSig(m dispatch.MethodSig) bytecode.DispatchCandidate {
	left, right := types.AnyName, types.AnyName
	if len(m.Params) > 0 {
		left = m.Params[0].Type.String()
	}
	if len(m.Params) > 1 {
		right = m.Params[1].Type.String()
	}
	return bytecode.DispatchCandidate{GlobalIndex: m.GlobalIndex, LeftExpected: left, RightExpected: right}
}

func arithFallbackOp(op string) (bytecode.OpCode, bool) {
	switch op {
	case "+":
		return bytecode.OpAddFloat, true
	case "-":
		return bytecode.OpSubFloat, true
	case "*":
		return bytecode.OpMulFloat, true
	case "/":
		return bytecode.OpDivFloat, true
	case "÷":
		return bytecode.OpSdivInt, true
	case "%":
		return bytecode.OpSremInt, true
	case "==":
		return bytecode.OpEqFloat, true
	case "!=":
		return bytecode.OpNeFloat, true
	case "<":
		return bytecode.OpLtFloat, true
	case "<=":
		return bytecode.OpLeFloat, true
	case ">":
		return bytecode.OpGtFloat, true
	case ">=":
		return bytecode.OpGeFloat, true
	}
	return 0, false
}

// compileShortCircuitAnd/Or implement Julia's short-circuit && / || without
// ever calling into the runtime dispatch protocol (spec §4.2 step 1: these
// are never overloadable).
func (c *Compiler) compileShortCircuitAnd(x *ir.BinaryOp) {
	c.compileExpr(x.Left)
	c.emit(bytecode.Instr{Op: bytecode.OpDup})
	jf := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfZero})
	c.emit(bytecode.Instr{Op: bytecode.OpPop})
	c.compileExpr(x.Right)
	c.out.Code.Patch(jf, c.out.Code.Len())
}

func (c *Compiler) compileShortCircuitOr(x *ir.BinaryOp) {
	c.compileExpr(x.Left)
	c.emit(bytecode.Instr{Op: bytecode.OpDup})
	jt := c.emit(bytecode.Instr{Op: bytecode.OpJumpIfNotZero})
	c.emit(bytecode.Instr{Op: bytecode.OpPop})
	c.compileExpr(x.Right)
	c.out.Code.Patch(jt, c.out.Code.Len())
}

// compileCall resolves a named call statically when there is only one
// method, or when every argument's type is known concretely enough at
// compile time to pick a unique most-specific method (spec §4.1 "Static
// dispatch", exercised by S2: f(p::P{Int64}) vs f(p::P{Float64})).
// Otherwise it emits a CallDynamic carrying every same-name method as a
// scored runtime candidate, resolved against the arguments' actual runtime
// types the same way CallDynamicBinaryBoth resolves operators.
func (c *Compiler) compileCall(x *ir.Call) {
	idxs := c.funcIndexByName[x.Name]
	for _, a := range x.Args {
		c.compileExpr(a)
	}
	if len(idxs) == 0 {
		c.addError("compiler: call to undefined function %q", x.Name)
		c.emit(bytecode.Instr{Op: bytecode.OpPushNil})
		return
	}
	if len(idxs) == 1 {
		c.emit(bytecode.Instr{Op: bytecode.OpCall, A: idxs[0], B: len(x.Args)})
		return
	}
	if target, ok := c.staticDispatchTarget(x.Name, x.Args); ok {
		c.emit(bytecode.Instr{Op: bytecode.OpCall, A: target, B: len(x.Args)})
		return
	}
	cands := make([]bytecode.DispatchCandidate, len(idxs))
	for i, idx := range idxs {
		cands[i] = bytecode.DispatchCandidate{GlobalIndex: idx}
	}
	c.emit(bytecode.Instr{Op: bytecode.OpCallDynamic, B: len(x.Args), Candidates: cands})
}

// staticDispatchTarget infers each argument's concrete static type from its
// IR shape (literals and struct constructors, parametric ones included — there is
// no separate type-inference pass, see DESIGN.md) and asks dispatch for a
// unique most-specific method. Any argument whose type can't be inferred
// this way forces runtime dispatch.
func (c *Compiler) staticDispatchTarget(name string, args []ir.Expr) (int, bool) {
	mt, ok := c.methods.Lookup(name)
	if !ok {
		return 0, false
	}
	argTypes := make([]types.JuliaType, len(args))
	for i, a := range args {
		t, ok := staticExprType(a)
		if !ok {
			return 0, false
		}
		argTypes[i] = t
	}
	sig, ok := dispatch.StaticDispatch(c.types, mt, argTypes)
	if !ok {
		return 0, false
	}
	return sig.GlobalIndex, true
}

func staticExprType(e ir.Expr) (types.JuliaType, bool) {
	switch v := e.(type) {
	case *ir.IntLit:
		return types.Primitive(types.Int64), true
	case *ir.FloatLit:
		return types.Primitive(types.Float64), true
	case *ir.Float32Lit:
		return types.Primitive(types.Float32), true
	case *ir.BoolLit:
		return types.Primitive(types.Bool), true
	case *ir.CharLit:
		return types.Primitive(types.Char), true
	case *ir.StringLit:
		return types.Primitive(types.String), true
	case *ir.BigIntLit:
		return types.Primitive(types.BigInt), true
	case *ir.BigFloatLit:
		return types.Primitive(types.BigFloat), true
	case *ir.StructNew:
		if len(v.TypeArgs) == 0 {
			return types.Struct(v.TypeName), true
		}
		args := make([]types.JuliaType, len(v.TypeArgs))
		for i, a := range v.TypeArgs {
			args[i] = types.Primitive(a)
		}
		return types.Struct(v.TypeName, args...), true
	}
	return types.JuliaType{}, false
}
