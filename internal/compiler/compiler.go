// Package compiler lowers the IR (internal/ir) to a CompiledProgram (spec
// §4, §6.1-§6.2): operator compilation and promotion, statement
// compilation, slot allocation, a peephole pass, and disassembly.
//
// The teacher's compiler walked a parser.Expr/Stmt tree via the
// Visit*/Accept double-dispatch pattern (every node implements Accept and
// every pass implements one Visit method per node type). This IR is a
// fixed, closed set of statement/expression kinds with no surface-syntax
// extensibility, so compilation here uses a plain type switch instead —
// one switch arm per ir.Stmt/ir.Expr variant does the same job with far
// less boilerplate and no interface{} return values to type-assert back.
package compiler

import (
	"fmt"

	"vesper/internal/bytecode"
	"vesper/internal/dispatch"
	"vesper/internal/ir"
	"vesper/internal/types"
)

// loopCtx tracks the jump targets break/continue patch into (spec §4.4;
// grounded on the teacher's compregister.LoopInfo).
type loopCtx struct {
	continueTarget      int
	breakJumps          []int
	finallyDepthAtEntry int // len(funcCtx.finallyStack) when this loop was entered
}

// funcCtx holds the per-function compilation state: its slot allocator and
// loop stack, mirroring compregister.Compiler's per-function Scope.
type funcCtx struct {
	name       string
	slots      *SlotAllocator
	loops      []loopCtx
	globalIdx  int
	typeParams map[string]bool
	closureEnv map[string]bool // names captured from an enclosing scope, non-nil only inside a lambda body

	finallyStack []ir.Block      // active try/finally bodies, innermost last
	labels       map[string]int  // label name -> bound code position
	pendingGotos map[string][]int // label name -> forward-goto jump instructions awaiting a patch
}

// Compiler lowers one ir.Program into one bytecode.CompiledProgram (spec
// §4, §6.1-§6.2).
type Compiler struct {
	prog    *ir.Program
	out     *bytecode.CompiledProgram
	types   *types.Registry
	methods *dispatch.Registry
	globals *GlobalAllocator

	funcIndexByName map[string][]int // name -> all global_indexes (multi-method)
	structTypeID    map[string]int

	cur  *funcCtx
	errs []error
}

// Compile is the package's entry point: stage 2 (type/dispatch tables) and
// stage 3 (bytecode emission) run together per function below, since slot
// allocation (stage 4) happens inline as each function's body is walked
// rather than as a later rewrite over symbolic names; the peephole half of
// stage 4 runs last, over the finished flat code vector.
func Compile(prog *ir.Program) (*bytecode.CompiledProgram, *types.Registry, *dispatch.Registry, error) {
	c := &Compiler{
		prog:            prog,
		out:             bytecode.NewCompiledProgram(),
		types:           types.NewRegistry(),
		methods:         dispatch.NewRegistry(),
		globals:         NewGlobalAllocator(),
		funcIndexByName: make(map[string][]int),
		structTypeID:    make(map[string]int),
	}
	c.out.BaseFunctionCount = prog.BaseFunctionCount

	c.registerAbstractTypes()
	c.registerStructs()

	allFns := append(append([]*ir.Function{}, fnPointers(prog.Functions)...), moduleFnPointers(prog.Modules)...)
	for _, fn := range allFns {
		c.predeclareFunction(fn)
	}
	for i, fn := range allFns {
		if err := c.compileFunction(fn, i); err != nil {
			c.errs = append(c.errs, err)
		}
	}

	mainEntry := c.compileMain(prog.Main)
	c.out.Entry = mainEntry

	c.out.GlobalSlotNames = c.globals.Names()
	c.out.GlobalSlotCount = c.globals.Count()

	Peephole(c.out.Code)

	if len(c.errs) > 0 {
		return c.out, c.types, c.methods, fmt.Errorf("compile: %d error(s), first: %w", len(c.errs), c.errs[0])
	}
	return c.out, c.types, c.methods, nil
}

func fnPointers(fns []ir.Function) []*ir.Function {
	out := make([]*ir.Function, len(fns))
	for i := range fns {
		out[i] = &fns[i]
	}
	return out
}

func moduleFnPointers(mods []ir.Module) []*ir.Function {
	var out []*ir.Function
	for mi := range mods {
		for fi := range mods[mi].Functions {
			out = append(out, &mods[mi].Functions[fi])
		}
	}
	return out
}

func (c *Compiler) registerAbstractTypes() {
	for _, a := range c.prog.AbstractTypes {
		c.types.RegisterAbstract(types.AbstractType{Name: a.Name, Parent: a.Parent, TypeParams: a.TypeParams})
		c.out.AbstractTypes = append(c.out.AbstractTypes, bytecode.AbstractTypeInfo{Name: a.Name, Parent: a.Parent})
	}
}

func (c *Compiler) registerStructs() {
	for _, s := range c.prog.Structs {
		if len(s.TypeParams) > 0 {
			c.registerParametricStruct(s)
			continue
		}
		fields := make([]types.FieldInfo, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = types.FieldInfo{Name: f.Name, Type: types.ValueTypeForName(f.TypeName), JuliaType: types.Primitive(f.TypeName)}
		}
		info := c.types.DefineStruct(s.Name, s.IsMutable, fields, s.HasInnerConstructor)
		c.structTypeID[s.Name] = info.TypeID
		c.out.StructDefs = append(c.out.StructDefs, bytecode.StructDefInfo{
			TypeID:   info.TypeID,
			Name:     s.Name,
			Fields:   paramInfosFromFields(s.Fields),
			Mutable:  s.IsMutable,
			ParentID: -1,
		})
	}
}

func (c *Compiler) registerParametricStruct(s ir.StructDef) {
	fields := make([]types.ParametricField, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = types.ParametricField{Name: f.Name, TypeExprName: f.TypeName}
	}
	c.types.DefineParametric(types.ParametricStructDef{
		BaseName:   s.Name,
		TypeParams: s.TypeParams,
		IsMutable:  s.IsMutable,
		Fields:     fields,
	})
	// Concrete instantiations materialize lazily on first StructNew
	// reference (spec §6.4); see compileStructNew in expr.go.
}

func paramInfosFromFields(fields []ir.FieldDef) []bytecode.ParamInfo {
	out := make([]bytecode.ParamInfo, len(fields))
	for i, f := range fields {
		out[i] = bytecode.ParamInfo{Name: f.Name, Type: f.TypeName}
	}
	return out
}

// predeclareFunction reserves a global_index and registers the method
// signature in the dispatch registry before any body is compiled, so
// forward/mutually-recursive Call sites and dynamic-dispatch candidate
// tables can resolve global_index up front (spec §4.1).
func (c *Compiler) predeclareFunction(fn *ir.Function) {
	slots := NewSlotAllocator()
	paramSlots := make([]int, len(fn.Params))
	paramInfos := make([]bytecode.ParamInfo, len(fn.Params))
	juliaTypes := make([]string, len(fn.Params))
	varargIdx := -1
	varargFixed := 0
	for i, p := range fn.Params {
		paramSlots[i] = slots.Slot(p.Name)
		tname := types.AnyName
		if p.TypeAnnotation != nil {
			tname = p.TypeAnnotation.QualifiedName()
		}
		paramInfos[i] = bytecode.ParamInfo{Name: p.Name, Type: tname}
		juliaTypes[i] = tname
		if p.IsVarargs {
			varargIdx = i
			varargFixed = i
		}
	}
	kwInfos := make([]bytecode.ParamInfo, len(fn.KwParams))
	for i, kw := range fn.KwParams {
		kwInfos[i] = bytecode.ParamInfo{Name: kw.Name, Type: types.AnyName}
	}
	returnType := types.AnyName
	if fn.ReturnType != nil {
		returnType = fn.ReturnType.QualifiedName()
	}
	info := bytecode.FunctionInfo{
		Name:             fn.Name,
		Params:           paramInfos,
		KwParams:         kwInfos,
		ReturnType:       returnType,
		ParamJuliaTypes:  juliaTypes,
		SlotNames:        slots.Names(),
		ParamSlots:       paramSlots,
		VarargParamIndex: varargIdx,
		VarargFixedCount: varargFixed,
	}
	for _, tp := range fn.TypeParams {
		info.TypeParams = append(info.TypeParams, tp.Name)
	}
	idx := c.out.AppendFunction(info)
	c.funcIndexByName[fn.Name] = append(c.funcIndexByName[fn.Name], idx)

	mt := c.methods.Table(fn.Name)
	sig := dispatch.MethodSig{
		GlobalIndex:      idx,
		IsBaseExtension:  fn.IsBaseExtension,
		VarargParamIndex: varargIdx,
		VarargFixedCount: varargFixed,
	}
	for _, p := range fn.Params {
		jt := types.Any()
		if p.TypeAnnotation != nil {
			jt = *p.TypeAnnotation
		}
		sig.Params = append(sig.Params, dispatch.Param{Name: p.Name, Type: jt})
	}
	for _, tp := range fn.TypeParams {
		b := types.Any()
		if tp.Bound != nil {
			b = *tp.Bound
		}
		sig.TypeParams = append(sig.TypeParams, dispatch.TypeParam{Name: tp.Name, Bound: &b})
	}
	mt.AddMethod(sig)
}

// compileFunction emits fn's body code at the program's current write
// position and backfills its FunctionInfo's code_start/code_end/entry
// (spec §3.4 invariant: code_start <= entry < code_end, ranges don't
// overlap).
func (c *Compiler) compileFunction(fn *ir.Function, order int) error {
	indexes := c.funcIndexByName[fn.Name]
	idx := indexes[0]
	// predeclareFunction appended every function in allFns order, so this
	// method's own global_index equals its position there.
	for _, gi := range indexes {
		if gi == order {
			idx = gi
		}
	}
	info := &c.out.Functions[idx]

	slots := NewSlotAllocator()
	for _, name := range info.SlotNames {
		slots.Slot(name)
	}
	c.cur = &funcCtx{name: fn.Name, slots: slots, globalIdx: idx}

	codeStart := c.out.Code.Len()
	info.Entry = codeStart
	info.CodeStart = codeStart

	for _, stmt := range fn.Body {
		c.compileStmt(stmt)
	}
	c.emit(bytecode.Instr{Op: bytecode.OpReturnNil})

	info.CodeEnd = c.out.Code.Len()
	info.LocalSlotCount = slots.Count()
	info.SlotNames = slots.Names()
	c.cur = nil
	return nil
}

// compileMain lowers the top-level main block as a synthetic zero-arg
// function named "main", returning its global_index as Program.Entry.
func (c *Compiler) compileMain(main ir.Block) int {
	slots := NewSlotAllocator()
	c.cur = &funcCtx{name: "main", slots: slots}

	codeStart := c.out.Code.Len()
	for _, stmt := range main {
		c.compileStmt(stmt)
	}
	c.emit(bytecode.Instr{Op: bytecode.OpReturnNil})
	codeEnd := c.out.Code.Len()

	info := bytecode.FunctionInfo{
		Name:             "main",
		Entry:            codeStart,
		CodeStart:        codeStart,
		CodeEnd:          codeEnd,
		LocalSlotCount:   slots.Count(),
		SlotNames:        slots.Names(),
		ReturnType:       types.AnyName,
		VarargParamIndex: -1,
	}
	idx := c.out.AppendFunction(info)
	c.cur = nil
	return idx
}

func (c *Compiler) emit(instr bytecode.Instr) int { return c.out.Code.Emit(instr) }

func (c *Compiler) addError(format string, args ...interface{}) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

// resolveVarSlotOrGlobal returns (slot, true) when name is a local in the
// current function, or (-1, false) when it must be treated as a global
// (spec's top-level bindings, readable/writable from any function body —
// Julia's global-scope semantics).
func (c *Compiler) resolveVarSlotOrGlobal(name string) (int, bool) {
	if c.cur != nil {
		if slot, ok := c.cur.slots.Lookup(name); ok {
			return slot, true
		}
	}
	return -1, false
}
