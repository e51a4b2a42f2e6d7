package types

import "fmt"

// AbstractType is a node in the abstract-type parent hierarchy
// (spec §3.1: AbstractType{ name, parent?, type_params }).
type AbstractType struct {
	Name       string
	Parent     string // "" for Any (the hierarchy root)
	TypeParams []string
}

// StructInfo is the compiled, dense representation of a concrete struct type
// (spec §3.1). TypeID is stable and dense once assigned.
type StructInfo struct {
	TypeID               int
	Name                 string // bare or instantiated name, e.g. "Complex{Float64}"
	BaseName             string // "Complex"
	IsMutable            bool
	Fields               []FieldInfo
	HasInnerConstructor  bool
}

type FieldInfo struct {
	Name string
	Type ValueType
	JuliaType JuliaType
}

// ParametricStructDef is the uninstantiated template for a parametric struct,
// stored separately from StructInfo and materialized on demand (spec §3.1,
// §6.4).
type ParametricStructDef struct {
	BaseName   string
	TypeParams []string
	IsMutable  bool
	Fields     []ParametricField
}

type ParametricField struct {
	Name string
	// TypeExprName names the field type in terms of the struct's type
	// parameters, e.g. "T" or "Vector{T}"; substituted at instantiation time.
	TypeExprName string
}

// InstantiationKey uniquely identifies one concrete instantiation of a
// parametric struct (spec §6.4).
type InstantiationKey struct {
	BaseName string
	Args     string // canonical joined form of the TypeExpr arguments
}

// Registry owns the dense type-id space: struct definitions (concrete and
// parametric), abstract-type parents, and the qualified/short name index.
// Exactly one Registry is created per compilation and is read-only once the
// VM starts executing (spec §5: method tables are read-only in the VM loop).
type Registry struct {
	structsByID   []*StructInfo
	structsByName map[string]*StructInfo // both qualified and short names
	parametric    map[string]*ParametricStructDef
	instantiated  map[InstantiationKey]*StructInfo
	abstracts     map[string]*AbstractType
}

func NewRegistry() *Registry {
	r := &Registry{
		structsByName: make(map[string]*StructInfo),
		parametric:    make(map[string]*ParametricStructDef),
		instantiated:  make(map[InstantiationKey]*StructInfo),
		abstracts:     make(map[string]*AbstractType),
	}
	r.registerBuiltinAbstracts()
	return r
}

func (r *Registry) registerBuiltinAbstracts() {
	builtins := []AbstractType{
		{Name: AnyName},
		{Name: NumberName, Parent: AnyName},
		{Name: RealName, Parent: NumberName},
		{Name: IntegerName, Parent: RealName},
		{Name: SignedName, Parent: IntegerName},
		{Name: UnsignedName, Parent: IntegerName},
		{Name: AbstractFloatName, Parent: RealName},
		{Name: AbstractStringName, Parent: AnyName},
		{Name: AbstractArrayName, Parent: AnyName},
	}
	for _, a := range builtins {
		cp := a
		r.abstracts[a.Name] = &cp
	}
}

// RegisterAbstract adds a user-declared abstract type to the hierarchy.
func (r *Registry) RegisterAbstract(a AbstractType) {
	cp := a
	r.abstracts[a.Name] = &cp
}

// Abstract looks up an abstract-type node by name.
func (r *Registry) Abstract(name string) (*AbstractType, bool) {
	a, ok := r.abstracts[name]
	return a, ok
}

// DefineStruct registers a concrete (non-parametric) struct and assigns it
// the next dense type_id. Both the qualified and short form of the name are
// indexed to the same entry (spec §3.1 invariant).
func (r *Registry) DefineStruct(name string, isMutable bool, fields []FieldInfo, hasInnerCtor bool) *StructInfo {
	info := &StructInfo{
		TypeID:              len(r.structsByID),
		Name:                name,
		BaseName:            name,
		IsMutable:           isMutable,
		Fields:              fields,
		HasInnerConstructor: hasInnerCtor,
	}
	r.structsByID = append(r.structsByID, info)
	r.indexStructName(name, info)
	return info
}

func (r *Registry) indexStructName(name string, info *StructInfo) {
	r.structsByName[name] = info
	short := ShortName(name)
	if short != name {
		if _, exists := r.structsByName[short]; !exists {
			r.structsByName[short] = info
		}
	}
}

// DefineParametric registers a parametric struct template (uninstantiated).
func (r *Registry) DefineParametric(def ParametricStructDef) {
	r.parametric[def.BaseName] = &def
}

// Instantiate materializes a concrete StructInfo for base{args...}, returning
// the existing entry if this exact instantiation key was already seen (spec
// §6.4: exactly one type_id per unique instantiation).
func (r *Registry) Instantiate(baseName string, argNames []string) (*StructInfo, error) {
	key := InstantiationKey{BaseName: baseName, Args: joinArgs(argNames)}
	if existing, ok := r.instantiated[key]; ok {
		return existing, nil
	}
	def, ok := r.parametric[baseName]
	if !ok {
		return nil, fmt.Errorf("no parametric struct definition named %q", baseName)
	}
	if len(argNames) != len(def.TypeParams) {
		return nil, fmt.Errorf("%s expects %d type parameters, got %d", baseName, len(def.TypeParams), len(argNames))
	}
	subst := make(map[string]string, len(def.TypeParams))
	for i, p := range def.TypeParams {
		subst[p] = argNames[i]
	}
	fields := make([]FieldInfo, len(def.Fields))
	for i, f := range def.Fields {
		// Substitute every type-parameter name that appears as a whole
		// token of the expression (the T in "T" or in "Vector{T}").
		expr, resolved, start := f.TypeExprName, "", 0
		for j := 0; j <= len(expr); j++ {
			if j < len(expr) && expr[j] != '{' && expr[j] != '}' && expr[j] != ',' && expr[j] != ' ' {
				continue
			}
			tok := expr[start:j]
			if mapped, ok := subst[tok]; ok {
				tok = mapped
			}
			resolved += tok
			if j < len(expr) {
				resolved += string(expr[j])
			}
			start = j + 1
		}
		fields[i] = FieldInfo{Name: f.Name, Type: ValueTypeForName(resolved), JuliaType: Primitive(resolved)}
	}
	qualified := instantiationNameFromStrings(baseName, argNames)
	info := &StructInfo{
		TypeID:    len(r.structsByID),
		Name:      qualified,
		BaseName:  baseName,
		IsMutable: def.IsMutable,
		Fields:    fields,
	}
	r.structsByID = append(r.structsByID, info)
	r.indexStructName(qualified, info)
	r.instantiated[key] = info
	return info, nil
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}

func instantiationNameFromStrings(base string, args []string) string {
	if len(args) == 0 {
		return base
	}
	return fmt.Sprintf("%s{%s}", base, joinArgs(args))
}

// LookupStruct resolves a struct name (qualified or short) to its StructInfo.
func (r *Registry) LookupStruct(name string) (*StructInfo, bool) {
	s, ok := r.structsByName[name]
	return s, ok
}

// StructByID resolves a dense type_id back to its StructInfo.
func (r *Registry) StructByID(id int) (*StructInfo, bool) {
	if id < 0 || id >= len(r.structsByID) {
		return nil, false
	}
	return r.structsByID[id], true
}

// StructCount returns the number of dense struct type_ids assigned so far.
func (r *Registry) StructCount() int { return len(r.structsByID) }

// IsSubtypeName reports whether child is child-of (transitively) parent in
// the abstract-type hierarchy, or is parent itself.
func (r *Registry) IsSubtypeName(child, parent string) bool {
	if child == parent {
		return true
	}
	if parent == AnyName {
		return true
	}
	seen := map[string]bool{}
	cur := child
	for {
		a, ok := r.abstracts[cur]
		if !ok || a.Parent == "" {
			return false
		}
		if a.Parent == parent {
			return true
		}
		if seen[a.Parent] {
			return false // cycle guard; should never happen in a well-formed hierarchy
		}
		seen[a.Parent] = true
		cur = a.Parent
	}
}

// AbstractNumericAccepts reports whether an abstract numeric type name (e.g.
// "Number", "Real", "Integer") accepts a concrete numeric primitive, per the
// abstract-numeric-acceptance scoring rule (spec §4.1).
func AbstractNumericAccepts(abstractName, concreteName string) bool {
	if !IsPrimitiveNumeric(concreteName) {
		return false
	}
	switch abstractName {
	case NumberName:
		return true
	case RealName:
		return concreteName != "" // all our primitives are real-valued (no Complex primitive)
	case IntegerName:
		return IsIntegerName(concreteName)
	case SignedName:
		switch concreteName {
		case Int8, Int16, Int32, Int64, Int128:
			return true
		}
		return false
	case UnsignedName:
		switch concreteName {
		case UInt8, UInt16, UInt32, UInt64, UInt128, Bool:
			return true
		}
		return false
	case AbstractFloatName:
		return IsFloatName(concreteName)
	}
	return false
}
