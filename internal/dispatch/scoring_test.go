package dispatch

import (
	"testing"

	"vesper/internal/types"
)

func TestScoreTypeMatch(t *testing.T) {
	reg := types.NewRegistry()
	reg.DefineStruct("Circle", false, nil, false)

	tests := []struct {
		name             string
		expected, actual string
		want             int
	}{
		{"exact match", "Int64", "Int64", ScoreExact},
		{"any accepts everything", "Any", "Circle", ScoreSubtypeOrAbstract},
		{"abstract numeric accepts primitive", "Number", "Int64", ScoreSubtypeOrAbstract},
		{"no match", "Int64", "String", ScoreNone},
		{"parametric base match, different instantiation", "Complex{T}", "Complex{Float64}", ScoreParametricBase},
		{"subtype via abstract hierarchy", types.RealName, types.IntegerName, ScoreSubtypeOrAbstract},
		{"no subtype relation", types.IntegerName, types.RealName, ScoreNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreTypeMatch(reg, tt.expected, tt.actual); got != tt.want {
				t.Errorf("ScoreTypeMatch(%q, %q) = %d, want %d", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

func TestSelectMethodPrefersMostSpecific(t *testing.T) {
	reg := types.NewRegistry()
	mt := NewMethodTable("describe")
	mt.AddMethod(MethodSig{GlobalIndex: 0, Params: []Param{{Name: "x", Type: types.Abstract(types.NumberName)}}, VarargParamIndex: -1})
	mt.AddMethod(MethodSig{GlobalIndex: 1, Params: []Param{{Name: "x", Type: types.Primitive(types.Int64)}}, VarargParamIndex: -1})

	sig, ok := SelectMethod(reg, mt, []string{"Int64"})
	if !ok {
		t.Fatal("expected a match")
	}
	if sig.GlobalIndex != 1 {
		t.Errorf("expected the exact Int64 overload (index 1) to win over the Number overload, got index %d", sig.GlobalIndex)
	}

	sig, ok = SelectMethod(reg, mt, []string{"Float64"})
	if !ok {
		t.Fatal("expected the Number overload to still match Float64")
	}
	if sig.GlobalIndex != 0 {
		t.Errorf("expected the Number overload (index 0) for Float64, got index %d", sig.GlobalIndex)
	}

	if _, ok := SelectMethod(reg, mt, []string{"String"}); ok {
		t.Error("expected no match for String")
	}
}

func TestSelectMethodArityMismatch(t *testing.T) {
	reg := types.NewRegistry()
	mt := NewMethodTable("f")
	mt.AddMethod(MethodSig{GlobalIndex: 0, Params: []Param{{Name: "x", Type: types.Primitive(types.Int64)}}, VarargParamIndex: -1})
	if _, ok := SelectMethod(reg, mt, []string{"Int64", "Int64"}); ok {
		t.Error("expected no match when argc does not match any method's arity")
	}
}

func TestSelectMethodVarargs(t *testing.T) {
	reg := types.NewRegistry()
	mt := NewMethodTable("f")
	mt.AddMethod(MethodSig{
		GlobalIndex:      0,
		Params:           []Param{{Name: "xs", Type: types.Primitive(types.Int64)}},
		VarargParamIndex: 0,
		VarargFixedCount: 0,
	})
	sig, ok := SelectMethod(reg, mt, []string{"Int64", "Int64", "Int64"})
	if !ok || sig.GlobalIndex != 0 {
		t.Error("a vararg method should accept more args than its declared param count")
	}
}

func TestStaticDispatchRequiresConcreteArgs(t *testing.T) {
	reg := types.NewRegistry()
	mt := NewMethodTable("f")
	mt.AddMethod(MethodSig{GlobalIndex: 0, Params: []Param{{Name: "x", Type: types.Primitive(types.Int64)}}, VarargParamIndex: -1})
	mt.AddMethod(MethodSig{GlobalIndex: 1, Params: []Param{{Name: "x", Type: types.Primitive(types.Float64)}}, VarargParamIndex: -1})

	sig, ok := StaticDispatch(reg, mt, []types.JuliaType{types.Primitive(types.Int64)})
	if !ok || sig.GlobalIndex != 0 {
		t.Error("StaticDispatch should resolve a concrete Int64 arg to the Int64 overload")
	}

	if _, ok := StaticDispatch(reg, mt, []types.JuliaType{types.Abstract(types.NumberName)}); ok {
		t.Error("StaticDispatch must fail when an argument type is not concrete")
	}
}

func TestRuntimeDispatchCandidates(t *testing.T) {
	mt := NewMethodTable("area")
	mt.AddMethod(MethodSig{GlobalIndex: 0, Params: []Param{{Name: "x", Type: types.Primitive(types.Int64)}}, VarargParamIndex: -1})
	mt.AddMethod(MethodSig{GlobalIndex: 1, Params: []Param{{Name: "x", Type: types.Struct("Circle")}}, VarargParamIndex: -1})
	mt.AddMethod(MethodSig{GlobalIndex: 2, Params: []Param{{Name: "x", Type: types.Abstract("Shape")}}, VarargParamIndex: -1})

	cands := RuntimeDispatchCandidates(mt)
	if len(cands) != 2 {
		t.Fatalf("expected 2 runtime-dispatch candidates (struct + abstract), got %d", len(cands))
	}
	for _, c := range cands {
		if c.GlobalIndex == 0 {
			t.Error("the plain Int64 overload should not need runtime dispatch")
		}
	}
}

func TestMethodTableShadowingRules(t *testing.T) {
	mt := NewMethodTable("+")
	mt.AddMethod(MethodSig{GlobalIndex: 0, IsBaseExtension: true})
	if !mt.AllBaseExtensions() {
		t.Error("a table with only Base-extension methods should report AllBaseExtensions true")
	}
	if mt.HasUserOverload() {
		t.Error("a table with only Base-extension methods should report HasUserOverload false")
	}
	mt.AddMethod(MethodSig{GlobalIndex: 1, IsBaseExtension: false})
	if mt.AllBaseExtensions() {
		t.Error("adding a regular overload should invalidate the AllBaseExtensions cache")
	}
	if !mt.HasUserOverload() {
		t.Error("a table with a regular overload should report HasUserOverload true")
	}
}
