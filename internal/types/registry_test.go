package types

import "testing"

func TestRegistryBuiltinAbstractHierarchy(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		child, parent string
		want          bool
	}{
		{IntegerName, NumberName, true},
		{SignedName, RealName, true},
		{SignedName, IntegerName, true},
		{AbstractFloatName, NumberName, true},
		{NumberName, IntegerName, false},
		{IntegerName, AnyName, true},
		{"Int64", "Int64", true}, // reflexive, even for names with no hierarchy entry
	}
	for _, tt := range tests {
		if got := r.IsSubtypeName(tt.child, tt.parent); got != tt.want {
			t.Errorf("IsSubtypeName(%q, %q) = %v, want %v", tt.child, tt.parent, got, tt.want)
		}
	}
}

func TestDefineStructAssignsDenseIDsAndIndexesShortName(t *testing.T) {
	r := NewRegistry()
	p := r.DefineStruct("Point", false, []FieldInfo{
		{Name: "x", Type: VTInt64, JuliaType: Primitive(Int64)},
		{Name: "y", Type: VTInt64, JuliaType: Primitive(Int64)},
	}, false)
	if p.TypeID != 0 {
		t.Errorf("first struct should get TypeID 0, got %d", p.TypeID)
	}
	q := r.DefineStruct("Dates.Date", false, nil, false)
	if q.TypeID != 1 {
		t.Errorf("second struct should get TypeID 1, got %d", q.TypeID)
	}
	if got, ok := r.LookupStruct("Date"); !ok || got != q {
		t.Errorf("LookupStruct(%q) should resolve the short form to the qualified struct", "Date")
	}
	if got, ok := r.LookupStruct("Dates.Date"); !ok || got != q {
		t.Error("LookupStruct should also resolve the qualified form")
	}
	if r.StructCount() != 2 {
		t.Errorf("StructCount() = %d, want 2", r.StructCount())
	}
	if byID, ok := r.StructByID(0); !ok || byID != p {
		t.Error("StructByID(0) should round-trip to the first defined struct")
	}
	if _, ok := r.StructByID(99); ok {
		t.Error("StructByID should report false for an out-of-range id")
	}
}

func TestParametricInstantiationIsMemoizedPerKey(t *testing.T) {
	r := NewRegistry()
	r.DefineParametric(ParametricStructDef{
		BaseName:   "Complex",
		TypeParams: []string{"T"},
		IsMutable:  false,
		Fields: []ParametricField{
			{Name: "re", TypeExprName: "T"},
			{Name: "im", TypeExprName: "T"},
		},
	})
	a, err := r.Instantiate("Complex", []string{Float64})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	b, err := r.Instantiate("Complex", []string{Float64})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if a != b {
		t.Error("two instantiations with the same args should return the same StructInfo (memoized, spec §6.4)")
	}
	if a.Name != "Complex{Float64}" {
		t.Errorf("instantiated name = %q, want %q", a.Name, "Complex{Float64}")
	}
	c, err := r.Instantiate("Complex", []string{Int64})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if c == a {
		t.Error("a different instantiation key must get a distinct StructInfo/TypeID")
	}
	if c.TypeID == a.TypeID {
		t.Error("distinct instantiations must get distinct dense TypeIDs")
	}
}

func TestInstantiateErrorsOnUnknownOrWrongArity(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Instantiate("Nope", []string{Int64}); err == nil {
		t.Error("Instantiate of an undefined parametric struct should error")
	}
	r.DefineParametric(ParametricStructDef{BaseName: "Box", TypeParams: []string{"T"}})
	if _, err := r.Instantiate("Box", []string{Int64, Float64}); err == nil {
		t.Error("Instantiate with the wrong arg count should error")
	}
}

func TestAbstractNumericAccepts(t *testing.T) {
	tests := []struct {
		abstractName, concreteName string
		want                       bool
	}{
		{NumberName, Int64, true},
		{NumberName, String, false},
		{IntegerName, Float64, false},
		{IntegerName, Int32, true},
		{SignedName, UInt8, false},
		{UnsignedName, UInt8, true},
		{UnsignedName, Bool, true},
		{AbstractFloatName, Float32, true},
		{AbstractFloatName, Int64, false},
	}
	for _, tt := range tests {
		if got := AbstractNumericAccepts(tt.abstractName, tt.concreteName); got != tt.want {
			t.Errorf("AbstractNumericAccepts(%q, %q) = %v, want %v", tt.abstractName, tt.concreteName, got, tt.want)
		}
	}
}
