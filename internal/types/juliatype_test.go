package types

import "testing"

func TestJuliaTypeString(t *testing.T) {
	tests := []struct {
		name string
		typ  JuliaType
		want string
	}{
		{"primitive", Primitive(Int64), "Int64"},
		{"abstract", Abstract(NumberName), "Number"},
		{"any", Any(), "Any"},
		{"bare struct", Struct("Point"), "Point"},
		{"parametric struct", Struct("Complex", Primitive(Float64)), "Complex{Float64}"},
		{"vector", VectorOf(Primitive(Int64)), "Vector{Int64}"},
		{"matrix", MatrixOf(Primitive(Float64)), "Matrix{Float64}"},
		{"tuple", TupleOf(Primitive(Int64), Primitive(String)), "Tuple{Int64,String}"},
		{"union", UnionOf(Primitive(Int64), Primitive(Float64)), "Union{Int64,Float64}"},
		{"bottom", Bottom(), "Union{}"},
		{"typevar unbound", TypeVar("T", nil), "T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJuliaTypeTypeVarWithBound(t *testing.T) {
	bound := Abstract(RealName)
	tv := TypeVar("T", &bound)
	if got, want := tv.String(), "T<:Real"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestUnionOfSingleMemberCollapses(t *testing.T) {
	u := UnionOf(Primitive(Int64))
	if u.Kind != KindPrimitive {
		t.Errorf("UnionOf single member should collapse to the member itself, got Kind=%v", u.Kind)
	}
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		name string
		typ  JuliaType
		want string
	}{
		{"struct no args", Struct("Point"), "Point"},
		{"struct with args", Struct("Complex", Primitive(Float64)), "Complex{Float64}"},
		{"non-struct falls back to String", Primitive(Int64), "Int64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.QualifiedName(); got != tt.want {
				t.Errorf("QualifiedName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShortName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Date", "Date"},
		{"Dates.Date", "Date"},
		{"A.B.C", "C"},
	}
	for _, tt := range tests {
		if got := ShortName(tt.in); got != tt.want {
			t.Errorf("ShortName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsConcrete(t *testing.T) {
	realBound := Abstract(RealName)
	tests := []struct {
		name string
		typ  JuliaType
		want bool
	}{
		{"primitive", Primitive(Int64), true},
		{"abstract", Abstract(NumberName), false},
		{"union", UnionOf(Primitive(Int64), Primitive(Float64)), false},
		{"typevar", TypeVar("T", &realBound), false},
		{"bottom", Bottom(), false},
		{"bare struct", Struct("Point"), true},
		{"struct with concrete args", Struct("Complex", Primitive(Float64)), true},
		{"struct with abstract args", Struct("Box", Abstract(NumberName)), false},
		{"vector", VectorOf(Primitive(Int64)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.IsConcrete(); got != tt.want {
				t.Errorf("IsConcrete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPrimitiveNumericIntegerFloat(t *testing.T) {
	if !IsPrimitiveNumeric(Int64) {
		t.Error("Int64 should be primitive numeric")
	}
	if IsPrimitiveNumeric(String) {
		t.Error("String should not be primitive numeric")
	}
	if !IsIntegerName(Bool) {
		t.Error("Bool counts as an integer name (for bitwise/shift dispatch)")
	}
	if !IsFloatName(Float32) {
		t.Error("Float32 should be a float name")
	}
	if IsFloatName(Int64) {
		t.Error("Int64 should not be a float name")
	}
}
