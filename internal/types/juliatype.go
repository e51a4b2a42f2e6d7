// Package types implements the static/inferred type lattice the compiler
// reasons about (JuliaType) and the coarser runtime-tag lattice the VM and
// slot allocator use (ValueType), along with the struct and abstract-type
// registries that back subtype checks and method dispatch.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the JuliaType sum type.
type Kind int

const (
	KindPrimitive Kind = iota
	KindTuple
	KindTupleOf
	KindVectorOf
	KindMatrixOf
	KindArray
	KindStruct
	KindAbstract
	KindUnion
	KindBottom
	KindTypeVar
)

// Primitive names. These are the concrete leaf tags of the lattice.
const (
	Int8    = "Int8"
	Int16   = "Int16"
	Int32   = "Int32"
	Int64   = "Int64"
	Int128  = "Int128"
	UInt8   = "UInt8"
	UInt16  = "UInt16"
	UInt32  = "UInt32"
	UInt64  = "UInt64"
	UInt128 = "UInt128"
	Float16 = "Float16"
	Float32 = "Float32"
	Float64 = "Float64"
	Bool    = "Bool"
	Char    = "Char"
	String  = "String"
	BigInt  = "BigInt"
	BigFloat = "BigFloat"
)

// Abstract numeric type names, used by the "abstract numeric acceptance"
// scoring rule in dispatch (spec §4.1).
const (
	AnyName          = "Any"
	NumberName       = "Number"
	RealName         = "Real"
	IntegerName      = "Integer"
	SignedName       = "Signed"
	UnsignedName     = "Unsigned"
	AbstractFloatName = "AbstractFloat"
	AbstractStringName = "AbstractString"
	AbstractArrayName  = "AbstractArray"
)

// JuliaType is the static/inferred type used by the compiler and the method
// dispatch tables. It is a tagged union: exactly one of the payload fields is
// meaningful, selected by Kind.
type JuliaType struct {
	Kind Kind

	// KindPrimitive, KindAbstract, KindStruct: the type's own name.
	// For KindStruct this may be parametric, e.g. "Complex{Float64}".
	Name string

	// KindStruct: the parsed type arguments of a parametric instantiation,
	// e.g. ["Float64"] for Complex{Float64}. Empty for non-parametric structs.
	TypeArgs []JuliaType

	// KindTupleOf, KindVectorOf, KindMatrixOf, KindArray: element type(s).
	Elem []JuliaType

	// KindUnion: the member types.
	Union []JuliaType

	// KindTypeVar: the variable's name and optional upper bound.
	VarName  string
	VarBound *JuliaType
}

func Primitive(name string) JuliaType { return JuliaType{Kind: KindPrimitive, Name: name} }
func Abstract(name string) JuliaType  { return JuliaType{Kind: KindAbstract, Name: name} }
func Any() JuliaType                  { return JuliaType{Kind: KindAbstract, Name: AnyName} }
func Bottom() JuliaType                { return JuliaType{Kind: KindBottom} }

// Struct builds a (possibly parametric) named struct type. Name carries the
// bare struct name ("Complex"); TypeArgs the instantiation's parameters.
func Struct(name string, args ...JuliaType) JuliaType {
	return JuliaType{Kind: KindStruct, Name: name, TypeArgs: args}
}

func TupleOf(elem ...JuliaType) JuliaType  { return JuliaType{Kind: KindTupleOf, Elem: elem} }
func VectorOf(elem JuliaType) JuliaType    { return JuliaType{Kind: KindVectorOf, Elem: []JuliaType{elem}} }
func MatrixOf(elem JuliaType) JuliaType    { return JuliaType{Kind: KindMatrixOf, Elem: []JuliaType{elem}} }
func UnionOf(members ...JuliaType) JuliaType {
	if len(members) == 1 {
		return members[0]
	}
	return JuliaType{Kind: KindUnion, Union: members}
}
func TypeVar(name string, bound *JuliaType) JuliaType {
	return JuliaType{Kind: KindTypeVar, VarName: name, VarBound: bound}
}

// QualifiedName returns the fully-qualified struct name for lookup purposes;
// for non-struct kinds it returns String().
func (t JuliaType) QualifiedName() string {
	if t.Kind == KindStruct {
		return instantiationName(t.Name, t.TypeArgs)
	}
	return t.String()
}

// ShortName strips any module qualification ("Dates.Date" -> "Date"), used so
// struct lookup accepts both qualified and short forms (spec §3.1 invariant).
func ShortName(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func instantiationName(base string, args []JuliaType) string {
	if len(args) == 0 {
		return base
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s{%s}", base, strings.Join(parts, ","))
}

func (t JuliaType) String() string {
	switch t.Kind {
	case KindPrimitive, KindAbstract:
		return t.Name
	case KindStruct:
		return instantiationName(t.Name, t.TypeArgs)
	case KindTupleOf:
		parts := make([]string, len(t.Elem))
		for i, e := range t.Elem {
			parts[i] = e.String()
		}
		return fmt.Sprintf("Tuple{%s}", strings.Join(parts, ","))
	case KindTuple:
		return "Tuple"
	case KindVectorOf:
		return fmt.Sprintf("Vector{%s}", t.Elem[0].String())
	case KindMatrixOf:
		return fmt.Sprintf("Matrix{%s}", t.Elem[0].String())
	case KindArray:
		return "Array"
	case KindUnion:
		parts := make([]string, len(t.Union))
		for i, u := range t.Union {
			parts[i] = u.String()
		}
		return fmt.Sprintf("Union{%s}", strings.Join(parts, ","))
	case KindBottom:
		return "Union{}"
	case KindTypeVar:
		if t.VarBound != nil {
			return fmt.Sprintf("%s<:%s", t.VarName, t.VarBound.String())
		}
		return t.VarName
	default:
		return "?"
	}
}

// IsConcrete reports whether t names a single, fully resolved runtime type
// (no abstract types, unions, or free type variables). Used by the compiler
// to decide whether static dispatch can be attempted (spec §4.1).
func (t JuliaType) IsConcrete() bool {
	switch t.Kind {
	case KindAbstract, KindUnion, KindTypeVar, KindBottom:
		return false
	case KindStruct:
		for _, a := range t.TypeArgs {
			if !a.IsConcrete() {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// IsPrimitiveNumeric reports whether the name is a concrete numeric primitive
// tag (used throughout the numeric tower, spec §4.3).
func IsPrimitiveNumeric(name string) bool {
	switch name {
	case Int8, Int16, Int32, Int64, Int128,
		UInt8, UInt16, UInt32, UInt64, UInt128,
		Float16, Float32, Float64, Bool:
		return true
	}
	return false
}

func IsIntegerName(name string) bool {
	switch name {
	case Int8, Int16, Int32, Int64, Int128,
		UInt8, UInt16, UInt32, UInt64, UInt128, Bool:
		return true
	}
	return false
}

func IsFloatName(name string) bool {
	switch name {
	case Float16, Float32, Float64:
		return true
	}
	return false
}
