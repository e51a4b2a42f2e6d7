// Package ir defines the lowered intermediate representation the compiler
// consumes (spec §6.1). Producing it — parsing surface syntax and lowering
// the resulting tree — is an external collaborator and out of scope; this
// package only defines the data shape and carries it across the stage 2-5
// pipeline.
package ir

import "vesper/internal/types"

// Program is the top-level IR unit handed to the compiler (spec §6.1).
type Program struct {
	Main              Block
	Functions         []Function
	Modules           []Module
	Structs           []StructDef
	AbstractTypes     []AbstractTypeDef
	Enums             []EnumDef
	TypeAliases       []TypeAlias
	Usings            []UsingImport
	BaseFunctionCount int
}

type Module struct {
	Name      string
	Functions []Function
	Structs   []StructDef
}

type StructDef struct {
	Name                string
	IsMutable           bool
	Fields              []FieldDef
	TypeParams          []string // non-empty for a parametric struct template
	HasInnerConstructor bool
}

type FieldDef struct {
	Name     string
	TypeName string // may reference a struct TypeParam
}

type AbstractTypeDef struct {
	Name       string
	Parent     string
	TypeParams []string
}

type EnumDef struct {
	Name     string
	Variants []string
}

type TypeAlias struct {
	Name   string
	Target string
}

type UsingImport struct {
	Module     string
	Symbols    []string // nil means "import everything public"
	IsRelative bool
}

// Function is an IR function/method definition (spec §6.1).
type Function struct {
	Name            string
	Params          []Param
	KwParams        []KwParam
	Body            Block
	ReturnType      *types.JuliaType
	TypeParams      []TypeParam
	IsBaseExtension bool
}

type Param struct {
	Name           string
	TypeAnnotation *types.JuliaType
	IsVarargs      bool
	VarargCount    *int
}

type KwParam struct {
	Name     string
	Required bool
	Default  Expr
}

type TypeParam struct {
	Name  string
	Bound *types.JuliaType
}

// Block is an ordered list of statements.
type Block []Stmt
