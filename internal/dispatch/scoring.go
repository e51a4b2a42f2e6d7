package dispatch

import "vesper/internal/types"

// Score values from spec §4.1's type-match scoring table.
const (
	ScoreNone               = 0
	ScoreSubtypeOrAbstract  = 1
	ScoreParametricBase     = 2
	ScoreExact              = 3
)

// ScoreTypeMatch scores one argument position: expected is the method
// parameter's JuliaType name (possibly parametric, e.g. "Complex{Float64}"
// or "Complex{T}"), actual is the runtime (or inferred) argument's type
// name. reg supplies the abstract-type parent chain for subtype checks.
func ScoreTypeMatch(reg *types.Registry, expected, actual string) int {
	if expected == types.AnyName {
		return ScoreSubtypeOrAbstract
	}
	if expected == actual {
		return ScoreExact
	}
	expectedBase := baseName(expected)
	actualBase := baseName(actual)
	if expectedBase == actualBase && expectedBase != expected {
		// e.g. actual "Complex{Float64}" vs expected "Complex{T}": same base,
		// different (or variable) instantiation.
		return ScoreParametricBase
	}
	if types.AbstractNumericAccepts(expected, actual) {
		return ScoreSubtypeOrAbstract
	}
	if reg != nil && reg.IsSubtypeName(actual, expected) {
		return ScoreSubtypeOrAbstract
	}
	return ScoreNone
}

// baseName strips a parametric instantiation's type arguments:
// "Complex{Float64}" -> "Complex".
func baseName(name string) string {
	for i, r := range name {
		if r == '{' {
			return name[:i]
		}
	}
	return name
}

// Candidate pairs a method signature with its computed total score.
type Candidate struct {
	Method MethodSig
	Score  int
}

// SelectMethod scores every method in the table against actualTypes and
// returns the most-specific match, or ok=false if no candidate scores > 0 in
// every position (spec §4.1: "a candidate matches only if all positional
// scores are > 0... ties are broken by preferring concrete over abstract,
// then insertion order").
func SelectMethod(reg *types.Registry, mt *MethodTable, actualTypes []string) (MethodSig, bool) {
	best := -1
	bestScore := -1
	bestConcreteCount := -1
	for i, m := range mt.Methods {
		if !arityMatches(m, len(actualTypes)) {
			continue
		}
		total := 0
		concrete := 0
		ok := true
		for pos, actual := range actualTypes {
			expected := paramTypeName(m, pos)
			s := ScoreTypeMatch(reg, expected, actual)
			if s == ScoreNone {
				ok = false
				break
			}
			total += s
			if s == ScoreExact || s == ScoreParametricBase {
				concrete++
			}
		}
		if !ok {
			continue
		}
		if total > bestScore ||
			(total == bestScore && concrete > bestConcreteCount) {
			best = i
			bestScore = total
			bestConcreteCount = concrete
		}
	}
	if best < 0 {
		return MethodSig{}, false
	}
	return mt.Methods[best], true
}

func arityMatches(m MethodSig, argc int) bool {
	if m.VarargParamIndex < 0 {
		return len(m.Params) == argc
	}
	return argc >= m.VarargFixedCount
}

func paramTypeName(m MethodSig, pos int) string {
	if m.VarargParamIndex >= 0 && pos >= m.VarargParamIndex {
		return m.Params[m.VarargParamIndex].Type.String()
	}
	if pos < len(m.Params) {
		return m.Params[pos].Type.String()
	}
	return types.AnyName
}

// StaticDispatch attempts compile-time resolution: it succeeds when every
// argument type is concrete and some method matches, returning SelectMethod's
// pick (spec §4.1 "Static dispatch"). Methods tied on score are not reported
// as ambiguous; the tie-break rules of SelectMethod decide. Compilers should
// fall back to emitting a runtime-dispatch instruction when ok is false.
func StaticDispatch(reg *types.Registry, mt *MethodTable, argTypes []types.JuliaType) (MethodSig, bool) {
	for _, t := range argTypes {
		if !t.IsConcrete() {
			return MethodSig{}, false
		}
	}
	names := make([]string, len(argTypes))
	for i, t := range argTypes {
		names[i] = t.QualifiedName()
	}
	return SelectMethod(reg, mt, names)
}

// RuntimeDispatchCandidates collects the subset of a table's methods that
// can only be distinguished at runtime — those with struct-typed or
// abstract-numeric parameters — to be emitted as a CallDynamicBinaryBoth /
// CallDynamicUnary dispatch table (spec §4.2 step 6).
func RuntimeDispatchCandidates(mt *MethodTable) []MethodSig {
	out := make([]MethodSig, 0, len(mt.Methods))
	for _, m := range mt.Methods {
		if methodNeedsRuntimeDispatch(m) {
			out = append(out, m)
		}
	}
	return out
}

func methodNeedsRuntimeDispatch(m MethodSig) bool {
	for _, p := range m.Params {
		if p.Type.Kind == types.KindStruct || p.Type.Kind == types.KindAbstract || p.Type.Kind == types.KindTypeVar {
			return true
		}
	}
	return false
}
