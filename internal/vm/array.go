package vm

import "sync"

// ArrayElementType distinguishes the handful of element layouts the array
// data tagged union supports (spec §3.3 ArrayData), including the
// interleaved-real/imaginary Complex layout.
type ArrayElementType int

const (
	ElemAny ArrayElementType = iota
	ElemF64
	ElemF32
	ElemI64
	ElemBool
	ElemString
	ElemChar
	ElemStructRefs
	ElemComplexF64
	ElemComplexF32
)

// ArrayData is the concrete backing store. Exactly one slice is populated,
// selected by Elem (spec §3.3 "ArrayData is a tagged union of concrete typed
// Vecs"). Complex arrays reuse the F64/F32 slices with an interleaved
// real/imag layout signalled by Elem.
type ArrayData struct {
	Elem ArrayElementType

	F64  []float64
	F32  []float32
	I64  []int64
	Bool []bool
	Str  []string
	Char []rune
	Refs []int // heap indices, for ElemStructRefs
	Any  []Value
}

func (d *ArrayData) Len() int {
	switch d.Elem {
	case ElemF64, ElemComplexF64:
		if d.Elem == ElemComplexF64 {
			return len(d.F64) / 2
		}
		return len(d.F64)
	case ElemF32, ElemComplexF32:
		if d.Elem == ElemComplexF32 {
			return len(d.F32) / 2
		}
		return len(d.F32)
	case ElemI64:
		return len(d.I64)
	case ElemBool:
		return len(d.Bool)
	case ElemString:
		return len(d.Str)
	case ElemChar:
		return len(d.Char)
	case ElemStructRefs:
		return len(d.Refs)
	default:
		return len(d.Any)
	}
}

// ArrayValue is the shared, mutable array handle (spec §3.3, §3.4): aliased
// copies observe each other's mutations (spec §8 S7), implemented with a
// pointer receiver plus a mutex for the single-threaded-but-aliasable model
// (spec §5: no locking contention in practice, but interior mutability must
// be safe if the host ever calls in from outside the interpreter loop).
type ArrayValue struct {
	mu                  sync.Mutex
	Data                ArrayData
	Shape               []int // row-major logical shape; spec §8 S3 covers column-major literal *construction*
	StructTypeID        int   // >=0 when Data.Elem == ElemStructRefs and all elements share a static type
	ElementTypeOverride ArrayElementType
}

func NewVectorAny(elems []Value) *ArrayValue {
	return &ArrayValue{Data: ArrayData{Elem: ElemAny, Any: elems}, Shape: []int{len(elems)}}
}

func NewVectorF64(elems []float64) *ArrayValue {
	return &ArrayValue{Data: ArrayData{Elem: ElemF64, F64: elems}, Shape: []int{len(elems)}}
}

func NewVectorI64(elems []int64) *ArrayValue {
	return &ArrayValue{Data: ArrayData{Elem: ElemI64, I64: elems}, Shape: []int{len(elems)}}
}

func (a *ArrayValue) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Data.Len()
}

// Get returns the 0-indexed element. Callers at the VM boundary are
// responsible for translating the language's 1-based index first (spec
// §4.4 "Semantics for 1-indexed operations").
func (a *ArrayValue) Get(i0 int) (Value, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.Data.Len()
	if i0 < 0 || i0 >= n {
		return Value{}, false
	}
	switch a.Data.Elem {
	case ElemF64:
		return Float64(a.Data.F64[i0]), true
	case ElemF32:
		return Float32(a.Data.F32[i0]), true
	case ElemComplexF64:
		return Value{}, false // complex element access is a method-dispatch concern (spec §4.3), not raw indexing
	case ElemI64:
		return Int64(a.Data.I64[i0]), true
	case ElemBool:
		return Bool(a.Data.Bool[i0]), true
	case ElemString:
		return Str(a.Data.Str[i0]), true
	case ElemChar:
		return Char(a.Data.Char[i0]), true
	case ElemStructRefs:
		return Value{Kind: KStructRef, HeapRef: a.Data.Refs[i0]}, true
	default:
		return a.Data.Any[i0], true
	}
}

func (a *ArrayValue) Set(i0 int, v Value) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.Data.Len()
	if i0 < 0 || i0 >= n {
		return false
	}
	switch a.Data.Elem {
	case ElemF64:
		a.Data.F64[i0] = asFloat(v)
	case ElemF32:
		a.Data.F32[i0] = float32(asFloat(v))
	case ElemI64:
		a.Data.I64[i0] = v.I
	case ElemBool:
		a.Data.Bool[i0] = v.I != 0
	case ElemString:
		a.Data.Str[i0] = v.Str
	case ElemChar:
		a.Data.Char[i0] = rune(v.I)
	case ElemStructRefs:
		a.Data.Refs[i0] = v.HeapRef
	default:
		a.Data.Any[i0] = v
	}
	return true
}

// Push appends to a 1-D Any/typed array in place (used by the `push!`
// builtin on both locals and globals — spec §4.5's global-array mutation
// note: pushing never needs a slot rewrite because it mutates the handle,
// not the binding).
func (a *ArrayValue) Push(v Value) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.Data.Elem {
	case ElemF64:
		a.Data.F64 = append(a.Data.F64, asFloat(v))
	case ElemI64:
		a.Data.I64 = append(a.Data.I64, v.I)
	case ElemBool:
		a.Data.Bool = append(a.Data.Bool, v.I != 0)
	case ElemString:
		a.Data.Str = append(a.Data.Str, v.Str)
	case ElemChar:
		a.Data.Char = append(a.Data.Char, rune(v.I))
	case ElemStructRefs:
		a.Data.Refs = append(a.Data.Refs, v.HeapRef)
	default:
		a.Data.Any = append(a.Data.Any, v)
	}
	if len(a.Shape) == 1 {
		a.Shape[0] = a.Data.Len()
	}
}

func asFloat(v Value) float64 {
	switch v.Kind {
	case KF64, KF32, KF16:
		return v.F
	case KI64, KI32, KI16, KI8, KBool, KChar:
		return float64(v.I)
	default:
		return 0
	}
}

// DictValue is the shared, mutable dictionary handle (spec §3.3). Keys are
// stored by their printable form alongside the original Value so dict
// iteration (OpDictKeys) and insertion order (spec-compatible with the
// source language's observable iteration order) are both recoverable.
type DictValue struct {
	mu    sync.Mutex
	order []string
	keys  map[string]Value
	vals  map[string]Value
}

func NewDict() *DictValue {
	return &DictValue{keys: make(map[string]Value), vals: make(map[string]Value)}
}

func dictKeyString(k Value) string { return k.TypeName() + ":" + k.String() }

func (d *DictValue) Get(k Value) (Value, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vals[dictKeyString(k)]
	return v, ok
}

func (d *DictValue) Set(k, v Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ks := dictKeyString(k)
	if _, exists := d.vals[ks]; !exists {
		d.order = append(d.order, ks)
		d.keys[ks] = k
	}
	d.vals[ks] = v
}

func (d *DictValue) Delete(k Value) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ks := dictKeyString(k)
	if _, ok := d.vals[ks]; !ok {
		return false
	}
	delete(d.vals, ks)
	delete(d.keys, ks)
	for i, o := range d.order {
		if o == ks {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

func (d *DictValue) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

func (d *DictValue) Keys() []Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Value, 0, len(d.order))
	for _, ks := range d.order {
		out = append(out, d.keys[ks])
	}
	return out
}

// SetValue is the shared, mutable set handle (spec §3.3 Value::Set).
type SetValue struct {
	mu     sync.Mutex
	order  []string
	lookup map[string]Value
}

func NewSet() *SetValue {
	return &SetValue{lookup: make(map[string]Value)}
}

func (s *SetValue) Add(v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ks := dictKeyString(v)
	if _, ok := s.lookup[ks]; !ok {
		s.order = append(s.order, ks)
		s.lookup[ks] = v
	}
}

func (s *SetValue) Contains(v Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookup[dictKeyString(v)]
	return ok
}

func (s *SetValue) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// At returns the i-th element in insertion order, so `for x in s` can reuse
// the same fast-path cursor protocol as arrays/tuples/ranges instead of a
// dedicated Set iteration opcode.
func (s *SetValue) At(i int) Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup[s.order[i]]
}

// RangeValue is a lazily-iterated arithmetic range (spec §3.3 Value::Range).
type RangeValue struct {
	Start, Stop, Step int64
	IsFloat           bool
	FStart, FStop, FStep float64
}

func (r *RangeValue) Len() int {
	if r.IsFloat {
		if r.FStep == 0 {
			return 0
		}
		n := int((r.FStop-r.FStart)/r.FStep) + 1
		if n < 0 {
			return 0
		}
		return n
	}
	if r.Step == 0 {
		return 0
	}
	n := int((r.Stop-r.Start)/r.Step) + 1
	if n < 0 {
		return 0
	}
	return n
}

func (r *RangeValue) At(i int) Value {
	if r.IsFloat {
		return Float64(r.FStart + float64(i)*r.FStep)
	}
	return Int64(r.Start + int64(i)*r.Step)
}
