// Package compiler lowers the IR (internal/ir) to a CompiledProgram (spec
// §4.2, §4.4, §4.5): operator compilation and promotion, statement
// compilation, slot allocation, a peephole pass, and disassembly. Grounded
// in the teacher's internal/compregister.Compiler/RegisterAllocator shape,
// generalized from register allocation to slot allocation since this VM is
// stack-based rather than register-based.
package compiler

// SlotAllocator assigns each local variable a dense u16-range slot index
// within its function (spec §4.5). Unlike the teacher's RegisterAllocator,
// slots are never freed/reused mid-function: a name gets its slot on first
// use while the function body is walked, and every distinct name keeps
// exactly one stable slot for the function's lifetime.
type SlotAllocator struct {
	names   []string
	byName  map[string]int
}

func NewSlotAllocator() *SlotAllocator {
	return &SlotAllocator{byName: make(map[string]int)}
}

// Slot returns name's slot index, allocating a new one on first use.
func (a *SlotAllocator) Slot(name string) int {
	if idx, ok := a.byName[name]; ok {
		return idx
	}
	idx := len(a.names)
	a.names = append(a.names, name)
	a.byName[name] = idx
	return idx
}

// Lookup reports a slot without allocating.
func (a *SlotAllocator) Lookup(name string) (int, bool) {
	idx, ok := a.byName[name]
	return idx, ok
}

func (a *SlotAllocator) Names() []string { return append([]string(nil), a.names...) }
func (a *SlotAllocator) Count() int      { return len(a.names) }

// GlobalAllocator is the program-wide analogue of SlotAllocator, tracking
// the flat global-slot array shared by all top-level code (spec §3.4
// global_slot_names/global_slot_count).
type GlobalAllocator struct {
	names  []string
	byName map[string]int
}

func NewGlobalAllocator() *GlobalAllocator {
	return &GlobalAllocator{byName: make(map[string]int)}
}

func (a *GlobalAllocator) Slot(name string) int {
	if idx, ok := a.byName[name]; ok {
		return idx
	}
	idx := len(a.names)
	a.names = append(a.names, name)
	a.byName[name] = idx
	return idx
}

func (a *GlobalAllocator) Lookup(name string) (int, bool) {
	idx, ok := a.byName[name]
	return idx, ok
}

func (a *GlobalAllocator) Names() []string { return append([]string(nil), a.names...) }
func (a *GlobalAllocator) Count() int      { return len(a.names) }
