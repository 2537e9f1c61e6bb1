// Package alloc implements the abstract allocation model: the closed set of
// abstract objects points-to facts range over, interned one-per-origin, and
// merged under the optional unification mode via internal/unionfind.
package alloc

import (
	"fmt"
	"sync"

	"github.com/GaloisInc/yapall/internal/names"
	"github.com/GaloisInc/yapall/internal/ref"
	"github.com/GaloisInc/yapall/internal/unionfind"
)

// Kind is the closed set of allocation shapes.
type Kind int

const (
	Function Kind = iota
	Global
	Heap
	Stack
	Null
	Top
)

// Alloc is one abstract allocation. Exactly one Alloc exists per syntactic
// origin (a function, a global, a heap call site, a stack alloca); see
// Table for the enforcement of that invariant. Null and Top are process-wide
// singletons (Table.Null, Table.Top).
type Alloc struct {
	unionfind.Node

	Kind Kind

	FunctionName *names.FunctionName // Function

	GlobalName     *names.GlobalName // Global
	GlobalConstant bool              // Global
	GlobalSize     *uint64           // Global, optional

	HeapInstr *names.InstructionName // Heap
	HeapSize  *uint64                // Heap, optional

	StackInstr *names.InstructionName // Stack
}

// UFNode implements unionfind.Cell.
func (a *Alloc) UFNode() *unionfind.Node { return &a.Node }

// Loadable reports whether a value may be loaded from this allocation.
// False only for Function (you cannot load through a function's address)
// and Null (undefined behavior, modeled as "no effect" rather than Top).
func (a *Alloc) Loadable() bool {
	return a.Kind != Function && a.Kind != Null
}

// Storable reports whether a value may be stored into this allocation.
// False for Function, Null, and a constant (read-only) Global.
func (a *Alloc) Storable() bool {
	if a.Kind == Function || a.Kind == Null {
		return false
	}
	if a.Kind == Global && a.GlobalConstant {
		return false
	}
	return true
}

// Freeable reports whether free()ing this allocation is well-defined. Only
// Heap and the conservative Top sink are freeable; freeing anything else is
// counted in the free_non_heap metric rather than rejected outright.
func (a *Alloc) Freeable() bool {
	return a.Kind == Heap || a.Kind == Top
}

func equalSize(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Merge attempts to unify the classes currently represented by a and b. It
// returns false (no-op) when the two classes are not of compatible kinds:
// Function, Null, and Top never merge with anything (Function/Null
// allocations are singletons per name and Top is the single universal
// sink); Heap allocations merge only when their (possibly unknown) sizes
// agree; Global allocations merge only when their constness agrees.
// Determinism: the class whose representative has the higher Node address
// becomes the parent, so independent goroutines merging the same pair reach
// the same outcome regardless of scheduling order.
func Merge(a, b *Alloc) bool {
	ra, rb := Lookup(a), Lookup(b)
	if ra == rb {
		return true
	}
	if ra.Kind != rb.Kind {
		return false
	}
	switch ra.Kind {
	case Function, Null, Top:
		return false
	case Heap:
		if !equalSize(ra.HeapSize, rb.HeapSize) {
			return false
		}
	case Global:
		if ra.GlobalConstant != rb.GlobalConstant {
			return false
		}
	}
	child, root := ra, rb
	if nodeLess(rb, ra) {
		child, root = rb, ra
	}
	unionfind.Link(child, root)
	return true
}

// Lookup returns the canonical representative of a's class, applying path
// compression. Works uniformly over every kind that can ever be merged
// (Heap, Stack, Global) -- Function, Null and Top never acquire a parent, so
// looking them up is a cheap no-op.
func Lookup(a *Alloc) *Alloc {
	return unionfind.Lookup(a).(*Alloc)
}

func (a *Alloc) String() string {
	switch a.Kind {
	case Function:
		return "*f"
	case Global:
		if a.GlobalSize != nil {
			if a.GlobalConstant {
				return fmt.Sprintf("*g:const(%d)", *a.GlobalSize)
			}
			return fmt.Sprintf("*g(%d)", *a.GlobalSize)
		}
		if a.GlobalConstant {
			return "*g:const"
		}
		return "*g"
	case Heap:
		if a.HeapSize != nil {
			return fmt.Sprintf("*i(%d)", *a.HeapSize)
		}
		return "*i"
	case Stack:
		return "*i"
	case Null:
		return "*null"
	case Top:
		return "Top"
	default:
		return "?"
	}
}

// Table interns allocations one-per-origin. Every lookup-or-create is
// guarded by a mutex, so a Table is safe for concurrent use.
type Table struct {
	mu        sync.Mutex
	functions map[*names.FunctionName]*Alloc
	globals   map[*names.GlobalName]*Alloc
	heaps     map[*names.InstructionName]*Alloc
	stacks    map[*names.InstructionName]*Alloc
	null      *Alloc
	top       *Alloc
}

func NewTable() *Table {
	return &Table{
		functions: make(map[*names.FunctionName]*Alloc),
		globals:   make(map[*names.GlobalName]*Alloc),
		heaps:     make(map[*names.InstructionName]*Alloc),
		stacks:    make(map[*names.InstructionName]*Alloc),
		null:      &Alloc{Kind: Null},
		top:       &Alloc{Kind: Top},
	}
}

func (t *Table) Function(f *names.FunctionName) *Alloc {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.functions[f]; ok {
		return a
	}
	a := &Alloc{Kind: Function, FunctionName: f}
	t.functions[f] = a
	return a
}

func (t *Table) Global(g *names.GlobalName, constant bool, size *uint64) *Alloc {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.globals[g]; ok {
		return a
	}
	a := &Alloc{Kind: Global, GlobalName: g, GlobalConstant: constant, GlobalSize: size}
	t.globals[g] = a
	return a
}

func (t *Table) Heap(instr *names.InstructionName, size *uint64) *Alloc {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.heaps[instr]; ok {
		return a
	}
	a := &Alloc{Kind: Heap, HeapInstr: instr, HeapSize: size}
	t.heaps[instr] = a
	return a
}

func (t *Table) Stack(instr *names.InstructionName) *Alloc {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.stacks[instr]; ok {
		return a
	}
	a := &Alloc{Kind: Stack, StackInstr: instr}
	t.stacks[instr] = a
	return a
}

func (t *Table) Null() *Alloc { return t.null }
func (t *Table) Top() *Alloc  { return t.top }

// nodeLess provides the deterministic tie-break order Merge uses -- any
// total order over *Alloc works, and allocations are interned one-per-origin
// (Table), so the pointer-identity order of ref.Unique applies.
func nodeLess(a, b *Alloc) bool {
	return ref.NewUnique(a).Less(ref.NewUnique(b))
}
