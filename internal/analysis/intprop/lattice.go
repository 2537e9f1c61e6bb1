package intprop

import "fmt"

// latticeKind is the standard constant-propagation lattice: bottom (nothing
// derived yet), an exact known integer, or top (derived from at least two
// conflicting sources, or from an operation this analysis declines to model
// precisely).
type latticeKind int

const (
	latticeBottom latticeKind = iota
	latticeConstant
	latticeTop
)

// IntLattice is one operand's derived integer value.
type IntLattice struct {
	kind  latticeKind
	Bits  uint32
	Value uint64
}

func Bottom() IntLattice { return IntLattice{kind: latticeBottom} }

func Constant(bits uint32, value uint64) IntLattice {
	return IntLattice{kind: latticeConstant, Bits: bits, Value: value}
}

func Top() IntLattice { return IntLattice{kind: latticeTop} }

func (l IntLattice) IsBottom() bool  { return l.kind == latticeBottom }
func (l IntLattice) IsTop() bool     { return l.kind == latticeTop }
func (l IntLattice) IsConstant() bool { return l.kind == latticeConstant }

// Join computes the least upper bound: bottom yields to anything, two equal
// constants stay that constant, anything else (including two differing
// constants) widens to top.
func (l IntLattice) Join(other IntLattice) IntLattice {
	if l.kind == latticeTop || other.kind == latticeTop {
		return Top()
	}
	if l.kind == latticeBottom {
		return other
	}
	if other.kind == latticeBottom {
		return l
	}
	if l.Bits == other.Bits && l.Value == other.Value {
		return l
	}
	return Top()
}

// Equal reports whether l and other are the same lattice element -- used to
// detect when a Join actually grew an entry, so the engine only re-enqueues
// dependents on genuine change.
func (l IntLattice) Equal(other IntLattice) bool {
	return l.kind == other.kind && l.Bits == other.Bits && l.Value == other.Value
}

// Add, Sub, Mul, and Div all widen to Top unconditionally. Folding these
// precisely needs the operand's exact LLVM wraparound and signedness
// semantics, which this analysis doesn't track.
func (l IntLattice) Add(IntLattice) IntLattice { return Top() }
func (l IntLattice) Sub(IntLattice) IntLattice { return Top() }
func (l IntLattice) Mul(IntLattice) IntLattice { return Top() }
func (l IntLattice) Div(IntLattice) IntLattice { return Top() }

func (l IntLattice) String() string {
	switch l.kind {
	case latticeBottom:
		return "⊥"
	case latticeTop:
		return "⊤"
	default:
		return fmt.Sprintf("%d: i%d", l.Value, l.Bits)
	}
}
