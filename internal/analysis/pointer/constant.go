package pointer

import (
	"github.com/GaloisInc/yapall/internal/alloc"
	"github.com/GaloisInc/yapall/internal/ir"
)

// globalAlloc returns the interned allocation for a global variable,
// deriving constness and conservative size from the module's Global
// record. Functions and declarations never reach here (their constants
// resolve through functionAlloc).
func (e *engine) globalAlloc(c *ir.Constant) *alloc.Alloc {
	g, ok := e.mod.Globals[c.Global]
	if !ok {
		// Declared-but-absent global (e.g. an implicit global the module
		// references without defining) -- conservative, unsized, mutable.
		return e.allocs.Global(c.Global, false, nil)
	}
	return e.allocs.Global(c.Global, g.IsConst, g.Size())
}

// functionAlloc returns the interned allocation for a function constant,
// whether the function is defined in this module or merely declared --
// both are valid call/points-to targets.
func (e *engine) functionAlloc(c *ir.Constant) *alloc.Alloc {
	return e.allocs.Function(c.Function)
}

// ConstantPointsTo computes constant_points_to(c) structurally, memoized
// since the same *ir.Constant is referenced from many call sites once
// interned per-function.
func (e *engine) ConstantPointsTo(c *ir.Constant) []*alloc.Alloc {
	if cached, ok := e.constantCache[c]; ok {
		return cached
	}
	var out []*alloc.Alloc
	for _, p := range c.Pointers() {
		switch p.Kind {
		case ir.ConstantFunction:
			out = append(out, e.functionAlloc(p))
		case ir.ConstantGlobal:
			out = append(out, e.globalAlloc(p))
		case ir.ConstantNull:
			out = append(out, e.allocs.Null())
		case ir.ConstantInt, ir.ConstantUndef:
			// Int/Undef appear in Pointers() as themselves but contribute
			// no allocation -- they're not pointer-shaped; only Function,
			// Global and Null base cases in Pointers() denote allocations.
		}
	}
	e.constantCache[c] = out
	return out
}
