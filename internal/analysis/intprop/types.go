// Package intprop implements the auxiliary integer constant-propagation
// analysis: a context-sensitive, flow-insensitive abstract interpretation
// tracking which operands hold a known constant integer versus an
// unknowable one. It uses the callgraph analysis's static call resolution
// (internal/analysis/callgraph) rather than the pointer analysis's
// points-to-derived one -- integers never flow through an indirect call
// target the way a function pointer's pointee would, so there is no reason
// to pay for allocation tracking here.
package intprop

import (
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
	"github.com/GaloisInc/yapall/internal/names"
)

// Options mirrors internal/analysis/pointer.Options for the subset that
// applies here: context depth, debug tracing, and whether to compute the
// precision metric.
type Options struct {
	Contexts int
	Debug    bool
	Metrics  bool
}

// OperandValueFact is one row of the operand_val relation: in context Ctx,
// operand Op evaluates to Value.
type OperandValueFact struct {
	Ctx   klimited.Context
	Op    *ir.Operand
	Value IntLattice
}

// Metrics counts operands the analysis widened to Top -- the sole precision
// metric this analysis tracks.
type Metrics struct {
	Tops int
}

// Output is the full result of Analyze.
type Output struct {
	OperandVal []OperandValueFact
	Metrics    *Metrics
}

// reachKey and opKey mirror the pointer engine's map-key shape; see
// internal/analysis/pointer/engine.go for why context can't be a map key
// directly.
type reachKey struct {
	ctx string
	fn  *names.FunctionName
}

type opKey struct {
	ctx string
	op  *ir.Operand
}
