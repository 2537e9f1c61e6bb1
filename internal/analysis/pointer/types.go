package pointer

import (
	"github.com/GaloisInc/yapall/internal/alloc"
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
	"github.com/GaloisInc/yapall/internal/names"
)

// Options configures the analysis. The zero value is context-insensitive,
// unification-off, no assertions, no metrics -- the cheapest, least precise
// configuration.
type Options struct {
	CheckAssertions bool
	CheckStrict     bool
	Contexts        int
	Debug           bool
	Metrics         bool
	Unification     bool
}

// CallEdge is one resolved call: call site i in context ctx invokes callee,
// which then runs in context calleeCtx (ctx with i pushed, or ctx unchanged
// at k=0).
type CallEdge struct {
	Ctx       klimited.Context
	Site      *names.InstructionName
	Callee    *names.FunctionName
	CalleeCtx klimited.Context
}

// OperandFact is one (context, operand) -> allocation points-to fact.
type OperandFact struct {
	Ctx   klimited.Context
	Op    *ir.Operand
	Alloc *alloc.Alloc
}

// AllocFact is one alloc_points_to edge.
type AllocFact struct {
	From, To *alloc.Alloc
}

// Metrics are the precision counts. They never feed back into the fixpoint;
// they characterize what the abstraction had to approximate.
type Metrics struct {
	CallgraphSize     int
	FreeNonHeap       int
	InvalidCalls      int
	InvalidLoads      int
	InvalidMemcpyDsts int
	InvalidMemcpySrcs int
	InvalidStores     int
	PointsToTop       int
}

// Output is the set of relations the fixpoint emits on termination, all
// canonicalized via alloc.Lookup.
type Output struct {
	Reachable       []*names.FunctionName
	OperandPointsTo []OperandFact
	AllocPointsTo   []AllocFact
	Calls           []CallEdge
	NeedsSignature  []*names.FunctionName
	Metrics         *Metrics
}
