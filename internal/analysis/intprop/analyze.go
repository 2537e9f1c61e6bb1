package intprop

import (
	"sort"

	"github.com/GaloisInc/yapall/internal/analysis/callgraph"
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
	"github.com/GaloisInc/yapall/internal/names"
)

// mainNames mirrors internal/analysis/pointer's entry-point heuristic:
// every function named exactly "main" or matching the coarse `4main`
// mangled-name convention, sorted by name so seeding order never depends
// on map iteration. Duplicated rather than exported from one package and
// imported by the other, since each analysis is a pure function of its own
// inputs and the two packages otherwise share no runtime state.
func mainNames(mod *ir.Module) []*names.FunctionName {
	var mains []*names.FunctionName
	for fn := range mod.Functions {
		if fn.IsMain() {
			mains = append(mains, fn)
		}
	}
	sort.Slice(mains, func(i, j int) bool { return mains[i].Name < mains[j].Name })
	return mains
}

// Analyze runs the integer constant-propagation fixpoint to quiescence. cg
// is the precomputed over-approximate callgraph
// (internal/analysis/callgraph.Analysis); passing nil computes it from mod,
// but callers that already have one (e.g. a CLI driving both analyses over
// the same module) should share it -- this analysis never derives a
// callgraph from points-to precision.
func Analyze(mod *ir.Module, cg map[*names.InstructionName][]*names.FunctionName, opts Options) *Output {
	if cg == nil {
		cg = callgraph.Analysis(mod)
	}
	e := newEngine(mod, cg, opts)
	e.buildStatic()

	for _, fn := range mainNames(mod) {
		e.addReachable(klimited.Empty(opts.Contexts), fn)
	}
	e.solve()

	return e.output()
}

// output builds the Output snapshot and, when requested, the Tops metric:
// this analysis's sole precision count, the number of (ctx, operand) facts
// that ended up at the top of the lattice.
func (e *engine) output() *Output {
	out := &Output{}
	for k, v := range e.operandVal {
		ctx := e.ctxReg[k.ctx]
		out.OperandVal = append(out.OperandVal, OperandValueFact{Ctx: ctx, Op: k.op, Value: v})
		if v.IsTop() {
			e.metrics.Tops++
		}
	}
	if e.opts.Metrics {
		m := e.metrics
		out.Metrics = &m
	}
	return out
}
