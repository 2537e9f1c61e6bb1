// Package pointer implements the inclusion-based, context-sensitive
// points-to fixpoint engine. Analyze is the sole exported entrypoint: a
// pure function of (Module, Signatures, Options) to Output.
package pointer

import (
	"sort"

	"github.com/GaloisInc/yapall/internal/alloc"
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
	"github.com/GaloisInc/yapall/internal/names"
	"github.com/GaloisInc/yapall/internal/signature"
)

// mainNames returns every entry-point function to seed reachability from:
// each function named exactly "main" or matching the coarse `4main`
// mangled-name convention (names.FunctionName.IsMain). A module can carry
// several -- multiple binaries linked together, or several mangled matches
// -- and reachability is seeded from all of them. Sorted by name so seeding
// order never depends on map iteration. Empty when the module has none, in
// which case every derived relation stays empty.
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

// Analyze runs the fixpoint to quiescence and returns the derived
// relations. sigs may be signature.Empty() when no signature file was
// supplied -- every external call then either matches the built-in
// allowlist or is reported via NeedsSignature.
func Analyze(mod *ir.Module, sigs *signature.Signatures, opts Options) *Output {
	if sigs == nil {
		sigs = signature.Empty()
	}
	e := newEngine(mod, sigs, opts)
	e.buildStatic()

	for _, fn := range mainNames(mod) {
		e.addReachable(klimited.Empty(opts.Contexts), fn)
	}
	e.solve()

	e.computeNeedsSignature()

	if opts.CheckAssertions {
		e.checkAssertions(opts.CheckStrict)
	}

	return e.output()
}

// output builds the canonicalized Output snapshot. Canonicalization happens
// here rather than only at insertion time because a union-find merge
// discovered late in the fixpoint can change an allocation's representative
// after earlier facts were already recorded against the old one;
// re-applying alloc.Lookup over every recorded fact at the end guarantees
// every emitted tuple carries a canonical representative regardless of when
// it was derived.
func (e *engine) output() *Output {
	out := &Output{}

	seenFn := make(map[*names.FunctionName]bool)
	for _, fns := range e.reachFns {
		for _, fn := range fns {
			if !seenFn[fn] {
				seenFn[fn] = true
				out.Reachable = append(out.Reachable, fn)
			}
		}
	}

	seenOp := make(map[opKey]map[*alloc.Alloc]bool)
	for k, set := range e.operandPT {
		ctx := e.ctxReg[k.ctx]
		for a := range set {
			canon := alloc.Lookup(a)
			if seenOp[k] == nil {
				seenOp[k] = make(map[*alloc.Alloc]bool)
			}
			if seenOp[k][canon] {
				continue
			}
			seenOp[k][canon] = true
			out.OperandPointsTo = append(out.OperandPointsTo, OperandFact{Ctx: ctx, Op: k.op, Alloc: canon})
		}
	}

	seenAP := make(map[*alloc.Alloc]map[*alloc.Alloc]bool)
	for from, set := range e.allocPT {
		cf := alloc.Lookup(from)
		for to := range set {
			ct := alloc.Lookup(to)
			if seenAP[cf] == nil {
				seenAP[cf] = make(map[*alloc.Alloc]bool)
			}
			if seenAP[cf][ct] {
				continue
			}
			seenAP[cf][ct] = true
			out.AllocPointsTo = append(out.AllocPointsTo, AllocFact{From: cf, To: ct})
		}
	}

	out.Calls = append(out.Calls, e.callsList...)

	for fn := range e.needsSig {
		out.NeedsSignature = append(out.NeedsSignature, fn)
	}

	if e.opts.Metrics {
		e.metrics.CallgraphSize = len(e.callsList)
		top := e.allocs.Top()
		for _, targets := range seenOp {
			if targets[top] {
				e.metrics.PointsToTop++
			}
		}
		m := e.metrics
		out.Metrics = &m
	}

	return out
}
