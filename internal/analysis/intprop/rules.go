package intprop

import (
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
	"github.com/GaloisInc/yapall/internal/names"
)

// solve drains the event queue to quiescence, mirroring
// internal/analysis/pointer/rules.go's semi-naive evaluator over a smaller
// schema: there is no alloc_points_to or calls relation here, since call
// resolution is read directly from the precomputed callgraph rather than
// derived by the fixpoint itself.
func (e *engine) solve() {
	for qi := 0; qi < len(e.queue); qi++ {
		ev := e.queue[qi]
		switch ev.kind {
		case evReachable:
			e.onReachable(ev.ctx, ev.fn)
		case evOperandVal:
			e.onOperandVal(ev.ctx, ev.op)
		}
	}
}

// onReachable seeds every ctx-scoped fact that follows from a function
// running in ctx: Top for opaque/arithmetic opcodes, the initial value of
// every pass-through result from its current (possibly still-bottom)
// sources, and call resolution read from the static callgraph.
func (e *engine) onReachable(ctx klimited.Context, fn *names.FunctionName) {
	for _, instr := range e.instrsOf[fn] {
		if e.topOpcodeOps[instr.Result] {
			e.addOperandVal(ctx, instr.Result, Top())
		}
		for _, src := range e.passThru[instr.Result] {
			e.addOperandVal(ctx, instr.Result, e.valueOfOperand(ctx, src))
		}
		if call, ok := instr.Opcode.(ir.OpCall); ok {
			e.seedCallLike(ctx, instr.Name, call.Callee, call.Args, instr.Result)
		}
	}
	t := e.termOf[fn]
	if t == nil {
		return
	}
	if t.Result != nil && e.topOpcodeOps[t.Result] {
		e.addOperandVal(ctx, t.Result, Top())
	}
	if inv, ok := t.Opcode.(ir.OpInvoke); ok {
		e.seedCallLike(ctx, t.Name, inv.Callee, inv.Args, t.Result)
	}
}

// valueOfOperand resolves op's current lattice value without enqueueing
// anything: a constant integer literal evaluates to itself; any other
// constant kind (function, global, null, undef, aggregate) isn't
// int-typed and conservatively widens to Top; a local reads the engine's
// current operand_val entry (Bottom if nothing has reached it yet).
func (e *engine) valueOfOperand(ctx klimited.Context, op *ir.Operand) IntLattice {
	switch op.Kind {
	case ir.OperandConstant:
		if v, bits, ok := op.ConstantInt(); ok {
			return Constant(bits, v)
		}
		return Top()
	case ir.OperandMetadata:
		return Top()
	default:
		return e.valueOf(ctx, op)
	}
}

// seedCallLike resolves a call-like site's targets directly from the
// precomputed callgraph, keeping this analysis independent of pointer
// precision; forwards each argument's current value to the matching
// parameter of every defined-function target, pushes the callee's current
// return value (if any) back to the call result, and widens the result to
// Top for a target with no body. Idempotent per (ctx, site): onReachable fires
// at most once per (ctx, fn), but resolvedCalls guards against ever
// double-registering the derived call edges regardless.
func (e *engine) seedCallLike(ctx klimited.Context, site *names.InstructionName, callee ir.Callee, args []*ir.Operand, result *ir.Operand) {
	key := ctx.Key() + "|" + site.String()
	if e.resolvedCalls[key] {
		return
	}
	e.resolvedCalls[key] = true

	for _, target := range e.callgraph[site] {
		calleeCtx := ctx.Push(site)
		e.addReachable(calleeCtx, target)

		edge := &callEdge{callerCtx: ctx, site: site, hasOp: callee.Kind == ir.CalleeOperand, callee: target, calleeCtx: calleeCtx}
		e.callEdgesBySite[key] = append(e.callEdgesBySite[key], edge)
		ckey := calleeCtx.Key() + "|" + target.Name
		e.callEdgesByCalleeCtxFunc[ckey] = append(e.callEdgesByCalleeCtxFunc[ckey], edge)

		if !edge.hasOp {
			// Inline asm forwards nothing (see static.go indexCallLike).
			continue
		}

		if f, ok := e.mod.Functions[target]; ok {
			for i, argOp := range args {
				if i >= len(f.Parameters) {
					break
				}
				e.addOperandVal(calleeCtx, f.Parameters[i], e.valueOfOperand(ctx, argOp))
			}
			if result != nil {
				for _, retOp := range e.retOperands[target] {
					e.addOperandVal(ctx, result, e.valueOf(calleeCtx, retOp))
				}
			}
		} else if result != nil {
			e.addOperandVal(ctx, result, Top())
		}
	}
}

// onOperandVal is the reactive counterpart to the seed-time propagation in
// onReachable/seedCallLike: dispatched whenever operand_val(ctx, op, _)
// actually grows (addOperandVal only enqueues on change), it re-propagates
// the new value through every dependent pass-through result, forwards it to
// every parameter position op feeds as a call argument, and propagates a
// changed return value back to every call result awaiting it.
func (e *engine) onOperandVal(ctx klimited.Context, op *ir.Operand) {
	val := e.valueOf(ctx, op)

	for _, result := range e.passThruReverse[op] {
		e.addOperandVal(ctx, result, val)
	}

	for _, au := range e.argUses[op] {
		key := ctx.Key() + "|" + au.site.String()
		for _, edge := range e.callEdgesBySite[key] {
			if !edge.hasOp {
				continue
			}
			if f, ok := e.mod.Functions[edge.callee]; ok && au.index < len(f.Parameters) {
				e.addOperandVal(edge.calleeCtx, f.Parameters[au.index], val)
			}
		}
	}

	if fn, ok := e.retOpToFunc[op]; ok {
		key := ctx.Key() + "|" + fn.Name
		for _, edge := range e.callEdgesByCalleeCtxFunc[key] {
			if resOp := e.siteResult[edge.site]; resOp != nil {
				e.addOperandVal(edge.callerCtx, resOp, val)
			}
		}
	}
}
