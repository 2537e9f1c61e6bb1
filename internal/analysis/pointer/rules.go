package pointer

import (
	"github.com/GaloisInc/yapall/internal/alloc"
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
	"github.com/GaloisInc/yapall/internal/names"
	"github.com/GaloisInc/yapall/internal/signature"
)

// solve drains the event queue to quiescence. This is a semi-naive
// Datalog-style evaluator: every relation insertion above appended
// one event; every event here is dispatched to exactly the rule bodies
// whose premises it can newly satisfy, joined against the engine's current
// total state for the other premises. The queue grows while it drains (rule
// bodies call addOperandPT/addAllocPT/addCall, which enqueue further
// events); ranging by index rather than popping keeps this O(1) amortized
// per event without reslicing.
func (e *engine) solve() {
	for qi := 0; qi < len(e.queue); qi++ {
		ev := e.queue[qi]
		switch ev.kind {
		case evReachable:
			e.onReachable(ev.ctx, ev.fn)
		case evOperandPT:
			e.onOperandPT(ev.ctx, ev.op, ev.a)
		case evAllocPT:
			e.onAllocPT(ev.a, ev.b)
		case evCall:
			e.onCall(ev.ctx, ev.site, ev.callee, ev.calleeCtx)
		}
	}
}

// onReachable seeds every ctx-scoped fact that follows purely from a
// function running in ctx, with no precondition on any other operand's
// points-to set growing first: allocas, heap-allocating calls,
// constant-sourced pass-through, call resolution for direct/constant
// callees, argv, and external-call default widening.
func (e *engine) onReachable(ctx klimited.Context, fn *names.FunctionName) {
	if fn.IsMain() && len(ctx.Sites()) == 0 {
		e.seedArgv(ctx, fn)
	}
	f, ok := e.mod.Functions[fn]
	if !ok {
		return
	}
	// Constant operands first: a constant's points-to set is static, so
	// every use of one in this function materializes as operand facts the
	// moment ctx reaches it. Loads/stores/args/returns through a constant
	// operand then flow through the same reactive rules locals use.
	for _, blk := range f.Blocks {
		for _, instr := range blk.Instructions {
			e.seedConstantOperands(ctx, instr.Opcode.Operands())
		}
		e.seedConstantOperands(ctx, blk.Terminator.Opcode.Operands())
	}
	for _, blk := range f.Blocks {
		for _, instr := range blk.Instructions {
			e.seedInstruction(ctx, instr)
		}
		e.seedTerminator(ctx, blk.Terminator)
	}
}

func (e *engine) seedConstantOperands(ctx klimited.Context, ops []*ir.Operand) {
	for _, op := range ops {
		if op == nil || op.Kind != ir.OperandConstant {
			continue
		}
		for _, a := range e.ConstantPointsTo(op.Constant) {
			e.addOperandPT(ctx, op, a)
		}
	}
}

func (e *engine) seedArgv(ctx klimited.Context, fn *names.FunctionName) {
	f := e.mod.Functions[fn]
	if f == nil || len(f.Parameters) < 2 {
		return
	}
	argv := e.implicitGlobalReferent("argv")
	argvElem := e.implicitGlobalReferent("argv[*]")
	e.addOperandPT(ctx, f.Parameters[1], argv)
	e.addAllocPT(argv, argvElem)
}

func (e *engine) seedInstruction(ctx klimited.Context, instr *ir.Instruction) {
	switch op := instr.Opcode.(type) {
	case ir.OpAlloca:
		e.addOperandPT(ctx, instr.Result, e.allocs.Stack(instr.Name))
	case ir.OpCall:
		e.seedCallLike(ctx, instr.Name, op.Callee, op.Args)
		if name, ok := directCalleeName(calleeAsOperand(op.Callee)); ok && isHeapAllocator(name) {
			size := heapSizeFor(name, op.Args)
			e.addOperandPT(ctx, instr.Result, e.allocs.Heap(instr.Name, size))
		}
	}
	e.seedConstPassThruFor(ctx, instr.Result)
}

func (e *engine) seedTerminator(ctx klimited.Context, t *ir.Terminator) {
	if inv, ok := t.Opcode.(ir.OpInvoke); ok {
		e.seedCallLike(ctx, t.Name, inv.Callee, inv.Args)
	}
}

// seedConstPassThruFor applies every registered constant-sourced
// pass-through fact whose result is op, for this ctx. Linear in
// len(constPassThru); fine at the module sizes this engine targets, and
// avoids a second reverse index for what is normally a small list.
func (e *engine) seedConstPassThruFor(ctx klimited.Context, op *ir.Operand) {
	for _, ent := range e.constPassThru {
		if ent.result != op {
			continue
		}
		for _, a := range e.ConstantPointsTo(ent.constant) {
			e.addOperandPT(ctx, op, a)
		}
	}
}

func calleeAsOperand(c ir.Callee) *ir.Operand {
	if c.Kind == ir.CalleeOperand {
		return c.Operand
	}
	return nil
}

// seedCallLike resolves everything about a call site that doesn't depend on
// a future points-to fact: inline asm and Top-widened indirect calls
// widen to every arity-compatible function immediately;
// direct and constant-expression callees resolve via ConstantPointsTo
// immediately; only a genuinely indirect (local-operand) callee waits on
// onOperandPT/calleeOperandToSites.
func (e *engine) seedCallLike(ctx klimited.Context, site *names.InstructionName, callee ir.Callee, args []*ir.Operand) {
	if callee.Kind == ir.CalleeAsm {
		e.widenCallToAllFunctions(ctx, site, len(args))
		return
	}
	op := callee.Operand
	if op.Kind != ir.OperandConstant {
		return
	}
	for _, a := range e.ConstantPointsTo(op.Constant) {
		e.resolveCall(ctx, site, a)
	}
}

func (e *engine) widenCallToAllFunctions(ctx klimited.Context, site *names.InstructionName, argc int) {
	for _, fn := range e.mod.AllFunctionNames() {
		if e.mod.ParamCount(fn) <= argc {
			e.addCall(ctx, site, fn, ctx.Push(site))
		}
	}
}

// resolveCall is the reactive half of call resolution: applied once per
// (ctx, site, candidate allocation), whether the candidate arrived at seed
// time (direct/constant callee) or later via onOperandPT (indirect callee).
func (e *engine) resolveCall(ctx klimited.Context, site *names.InstructionName, a *alloc.Alloc) {
	switch a.Kind {
	case alloc.Function:
		e.addCall(ctx, site, a.FunctionName, ctx.Push(site))
	case alloc.Top:
		e.widenCallToAllFunctions(ctx, site, len(e.siteArgs[site]))
	default:
		e.metrics.InvalidCalls++
	}
}

// onOperandPT is the reactive rule dispatched when operand_points_to(ctx,
// op, a) is newly derived. It covers every rule whose trigger is "an
// operand's points-to set grew": indirect call resolution, load/store/
// memcpy through op as pointer or value, multi-operand pass-through
// (Add/Phi/Select/Sub), argument forwarding to a resolved callee, and
// ReturnAliasesArg.
func (e *engine) onOperandPT(ctx klimited.Context, op *ir.Operand, a *alloc.Alloc) {
	for _, site := range e.calleeOperandToSites[op] {
		e.resolveCall(ctx, site, a)
	}

	if len(e.loadsByPointer[op]) > 0 {
		if a.Loadable() {
			for _, ld := range e.loadsByPointer[op] {
				for _, v := range e.allocPointsTo(a) {
					e.addOperandPT(ctx, ld.Result, v)
				}
			}
		} else {
			e.metrics.InvalidLoads += len(e.loadsByPointer[op])
		}
	}

	if len(e.storesByPointer[op]) > 0 {
		if a.Storable() {
			for _, st := range e.storesByPointer[op] {
				valOp := st.Opcode.(ir.OpStore).Value
				for _, v := range e.operandPointsTo(ctx, valOp) {
					e.addAllocPT(a, v)
				}
			}
		} else {
			e.metrics.InvalidStores += len(e.storesByPointer[op])
		}
	}

	for _, st := range e.storesByValue[op] {
		ptrOp := st.Opcode.(ir.OpStore).Pointer
		for _, p := range e.operandPointsTo(ctx, ptrOp) {
			if p.Storable() {
				e.addAllocPT(p, a)
			}
		}
	}

	if a.Loadable() {
		for _, dstOp := range e.memcpySrcToDst[op] {
			for _, dstAlloc := range e.operandPointsTo(ctx, dstOp) {
				if !dstAlloc.Storable() {
					e.metrics.InvalidMemcpyDsts++
					continue
				}
				for _, v := range e.allocPointsTo(a) {
					e.addAllocPT(dstAlloc, v)
				}
			}
		}
	}
	if a.Storable() {
		for _, srcOp := range e.memcpyDstToSrc[op] {
			for _, srcAlloc := range e.operandPointsTo(ctx, srcOp) {
				if !srcAlloc.Loadable() {
					e.metrics.InvalidMemcpySrcs++
					continue
				}
				for _, v := range e.allocPointsTo(srcAlloc) {
					e.addAllocPT(a, v)
				}
			}
		}
	}

	for _, result := range e.passThruReverse[op] {
		e.addOperandPT(ctx, result, a)
	}

	for _, au := range e.argUses[op] {
		key := ctx.Key() + "|" + au.site.String()
		for _, edge := range e.callEdgesBySite[key] {
			if f, ok := e.mod.Functions[edge.Callee]; ok && au.index < len(f.Parameters) {
				e.addOperandPT(edge.CalleeCtx, f.Parameters[au.index], a)
			}
		}
		if indices, ok := e.siteReturnAliasesArg[au.site]; ok {
			for _, idx := range indices {
				if idx == au.index {
					if resOp := e.siteResultOperand[au.site]; resOp != nil {
						e.addOperandPT(ctx, resOp, a)
					}
				}
			}
		}
	}

	if fn, ok := e.retOpToFunction[op]; ok {
		key := ctx.Key() + "|" + fn.Name
		for _, edge := range e.callEdgesByCalleeCtxFunc[key] {
			if resOp := e.siteResultOperand[edge.Site]; resOp != nil {
				e.addOperandPT(edge.Ctx, resOp, a)
			}
		}
	}
}

// onAllocPT is dispatched when alloc_points_to(from, to) is newly derived.
// It re-examines every (ctx, op) known to already point to from (pointedBy)
// and re-applies load and memcpy-src propagation with the new pointee --
// the counterpart to the load/memcpy handling in onOperandPT, which only
// sees alloc_points_to edges that already existed at the time op's
// points-to set grew.
func (e *engine) onAllocPT(from, to *alloc.Alloc) {
	for k := range e.pointedBy[from] {
		ctx := e.ctxReg[k.ctx]
		if from.Loadable() {
			for _, ld := range e.loadsByPointer[k.op] {
				e.addOperandPT(ctx, ld.Result, to)
			}
			for _, dstOp := range e.memcpySrcToDst[k.op] {
				for _, dstAlloc := range e.operandPointsTo(ctx, dstOp) {
					if dstAlloc.Storable() {
						e.addAllocPT(dstAlloc, to)
					}
				}
			}
		}
	}
}

// onCall fires once per newly resolved call edge: argument forwarding and
// return-value propagation for a callee with a body, or signature-effect
// application (falling back to Top for an unsignatured pointer-returning
// external) for a callee that is only declared.
func (e *engine) onCall(ctx klimited.Context, site *names.InstructionName, callee *names.FunctionName, calleeCtx klimited.Context) {
	key := ctx.Key() + "|" + site.String()
	edge := CallEdge{Ctx: ctx, Site: site, Callee: callee, CalleeCtx: calleeCtx}
	e.callEdgesBySite[key] = append(e.callEdgesBySite[key], &edge)
	ckey := calleeCtx.Key() + "|" + callee.Name
	e.callEdgesByCalleeCtxFunc[ckey] = append(e.callEdgesByCalleeCtxFunc[ckey], &edge)

	if f, ok := e.mod.Functions[callee]; ok {
		args := e.siteArgs[site]
		for i, argOp := range args {
			if i >= len(f.Parameters) {
				break
			}
			for _, a := range e.operandPointsTo(ctx, argOp) {
				e.addOperandPT(calleeCtx, f.Parameters[i], a)
			}
		}
		resOp := e.siteResultOperand[site]
		if resOp != nil {
			for _, retOp := range e.retOperands[callee] {
				for _, a := range e.operandPointsTo(calleeCtx, retOp) {
					e.addOperandPT(ctx, resOp, a)
				}
			}
		}
		return
	}

	if isMemcpyName(callee.Name) {
		return
	}
	if isFreeName(callee.Name) {
		e.checkFree(ctx, site)
		return
	}
	if isHeapAllocator(callee.Name) || knownExternals[callee.Name] {
		// Heap allocators were seeded at reach time (seedInstruction); the
		// rest of the allowlist (assertions, strtol family) has no pointer
		// effects to model. Neither falls through to the unknown-external
		// Top widening.
		return
	}
	e.applyExternalCall(ctx, site, callee)
}

// applyExternalCall models a call to a function with no body: either the
// matched signature's effects, or, absent a signature, Top for a
// pointer-returning declaration.
func (e *engine) applyExternalCall(ctx klimited.Context, site *names.InstructionName, callee *names.FunctionName) {
	resOp := e.siteResultOperand[site]
	effects, matched := e.sigs.For(callee.Name)
	if !matched {
		decl, ok := e.mod.Decls[callee]
		if ok && decl.ReturnType.IsPointer() && resOp != nil {
			e.addOperandPT(ctx, resOp, e.allocs.Top())
		}
		return
	}
	args := e.siteArgs[site]
	for _, eff := range effects {
		switch eff.Kind {
		case signature.ReturnAlloc:
			if resOp == nil {
				continue
			}
			var a *alloc.Alloc
			switch eff.AllocType {
			case alloc.Heap:
				a = e.allocs.Heap(site, nil)
			case alloc.Stack:
				a = e.allocs.Stack(site)
			default:
				a = e.allocs.Top()
			}
			e.addOperandPT(ctx, resOp, a)
		case signature.ReturnAliasesArg:
			e.siteReturnAliasesArg[site] = appendUniqueInt(e.siteReturnAliasesArg[site], eff.Arg)
			if resOp != nil && eff.Arg < len(args) {
				for _, a := range e.operandPointsTo(ctx, args[eff.Arg]) {
					e.addOperandPT(ctx, resOp, a)
				}
			}
		case signature.ReturnPointsToGlobal:
			if resOp == nil {
				continue
			}
			e.addOperandPT(ctx, resOp, e.allocs.Global(e.globalByName(eff.Global), false, nil))
		case signature.ArgMemcpyArg:
			if eff.Dst < len(args) && eff.Src < len(args) {
				e.registerMemcpyPair(args[eff.Dst], args[eff.Src])
				for _, srcAlloc := range e.operandPointsTo(ctx, args[eff.Src]) {
					if !srcAlloc.Loadable() {
						continue
					}
					for _, dstAlloc := range e.operandPointsTo(ctx, args[eff.Dst]) {
						if !dstAlloc.Storable() {
							continue
						}
						for _, v := range e.allocPointsTo(srcAlloc) {
							e.addAllocPT(dstAlloc, v)
						}
					}
				}
			}
		case signature.CallsArg:
			// Reserved tag; no rule consumes it yet.
		}
	}
}

// checkFree tallies the free_non_heap metric for a direct call to a
// free-family function: freeing anything but Heap or the conservative Top
// sink is undefined behavior in the analyzed program, not an analysis
// error, so it is counted rather than rejected.
func (e *engine) checkFree(ctx klimited.Context, site *names.InstructionName) {
	args := e.siteArgs[site]
	if len(args) == 0 {
		return
	}
	for _, a := range e.operandPointsTo(ctx, args[0]) {
		if !a.Freeable() {
			e.metrics.FreeNonHeap++
		}
	}
}

// globalByName returns the interned GlobalName for name, fabricating one
// (with no backing ir.Global) if the module never declared it -- a
// ReturnPointsToGlobal signature is free to name a global the analyzed
// module doesn't itself reference.
func (e *engine) globalByName(name string) *names.GlobalName {
	if g, ok := e.nameToGlobal[name]; ok {
		return g
	}
	g := &names.GlobalName{Name: name}
	e.nameToGlobal[name] = g
	return g
}

func appendUniqueInt(s []int, v int) []int {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}
