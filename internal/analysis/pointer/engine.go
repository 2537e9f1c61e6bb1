package pointer

import (
	"github.com/GaloisInc/yapall/internal/alloc"
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
	"github.com/GaloisInc/yapall/internal/names"
	"github.com/GaloisInc/yapall/internal/signature"
)

// opKey and reachKey give comparable map keys for (context, ...) pairs;
// klimited.Context itself holds a slice and so cannot be a map key
// directly, see klimited.Context.Key.
type opKey struct {
	ctx string
	op  *ir.Operand
}

type reachKey struct {
	ctx string
	fn  *names.FunctionName
}

type callKey struct {
	ctx       string
	site      *names.InstructionName
	callee    *names.FunctionName
	calleeCtx string
}

// engine holds all mutable fixpoint state. It is used single-threaded: the
// worklist loop in solve drains strictly one event at a time, a semi-naive
// evaluation -- every relation insertion enqueues an event, and every event
// is dispatched to exactly the rule bodies whose premises it can newly
// satisfy, joined against the current total state of the other premises.
// The fixpoint is order-agnostic, so the single-threaded drain computes the
// same final relations a parallel worklist would.
type engine struct {
	mod  *ir.Module
	sigs *signature.Signatures
	opts Options

	allocs *alloc.Table
	ctxReg map[string]klimited.Context

	reachable map[reachKey]bool
	reachFns  map[string][]*names.FunctionName // by ctx key, for output ordering

	operandPT   map[opKey]map[*alloc.Alloc]bool
	operandList map[opKey][]*alloc.Alloc // insertion order, mirrors operandPT

	allocPT   map[*alloc.Alloc]map[*alloc.Alloc]bool
	allocList map[*alloc.Alloc][]*alloc.Alloc

	calls     map[callKey]bool
	callsList []CallEdge

	needsSig map[*names.FunctionName]bool

	// reverse indices, built once from static IR structure.
	loadsByPointer  map[*ir.Operand][]*ir.Instruction
	storesByPointer map[*ir.Operand][]*ir.Instruction
	storesByValue   map[*ir.Operand][]*ir.Instruction
	passThruReverse map[*ir.Operand][]*ir.Operand // src operand -> dependent result operands

	// memcpy pairs are static (ctx-independent): a dst operand may be
	// copied into from several src operands and vice versa, accumulated
	// from direct memcpy-family calls and ArgMemcpyArg signature effects.
	memcpyDstToSrc map[*ir.Operand][]*ir.Operand
	memcpySrcToDst map[*ir.Operand][]*ir.Operand

	// reverse index: alloc -> (ctx,operand) pairs currently known to point
	// to it, needed so that a newly derived alloc_points_to(p, a) edge can
	// find every load/store/memcpy participant already pointing at p.
	pointedBy map[*alloc.Alloc]map[opKey]bool

	constantCache map[*ir.Constant][]*alloc.Alloc

	queue []event

	metrics Metrics

	implicitGlobalAllocs map[string]*alloc.Alloc

	// argUse records that operand is passed as the index-th argument at
	// site -- populated once structurally, consumed by the reactive
	// argument-forwarding rule.
	argUses map[*ir.Operand][]argUse

	// retOperands lists every Ret-terminator operand belonging to fn;
	// retOpToFunction is its inverse, used to recognize a return-value
	// event regardless of which function it came from.
	retOperands     map[*names.FunctionName][]*ir.Operand
	retOpToFunction map[*ir.Operand]*names.FunctionName

	// per-call-site structural lookups, built once.
	siteResultOperand map[*names.InstructionName]*ir.Operand
	siteArgs          map[*names.InstructionName][]*ir.Operand
	siteCallee        map[*names.InstructionName]ir.Callee
	sitesByFunction   map[*names.FunctionName][]*names.InstructionName

	// calleeOperandToSites is the reverse of siteCallee for CalleeOperand
	// sites only -- the trigger index for the call-resolution rule.
	calleeOperandToSites map[*ir.Operand][]*names.InstructionName

	// dynamic call-edge indices, populated as calls resolve, consumed by
	// the argument-forwarding and return-propagation rules.
	callEdgesBySite          map[string][]*CallEdge // ctxKey|site.String()
	callEdgesByCalleeCtxFunc map[string][]*CallEdge // calleeCtxKey|callee.Name

	nameToGlobal map[string]*names.GlobalName

	// constPassThru lists every (result, constant) pair produced by a
	// unary pass-through instruction whose source is a constant (see
	// static.go registerConstPassThru); seeded once per reaching context.
	constPassThru []constPassThruEntry

	// siteReturnAliasesArg records, per call site, the argument indices a
	// matched ReturnAliasesArg signature effect names -- consulted reactively
	// when that argument's points-to set grows after the call resolved.
	siteReturnAliasesArg map[*names.InstructionName][]int

	staticBuilt bool
}

type argUse struct {
	site  *names.InstructionName
	index int
}

type eventKind int

const (
	evReachable eventKind = iota
	evOperandPT
	evAllocPT
	evCall
)

type event struct {
	kind eventKind
	ctx  klimited.Context
	fn   *names.FunctionName
	op   *ir.Operand
	a, b *alloc.Alloc
	site *names.InstructionName
	callee *names.FunctionName
	calleeCtx klimited.Context
}

func newEngine(mod *ir.Module, sigs *signature.Signatures, opts Options) *engine {
	e := &engine{
		mod:         mod,
		sigs:        sigs,
		opts:        opts,
		allocs:      alloc.NewTable(),
		ctxReg:      make(map[string]klimited.Context),
		reachable:   make(map[reachKey]bool),
		reachFns:    make(map[string][]*names.FunctionName),
		operandPT:   make(map[opKey]map[*alloc.Alloc]bool),
		operandList: make(map[opKey][]*alloc.Alloc),
		allocPT:     make(map[*alloc.Alloc]map[*alloc.Alloc]bool),
		allocList:   make(map[*alloc.Alloc][]*alloc.Alloc),
		calls:       make(map[callKey]bool),
		needsSig:    make(map[*names.FunctionName]bool),

		loadsByPointer:  make(map[*ir.Operand][]*ir.Instruction),
		storesByPointer: make(map[*ir.Operand][]*ir.Instruction),
		storesByValue:   make(map[*ir.Operand][]*ir.Instruction),
		passThruReverse: make(map[*ir.Operand][]*ir.Operand),

		memcpyDstToSrc: make(map[*ir.Operand][]*ir.Operand),
		memcpySrcToDst: make(map[*ir.Operand][]*ir.Operand),

		pointedBy: make(map[*alloc.Alloc]map[opKey]bool),

		constantCache: make(map[*ir.Constant][]*alloc.Alloc),

		implicitGlobalAllocs: make(map[string]*alloc.Alloc),

		argUses:         make(map[*ir.Operand][]argUse),
		retOperands:     make(map[*names.FunctionName][]*ir.Operand),
		retOpToFunction: make(map[*ir.Operand]*names.FunctionName),

		siteResultOperand: make(map[*names.InstructionName]*ir.Operand),
		siteArgs:          make(map[*names.InstructionName][]*ir.Operand),
		siteCallee:        make(map[*names.InstructionName]ir.Callee),
		sitesByFunction:   make(map[*names.FunctionName][]*names.InstructionName),

		calleeOperandToSites: make(map[*ir.Operand][]*names.InstructionName),

		callEdgesBySite:          make(map[string][]*CallEdge),
		callEdgesByCalleeCtxFunc: make(map[string][]*CallEdge),

		nameToGlobal: make(map[string]*names.GlobalName),

		siteReturnAliasesArg: make(map[*names.InstructionName][]int),
	}
	// Top self-closes unconditionally: alloc_points_to(Top, Top).
	e.addAllocPT(e.allocs.Top(), e.allocs.Top())
	return e
}

func (e *engine) ctx(c klimited.Context) klimited.Context {
	e.ctxReg[c.Key()] = c
	return c
}

func (e *engine) addReachable(ctx klimited.Context, fn *names.FunctionName) {
	e.ctx(ctx)
	k := reachKey{ctx: ctx.Key(), fn: fn}
	if e.reachable[k] {
		return
	}
	e.reachable[k] = true
	e.reachFns[ctx.Key()] = append(e.reachFns[ctx.Key()], fn)
	e.queue = append(e.queue, event{kind: evReachable, ctx: ctx, fn: fn})
}

func (e *engine) isReachable(ctx klimited.Context, fn *names.FunctionName) bool {
	return e.reachable[reachKey{ctx: ctx.Key(), fn: fn}]
}

// addOperandPT inserts operand_points_to(ctx, op, a), canonicalizing a via
// alloc.Lookup first -- every rule MUST do this before emitting a fact so
// the relation stays keyed by class representatives.
func (e *engine) addOperandPT(ctx klimited.Context, op *ir.Operand, a *alloc.Alloc) {
	a = alloc.Lookup(a)
	e.ctx(ctx)
	k := opKey{ctx: ctx.Key(), op: op}
	set, ok := e.operandPT[k]
	if !ok {
		set = make(map[*alloc.Alloc]bool)
		e.operandPT[k] = set
	}
	if set[a] {
		return
	}
	set[a] = true
	e.operandList[k] = append(e.operandList[k], a)
	if e.pointedBy[a] == nil {
		e.pointedBy[a] = make(map[opKey]bool)
	}
	e.pointedBy[a][k] = true
	e.queue = append(e.queue, event{kind: evOperandPT, ctx: ctx, op: op, a: a})

	if e.opts.Unification {
		e.unifyAgainst(ctx, op, a)
	}
}

func (e *engine) operandPointsTo(ctx klimited.Context, op *ir.Operand) []*alloc.Alloc {
	return e.operandList[opKey{ctx: ctx.Key(), op: op}]
}

// addAllocPT inserts alloc_points_to(from, to), canonicalizing both
// endpoints.
func (e *engine) addAllocPT(from, to *alloc.Alloc) {
	from = alloc.Lookup(from)
	to = alloc.Lookup(to)
	set, ok := e.allocPT[from]
	if !ok {
		set = make(map[*alloc.Alloc]bool)
		e.allocPT[from] = set
	}
	if set[to] {
		return
	}
	set[to] = true
	e.allocList[from] = append(e.allocList[from], to)
	e.queue = append(e.queue, event{kind: evAllocPT, a: from, b: to})
}

func (e *engine) allocPointsTo(a *alloc.Alloc) []*alloc.Alloc {
	return e.allocList[alloc.Lookup(a)]
}

func (e *engine) addCall(ctx klimited.Context, site *names.InstructionName, callee *names.FunctionName, calleeCtx klimited.Context) {
	e.ctx(ctx)
	e.ctx(calleeCtx)
	k := callKey{ctx: ctx.Key(), site: site, callee: callee, calleeCtx: calleeCtx.Key()}
	if e.calls[k] {
		return
	}
	e.calls[k] = true
	e.callsList = append(e.callsList, CallEdge{Ctx: ctx, Site: site, Callee: callee, CalleeCtx: calleeCtx})
	e.queue = append(e.queue, event{kind: evCall, ctx: ctx, site: site, callee: callee, calleeCtx: calleeCtx})
	e.addReachable(calleeCtx, callee)
}

// unifyAgainst merges a against every allocation already known to be
// pointed to by (ctx, op), the unification-mode trigger condition: two
// allocations co-occurring in the same operand's points-to set under the
// same context. Re-propagates both directions' successors so the merged
// class sees the union of what either side pointed to.
func (e *engine) unifyAgainst(ctx klimited.Context, op *ir.Operand, a *alloc.Alloc) {
	k := opKey{ctx: ctx.Key(), op: op}
	existing := append([]*alloc.Alloc{}, e.operandList[k]...)
	for _, b := range existing {
		if b == a {
			continue
		}
		// Capture both classes' successor lists and representatives before
		// the merge: afterwards both lookups resolve to the surviving root,
		// and the absorbed class's own edges and reverse-index entries would
		// be invisible.
		ra, rb := alloc.Lookup(a), alloc.Lookup(b)
		if ra == rb {
			continue
		}
		succs := append([]*alloc.Alloc{}, e.allocList[ra]...)
		succs = append(succs, e.allocList[rb]...)
		if !alloc.Merge(a, b) {
			continue
		}
		root := alloc.Lookup(a)
		child := ra
		if child == root {
			child = rb
		}
		if len(e.pointedBy[child]) > 0 {
			if e.pointedBy[root] == nil {
				e.pointedBy[root] = make(map[opKey]bool)
			}
			for kk := range e.pointedBy[child] {
				e.pointedBy[root][kk] = true
			}
		}
		// Re-run edge propagation over the merged class so every operand
		// that pointed at either side sees the union of successors.
		for _, succ := range succs {
			e.addAllocPT(root, succ)
			e.onAllocPT(root, alloc.Lookup(succ))
		}
	}
}

// registerMemcpyPair records that dst is copied-into from src: populates
// both directions of the static memcpy index so either operand's points-to
// growth can trigger the propagation rule (see rules.go).
func (e *engine) registerMemcpyPair(dst, src *ir.Operand) {
	e.memcpyDstToSrc[dst] = appendUniqueOperand(e.memcpyDstToSrc[dst], src)
	e.memcpySrcToDst[src] = appendUniqueOperand(e.memcpySrcToDst[src], dst)
}

func appendUniqueOperand(s []*ir.Operand, v *ir.Operand) []*ir.Operand {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}
