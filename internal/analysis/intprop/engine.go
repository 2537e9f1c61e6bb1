package intprop

import (
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
	"github.com/GaloisInc/yapall/internal/names"
)

// callEdge is one resolved (caller ctx, site) -> (callee, callee ctx) edge,
// derived once per reachable call site from the precomputed callgraph.
type callEdge struct {
	callerCtx klimited.Context
	site      *names.InstructionName
	hasOp     bool // true when the site's callee is an Operand (not Asm) -- see static.go indexCallLike
	callee    *names.FunctionName
	calleeCtx klimited.Context
}

type eventKind int

const (
	evReachable eventKind = iota
	evOperandVal
)

type event struct {
	kind eventKind
	ctx  klimited.Context
	fn   *names.FunctionName
	op   *ir.Operand
}

// engine holds the mutable fixpoint state for one Analyze call.
type engine struct {
	mod       *ir.Module
	callgraph map[*names.InstructionName][]*names.FunctionName
	opts      Options

	ctxReg map[string]klimited.Context

	reachable map[reachKey]bool
	reachFns  map[string][]*names.FunctionName

	operandVal map[opKey]IntLattice

	// static structural indices, built once by buildStatic.
	instrsOf     map[*names.FunctionName][]*ir.Instruction
	termOf       map[*names.FunctionName]*ir.Terminator
	passThru     map[*ir.Operand][]*ir.Operand // result -> sources (Bitcast/IntToPtr/Phi/PtrToInt/Select)
	topOpcodeOps map[*ir.Operand]bool           // Alloca/GEP/ICmp/Load/Other/Store/Add/Sub results, and terminator-Other results
	siteArgs     map[*names.InstructionName][]*ir.Operand
	siteResult   map[*names.InstructionName]*ir.Operand
	siteHasOp    map[*names.InstructionName]bool
	retOperands  map[*names.FunctionName][]*ir.Operand
	retOpToFunc  map[*ir.Operand]*names.FunctionName

	// reverse indices driving the reactive rules.
	passThruReverse map[*ir.Operand][]*ir.Operand // src -> dependent results
	argUses         map[*ir.Operand][]argUse

	// dynamic call-edge indices, populated as calls resolve.
	callEdgesBySite          map[string][]*callEdge
	callEdgesByCalleeCtxFunc map[string][]*callEdge

	resolvedCalls map[string]bool // ctxKey|site.String() -> resolved at least once

	queue []event

	metrics Metrics

	staticBuilt bool
}

type argUse struct {
	site  *names.InstructionName
	index int
}

func newEngine(mod *ir.Module, callgraph map[*names.InstructionName][]*names.FunctionName, opts Options) *engine {
	return &engine{
		mod:       mod,
		callgraph: callgraph,
		opts:      opts,

		ctxReg: make(map[string]klimited.Context),

		reachable: make(map[reachKey]bool),
		reachFns:  make(map[string][]*names.FunctionName),

		operandVal: make(map[opKey]IntLattice),

		instrsOf:     make(map[*names.FunctionName][]*ir.Instruction),
		termOf:       make(map[*names.FunctionName]*ir.Terminator),
		passThru:     make(map[*ir.Operand][]*ir.Operand),
		topOpcodeOps: make(map[*ir.Operand]bool),

		siteArgs:    make(map[*names.InstructionName][]*ir.Operand),
		siteResult:  make(map[*names.InstructionName]*ir.Operand),
		siteHasOp:   make(map[*names.InstructionName]bool),
		retOperands: make(map[*names.FunctionName][]*ir.Operand),
		retOpToFunc: make(map[*ir.Operand]*names.FunctionName),

		passThruReverse: make(map[*ir.Operand][]*ir.Operand),
		argUses:         make(map[*ir.Operand][]argUse),

		callEdgesBySite:          make(map[string][]*callEdge),
		callEdgesByCalleeCtxFunc: make(map[string][]*callEdge),

		resolvedCalls: make(map[string]bool),
	}
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

// addOperandVal joins val into operand_val(ctx, op), enqueuing a follow-up
// event only when the join actually changed the stored value -- the
// termination condition for this lattice-valued relation: once every
// operand reaches Top or its final constant, the queue drains.
func (e *engine) addOperandVal(ctx klimited.Context, op *ir.Operand, val IntLattice) {
	e.ctx(ctx)
	k := opKey{ctx: ctx.Key(), op: op}
	cur := e.operandVal[k]
	joined := cur.Join(val)
	if joined.Equal(cur) {
		return
	}
	e.operandVal[k] = joined
	e.queue = append(e.queue, event{kind: evOperandVal, ctx: ctx, op: op})
}

func (e *engine) valueOf(ctx klimited.Context, op *ir.Operand) IntLattice {
	v, ok := e.operandVal[opKey{ctx: ctx.Key(), op: op}]
	if !ok {
		return Bottom()
	}
	return v
}
