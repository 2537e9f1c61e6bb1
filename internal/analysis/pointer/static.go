package pointer

import (
	"github.com/GaloisInc/yapall/internal/alloc"
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/names"
)

// buildStatic populates every structural index the reactive rules in rules.go
// consume. These indices are ctx-independent: they describe the shape of the
// IR itself (which instruction loads through which operand, which operand
// feeds which call argument), not anything the fixpoint derives. Built once,
// up front, from the Module -- which stays read-only during solving -- and
// this is the only pass over it that needs to see every instruction
// regardless of reachability.
func (e *engine) buildStatic() {
	if e.staticBuilt {
		return
	}
	e.staticBuilt = true

	for gn, g := range e.mod.Globals {
		e.nameToGlobal[gn.Name] = gn
		_ = g
	}
	e.seedGlobalInitializers()
	e.seedImplicitGlobals()

	for _, f := range e.mod.Functions {
		for _, blk := range f.Blocks {
			for _, instr := range blk.Instructions {
				e.indexInstruction(instr)
			}
			e.indexTerminator(blk.Terminator)
		}
	}
}

// seedGlobalInitializers unrolls every global's initializer, adding
// alloc_points_to(Global(g), a) for each pointer sub-constant the
// initializer contains. This is alloc-level state, so it is computed once
// regardless of reachability.
func (e *engine) seedGlobalInitializers() {
	for gn, g := range e.mod.Globals {
		if g.Initializer == nil {
			continue
		}
		from := e.allocs.Global(gn, g.IsConst, g.Size())
		for _, a := range e.ConstantPointsTo(g.Initializer) {
			e.addAllocPT(from, a)
		}
	}
}

// seedImplicitGlobals fabricates the auxiliary referent allocation for the
// distinguished external globals stdin/stdout/stderr/optarg/__ctype_b_loc
// whenever the
// module declares but does not define them, and unconditionally wires the
// two-level __ctype_b_loc indirection a ReturnPointsToGlobal signature for
// that function relies on.
func (e *engine) seedImplicitGlobals() {
	for gn, g := range e.mod.Globals {
		if g.Initializer != nil {
			continue
		}
		if !implicitGlobals[gn.Name] {
			continue
		}
		from := e.allocs.Global(gn, g.IsConst, g.Size())
		e.addAllocPT(from, e.implicitGlobalReferent(gn.Name))
	}
	// __ctype_b_loc_alloc -> __ctype_b_loc_alloc_alloc holds unconditionally:
	// a signature file modeling __ctype_b_loc's return value as
	// return-points-to-global: "__ctype_b_loc_alloc" relies on this second
	// level already being in place regardless of whether this particular
	// module declares __ctype_b_loc.
	e.addAllocPT(
		e.allocs.Global(e.globalByName("__ctype_b_loc_alloc"), false, nil),
		e.allocs.Global(e.globalByName("__ctype_b_loc_alloc_alloc"), false, nil),
	)
}

func (e *engine) implicitGlobalReferent(name string) *alloc.Alloc {
	key := "*@" + name
	if a, ok := e.implicitGlobalAllocs[key]; ok {
		return a
	}
	referent := &names.GlobalName{Name: key}
	a := e.allocs.Global(referent, false, nil)
	e.implicitGlobalAllocs[key] = a
	return a
}

// indexInstruction records the structural facts a single instruction
// contributes to the reactive rule indices. It never touches any ctx-scoped
// relation -- that only happens once a context actually reaches the
// instruction (see rules.go seedInstruction).
func (e *engine) indexInstruction(instr *ir.Instruction) {
	switch op := instr.Opcode.(type) {
	case ir.OpCall:
		e.indexCallLike(instr.Name, op.Callee, op.Args, instr.Result)
	case ir.OpAdd:
		e.registerPassThru(instr.Result, op.Operand0)
		e.registerPassThru(instr.Result, op.Operand1)
	case ir.OpSub:
		e.registerPassThru(instr.Result, op.Minuend)
	case ir.OpPhi:
		for _, v := range op.Values {
			e.registerPassThru(instr.Result, v)
		}
	case ir.OpSelect:
		e.registerPassThru(instr.Result, op.True)
		e.registerPassThru(instr.Result, op.False)
	case ir.OpBitCast:
		e.registerUnaryPassThru(instr.Result, op.Pointer, constPassThruBitCast)
	case ir.OpGetElementPtr:
		e.registerUnaryPassThru(instr.Result, op.Pointer, constPassThruGEP)
	case ir.OpPtrToInt:
		e.registerUnaryPassThru(instr.Result, op.Pointer, constPassThruOther)
	case ir.OpIntToPtr:
		e.registerUnaryPassThru(instr.Result, op.Int, constPassThruOther)
	case ir.OpLoad:
		e.loadsByPointer[op.Pointer] = append(e.loadsByPointer[op.Pointer], instr)
	case ir.OpStore:
		e.storesByPointer[op.Pointer] = append(e.storesByPointer[op.Pointer], instr)
		e.storesByValue[op.Value] = append(e.storesByValue[op.Value], instr)
	}
}

func (e *engine) indexTerminator(t *ir.Terminator) {
	if inv, ok := t.Opcode.(ir.OpInvoke); ok {
		e.indexCallLike(t.Name, inv.Callee, inv.Args, t.Result)
		return
	}
	if ret, ok := t.Opcode.(ir.OpRet); ok {
		if ret.Operand != nil {
			fn := t.Name.Parent
			e.retOperands[fn] = append(e.retOperands[fn], ret.Operand)
			e.retOpToFunction[ret.Operand] = fn
		}
	}
}

// indexCallLike is shared by Call instructions and Invoke terminators: both
// contribute the same structural facts (callee operand ordering differs
// between the two but doesn't matter once unpacked into Args here).
func (e *engine) indexCallLike(site *names.InstructionName, callee ir.Callee, args []*ir.Operand, result *ir.Operand) {
	e.siteCallee[site] = callee
	e.siteArgs[site] = args
	e.siteResultOperand[site] = result
	e.sitesByFunction[site.Parent] = append(e.sitesByFunction[site.Parent], site)

	for i, a := range args {
		e.argUses[a] = append(e.argUses[a], argUse{site: site, index: i})
	}

	if callee.Kind == ir.CalleeOperand && callee.Operand.Kind == ir.OperandLocal {
		e.calleeOperandToSites[callee.Operand] = append(e.calleeOperandToSites[callee.Operand], site)
	}

	if callee.Kind == ir.CalleeOperand {
		if name, ok := directCalleeName(callee.Operand); ok && isMemcpyName(name) && len(args) >= 2 {
			e.registerMemcpyPair(args[0], args[1])
		}
	}
}

// registerPassThru records that src feeds a multi-operand pass-through
// result (Add, Phi, Select, Sub-minuend): whenever operand_points_to grows
// for src in any ctx, the same allocations must flow to result in that same
// ctx (rules.go onOperandPT). Constant sources are handled separately (see
// registerConstPassThru) since constants never appear as operandPT keys.
func (e *engine) registerPassThru(result, src *ir.Operand) {
	if src.Kind != ir.OperandLocal {
		return
	}
	e.passThruReverse[src] = appendUniqueOperand(e.passThruReverse[src], result)
}

// registerConstPassThru handles the unary pass-through opcodes (BitCast,
// GEP, PtrToInt, IntToPtr): when src is a local, IR construction normally
// shared result's identity with it (internal/ir/function.go
// FunctionBuilder.DefineResult) and result and src are the very same
// *ir.Operand; where it did not (a GEP, or a rare forward reference), the
// caller registers an explicit local pass-through instead. When src is a
// constant, result is a distinct operand and must be seeded explicitly once
// per reaching context (rules.go seedInstruction), so record the pairing
// for that seeding step.
func (e *engine) registerConstPassThru(result, src *ir.Operand, kind constPassThruKind) {
	if src.Kind == ir.OperandConstant {
		e.constPassThru = append(e.constPassThru, constPassThruEntry{result: result, constant: src.Constant, kind: kind})
	}
}

// registerUnaryPassThru dispatches a unary pass-through instruction to the
// right index: a constant source goes through constPassThru, a local source
// that did NOT get identity-shared at construction time (a GEP result, whose
// index operands keep it a distinct operand, or a forward reference the
// builder declined to share) gets an explicit reactive pass-through edge.
// An identity-shared result (result == src) needs neither.
func (e *engine) registerUnaryPassThru(result, src *ir.Operand, kind constPassThruKind) {
	if src.Kind == ir.OperandLocal && src != result {
		e.registerPassThru(result, src)
		return
	}
	e.registerConstPassThru(result, src, kind)
}

// constPassThruKind distinguishes bitcast/GEP constants, which the strict
// non-empty-points-to assertion covers, from ptrtoint/inttoptr constants,
// which it does not.
type constPassThruKind int

const (
	constPassThruOther constPassThruKind = iota
	constPassThruBitCast
	constPassThruGEP
)

type constPassThruEntry struct {
	result   *ir.Operand
	constant *ir.Constant
	kind     constPassThruKind
}

// directCalleeName returns the LLVM name a directly-called function
// constant denotes, unwrapping the pass-through constant expressions that
// can appear between the call and the function (a bitcast used to paper
// over a prototype mismatch is common in C code calling through a
// forward-declared signature).
func directCalleeName(op *ir.Operand) (string, bool) {
	if op.Kind != ir.OperandConstant {
		return "", false
	}
	for _, p := range op.Constant.Pointers() {
		if p.Kind == ir.ConstantFunction {
			return p.Function.Name, true
		}
	}
	return "", false
}

func heapSizeFor(name string, args []*ir.Operand) *uint64 {
	idx, ok := heapAllocSizeArg[name]
	if !ok || idx < 0 || idx >= len(args) {
		return nil
	}
	v, _, ok := args[idx].ConstantInt()
	if !ok {
		return nil
	}
	return &v
}
