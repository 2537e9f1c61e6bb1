package intprop

import (
	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/names"
)

// buildStatic populates every structural index the reactive rules consume,
// mirroring internal/analysis/pointer/static.go's split between ctx-
// independent IR shape and ctx-scoped derived facts.
func (e *engine) buildStatic() {
	if e.staticBuilt {
		return
	}
	e.staticBuilt = true

	for fn, f := range e.mod.Functions {
		var all []*ir.Instruction
		for _, blk := range f.Blocks {
			all = append(all, blk.Instructions...)
			e.indexTerminator(fn, blk.Terminator)
			for _, instr := range blk.Instructions {
				e.indexInstruction(instr)
			}
		}
		e.instrsOf[fn] = all
	}
}

// indexInstruction classifies a single instruction into exactly one of:
// an arithmetic/memory/opaque opcode that always widens its result to Top
// (Add, Sub, Alloca, GetElementPtr, ICmp, Load, Other, Store -- Add and Sub
// are folded in here rather than tracked as a dependent pair, since
// IntLattice.Add/Sub always return Top regardless of operand value, see
// lattice.go), a pass-through opcode whose result copies its source(s)
// (BitCast, IntToPtr, Phi, PtrToInt, Select), or a call site.
func (e *engine) indexInstruction(instr *ir.Instruction) {
	switch op := instr.Opcode.(type) {
	case ir.OpAdd, ir.OpSub, ir.OpAlloca, ir.OpGetElementPtr, ir.OpICmp, ir.OpLoad, ir.OpOther, ir.OpStore:
		e.topOpcodeOps[instr.Result] = true
	case ir.OpBitCast:
		e.addPassThru(instr.Result, op.Pointer)
	case ir.OpIntToPtr:
		e.addPassThru(instr.Result, op.Int)
	case ir.OpPtrToInt:
		e.addPassThru(instr.Result, op.Pointer)
	case ir.OpPhi:
		for _, v := range op.Values {
			e.addPassThru(instr.Result, v)
		}
	case ir.OpSelect:
		e.addPassThru(instr.Result, op.True)
		e.addPassThru(instr.Result, op.False)
	case ir.OpCall:
		e.indexCallLike(instr.Name, op.Callee, op.Args, instr.Result)
	}
}

func (e *engine) indexTerminator(fn *names.FunctionName, t *ir.Terminator) {
	e.termOf[fn] = t
	switch op := t.Opcode.(type) {
	case ir.OpInvoke:
		e.indexCallLike(t.Name, op.Callee, op.Args, t.Result)
	case ir.OpRet:
		if op.Operand != nil {
			e.retOperands[fn] = append(e.retOperands[fn], op.Operand)
			e.retOpToFunc[op.Operand] = fn
		}
	case ir.OpTermOther:
		if t.Result != nil {
			e.topOpcodeOps[t.Result] = true
		}
	}
}

// indexCallLike records the structural facts shared by Call instructions and
// Invoke terminators. hasOp tracks whether the callee is a genuine operand
// (as opposed to inline asm): argument and return-value forwarding never
// fires through an Asm call site, whose targets and values are unknowable.
func (e *engine) indexCallLike(site *names.InstructionName, callee ir.Callee, args []*ir.Operand, result *ir.Operand) {
	e.siteArgs[site] = args
	e.siteResult[site] = result
	e.siteHasOp[site] = callee.Kind == ir.CalleeOperand
	for i, a := range args {
		e.argUses[a] = append(e.argUses[a], argUse{site: site, index: i})
	}
}

func (e *engine) addPassThru(result, src *ir.Operand) {
	e.passThru[result] = append(e.passThru[result], src)
	e.passThruReverse[src] = append(e.passThruReverse[src], result)
}
