package pointer

import (
	"fmt"

	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/klimited"
)

// checkAssertions verifies invariants that MUST hold by construction,
// distinct from program-level imprecision (which is counted in metrics,
// never asserted). A failing assertion panics -- it signals a bug in this
// engine, not a malformed or undefined-behavior-laden input program.
func (e *engine) checkAssertions(strict bool) {
	e.checkCallsResolve()
	if strict {
		e.checkPointerInstructionsNonEmpty()
		e.checkConstPassThruNonEmpty()
	}
}

// checkCallsResolve asserts every call-like site reached in some context
// resolved to at least one callee: a reachable call site that resolved to
// *nothing* would silently under-approximate the callgraph, which this
// engine must never do. A site counts as resolved once any callee was
// recorded for it; a pointee that is not a function is dropped and only
// counted in the invalid-calls metric.
func (e *engine) checkCallsResolve() {
	resolved := make(map[string]bool, len(e.calls))
	for k := range e.calls {
		resolved[k.ctx+"|"+k.site.String()] = true
	}
	for ctxKey, fns := range e.reachFns {
		ctx := e.ctxReg[ctxKey]
		for _, fn := range fns {
			for _, site := range e.sitesByFunction[fn] {
				if !resolved[ctxKey+"|"+site.String()] {
					panic(fmt.Sprintf("assertion failed: call site %s unresolved in context %s", site, ctx))
				}
			}
		}
	}
}

// checkPointerInstructionsNonEmpty is the strict-mode check: every reachable
// pointer-typed instruction has a non-empty points-to set, unless any
// declaration still needs a signature (in which case missing facts are
// expected and not a bug) or the instruction is a unary pass-through
// opcode with a local source (see isPassThruLocalOpcode), whose points-to
// set is the source's own.
func (e *engine) checkPointerInstructionsNonEmpty() {
	if len(e.needsSig) > 0 {
		return
	}
	for ctxKey, fns := range e.reachFns {
		ctx := e.ctxReg[ctxKey]
		for _, fn := range fns {
			f, ok := e.mod.Functions[fn]
			if !ok {
				continue
			}
			for _, blk := range f.Blocks {
				for _, instr := range blk.Instructions {
					e.checkInstructionNonEmpty(ctx, instr)
				}
			}
		}
	}
}

func (e *engine) checkInstructionNonEmpty(ctx klimited.Context, instr *ir.Instruction) {
	if !instr.Type.IsPointer() {
		return
	}
	if isPassThruLocalOpcode(instr) {
		return
	}
	if len(e.operandPointsTo(ctx, instr.Result)) == 0 {
		panic(fmt.Sprintf("assertion failed: pointer-typed instruction %s has empty points-to set in context %s", instr.Name, ctx))
	}
}

// isPassThruLocalOpcode reports whether instr is a unary pass-through
// opcode whose source is a local. For BitCast/PtrToInt/IntToPtr that is
// normally the case where internal/ir.FunctionBuilder.DefineResult shared
// identity rather than allocating a fresh result operand; a GEP result is
// always a distinct operand and gets its base's points-to set through a
// reactive pass-through edge instead (static.go registerUnaryPassThru).
func isPassThruLocalOpcode(instr *ir.Instruction) bool {
	switch op := instr.Opcode.(type) {
	case ir.OpBitCast:
		return op.Pointer.Kind == ir.OperandLocal
	case ir.OpGetElementPtr:
		return op.Pointer.Kind == ir.OperandLocal
	case ir.OpPtrToInt:
		return op.Pointer.Kind == ir.OperandLocal
	case ir.OpIntToPtr:
		return op.Int.Kind == ir.OperandLocal
	}
	return false
}

// checkConstPassThruNonEmpty asserts every bitcast/GEP constant appearing
// in a reachable context has a non-empty points-to set. ptrtoint/inttoptr
// constants are deliberately not covered: integers round-tripped through a
// pointer cast legitimately carry no pointee.
func (e *engine) checkConstPassThruNonEmpty() {
	for _, ent := range e.constPassThru {
		if ent.kind == constPassThruOther {
			continue
		}
		if len(e.ConstantPointsTo(ent.constant)) == 0 {
			panic(fmt.Sprintf("assertion failed: constant expression %s has empty points-to set", ent.constant))
		}
	}
}
