// Package callgraph computes a standalone, context-insensitive
// over-approximate callgraph: a map from every call-like instruction to
// every function it might target. It is deliberately separate from
// internal/analysis/pointer -- the integer analysis consumes this instead
// of a points-to-derived callgraph, since it never needs (and shouldn't pay
// for) allocation tracking.
package callgraph

import (
	"fmt"

	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/names"
)

// constantFunctions unwraps a constant down to the function names it might
// denote when called: itself for a direct function constant, recursively
// through bitcast and (each base pointer of) getelementptr, and nothing for
// every other constant kind. The switch lists every current ir.ConstantKind
// explicitly; a kind not listed falls to the default case and, like the
// listed non-pointer kinds, yields no targets.
func constantFunctions(c *ir.Constant) []*names.FunctionName {
	switch c.Kind {
	case ir.ConstantFunction:
		return []*names.FunctionName{c.Function}
	case ir.ConstantBitCast:
		return constantFunctions(c.Inner)
	case ir.ConstantGetElementPtr:
		var out []*names.FunctionName
		for _, p := range c.Pointers() {
			out = append(out, constantFunctions(p)...)
		}
		return out
	case ir.ConstantGlobal,
		ir.ConstantInt,
		ir.ConstantNull,
		ir.ConstantUndef,
		ir.ConstantArray,
		ir.ConstantStruct,
		ir.ConstantPtrToInt,
		ir.ConstantIntToPtr,
		ir.ConstantOther:
		return nil
	default:
		return nil
	}
}

// IndirectCallTargets returns every function (defined or declared) whose
// arity is at most nargs -- the over-approximation for a call through a
// non-constant operand: a function
// with fewer parameters than the call site supplies arguments is still a
// plausible target, since calling through extra arguments is generally
// tolerated in practice.
func IndirectCallTargets(mod *ir.Module, nargs int) []*names.FunctionName {
	var out []*names.FunctionName
	for fn, f := range mod.Functions {
		if nargs >= len(f.Parameters) {
			out = append(out, fn)
		}
	}
	for fn, d := range mod.Decls {
		if nargs >= len(d.Parameters) {
			out = append(out, fn)
		}
	}
	return out
}

// CallTargets returns every possible target of a call to callee, given the
// call site supplies nargs arguments:
//
//   - Asm widens to every function regardless of the site's argument
//     count (nargs is treated as unbounded).
//   - A constant callee resolves via constantFunctions -- asserted
//     non-empty, since a direct or constant-expression callee must name a
//     function that actually exists in well-formed IR.
//   - A local (indirect) callee widens to IndirectCallTargets.
func CallTargets(mod *ir.Module, callee ir.Callee, nargs int) []*names.FunctionName {
	if callee.Kind == ir.CalleeAsm {
		return IndirectCallTargets(mod, int(^uint(0)>>1))
	}
	op := callee.Operand
	switch op.Kind {
	case ir.OperandMetadata:
		return nil
	case ir.OperandConstant:
		fs := constantFunctions(op.Constant)
		if len(fs) == 0 {
			panic(fmt.Sprintf("callgraph: constant callee %s resolved to no function", op))
		}
		return fs
	default: // OperandLocal
		return IndirectCallTargets(mod, nargs)
	}
}

// Analysis computes the over-approximate callgraph for the whole module: a
// map from every call-like instruction's name to its possible targets.
// Every reachable-or-not call site is included -- this analysis is
// context- and reachability-insensitive, unlike
// internal/analysis/pointer's Calls relation.
func Analysis(mod *ir.Module) map[*names.InstructionName][]*names.FunctionName {
	m := make(map[*names.InstructionName][]*names.FunctionName, len(mod.Functions))
	for _, f := range mod.Functions {
		for _, b := range f.Blocks {
			if inv, ok := b.Terminator.Opcode.(ir.OpInvoke); ok {
				targets := CallTargets(mod, inv.Callee, len(inv.Args))
				if len(targets) == 0 {
					panic(fmt.Sprintf("callgraph: invoke %s resolved to no target", b.Terminator.Name))
				}
				m[b.Terminator.Name] = targets
			}
			for _, instr := range b.Instructions {
				call, ok := instr.Opcode.(ir.OpCall)
				if !ok {
					continue
				}
				targets := CallTargets(mod, call.Callee, len(call.Args))
				if len(targets) == 0 {
					panic(fmt.Sprintf("callgraph: call %s resolved to no target", instr.Name))
				}
				m[instr.Name] = targets
			}
		}
	}
	return m
}
