package loader

import (
	llvmir "github.com/llir/llvm/ir"
	llvmconstant "github.com/llir/llvm/ir/constant"
	llvmvalue "github.com/llir/llvm/ir/value"

	"github.com/GaloisInc/yapall/internal/ir"
)

// lowerConstant converts an llir/llvm constant expression into this
// analysis's closed Constant sum: every recognized shape gets a dedicated
// Kind, everything else collapses to ConstantOther.
func (l *lowerer) lowerConstant(c llvmconstant.Constant) *ir.Constant {
	switch cc := c.(type) {
	case *llvmir.Func:
		return l.functionConstant(cc)
	case *llvmir.Global:
		return l.globalConstant(cc)
	case *llvmir.Alias:
		return l.aliasConstant(cc)
	case *llvmconstant.Int:
		return ir.NewIntConstant(uint32(cc.Typ.BitSize), bigToUint64(cc.X))
	case *llvmconstant.Null:
		return ir.NewNullConstant()
	case *llvmconstant.Undef:
		return ir.NewUndefConstant()
	case *llvmconstant.ZeroInitializer:
		// A zero-initialized aggregate or pointer carries no allocation
		// identity of its own -- Undef is the nearest existing kind with
		// that same "no points-to payload" treatment (see constant.go's
		// Pointers, which still folds Undef into the base case).
		return ir.NewUndefConstant()
	case *llvmconstant.Array:
		elems := make([]*ir.Constant, len(cc.Elems))
		for i, e := range cc.Elems {
			elems[i] = l.lowerConstant(e)
		}
		return ir.NewArrayConstant(elems)
	case *llvmconstant.CharArray:
		return ir.NewArrayConstant(nil)
	case *llvmconstant.Struct:
		fields := make([]*ir.Constant, len(cc.Fields))
		for i, f := range cc.Fields {
			fields[i] = l.lowerConstant(f)
		}
		return ir.NewStructConstant(fields)
	case *llvmconstant.ExprBitCast:
		return ir.NewBitCastConstant(l.lowerConstant(cc.From))
	case *llvmconstant.ExprGetElementPtr:
		return ir.NewGetElementPtrConstant(l.lowerConstant(cc.Src))
	case *llvmconstant.ExprPtrToInt:
		return ir.NewPtrToIntConstant(l.lowerConstant(cc.From))
	case *llvmconstant.ExprIntToPtr:
		return ir.NewIntToPtrConstant(l.lowerConstant(cc.From))
	default:
		return ir.NewOtherConstant()
	}
}

// functionConstant interns one *ir.Constant per function name: two
// occurrences of the same function used as a value share one Constant.
func (l *lowerer) functionConstant(f *llvmir.Func) *ir.Constant {
	fn := l.funcs[f.Name()]
	l.constMu.Lock()
	defer l.constMu.Unlock()
	if c, ok := l.funcConst[fn]; ok {
		return c
	}
	c := ir.NewFunctionConstant(fn)
	l.funcConst[fn] = c
	return c
}

func (l *lowerer) globalConstant(g *llvmir.Global) *ir.Constant {
	gn := l.globals[g.Name()]
	l.constMu.Lock()
	defer l.constMu.Unlock()
	if c, ok := l.globalConst[gn]; ok {
		return c
	}
	c := ir.NewGlobalConstant(gn)
	l.globalConst[gn] = c
	return c
}

func (l *lowerer) aliasConstant(a *llvmir.Alias) *ir.Constant {
	gn := l.globals[a.Name()]
	l.constMu.Lock()
	defer l.constMu.Unlock()
	if c, ok := l.globalConst[gn]; ok {
		return c
	}
	c := ir.NewGlobalConstant(gn)
	l.globalConst[gn] = c
	return c
}

// resolveOperand converts any llvm value reference into this function's
// Operand: an already-registered local (instruction result or parameter),
// or a freshly-lowered constant. A value that is neither -- an unregistered
// local, metadata, or any value shape this loader doesn't recognize --
// becomes a metadata operand: opaque, carrying no points-to information.
func (fl *funcLowerer) resolveOperand(v llvmvalue.Value) *ir.Operand {
	if op, ok := fl.instrOperand[v]; ok {
		return op
	}
	if c, ok := v.(llvmconstant.Constant); ok {
		return ir.NewConstantOperand(fl.lowerConstant(c))
	}
	return ir.NewMetadataOperand()
}

// resolveCallee distinguishes a genuine (possibly indirect) callee operand
// from inline assembly: a call through inline asm is not resolved through
// points-to; the pointer rules treat it as a call to any arity-compatible
// function, the standalone callgraph as a call to any function.
func (fl *funcLowerer) resolveCallee(v llvmvalue.Value) ir.Callee {
	if _, ok := v.(*llvmir.InlineAsm); ok {
		return ir.AsmCallee()
	}
	return ir.OperandCallee(fl.resolveOperand(v))
}
