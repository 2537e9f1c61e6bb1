package callgraph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaloisInc/yapall/internal/ir"
	"github.com/GaloisInc/yapall/internal/names"
)

func defineFn(mod *ir.Module, name string, nparams int) *names.FunctionName {
	fn := &names.FunctionName{Name: name, Defined: true}
	f := &ir.Function{Name: fn}
	for i := 0; i < nparams; i++ {
		pn := &names.ParameterName{Parent: fn, Name: fmt.Sprintf("p%d", i)}
		f.Parameters = append(f.Parameters, ir.NewLocalOperand(&names.LocalName{Parameter: pn}))
	}
	bn := &names.BlockName{Parent: fn, Name: "entry"}
	term := &ir.Terminator{
		Name:   &names.InstructionName{Parent: fn, Block: bn, Index: 0},
		Opcode: ir.OpRet{},
	}
	f.Blocks = []*ir.Block{{Name: bn, Terminator: term}}
	mod.Functions[fn] = f
	return fn
}

func declareFn(mod *ir.Module, name string, nparams int) *names.FunctionName {
	fn := &names.FunctionName{Name: name}
	d := &ir.Decl{Name: fn, Parameters: make([]ir.Type, nparams)}
	mod.Decls[fn] = d
	return fn
}

func addCall(mod *ir.Module, caller *names.FunctionName, callee ir.Callee, nargs int) *names.InstructionName {
	f := mod.Functions[caller]
	blk := f.Blocks[0]
	in := &names.InstructionName{Parent: caller, Block: blk.Name, Index: len(blk.Instructions)}
	args := make([]*ir.Operand, nargs)
	for i := range args {
		args[i] = ir.NewConstantOperand(ir.NewIntConstant(64, 0))
	}
	blk.Instructions = append(blk.Instructions, &ir.Instruction{
		Name:   in,
		Opcode: ir.OpCall{Callee: callee, Args: args},
		Result: ir.NewLocalOperand(&names.LocalName{Instruction: in}),
	})
	return in
}

func directCallee(fn *names.FunctionName) ir.Callee {
	return ir.OperandCallee(ir.NewConstantOperand(ir.NewFunctionConstant(fn)))
}

func localCallee(caller *names.FunctionName) ir.Callee {
	pn := &names.ParameterName{Parent: caller, Name: "fp"}
	return ir.OperandCallee(ir.NewLocalOperand(&names.LocalName{Parameter: pn}))
}

func TestDirectCall(t *testing.T) {
	mod := ir.NewModule()
	main := defineFn(mod, "main", 0)
	f := defineFn(mod, "f", 0)
	site := addCall(mod, main, directCallee(f), 0)

	cg := Analysis(mod)
	assert.Equal(t, []*names.FunctionName{f}, cg[site])
}

func TestConstantExpressionCallee(t *testing.T) {
	mod := ir.NewModule()
	main := defineFn(mod, "main", 0)
	f := defineFn(mod, "f", 0)
	cast := ir.OperandCallee(ir.NewConstantOperand(ir.NewBitCastConstant(ir.NewFunctionConstant(f))))
	site := addCall(mod, main, cast, 0)

	cg := Analysis(mod)
	assert.Equal(t, []*names.FunctionName{f}, cg[site])
}

func TestIndirectCallWidensByArity(t *testing.T) {
	mod := ir.NewModule()
	main := defineFn(mod, "main", 0)
	unary := defineFn(mod, "unary", 1)
	binary := defineFn(mod, "binary", 2)
	nullary := declareFn(mod, "ext", 0)
	site := addCall(mod, main, localCallee(main), 1)

	cg := Analysis(mod)
	targets := cg[site]
	assert.Contains(t, targets, unary)
	assert.Contains(t, targets, nullary, "fewer parameters than arguments is still arity-compatible")
	assert.Contains(t, targets, main)
	assert.NotContains(t, targets, binary, "more parameters than arguments is not")
}

func TestAsmCallWidensToEverything(t *testing.T) {
	mod := ir.NewModule()
	main := defineFn(mod, "main", 0)
	big := defineFn(mod, "big", 7)
	site := addCall(mod, main, ir.AsmCallee(), 0)

	cg := Analysis(mod)
	assert.Contains(t, cg[site], big, "asm callees ignore the site's argument count")
}

func TestIndirectTargetsIncludeDecls(t *testing.T) {
	mod := ir.NewModule()
	defineFn(mod, "f", 1)
	declareFn(mod, "g", 1)

	targets := IndirectCallTargets(mod, 1)
	require.Len(t, targets, 2)
}

func TestConstantCalleeWithNoFunctionPanics(t *testing.T) {
	mod := ir.NewModule()
	main := defineFn(mod, "main", 0)
	bogus := ir.OperandCallee(ir.NewConstantOperand(ir.NewNullConstant()))
	addCall(mod, main, bogus, 0)

	assert.Panics(t, func() { Analysis(mod) })
}
